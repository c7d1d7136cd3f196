// Package server runs the hexstore TCP service.
//
// Each accepted connection gets its own goroutine running a two-state
// loop: accumulate bytes until a full frame decodes, then dispatch every
// packet in it and write one reply. A Pruner goroutine removes expired
// records on a fixed interval for the life of the process.
//
// Request failures never end a connection. Client mistakes become
// ErrorResponse 400 and backend failures ErrorResponse 500, both inside
// a normal reply. Only transport errors, or a frame header announcing a
// body the server will never accept, close the connection.
package server
