// Package document models iotas: the recursively typed payloads clients
// store and retrieve.
//
// A payload is a tree of Values (strings, numbers, byte and int arrays,
// lists and ordered compounds). A Document is a Compound carrying a type
// tag under TypeKey and its data under DataKey; documents nest inside
// lists, dicts and any other container.
//
// The tag vocabulary is open. Kinds the sanitizer acts on are recognized
// by the tag's local name (the text after the last ':'), so
// "hexcasting:list" and "hextweaks:dict" are both containers, while
// unknown tags are carried through untouched as opaque documents.
//
// This package imports only internal/codec.
package document
