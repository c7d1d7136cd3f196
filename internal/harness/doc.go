// Package harness runs scripted request scenarios against a real
// handler, store and pruner.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: expiry
//	description: "Records disappear once the pruner passes their expiry"
//	shelf_life: 1h
//	steps:
//	  - op: put
//	    pattern: aqa
//	    iota: { type: "hexcasting:double", number: 3 }
//	    expect: { packet: PutSuccess }
//	  - op: advance
//	    duration: 2h
//	  - op: prune
//	    expect: { removed: 1 }
//	  - op: get
//	    pattern: aqa
//	    expect: { packet: ErrorResponse, code: 500 }
//	final_count: 0
//
// Ops are put, get, delete, advance and prune. A delete's capability is
// "issued" (the one returned by the last put under the same key),
// "wrong", or omitted to send none.
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite database with a
// fake wall clock and sequential capabilities, so the transcript of a
// run is identical every time and can be compared against a golden file.
package harness
