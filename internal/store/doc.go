// Package store is the SQLite run log for the interpreter.
//
// Each recorded run keeps the hash of the graph it executed, the canonical
// inputs, and the outcome (value or fault code, step count, block path).
// Replay rebuilds the graph, checks the hash, and re-executes the inputs.
//
// Ordering uses the seq column, assigned by the store on insert, and every
// query orders by seq ASC, id ASC COLLATE BINARY so results are identical
// across replays.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - single open connection (one writer)
package store
