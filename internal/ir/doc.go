// Package ir provides the control-flow-graph intermediate representation.
//
// A Graph is an index-addressed table of BasicBlocks for one function. Edges
// are stored as BlockIDs, never as pointers, so back-edges are just more
// entries in the successor relation. Successors are always derived from a
// block's terminator; predecessors are stored and must equal the transpose of
// the derived successor relation (see ComputePredecessors).
//
// This package contains type definitions, the pretty printer and the
// canonical graph hash. All other internal packages import ir; ir imports
// nothing internal.
//
// Key design constraints:
//   - Instr and Operand are sealed interfaces; switches over them are
//     exhaustive with a default arm reporting the unknown kind
//   - Every block ends in exactly one terminator (Jump, JumpIfCond, Ret)
//   - JumpIfCond falls through to the block with the next sequential id
//   - Constants are int64-backed; bool is 0 or 1
package ir
