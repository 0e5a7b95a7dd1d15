// Package harness runs YAML scenarios against compiled programs.
//
// A scenario names a program directory and one function in it. The harness
// compiles the whole program, requires the function to build and validate
// (or to fail with the listed diagnostics), checks graph-shape assertions,
// executes every case, and finally replays the recorded runs to confirm
// they are deterministic.
//
// # Scenario Format
//
//	name: pick_table
//	description: "pick buckets its input"
//	programs: ../programs        # relative to the scenario file
//	function: pick
//	max_steps: 1000              # optional
//	expect_build:                # optional
//	  warnings: [W201]
//	assertions:
//	  - type: block_count
//	    count: 17
//	  - type: preds
//	    block: 14
//	    blocks: [1, 3, 5, 10, 12, 13]
//	cases:
//	  - inputs: { b: 7 }
//	    expect: { value: 0 }
//	  - inputs: { b: 2 }
//	    expect: { value: 2, path: [0, 2, 4, 6, 7, 8, 10, 14, 15] }
//
// A scenario for a malformed program lists the builder codes instead:
//
//	expect_build:
//	  fails: [E201]
//
// # Assertion Types
//
//   - block_count: the graph has exactly count blocks
//   - preds: block has exactly the listed predecessors
//   - successors: block has exactly the listed successors
//   - exits: the returning blocks are exactly the listed ones
//
// Each scenario runs against a fresh in-memory run store with sequential run
// IDs, so results are identical across executions.
package harness
