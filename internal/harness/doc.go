// Package harness provides scripted stand-ins for the prober's external
// collaborators, plus golden-file helpers for tests.
//
// # Scenario Format
//
// Scenarios are YAML files that script the fake oracle:
//
//	name: two_may
//	description: "one NoAlias then two MayAlias queries"
//	queries: [NoAlias, MayAlias, MayAlias]
//	sensitive: [1]      # overriding MayAlias #1 adds a function
//	compile_fail: []    # overriding these breaks the backend
//	measure_fail: []    # overriding these makes the size tool complain
//	fail_on_override: [] # overriding these makes the oracle print "Failed"
//	fail_after: 2       # optional: print the failure marker after 2 queries
//
// # Fake Tools
//
// Tests do not need an LLVM install. FakeConfig points every tool at the
// running test binary with a role argument (oracle, frontend, backend,
// size), and MaybeRunFake, called from TestMain, turns the re-executed
// binary into that tool:
//
//	func TestMain(m *testing.M) {
//	    harness.MaybeRunFake()
//	    os.Exit(m.Run())
//	}
//
// The fake oracle echoes its input module after the header, so an identity
// replay of a scenario reproduces the input byte for byte. Overrides listed
// in the scenario add functions or plant marks the fake backend and size
// tool react to, and a trailing "; answers:" comment records every reply so
// two different substitutions always produce different modules.
//
// RunOracle is also usable in-process over io.Pipe for channel-level tests.
//
// # Sizes
//
// The fake size tool reports 32 + 64*functions bytes of text, 8 of data, and
// 4 of bss; SizeOf gives the resulting total for a function count.
package harness
