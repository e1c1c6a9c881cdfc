// Package cli implements the cachemon command-line interface.
//
// The package is organized around Cobra commands, with the root command
// itself running the monitor so that plain "cachemon" starts a session.
// The general structure separates:
//
//   - Command definitions (cobra.Command instances)
//   - Run wiring (monitorCommand: config, registry, backend, loop)
//   - Implementation details (in other internal packages)
//
// # Command Structure
//
//	cachemon [flags]    - Start monitoring (the root command)
//	cachemon info       - Show supported events and topology
//	cachemon init       - Create .cachemon.yaml config
//	cachemon version    - Print version information
//
// # Run Wiring
//
// The monitorCommand function handles the phases every run shares:
//
//  1. Load config defaults and apply flag overrides
//  2. Parse -m/-p target specifications into the registry
//  3. Probe backend capability and topology, finalize the registry
//  4. Open the output destination and start the groups
//  5. Drive the polling loop until timeout or interrupt
//  6. Stop the groups and close the output
//
// Interrupts (SIGINT, SIGHUP, SIGTERM) cancel the loop's context; the
// tick in progress finishes rendering before shutdown runs, so group
// handles are always released.
//
// # Flag Handling
//
// Monitoring flags live on the root command. Defaults come from
// .cachemon.yaml and CACHEMON_* environment variables; an explicitly
// set flag always wins.
package cli
