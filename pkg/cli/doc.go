// Package cli implements the command-line interface of upgradecheck.
//
// # Overview
//
// upgradecheck drives an in-place upgrade of a virtualization host image over
// SSH and the management engine REST API, then verifies that the host state
// after the upgrade is consistent with the state before it. It is used by lab
// QE to qualify image builds.
//
// # Commands
//
// run - Upgrade a host and verify it:
//
//	upgradecheck run --host ADDR --password PW --source BUILD --target BUILD --definition NAME
//
// Registers the host with the engine for its source stream, runs the upgrade
// pipeline of the strategy named by the definition, captures the host state
// before and after, runs the selected cases and always deregisters the host.
//
// snapshot - Capture host state:
//
//	upgradecheck snapshot --host ADDR --tag old|new [--output FILE]
//
// verify - Compare two snapshots offline:
//
//	upgradecheck verify --old FILE --new FILE --source BUILD --target BUILD
//
// history - Query past runs:
//
//	upgradecheck history list [--host ADDR] [--status failed]
//	upgradecheck history show RUN_ID
//
// cases - List the available cases.
//
// # Global Flags
//
//	--config        Config file (default: ./upgradecheck.yaml)
//	--log-level     Log level: debug, info, warn, error (default: info)
//	--metrics-file  Write Prometheus metrics to a text file on exit
//
// # Output Formats
//
// Documents are written as YAML (default), JSON or a flattened table with
// --format, to --output or stdout. The run summary always goes to stderr.
//
// # Exit Codes
//
//	0  Success, every case passed
//	1  Failure, a case failed, a step failed or the input was invalid
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/hostqe/upgradecheck/pkg/cli.buildVersion=1.0.0'" ./cmd/upgradecheck
package cli
