package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "seed":
		return runSeed(args[1:])
	case "sources":
		return runSources(args[1:])
	case "status":
		return runStatus(args[1:])
	case "ingest":
		return runIngest(args[1:])
	case "normalize":
		return runNormalize(args[1:])
	case "publish":
		return runPublish(args[1:])
	case "digest":
		return runDigest(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "serve":
		return runServe(args[1:])
	case "daemon":
		return runDaemon(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "aiscan CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  aiscan <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health     Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  seed       Sync the default source registry")
	fmt.Fprintln(os.Stderr, "  sources    List registered sources and their health")
	fmt.Fprintln(os.Stderr, "  status     Show the latest ingest and publish runs")
	fmt.Fprintln(os.Stderr, "  ingest     Fetch all enabled sources into the raw item ledger")
	fmt.Fprintln(os.Stderr, "  normalize  Convert recent raw items into normalized records")
	fmt.Fprintln(os.Stderr, "  publish    Build and store the digest for a date")
	fmt.Fprintln(os.Stderr, "  digest     Print a published digest")
	fmt.Fprintln(os.Stderr, "  validate   Validate source config JSON files against the schema")
	fmt.Fprintln(os.Stderr, "  serve      Start the Echo API server")
	fmt.Fprintln(os.Stderr, "  daemon     Manage the systemd service")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"aiscan <command> -h\" for command-specific flags.")
}
