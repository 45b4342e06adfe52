package app

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	sourceschema "horse.fit/aiscan/schema"
)

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "validate requires at least one source config JSON file")
		return 2
	}

	failures := 0
	for _, path := range fs.Args() {
		payload, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failures++
			continue
		}

		if _, err := sourceschema.ValidateSourceConfig(json.RawMessage(payload)); err != nil {
			fmt.Fprintf(os.Stderr, "%s: invalid: %v\n", path, err)
			failures++
			continue
		}

		fmt.Printf("%s: ok\n", path)
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed validation\n", failures, fs.NArg())
		return 1
	}
	return 0
}
