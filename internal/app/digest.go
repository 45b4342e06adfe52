package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"horse.fit/aiscan/internal/cli"
	"horse.fit/aiscan/internal/db"
)

type digestOutput struct {
	Date  string           `json:"date"`
	Count int              `json:"count"`
	Items []db.DigestEntry `json:"items"`
}

func runDigest(args []string) int {
	fs := flag.NewFlagSet("digest", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	date := fs.String("date", "", "Digest date in YYYY-MM-DD (UTC, defaults to the latest published date)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "digest does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, pool, err := connectReadPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	targetDay := time.Time{}
	if *date != "" {
		targetDay, err = parseUTCDate(*date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --date: %v\n", err)
			return 2
		}
	} else {
		targetDay, err = pool.LatestDigestDate(ctx)
		if err != nil {
			if errors.Is(err, db.ErrNoRows) {
				fmt.Fprintln(os.Stderr, "No digest has been published yet")
				return 1
			}
			fmt.Fprintf(os.Stderr, "Failed to query latest digest date: %v\n", err)
			return 1
		}
	}

	entries, err := pool.GetDigestByDate(ctx, targetDay)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to query digest: %v\n", err)
		return 1
	}
	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "No digest for %s\n", targetDay.UTC().Format("2006-01-02"))
		return 1
	}

	result := digestOutput{
		Date:  targetDay.UTC().Format("2006-01-02"),
		Count: len(entries),
		Items: entries,
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("date: %s\n", result.Date)
	fmt.Printf("entries: %d\n\n", result.Count)

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.Category,
			strconv.Itoa(entry.Rank),
			strconv.FormatFloat(entry.Score, 'f', 4, 64),
			entry.Confidence,
			strconv.Itoa(entry.SourceCount),
			entry.SourceSlug,
			truncateForTable(entry.Title, 70),
		})
	}

	headers := []string{"CATEGORY", "RANK", "SCORE", "CONFIDENCE", "SOURCES", "SOURCE", "TITLE"}
	if err := writeTable(headers, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
