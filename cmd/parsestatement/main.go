// Command parsestatement parses broker statements from disk and prints the
// extracted records as JSON.
//
//	parsestatement [flags] statement.xlsx [statement.xls ...]
//
// Statements are parsed in parallel. The exit code is 1 when any statement or
// table failed; records of the successful tables are printed either way.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/brokerstatements/internal/core"
	_ "github.com/JonMunkholm/brokerstatements/internal/core/formats" // Register all formats
	"github.com/JonMunkholm/brokerstatements/internal/logging"
	"github.com/JonMunkholm/brokerstatements/internal/registry"
	"github.com/JonMunkholm/brokerstatements/internal/sheet"
)

type options struct {
	format      string
	portfolio   string
	date        string
	concurrency int
	timeout     time.Duration
	overrides   string
	databaseURL string
	listFormats bool
	logLevel    string
	logFormat   string
}

// output is one statement of the printed JSON array.
type output struct {
	Name   string       `json:"name"`
	Result *core.Result `json:"result,omitempty"`
	Errors []string     `json:"errors,omitempty"`
}

func main() {
	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.format, "format", "", "format key; empty detects the format of each file")
	flag.StringVar(&opts.portfolio, "portfolio", "", "portfolio overriding the statement's account number")
	flag.StringVar(&opts.date, "date", "", "statement date YYYY-MM-DD for undated tables (default today)")
	flag.IntVar(&opts.concurrency, "concurrency", core.DefaultMaxConcurrentParses, "statements parsed at once")
	flag.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "timeout for the whole batch")
	flag.StringVar(&opts.overrides, "overrides", os.Getenv("PARSE_OVERRIDES_FILE"), "YAML file with format overrides")
	flag.StringVar(&opts.databaseURL, "db", os.Getenv("DATABASE_URL"), "registry database URL; empty keeps ids in memory")
	flag.BoolVar(&opts.listFormats, "formats", false, "list registered formats and exit")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "log level")
	flag.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] statement...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// stdout carries the records
	logger := logging.New(os.Stderr, opts.logLevel, opts.logFormat)
	slog.SetDefault(logger)

	code, err := run(context.Background(), opts, flag.Args(), os.Stdout)
	if err != nil {
		logger.Error("parsestatement failed", "error", err)
		os.Exit(2)
	}
	os.Exit(code)
}

func run(ctx context.Context, opts options, files []string, stdout io.Writer) (int, error) {
	if opts.overrides != "" {
		ov, err := core.LoadOverrides(opts.overrides)
		if err != nil {
			return 0, err
		}
		if err := core.ApplyOverrides(ov); err != nil {
			return 0, err
		}
	}

	if opts.listFormats {
		for _, f := range core.All() {
			fmt.Fprintf(stdout, "%-20s %-12s %s\n", f.Key, f.Broker, f.Label)
		}
		return 0, nil
	}
	if len(files) == 0 {
		flag.Usage()
		return 0, fmt.Errorf("no statements given")
	}

	var date time.Time
	if opts.date != "" {
		d, err := time.Parse(time.DateOnly, opts.date)
		if err != nil {
			return 0, fmt.Errorf("invalid -date: %w", err)
		}
		date = d
	}

	var reg registry.Registrar = registry.NewMemory()
	if opts.databaseURL != "" {
		pool, err := pgxpool.New(ctx, opts.databaseURL)
		if err != nil {
			return 0, fmt.Errorf("connect registry database: %w", err)
		}
		defer pool.Close()

		pg := registry.NewPostgres(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return 0, err
		}
		reg = pg
	}

	inputs := make([]core.StatementInput, 0, len(files))
	outputs := make([]output, 0, len(files))
	failed := false
	for _, path := range files {
		wb, err := sheet.OpenFile(path)
		if err != nil {
			outputs = append(outputs, output{Name: path, Errors: []string{err.Error()}})
			failed = true
			continue
		}
		inputs = append(inputs, core.StatementInput{
			Name:      path,
			Workbook:  wb,
			Format:    opts.format,
			Portfolio: opts.portfolio,
			Date:      date,
			Registrar: reg,
			Logger:    slog.Default().With("file", path),
		})
	}

	for _, br := range core.ParseBatch(ctx, inputs, core.BatchOptions{
		MaxConcurrent: opts.concurrency,
		Timeout:       opts.timeout,
	}) {
		out := output{Name: br.Name, Result: br.Result}
		if br.Err != nil {
			failed = true
			if tes := core.TableErrors(br.Err); len(tes) > 0 {
				for _, te := range tes {
					out.Errors = append(out.Errors, te.Error())
				}
			} else {
				out.Errors = []string{br.Err.Error()}
			}
		}
		outputs = append(outputs, out)
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outputs); err != nil {
		return 0, err
	}

	if failed {
		return 1, nil
	}
	return 0, nil
}
