// Command rowfilter rewrites SQL so that it only sees rows passing a set of filters.
//
// Usage:
//
//	rowfilter [-d dialect] [-r rules.yml] [-f table:column=value]... [--dump] [files...]
//
// Each file (or stdin, if there are none) is parsed as a sequence of SQL statements,
// every statement is filtered, and the result is printed.
// Files are processed concurrently and printed in the order given.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/syncs"
	"github.com/hashicorp/go-multierror"
	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/bobg/rowfilter"
	"github.com/bobg/rowfilter/config"
)

type options struct {
	Dialect     string   `short:"d" long:"dialect" env:"ROWFILTER_DIALECT" description:"sql dialect: postgres, mysql, generic or bigquery (default: from rules, or postgres)"`
	Rules       string   `short:"r" long:"rules" env:"ROWFILTER_RULES" description:"rules file, yaml or toml"`
	Filters     []string `short:"f" long:"filter" description:"filter as table:column=value, repeatable"`
	Dump        bool     `long:"dump" description:"print parsed trees instead of rewritten sql"`
	Verify      bool     `long:"verify" description:"check rewritten postgres sql with the postgres parser"`
	Concurrency int      `short:"c" long:"concurrency" default:"4" description:"number of files processed at once"`
	Dbg         bool     `long:"dbg" description:"debug mode"`

	PositionalArgs struct {
		Files []string `positional-arg-name:"file" description:"sql files, stdin if none"`
	} `positional-args:"yes"`
}

var revision = "latest"

var exitFunc = os.Exit

func main() {
	var opts options
	p := flags.NewParser(&opts, flags.PrintErrors|flags.PassDoubleDash|flags.HelpFlag)
	if _, err := p.Parse(); err != nil {
		exitFunc(1) // can be redefined in tests
	}
	setupLog(opts.Dbg)
	log.Printf("[DEBUG] rowfilter %s", revision)

	if err := run(context.Background(), opts, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "rowfilter: %v\n", err)
		exitFunc(1)
	}
}

// job is the work for one input: its SQL and, once done, its output.
type job struct {
	name string
	file bool // sql is read from the file name
	sql  string
	out  string
	err  error
}

func run(ctx context.Context, opts options, stdin io.Reader, stdout io.Writer) error {
	d, filters, err := loadFilters(opts)
	if err != nil {
		return err
	}
	if len(filters) == 0 && !opts.Dump {
		log.Printf("[WARN] no filters, statements are only normalized")
	}

	var jobs []*job
	if len(opts.PositionalArgs.Files) == 0 {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return errors.Wrap(err, "reading stdin")
		}
		jobs = append(jobs, &job{name: "stdin", sql: string(data)})
	}
	for _, fname := range opts.PositionalArgs.Files {
		jobs = append(jobs, &job{name: fname, file: true})
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	wg := syncs.NewErrSizedGroup(concurrency, syncs.Context(ctx), syncs.Preemptive)
	for _, j := range jobs {
		wg.Go(func() error {
			j.out, j.err = process(j, d, filters, opts)
			return j.err
		})
	}
	_ = wg.Wait() // errors are reported per job below, in input order

	errs := new(multierror.Error)
	for _, j := range jobs {
		if j.err != nil {
			errs = multierror.Append(errs, errors.Wrap(j.err, j.name))
			continue
		}
		fmt.Fprintln(stdout, j.out)
	}
	return errs.ErrorOrNil()
}

func process(j *job, d rowfilter.Dialect, filters []rowfilter.Filter, opts options) (string, error) {
	if j.file {
		data, err := os.ReadFile(j.name) // nolint
		if err != nil {
			return "", err
		}
		j.sql = string(data)
	}
	log.Printf("[DEBUG] processing %s, %d bytes", j.name, len(j.sql))

	if opts.Dump {
		// DebugDump panics on bad input, so parse first.
		if _, err := rowfilter.Parse(j.sql, d); err != nil {
			return "", err
		}
		return rowfilter.DebugDump(j.sql, d), nil
	}

	out, err := rowfilter.Rewrite(j.sql, d, filters...)
	if err != nil {
		return "", err
	}
	if opts.Verify && d == rowfilter.Postgres {
		if err := rowfilter.VerifyPostgres(out); err != nil {
			return "", err
		}
	}
	return out, nil
}

// loadFilters combines the rules file, if any, with filters from the command line.
// The -d flag overrides the rules file's dialect.
func loadFilters(opts options) (rowfilter.Dialect, []rowfilter.Filter, error) {
	rules := &config.Rules{}
	if opts.Rules != "" {
		var err error
		if rules, err = config.Load(opts.Rules); err != nil {
			return 0, nil, err
		}
	}
	if opts.Dialect != "" {
		rules.Dialect = opts.Dialect
	}
	d, err := rules.ParseDialect()
	if err != nil {
		return 0, nil, err
	}

	filters, err := rules.RowFilters()
	if err != nil {
		return 0, nil, err
	}
	for _, s := range opts.Filters {
		f, err := parseFilter(s)
		if err != nil {
			return 0, nil, err
		}
		filters = append(filters, f)
	}
	log.Printf("[INFO] dialect %s, %d filters", d, len(filters))
	return d, filters, nil
}

// parseFilter parses table:column=value.
// The value is an integer if it looks like one and a string otherwise;
// single quotes force a string, as in orders:code='007'.
func parseFilter(s string) (rowfilter.Filter, error) {
	table, rest, ok := strings.Cut(s, ":")
	if !ok || table == "" {
		return rowfilter.Filter{}, errors.Errorf("filter %q: want table:column=value", s)
	}
	column, value, ok := strings.Cut(rest, "=")
	if !ok || column == "" {
		return rowfilter.Filter{}, errors.Errorf("filter %q: want table:column=value", s)
	}

	f := rowfilter.Filter{Table: table, Column: column, Op: rowfilter.OpEq, Value: value}
	if len(value) >= 2 && strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'") {
		f.Value = value[1 : len(value)-1]
	} else if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		f.Value = n
	}
	return f, nil
}

func setupLog(dbg bool) {
	logOpts := []lgr.Option{lgr.Out(io.Discard), lgr.Err(io.Discard)} // default to discard
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
