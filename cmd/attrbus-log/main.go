// Command attrbus-log views and analyzes model event trace files.
//
// Trace files are written by attrbus-shell with the -trace flag, or by any
// program that attaches a log.Recorder with a log.FileLogger.
//
// Usage:
//
//	attrbus-log <command> [flags] <file.alog>
//
// Commands:
//
//	view     View trace in human-readable format
//	export   Export trace to JSONL or CSV
//	filter   Filter trace and write to a new file
//	stats    Show statistics about the trace
//
// Examples:
//
//	# View every attribute event
//	attrbus-log view -name 'changed:*' todo.alog
//
//	# Export validation failures to CSV
//	attrbus-log export -format csv -category invalid todo.alog
//
//	# Keep one model's events
//	attrbus-log filter -cid 3f2a9c1e -o one.alog todo.alog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/attrbus/attrbus-go/cmd/attrbus-log/commands"
	"github.com/attrbus/attrbus-go/pkg/log"
)

const usage = `attrbus-log - Model Event Trace Analyzer

Usage:
  attrbus-log <command> [flags] <file.alog>

Commands:
  view     View trace in human-readable format
  export   Export trace to JSONL or CSV
  filter   Filter trace and write to a new file
  stats    Show statistics about the trace

Use "attrbus-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// newFlagSet creates a flag set with the shared filter flags bound to opts.
func newFlagSet(name, summary string, opts *commands.FilterOptions) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "attrbus-log %s - %s\n\nUsage:\n  attrbus-log %s [flags] <file.alog>\n\nFlags:\n", name, summary, name)
		fs.PrintDefaults()
	}
	if opts != nil {
		fs.StringVar(&opts.EntityID, "cid", "", "Filter by model client id")
		fs.StringVar(&opts.ModelID, "id", "", "Filter by model id")
		fs.StringVar(&opts.Name, "name", "", "Filter by event name (trailing * matches a prefix)")
		fs.StringVar(&opts.Key, "key", "", "Filter by attribute key")
		fs.StringVar(&opts.Category, "category", "", "Filter by category (attribute, bulk, invalid, lifecycle, sync, error, other)")
		fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
		fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
		fs.BoolVar(&opts.ErrorsOnly, "errors", false, "Only events carrying an error")
	}
	return fs
}

// parseArgs parses the flags and returns the trace path and filter.
func parseArgs(fs *flag.FlagSet, args []string, opts *commands.FilterOptions) (string, log.Filter) {
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}

	var filter log.Filter
	if opts != nil {
		var err error
		if filter, err = commands.BuildFilter(*opts); err != nil {
			fail(err)
		}
	}
	return fs.Arg(0), filter
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	var opts commands.FilterOptions
	fs := newFlagSet("view", "View trace in human-readable format", &opts)
	path, filter := parseArgs(fs, args, &opts)

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	var opts commands.FilterOptions
	fs := newFlagSet("export", "Export trace to JSONL or CSV", &opts)
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")
	path, filter := parseArgs(fs, args, &opts)

	if err := commands.RunExport(path, *format, *output, filter); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	var opts commands.FilterOptions
	fs := newFlagSet("filter", "Filter trace and write to a new file", &opts)
	output := fs.String("o", "", "Output file (required)")
	path, filter := parseArgs(fs, args, &opts)

	n, err := commands.RunFilter(path, *output, filter)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", n, *output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the trace", nil)
	path, _ := parseArgs(fs, args, nil)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
