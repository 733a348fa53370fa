// regular - match data against templates and format the bindings
//
// Usage:
//
//	regular match  -t TEMPLATE -d DATA [-s SYMBOL]... [--single]
//	regular format -t TEMPLATE (-m MATCH -d DATA | -b BINDINGS) [--all] [--clean]
//	regular clean  -t TEMPLATE
//	regular run    [--config FILE]
//	regular stream -m MATCH [-t TEMPLATE]
//	regular version
//
// Templates are JSON, JSONC, YAML or CBOR files with $-markers
// ({"$sym": "name"}, {"$opt": ...}, {"$trans": ..., "func": "int"}).
// DATA may be "-" to read stdin. Files ending in .zst or .lz4 are
// decompressed.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Neumenon/regular/codec"
	"github.com/Neumenon/regular/stream"
)

const libVersion = "0.1.0"

// app holds the global flags and what they resolve to.
type app struct {
	logLevel     string
	outputFormat string
	pretty       bool
	inputFormat  string

	stderr io.Writer
	logger *slog.Logger
}

func main() {
	root := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stderr: stderr}

	root := &cobra.Command{
		Use:           "regular",
		Short:         "Match data against templates and format the bindings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("pretty") {
				a.pretty = isTerminal(stdout)
			}
			if _, err := codec.ParseFormat(a.outputFormat); err != nil {
				return fmt.Errorf("--output: %w", err)
			}
			if _, err := codec.ParseFormat(a.inputFormat); err != nil {
				return fmt.Errorf("--input-format: %w", err)
			}
			return a.setLogger(a.logLevel)
		},
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVarP(&a.outputFormat, "output", "o", "json", "Output format: json, yaml, cbor")
	root.PersistentFlags().BoolVar(&a.pretty, "pretty", false, "Indent JSON output (default: on when stdout is a terminal)")
	root.PersistentFlags().StringVar(&a.inputFormat, "input-format", "json", "Format of data read from stdin")

	root.AddCommand(
		newMatchCmd(a),
		newFormatCmd(a),
		newCleanCmd(a),
		newRunCmd(a),
		newStreamCmd(a),
		newVersionCmd(),
	)
	return root
}

// setLogger builds the command logger: text on a terminal, JSON
// otherwise, always on stderr.
func (a *app) setLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	options := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if isTerminal(a.stderr) {
		handler = slog.NewTextHandler(a.stderr, options)
	} else {
		handler = slog.NewJSONHandler(a.stderr, options)
	}
	a.logger = slog.New(handler)
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "regular %s (gs1 v%d)\n", libVersion, stream.Version)
		},
	}
}
