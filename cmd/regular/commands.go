package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Neumenon/regular/codec"
	"github.com/Neumenon/regular/job"
	"github.com/Neumenon/regular/regular"
)

func newMatchCmd(a *app) *cobra.Command {
	var (
		tmplPath string
		dataPath string
		symbols  []string
		single   bool
	)
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Print the binding sets of a template matched against data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := codec.ReadTemplateFile(tmplPath, nil)
			if err != nil {
				return err
			}
			j := &job.Job{Name: "match", Match: tmpl, Symbols: job.ToSymbols(symbols), Single: single}
			return a.runOne(cmd, j, dataPath)
		},
	}
	cmd.Flags().StringVarP(&tmplPath, "template", "t", "", "Template file to match")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", `Data file ("-" for stdin)`)
	cmd.Flags().StringSliceVarP(&symbols, "symbol", "s", nil, "Only bind these symbols (repeatable)")
	cmd.Flags().BoolVar(&single, "single", false, "Require exactly one binding set and print it as a map")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}

func newFormatCmd(a *app) *cobra.Command {
	var (
		tmplPath     string
		matchPath    string
		dataPath     string
		bindingsPath string
		all          bool
		clean        bool
	)
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Format a template from a match or from stored binding sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j := &job.Job{Name: "format", All: all, Clean: clean}
			var err error
			if j.Format, err = codec.ReadTemplateFile(tmplPath, nil); err != nil {
				return err
			}
			if bindingsPath != "" {
				if j.Bindings, err = codec.ReadBindingsFile(bindingsPath); err != nil {
					return err
				}
			} else if j.Match, err = codec.ReadTemplateFile(matchPath, nil); err != nil {
				return err
			}
			return a.runOne(cmd, j, dataPath)
		},
	}
	cmd.Flags().StringVarP(&tmplPath, "template", "t", "", "Output template file")
	cmd.Flags().StringVarP(&matchPath, "match", "m", "", "Template file matched against --data")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", `Data file ("-" for stdin)`)
	cmd.Flags().StringVarP(&bindingsPath, "bindings", "b", "", "Binding sets file, instead of --match and --data")
	cmd.Flags().BoolVar(&all, "all", false, "Print every result as a list instead of requiring exactly one")
	cmd.Flags().BoolVar(&clean, "clean", false, "Strip unresolved placeholders from the output")
	_ = cmd.MarkFlagRequired("template")
	cmd.MarkFlagsRequiredTogether("match", "data")
	cmd.MarkFlagsMutuallyExclusive("bindings", "match")
	cmd.MarkFlagsOneRequired("bindings", "match")
	return cmd
}

func newCleanCmd(a *app) *cobra.Command {
	var (
		tmplPath  string
		dropNulls bool
	)
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Strip unresolved placeholders from a template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := codec.ReadTemplateFile(tmplPath, nil)
			if err != nil {
				return err
			}
			out, err := regular.CleanWithOpts(tmpl, regular.CleanOpts{DropNulls: dropNulls})
			if err != nil {
				return err
			}
			return a.write(cmd.OutOrStdout(), out, a.outputFormat)
		},
	}
	cmd.Flags().StringVarP(&tmplPath, "template", "t", "", "Template file")
	cmd.Flags().BoolVar(&dropNulls, "drop-nulls", false, "Also remove map entries whose value is null")
	_ = cmd.MarkFlagRequired("template")
	return cmd
}

// runOne runs j over the data at dataPath and writes the output.
func (a *app) runOne(cmd *cobra.Command, j *job.Job, dataPath string) error {
	if err := j.Validate(); err != nil {
		return err
	}
	var data *regular.Value
	if j.NeedsData() {
		var err error
		if data, err = a.readData(cmd.InOrStdin(), dataPath); err != nil {
			return err
		}
	}
	out, err := j.Run(data)
	if err != nil {
		return err
	}
	a.logger.Debug("job done", "job", j.Name, "fingerprint", regular.Fingerprint(out).Short())
	return a.write(cmd.OutOrStdout(), out, a.outputFormat)
}

// readData reads a data file, or stdin for "-".
func (a *app) readData(stdin io.Reader, path string) (*regular.Value, error) {
	if path != "-" {
		return codec.ReadFile(path)
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	raw, err = codec.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("stdin: %w", err)
	}
	f, err := codec.ParseFormat(a.inputFormat)
	if err != nil {
		return nil, err
	}
	v, err := codec.Decode(raw, f)
	if err != nil {
		return nil, fmt.Errorf("stdin: %w", err)
	}
	return v, nil
}

// write encodes v in the named format.
func (a *app) write(w io.Writer, v *regular.Value, format string) error {
	f, err := codec.ParseFormat(format)
	if err != nil {
		return err
	}
	data, err := codec.Encode(v, f, codec.EncodeOpts{Pretty: a.pretty})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
