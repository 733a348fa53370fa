package main

import (
	"github.com/spf13/cobra"

	"github.com/Neumenon/regular/codec"
	"github.com/Neumenon/regular/job"
	"github.com/Neumenon/regular/stream"
)

func newStreamCmd(a *app) *cobra.Command {
	var (
		matchPath string
		tmplPath  string
		symbols   []string
		all       bool
		clean     bool
		withCRC   bool
		maxSize   int
	)
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Run a job over GS1-T doc frames from stdin, writing result frames to stdout",
		Long: "Read GS1-T frames from stdin. Every doc frame is matched against --match;\n" +
			"with --template the bindings are formatted into a result frame, without it\n" +
			"they are written as a bindings frame. Failures become err frames and the\n" +
			"stream continues. Output frames carry the fingerprint of their document\n" +
			"as base=blake3:<hex>.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j := &job.Job{Name: "stream", Symbols: job.ToSymbols(symbols), All: all, Clean: clean}
			var err error
			if j.Match, err = codec.ReadTemplateFile(matchPath, nil); err != nil {
				return err
			}
			if tmplPath != "" {
				if j.Format, err = codec.ReadTemplateFile(tmplPath, nil); err != nil {
					return err
				}
			}
			if err := j.Validate(); err != nil {
				return err
			}

			w := stream.NewWriter(cmd.OutOrStdout())
			if withCRC {
				w = stream.NewWriterWithCRC(cmd.OutOrStdout())
			}
			r := stream.NewReader(cmd.InOrStdin(), stream.WithMaxPayload(maxSize))
			p := stream.NewProcessor(j, w, a.logger.With("command", "stream"))
			if err := p.Run(cmd.Context(), r); err != nil {
				return err
			}
			a.logger.Debug("stream done", "sids", len(p.Cursor().AllSIDs()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&matchPath, "match", "m", "", "Template file matched against each document")
	cmd.Flags().StringVarP(&tmplPath, "template", "t", "", "Output template file")
	cmd.Flags().StringSliceVarP(&symbols, "symbol", "s", nil, "Only bind these symbols (without --template)")
	cmd.Flags().BoolVar(&all, "all", false, "Write every result as a list instead of requiring exactly one")
	cmd.Flags().BoolVar(&clean, "clean", false, "Strip unresolved placeholders from results")
	cmd.Flags().BoolVar(&withCRC, "crc", false, "Add a CRC-32 to every output frame")
	cmd.Flags().IntVar(&maxSize, "max-payload", stream.MaxPayloadSize, "Largest accepted payload in bytes")
	_ = cmd.MarkFlagRequired("match")
	return cmd
}
