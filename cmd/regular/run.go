package main

import (
	"bytes"
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Neumenon/regular/codec"
	"github.com/Neumenon/regular/config"
	"github.com/Neumenon/regular/job"
	"github.com/Neumenon/regular/regular"
)

func newRunCmd(a *app) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the jobs of a config file concurrently",
		Long: "Run the jobs of a config file concurrently. The file comes from --config\n" +
			"or the " + config.EnvVar + " environment variable. Output of jobs without an\n" +
			"output file is written to stdout in job order.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg *config.Config
			var err error
			if configPath != "" {
				cfg, err = config.LoadFile(configPath)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("log-level") {
				if err := a.setLogger(cfg.LogLevel); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("output") {
				cfg.OutputFormat = a.outputFormat
			}
			return a.runJobs(cmd, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Config file (default: $"+config.EnvVar+")")
	return cmd
}

// runJobs runs every job with at most cfg.Concurrency at once. The first
// failure cancels jobs that have not started yet.
func (a *app) runJobs(cmd *cobra.Command, cfg *config.Config) error {
	limit := cfg.Concurrency
	if limit == 0 {
		limit = runtime.NumCPU()
	}

	outputs := make([][]byte, len(cfg.Jobs))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(limit)

	for i, jc := range cfg.Jobs {
		i, jc := i, jc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := a.runJob(ctx, cfg, jc)
			if err != nil {
				return fmt.Errorf("job %s: %w", jc.Name, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	for _, out := range outputs {
		if _, err := w.Write(out); err != nil {
			return err
		}
	}
	return nil
}

// runJob runs one job. Output for stdout is returned; output for a file
// is written and nil is returned.
func (a *app) runJob(ctx context.Context, cfg *config.Config, jc config.Job) ([]byte, error) {
	start := time.Now()
	logger := a.logger.With("job", jc.Name)

	j, err := job.Load(jc, nil)
	if err != nil {
		return nil, err
	}
	var data *regular.Value
	if j.NeedsData() {
		if data, err = codec.ReadFile(jc.Data); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := j.Run(data)
	if err != nil {
		logger.Warn("job failed", "duration", time.Since(start), "error", err)
		return nil, err
	}
	logger.Info("job done", "duration", time.Since(start), "results", resultCount(out))

	if jc.Output != "" {
		return nil, codec.WriteFile(jc.Output, out, codec.EncodeOpts{Pretty: a.pretty})
	}
	f, err := cfg.JobFormat(jc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := a.write(&buf, out, string(f)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// resultCount is the number of results a job wrote, for logs.
func resultCount(v *regular.Value) int {
	if v.Kind() == regular.KindList {
		return v.Len()
	}
	return 1
}
