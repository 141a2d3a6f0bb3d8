package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/baseline"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/config"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/intake"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/logging"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/progress"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/report"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/scan"
	"github.com/TheodorNEngoy/mcp-safety-scanner/internal/watch"
)

func newWatchCmd() *cobra.Command {
	var (
		f        commonFlags
		debounce time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch [path]",
		Short: "Rescan whenever files under path change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return usageError("Failed to load config: %v", err)
			}
			f.applyConfig(cmd, cfg)
			format, err := f.resolveFormat()
			if err != nil {
				return err
			}
			if err := f.validate(); err != nil {
				return err
			}
			rules, err := f.resolveRules()
			if err != nil {
				return err
			}

			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			var known baseline.Set
			if f.baseline != "" {
				if known, err = baseline.Load(f.baseline); err != nil {
					return usageError("Failed to load baseline: %v", err)
				}
			}

			stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
			log := logging.NewTo(stderr, f.verbose)
			defer func() { _ = log.Sync() }()

			extra := splitList(f.ignoreDirs)
			opts := scan.Options{
				Root:            root,
				ExtraIgnoreDirs: extra,
				IncludeTests:    f.includeTests,
				NoIgnoreFile:    f.noIgnoreFile,
				MaxFileBytes:    f.maxFileBytes,
				Workers:         f.workers,
				Rules:           rules,
				Sink:            progress.NewLogSink(log),
				Logger:          log,
			}
			color := f.useColor(stdout)

			err = watch.Run(cmd.Context(), watch.Options{
				Root:       root,
				IgnoreDirs: intake.IgnoreDirSet(extra),
				Debounce:   debounce,
				Logger:     log,
				Scan: func(ctx context.Context) error {
					result, err := scan.Run(ctx, opts)
					if err != nil {
						return err
					}
					delta := baseline.Diff(result.Findings, known)
					if known != nil {
						result.Findings = delta.New
					}
					fmt.Fprintf(stderr, "[%s] rescanned %s\n", time.Now().Format("15:04:05"), result.Root)
					return report.Render(stdout, format, result, report.Options{
						Color:      color,
						Rules:      rules,
						Suppressed: delta.Known,
					})
				},
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				return usageError("Failed to watch: %v", err)
			}
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "Quiet period after a change before rescanning")
	return cmd
}
