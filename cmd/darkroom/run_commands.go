package main

import (
	"context"

	"github.com/spf13/cobra"

	"darkroom/internal/workflow"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process [gallery...]",
		Short: "Generate renditions and metadata records for source images",
		Long:  "Processes source images into sized renditions plus per-image JSON records. Consolidated gallery records and the site index are left untouched; run 'darkroom galleries' or 'darkroom refresh' to rebuild those.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(ctx, cmd, args, func(mgr *workflow.Manager, runCtx context.Context, galleries []string) (*workflow.Summary, error) {
				return mgr.ProcessImages(runCtx, galleries)
			})
		},
	}
}

func newGalleriesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "galleries [gallery...]",
		Short: "Rebuild consolidated gallery records and the site index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(ctx, cmd, args, func(mgr *workflow.Manager, runCtx context.Context, galleries []string) (*workflow.Summary, error) {
				return mgr.Aggregate(runCtx, galleries)
			})
		},
	}
}

func newRefreshCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [gallery...]",
		Short: "Run the full publishing pipeline",
		Long:  "Processes images, rebuilds consolidated gallery records and rewrites the site index in one pass. Unchanged images are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(ctx, cmd, args, func(mgr *workflow.Manager, runCtx context.Context, galleries []string) (*workflow.Summary, error) {
				return mgr.Run(runCtx, galleries)
			})
		},
	}
}

func runPipeline(ctx *commandContext, cmd *cobra.Command, galleries []string, fn func(*workflow.Manager, context.Context, []string) (*workflow.Summary, error)) error {
	mgr, err := ctx.manager()
	if err != nil {
		return err
	}

	summary, err := fn(mgr, cmd.Context(), galleries)
	if err != nil {
		return err
	}

	printSummary(cmd.OutOrStdout(), summary)
	ctx.exitCode = summary.ExitCode()
	return nil
}
