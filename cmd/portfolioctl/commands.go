package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"portfolio-backend/internal/analyses"
	"portfolio-backend/internal/bootstrap"
	"portfolio-backend/internal/consolidation"
	"portfolio-backend/internal/features"
	"portfolio-backend/internal/shared/storage/db"
)

func newServeCmd(d deps, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			app, err := d.build(ctx, opts.cfg)
			if err != nil {
				return err
			}
			return bootstrap.Serve(ctx, app)
		},
	}
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sqlDB, err := db.Connect(ctx, opts.cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
			if err != nil {
				return err
			}
			defer sqlDB.Close()
			if status {
				return db.MigrationStatus(ctx, sqlDB)
			}
			if err := db.RunMigrations(ctx, sqlDB); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "print migration status instead of applying")
	return cmd
}

type analyzeResult struct {
	Job             analyses.Job                   `json:"job"`
	Recommendations []consolidation.Recommendation `json:"recommendations"`
}

func newAnalyzeCmd(d deps, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <company>",
		Short: "Run a redundancy analysis and print its recommendations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withApp(ctx, d, opts, func(app *bootstrap.App) error {
				job, err := app.AnalysesService.Start(ctx, args[0])
				if err != nil {
					return err
				}
				text := opts.output == "text"
				final, err := follow(ctx, app.AnalysesService, job.ID, text, cmd.OutOrStdout())
				if err != nil {
					return err
				}

				var recs []consolidation.Recommendation
				if final.Status == analyses.StatusCompleted {
					recs, err = app.Recommendations.ListByCompany(ctx, final.CompanyID)
					if err != nil {
						return err
					}
				}
				if !text {
					return printJSON(cmd.OutOrStdout(), analyzeResult{Job: final, Recommendations: recs})
				}
				printRecommendations(cmd.OutOrStdout(), final, recs)
				if final.Status != analyses.StatusCompleted {
					return fmt.Errorf("analysis %s: %s", final.Status, final.Message)
				}
				return nil
			})
		},
	}
}

// follow prints new activity entries until the job reaches a terminal status. An interrupt
// requests cancellation and keeps following so the final snapshot is still reported.
func follow(ctx context.Context, svc *analyses.Service, jobID string, text bool, w io.Writer) (analyses.Job, error) {
	updates, unsubscribe, err := svc.Subscribe(context.WithoutCancel(ctx), jobID)
	if err != nil {
		return analyses.Job{}, err
	}
	defer unsubscribe()

	var last analyses.Job
	printed := 0
	done := ctx.Done()
	for {
		select {
		case job, ok := <-updates:
			if !ok {
				return svc.Get(context.WithoutCancel(ctx), jobID)
			}
			last = job
			if text {
				printed = printActivity(w, job, printed)
			}
			if job.Status.Terminal() {
				return last, nil
			}
		case <-done:
			done = nil
			if _, err := svc.Cancel(context.WithoutCancel(ctx), jobID); err != nil {
				return last, err
			}
		}
	}
}

func printActivity(w io.Writer, job analyses.Job, printed int) int {
	if printed > len(job.ActivityLog) {
		printed = 0
	}
	for _, entry := range job.ActivityLog[printed:] {
		fmt.Fprintf(w, "[%3d%%] %-7s %s\n", job.Progress, entry.Type, entry.Message)
	}
	return len(job.ActivityLog)
}

func printRecommendations(w io.Writer, job analyses.Job, recs []consolidation.Recommendation) {
	fmt.Fprintf(w, "\njob %s %s: %d/%d software, %d overlaps, %d recommendations\n",
		job.ID, job.Status, job.ProcessedSoftware, job.TotalSoftware, job.OverlapsFound, job.RecommendationsGenerated)
	var total float64
	for _, rec := range recs {
		total += rec.AnnualSavings
		fmt.Fprintf(w, "\n%d. %s: keep %s, remove", rec.Rank, rec.ClusterCategory, rec.Keep.Name)
		for _, r := range rec.Remove {
			fmt.Fprintf(w, " %s", r.Name)
		}
		fmt.Fprintf(w, "\n   savings %.2f, effort %s, risk %s, confidence %.2f\n",
			rec.AnnualSavings, rec.MigrationEffort, rec.BusinessRisk, rec.ConfidenceScore)
	}
	if len(recs) > 0 {
		fmt.Fprintf(w, "\ntotal annual savings %.2f\n", total)
	}
}

func newPreviewCmd(d deps, opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <software-id>",
		Short: "Show the features that would be extracted for one software asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), d, opts, func(app *bootstrap.App) error {
				tags, err := app.FeaturesService.Preview(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if opts.output == "json" {
					return printJSON(cmd.OutOrStdout(), tags)
				}
				for _, tag := range tags {
					fmt.Fprintf(cmd.OutOrStdout(), "%-28s %-24s %.2f %s\n", tag.Name, tag.Category, tag.Confidence, tag.Source)
				}
				return nil
			})
		},
	}
}

func newExtractCmd(d deps, opts *rootOptions) *cobra.Command {
	var extractOpts features.Options
	cmd := &cobra.Command{
		Use:   "extract <company>",
		Short: "Tag every active software asset of a company without running an analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), d, opts, func(app *bootstrap.App) error {
				summary, err := app.FeaturesService.ExtractForCompany(cmd.Context(), args[0], extractOpts)
				if err != nil {
					return err
				}
				if opts.output == "json" {
					return printJSON(cmd.OutOrStdout(), summary)
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "processed %d/%d software, %d tags written, %d filtered\n",
					summary.SoftwareProcessed, summary.SoftwareTotal, summary.TagsWritten, summary.TagsFiltered)
				for _, f := range summary.Failures {
					fmt.Fprintf(w, "  failed %s (%s): %s\n", f.Name, f.Code, f.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&extractOpts.MinConfidence, "min-confidence", 0, "drop extracted tags below this confidence")
	cmd.Flags().BoolVar(&extractOpts.OverwriteExisting, "overwrite", false, "replace previously extracted tags")
	return cmd
}
