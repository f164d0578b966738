package main

import (
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/linkcheck-service/internal/adapter/chromedp_fetcher"
	"github.com/user/linkcheck-service/internal/adapter/httpfetch"
	"github.com/user/linkcheck-service/internal/adapter/postgres"
	redis_adapter "github.com/user/linkcheck-service/internal/adapter/redis"
	"github.com/user/linkcheck-service/internal/adapter/wayback"
	"github.com/user/linkcheck-service/internal/entity"
	"github.com/user/linkcheck-service/internal/repository"
	"github.com/user/linkcheck-service/internal/usecase"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.openPostgres(cmd.Context())
			if err != nil {
				return err
			}
			return postgres.Migrate(cmd.Context(), pool)
		},
	}
}

func newCollectCmd(a *app) *cobra.Command {
	var (
		startPage int
		maxPages  int
		force     bool
		delay     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Crawl the listing pages and queue newly discovered profile URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			rdb, err := a.openRedis(cmd.Context())
			if err != nil {
				return err
			}
			collector := usecase.NewCollector(
				redis_adapter.NewQueueRepo(rdb),
				redis_adapter.NewVisitedRepo(rdb),
				a.httpClient(),
				a.cfg.ListingBaseURL,
				a.cfg.ProfilePathHint,
				delayOr(delay, a.cfg.CollectDelay),
				a.cfg.DiscoveryExpiry,
			)
			enqueued, err := collector.Run(cmd.Context(), startPage, maxPages, force)
			if err != nil {
				return err
			}
			slog.Info("Collection finished", "enqueued", enqueued)
			return nil
		},
	}
	cmd.Flags().IntVar(&startPage, "start-page", 1, "listing page to start from")
	cmd.Flags().IntVar(&maxPages, "max-pages", 20, "maximum listing pages this run (0 = no cap)")
	cmd.Flags().BoolVar(&force, "force", false, "re-queue profiles even if discovered recently")
	cmd.Flags().DurationVar(&delay, "delay", 0, "inter-request delay (0 = configured default)")
	return cmd
}

func newScrapeCmd(a *app) *cobra.Command {
	var (
		limit   int
		requeue bool
		delay   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Drain the discovery queue into subject and link records",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := a.openPostgres(ctx)
			if err != nil {
				return err
			}
			rdb, err := a.openRedis(ctx)
			if err != nil {
				return err
			}

			var rendered repository.PageFetcher
			if a.cfg.RenderedFetch {
				rendered = chromedp_fetcher.NewFetcher(a.cfg.PageLoadTimeout)
			}

			scraper := usecase.NewScraper(
				redis_adapter.NewQueueRepo(rdb),
				postgres.NewSubjectRepo(pool),
				postgres.NewLinkRepo(pool),
				postgres.NewFailedFetchRepo(pool),
				httpfetch.NewFetcher(a.httpClient()),
				rendered,
				delayOr(delay, a.cfg.ScrapeDelay),
			)

			if requeue {
				n, err := scraper.RequeueDue(ctx, 0)
				if err != nil {
					return err
				}
				slog.Info("Requeued failed fetches", "count", n)
			}

			report, err := scraper.Run(ctx, limit)
			logReport("scrape", report)
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max profiles this run (0 = drain the queue)")
	cmd.Flags().BoolVar(&requeue, "requeue", true, "requeue failed fetches that are due for retry")
	cmd.Flags().DurationVar(&delay, "delay", 0, "inter-request delay (0 = configured default)")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	var (
		limit     int
		force     bool
		preferGet bool
		delay     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run liveness and content checks over unchecked links",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.openPostgres(cmd.Context())
			if err != nil {
				return err
			}
			validator := usecase.NewValidator(
				postgres.NewLinkRepo(pool),
				a.httpClient(),
				delayOr(delay, a.cfg.ValidateDelay),
				preferGet,
			)
			report, err := validator.Run(cmd.Context(), limit, force)
			logReport("validate", report)
			return err
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "max links this run (0 = all eligible)")
	cmd.Flags().BoolVar(&force, "force", false, "re-validate links that were already checked")
	cmd.Flags().BoolVar(&preferGet, "prefer-get", false, "probe with GET instead of HEAD")
	cmd.Flags().DurationVar(&delay, "delay", 0, "inter-request delay (0 = configured default)")
	return cmd
}

func newArchiveCmd(a *app) *cobra.Command {
	var (
		limit      int
		maxRetries int
		delay      time.Duration
	)

	archiverFor := func(cmd *cobra.Command) (*usecase.Archiver, error) {
		pool, err := a.openPostgres(cmd.Context())
		if err != nil {
			return nil, err
		}
		client := wayback.NewClient(a.httpClient(), a.cfg.AvailabilityEndpoint, a.cfg.SaveEndpoint)
		return usecase.NewArchiver(
			postgres.NewLinkRepo(pool),
			client,
			delayOr(delay, a.cfg.ArchiveDelay),
			retriesOr(maxRetries, a.cfg.SubmitMaxRetries),
			a.cfg.SubmitRetryDelay,
		), nil
	}

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Reconcile links against the archive service",
	}
	cmd.PersistentFlags().IntVar(&limit, "limit", 0, "max links this run (0 = all eligible)")
	cmd.PersistentFlags().IntVar(&maxRetries, "max-retries", 0, "submission attempts per link (0 = configured default)")
	cmd.PersistentFlags().DurationVar(&delay, "delay", 0, "inter-request delay (0 = configured default)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "check",
			Short: "Look up snapshot availability for links with unknown archive state",
			RunE: func(cmd *cobra.Command, args []string) error {
				archiver, err := archiverFor(cmd)
				if err != nil {
					return err
				}
				report, err := archiver.CheckBatch(cmd.Context(), limit)
				logReport("archive check", report)
				return err
			},
		},
		&cobra.Command{
			Use:   "submit",
			Short: "Request snapshots for links known to be unarchived",
			RunE: func(cmd *cobra.Command, args []string) error {
				archiver, err := archiverFor(cmd)
				if err != nil {
					return err
				}
				report, err := archiver.SubmitBatch(cmd.Context(), limit)
				logReport("archive submit", report)
				return err
			},
		},
	)
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump subjects and links to CSV and XLSX",
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := a.openPostgres(cmd.Context())
			if err != nil {
				return err
			}
			dir := output
			if dir == "" {
				dir = a.cfg.OutputDir
			}
			exporter := usecase.NewExporter(
				postgres.NewSubjectRepo(pool),
				postgres.NewLinkRepo(pool),
				dir,
			)
			result, err := exporter.Export(cmd.Context())
			if err != nil {
				return err
			}
			slog.Info("Export written",
				"subjects_csv", result.SubjectsCSV,
				"links_csv", result.LinksCSV,
				"workbook", result.Workbook)
			return nil
		},
	}
	cmd.Flags().StringVar(&output, "output", "", "output directory (empty = configured default)")
	return cmd
}

func logReport(stage string, report *entity.Report) {
	if report == nil {
		return
	}
	slog.Info("Run report",
		"stage", stage,
		"total", report.Total,
		"scraped", report.Scraped,
		"active", report.Active,
		"inactive", report.Inactive,
		"matched", report.Matched,
		"archived", report.Archived,
		"not_archived", report.NotArchived,
		"submitted", report.Submitted,
		"errors", len(report.Errors),
	)
	for _, e := range report.Errors {
		slog.Warn("Record error", "id", e.ID, "url", e.URL, "message", e.Message)
	}
}

func delayOr(flag, fallback time.Duration) time.Duration {
	if flag > 0 {
		return flag
	}
	return fallback
}

func retriesOr(flag, fallback int) int {
	if flag > 0 {
		return flag
	}
	return fallback
}
