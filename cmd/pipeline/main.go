package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/user/linkcheck-service/pkg/config"
	"github.com/user/linkcheck-service/pkg/httpclient"
	"github.com/user/linkcheck-service/pkg/logger"
	"github.com/user/linkcheck-service/pkg/metrics"
)

// app carries shared wiring for the subcommands. Connections are opened on
// demand: the validator has no use for redis, the collector none for
// postgres.
type app struct {
	cfg  *config.Config
	pool *pgxpool.Pool
	rdb  *redis.Client
}

func (a *app) openPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	if a.pool != nil {
		return a.pool, nil
	}
	pool, err := pgxpool.New(ctx, a.cfg.PostgresDSN())
	if err != nil {
		return nil, err
	}
	slog.Info("PostgreSQL connection pool established")
	a.pool = pool
	return pool, nil
}

func (a *app) openRedis(ctx context.Context) (*redis.Client, error) {
	if a.rdb != nil {
		return a.rdb, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.cfg.RedisAddr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, err
	}
	slog.Info("Redis connection established")
	a.rdb = rdb
	return rdb, nil
}

func (a *app) httpClient() *httpclient.Client {
	return httpclient.New(httpclient.Options{
		MaxAttempts: a.cfg.HTTPMaxAttempts,
		RetryDelay:  a.cfg.HTTPRetryDelay,
		Timeout:     a.cfg.RequestTimeout,
		UserAgent:   a.cfg.UserAgent,
	})
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var metricsAddr string

	root := &cobra.Command{
		Use:           "pipeline",
		Short:         "Reference-link reconciliation pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.cfg = config.Load()
			logger.Init(os.Stdout, logger.ParseLevel(a.cfg.LogLevel))
			metrics.Init()
			if metricsAddr != "" {
				go serveMetrics(metricsAddr)
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "",
		"address to expose prometheus metrics on while the run lasts (empty = off)")

	root.AddCommand(
		newMigrateCmd(a),
		newCollectCmd(a),
		newScrapeCmd(a),
		newValidateCmd(a),
		newArchiveCmd(a),
		newExportCmd(a),
	)
	return root
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	slog.Info("Serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("Metrics listener failed", "addr", addr, "error", err)
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("Pipeline command failed", "error", err)
		os.Exit(1)
	}
}
