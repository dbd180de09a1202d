package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/studyhub/adserver/internal/config"
	"github.com/studyhub/adserver/internal/db"
	"github.com/studyhub/adserver/internal/repositories"
	"go.uber.org/zap"
)

// The worker runs the periodic housekeeping the request path does not:
// failing stale pending deposits, re-activating depleted campaigns whose
// budget was raised, and pruning old metric rollups.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	transactionRepo := repositories.NewTransactionRepo(pool)
	campaignRepo := repositories.NewCampaignRepo(pool)
	metricsRepo := repositories.NewMetricsRepo(pool)

	log.Info("worker started")

	expireTicker := time.NewTicker(10 * time.Minute)
	reactivateTicker := time.NewTicker(time.Minute)
	pruneTicker := time.NewTicker(24 * time.Hour)
	defer expireTicker.Stop()
	defer reactivateTicker.Stop()
	defer pruneTicker.Stop()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-expireTicker.C:
			n, err := transactionRepo.ExpireStalePending(ctx, cfg.PendingDepositTTL)
			if err != nil {
				log.Error("failed to expire stale transactions", zap.Error(err))
			} else if n > 0 {
				log.Info("expired stale pending transactions", zap.Int64("count", n))
			}

		case <-reactivateTicker.C:
			n, err := campaignRepo.ReactivateFunded(ctx)
			if err != nil {
				log.Error("failed to reactivate funded campaigns", zap.Error(err))
			} else if n > 0 {
				log.Info("reactivated funded campaigns", zap.Int64("count", n))
			}

		case <-pruneTicker.C:
			cutoff := time.Now().AddDate(0, 0, -cfg.MetricsRetentionDays)
			n, err := metricsRepo.PruneOlderThan(ctx, cutoff)
			if err != nil {
				log.Error("failed to prune old metrics", zap.Error(err))
			} else if n > 0 {
				log.Info("pruned old metric rows", zap.Int64("count", n))
			}
		}
	}
}
