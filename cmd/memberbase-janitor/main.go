// The janitor runs the periodic maintenance jobs: deactivating lapsed
// subscriptions and pricing plans, purging dead API tokens, and trimming
// old seen notifications. It shares the database with the API server but
// runs as a separate process so a slow sweep never competes with request
// traffic.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/memberbase/memberbase/pkg/auth"
	"github.com/memberbase/memberbase/pkg/notifications"
	"github.com/memberbase/memberbase/pkg/plans"
	"github.com/memberbase/memberbase/pkg/storage"
	"github.com/memberbase/memberbase/pkg/subscriptions"
)

var (
	dbURL           = flag.String("db-url", getEnv("MEMBERBASE_POSTGRES_URL", "postgres://localhost/memberbase?sslmode=disable"), "PostgreSQL connection URL")
	expireSchedule  = flag.String("expire-schedule", "5 0 * * *", "Cron schedule for the subscription expiry sweep (default: 00:05 UTC)")
	purgeSchedule   = flag.String("purge-schedule", "20 0 * * 0", "Cron schedule for the token purge (default: Sunday 00:20 UTC)")
	tokenRetention  = flag.Duration("token-retention", 30*24*time.Hour, "How long expired and revoked tokens are kept before purging")
	seenRetention   = flag.Duration("seen-retention", 30*24*time.Hour, "How long seen notifications are kept before purging")
	runOnce         = flag.Bool("run-once", false, "Run every job once and exit (for testing)")
	shutdownTimeout = flag.Duration("shutdown-timeout", 30*time.Second, "How long to wait for running jobs on shutdown")
)

func main() {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg := storage.DefaultConfig()
	cfg.DatabaseURL = *dbURL
	db, err := storage.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	subService := subscriptions.NewService(db)
	planService := plans.NewService(db)
	notificationService := notifications.NewService(db)
	authStore := auth.NewStore(db)

	expireJob := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		now := time.Now().UTC()
		n, err := subService.ExpireLapsed(ctx, now)
		if err != nil {
			log.WithError(err).Error("Subscription expiry sweep failed")
			return
		}
		log.WithField("expired", n).Info("Subscription expiry sweep completed")

		n, err = planService.ExpireLapsed(ctx, now)
		if err != nil {
			log.WithError(err).Error("Pricing plan expiry sweep failed")
			return
		}
		log.WithField("expired", n).Info("Pricing plan expiry sweep completed")
	}

	purgeJob := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		now := time.Now().UTC()
		n, err := authStore.PurgeExpiredTokens(ctx, now.Add(-*tokenRetention))
		if err != nil {
			log.WithError(err).Error("Token purge failed")
			return
		}
		log.WithField("purged", n).Info("Token purge completed")

		n, err = notificationService.PurgeSeen(ctx, now.Add(-*seenRetention))
		if err != nil {
			log.WithError(err).Error("Notification purge failed")
			return
		}
		log.WithField("purged", n).Info("Notification purge completed")
	}

	if *runOnce {
		expireJob()
		purgeJob()
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*expireSchedule, expireJob); err != nil {
		log.Fatalf("Failed to schedule expiry sweep: %v", err)
	}
	if _, err := c.AddFunc(*purgeSchedule, purgeJob); err != nil {
		log.Fatalf("Failed to schedule token purge: %v", err)
	}

	c.Start()
	log.WithFields(logrus.Fields{
		"expire_schedule": *expireSchedule,
		"purge_schedule":  *purgeSchedule,
	}).Info("Janitor started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info("Shutting down")

	// Let any in-flight job finish before exiting.
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(*shutdownTimeout):
		log.Warn("Timed out waiting for running jobs")
	}
	log.Info("Janitor stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
