package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/Danieloutliers/loanbook/pkg/config"
	"github.com/Danieloutliers/loanbook/pkg/store"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Initialize the in-memory portfolio
	portfolio := store.NewMemoryStore(cfg.Settings())
	server := NewServer(portfolio, logger)

	// Loan statuses depend on the calendar, not only on payment writes, so a
	// scheduled sweep keeps overdue/defaulted classifications current.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.SweepSchedule, func() {
		portfolio.ResyncLoanStatuses()
		logger.Info("loan status sweep complete")
	}); err != nil {
		logger.Fatalf("Failed to schedule status sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	addr := fmt.Sprintf(":%s", cfg.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      server.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Infof("Starting server on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
