package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/repository"
	"github.com/catalyst-eval/catalyst-scheduler-api/internal/service"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/config"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/database"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/jobs"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/logger"
)

// Generates the daily schedule summary for a date and sends it to the
// configured recipients. Intended to run from cron after close of intake.
func main() {
	date := flag.String("date", "", "date to summarise, formatted YYYY-MM-DD (defaults to today)")
	printOnly := flag.Bool("print", false, "print the summary as JSON instead of dispatching it")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	loc, err := time.LoadLocation(cfg.Scheduler.TimeZone)
	if err != nil {
		loc = time.UTC
	}
	target := *date
	if target == "" {
		target = time.Now().In(loc).Format("2006-01-02")
	}

	officeRepo := repository.NewOfficeRepository(db)
	clinicianRepo := repository.NewClinicianRepository(db)
	ruleRepo := repository.NewAssignmentRuleRepository(db)
	preferenceRepo := repository.NewClientPreferenceRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db, loc)

	catalogSvc := service.NewCatalogService(officeRepo, clinicianRepo, ruleRepo, preferenceRepo, nil, logr)
	summarySvc := service.NewDailySummaryService(service.DailySummaryConfig{
		SlotsPerOfficeDay:   cfg.Scheduler.SlotsPerOfficeDay,
		HighUtilization:     cfg.Scheduler.HighUtilization,
		CriticalUtilization: cfg.Scheduler.CriticalUtilization,
		TimeZone:            cfg.Scheduler.TimeZone,
	}, logr)
	notificationSvc := service.NewNotificationService(nil, cfg.Notifications.Recipients, cfg.Notifications.Enabled, logr)
	reportSvc := service.NewDailyReportService(
		appointmentRepo, preferenceRepo, catalogSvc, summarySvc, notificationSvc,
		nil, service.NewMetricsService(), logr, jobs.QueueConfig{},
	)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if *printOnly {
		summary, err := reportSvc.GenerateSummary(ctx, target)
		if err != nil {
			logr.Sugar().Fatalw("summary generation failed", "date", target, "error", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			logr.Sugar().Fatalw("failed to print summary", "error", err)
		}
		return
	}

	if err := reportSvc.Dispatch(ctx, target); err != nil {
		logr.Sugar().Fatalw("summary dispatch failed", "date", target, "error", err)
	}
	logr.Sugar().Infow("daily summary dispatched", "date", target)
}
