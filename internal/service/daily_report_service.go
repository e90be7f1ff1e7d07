package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
	appErrors "github.com/catalyst-eval/catalyst-scheduler-api/pkg/errors"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/export"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/jobs"
)

const summaryCachePrefix = "summary:daily:"

type appointmentDateLister interface {
	ListForDate(ctx context.Context, date string) ([]models.AppointmentRecord, error)
}

type clientPreferenceLister interface {
	List(ctx context.Context) ([]models.ClientPreference, error)
}

// DailyReportService builds daily schedule summaries, renders exports and
// dispatches them through the notification sink, optionally via the
// background job queue.
type DailyReportService struct {
	appointments appointmentDateLister
	preferences  clientPreferenceLister
	catalog      *CatalogService
	aggregator   *DailySummaryService
	notifier     *NotificationService
	cache        *CacheService
	metrics      *MetricsService
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	logger       *zap.Logger
	queue        *jobs.Queue
}

// NewDailyReportService wires reporting dependencies.
func NewDailyReportService(
	appointments appointmentDateLister,
	preferences clientPreferenceLister,
	catalog *CatalogService,
	aggregator *DailySummaryService,
	notifier *NotificationService,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
	queueCfg jobs.QueueConfig,
) *DailyReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DailyReportService{
		appointments: appointments,
		preferences:  preferences,
		catalog:      catalog,
		aggregator:   aggregator,
		notifier:     notifier,
		cache:        cache,
		metrics:      metrics,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		logger:       logger,
	}
	queueCfg.Logger = logger
	s.queue = jobs.NewQueue("daily-report", s.handleDispatchJob, queueCfg)
	return s
}

// Start begins background dispatch workers.
func (s *DailyReportService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the dispatch workers.
func (s *DailyReportService) Stop() {
	s.queue.Stop()
}

// GenerateSummary builds (or retrieves from cache) the summary for a date.
func (s *DailyReportService) GenerateSummary(ctx context.Context, date string) (*models.DailyScheduleSummary, error) {
	if _, err := time.Parse(dateLayout, date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted YYYY-MM-DD")
	}

	cacheKey := summaryCachePrefix + date
	if s.cache.Enabled() {
		var cached models.DailyScheduleSummary
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	start := time.Now()
	snapshot, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	appointments, err := s.appointments.ListForDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointments")
	}
	preferences, err := s.preferences.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load client preferences")
	}
	prefsByClient := make(map[string]*models.ClientPreference, len(preferences))
	for i := range preferences {
		prefsByClient[preferences[i].ClientID] = &preferences[i]
	}

	summary := s.aggregator.GenerateDailySummary(date, snapshot.Offices, appointments, snapshot.Clinicians, prefsByClient)
	s.metrics.ObserveSummaryGeneration(time.Since(start))

	if s.cache.Enabled() {
		if err := s.cache.Set(ctx, cacheKey, summary, 0); err != nil {
			s.logger.Warn("failed to cache daily summary", zap.String("date", date), zap.Error(err))
		}
	}
	return summary, nil
}

// ExportCSV renders the day's appointments as CSV.
func (s *DailyReportService) ExportCSV(ctx context.Context, date string) ([]byte, error) {
	summary, err := s.GenerateSummary(ctx, date)
	if err != nil {
		return nil, err
	}
	data, err := s.csv.Render(appointmentDataset(summary))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return data, nil
}

// ExportPDF renders the summary as a tabular PDF report.
func (s *DailyReportService) ExportPDF(ctx context.Context, date string) ([]byte, error) {
	summary, err := s.GenerateSummary(ctx, date)
	if err != nil {
		return nil, err
	}
	data, err := s.pdf.Render(appointmentDataset(summary), fmt.Sprintf("Daily schedule %s", date))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return data, nil
}

// Dispatch generates the summary and sends it through the notification sink.
func (s *DailyReportService) Dispatch(ctx context.Context, date string) error {
	summary, err := s.GenerateSummary(ctx, date)
	if err != nil {
		return err
	}
	pdf, err := s.ExportPDF(ctx, date)
	if err != nil {
		s.logger.Warn("summary pdf rendering failed, sending without attachment", zap.Error(err))
		pdf = nil
	}
	return s.notifier.SendDailySummary(ctx, summary, pdf)
}

// EnqueueDispatch schedules an asynchronous dispatch for the date.
func (s *DailyReportService) EnqueueDispatch(date string) error {
	return s.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "daily-summary-dispatch",
		Payload: date,
	})
}

func (s *DailyReportService) handleDispatchJob(ctx context.Context, job jobs.Job) error {
	date, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", job.Payload)
	}
	return s.Dispatch(ctx, date)
}

// Invalidate drops the cached summary for the date after writes.
func (s *DailyReportService) Invalidate(ctx context.Context, date string) {
	if !s.cache.Enabled() {
		return
	}
	if err := s.cache.Invalidate(ctx, summaryCachePrefix+date); err != nil {
		s.logger.Warn("failed to invalidate summary cache", zap.String("date", date), zap.Error(err))
	}
}

func appointmentDataset(summary *models.DailyScheduleSummary) export.Dataset {
	rows := make([]map[string]string, 0, len(summary.Appointments))
	for _, appt := range summary.Appointments {
		rows = append(rows, map[string]string{
			"Time":      fmt.Sprintf("%s - %s", appt.StartTime.Format("15:04"), appt.EndTime.Format("15:04")),
			"Client":    appt.ClientName,
			"Clinician": appt.ClinicianName,
			"Office":    appt.OfficeID,
			"Type":      appt.SessionType,
			"Status":    appt.Status,
		})
	}
	return export.Dataset{
		Headers: []string{"Time", "Client", "Clinician", "Office", "Type", "Status"},
		Rows:    rows,
	}
}
