package timer

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/parkspot/internal/app/domain/notify"
	"github.com/FACorreiaa/parkspot/internal/app/models"
	"github.com/FACorreiaa/parkspot/internal/app/observability/metrics"
)

// maxConcurrentSends bounds the push fan-out per due timer.
const maxConcurrentSends = 16

// ShareSweeper is the housekeeping hook run after each scheduler pass.
type ShareSweeper interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionReader is the narrow view of the session store this service needs.
type SessionReader interface {
	GetSession(ctx context.Context, sessionID uuid.UUID) (models.ParkingSession, error)
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service defines the business logic contract for reminder timers.
//
// Run implements the periodic scheduler pass. Delivery is at-least-once: if
// the batched mark-fired update fails after pushes went out, the timers stay
// scheduled and the next invocation sends again. Duplicate notifications are
// the accepted failure mode; double-firing in storage is not, and is ruled
// out by the status gate in the due-set and mark-fired queries.
type Service interface {
	Run(ctx context.Context) (models.RunReport, error)
	CreateTimer(ctx context.Context, callerID, sessionID uuid.UUID, notifyAt time.Time, bufferSeconds int) (*models.Timer, error)
}

// ServiceImpl provides the implementation for Service.
type ServiceImpl struct {
	logger     *zap.Logger
	repo       Repository
	sessions   SessionReader
	devices    notify.DeviceRepository
	dispatcher notify.Dispatcher
	shares     ShareSweeper
}

// NewService creates a new timer scheduler service instance.
func NewService(repo Repository, sessions SessionReader, devices notify.DeviceRepository, dispatcher notify.Dispatcher, shares ShareSweeper, logger *zap.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:     logger,
		repo:       repo,
		sessions:   sessions,
		devices:    devices,
		dispatcher: dispatcher,
		shares:     shares,
	}
}

// CreateTimer schedules a one-shot reminder for a session the caller owns.
func (s *ServiceImpl) CreateTimer(ctx context.Context, callerID, sessionID uuid.UUID, notifyAt time.Time, bufferSeconds int) (*models.Timer, error) {
	ctx, span := otel.Tracer("timerService").Start(ctx, "CreateTimer", trace.WithAttributes(
		attribute.String("session.id", sessionID.String()),
	))
	defer span.End()

	l := s.logger.With(zap.String("method", "CreateTimer"), zap.String("sessionID", sessionID.String()))

	if bufferSeconds < 0 || !notifyAt.After(time.Now()) {
		return nil, models.ErrBadRequest
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if session.UserID != callerID {
		l.Warn("Timer attempt on session not owned by caller")
		return nil, models.ErrForbidden
	}

	timer := &models.Timer{
		SessionID:     sessionID,
		NotifyAt:      notifyAt,
		BufferSeconds: bufferSeconds,
	}
	if err := s.repo.CreateTimer(ctx, timer); err != nil {
		l.Error("Failed to create timer", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create timer")
		return nil, fmt.Errorf("error creating timer: %w", err)
	}

	l.Info("Timer scheduled", zap.String("timerID", timer.ID.String()), zap.Time("notifyAt", notifyAt))
	span.SetStatus(codes.Ok, "Timer scheduled")
	return timer, nil
}

// Run executes one complete scheduler pass: select the due-set, fan pushes
// out to every registered device, then batch-mark the processed timers
// fired. Each invocation is a self-contained unit of work, so overlapping
// cron triggers are safe.
func (s *ServiceImpl) Run(ctx context.Context) (models.RunReport, error) {
	start := time.Now()
	ctx, span := otel.Tracer("timerService").Start(ctx, "Run")
	defer span.End()

	l := s.logger.With(zap.String("method", "Run"))
	report := models.RunReport{}

	due, err := s.repo.FindDue(ctx, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to query due timers")
		return report, fmt.Errorf("error querying due timers: %w", err)
	}

	var attempted, succeeded int64
	processed := make([]uuid.UUID, 0, len(due))

	for _, d := range due {
		processed = append(processed, d.Timer.ID)

		// Devices are resolved at dispatch time so a freshly registered
		// device still receives pending reminders.
		devices, err := s.devices.ListActiveDevices(ctx, d.Session.UserID)
		if err != nil {
			l.Warn("Failed to resolve devices, timer still counts as processed",
				zap.String("timerID", d.Timer.ID.String()), zap.Error(err))
			continue
		}

		title, body := reminderMessage(d)
		data := map[string]string{
			"type":       "parking_reminder",
			"timer_id":   d.Timer.ID.String(),
			"session_id": d.Session.ID.String(),
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrentSends)
		for _, device := range devices {
			atomic.AddInt64(&attempted, 1)
			g.Go(func() error {
				result := s.dispatcher.Dispatch(gctx, device.PushToken, title, body, data)
				if result.OK {
					atomic.AddInt64(&succeeded, 1)
				}
				if m := metrics.Get(); m != nil {
					outcome := "failed"
					if result.OK {
						outcome = "ok"
					}
					metrics.CountOutcome(gctx, m.NotificationsSentTotal, 1, outcome)
				}
				return nil
			})
		}
		// Wait for the whole fan-out; worst case is one slow device, not
		// the sum of all of them.
		_ = g.Wait()
	}

	report.NotificationsAttempted = int(atomic.LoadInt64(&attempted))
	report.NotificationsSucceeded = int(atomic.LoadInt64(&succeeded))
	report.TimersProcessed = len(processed)

	firedAt := time.Now()
	marked, err := s.repo.MarkFired(ctx, processed, firedAt)
	if err != nil {
		// Notifications may already be out; the timers stay scheduled and
		// will be re-processed next run, so delivery is at-least-once.
		l.Error("Failed to mark timers fired, they will be retried", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to mark timers fired")
		return report, fmt.Errorf("error marking timers fired: %w", err)
	}
	if marked < int64(len(processed)) {
		l.Debug("Some timers were already fired by a concurrent run",
			zap.Int("processed", len(processed)), zap.Int64("marked", marked))
	}

	cleaned, err := s.shares.DeactivateExpired(ctx, firedAt)
	if err != nil {
		l.Warn("Expired share sweep failed", zap.Error(err))
	} else {
		report.SharesCleaned = int(cleaned)
	}

	if m := metrics.Get(); m != nil {
		m.TimersFiredTotal.Add(ctx, marked)
		m.SchedulerRunDuration.Record(ctx, time.Since(start).Seconds())
		if cleaned > 0 {
			m.ExpiredSharesSweptTotal.Add(ctx, cleaned)
		}
	}

	l.Info("Scheduler run complete",
		zap.Int("timersProcessed", report.TimersProcessed),
		zap.Int("notificationsAttempted", report.NotificationsAttempted),
		zap.Int("notificationsSucceeded", report.NotificationsSucceeded),
		zap.Int("sharesCleaned", report.SharesCleaned),
		zap.Duration("duration", time.Since(start)))
	span.SetStatus(codes.Ok, "Scheduler run complete")
	return report, nil
}

// reminderMessage builds the push text. buffer_seconds only affects wording.
func reminderMessage(d models.DueTimer) (string, string) {
	title := "Parking reminder"
	dest := destinationText(d.Session)

	if d.Timer.BufferSeconds > 0 {
		lead := time.Duration(d.Timer.BufferSeconds) * time.Second
		return title, fmt.Sprintf("Your parking at %s expires in %s.", dest, formatLead(lead))
	}
	return title, fmt.Sprintf("Your parking at %s is expiring.", dest)
}

func destinationText(session models.ParkingSession) string {
	if session.VenueName != nil && *session.VenueName != "" {
		return *session.VenueName
	}
	return fmt.Sprintf("%.5f, %.5f", session.Latitude, session.Longitude)
}

func formatLead(lead time.Duration) string {
	if lead >= time.Minute {
		minutes := int(lead.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}
	seconds := int(lead.Seconds())
	if seconds == 1 {
		return "1 second"
	}
	return fmt.Sprintf("%d seconds", seconds)
}
