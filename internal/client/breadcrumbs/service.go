package breadcrumbs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/FACorreiaa/parkspot/internal/app/models"
)

const (
	retryInitialInterval = 30 * time.Second
	retryMaxInterval     = 30 * time.Minute
)

// Service coordinates capture, immediate upload, and the retry queue.
//
// Capture is local-first: once the photo row exists the capture has
// succeeded, whatever the network does. Drain is single-consumer; a second
// caller returns immediately while a pass is in flight.
type Service struct {
	logger   *zap.Logger
	store    *Store
	uploader Uploader

	drainMu sync.Mutex
}

func NewService(store *Store, uploader Uploader, logger *zap.Logger) *Service {
	return &Service{
		logger:   logger,
		store:    store,
		uploader: uploader,
	}
}

// Capture records a new breadcrumb and tries to upload it right away. The
// per-session cap is enforced before any file or network I/O. An upload
// failure is not a capture failure: the item is queued and Capture still
// succeeds.
func (s *Service) Capture(ctx context.Context, sessionID, localPath string) (*Breadcrumb, error) {
	l := s.logger.With(zap.String("method", "Capture"), zap.String("sessionID", sessionID))

	count, err := s.store.CountBreadcrumbs(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("error counting breadcrumbs: %w", err)
	}
	if count >= MaxPerSession {
		return nil, models.ErrBreadcrumbLimit
	}

	crumb := &Breadcrumb{
		SessionID: sessionID,
		LocalPath: localPath,
	}
	if err := s.store.InsertBreadcrumb(ctx, crumb); err != nil {
		return nil, fmt.Errorf("error storing breadcrumb: %w", err)
	}

	remotePath, err := s.uploader.Upload(ctx, sessionID, crumb.ID, localPath)
	if err != nil {
		l.Warn("Immediate upload failed, queueing for retry",
			zap.String("breadcrumbID", crumb.ID), zap.Error(err))
		payload := uploadPayload{
			BreadcrumbID: crumb.ID,
			SessionID:    sessionID,
			LocalPath:    localPath,
		}
		if qErr := s.store.Enqueue(ctx, itemTypeUpload, payload); qErr != nil {
			l.Error("Failed to queue upload retry", zap.Error(qErr))
		}
		return crumb, nil
	}

	if err := s.store.MarkUploaded(ctx, crumb.ID, remotePath); err != nil {
		l.Warn("Upload succeeded but local state update failed", zap.Error(err))
	} else {
		crumb.Uploaded = true
		crumb.RemotePath = remotePath
	}
	return crumb, nil
}

// List returns a session's breadcrumbs, oldest first.
func (s *Service) List(ctx context.Context, sessionID string) ([]Breadcrumb, error) {
	return s.store.ListBreadcrumbs(ctx, sessionID)
}

// Clear drops a session's breadcrumbs and their queued uploads. This is the
// only abandonment path; queue items have no attempt ceiling.
func (s *Service) Clear(ctx context.Context, sessionID string) error {
	return s.store.ClearSession(ctx, sessionID)
}

// Drain processes every due queue item once, in enqueue order. Successful
// uploads are removed and the breadcrumb marked uploaded; failures get a
// bumped attempt count and a capped exponential retry delay. Only one drain
// runs at a time; overlapping calls are no-ops.
func (s *Service) Drain(ctx context.Context) (int, error) {
	if !s.drainMu.TryLock() {
		return 0, nil
	}
	defer s.drainMu.Unlock()

	l := s.logger.With(zap.String("method", "Drain"))

	items, err := s.store.DueItems(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("error listing due items: %w", err)
	}

	uploaded := 0
	for _, item := range items {
		if item.ItemType != itemTypeUpload {
			l.Warn("Dropping queue item of unknown type",
				zap.Int64("itemID", item.ID), zap.String("type", item.ItemType))
			if err := s.store.RemoveItem(ctx, item.ID); err != nil {
				l.Error("Failed to drop unknown queue item", zap.Error(err))
			}
			continue
		}

		var payload uploadPayload
		if err := json.Unmarshal(item.Payload, &payload); err != nil {
			l.Warn("Dropping queue item with undecodable payload",
				zap.Int64("itemID", item.ID), zap.Error(err))
			if err := s.store.RemoveItem(ctx, item.ID); err != nil {
				l.Error("Failed to drop broken queue item", zap.Error(err))
			}
			continue
		}

		remotePath, err := s.uploader.Upload(ctx, payload.SessionID, payload.BreadcrumbID, payload.LocalPath)
		if err != nil {
			attempts := item.Attempts + 1
			next := time.Now().Add(retryDelay(attempts))
			l.Info("Retry upload failed, rescheduling",
				zap.Int64("itemID", item.ID),
				zap.Int("attempts", attempts),
				zap.Time("nextRetryAt", next),
				zap.Error(err))
			if bErr := s.store.BumpRetry(ctx, item.ID, attempts, next); bErr != nil {
				l.Error("Failed to reschedule queue item", zap.Error(bErr))
			}
			continue
		}

		if err := s.store.MarkUploaded(ctx, payload.BreadcrumbID, remotePath); err != nil {
			l.Error("Failed to mark breadcrumb uploaded", zap.Error(err))
		}
		if err := s.store.RemoveItem(ctx, item.ID); err != nil {
			l.Error("Failed to remove completed queue item", zap.Error(err))
		}
		uploaded++
	}

	if uploaded > 0 || len(items) > 0 {
		l.Info("Drain pass complete", zap.Int("due", len(items)), zap.Int("uploaded", uploaded))
	}
	return uploaded, nil
}

// Pending reports how many items still wait in the retry queue.
func (s *Service) Pending(ctx context.Context) (int, error) {
	return s.store.PendingCount(ctx)
}

// retryDelay derives the wait before attempt n+1 from the shared backoff
// policy, capped so a long-dead network never pushes retries out past half
// an hour.
func retryDelay(attempts int) time.Duration {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = retryInitialInterval
	bo.MaxInterval = retryMaxInterval
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	delay := bo.NextBackOff()
	for i := 1; i < attempts; i++ {
		delay = bo.NextBackOff()
		if delay >= retryMaxInterval {
			return retryMaxInterval
		}
	}
	return delay
}
