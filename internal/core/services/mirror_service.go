package services

import (
	"context"
	"log/slog"
	"time"

	portsrepo "github.com/owetrack/owetrack/internal/core/ports/repositories"
	portssvc "github.com/owetrack/owetrack/internal/core/ports/services"
	"github.com/owetrack/owetrack/internal/middleware"
)

const (
	mirrorDrainBatchSize = 50
	// mirrorMaxAttempts bounds retries per intent. An intent that keeps
	// failing (a reciprocal contact removed out-of-band, say) is retired
	// instead of being retried every tick forever.
	mirrorMaxAttempts = 10
)

// mirrorService is the background half of mirror propagation. Intents are
// normally applied inline right after the primary write commits; this worker
// picks up the ones that slipped through (process crash between commit and
// drain, transient mirror-side failure) and retries them until they apply.
type mirrorService struct {
	ledgerSvc  portssvc.LedgerSvcFacade
	outboxRepo portsrepo.OutboxRepositoryFacade
	interval   time.Duration
}

// NewMirrorService creates a new MirrorService draining pending intents
// every interval.
func NewMirrorService(ledgerSvc portssvc.LedgerSvcFacade, outboxRepo portsrepo.OutboxRepositoryFacade, interval time.Duration) portssvc.MirrorSvcFacade {
	return &mirrorService{
		ledgerSvc:  ledgerSvc,
		outboxRepo: outboxRepo,
		interval:   interval,
	}
}

var _ portssvc.MirrorSvcFacade = (*mirrorService)(nil)

// DrainOnce applies one batch of pending intents and returns how many were
// completed. Application is idempotent, so racing the inline drain is safe.
func (s *mirrorService) DrainOnce(ctx context.Context) (int, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	intents, err := s.outboxRepo.ListPending(ctx, mirrorDrainBatchSize)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, intent := range intents {
		if intent.Attempts >= mirrorMaxAttempts {
			logger.Error("Mirror intent retries exhausted; abandoning",
				slog.String("intent_id", intent.IntentID),
				slog.Int("attempts", intent.Attempts),
				slog.String("last_error", intent.LastError),
			)
			if markErr := s.outboxRepo.MarkAbandoned(ctx, intent.IntentID, intent.LastError, time.Now().UTC()); markErr != nil {
				logger.Error("Failed to abandon mirror intent", slog.String("intent_id", intent.IntentID), slog.String("error", markErr.Error()))
			}
			continue
		}
		if err := s.ledgerSvc.ApplyMirrorIntent(ctx, intent); err != nil {
			logger.Warn("Mirror intent retry failed",
				slog.String("intent_id", intent.IntentID),
				slog.Int("attempts", intent.Attempts),
				slog.String("error", err.Error()),
			)
			if markErr := s.outboxRepo.MarkFailed(ctx, intent.IntentID, err.Error(), time.Now().UTC()); markErr != nil {
				logger.Error("Failed to record mirror attempt", slog.String("intent_id", intent.IntentID), slog.String("error", markErr.Error()))
			}
			continue
		}
		if err := s.outboxRepo.MarkDone(ctx, intent.IntentID, time.Now().UTC()); err != nil {
			logger.Error("Failed to mark mirror intent done", slog.String("intent_id", intent.IntentID), slog.String("error", err.Error()))
			continue
		}
		done++
	}

	if done > 0 {
		logger.Info("Drained mirror intents", slog.Int("count", done))
	}
	return done, nil
}

// Run drains on a fixed ticker until the context is cancelled.
func (s *mirrorService) Run(ctx context.Context) {
	logger := middleware.GetLoggerFromCtx(ctx)
	logger.Info("Mirror worker started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Mirror worker stopped")
			return
		case <-ticker.C:
			if _, err := s.DrainOnce(ctx); err != nil {
				logger.Error("Mirror drain pass failed", slog.String("error", err.Error()))
			}
		}
	}
}
