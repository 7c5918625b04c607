package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/atinyakov/kidcoin/internal/models"
)

// ActivityRepository defines the persistence operations required by the
// activity service.
type ActivityRepository interface {
	// Insert appends one activity line.
	Insert(ctx context.Context, text string) error
	// Recent returns up to limit lines, newest first.
	Recent(ctx context.Context, limit int) ([]models.ActivityRecord, error)
	// DeleteOlderThan removes lines created before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ActivityService retains activity-log lines published on the activity
// channel so late-joining clients can fetch recent history. It never
// stores balances or accounts.
type ActivityService struct {
	repo ActivityRepository
	log  *zap.Logger
}

// NewActivityService constructs an ActivityService using the provided
// repository.
func NewActivityService(repo ActivityRepository, log *zap.Logger) *ActivityService {
	return &ActivityService{repo: repo, log: log}
}

// Record stores one line; failures are logged and swallowed because
// retention is best-effort and must never block fan-out.
func (s *ActivityService) Record(ctx context.Context, text string) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.repo.Insert(ctx, text); err != nil {
		s.log.Warn("record activity", zap.Error(err))
	}
}

// Recent returns up to limit retained lines, newest first.
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]models.ActivityRecord, error) {
	return s.repo.Recent(ctx, limit)
}

// StartPruner periodically deletes lines older than retention. It stops
// when ctx is cancelled.
func (s *ActivityService) StartPruner(ctx context.Context, interval, retention time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().Add(-retention)
				n, err := s.repo.DeleteOlderThan(ctx, cutoff)
				if err != nil {
					s.log.Warn("prune activity", zap.Error(err))
					continue
				}
				if n > 0 {
					s.log.Info("pruned activity", zap.Int64("rows", n))
				}
			}
		}
	}()
}
