package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/emanueledman/fixa-admin/internal/models"
)

// SnapshotSource loads the full record set of one viewer.
type SnapshotSource interface {
	ListByResponsible(ctx context.Context, viewerID string) ([]models.Problem, error)
}

// NotificationSource delivers change notifications whose payload is a viewer id.
type NotificationSource interface {
	Listen(ctx context.Context, handle func(payload string)) error
}

// ChangeFeed turns database change notifications into snapshot events on the hub.
// A periodic resync republishes every subscribed viewer in case a notification
// was lost.
type ChangeFeed struct {
	hub      *Hub
	problems SnapshotSource
	source   NotificationSource
	pending  chan string
	logger   *zap.SugaredLogger
}

// NewChangeFeed creates a change feed. source may be nil, in which case only
// Nudge and the resync ticker produce snapshots.
func NewChangeFeed(hub *Hub, problems SnapshotSource, source NotificationSource, logger *zap.SugaredLogger) *ChangeFeed {
	return &ChangeFeed{
		hub:      hub,
		problems: problems,
		source:   source,
		pending:  make(chan string, 256),
		logger:   logger,
	}
}

// Nudge schedules a snapshot for viewerID. It never blocks; when the queue is
// full the next resync picks the viewer up.
func (f *ChangeFeed) Nudge(viewerID string) {
	if viewerID == "" {
		return
	}
	select {
	case f.pending <- viewerID:
	default:
		f.logger.Warnw("Change feed queue full, deferring to resync", "viewer", viewerID)
	}
}

// Start runs the feed until ctx is cancelled.
func (f *ChangeFeed) Start(ctx context.Context, resync time.Duration) error {
	if resync <= 0 {
		resync = time.Minute
	}
	if f.source != nil {
		go func() {
			if err := f.source.Listen(ctx, f.Nudge); err != nil {
				f.logger.Errorw("Change notifications stopped", "error", err)
			}
		}()
	}

	ticker := time.NewTicker(resync)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("Change feed stopped")
			return nil
		case viewerID := <-f.pending:
			f.publish(ctx, viewerID)
		case <-ticker.C:
			f.resync(ctx)
		}
	}
}

func (f *ChangeFeed) resync(ctx context.Context) {
	viewers := f.hub.Viewers()
	for _, id := range viewers {
		f.publish(ctx, id)
	}
	f.logger.Debugw("Change feed resync complete", "viewers", len(viewers))
}

// publish loads and publishes a snapshot, skipping viewers nobody is watching.
func (f *ChangeFeed) publish(ctx context.Context, viewerID string) {
	if !f.watched(viewerID) {
		return
	}
	problems, err := f.problems.ListByResponsible(ctx, viewerID)
	if err != nil {
		f.logger.Errorw("Snapshot load failed", "viewer", viewerID, "error", err)
		return
	}
	n := f.hub.Publish(Event{Type: EventSnapshot, ViewerID: viewerID, Problems: problems})
	f.logger.Debugw("Snapshot published", "viewer", viewerID, "problems", len(problems), "subscribers", n)
}

func (f *ChangeFeed) watched(viewerID string) bool {
	for _, id := range f.hub.Viewers() {
		if id == viewerID {
			return true
		}
	}
	return false
}
