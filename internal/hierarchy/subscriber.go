package hierarchy

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/timetrack/internal/core/events"
)

// Subscriber drives the synchronizer from committed membership changes and project
// creations. It never reports a failure back to the publisher: the write already
// happened and the reconciliation pass repairs anything left behind.
type Subscriber struct {
	sync    *Synchronizer
	members MembershipStore
	logger  *slog.Logger
}

func NewSubscriber(sync *Synchronizer, members MembershipStore, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		sync:    sync,
		members: members,
		logger:  logger,
	}
}

func (s *Subscriber) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeMembershipChanged, s.Handle)
	bus.Subscribe(events.EventTypeProjectCreated, s.HandleProjectCreated)
}

func (s *Subscriber) HandleProjectCreated(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ProjectCreatedEvent)
	if !ok {
		s.logger.Warn("unexpected event payload", "event_type", event.EventType(), "event_id", event.EventID())
		return nil
	}

	results, err := s.sync.SyncNewProject(ctx, e.ProjectID)
	if err != nil {
		s.logger.Error("hierarchy synchronization for new project failed",
			"event_id", e.EventID(),
			"project_id", e.ProjectID,
			"error", err)
		return nil
	}
	s.logger.Debug("new project synchronized", "project_id", e.ProjectID, "managers", len(results))
	return nil
}

func (s *Subscriber) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.MembershipChangedEvent)
	if !ok {
		s.logger.Warn("unexpected event payload", "event_type", event.EventType(), "event_id", event.EventID())
		return nil
	}

	if _, err := s.sync.RefreshDescription(ctx, e.ProjectID); err != nil {
		s.logger.Error("description refresh after membership change failed",
			"event_id", e.EventID(),
			"project_id", e.ProjectID,
			"error", err)
	}

	// removals only shrink the manager set; propagated roles are kept
	if e.Removal() {
		return nil
	}

	member, err := s.members.GetByID(ctx, e.MemberID)
	if err != nil {
		s.logger.Warn("membership vanished before synchronization",
			"event_id", e.EventID(),
			"member_id", e.MemberID,
			"error", err)
		return nil
	}

	if _, err := s.sync.SyncHierarchyForManager(ctx, member); err != nil {
		s.logger.Error("hierarchy synchronization failed",
			"event_id", e.EventID(),
			"member_id", e.MemberID,
			"error", err)
	}
	return nil
}
