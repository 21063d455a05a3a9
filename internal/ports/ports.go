package ports

import (
	"context"
	"time"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/kanban"
)

// CardSource pulls a point-in-time snapshot of the kanban board.
type CardSource interface {
	FetchSnapshot(ctx context.Context) (kanban.Snapshot, error)
}

// ProposalStore persists one schedule proposal per target date.
type ProposalStore interface {
	// Save writes or replaces the proposal for p.TargetDate as not approved.
	Save(ctx context.Context, p domain.ScheduleProposal) error
	// Load returns domain.ErrNotFound when no proposal exists for date.
	Load(ctx context.Context, date time.Time) (domain.ScheduleProposal, error)
	// MarkApproved flips the approval flag of the proposal identified by proposalID once.
	// It returns domain.ErrNotFound when date no longer holds that proposal and
	// domain.ErrAlreadyApproved on a second call.
	MarkApproved(ctx context.Context, date time.Time, proposalID string) (domain.ScheduleProposal, error)
}

// ChatClient sends messages to and receives commands from the operator chat.
type ChatClient interface {
	SendMessage(ctx context.Context, text string) error
	// Poll blocks up to wait for updates with an id of at least offset.
	Poll(ctx context.Context, offset int64, wait time.Duration) ([]domain.InboundMessage, error)
}

// ScheduleSink commits approved schedule rows in a single all-or-nothing call.
type ScheduleSink interface {
	InsertBatch(ctx context.Context, records []domain.ScheduleRecord) error
}

// EventPublisher announces approved schedules to downstream consumers.
type EventPublisher interface {
	PublishApproved(ctx context.Context, p domain.ScheduleProposal) error
}

// Archiver keeps a copy of every approved proposal.
type Archiver interface {
	ArchiveProposal(ctx context.Context, p domain.ScheduleProposal) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
