package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"WorkshopScheduler/internal/allocator"
	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/formatter"
	"WorkshopScheduler/internal/normalizer"
	"WorkshopScheduler/internal/ports"
)

// PipelineDeps wires the driven adapters into the suggestion pipeline.
type PipelineDeps struct {
	Source     ports.CardSource
	Normalizer normalizer.Options
	Allocator  *allocator.Allocator
	Store      ports.ProposalStore
	Chat       ports.ChatClient
	Formatter  *formatter.Formatter
	Logger     *slog.Logger
	NewID      func() string
}

// Pipeline generates a schedule proposal from the current board and publishes it.
type Pipeline struct {
	source    ports.CardSource
	normalize normalizer.Options
	allocator *allocator.Allocator
	store     ports.ProposalStore
	chat      ports.ChatClient
	formatter *formatter.Formatter
	logger    *slog.Logger
	newID     func() string
}

// SuggestResult reports what one generation run produced.
type SuggestResult struct {
	Proposal domain.ScheduleProposal
	Leftover []domain.WorkItem
	Rejected []normalizer.Rejection
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	f := deps.Formatter
	if f == nil {
		f = formatter.New("")
	}
	newID := deps.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Pipeline{
		source:    deps.Source,
		normalize: deps.Normalizer,
		allocator: deps.Allocator,
		store:     deps.Store,
		chat:      deps.Chat,
		formatter: f,
		logger:    deps.Logger,
		newID:     newID,
	}
}

// Suggest fetches the board, allocates work for date, saves the proposal and sends it to the chat.
// Nothing is saved when fetching or normalizing fails.
func (p *Pipeline) Suggest(ctx context.Context, date time.Time) (SuggestResult, error) {
	if p.source == nil || p.allocator == nil || p.store == nil {
		return SuggestResult{}, fmt.Errorf("suggestion pipeline misconfigured")
	}
	date = domain.CalendarDate(date)

	snapshot, err := p.source.FetchSnapshot(ctx)
	if err != nil {
		return SuggestResult{}, fmt.Errorf("fetch board: %w", err)
	}

	norm, err := normalizer.New(p.normalize, snapshot.Board)
	if err != nil {
		return SuggestResult{}, fmt.Errorf("prepare normalizer: %w", err)
	}

	items, rejected := norm.NormalizeAll(snapshot.Cards)
	for _, r := range rejected {
		p.warn("card rejected", "card_id", r.CardID, "error", r.Err)
	}

	proposal, leftover := p.allocator.Allocate(date, items)
	proposal.ID = p.newID()

	p.info("proposal allocated",
		"date", domain.DateKey(date),
		"cards", len(snapshot.Cards),
		"items", len(items),
		"assigned", proposal.AssignmentCount(),
		"leftover", len(leftover),
		"capacity", p.allocator.Capacity(date))

	if err := p.store.Save(ctx, proposal); err != nil {
		return SuggestResult{}, fmt.Errorf("save proposal %s: %w", domain.DateKey(date), err)
	}

	saved, err := p.store.Load(ctx, date)
	if err != nil {
		return SuggestResult{}, fmt.Errorf("reload proposal %s: %w", domain.DateKey(date), err)
	}

	result := SuggestResult{Proposal: saved, Leftover: leftover, Rejected: rejected}

	if p.chat == nil {
		return result, nil
	}
	if err := p.chat.SendMessage(ctx, p.formatter.RenderProposal(saved)); err != nil {
		return result, fmt.Errorf("publish proposal %s: %w", domain.DateKey(date), err)
	}
	return result, nil
}

// NextTargetDate returns the working day a run at now schedules for:
// Friday plans Saturday, Saturday plans Monday, any other day plans the next day.
func NextTargetDate(now time.Time) time.Time {
	today := domain.CalendarDate(now)
	switch now.Weekday() {
	case time.Saturday:
		return today.AddDate(0, 0, 2)
	default:
		return today.AddDate(0, 0, 1)
	}
}

func (p *Pipeline) info(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
