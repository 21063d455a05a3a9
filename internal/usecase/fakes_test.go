package usecase

import (
	"context"
	"sync"
	"time"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/kanban"
)

type memStore struct {
	mu         sync.Mutex
	proposals  map[string]domain.ScheduleProposal
	saves      int
	saveErr    error
	loadErr    error
	markErr    error
	approvedAt time.Time
}

func newMemStore(ps ...domain.ScheduleProposal) *memStore {
	s := &memStore{
		proposals:  map[string]domain.ScheduleProposal{},
		approvedAt: time.Date(2026, time.January, 5, 18, 0, 0, 0, time.UTC),
	}
	for _, p := range ps {
		s.proposals[p.DateKey()] = p
	}
	return s
}

func (s *memStore) Save(_ context.Context, p domain.ScheduleProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	p.Approved = false
	p.ApprovedAt = nil
	s.proposals[p.DateKey()] = p
	return nil
}

func (s *memStore) Load(_ context.Context, date time.Time) (domain.ScheduleProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return domain.ScheduleProposal{}, s.loadErr
	}
	p, ok := s.proposals[domain.DateKey(date)]
	if !ok {
		return domain.ScheduleProposal{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *memStore) MarkApproved(_ context.Context, date time.Time, proposalID string) (domain.ScheduleProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return domain.ScheduleProposal{}, s.markErr
	}
	p, ok := s.proposals[domain.DateKey(date)]
	if !ok || p.ID != proposalID {
		return domain.ScheduleProposal{}, domain.ErrNotFound
	}
	if p.Approved {
		return p, domain.ErrAlreadyApproved
	}
	at := s.approvedAt
	p.Approved = true
	p.ApprovedAt = &at
	s.proposals[p.DateKey()] = p
	return p, nil
}

func (s *memStore) get(key string) domain.ScheduleProposal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proposals[key]
}

type fakeSink struct {
	batches [][]domain.ScheduleRecord
	err     error
	panics  bool
	// during runs inside InsertBatch, before the batch is recorded.
	during func()
}

func (f *fakeSink) InsertBatch(_ context.Context, records []domain.ScheduleRecord) error {
	if f.panics {
		f.panics = false
		panic("driver exploded")
	}
	if f.err != nil {
		return f.err
	}
	if f.during != nil {
		f.during()
	}
	f.batches = append(f.batches, records)
	return nil
}

type pollResult struct {
	messages []domain.InboundMessage
	err      error
}

// fakeChat replays queued poll results and cancels the run once they are exhausted.
type fakeChat struct {
	queue   []pollResult
	offsets []int64
	sent    []string
	sendErr error
	cancel  context.CancelFunc
}

func (f *fakeChat) SendMessage(_ context.Context, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeChat) Poll(ctx context.Context, offset int64, _ time.Duration) ([]domain.InboundMessage, error) {
	f.offsets = append(f.offsets, offset)
	if len(f.queue) == 0 {
		if f.cancel != nil {
			f.cancel()
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	next := f.queue[0]
	f.queue = f.queue[1:]
	return next.messages, next.err
}

type fakeSource struct {
	snapshot kanban.Snapshot
	err      error
}

func (f *fakeSource) FetchSnapshot(context.Context) (kanban.Snapshot, error) {
	return f.snapshot, f.err
}

type fakeEvents struct {
	published []domain.ScheduleProposal
	err       error
}

func (f *fakeEvents) PublishApproved(_ context.Context, p domain.ScheduleProposal) error {
	f.published = append(f.published, p)
	return f.err
}

type fakeArchiver struct {
	archived []domain.ScheduleProposal
	err      error
}

func (f *fakeArchiver) ArchiveProposal(_ context.Context, p domain.ScheduleProposal) error {
	f.archived = append(f.archived, p)
	return f.err
}
