package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/ports"
)

const proposalFilePrefix = "proposal_"

// FileStore keeps one JSON document per target date inside a directory.
type FileStore struct {
	dir string
	now func() time.Time
	mu  sync.RWMutex
}

var _ ports.ProposalStore = (*FileStore)(nil)

// StoreOption customises a proposal store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	now func() time.Time
}

// WithClock overrides the time source used for CreatedAt and ApprovedAt.
func WithClock(now func() time.Time) StoreOption {
	return func(o *storeOptions) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []StoreOption) storeOptions {
	o := storeOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewFileStore stores proposals under dir, creating it on first write.
func NewFileStore(dir string, opts ...StoreOption) *FileStore {
	o := buildOptions(opts)
	return &FileStore{dir: dir, now: o.now}
}

// Path returns the file that holds the proposal for date.
func (s *FileStore) Path(date time.Time) string {
	return filepath.Join(s.dir, proposalFilePrefix+domain.DateKey(date)+".json")
}

// Save writes the proposal as pending approval, replacing any earlier one for the same date.
func (s *FileStore) Save(ctx context.Context, p domain.ScheduleProposal) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p = prepareForSave(p, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(p)
}

// Load reads the proposal for date.
func (s *FileStore) Load(ctx context.Context, date time.Time) (domain.ScheduleProposal, error) {
	if err := ctx.Err(); err != nil {
		return domain.ScheduleProposal{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read(date)
}

// MarkApproved flips the approval flag and stamps ApprovedAt when date still holds proposalID.
func (s *FileStore) MarkApproved(ctx context.Context, date time.Time, proposalID string) (domain.ScheduleProposal, error) {
	if err := ctx.Err(); err != nil {
		return domain.ScheduleProposal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.read(date)
	if err != nil {
		return domain.ScheduleProposal{}, err
	}
	if p.ID != proposalID {
		return domain.ScheduleProposal{}, domain.ErrNotFound
	}
	if p.Approved {
		return p, domain.ErrAlreadyApproved
	}

	approvedAt := s.now().UTC()
	p.Approved = true
	p.ApprovedAt = &approvedAt

	if err := s.write(p); err != nil {
		return domain.ScheduleProposal{}, err
	}
	return p, nil
}

func (s *FileStore) read(date time.Time) (domain.ScheduleProposal, error) {
	path := s.Path(date)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.ScheduleProposal{}, domain.ErrNotFound
		}
		return domain.ScheduleProposal{}, fmt.Errorf("read proposal %s: %w", path, err)
	}

	var p domain.ScheduleProposal
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.ScheduleProposal{}, fmt.Errorf("decode proposal %s: %w", path, err)
	}
	return p, nil
}

// write replaces the proposal file through a synced temp file and a rename.
func (s *FileStore) write(p domain.ScheduleProposal) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create proposal dir: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode proposal: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, proposalFilePrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.Path(p.TargetDate)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace proposal: %w", err)
	}
	return nil
}

// prepareForSave resets approval state and fills the generation metadata.
func prepareForSave(p domain.ScheduleProposal, now time.Time) domain.ScheduleProposal {
	p.TargetDate = domain.CalendarDate(p.TargetDate)
	p.CreatedAt = now.UTC()
	p.Approved = false
	p.ApprovedAt = nil
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Assignments == nil {
		p.Assignments = map[string][]domain.Assignment{}
	}
	return p
}
