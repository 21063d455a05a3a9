package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/formatter"
)

type stubStore struct {
	proposals map[string]domain.ScheduleProposal
	err       error
}

func (s *stubStore) Save(context.Context, domain.ScheduleProposal) error { return nil }

func (s *stubStore) Load(_ context.Context, date time.Time) (domain.ScheduleProposal, error) {
	if s.err != nil {
		return domain.ScheduleProposal{}, s.err
	}
	p, ok := s.proposals[domain.DateKey(date)]
	if !ok {
		return domain.ScheduleProposal{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *stubStore) MarkApproved(context.Context, time.Time, string) (domain.ScheduleProposal, error) {
	return domain.ScheduleProposal{}, errors.New("read only")
}

func newTestServer(store *stubStore) *httptest.Server {
	return httptest.NewServer(New(store, formatter.New("approve"), nil).Router())
}

func sampleStore() *stubStore {
	return &stubStore{proposals: map[string]domain.ScheduleProposal{
		"2026-01-06": {
			ID:         "p-1",
			TargetDate: time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC),
			Roster:     []string{"R1"},
			Assignments: map[string][]domain.Assignment{
				"R1": {{Resource: "R1", Slot: "08h00", ItemID: "c1", ReferenceCode: "ABC1D23", Category: "maintenance"}},
			},
		},
	}}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	server := newTestServer(sampleStore())
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, true, body["ok"])
}

func TestGetProposal(t *testing.T) {
	t.Parallel()

	server := newTestServer(sampleStore())
	defer server.Close()

	resp, err := http.Get(server.URL + "/proposals/2026-01-06")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var p domain.ScheduleProposal
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&p))
	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, 1, p.AssignmentCount())
}

func TestGetProposalMessage(t *testing.T) {
	t.Parallel()

	server := newTestServer(sampleStore())
	defer server.Close()

	resp, err := http.Get(server.URL + "/proposals/2026-01-06/message")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), "*SCHEDULE PROPOSAL*")
	assert.Contains(t, string(body), "`approve 2026-01-06`")
}

func TestGetProposalErrors(t *testing.T) {
	t.Parallel()

	server := newTestServer(sampleStore())
	defer server.Close()

	broken := newTestServer(&stubStore{err: errors.New("disk gone")})
	defer broken.Close()

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"unknown date", server.URL + "/proposals/2026-01-07", http.StatusNotFound},
		{"malformed date", server.URL + "/proposals/tomorrow", http.StatusBadRequest},
		{"impossible date", server.URL + "/proposals/2026-02-30/message", http.StatusBadRequest},
		{"store failure", broken.URL + "/proposals/2026-01-06", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(tt.url)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}
