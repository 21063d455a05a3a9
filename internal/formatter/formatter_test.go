package formatter

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"WorkshopScheduler/internal/domain"
)

var tuesday = time.Date(2026, time.January, 6, 0, 0, 0, 0, time.UTC)

func sampleProposal() domain.ScheduleProposal {
	return domain.ScheduleProposal{
		TargetDate: tuesday,
		Roster:     []string{"Samuel", "Aldo"},
		Assignments: map[string][]domain.Assignment{
			"Samuel": {
				{Resource: "Samuel", Slot: "08h00", ReferenceCode: "ABC1D23", Category: "Revisão"},
				{Resource: "Samuel", Slot: "09h00", ReferenceCode: "XYZ_9", Category: "maintenance"},
			},
			"Aldo": {},
		},
	}
}

func TestRenderProposal(t *testing.T) {
	t.Parallel()

	f := New("")
	text := f.RenderProposal(sampleProposal())

	assert.True(t, strings.HasPrefix(text, "*SCHEDULE PROPOSAL*\nTuesday, 06/01/2026\n\n"), text)
	assert.Contains(t, text, "*Samuel*\n  • 08h00 - ABC1D23 (Revisão)\n  • 09h00 - XYZ\\_9 (maintenance)\n")
	assert.Contains(t, text, "*Aldo*\n  • no assignments\n")
	assert.Less(t, strings.Index(text, "*Samuel*"), strings.Index(text, "*Aldo*"), "roster order is kept")
	assert.NotContains(t, text, "unassigned")
	assert.True(t, strings.HasSuffix(text, "To approve, reply: `approve 2026-01-06`"), text)
}

func TestRenderProposalLeftover(t *testing.T) {
	t.Parallel()

	p := sampleProposal()
	p.Unassigned = []domain.WorkItem{{ID: "a"}, {ID: "b"}}

	text := New("aprovar").RenderProposal(p)
	assert.Contains(t, text, "2 work item(s) left unassigned.")
	assert.Contains(t, text, "`aprovar 2026-01-06`")
}

func TestRenderOutcome(t *testing.T) {
	t.Parallel()

	f := New("approve")

	tests := []struct {
		name    string
		outcome domain.Outcome
		want    string
	}{
		{
			name:    "approved",
			outcome: domain.Outcome{Kind: domain.OutcomeApproved, Date: tuesday, Count: 7},
			want:    "*SCHEDULE APPROVED*\n\nTuesday, 06/01/2026\n7 appointment(s) committed.",
		},
		{
			name:    "already approved",
			outcome: domain.Outcome{Kind: domain.OutcomeAlreadyApproved, Date: tuesday},
			want:    "Schedule for 2026-01-06 was already approved.",
		},
		{
			name:    "not found",
			outcome: domain.Outcome{Kind: domain.OutcomeNotFound, Date: tuesday},
			want:    "No proposal found for 2026-01-06.",
		},
		{
			name:    "failed hides error detail",
			outcome: domain.Outcome{Kind: domain.OutcomeFailed, Date: tuesday, Err: errors.New("https://api/bot123:secret")},
			want:    "Could not commit the schedule for 2026-01-06. Retry with `approve 2026-01-06`.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.RenderOutcome(tt.outcome))
		})
	}
}

func TestHelp(t *testing.T) {
	t.Parallel()

	help := New("approve").Help()
	assert.Contains(t, help, "`approve YYYY-MM-DD`")
	assert.Contains(t, help, "`help`")
}

func TestLifecycleNotices(t *testing.T) {
	t.Parallel()

	f := New("aprovar")
	assert.Contains(t, f.Started(), "`aprovar YYYY-MM-DD`")
	assert.Equal(t, "Approval bot stopped.", f.Stopped())
}

func TestEscape(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `a\_b\*c\`+"`"+`d\[e]`, Escape("a_b*c`d[e]"))
}
