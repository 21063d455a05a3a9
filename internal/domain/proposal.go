package domain

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

// DateLayout is the ISO calendar date format used for proposal keys and commands.
const DateLayout = "2006-01-02"

// DayClass selects which slot template applies to a date.
type DayClass string

const (
	DayClassWeekday  DayClass = "weekday"
	DayClassSaturday DayClass = "saturday"
)

// SlotTemplate is the per-date roster and ordered slot labels.
type SlotTemplate struct {
	Class     DayClass
	Resources []string
	Slots     []string
}

// Capacity is the number of resource/slot units in the template.
func (t SlotTemplate) Capacity() int {
	return len(t.Resources) * len(t.Slots)
}

// Assignment places one work item in a resource's slot.
type Assignment struct {
	Resource      string   `json:"resource"`
	Slot          string   `json:"slot"`
	ItemID        string   `json:"itemId"`
	ReferenceCode string   `json:"referenceCode"`
	Category      string   `json:"category"`
	Description   string   `json:"description,omitempty"`
	Priority      Priority `json:"priority"`
}

// ScheduleProposal is a full day's tentative assignment pending approval.
type ScheduleProposal struct {
	ID          string                  `json:"id"`
	TargetDate  time.Time               `json:"targetDate"`
	Roster      []string                `json:"roster"`
	Assignments map[string][]Assignment `json:"assignments"`
	Unassigned  []WorkItem              `json:"unassigned,omitempty"`
	CreatedAt   time.Time               `json:"createdAt"`
	Approved    bool                    `json:"approved"`
	ApprovedAt  *time.Time              `json:"approvedAt,omitempty"`
}

// DateKey returns the proposal's natural key.
func (p ScheduleProposal) DateKey() string {
	return DateKey(p.TargetDate)
}

// AssignmentCount totals assignments across the roster.
func (p ScheduleProposal) AssignmentCount() int {
	total := 0
	for _, list := range p.Assignments {
		total += len(list)
	}
	return total
}

// Records flattens assignments in roster order into commit rows.
func (p ScheduleProposal) Records() []ScheduleRecord {
	records := make([]ScheduleRecord, 0, p.AssignmentCount())
	for _, resource := range p.resourceOrder() {
		for _, a := range p.Assignments[resource] {
			records = append(records, ScheduleRecord{
				Date:          p.DateKey(),
				Resource:      a.Resource,
				Slot:          a.Slot,
				CardID:        a.ItemID,
				ReferenceCode: a.ReferenceCode,
				Category:      a.Category,
			})
		}
	}
	return records
}

// resourceOrder returns the roster followed by any assignment keys missing from it, sorted.
func (p ScheduleProposal) resourceOrder() []string {
	order := make([]string, 0, len(p.Assignments))
	seen := make(map[string]struct{}, len(p.Roster))
	for _, r := range p.Roster {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		order = append(order, r)
	}
	for _, r := range slices.Sorted(maps.Keys(p.Assignments)) {
		if _, ok := seen[r]; !ok {
			order = append(order, r)
		}
	}
	return order
}

// ScheduleRecord is one committed row sent to the storage backend.
type ScheduleRecord struct {
	Date          string `json:"date"`
	Resource      string `json:"resource"`
	Slot          string `json:"slot"`
	CardID        string `json:"cardId,omitempty"`
	ReferenceCode string `json:"referenceCode"`
	Category      string `json:"category"`
}

// DateKey formats a date as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight date.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return d, nil
}

// CalendarDate drops the clock part of t, keeping its calendar day in UTC.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
