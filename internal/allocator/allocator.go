// Package allocator distributes work items across a technician roster and daily slot template.
package allocator

import (
	"slices"
	"time"

	"WorkshopScheduler/internal/domain"
)

// Config holds the fixed roster and the two slot templates.
type Config struct {
	Roster        []string
	WeekdaySlots  []string
	SaturdaySlots []string
	// OrderByPriority stable-sorts items by descending priority before filling slots.
	OrderByPriority bool
}

// Allocator fills resource-major capacity units in input order.
type Allocator struct {
	cfg Config
}

// New copies cfg so later mutation by the caller has no effect.
func New(cfg Config) *Allocator {
	return &Allocator{cfg: Config{
		Roster:          slices.Clone(cfg.Roster),
		WeekdaySlots:    slices.Clone(cfg.WeekdaySlots),
		SaturdaySlots:   slices.Clone(cfg.SaturdaySlots),
		OrderByPriority: cfg.OrderByPriority,
	}}
}

// ClassOf returns the day class of date.
func ClassOf(date time.Time) domain.DayClass {
	if date.Weekday() == time.Saturday {
		return domain.DayClassSaturday
	}
	return domain.DayClassWeekday
}

// TemplateFor returns the slot template for date.
func (a *Allocator) TemplateFor(date time.Time) domain.SlotTemplate {
	class := ClassOf(date)
	slots := a.cfg.WeekdaySlots
	if class == domain.DayClassSaturday {
		slots = a.cfg.SaturdaySlots
	}
	return domain.SlotTemplate{
		Class:     class,
		Resources: slices.Clone(a.cfg.Roster),
		Slots:     slices.Clone(slots),
	}
}

// Capacity is the number of assignable units on date.
func (a *Allocator) Capacity(date time.Time) int {
	return a.TemplateFor(date).Capacity()
}

// Allocate builds the proposal for date and returns the items that did not fit.
// The proposal's ID and CreatedAt are left for the caller and the store to set.
func (a *Allocator) Allocate(date time.Time, items []domain.WorkItem) (domain.ScheduleProposal, []domain.WorkItem) {
	tmpl := a.TemplateFor(date)

	ordered := items
	if a.cfg.OrderByPriority {
		ordered = ByPriority(items)
	}

	proposal := domain.ScheduleProposal{
		TargetDate:  domain.CalendarDate(date),
		Roster:      tmpl.Resources,
		Assignments: make(map[string][]domain.Assignment, len(tmpl.Resources)),
	}

	next := 0
	for _, resource := range tmpl.Resources {
		list := make([]domain.Assignment, 0, len(tmpl.Slots))
		for _, slot := range tmpl.Slots {
			if next >= len(ordered) {
				break
			}
			list = append(list, assign(resource, slot, ordered[next]))
			next++
		}
		proposal.Assignments[resource] = list
	}

	var leftover []domain.WorkItem
	if next < len(ordered) {
		leftover = slices.Clone(ordered[next:])
		proposal.Unassigned = slices.Clone(leftover)
	}

	return proposal, leftover
}

// ByPriority returns a copy of items stable-sorted from urgent to low.
func ByPriority(items []domain.WorkItem) []domain.WorkItem {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(x, y domain.WorkItem) int {
		return int(y.Priority) - int(x.Priority)
	})
	return sorted
}

func assign(resource, slot string, item domain.WorkItem) domain.Assignment {
	return domain.Assignment{
		Resource:      resource,
		Slot:          slot,
		ItemID:        item.ID,
		ReferenceCode: item.ReferenceCode,
		Category:      item.Category,
		Description:   item.Description,
		Priority:      item.Priority,
	}
}
