package domain

import (
	"fmt"
	"strings"
)

// Priority orders work items from low to urgent.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityUrgent
)

// DefaultPriority applies when no card label maps to a priority.
const DefaultPriority = PriorityMedium

var priorityNames = map[Priority]string{
	PriorityLow:    "low",
	PriorityMedium: "medium",
	PriorityHigh:   "high",
	PriorityUrgent: "urgent",
}

func (p Priority) String() string {
	if name, ok := priorityNames[p]; ok {
		return name
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// Valid reports whether p is one of the four known levels.
func (p Priority) Valid() bool {
	_, ok := priorityNames[p]
	return ok
}

// ParsePriority resolves a priority by its canonical name.
func ParsePriority(name string) (Priority, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	for p, n := range priorityNames {
		if n == needle {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown priority %q", name)
}

// MarshalText encodes the priority by name. The zero value encodes as DefaultPriority.
func (p Priority) MarshalText() ([]byte, error) {
	if p == 0 {
		p = DefaultPriority
	}
	if !p.Valid() {
		return nil, fmt.Errorf("invalid priority %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText decodes a priority name.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := ParsePriority(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// SourceRef links a work item back to the card it came from.
type SourceRef struct {
	CardURL  string `json:"cardUrl,omitempty"`
	ListName string `json:"listName,omitempty"`
}

// WorkItem is one schedulable unit derived from a kanban card.
type WorkItem struct {
	ID            string    `json:"id"`
	ReferenceCode string    `json:"referenceCode"`
	Category      string    `json:"category"`
	Description   string    `json:"description"`
	Priority      Priority  `json:"priority"`
	Notes         string    `json:"notes,omitempty"`
	Source        SourceRef `json:"source"`
}
