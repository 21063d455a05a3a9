// Package normalizer converts raw kanban cards into work items.
package normalizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/kanban"
)

const (
	// NotAvailable is the reference code used when a title yields no token.
	NotAvailable = "N/A"

	titleSeparator  = " - "
	maxReferenceLen = 16
)

// Options configures field and label resolution.
type Options struct {
	CategoryField   string
	DefaultCategory string
	// PriorityLabels maps label names to priorities; matching ignores case.
	PriorityLabels map[string]domain.Priority
}

// Normalizer maps cards of one board snapshot onto work items.
type Normalizer struct {
	board           kanban.Board
	fields          *FieldTable
	categoryField   string
	defaultCategory string
	labels          map[string]domain.Priority
}

// Rejection records a card that could not be normalized.
type Rejection struct {
	CardID string
	Err    error
}

// New binds options to a board. It fails fast when the configured category field does
// not exist on the board or cannot be read.
func New(opts Options, board kanban.Board) (*Normalizer, error) {
	fields, err := NewFieldTable(board.CustomFields, opts.CategoryField)
	if err != nil {
		return nil, fmt.Errorf("bind custom fields: %w", err)
	}

	labels := make(map[string]domain.Priority, len(opts.PriorityLabels))
	for name, p := range opts.PriorityLabels {
		labels[foldLabel(name)] = p
	}

	category := strings.TrimSpace(opts.DefaultCategory)
	if category == "" {
		category = "maintenance"
	}

	return &Normalizer{
		board:           board,
		fields:          fields,
		categoryField:   opts.CategoryField,
		defaultCategory: category,
		labels:          labels,
	}, nil
}

// Normalize converts a single card. Only a missing card id is an error.
func (n *Normalizer) Normalize(card kanban.Card) (domain.WorkItem, error) {
	id := strings.TrimSpace(card.ID)
	if id == "" {
		return domain.WorkItem{}, &domain.ValidationError{Field: "card.id", Reason: "missing identifier"}
	}

	ref, desc := splitTitle(card.Name)

	category := n.defaultCategory
	if n.categoryField != "" {
		if v, ok := n.fields.Text(card, n.categoryField); ok {
			category = v
		}
	}

	return domain.WorkItem{
		ID:            id,
		ReferenceCode: ref,
		Category:      category,
		Description:   desc,
		Priority:      n.priority(card.Labels),
		Notes:         plainText(card.Desc),
		Source: domain.SourceRef{
			CardURL:  card.URL,
			ListName: n.board.ListName(card.IDList),
		},
	}, nil
}

// NormalizeAll converts cards in order, collecting rejected cards instead of failing.
func (n *Normalizer) NormalizeAll(cards []kanban.Card) ([]domain.WorkItem, []Rejection) {
	items := make([]domain.WorkItem, 0, len(cards))
	var rejected []Rejection
	for _, card := range cards {
		item, err := n.Normalize(card)
		if err != nil {
			rejected = append(rejected, Rejection{CardID: card.ID, Err: err})
			continue
		}
		items = append(items, item)
	}
	return items, rejected
}

func (n *Normalizer) priority(labels []kanban.Label) domain.Priority {
	for _, label := range labels {
		if p, ok := n.labels[foldLabel(label.Name)]; ok {
			return p
		}
	}
	return domain.DefaultPriority
}

// splitTitle extracts the reference code and description from a card title.
// "ABC1D23 - Brake noise" yields ("ABC1D23", "Brake noise"); otherwise the last token is
// the reference and the whole title is the description.
func splitTitle(title string) (string, string) {
	title = strings.TrimSpace(title)

	if head, tail, ok := strings.Cut(title, titleSeparator); ok {
		head = strings.TrimSpace(head)
		if n := utf8.RuneCountInString(head); n > 0 && n <= maxReferenceLen {
			return head, strings.TrimSpace(tail)
		}
	}

	tokens := strings.Fields(title)
	if len(tokens) == 0 {
		return NotAvailable, ""
	}
	return tokens[len(tokens)-1], title
}

func foldLabel(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
