// Package kanban holds the board snapshot shapes shared by the Trello adapter and the normalizer.
package kanban

// Label is a coloured tag attached to a card.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Member is a board member assigned to a card.
type Member struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
}

// CustomFieldItem is a card's value for one board custom field.
// Value keys follow the field type: text, number, date or checked.
type CustomFieldItem struct {
	ID            string            `json:"id"`
	IDCustomField string            `json:"idCustomField"`
	IDValue       string            `json:"idValue,omitempty"`
	Value         map[string]string `json:"value,omitempty"`
}

// Card is a raw board card.
type Card struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	Desc             string            `json:"desc"`
	IDList           string            `json:"idList"`
	Closed           bool              `json:"closed"`
	URL              string            `json:"url"`
	Labels           []Label           `json:"labels"`
	Members          []Member          `json:"members"`
	CustomFieldItems []CustomFieldItem `json:"customFieldItems"`
}

// FieldType is the declared type of a custom field.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldList     FieldType = "list"
	FieldCheckbox FieldType = "checkbox"
)

// FieldOption is one choice of a list-typed custom field.
type FieldOption struct {
	ID    string `json:"id"`
	Value struct {
		Text string `json:"text"`
	} `json:"value"`
}

// CustomField is a board-level custom field definition.
type CustomField struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Type    FieldType     `json:"type"`
	Options []FieldOption `json:"options,omitempty"`
}

// List is a board column.
type List struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Closed bool   `json:"closed"`
}

// Board carries the metadata needed to interpret cards.
type Board struct {
	Lists        map[string]string
	CustomFields []CustomField
}

// ListName resolves a list id, returning "" when unknown.
func (b Board) ListName(id string) string {
	if b.Lists == nil {
		return ""
	}
	return b.Lists[id]
}

// Snapshot is a point-in-time read of a board.
type Snapshot struct {
	Board Board
	Cards []Card
}
