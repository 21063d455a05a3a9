package normalizer

import (
	"fmt"
	"strings"

	"WorkshopScheduler/internal/kanban"
)

// FieldTable resolves card custom-field values by field name using the board's declared types.
type FieldTable struct {
	fields map[string]fieldAccessor
}

type fieldAccessor struct {
	def     kanban.CustomField
	options map[string]string
}

var readableTypes = map[kanban.FieldType]struct{}{
	kanban.FieldText:   {},
	kanban.FieldNumber: {},
	kanban.FieldDate:   {},
	kanban.FieldList:   {},
}

// NewFieldTable binds the requested field names against the board definitions.
// It fails when a requested field is absent from the board or has a type that cannot be read as text.
func NewFieldTable(defs []kanban.CustomField, names ...string) (*FieldTable, error) {
	byName := make(map[string]kanban.CustomField, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}

	table := &FieldTable{fields: make(map[string]fieldAccessor, len(names))}
	for _, name := range names {
		if name == "" {
			continue
		}
		def, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("custom field %q not found on board", name)
		}
		if _, ok := readableTypes[def.Type]; !ok {
			return nil, fmt.Errorf("custom field %q has unsupported type %q", name, def.Type)
		}

		acc := fieldAccessor{def: def}
		if def.Type == kanban.FieldList {
			acc.options = make(map[string]string, len(def.Options))
			for _, opt := range def.Options {
				acc.options[opt.ID] = opt.Value.Text
			}
		}
		table.fields[name] = acc
	}

	return table, nil
}

// Text returns the card's value for the named field. The boolean is false when the
// field is not bound or the card carries no non-empty value for it.
func (t *FieldTable) Text(card kanban.Card, name string) (string, bool) {
	if t == nil {
		return "", false
	}
	acc, ok := t.fields[name]
	if !ok {
		return "", false
	}

	for _, item := range card.CustomFieldItems {
		if item.IDCustomField != acc.def.ID {
			continue
		}

		var value string
		switch acc.def.Type {
		case kanban.FieldList:
			value = acc.options[item.IDValue]
		default:
			value = item.Value[string(acc.def.Type)]
		}

		value = strings.TrimSpace(value)
		return value, value != ""
	}

	return "", false
}
