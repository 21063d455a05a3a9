package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/kanban"
)

func testBoard() kanban.Board {
	category := kanban.CustomField{ID: "cf-cat", Name: "Categoria", Type: kanban.FieldList}
	category.Options = []kanban.FieldOption{{ID: "opt-rev"}, {ID: "opt-diag"}}
	category.Options[0].Value.Text = "Revisão"
	category.Options[1].Value.Text = "Diagnóstico"

	return kanban.Board{
		Lists: map[string]string{"list-1": "DIAGNÓSTICO"},
		CustomFields: []kanban.CustomField{
			category,
			{ID: "cf-km", Name: "KM", Type: kanban.FieldNumber},
			{ID: "cf-ok", Name: "Pago", Type: kanban.FieldCheckbox},
		},
	}
}

func testOptions() Options {
	return Options{
		CategoryField:   "Categoria",
		DefaultCategory: "maintenance",
		PriorityLabels: map[string]domain.Priority{
			"URGENTE": domain.PriorityUrgent,
			"ALTA":    domain.PriorityHigh,
			"MÉDIA":   domain.PriorityMedium,
			"BAIXA":   domain.PriorityLow,
		},
	}
}

func newTestNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	n, err := New(testOptions(), testBoard())
	require.NoError(t, err)
	return n
}

func TestSplitTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		title    string
		wantRef  string
		wantDesc string
	}{
		{name: "separator", title: "ABC1D23 - Troca de pastilhas", wantRef: "ABC1D23", wantDesc: "Troca de pastilhas"},
		{name: "separator with dashed plate", title: "ABC-1234 - Revisão 40k", wantRef: "ABC-1234", wantDesc: "Revisão 40k"},
		{name: "no separator", title: "Golf GTI XYZ9A87", wantRef: "XYZ9A87", wantDesc: "Golf GTI XYZ9A87"},
		{name: "long leading segment", title: "Cliente retornou reclamando - barulho", wantRef: "barulho", wantDesc: "Cliente retornou reclamando - barulho"},
		{name: "single token", title: "QWE4R56", wantRef: "QWE4R56", wantDesc: "QWE4R56"},
		{name: "empty", title: "", wantRef: NotAvailable, wantDesc: ""},
		{name: "whitespace", title: "   ", wantRef: NotAvailable, wantDesc: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, desc := splitTitle(tt.title)
			assert.Equal(t, tt.wantRef, ref)
			assert.Equal(t, tt.wantDesc, desc)
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	card := kanban.Card{
		ID:     "card-1",
		Name:   "ABC1D23 - Barulho na suspensão",
		Desc:   "<p>Cliente relata barulho</p><p>Verificar<br>bandejas</p>",
		IDList: "list-1",
		URL:    "https://trello.com/c/abc",
		Labels: []kanban.Label{{Name: "cliente vip"}, {Name: "alta"}, {Name: "URGENTE"}},
		CustomFieldItems: []kanban.CustomFieldItem{
			{IDCustomField: "cf-cat", IDValue: "opt-diag"},
		},
	}

	item, err := n.Normalize(card)
	require.NoError(t, err)

	assert.Equal(t, "card-1", item.ID)
	assert.Equal(t, "ABC1D23", item.ReferenceCode)
	assert.Equal(t, "Barulho na suspensão", item.Description)
	assert.Equal(t, "Diagnóstico", item.Category)
	assert.Equal(t, domain.PriorityHigh, item.Priority, "first matching label wins")
	assert.Equal(t, "Cliente relata barulho\nVerificar\nbandejas", item.Notes)
	assert.Equal(t, "DIAGNÓSTICO", item.Source.ListName)
	assert.Equal(t, "https://trello.com/c/abc", item.Source.CardURL)
}

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	item, err := n.Normalize(kanban.Card{ID: "card-2", Labels: []kanban.Label{{Name: "Média"}}})
	require.NoError(t, err)

	assert.Equal(t, NotAvailable, item.ReferenceCode)
	assert.Empty(t, item.Description)
	assert.Equal(t, "maintenance", item.Category)
	assert.Equal(t, domain.PriorityMedium, item.Priority)
	assert.Empty(t, item.Source.ListName)

	item, err = n.Normalize(kanban.Card{ID: "card-3", Name: "Polo ABC1234"})
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultPriority, item.Priority)
}

func TestNormalizeMissingID(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	_, err := n.Normalize(kanban.Card{ID: "  ", Name: "ABC1234 - Revisão"})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err), "got %v, want ValidationError", err)
}

func TestNormalizeAll(t *testing.T) {
	t.Parallel()

	n := newTestNormalizer(t)

	items, rejected := n.NormalizeAll([]kanban.Card{
		{ID: "a", Name: "AAA1111 - um"},
		{ID: "", Name: "BBB2222 - dois"},
		{ID: "c", Name: "CCC3333 - três"},
	})

	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "c", items[1].ID)
	require.Len(t, rejected, 1)
	assert.True(t, domain.IsValidation(rejected[0].Err))
}

func TestNewFailsOnSchemaDrift(t *testing.T) {
	t.Parallel()

	opts := testOptions()

	opts.CategoryField = "Tipo"
	_, err := New(opts, testBoard())
	assert.ErrorContains(t, err, `custom field "Tipo" not found`)

	opts.CategoryField = "Pago"
	_, err = New(opts, testBoard())
	assert.ErrorContains(t, err, "unsupported type")

	opts.CategoryField = ""
	n, err := New(opts, kanban.Board{})
	require.NoError(t, err)
	item, err := n.Normalize(kanban.Card{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, "maintenance", item.Category)
}

func TestFieldTableText(t *testing.T) {
	t.Parallel()

	table, err := NewFieldTable(testBoard().CustomFields, "KM", "Categoria")
	require.NoError(t, err)

	card := kanban.Card{CustomFieldItems: []kanban.CustomFieldItem{
		{IDCustomField: "cf-km", Value: map[string]string{"number": " 42000 "}},
		{IDCustomField: "cf-cat", IDValue: "missing-option"},
	}}

	v, ok := table.Text(card, "KM")
	assert.True(t, ok)
	assert.Equal(t, "42000", v)

	_, ok = table.Text(card, "Categoria")
	assert.False(t, ok, "unknown option resolves to no value")

	_, ok = table.Text(card, "Unbound")
	assert.False(t, ok)
}

func TestPlainText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", plainText("  "))
	assert.Equal(t, "linha um\nlinha dois", plainText("linha   um\n\n  linha dois  "))
	assert.Equal(t, "Troca de óleo\nFiltro novo", plainText("<div>Troca de óleo</div><script>x()</script><ul><li>Filtro novo</li></ul>"))
}
