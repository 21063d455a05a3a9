// Package formatter renders proposals and approval outcomes as Telegram Markdown text.
package formatter

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"WorkshopScheduler/internal/domain"
)

// DefaultKeyword is the approval command keyword.
const DefaultKeyword = "approve"

const divider = "──────────────"

// Formatter renders messages for one approval keyword.
type Formatter struct {
	keyword string
}

// New returns a formatter; an empty keyword falls back to DefaultKeyword.
func New(keyword string) *Formatter {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		keyword = DefaultKeyword
	}
	return &Formatter{keyword: keyword}
}

// Command returns the exact approval command for date.
func (f *Formatter) Command(date time.Time) string {
	return fmt.Sprintf("%s %s", f.keyword, domain.DateKey(date))
}

// RenderProposal lists every roster resource with its assignments and ends with the approval instruction.
func (f *Formatter) RenderProposal(p domain.ScheduleProposal) string {
	var b strings.Builder

	b.WriteString("*SCHEDULE PROPOSAL*\n")
	fmt.Fprintf(&b, "%s\n\n", dayLine(p.TargetDate))

	for _, resource := range resources(p) {
		fmt.Fprintf(&b, "*%s*\n", Escape(resource))
		list := p.Assignments[resource]
		if len(list) == 0 {
			b.WriteString("  • no assignments\n\n")
			continue
		}
		for _, a := range list {
			fmt.Fprintf(&b, "  • %s - %s (%s)\n", Escape(a.Slot), Escape(a.ReferenceCode), Escape(a.Category))
		}
		b.WriteString("\n")
	}

	if n := len(p.Unassigned); n > 0 {
		fmt.Fprintf(&b, "%d work item(s) left unassigned.\n\n", n)
	}

	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "To approve, reply: `%s`", f.Command(p.TargetDate))

	return b.String()
}

// RenderOutcome renders the result of an approval command.
func (f *Formatter) RenderOutcome(o domain.Outcome) string {
	date := domain.DateKey(o.Date)

	switch o.Kind {
	case domain.OutcomeApproved:
		return fmt.Sprintf("*SCHEDULE APPROVED*\n\n%s\n%d appointment(s) committed.", dayLine(o.Date), o.Count)
	case domain.OutcomeAlreadyApproved:
		return fmt.Sprintf("Schedule for %s was already approved.", date)
	case domain.OutcomeNotFound:
		return fmt.Sprintf("No proposal found for %s.", date)
	default:
		return fmt.Sprintf("Could not commit the schedule for %s. Retry with `%s`.", date, f.Command(o.Date))
	}
}

// Help is the static usage text sent for help/start.
func (f *Formatter) Help() string {
	var b strings.Builder
	b.WriteString("*Workshop schedule bot*\n\n")
	b.WriteString("Commands:\n\n")
	fmt.Fprintf(&b, "`%s YYYY-MM-DD` - approve the suggested schedule\n", f.keyword)
	fmt.Fprintf(&b, "Example: `%s 2026-01-06`\n\n", f.keyword)
	b.WriteString("`help` - show this message")
	return b.String()
}

// Started is posted when the approval listener comes online.
func (f *Formatter) Started() string {
	return fmt.Sprintf("Approval bot started. Send `%s YYYY-MM-DD` to approve a schedule.", f.keyword)
}

// Stopped is posted when the approval listener shuts down.
func (f *Formatter) Stopped() string {
	return "Approval bot stopped."
}

// Escape neutralises Telegram Markdown control characters in user-provided text.
func Escape(s string) string {
	return markdownEscaper.Replace(s)
}

var markdownEscaper = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	"`", "\\`",
	`[`, `\[`,
)

func dayLine(date time.Time) string {
	return fmt.Sprintf("%s, %s", date.Weekday(), date.Format("02/01/2006"))
}

func resources(p domain.ScheduleProposal) []string {
	if len(p.Roster) > 0 {
		return p.Roster
	}
	return slices.Sorted(maps.Keys(p.Assignments))
}
