package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hay-kot/criterio"

	"WorkshopScheduler/internal/domain"
)

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// Parse resolves the trigger days and its HH:MM wall-clock time.
func (t TriggerConfig) Parse() ([]time.Weekday, int, int, error) {
	if len(t.Days) == 0 {
		return nil, 0, 0, errors.New("at least one day is required")
	}

	days := make([]time.Weekday, 0, len(t.Days))
	for _, name := range t.Days {
		key := strings.ToLower(strings.TrimSpace(name))
		if len(key) > 3 {
			key = key[:3]
		}
		day, ok := weekdayNames[key]
		if !ok {
			return nil, 0, 0, fmt.Errorf("unknown weekday %q", name)
		}
		days = append(days, day)
	}

	hh, mm, ok := strings.Cut(strings.TrimSpace(t.At), ":")
	if !ok {
		return nil, 0, 0, fmt.Errorf("time %q must be HH:MM", t.At)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return nil, 0, 0, fmt.Errorf("time %q has an invalid hour", t.At)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return nil, 0, 0, fmt.Errorf("time %q has an invalid minute", t.At)
	}

	return days, hour, minute, nil
}

// Priorities resolves the label table into domain priorities.
func (k KanbanConfig) Priorities() (map[string]domain.Priority, error) {
	out := make(map[string]domain.Priority, len(k.PriorityLabels))
	for label, name := range k.PriorityLabels {
		p, err := domain.ParsePriority(name)
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", label, err)
		}
		out[label] = p
	}
	return out, nil
}

// Validate checks everything the suggestion pipeline needs. Listener-only settings are
// checked by ValidateListener.
func (c *Config) Validate() error {
	return criterio.ValidateStruct(
		c.validateKanban(),
		c.validateSchedule(),
		c.validateBackends(),
		c.validateScheduler(),
	)
}

// ValidateListener adds the checks required to run the approval listener.
func (c *Config) ValidateListener() error {
	return criterio.ValidateStruct(
		c.Validate(),
		c.validateTelegram(),
	)
}

func (c *Config) validateKanban() error {
	var errs criterio.FieldErrorsBuilder

	if strings.TrimSpace(c.Kanban.APIKey) == "" {
		errs = errs.Append("kanban.apiKey", errors.New("is required"))
	}
	if strings.TrimSpace(c.Kanban.Token) == "" {
		errs = errs.Append("kanban.token", errors.New("is required"))
	}
	if strings.TrimSpace(c.Kanban.BoardID) == "" {
		errs = errs.Append("kanban.boardId", errors.New("is required"))
	}
	if _, err := c.Kanban.Priorities(); err != nil {
		errs = errs.Append("kanban.priorityLabels", err)
	}

	return errs.ToError()
}

func (c *Config) validateSchedule() error {
	var errs criterio.FieldErrorsBuilder

	if len(c.Schedule.Roster) == 0 {
		errs = errs.Append("schedule.roster", errors.New("at least one resource is required"))
	}
	seen := make(map[string]bool, len(c.Schedule.Roster))
	for i, name := range c.Schedule.Roster {
		switch {
		case strings.TrimSpace(name) == "":
			errs = errs.Append(fmt.Sprintf("schedule.roster[%d]", i), errors.New("name is empty"))
		case seen[name]:
			errs = errs.Append(fmt.Sprintf("schedule.roster[%d]", i), fmt.Errorf("duplicate resource %q", name))
		}
		seen[name] = true
	}

	errs = appendSlotErrors(errs, "schedule.weekdaySlots", c.Schedule.WeekdaySlots)
	errs = appendSlotErrors(errs, "schedule.saturdaySlots", c.Schedule.SaturdaySlots)

	return errs.ToError()
}

func appendSlotErrors(errs criterio.FieldErrorsBuilder, field string, slots []string) criterio.FieldErrorsBuilder {
	if len(slots) == 0 {
		return errs.Append(field, errors.New("at least one slot is required"))
	}
	seen := make(map[string]bool, len(slots))
	for i, slot := range slots {
		if seen[slot] {
			errs = errs.Append(fmt.Sprintf("%s[%d]", field, i), fmt.Errorf("duplicate slot %q", slot))
		}
		seen[slot] = true
	}
	return errs
}

func (c *Config) validateBackends() error {
	var errs criterio.FieldErrorsBuilder

	switch c.Proposals.Backend {
	case BackendFile:
		if c.Proposals.Dir == "" {
			errs = errs.Append("proposals.dir", errors.New("is required for the file backend"))
		}
	case BackendPostgres:
		if c.Database.DSN == "" {
			errs = errs.Append("database.dsn", errors.New("is required for the postgres proposal backend"))
		}
	default:
		errs = errs.Append("proposals.backend", fmt.Errorf("unknown backend %q", c.Proposals.Backend))
	}

	switch c.Storage.Backend {
	case BackendPostgres:
		if c.Database.DSN == "" {
			errs = errs.Append("database.dsn", errors.New("is required for the postgres storage backend"))
		}
	case BackendHTTP:
		if c.Storage.Endpoint == "" {
			errs = errs.Append("storage.endpoint", errors.New("is required for the http storage backend"))
		}
	default:
		errs = errs.Append("storage.backend", fmt.Errorf("unknown backend %q", c.Storage.Backend))
	}

	if len(c.Events.Kafka.Brokers) > 0 && c.Events.Kafka.Topic == "" {
		errs = errs.Append("events.kafka.topic", errors.New("is required when brokers are set"))
	}

	return errs.ToError()
}

func (c *Config) validateScheduler() error {
	if !c.Scheduler.Enabled {
		return nil
	}

	var errs criterio.FieldErrorsBuilder
	if len(c.Scheduler.Triggers) == 0 {
		errs = errs.Append("scheduler.triggers", errors.New("at least one trigger is required when enabled"))
	}
	for i, trigger := range c.Scheduler.Triggers {
		if _, _, _, err := trigger.Parse(); err != nil {
			errs = errs.Append(fmt.Sprintf("scheduler.triggers[%d]", i), err)
		}
	}
	return errs.ToError()
}

func (c *Config) validateTelegram() error {
	tg := c.Notifications.Telegram

	var errs criterio.FieldErrorsBuilder
	if tg.BotToken == "" {
		errs = errs.Append("notifications.telegram.botToken", errors.New("is required"))
	}
	if tg.ChatID == "" {
		errs = errs.Append("notifications.telegram.chatId", errors.New("is required"))
	}
	if strings.ContainsAny(tg.ApprovalKeyword, " \t") || tg.ApprovalKeyword == "" {
		errs = errs.Append("notifications.telegram.approvalKeyword", errors.New("must be a single word"))
	}
	return errs.ToError()
}
