package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone     = "America/Sao_Paulo"
	fallbackTimezone    = "UTC"
	configPathEnv       = "WORKSHOP_SCHEDULER_CONFIG"
	databaseDSNEnv      = "DATABASE_DSN"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
	trelloAPIKeyEnv     = "TRELLO_API_KEY"
	trelloTokenEnv      = "TRELLO_TOKEN"
	trelloBoardIDEnv    = "TRELLO_BOARD_ID"
	agendaAPIKeyEnv     = "AGENDA_API_KEY"
	defaultPollTimeout  = 30 * time.Second
	defaultPollBackoff  = 5 * time.Second
	defaultProposalsDir = "data/proposals"
)

// Backend names accepted by the proposals and storage sections.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendHTTP     = "http"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Database      DatabaseConfig     `yaml:"database"`
	Kanban        KanbanConfig       `yaml:"kanban"`
	Schedule      ScheduleConfig     `yaml:"schedule"`
	Proposals     ProposalsConfig    `yaml:"proposals"`
	Storage       StorageConfig      `yaml:"storage"`
	Notifications NotificationConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Events        EventsConfig       `yaml:"events"`
	Archive       ArchiveConfig      `yaml:"archive"`
	HTTP          HTTPConfig         `yaml:"http"`
}

// LoggingConfig selects the log level and an optional rotating log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// KanbanConfig points at the Trello board and describes how cards are read.
type KanbanConfig struct {
	BaseURL         string            `yaml:"baseUrl"`
	APIKey          string            `yaml:"apiKey"`
	Token           string            `yaml:"token"`
	BoardID         string            `yaml:"boardId"`
	EligibleLists   []string          `yaml:"eligibleLists"`
	CategoryField   string            `yaml:"categoryField"`
	DefaultCategory string            `yaml:"defaultCategory"`
	PriorityLabels  map[string]string `yaml:"priorityLabels"`
}

// ScheduleConfig is the roster and the slot templates.
type ScheduleConfig struct {
	Roster          []string `yaml:"roster"`
	WeekdaySlots    []string `yaml:"weekdaySlots"`
	SaturdaySlots   []string `yaml:"saturdaySlots"`
	OrderByPriority bool     `yaml:"orderByPriority"`
}

// ProposalsConfig selects where proposals are kept.
type ProposalsConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

// StorageConfig selects where approved schedules are committed.
type StorageConfig struct {
	Backend  string `yaml:"backend"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send and receive messages.
type TelegramConfig struct {
	BaseURL         string        `yaml:"baseUrl"`
	BotToken        string        `yaml:"botToken"`
	ChatID          string        `yaml:"chatId"`
	ApprovalKeyword string        `yaml:"approvalKeyword"`
	PollTimeout     time.Duration `yaml:"pollTimeout"`
	PollBackoff     time.Duration `yaml:"pollBackoff"`
	// SilentLifecycle suppresses the start and stop notices the listener posts to the chat.
	SilentLifecycle bool `yaml:"silentLifecycle"`
}

// SchedulerConfig defines when proposals are generated.
type SchedulerConfig struct {
	Enabled  bool            `yaml:"enabled"`
	Timezone string          `yaml:"timezone"`
	Triggers []TriggerConfig `yaml:"triggers"`
	location *time.Location  `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	return time.UTC
}

// TriggerConfig fires at a wall-clock time on the listed weekdays.
type TriggerConfig struct {
	Days []string `yaml:"days"`
	At   string   `yaml:"at"`
}

// EventsConfig configures approval event publishing.
type EventsConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig is disabled when Brokers is empty.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// ArchiveConfig configures the approved-proposal archive.
type ArchiveConfig struct {
	S3 S3Config `yaml:"s3"`
}

// S3Config is disabled when Bucket is empty.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
	Region string `yaml:"region"`
}

// HTTPConfig enables the status API when Addr is set.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads YAML configuration from path (or WORKSHOP_SCHEDULER_CONFIG when path is empty),
// merges it over the defaults and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		var fileCfg Config
		if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = mergeConfig(cfg, fileCfg)
	}

	cfg.applyEnvOverrides()
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv(trelloAPIKeyEnv); v != "" {
		c.Kanban.APIKey = v
	}

	if v := os.Getenv(trelloTokenEnv); v != "" {
		c.Kanban.Token = v
	}

	if v := os.Getenv(trelloBoardIDEnv); v != "" {
		c.Kanban.BoardID = v
	}

	if v := os.Getenv(agendaAPIKeyEnv); v != "" {
		c.Storage.APIKey = v
	}
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = fallbackTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("scheduler.timezone: unknown timezone %q: %w", tz, err)
	}
	c.Scheduler.location = loc
	return nil
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	base.Kanban = mergeKanban(base.Kanban, override.Kanban)
	base.Schedule = mergeSchedule(base.Schedule, override.Schedule)

	if override.Proposals.Backend != "" {
		base.Proposals.Backend = override.Proposals.Backend
	}
	if override.Proposals.Dir != "" {
		base.Proposals.Dir = override.Proposals.Dir
	}

	if override.Storage.Backend != "" {
		base.Storage.Backend = override.Storage.Backend
	}
	if override.Storage.Endpoint != "" {
		base.Storage.Endpoint = override.Storage.Endpoint
	}
	if override.Storage.APIKey != "" {
		base.Storage.APIKey = override.Storage.APIKey
	}

	base.Notifications.Telegram = mergeTelegram(base.Notifications.Telegram, override.Notifications.Telegram)

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if len(override.Scheduler.Triggers) > 0 {
		base.Scheduler.Triggers = override.Scheduler.Triggers
	}

	if len(override.Events.Kafka.Brokers) > 0 {
		base.Events.Kafka.Brokers = override.Events.Kafka.Brokers
	}
	if override.Events.Kafka.Topic != "" {
		base.Events.Kafka.Topic = override.Events.Kafka.Topic
	}

	if override.Archive.S3.Bucket != "" {
		base.Archive.S3 = override.Archive.S3
	}

	if override.HTTP.Addr != "" {
		base.HTTP.Addr = override.HTTP.Addr
	}

	return base
}

func mergeKanban(base, override KanbanConfig) KanbanConfig {
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.Token != "" {
		base.Token = override.Token
	}
	if override.BoardID != "" {
		base.BoardID = override.BoardID
	}
	if len(override.EligibleLists) > 0 {
		base.EligibleLists = override.EligibleLists
	}
	if override.CategoryField != "" {
		base.CategoryField = override.CategoryField
	}
	if override.DefaultCategory != "" {
		base.DefaultCategory = override.DefaultCategory
	}
	if len(override.PriorityLabels) > 0 {
		base.PriorityLabels = override.PriorityLabels
	}
	return base
}

func mergeSchedule(base, override ScheduleConfig) ScheduleConfig {
	if len(override.Roster) > 0 {
		base.Roster = override.Roster
	}
	if len(override.WeekdaySlots) > 0 {
		base.WeekdaySlots = override.WeekdaySlots
	}
	if len(override.SaturdaySlots) > 0 {
		base.SaturdaySlots = override.SaturdaySlots
	}
	if override.OrderByPriority {
		base.OrderByPriority = true
	}
	return base
}

func mergeTelegram(base, override TelegramConfig) TelegramConfig {
	if override.BaseURL != "" {
		base.BaseURL = override.BaseURL
	}
	if override.BotToken != "" {
		base.BotToken = override.BotToken
	}
	if override.ChatID != "" {
		base.ChatID = override.ChatID
	}
	if override.ApprovalKeyword != "" {
		base.ApprovalKeyword = strings.TrimSpace(override.ApprovalKeyword)
	}
	if override.PollTimeout > 0 {
		base.PollTimeout = override.PollTimeout
	}
	if override.PollBackoff > 0 {
		base.PollBackoff = override.PollBackoff
	}
	if override.SilentLifecycle {
		base.SilentLifecycle = true
	}
	return base
}

func defaultConfig() Config {
	weekdays := []string{"mon", "tue", "wed", "thu", "fri"}
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Kanban: KanbanConfig{
			BaseURL:         "https://api.trello.com",
			DefaultCategory: "maintenance",
			PriorityLabels: map[string]string{
				"URGENTE": "urgent",
				"ALTA":    "high",
				"MÉDIA":   "medium",
				"BAIXA":   "low",
			},
		},
		Schedule: ScheduleConfig{
			Roster:        []string{"Samuel", "Aldo", "Tadeu", "Wendel", "JP"},
			WeekdaySlots:  []string{"08h00", "09h00", "10h00", "11h00", "13h30", "14h30", "15h30", "16h30", "17h30"},
			SaturdaySlots: []string{"08h00", "09h00", "10h00", "11h00"},
		},
		Proposals: ProposalsConfig{Backend: BackendFile, Dir: defaultProposalsDir},
		Storage:   StorageConfig{Backend: BackendPostgres},
		Notifications: NotificationConfig{
			Telegram: TelegramConfig{
				BaseURL:         "https://api.telegram.org",
				ApprovalKeyword: "approve",
				PollTimeout:     defaultPollTimeout,
				PollBackoff:     defaultPollBackoff,
			},
		},
		Scheduler: SchedulerConfig{
			Timezone: defaultTimezone,
			Triggers: []TriggerConfig{
				{Days: weekdays, At: "17:00"},
				{Days: []string{"sat"}, At: "11:30"},
			},
		},
		Events: EventsConfig{Kafka: KafkaConfig{Topic: "workshop.schedule.approved"}},
	}
}
