package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"WorkshopScheduler/internal/domain"
	"WorkshopScheduler/internal/formatter"
	"WorkshopScheduler/internal/ports"
)

const (
	defaultPollWait     = 30 * time.Second
	defaultPollBackoff  = 5 * time.Second
	lifecycleTimeout    = 5 * time.Second
	approveDatePattern  = `^\d{4}-\d{2}-\d{2}$`
	commandSuffixBotTag = `(?:@\w+)?`
)

// ListenerState is the phase of the approval loop.
type ListenerState int

const (
	StateIdle ListenerState = iota
	StatePolling
	StateDispatching
	StateStopped
)

func (s ListenerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePolling:
		return "polling"
	case StateDispatching:
		return "dispatching"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ListenerDeps wires the approval listener.
type ListenerDeps struct {
	Chat      ports.ChatClient
	Store     ports.ProposalStore
	Sink      ports.ScheduleSink
	Events    ports.EventPublisher
	Archiver  ports.Archiver
	Formatter *formatter.Formatter
	Logger    *slog.Logger
	// ChatID is the only chat whose messages are processed.
	ChatID      string
	PollWait    time.Duration
	PollBackoff time.Duration
	// AnnounceLifecycle posts a chat message when Run starts and stops.
	AnnounceLifecycle bool
}

// Listener turns chat commands into approvals of stored proposals.
type Listener struct {
	chat              ports.ChatClient
	store             ports.ProposalStore
	sink              ports.ScheduleSink
	events            ports.EventPublisher
	archiver          ports.Archiver
	formatter         *formatter.Formatter
	logger            *slog.Logger
	chatID            string
	wait              time.Duration
	backoff           time.Duration
	announceLifecycle bool
	approveRe         *regexp.Regexp
	helpRe            *regexp.Regexp
	dateRe            *regexp.Regexp
}

// loopState is threaded through iterations of Run.
type loopState struct {
	cursor int64
	state  ListenerState
}

type commandKind int

const (
	commandNone commandKind = iota
	commandHelp
	commandApprove
)

type command struct {
	kind commandKind
	date time.Time
}

// NewListener builds a listener that accepts "<keyword> YYYY-MM-DD" approvals.
func NewListener(deps ListenerDeps, keyword string) *Listener {
	f := deps.Formatter
	if f == nil {
		f = formatter.New(keyword)
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		keyword = formatter.DefaultKeyword
	}
	wait := deps.PollWait
	if wait <= 0 {
		wait = defaultPollWait
	}
	backoff := deps.PollBackoff
	if backoff <= 0 {
		backoff = defaultPollBackoff
	}

	return &Listener{
		chat:              deps.Chat,
		store:             deps.Store,
		sink:              deps.Sink,
		events:            deps.Events,
		archiver:          deps.Archiver,
		formatter:         f,
		logger:            deps.Logger,
		chatID:            strings.TrimSpace(deps.ChatID),
		wait:              wait,
		backoff:           backoff,
		announceLifecycle: deps.AnnounceLifecycle,
		approveRe:         regexp.MustCompile(`(?i)^/?` + regexp.QuoteMeta(keyword) + commandSuffixBotTag + `\s+(\S+)$`),
		helpRe:            regexp.MustCompile(`(?i)^/?(?:help|start)` + commandSuffixBotTag + `$`),
		dateRe:            regexp.MustCompile(approveDatePattern),
	}
}

// Run polls for commands until ctx is cancelled. A dispatch already in progress when ctx is
// cancelled runs to completion on a detached context.
func (l *Listener) Run(ctx context.Context) error {
	if l.chat == nil || l.store == nil || l.sink == nil {
		return fmt.Errorf("approval listener misconfigured")
	}

	st := loopState{state: StateIdle}
	l.info("approval listener started", "chat_id", l.chatID, "poll_wait", l.wait)
	if l.announceLifecycle {
		l.reply(ctx, l.formatter.Started())
	}

	for {
		if ctx.Err() != nil {
			st.state = StateStopped
			l.info("approval listener stopped", "cursor", st.cursor, "state", st.state)
			if l.announceLifecycle {
				stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), lifecycleTimeout)
				l.reply(stopCtx, l.formatter.Stopped())
				cancel()
			}
			return nil
		}
		st = l.cycle(ctx, st)
	}
}

// cycle performs one Idle -> Polling -> Dispatching -> Idle round.
func (l *Listener) cycle(ctx context.Context, st loopState) loopState {
	st.state = StatePolling
	messages, err := l.chat.Poll(ctx, st.cursor, l.wait)
	if err != nil {
		st.state = StateIdle
		if ctx.Err() != nil {
			return st
		}
		l.warn("poll failed", "error", err, "retry_in", l.backoff)
		select {
		case <-ctx.Done():
		case <-time.After(l.backoff):
		}
		return st
	}

	st.state = StateDispatching
	detached := context.WithoutCancel(ctx)
	for _, msg := range messages {
		if msg.UpdateID >= st.cursor {
			st.cursor = msg.UpdateID + 1
		}
		l.dispatch(detached, msg)
		if ctx.Err() != nil {
			break
		}
	}

	st.state = StateIdle
	return st
}

// dispatch handles one message; failures and panics never escape it. A panic while
// approving still answers the operator with a failed outcome.
func (l *Listener) dispatch(ctx context.Context, msg domain.InboundMessage) {
	var cmd command
	defer func() {
		if r := recover(); r != nil {
			l.logErr("dispatch panic", "update_id", msg.UpdateID, "panic", r)
			if cmd.kind == commandApprove {
				l.reply(ctx, l.formatter.RenderOutcome(domain.Outcome{Kind: domain.OutcomeFailed, Date: cmd.date}))
			}
		}
	}()

	if msg.ChatID != l.chatID {
		l.debug("message from foreign chat ignored", "update_id", msg.UpdateID, "chat_id", msg.ChatID)
		return
	}

	cmd = l.parse(msg.Text)
	switch cmd.kind {
	case commandHelp:
		l.reply(ctx, l.formatter.Help())
	case commandApprove:
		l.info("approval requested", "date", domain.DateKey(cmd.date), "from", msg.From, "update_id", msg.UpdateID)
		outcome := l.Approve(ctx, cmd.date)
		l.reply(ctx, l.formatter.RenderOutcome(outcome))
	default:
		l.debug("message ignored", "update_id", msg.UpdateID)
	}
}

// parse recognises the approve and help commands; anything else is commandNone.
func (l *Listener) parse(text string) command {
	text = strings.TrimSpace(text)

	if l.helpRe.MatchString(text) {
		return command{kind: commandHelp}
	}

	m := l.approveRe.FindStringSubmatch(text)
	if m == nil || !l.dateRe.MatchString(m[1]) {
		return command{}
	}
	date, err := domain.ParseDate(m[1])
	if err != nil {
		return command{}
	}
	return command{kind: commandApprove, date: date}
}

// Approve commits the stored proposal for date and reports the outcome.
func (l *Listener) Approve(ctx context.Context, date time.Time) domain.Outcome {
	date = domain.CalendarDate(date)
	outcome := domain.Outcome{Date: date}

	proposal, err := l.store.Load(ctx, date)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		outcome.Kind = domain.OutcomeNotFound
		return outcome
	case err != nil:
		l.logErr("load proposal failed", "date", domain.DateKey(date), "error", err)
		outcome.Kind, outcome.Err = domain.OutcomeFailed, err
		return outcome
	case proposal.Approved:
		outcome.Kind = domain.OutcomeAlreadyApproved
		return outcome
	}

	records := proposal.Records()
	if err := l.sink.InsertBatch(ctx, records); err != nil {
		l.logErr("commit schedule failed", "date", domain.DateKey(date), "records", len(records), "error", err)
		outcome.Kind, outcome.Err = domain.OutcomeFailed, err
		return outcome
	}

	approved, err := l.store.MarkApproved(ctx, date, proposal.ID)
	switch {
	case errors.Is(err, domain.ErrAlreadyApproved):
		outcome.Kind = domain.OutcomeAlreadyApproved
		return outcome
	case errors.Is(err, domain.ErrNotFound):
		l.warn("proposal replaced while committing", "date", domain.DateKey(date), "proposal_id", proposal.ID)
		outcome.Kind = domain.OutcomeNotFound
		return outcome
	case err != nil:
		l.logErr("schedule committed but approval flag not stored", "date", domain.DateKey(date), "error", err)
		outcome.Kind, outcome.Err = domain.OutcomeFailed, err
		return outcome
	}

	l.info("schedule approved", "date", domain.DateKey(date), "records", len(records), "proposal_id", approved.ID)
	l.announce(ctx, approved)

	outcome.Kind = domain.OutcomeApproved
	outcome.Count = len(records)
	return outcome
}

// announce runs the optional side channels; their failures are only logged.
func (l *Listener) announce(ctx context.Context, p domain.ScheduleProposal) {
	if l.events != nil {
		if err := l.events.PublishApproved(ctx, p); err != nil {
			l.warn("publish approval event failed", "date", p.DateKey(), "error", err)
		}
	}
	if l.archiver != nil {
		if err := l.archiver.ArchiveProposal(ctx, p); err != nil {
			l.warn("archive proposal failed", "date", p.DateKey(), "error", err)
		}
	}
}

func (l *Listener) reply(ctx context.Context, text string) {
	if err := l.chat.SendMessage(ctx, text); err != nil {
		l.logErr("send reply failed", "error", err)
	}
}

func (l *Listener) debug(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(msg, args...)
	}
}

func (l *Listener) info(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}
}

func (l *Listener) warn(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Warn(msg, args...)
	}
}

func (l *Listener) logErr(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Error(msg, args...)
	}
}
