package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"ETFPal/internal/advisor"
	"ETFPal/internal/calendar"
	"ETFPal/internal/metrics"
	"ETFPal/internal/model"
	"ETFPal/internal/notifier"
	"ETFPal/internal/recorder"
)

const (
	sendRetries  = 3
	historyLimit = 10
)

// Scheduler manages the cron tasks and the chat commands.
type Scheduler struct {
	Cron        *cron.Cron
	Advisor     *advisor.Advisor
	Notifier    notifier.Sender
	Recorder    recorder.Recorder
	Metrics     *metrics.Metrics
	Health      *metrics.Health
	Instruments []model.Instrument
	Ctx         context.Context

	// investMu makes the "already invested today" check and the append atomic.
	investMu sync.Mutex
	now      func() time.Time
}

// NewScheduler creates a new Scheduler. Cron specs are evaluated in the
// advisor's calendar frame.
func NewScheduler(ctx context.Context, adv *advisor.Advisor, sender notifier.Sender, rec recorder.Recorder,
	instruments []model.Instrument, m *metrics.Metrics, health *metrics.Health) *Scheduler {
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds(), cron.WithLocation(adv.Location())),
		Advisor:     adv,
		Notifier:    sender,
		Recorder:    rec,
		Metrics:     m,
		Health:      health,
		Instruments: instruments,
		Ctx:         ctx,
		now:         time.Now,
	}
}

// RegisterAll registers the advice task and, when reminderCron is set, the
// investment-day reminder.
func (s *Scheduler) RegisterAll(adviceCron, reminderCron string) error {
	if _, err := s.Cron.AddFunc(adviceCron, s.adviceTask); err != nil {
		return fmt.Errorf("register advice task: %w", err)
	}
	if reminderCron != "" {
		if _, err := s.Cron.AddFunc(reminderCron, s.reminderTask); err != nil {
			return fmt.Errorf("register reminder task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("tasks", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunAdviceNow evaluates, records and sends advice immediately.
func (s *Scheduler) RunAdviceNow(trigger model.TriggerType) (*model.Advice, error) {
	adv, err := s.evaluate(s.Ctx, trigger)
	if err != nil {
		s.trySend(notifier.FormatError("定投建议", err))
		return nil, err
	}
	s.trySend(notifier.FormatAdvice(adv, s.Instruments))
	return adv, nil
}

func (s *Scheduler) adviceTask() {
	log.Info().Msg("running advice task")
	if _, err := s.RunAdviceNow(model.TriggerScheduled); err != nil {
		log.Error().Err(err).Msg("advice task")
	}
}

// reminderTask only fetches market data on investment days.
func (s *Scheduler) reminderTask() {
	now := s.now()
	_, next, err := s.Advisor.Schedule(s.Ctx, now)
	if err != nil {
		log.Error().Err(err).Msg("reminder schedule")
		return
	}
	due, err := calendar.IsDue(next, now, s.Advisor.Location())
	if err != nil || !due {
		log.Debug().Str("next", next).Msg("no investment due today")
		return
	}
	log.Info().Str("next", next).Msg("investment due, sending reminder")
	if _, err := s.RunAdviceNow(model.TriggerReminder); err != nil {
		log.Error().Err(err).Msg("reminder task")
	}
}

func (s *Scheduler) evaluate(ctx context.Context, trigger model.TriggerType) (*model.Advice, error) {
	adv, err := s.Advisor.AdviseFor(ctx, s.now(), trigger)
	if err != nil {
		if s.Health != nil {
			s.Health.AdviceError(err)
		}
		return nil, err
	}
	if s.Health != nil {
		s.Health.AdviceOK(s.now())
	}
	if err := s.Recorder.RecordAdvice(ctx, adv); err != nil {
		log.Error().Err(err).Msg("record advice")
	}
	return adv, nil
}

// invest evaluates today's advice and records it in the ledger, once per day.
func (s *Scheduler) invest(ctx context.Context) string {
	s.investMu.Lock()
	defer s.investMu.Unlock()

	adv, err := s.evaluate(ctx, model.TriggerManual)
	if err != nil {
		return notifier.FormatError("定投建议", err)
	}
	if adv.LastDate == adv.Date {
		return fmt.Sprintf("ℹ️ %s 已记录过定投，下次定投: %s", adv.Date, adv.NextDate)
	}
	evt, err := s.Advisor.Execute(ctx, adv)
	if err != nil {
		return notifier.FormatError("记录定投", err)
	}
	return notifier.FormatEvent(evt)
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	cmd := strings.ToLower(strings.TrimSpace(command))
	if i := strings.IndexByte(cmd, '@'); i > 0 {
		cmd = cmd[:i] // "/advice@ETFPalBot" in group chats
	}

	switch cmd {
	case "/advice", "查看建议":
		adv, err := s.evaluate(ctx, model.TriggerManual)
		if err != nil {
			return notifier.FormatError("定投建议", err)
		}
		return notifier.FormatAdvice(adv, s.Instruments)
	case "/invest", "确认定投":
		return s.invest(ctx)
	case "/next", "下次定投":
		now := s.now()
		last, next, err := s.Advisor.Schedule(ctx, now)
		if err != nil {
			return notifier.FormatError("计算定投日期", err)
		}
		due, _ := calendar.IsDue(next, now, s.Advisor.Location())
		return notifier.FormatSchedule(s.Advisor.Config().Cadence, last, next, due)
	case "/last", "上次定投":
		events, err := s.Advisor.History(ctx, 1)
		if err != nil {
			return notifier.FormatError("读取定投记录", err)
		}
		if len(events) == 0 {
			return notifier.FormatHistory(nil)
		}
		return notifier.FormatEvent(&events[0])
	case "/history", "定投记录":
		events, err := s.Advisor.History(ctx, historyLimit)
		if err != nil {
			return notifier.FormatError("读取定投记录", err)
		}
		return notifier.FormatHistory(events)
	default:
		return "可用命令:\n• /advice 查看建议\n• /invest 确认定投\n• /next 下次定投\n• /last 上次定投\n• /history 定投记录"
	}
}

func (s *Scheduler) trySend(text string) {
	err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries)
	s.Metrics.ObserveNotify(err)
	if err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
