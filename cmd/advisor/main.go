package main

import (
	"context"
	"errors"
	"fmt"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ETFPal/internal/advisor"
	"ETFPal/internal/collector"
	"ETFPal/internal/config"
	"ETFPal/internal/ledger"
	"ETFPal/internal/metrics"
	"ETFPal/internal/model"
	"ETFPal/internal/notifier"
	"ETFPal/internal/recorder"
	"ETFPal/internal/scheduler"
)

func init() {
	// .env is optional.
	_ = godotenv.Load()
}

func main() {
	once := flag.Bool("once", false, "evaluate and send advice once, then exit")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime})

	if err := run(*once); err != nil {
		log.Fatal().Err(err).Msg("ETFPal stopped with an error")
	}
}

// run wires the components and blocks until a shutdown signal, or returns
// after one evaluation when once is set. Resources are released on every
// return path.
func run(once bool) error {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if lvl, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level)); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	log.Info().Str("config", cfgPath).Msg("ETFPal starting")

	invCfg, err := cfg.InvestmentConfig()
	if err != nil {
		return fmt.Errorf("investment config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	instruments := cfg.InstrumentList()

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	health := metrics.NewHealth()

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "provider":
		fetcher = collector.NewProviderFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy)
	case "mock":
		fetcher = &collector.MockFetcher{}
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy)
	}
	log.Info().Str("source", fetcher.Name()).Msg("data source selected")
	col := collector.NewCollector(fetcher, instruments, m)

	// Init recorder
	var rec recorder.Recorder
	var sqliteRec *recorder.SQLiteRecorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec, sqliteRec = sr, sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}
	defer rec.Close()

	// Init ledger
	var led ledger.Ledger
	switch cfg.Ledger.Backend {
	case "sqlite":
		if sqliteRec == nil {
			return errors.New("sqlite ledger requested but the sqlite database is unavailable")
		}
		led = sqliteRec
	default:
		fl, err := ledger.NewFileLedger(cfg.Ledger.Path)
		if err != nil {
			return fmt.Errorf("init ledger: %w", err)
		}
		led = fl
	}
	health.SetLedgerReady(true)

	adv, err := advisor.New(col, led, invCfg, instruments, loc, m)
	if err != nil {
		return fmt.Errorf("init advisor: %w", err)
	}

	// Init notifier
	var sender notifier.Sender = notifier.LogNotifier{}
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	} else {
		log.Warn().Msg("telegram not configured, messages go to the log")
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, adv, sender, rec, instruments, m, health)

	if once {
		if _, err := sched.RunAdviceNow(model.TriggerManual); err != nil {
			return fmt.Errorf("advice run: %w", err)
		}
		return nil
	}

	if err := sched.RegisterAll(cfg.Schedule.AdviceCron, cfg.Schedule.ReminderCron); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	var srv *metrics.Server
	if cfg.Metrics.Addr != "" {
		srv = metrics.NewServer(cfg.Metrics.Addr, reg, health)
		srv.Start()
	}

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, evaluating advice now")
		go sched.RunAdviceNow(model.TriggerManual)
	}

	log.Info().Str("cadence", string(invCfg.Cadence)).Str("timezone", loc.String()).Msg("ETFPal is running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
	cancel()
	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("metrics server shutdown")
		}
		stop()
	}
	log.Info().Msg("ETFPal stopped")
	return nil
}
