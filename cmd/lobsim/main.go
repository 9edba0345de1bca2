package main

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/lobsim/params"
	"github.com/uhyunpark/lobsim/pkg/api"
	"github.com/uhyunpark/lobsim/pkg/app/core/market"
	"github.com/uhyunpark/lobsim/pkg/app/schedule"
	"github.com/uhyunpark/lobsim/pkg/app/session"
	"github.com/uhyunpark/lobsim/pkg/app/trader"
	"github.com/uhyunpark/lobsim/pkg/metrics"
	"github.com/uhyunpark/lobsim/pkg/storage"
	"github.com/uhyunpark/lobsim/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Output.LogFile != "" {
		logger, err = util.NewLoggerWithFile(cfg.Output.LogFile, cfg.Output.Verbose)
	} else {
		logger, err = util.NewLogger(cfg.Output.Verbose)
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	seed := cfg.Session.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	sessCfg, err := buildSessionConfig(cfg, rng)
	if err != nil {
		sugar.Fatalw("config_invalid", "err", err)
	}

	m := metrics.New("lobsim")
	opts := []session.Option{session.WithLogger(sugar), session.WithMetrics(m)}

	var store *storage.PebbleStore
	if cfg.Output.TapeDB != "" {
		store, err = storage.NewPebbleStore(cfg.Output.TapeDB)
		if err != nil {
			sugar.Fatalw("tape_db_open_failed", "path", cfg.Output.TapeDB, "err", err)
		}
		defer store.Close()
		opts = append(opts, session.WithSink(store))
	}
	if cfg.Output.TapeCSV != "" {
		csvTape, err := storage.NewCSVTape(cfg.Output.TapeCSV)
		if err != nil {
			sugar.Fatalw("tape_csv_open_failed", "path", cfg.Output.TapeCSV, "err", err)
		}
		defer csvTape.Close()
		opts = append(opts, session.WithSink(csvTape))
	}

	sess, err := session.New(sessCfg, rng, opts...)
	if err != nil {
		sugar.Fatalw("session_init_failed", "err", err)
	}

	sugar.Infow("config_loaded",
		"session", sess.ID(),
		"seed", seed,
		"buyers", trader.FormatMix(sessCfg.Buyers),
		"sellers", trader.FormatMix(sessCfg.Sellers),
		"random_schedule", cfg.Schedule.Random,
		"tape_db", cfg.Output.TapeDB,
		"tape_csv", cfg.Output.TapeCSV,
	)

	if store != nil {
		meta := storage.SessionMeta{
			ID:        sess.ID(),
			Seed:      seed,
			Start:     sessCfg.Start,
			End:       sessCfg.End,
			Buyers:    trader.FormatMix(sessCfg.Buyers),
			Sellers:   trader.FormatMix(sessCfg.Sellers),
			CreatedAt: time.Now().UTC(),
		}
		if err := store.SaveSession(meta); err != nil {
			sugar.Fatalw("session_meta_save_failed", "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	var apiServer *api.Server
	if cfg.Output.APIAddr != "" {
		apiServer = api.NewServer(api.WithLogger(sugar), api.WithMetrics(m.Handler()))
		apiServer.Attach(sess)
		go func() {
			if err := apiServer.Start(ctx, cfg.Output.APIAddr); err != nil {
				sugar.Fatalw("api_server_failed", "err", err)
			}
		}()
	}

	report, err := sess.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		sugar.Fatalw("session_failed", "session", sess.ID(), "err", err)
	}

	if store != nil {
		if err := store.SaveReport(sess.ID(), report); err != nil {
			sugar.Errorw("report_save_failed", "session", sess.ID(), "err", err)
		}
	}
	best, _ := report.BestKind()
	sugar.Infow("session_report",
		"session", report.SessionID,
		"trades", report.Trades,
		"best_strategy", best,
		"state_hash", report.StateHash,
		"row", strings.Join(report.Row(), ","),
	)

	if apiServer != nil && ctx.Err() == nil {
		apiServer.SetReport(report)
		sugar.Infow("monitor_serving_report", "addr", cfg.Output.APIAddr)
		<-ctx.Done()
	}
}

// buildSessionConfig turns flat configuration into a session description.
func buildSessionConfig(cfg params.Config, rng *rand.Rand) (session.Config, error) {
	mkt := market.Params{
		MinPrice: cfg.Market.MinPrice,
		MaxPrice: cfg.Market.MaxPrice,
		TickSize: cfg.Market.TickSize,
	}
	if err := mkt.Validate(); err != nil {
		return session.Config{}, err
	}

	buyers, err := trader.ParseMix(cfg.Traders.Buyers)
	if err != nil {
		return session.Config{}, err
	}
	sellers, err := trader.ParseMix(cfg.Traders.Sellers)
	if err != nil {
		return session.Config{}, err
	}
	if cfg.Traders.MixNoise > 0 {
		buyers = trader.MixWithNoise(buyers, cfg.Traders.MixNoise, rng)
		sellers = trader.MixWithNoise(sellers, cfg.Traders.MixNoise, rng)
	}

	var sched schedule.Schedule
	if cfg.Schedule.Random {
		rc := schedule.DefaultRandomConfig()
		rc.Duration = cfg.Session.End
		rc.Interval = cfg.Schedule.Interval
		sched, err = schedule.RandomSchedule(rc, rng)
		if err != nil {
			return session.Config{}, err
		}
	} else {
		tm, err := schedule.ParseTimeMode(cfg.Schedule.TimeMode)
		if err != nil {
			return session.Config{}, err
		}
		step, err := schedule.ParseStepMode(cfg.Schedule.StepMode)
		if err != nil {
			return session.Config{}, err
		}
		sched = schedule.Simple(cfg.Session.Start, cfg.Session.End,
			schedule.Range{Min: cfg.Schedule.SupplyMin, Max: cfg.Schedule.SupplyMax},
			schedule.Range{Min: cfg.Schedule.DemandMin, Max: cfg.Schedule.DemandMax},
			step, cfg.Schedule.Interval, tm)
	}

	return session.Config{
		Start:    cfg.Session.Start,
		End:      cfg.Session.End,
		Market:   mkt,
		Buyers:   buyers,
		Sellers:  sellers,
		Shuffle:  cfg.Session.Shuffle,
		Schedule: sched,
		Pace:     cfg.Session.Pace,
	}, nil
}
