// Command live runs the trading engine against a streaming feed: bars
// arrive continuously through a StreamingProvider and are persisted as
// they land, while a cron-scheduled outer cycle periodically reruns the
// model->risk->optimizer->execution pipeline and pushes the result to the
// execution scheduler. A thin ops HTTP server exposes health and
// scheduler status for a watchdog.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/systrader/internal/alpha"
	_ "github.com/aristath/systrader/internal/alpha/library"
	"github.com/aristath/systrader/internal/config"
	"github.com/aristath/systrader/internal/database"
	"github.com/aristath/systrader/internal/dataprovider"
	"github.com/aristath/systrader/internal/execution"
	"github.com/aristath/systrader/internal/platform"
	"github.com/aristath/systrader/internal/riskopt"
	"github.com/aristath/systrader/internal/server"
	"github.com/aristath/systrader/pkg/logger"
)

var (
	tickersFlag = flag.String("tickers", "", "comma-separated universe, e.g. AAPL,MSFT,GOOG")
	feedURL     = flag.String("feed", "", "websocket URL of the live bar feed")
	schedule    = flag.String("schedule", "@every 1m", "cron schedule for the rebalance cycle")
	lookback    = flag.Int("lookback-days", 90, "feature lookback window in days")
	capital     = flag.Float64("capital", 1_000_000, "notional capital the optimizer's weights are sized against")
)

// momentumModel mirrors the backtest driver's strategy so both entrypoints
// exercise the same alpha, risk and optimizer code paths.
type momentumModel struct{}

func (momentumModel) RequestedFeatures() []string { return []string{"sma_10_1D"} }

func (momentumModel) ComputeSignals(_ context.Context, latest platform.Frame, _ map[uint64][]float64) map[uint64]float64 {
	raw := make(map[uint64]float64, len(latest))
	for _, row := range latest {
		sma, ok := row.Columns["sma_10_1D"]
		close, hasClose := row.Columns["close_1D"]
		if !ok || !hasClose || sma == 0 {
			continue
		}
		raw[row.InternalID] = (close - sma) / sma
	}
	return alpha.Winsorize(alpha.ZScore(raw), 3)
}

// cycle bundles the state one rebalance tick needs, so the cron callback
// stays a one-liner.
type cycle struct {
	log       zerolog.Logger
	store     *platform.Store
	sched     *execution.Scheduler
	broker    *execution.PaperBroker
	riskModel *riskopt.RiskModel
	optimizer *riskopt.Optimizer
	safety    *riskopt.SafetyRail
	model     momentumModel
	idTicker  map[uint64]string
	cfg       *config.Config
	lookback  int
	capital   float64
}

// run executes one model->risk->optimizer->execution pass against the
// platform's current state, the same pipeline the backtest driver steps
// through day by day, here triggered by cron instead of a date loop.
func (c *cycle) run() {
	now := time.Now()
	ctx := context.Background()

	ids := c.store.GetUniverse(now)
	if len(ids) == 0 {
		return
	}

	if !c.safety.CheckSafety(1.0, now) {
		c.log.Warn().Msg("safety rail tripped, skipping cycle")
		return
	}

	signals, err := alpha.Run(ctx, c.store, c.model, ids, alpha.RunParams{
		Timestamp:    now,
		Timeframe:    platform.Timeframe1Day,
		LookbackDays: c.lookback,
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("alpha run failed, skipping cycle")
		return
	}
	if len(signals) == 0 {
		return
	}

	returns, err := c.store.GetReturns(ids, now.AddDate(-1, 0, 0), now, nil)
	if err != nil {
		c.log.Warn().Err(err).Msg("failed to read returns, skipping cycle")
		return
	}
	if err := c.riskModel.Update(returns, c.cfg.PCANFactors); err != nil {
		c.log.Warn().Err(err).Msg("risk model update failed, skipping cycle")
		return
	}

	covIDs, sigma, err := c.riskModel.Covariance()
	if err != nil {
		c.log.Warn().Err(err).Msg("no covariance estimate yet, skipping cycle")
		return
	}

	weights := c.optimizer.Optimize(covIDs, signals, sigma, nil, nil)
	prices := c.broker.GetPrices(tickersOf(c.idTicker))

	goal := make(map[string]float64, len(weights))
	for id, w := range weights {
		ticker := c.idTicker[id]
		price := prices[ticker]
		if ticker == "" || price <= 0 {
			continue
		}
		goal[ticker] = w * c.capital / price
	}
	if len(goal) == 0 {
		return
	}

	orders := c.sched.Rebalance(goal, 30*time.Second)
	c.log.Info().Int("orders", len(orders)).Int("universe", len(ids)).Msg("rebalance cycle complete")
}

func tickersOf(idTicker map[uint64]string) []string {
	out := make([]string, 0, len(idTicker))
	for _, t := range idTicker {
		out = append(out, t)
	}
	return out
}

// runHourlyMaintenance truncates the WAL and runs the cheap integrity
// check so a corrupt database surfaces in logs long before it trips the
// watchdog's /health probe.
func runHourlyMaintenance(db *database.DB, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.HealthCheck(ctx); err != nil {
		log.Error().Err(err).Msg("database health check failed")
	}
	if err := db.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("WAL checkpoint failed")
	}
}

// runDailyMaintenance runs VACUUM to rebuild the database file and
// reclaim its free pages. VACUUM holds an exclusive lock, so it runs once a
// day rather than on the hourly cadence.
func runDailyMaintenance(db *database.DB, log zerolog.Logger) {
	if err := db.Vacuum(); err != nil {
		log.Warn().Err(err).Msg("vacuum failed")
		return
	}
	if stats, err := db.GetStats(); err == nil {
		log.Info().
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Int64("freelist_count", stats.FreelistCount).
			Msg("vacuum complete")
	}
}

func main() {
	flag.Parse()

	log := logger.New(logger.Config{Level: "info", Pretty: true})
	log.Info().Msg("starting live driver")

	if *tickersFlag == "" || *feedURL == "" {
		log.Fatal().Msg("-tickers and -feed are required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	tickers := strings.Split(*tickersFlag, ",")

	db, err := database.New(database.Config{
		Path:    cfg.DataDir + "/live.db",
		Profile: database.ProfileStandard,
		Name:    "live",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open live database")
	}
	defer db.Close()

	store, err := platform.NewStore(db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open the data platform")
	}

	now := time.Now()
	idTicker := make(map[uint64]string, len(tickers))
	for _, t := range tickers {
		id, err := store.RegisterSecurity(t, now, nil, nil)
		if err != nil {
			log.Fatal().Err(err).Str("ticker", t).Msg("failed to register security")
		}
		idTicker[id] = t
	}

	broker := execution.NewPaperBroker(nil)
	sched := execution.NewScheduler(broker, log)
	sched.Start()
	defer sched.Stop()

	feed, err := dataprovider.NewWebSocket(*feedURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to construct live feed client")
	}

	go func() {
		if err := feed.Subscribe(tickers, func(row platform.BarRow) {
			store.OnLiveBar(row)
			broker.SetPrice(row.Ticker, row.Close)
		}); err != nil {
			log.Error().Err(err).Msg("live feed subscription ended")
		}
	}()

	c := &cycle{
		log:   log,
		store: store,
		sched: sched,
		broker: broker,
		riskModel: riskopt.NewRiskModel(),
		optimizer: riskopt.NewOptimizer(riskopt.Params{
			RiskAversion:  cfg.RiskAversion,
			TCPenalty:     cfg.TCPenalty,
			ImpactCoef:    cfg.ImpactCoef,
			LambdaNet:     cfg.LambdaNet,
			LambdaGross:   cfg.LambdaGross,
			LambdaPos:     cfg.LambdaPos,
			LeverageLimit: cfg.LeverageLimit,
			MaxPosition:   cfg.MaxPosition,
		}),
		safety:   riskopt.NewSafetyRail(cfg.MaxDrawdown, cfg.MaxMsgsPerS),
		model:    momentumModel{},
		idTicker: idTicker,
		cfg:      cfg,
		lookback: *lookback,
		capital:  *capital,
	}

	cr := cron.New(cron.WithSeconds())
	if _, err := cr.AddFunc(cronExpr(*schedule), c.run); err != nil {
		log.Fatal().Err(err).Str("schedule", *schedule).Msg("failed to register rebalance cycle")
	}
	if _, err := cr.AddFunc("@hourly", func() { runHourlyMaintenance(db, log) }); err != nil {
		log.Fatal().Err(err).Msg("failed to register hourly maintenance")
	}
	if _, err := cr.AddFunc("@daily", func() { runDailyMaintenance(db, log) }); err != nil {
		log.Fatal().Err(err).Msg("failed to register daily maintenance")
	}
	cr.Start()
	defer func() {
		stopCtx := cr.Stop()
		<-stopCtx.Done()
	}()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Port:      cfg.Port,
		Scheduler: sched,
		DB:        db,
	})
	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("ops server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down live driver")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops server forced to shutdown")
	}
}

// cronExpr passes @every/@hourly/@daily descriptors through unchanged and
// only matters as a seam for a future numeric-schedule translation.
func cronExpr(s string) string {
	return s
}
