// Command backtest drives the full model->risk->optimizer->execution
// pipeline over a CSV fixture of historical bars, day by day, so the
// engine can be exercised end to end without a broker or vendor feed.
package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/systrader/internal/alpha"
	_ "github.com/aristath/systrader/internal/alpha/library"
	"github.com/aristath/systrader/internal/config"
	"github.com/aristath/systrader/internal/database"
	"github.com/aristath/systrader/internal/dataprovider"
	"github.com/aristath/systrader/internal/execution"
	"github.com/aristath/systrader/internal/platform"
	"github.com/aristath/systrader/internal/riskopt"
	"github.com/aristath/systrader/pkg/formulas"
	"github.com/aristath/systrader/pkg/logger"
)

var (
	fixturePath = flag.String("fixtures", "", "path to a CSV bar fixture (ticker,timestamp,timeframe,open,high,low,close,volume)")
	tickersFlag = flag.String("tickers", "", "comma-separated universe, e.g. AAPL,MSFT,GOOG")
	startFlag   = flag.String("start", "", "backtest start date, RFC3339 or 2006-01-02")
	endFlag     = flag.String("end", "", "backtest end date, RFC3339 or 2006-01-02")
	lookback    = flag.Int("lookback-days", 90, "feature lookback window in days")
	capital     = flag.Float64("capital", 1_000_000, "notional capital the optimizer's weights are sized against")
)

// momentumModel is the driver's one built-in strategy: a z-scored 10-day
// SMA deviation, same shape as the teacher pack's own moving-average
// features but expressed as an AlphaModel so Run can drive it.
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

func main() {
	flag.Parse()

	log := logger.New(logger.Config{Level: "info", Pretty: true})
	log.Info().Msg("starting backtest driver")

	if *fixturePath == "" || *tickersFlag == "" || *startFlag == "" || *endFlag == "" {
		log.Fatal().Msg("-fixtures, -tickers, -start and -end are all required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	start, err := parseDate(*startFlag)
	if err != nil {
		log.Fatal().Err(err).Str("value", *startFlag).Msg("invalid -start")
	}
	end, err := parseDate(*endFlag)
	if err != nil {
		log.Fatal().Err(err).Str("value", *endFlag).Msg("invalid -end")
	}
	tickers := strings.Split(*tickersFlag, ",")

	db, err := database.New(database.Config{
		Path:    cfg.DataDir + "/backtest.db",
		Profile: database.ProfileStandard,
		Name:    "backtest",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open backtest database")
	}
	defer db.Close()

	store, err := platform.NewStore(db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open the data platform")
	}

	f, err := os.Open(*fixturePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *fixturePath).Msg("failed to open fixture file")
	}
	defer f.Close()

	provider := dataprovider.NewMemory()
	if err := dataprovider.LoadBarsCSV(provider, f); err != nil {
		log.Fatal().Err(err).Msg("failed to parse fixture file")
	}

	tickerID := make(map[string]uint64, len(tickers))
	idTicker := make(map[uint64]string, len(tickers))
	for _, t := range tickers {
		id, err := store.RegisterSecurity(t, start, nil, nil)
		if err != nil {
			log.Fatal().Err(err).Str("ticker", t).Msg("failed to register security")
		}
		tickerID[t] = id
		idTicker[id] = t
	}

	if err := store.Sync(provider, tickers, start, end, platform.Timeframe1Day); err != nil {
		log.Fatal().Err(err).Msg("failed to sync fixture bars into the platform")
	}

	broker := execution.NewPaperBroker(nil)
	sched := execution.NewScheduler(broker, log)
	sched.Start()
	defer sched.Stop()

	riskModel := riskopt.NewRiskModel()
	optimizer := riskopt.NewOptimizer(riskopt.Params{
		RiskAversion:  cfg.RiskAversion,
		TCPenalty:     cfg.TCPenalty,
		ImpactCoef:    cfg.ImpactCoef,
		LambdaNet:     cfg.LambdaNet,
		LambdaGross:   cfg.LambdaGross,
		LambdaPos:     cfg.LambdaPos,
		LeverageLimit: cfg.LeverageLimit,
		MaxPosition:   cfg.MaxPosition,
	})
	safety := riskopt.NewSafetyRail(cfg.MaxDrawdown, cfg.MaxMsgsPerS)
	model := momentumModel{}

	ctx := context.Background()
	equity := 1.0
	runDays := 0
	equityCurve := []float64{equity}

	for day := start.AddDate(0, 0, *lookback); !day.After(end); day = day.AddDate(0, 0, 1) {
		ids := store.GetUniverse(day)
		if len(ids) == 0 {
			continue
		}

		frame, err := store.GetBars(ids, platform.BarQuery{
			Start:     day,
			End:       day,
			Timeframe: platform.Timeframe1Day,
			Adjust:    true,
		})
		if err != nil {
			log.Warn().Err(err).Time("day", day).Msg("failed to read bars, skipping day")
			continue
		}
		if len(frame) == 0 {
			continue
		}

		prices := make(map[string]float64, len(frame))
		for _, row := range frame {
			if close, ok := row.Columns["close_1D"]; ok {
				prices[idTicker[row.InternalID]] = close
				broker.SetPrice(idTicker[row.InternalID], close)
			}
		}

		if !safety.CheckSafety(equity, day) {
			log.Warn().Time("day", day).Msg("safety rail tripped, skipping rebalance")
			continue
		}

		signals, err := alpha.Run(ctx, store, model, ids, alpha.RunParams{
			Timestamp:    day,
			Timeframe:    platform.Timeframe1Day,
			LookbackDays: *lookback,
		})
		if err != nil {
			log.Warn().Err(err).Time("day", day).Msg("alpha run failed, skipping day")
			continue
		}
		if len(signals) == 0 {
			continue
		}

		returns, err := store.GetReturns(ids, day.AddDate(-1, 0, 0), day, nil)
		if err != nil {
			log.Warn().Err(err).Time("day", day).Msg("failed to read returns, skipping day")
			continue
		}
		if err := riskModel.Update(returns, cfg.PCANFactors); err != nil {
			log.Warn().Err(err).Time("day", day).Msg("risk model update failed, skipping day")
			continue
		}

		covIDs, sigma, err := riskModel.Covariance()
		if err != nil {
			log.Warn().Err(err).Time("day", day).Msg("no covariance estimate yet, skipping day")
			continue
		}

		weights := optimizer.Optimize(covIDs, signals, sigma, nil, nil)

		goal := make(map[string]float64, len(weights))
		for id, w := range weights {
			ticker := idTicker[id]
			price := prices[ticker]
			if ticker == "" || price <= 0 {
				continue
			}
			goal[ticker] = w * (*capital) / price
		}
		if len(goal) == 0 {
			continue
		}

		orders := sched.Rebalance(goal, 30*time.Second)
		runDays++
		log.Info().
			Time("day", day).
			Int("orders", len(orders)).
			Int("universe", len(ids)).
			Msg("rebalanced")

		equity = markToMarket(broker, prices) / *capital
		equityCurve = append(equityCurve, equity)
	}

	log.Info().Int("days_run", runDays).Msg("backtest complete")
	report(log, broker, tickerID, equityCurve)
	reportCorrelation(log, riskModel)
}

// reportCorrelation logs the average pairwise correlation implied by the
// final risk estimate, a cheap diagnostic for how diversified the
// universe actually was over the run.
func reportCorrelation(log zerolog.Logger, riskModel *riskopt.RiskModel) {
	ids, corr, err := riskModel.Correlation()
	if err != nil || len(ids) < 2 {
		return
	}

	var sum float64
	var count int
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			sum += corr[i][j]
			count++
		}
	}
	if count == 0 {
		return
	}
	log.Info().
		Int("universe", len(ids)).
		Float64("avg_pairwise_correlation", sum/float64(count)).
		Msg("final correlation snapshot")

	if _, dist, err := riskModel.ClusterDistances(); err == nil {
		var distSum float64
		for i := range dist {
			for j := i + 1; j < len(dist); j++ {
				distSum += dist[i][j]
			}
		}
		log.Info().Float64("avg_pairwise_distance", distSum/float64(count)).Msg("clustering distance snapshot")
	}
}

// markToMarket values the broker's current positions against the day's
// closing prices.
func markToMarket(broker *execution.PaperBroker, prices map[string]float64) float64 {
	var total float64
	for ticker, qty := range broker.GetPositions() {
		total += qty * prices[ticker]
	}
	return total
}

func report(log zerolog.Logger, broker *execution.PaperBroker, tickerID map[string]uint64, equityCurve []float64) {
	positions := broker.GetPositions()
	for ticker := range tickerID {
		log.Info().Str("ticker", ticker).Float64("position", positions[ticker]).Msg("final position")
	}

	if len(equityCurve) < 2 {
		return
	}
	if dd := formulas.CalculateMaxDrawdown(equityCurve); dd != nil {
		log.Info().Float64("max_drawdown", *dd).Msg("equity curve max drawdown")
	}
	cvar := formulas.CalculateCVaR(formulas.CalculateReturns(equityCurve), 0.95)
	log.Info().Float64("cvar_95", cvar).Msg("equity curve CVaR")
	if cagr := formulas.CalculateCAGRFromPrices(equityCurve, len(equityCurve)); cagr != nil {
		log.Info().Float64("cagr", *cagr).Msg("equity curve CAGR")
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
