package execution

import "sync"

// PaperBroker is a fixture Broker that fills every order immediately at
// a caller-supplied price, grounded on
// original_source/src/execution/broker_gateway.py's MockBrokerGateway —
// same role (a network-free stand-in so the driver pipeline can run
// end-to-end), translated from "always fill via a callback into the
// engine" to "always fill and update an in-memory position map",
// since this repo's Broker contract is synchronous rather than
// callback-based.
type PaperBroker struct {
	mu        sync.Mutex
	positions map[string]float64
	prices    map[string]float64
}

// NewPaperBroker returns a broker with no positions and the given price
// book, which GetPrices reports.
func NewPaperBroker(prices map[string]float64) *PaperBroker {
	p := make(map[string]float64, len(prices))
	for k, v := range prices {
		p[k] = v
	}
	return &PaperBroker{
		positions: make(map[string]float64),
		prices:    p,
	}
}

// SetPrice updates the quoted price for a ticker, e.g. as the backtest
// driver advances through historical bars.
func (b *PaperBroker) SetPrice(ticker string, price float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.prices[ticker] = price
}

func (b *PaperBroker) SubmitOrder(ticker string, qty float64, side Side) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if side == SideSell {
		qty = -qty
	}
	b.positions[ticker] += qty
	return true
}

func (b *PaperBroker) GetPositions() map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]float64, len(b.positions))
	for k, v := range b.positions {
		out[k] = v
	}
	return out
}

func (b *PaperBroker) GetPrices(tickers []string) map[string]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]float64, len(tickers))
	for _, t := range tickers {
		out[t] = b.prices[t]
	}
	return out
}

var _ Broker = (*PaperBroker)(nil)
