// Package dataprovider holds fixture implementations of the platform's
// DataProvider/StreamingProvider interfaces. Real broker/vendor adapters
// are deliberately out of scope here — this package exists so the
// backtest driver and the platform's tests have something to sync from
// without a network dependency.
package dataprovider

import (
	"sort"
	"time"

	"github.com/aristath/systrader/internal/platform"
)

// Memory is an in-memory, slice-backed DataProvider populated ahead of
// time with fixture rows — typically loaded once from a CSV file by the
// backtest driver.
type Memory struct {
	bars   []platform.BarRow
	ca     []platform.CorporateActionRow
	events []platform.EventRow
}

// NewMemory returns an empty fixture provider ready for AddBar/AddCorporateAction/AddEvent.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) AddBar(row platform.BarRow) {
	m.bars = append(m.bars, row)
}

func (m *Memory) AddCorporateAction(row platform.CorporateActionRow) {
	m.ca = append(m.ca, row)
}

func (m *Memory) AddEvent(row platform.EventRow) {
	m.events = append(m.events, row)
}

func (m *Memory) FetchBars(tickers []string, start, end time.Time, timeframe platform.Timeframe) ([]platform.BarRow, error) {
	wanted := toSet(tickers)
	var out []platform.BarRow
	for _, b := range m.bars {
		if !wanted[b.Ticker] || b.Timeframe != timeframe {
			continue
		}
		if b.Timestamp.Before(start) || b.Timestamp.After(end) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) FetchCorporateActions(tickers []string, start, end time.Time) ([]platform.CorporateActionRow, error) {
	wanted := toSet(tickers)
	var out []platform.CorporateActionRow
	for _, ca := range m.ca {
		if !wanted[ca.Ticker] {
			continue
		}
		if ca.ExDate.Before(start) || ca.ExDate.After(end) {
			continue
		}
		out = append(out, ca)
	}
	return out, nil
}

func (m *Memory) FetchEvents(tickers []string, start, end time.Time) ([]platform.EventRow, error) {
	wanted := toSet(tickers)
	var out []platform.EventRow
	for _, e := range m.events {
		if !wanted[e.Ticker] {
			continue
		}
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func toSet(tickers []string) map[string]bool {
	set := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		set[t] = true
	}
	return set
}

var _ platform.DataProvider = (*Memory)(nil)
