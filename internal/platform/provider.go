package platform

import "time"

// BarRow is a single observation as it comes off a DataProvider, before the
// platform has resolved a ticker to an internal id.
type BarRow struct {
	Ticker    string
	Timestamp time.Time
	Timeframe Timeframe
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// CorporateActionRow mirrors CorporateAction but keyed by ticker, as it
// arrives from a provider.
type CorporateActionRow struct {
	Ticker string
	ExDate time.Time
	Kind   CorporateActionKind
	Value  float64
}

// EventRow mirrors Event but keyed by ticker.
type EventRow struct {
	Ticker    string
	Timestamp time.Time
	EventType string
	Value     string
}

// DataProvider is the abstract source the platform pulls from during sync.
// Concrete adapters (a broker's historical API, a vendor feed) live outside
// the core; the core only depends on this interface.
type DataProvider interface {
	FetchBars(tickers []string, start, end time.Time, timeframe Timeframe) ([]BarRow, error)
	FetchCorporateActions(tickers []string, start, end time.Time) ([]CorporateActionRow, error)
	FetchEvents(tickers []string, start, end time.Time) ([]EventRow, error)
}

// BarHandler is invoked per bar by a StreamingProvider. The ticker hint
// lets the platform resolve (and, if necessary, auto-register) the
// internal id without the streaming adapter needing to know it.
type BarHandler func(row BarRow)

// StreamingProvider is the abstract live-feed source consumed in live
// mode.
type StreamingProvider interface {
	Subscribe(tickers []string, handler BarHandler) error
}

// Sync pulls bars, corporate actions and events for tickers over
// [start,end] from provider and writes them into the platform, resolving
// each ticker to its internal id as it goes. It is the one place the core
// touches a DataProvider.
func (s *Store) Sync(provider DataProvider, tickers []string, start, end time.Time, timeframe Timeframe) error {
	barRows, err := provider.FetchBars(tickers, start, end, timeframe)
	if err != nil {
		return err
	}
	bars := make([]Bar, 0, len(barRows))
	for _, row := range barRows {
		bars = append(bars, Bar{
			TickerHint: row.Ticker,
			Timestamp:  row.Timestamp,
			Timeframe:  row.Timeframe,
			Open:       row.Open,
			High:       row.High,
			Low:        row.Low,
			Close:      row.Close,
			Volume:     row.Volume,
		})
	}
	if err := s.AddBars(bars); err != nil {
		return err
	}

	caRows, err := provider.FetchCorporateActions(tickers, start, end)
	if err != nil {
		return err
	}
	actions := make([]CorporateAction, 0, len(caRows))
	for _, row := range caRows {
		id, err := s.GetInternalID(row.Ticker, row.ExDate)
		if err != nil {
			return err
		}
		actions = append(actions, CorporateAction{InternalID: id, ExDate: row.ExDate, Kind: row.Kind, Value: row.Value})
	}
	if err := s.AddCorporateActions(actions); err != nil {
		return err
	}

	eventRows, err := provider.FetchEvents(tickers, start, end)
	if err != nil {
		return err
	}
	events := make([]Event, 0, len(eventRows))
	for _, row := range eventRows {
		id, err := s.GetInternalID(row.Ticker, row.Timestamp)
		if err != nil {
			return err
		}
		events = append(events, Event{InternalID: id, Timestamp: row.Timestamp, EventType: row.EventType, Value: row.Value})
	}
	return s.AddEvents(events)
}

// OnLiveBar adapts a StreamingProvider's per-bar callback into a platform
// write, resolving the ticker hint to an internal id as AddBars already
// knows how to.
func (s *Store) OnLiveBar(row BarRow) {
	if err := s.AddBars([]Bar{{
		TickerHint: row.Ticker,
		Timestamp:  row.Timestamp,
		Timeframe:  row.Timeframe,
		Open:       row.Open,
		High:       row.High,
		Low:        row.Low,
		Close:      row.Close,
		Volume:     row.Volume,
	}}); err != nil {
		s.log.Error().Err(err).Str("ticker", row.Ticker).Msg("failed to persist live bar")
	}
}
