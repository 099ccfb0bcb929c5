package dataprovider

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aristath/systrader/internal/platform"
)

// LoadBarsCSV reads rows of "ticker,timestamp,timeframe,open,high,low,close,volume"
// (RFC3339 timestamps) into m, for the backtest driver to seed a Memory
// provider from a fixture file without any network dependency.
func LoadBarsCSV(m *Memory, r io.Reader) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 8

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("reading csv header: %w", err)
	}
	_ = header

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading csv row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339, record[1])
		if err != nil {
			return fmt.Errorf("parsing timestamp %q: %w", record[1], err)
		}
		open, _ := strconv.ParseFloat(record[3], 64)
		high, _ := strconv.ParseFloat(record[4], 64)
		low, _ := strconv.ParseFloat(record[5], 64)
		closePrice, _ := strconv.ParseFloat(record[6], 64)
		volume, _ := strconv.ParseFloat(record[7], 64)

		m.AddBar(platform.BarRow{
			Ticker:    record[0],
			Timestamp: ts,
			Timeframe: platform.Timeframe(record[2]),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closePrice,
			Volume:    volume,
		})
	}
	return nil
}
