package library

import (
	"testing"
	"time"

	"github.com/aristath/systrader/internal/alpha"
	"github.com/aristath/systrader/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFrame(id uint64, closes []float64, opens []float64, volumes []float64) platform.Frame {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	frame := make(platform.Frame, len(closes))
	for i, c := range closes {
		frame[i] = platform.FrameRow{
			InternalID: id,
			Timestamp:  t0.AddDate(0, 0, i),
			Columns: map[string]float64{
				"close_1D":  c,
				"open_1D":   opens[i],
				"volume_1D": volumes[i],
			},
		}
	}
	return frame
}

func TestSMA10_RegisteredAndComputesRollingMean(t *testing.T) {
	closes := make([]float64, 15)
	opens := make([]float64, 15)
	volumes := make([]float64, 15)
	for i := range closes {
		closes[i] = float64(i + 1)
		opens[i] = float64(i + 1)
		volumes[i] = 100
	}
	frame := buildFrame(1000, closes, opens, volumes)

	hydrated := alpha.Hydrate(frame, []string{"sma_10_1D"})
	last := hydrated[len(hydrated)-1]
	assert.InDelta(t, 10.5, last.Columns["sma_10_1D"], 1e-9) // mean of 6..15
}

func TestMACD_DependsOnBothEMAs(t *testing.T) {
	closes := make([]float64, 30)
	opens := make([]float64, 30)
	volumes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 + float64(i)
		opens[i] = closes[i]
		volumes[i] = 100
	}
	frame := buildFrame(1000, closes, opens, volumes)

	hydrated := alpha.Hydrate(frame, []string{"macd_1D"})
	last := hydrated[len(hydrated)-1]
	require.Contains(t, last.Columns, "ema_12_1D")
	require.Contains(t, last.Columns, "ema_26_1D")
	assert.InDelta(t, last.Columns["ema_12_1D"]-last.Columns["ema_26_1D"], last.Columns["macd_1D"], 1e-6)
}

func TestOFI_SignsByCloseVsOpen(t *testing.T) {
	frame := buildFrame(1000,
		[]float64{10, 9},
		[]float64{9, 10},
		[]float64{50, 60},
	)
	hydrated := alpha.Hydrate(frame, []string{"ofi_1D"})
	assert.InDelta(t, 50.0, hydrated[0].Columns["ofi_1D"], 1e-9)
	assert.InDelta(t, -60.0, hydrated[1].Columns["ofi_1D"], 1e-9)
}
