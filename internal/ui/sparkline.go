package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/caas-team/lookout/pkg/db"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
const sparklineBlocks = "▁▂▃▄▅▆▇█"

// Characters used for probes without a round trip time
const (
	sparklineTimeout = '·'
	sparklineFailure = '×'
)

var sparklineBlockRunes = []rune(sparklineBlocks)

// RenderSparkline renders the round trip times of the most recent width results.
// Successful probes are mapped to 8 levels between the fastest and the slowest
// round trip, timeouts and failures are rendered as markers.
func RenderSparkline(results []db.ProbeResult, width int) string {
	if len(results) == 0 || width <= 0 {
		return ""
	}
	if len(results) > width {
		results = results[len(results)-width:]
	}

	minRTT, maxRTT := rttRange(results)
	valueRange := maxRTT - minRTT
	numLevels := len(sparklineBlockRunes)

	okStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	timeoutStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	failureStyle := lipgloss.NewStyle().Foreground(ColorError)

	var sb strings.Builder
	for _, r := range results {
		switch r.Status {
		case db.StatusOk:
			level := numLevels / 2
			if valueRange > 0 {
				level = int(float64(r.RTT-minRTT) / float64(valueRange) * float64(numLevels-1))
				level = max(0, min(level, numLevels-1))
			}
			sb.WriteString(okStyle.Render(string(sparklineBlockRunes[level])))
		case db.StatusTimeout:
			sb.WriteString(timeoutStyle.Render(string(sparklineTimeout)))
		default:
			sb.WriteString(failureStyle.Render(string(sparklineFailure)))
		}
	}
	return sb.String()
}

// rttRange returns the fastest and the slowest round trip of all successful results
func rttRange(results []db.ProbeResult) (lo, hi time.Duration) {
	first := true
	for _, r := range results {
		if r.Status != db.StatusOk {
			continue
		}
		if first || r.RTT < lo {
			lo = r.RTT
		}
		if first || r.RTT > hi {
			hi = r.RTT
		}
		first = false
	}
	return lo, hi
}
