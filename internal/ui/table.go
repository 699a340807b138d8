package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/caas-team/lookout/pkg/db"
)

// SparklineWidth is the number of results shown in the target table
const SparklineWidth = 30

// TargetRow is a target together with its probe history
type TargetRow struct {
	Target  db.Target
	History []db.ProbeResult
}

// RenderTargets renders the targets with their latest result and a sparkline of the recent round trips
func RenderTargets(rows []TargetRow) string {
	if len(rows) == 0 {
		return "No targets configured"
	}

	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		status, rtt, loss := "-", "-", "-"
		if n := len(row.History); n > 0 {
			last := row.History[n-1]
			status = RenderStatus(last.Status)
			if last.Status == db.StatusOk {
				rtt = FormatRTT(last.RTT)
			}
			loss = FormatLoss(row.History)
		}
		data = append(data, []string{
			row.Target.ID.String(),
			row.Target.Address.String(),
			status,
			rtt,
			loss,
			RenderSparkline(row.History, SparklineWidth),
		})
	}
	return newTable("ID", "ADDRESS", "STATUS", "RTT", "LOSS", "HISTORY").Rows(data...).String()
}

// RenderResults renders a probe history, oldest result first
func RenderResults(results []db.ProbeResult) string {
	if len(results) == 0 {
		return "No results yet"
	}

	data := make([][]string, 0, len(results))
	for _, r := range results {
		rtt := "-"
		if r.Status == db.StatusOk {
			rtt = FormatRTT(r.RTT)
		}
		data = append(data, []string{
			r.IssuedAt.Local().Format(time.DateTime),
			RenderStatus(r.Status),
			rtt,
			FormatRTT(r.Elapsed),
			r.Reason,
		})
	}
	return newTable("ISSUED", "STATUS", "RTT", "ELAPSED", "REASON").Rows(data...).String()
}

// RenderStatus renders a probe status in its semantic color
func RenderStatus(s db.Status) string {
	color := ColorError
	switch s {
	case db.StatusOk:
		color = ColorSuccess
	case db.StatusTimeout:
		color = ColorWarning
	}
	return lipgloss.NewStyle().Foreground(color).Render(string(s))
}

// FormatRTT formats a duration in milliseconds with two decimals
func FormatRTT(d time.Duration) string {
	return strconv.FormatFloat(float64(d)/float64(time.Millisecond), 'f', 2, 64) + "ms"
}

// FormatLoss returns the share of unsuccessful probes in percent
func FormatLoss(results []db.ProbeResult) string {
	if len(results) == 0 {
		return "-"
	}
	lost := 0
	for _, r := range results {
		if r.Status != db.StatusOk {
			lost++
		}
	}
	return fmt.Sprintf("%.0f%%", float64(lost)/float64(len(results))*100)
}

func newTable(headers ...string) *table.Table {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(ColorPrimary).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorMuted)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}
