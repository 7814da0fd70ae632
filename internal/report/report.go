// Package report renders orchestration results as plain text for the
// command-line front end. Formatting is pure; nothing here talks to the
// exchange.
package report

import (
	"fmt"
	"strings"

	"github.com/rxtech-lab/argo-signal/internal/journal"
	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/shopspring/decimal"
)

// FormatPlacement renders a placement report, including any protective legs
// that were rejected.
func FormatPlacement(report types.PlacementReport) string {
	var sb strings.Builder

	sb.WriteString(report.Summary)
	sb.WriteString(fmt.Sprintf("\nOrder ID: %s", report.OrderID))

	if len(report.LegFailures) > 0 {
		sb.WriteString("\n\nWarning: some protective orders were not placed:")

		for _, failure := range report.LegFailures {
			sb.WriteString(fmt.Sprintf("\n  - leg at %s: %s", formatPrice(failure.Price), failure.Reason))
		}
	}

	return sb.String()
}

// FormatPositions renders open positions, one block per symbol.
func FormatPositions(positions []types.PositionSnapshot) string {
	if len(positions) == 0 {
		return "No open positions."
	}

	var sb strings.Builder

	for i, position := range positions {
		if i > 0 {
			sb.WriteString("\n\n")
		}

		direction := "LONG"
		if position.Side == types.SideSell {
			direction = "SHORT"
		}

		sb.WriteString(fmt.Sprintf("%s %s %s @ %dx", position.Symbol, direction, position.Size, position.Leverage))
		sb.WriteString(fmt.Sprintf("\n  Entry: %s  Mark: %s", formatPrice(position.EntryPrice), formatPrice(position.MarkPrice)))
		sb.WriteString(fmt.Sprintf("\n  PnL: %.2f USDT (%.2f%%)", position.UnrealizedPnL, position.PnLPercentage()))

		if position.LiquidationPrice > 0 {
			sb.WriteString(fmt.Sprintf("\n  Liquidation: %s", formatPrice(position.LiquidationPrice)))
		}
	}

	return sb.String()
}

// FormatClose renders a close result.
func FormatClose(result types.CloseResult) string {
	return result.Message
}

// FormatCloseAll renders a close-all partition.
func FormatCloseAll(result types.CloseAllResult) string {
	if len(result.Closed) == 0 && len(result.Failed) == 0 {
		return "No open positions to close."
	}

	var sb strings.Builder

	if len(result.Closed) > 0 {
		sb.WriteString(fmt.Sprintf("Closed: %s", strings.Join(result.Closed, ", ")))
	}

	if len(result.Failed) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}

		sb.WriteString("Failed:")

		for _, failure := range result.Failed {
			sb.WriteString(fmt.Sprintf("\n  - %s: %s", failure.Symbol, failure.Reason))
		}
	}

	return sb.String()
}

// FormatBalance renders the available settle-currency balance.
func FormatBalance(balance decimal.Decimal) string {
	return fmt.Sprintf("Available balance: %s USDT", balance.StringFixed(2))
}

// FormatHistory renders recent journal entries, newest first.
func FormatHistory(entries []journal.Entry) string {
	if len(entries) == 0 {
		return "No recorded activity."
	}

	var sb strings.Builder

	for i, entry := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}

		status := "OK"
		if !entry.Success {
			status = "FAILED"
		}

		sb.WriteString(fmt.Sprintf("%s  %-5s  %-10s  %s %s @ %s  [%s]",
			entry.Timestamp.Format("2006-01-02 15:04:05"),
			entry.Kind, entry.Symbol, entry.Side, entry.Quantity,
			formatPrice(entry.Price), status))
	}

	return sb.String()
}

func formatPrice(price float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", price), "0"), ".")
}
