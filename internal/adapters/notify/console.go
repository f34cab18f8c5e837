package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/MrShimp/polymarket-robot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implements ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole creates a notifier that writes to stdout. When table is false
// the per-tick output is a single compact line.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter creates a notifier for tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyTick presents the per-tick summary: open positions and ledger state.
func (c *Console) NotifyTick(_ context.Context, open []domain.Position, risk domain.RiskSnapshot) error {
	if c.table {
		c.printFull(open, risk)
	} else {
		c.printCompact(open, risk)
	}
	return nil
}

// printCompact prints the essentials in one line.
func (c *Console) printCompact(open []domain.Position, risk domain.RiskSnapshot) {
	now := time.Now().Format("15:04:05")

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] open:%d pnl:$%.2f streak:%d", now, len(open), risk.DailyRealizedPnL, risk.ConsecutiveLosses)
	if !risk.TradingEnabled {
		fmt.Fprintf(&sb, " HALTED(%s)", risk.HaltReason)
	}

	for i, p := range open {
		if i >= 3 {
			fmt.Fprintf(&sb, " | +%d more", len(open)-3)
			break
		}
		fmt.Fprintf(&sb, " | %s %s@%.3f→%.2f", compactName(p.Question, 22), p.State, p.EntryPrice, p.TargetPrice)
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull prints the open-position table plus the ledger footer.
func (c *Console) printFull(open []domain.Position, risk domain.RiskSnapshot) {
	now := time.Now().Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] %d open position(s)\n", now, len(open))

	if len(open) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("Market", "State", "Entry", "Target", "Stop", "Size$", "Shares", "Deadline", "Retries")

		for _, p := range open {
			table.Append(
				compactName(p.Question, 38),
				string(p.State),
				fmt.Sprintf("%.3f", p.EntryPrice),
				fmt.Sprintf("%.3f", p.TargetPrice),
				fmt.Sprintf("%.3f", p.StopPrice),
				fmt.Sprintf("$%.2f", p.Size),
				fmt.Sprintf("%.1f", p.Shares),
				deadlineLabel(p.Deadline),
				fmt.Sprintf("%d", p.ExitAttempts),
			)
		}
		table.Render()
	}

	fmt.Fprintf(c.out, "  ledger: pnl $%.2f | losses in a row %d | slots %d\n",
		risk.DailyRealizedPnL, risk.ConsecutiveLosses, risk.OpenPositions)
	if !risk.TradingEnabled {
		fmt.Fprintf(c.out, "  !! TRADING HALTED since %s: %s\n",
			risk.HaltedAt.Format("15:04:05"), risk.HaltReason)
	}
}

// NotifyTerminal announces one position reaching Closed or Failed.
func (c *Console) NotifyTerminal(_ context.Context, p domain.Position) error {
	now := time.Now().Format("15:04:05")
	name := compactName(p.Question, 40)

	switch {
	case p.Unreconciled:
		fmt.Fprintf(c.out, "[%s] !! UNRECONCILED %s — manual intervention required (last attempt %d, reason %s)\n",
			now, name, p.ExitAttempts, p.ExitReason)
	case p.State == domain.StateFailed:
		fmt.Fprintf(c.out, "[%s] xx FAILED %s (%s) pnl $%.2f\n", now, name, p.ExitReason, p.RealizedPnL)
	case p.RealizedPnL >= 0:
		fmt.Fprintf(c.out, "[%s] ++ WIN  %s (%s) %.3f→%.3f pnl $%.2f\n",
			now, name, p.ExitReason, p.EntryPrice, p.ExitPrice, p.RealizedPnL)
	default:
		fmt.Fprintf(c.out, "[%s] -- LOSS %s (%s) %.3f→%.3f pnl $%.2f\n",
			now, name, p.ExitReason, p.EntryPrice, p.ExitPrice, p.RealizedPnL)
	}
	return nil
}

// PrintSessionReport prints the trade archive summary for the report command.
func (c *Console) PrintSessionReport(stats domain.SessionStats, positions []domain.Position, breaches []domain.BreachEvent) {
	fmt.Fprintf(c.out, "\n========================================\n")
	fmt.Fprintf(c.out, "  TRADING SESSION REPORT\n")
	if !stats.FirstClosed.IsZero() {
		fmt.Fprintf(c.out, "  %s to %s\n",
			stats.FirstClosed.Format("2006-01-02 15:04"),
			stats.LastClosed.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(c.out, "========================================\n\n")

	if stats.TotalTrades == 0 {
		fmt.Fprintln(c.out, "  No archived trades yet.")
		return
	}

	if len(positions) > 0 {
		table := tablewriter.NewWriter(c.out)
		table.Header("Closed", "Market", "Result", "Reason", "Entry", "Exit", "PnL")
		for _, p := range positions {
			result := "WIN"
			switch {
			case p.Unreconciled:
				result = "UNRECONCILED"
			case p.State == domain.StateFailed:
				result = "FAILED"
			case p.RealizedPnL < 0:
				result = "LOSS"
			}
			table.Append(
				p.ClosedAt.Format("01-02 15:04"),
				compactName(p.Question, 34),
				result,
				string(p.ExitReason),
				fmt.Sprintf("%.3f", p.EntryPrice),
				fmt.Sprintf("%.3f", p.ExitPrice),
				fmt.Sprintf("$%.2f", p.RealizedPnL),
			)
		}
		table.Render()
	}

	fmt.Fprintf(c.out, "\n  Trades:       %d (%d wins / %d losses / %d failed)\n",
		stats.TotalTrades, stats.Wins, stats.Losses, stats.Failed)
	fmt.Fprintf(c.out, "  Win rate:     %.1f%%\n", stats.WinRate()*100)
	fmt.Fprintf(c.out, "  Net P&L:      $%.2f\n", stats.NetPnL)
	if stats.Unreconciled > 0 {
		fmt.Fprintf(c.out, "  !! Unreconciled positions: %d — check the venue manually\n", stats.Unreconciled)
	}

	if len(breaches) > 0 {
		fmt.Fprintf(c.out, "\n  --- RISK BREACHES (%d) ---\n", len(breaches))
		for _, b := range breaches {
			fmt.Fprintf(c.out, "  %s  %s (pnl $%.2f, streak %d)\n",
				b.OccurredAt.Format("01-02 15:04"), b.Reason, b.PnL, b.Losses)
		}
	}
	fmt.Fprintln(c.out)
}

// --- helpers ---

func compactName(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := s[:maxLen]
	if idx := strings.LastIndex(cut, " "); idx > maxLen/2 {
		cut = cut[:idx]
	}
	return cut + "…"
}

func deadlineLabel(t time.Time) string {
	left := time.Until(t)
	if left <= 0 {
		return "now"
	}
	return left.Truncate(time.Second).String()
}
