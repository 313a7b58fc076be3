package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/updownbot/internal/domain"
	"github.com/olekukonko/tablewriter"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
// table=false imprime una línea por despacho en vez de la tabla.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyDispatch imprime el resultado de un pase de despacho.
func (c *Console) NotifyDispatch(_ context.Context, period int64, results []domain.DispatchResult) error {
	c.PrintDispatch(period, results)
	return nil
}

// PrintDispatch imprime el resumen del pase del periodo.
func (c *Console) PrintDispatch(period int64, results []domain.DispatchResult) {
	now := time.Now().Format("15:04:05")
	if len(results) == 0 {
		fmt.Fprintf(c.out, "[%s] period %s: no opportunities\n", now, periodLabel(period))
		return
	}

	placed, skipped, failed := countResults(results)
	if !c.table {
		var sb strings.Builder
		fmt.Fprintf(&sb, "[%s] period %s → placed:%d skipped:%d failed:%d",
			now, periodLabel(period), placed, skipped, failed)
		for _, r := range results {
			fmt.Fprintf(&sb, " | %s %s", r.Opportunity.TokenType, resultStatus(r))
		}
		fmt.Fprintln(c.out, sb.String())
		return
	}

	fmt.Fprintf(c.out, "\n[%s] period %s (elapsed %ds) placed:%d skipped:%d failed:%d\n",
		now, periodLabel(period), results[0].Opportunity.Elapsed, placed, skipped, failed)

	table := tablewriter.NewWriter(c.out)
	table.Header("Token", "Bid", "Price", "Size", "Order", "Status", "Error")
	for _, r := range results {
		size, order := "-", "-"
		if r.Position != nil {
			size = fmt.Sprintf("%.2f", r.Position.Size)
			order = truncate(r.Position.OrderID, 18)
		}
		errMsg := ""
		if r.Err != nil {
			errMsg = truncate(r.Err.Error(), 40)
		}
		table.Append(
			r.Opportunity.TokenType.String(),
			fmt.Sprintf("%.2f", r.Opportunity.Bid),
			fmt.Sprintf("%.2f", r.Opportunity.Price),
			size,
			order,
			resultStatus(r),
			errMsg,
		)
	}
	table.Render()
}

// PrintMarkets imprime los mercados resueltos de un periodo.
func (c *Console) PrintMarkets(period int64, markets map[domain.Asset]domain.Market) {
	fmt.Fprintf(c.out, "\nmarkets for period %s\n", periodLabel(period))
	for _, a := range domain.Assets() {
		m, ok := markets[a]
		if !ok {
			continue
		}
		if m.Placeholder {
			fmt.Fprintf(c.out, "  %-4s %s\n", a, m.Question)
			continue
		}
		fmt.Fprintf(c.out, "  %-4s %s  [%s]\n", a, domain.TruncateQuestion(m.Question, m.Slug, 60), m.ConditionID)
	}
}

// PrintJournal imprime el reporte del diario: órdenes y mercados recientes.
func (c *Console) PrintJournal(orders []domain.Position, starts []domain.MarketStart) {
	fmt.Fprintf(c.out, "\n=== DISPATCH JOURNAL (%d orders) ===\n", len(orders))
	if len(orders) == 0 {
		fmt.Fprintln(c.out, "  no orders recorded")
	} else {
		tbl := tablewriter.NewWriter(c.out)
		tbl.Header("Placed", "Period", "Token", "Price", "Size", "Cost$", "Mode", "Order", "Status")
		var cost float64
		for _, p := range orders {
			mode := "live"
			if p.Simulated {
				mode = "sim"
			}
			cost += p.Cost()
			tbl.Append(
				p.PlacedAt.Local().Format("01-02 15:04:05"),
				periodLabel(p.Period),
				p.TokenType.String(),
				fmt.Sprintf("%.2f", p.Price),
				fmt.Sprintf("%.2f", p.Size),
				fmt.Sprintf("%.2f", p.Cost()),
				mode,
				truncate(p.OrderID, 18),
				string(p.Status),
			)
		}
		tbl.Render()
		fmt.Fprintf(c.out, "  total committed: $%.2f\n", cost)
	}

	if len(starts) == 0 {
		return
	}
	fmt.Fprintf(c.out, "\n=== MARKET STARTS ===\n")
	tbl := tablewriter.NewWriter(c.out)
	tbl.Header("Period", "Asset", "Slug", "Condition")
	for _, ms := range starts {
		slug := ms.Slug
		if ms.Placeholder {
			slug += " (disabled)"
		}
		tbl.Append(periodLabel(ms.Period), string(ms.Asset), slug, truncate(ms.ConditionID, 18))
	}
	tbl.Render()
}

func countResults(results []domain.DispatchResult) (placed, skipped, failed int) {
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
		case r.Err != nil:
			failed++
		case r.Position != nil:
			placed++
		}
	}
	return
}

func resultStatus(r domain.DispatchResult) string {
	switch {
	case r.Skipped:
		return "SKIPPED"
	case r.Err != nil:
		return "FAILED"
	case r.Position != nil:
		return string(r.Position.Status)
	}
	return "-"
}

// periodLabel muestra el inicio del periodo en hora local junto al epoch.
func periodLabel(period int64) string {
	return fmt.Sprintf("%d (%s)", period, time.Unix(period, 0).Local().Format("15:04"))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
