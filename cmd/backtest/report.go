package main

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Rapprise/b2s-trader-sub002/internal/model"
	"github.com/Rapprise/b2s-trader-sub002/internal/portfolio"
)

// planStats summarises the signals of one plan on one symbol. Trades are
// long-only single-unit round trips: a buy opens a position when flat, the
// next sell closes it.
type planStats struct {
	Plan   string
	Symbol string
	Buys   int
	Sells  int
	Trades int
	Wins   int
	PnLPct float64 // sum of round-trip returns in percent
}

// report collects the outcome of a backtest run.
type report struct {
	Candles  int
	Symbols  []string
	Duration time.Duration
	Signals  []model.Signal

	pnl  *portfolio.PnLTracker
	last map[string]float64 // latest signal price per position key
}

// Publish records a signal and books its paper trade; report is a session
// sink.
func (r *report) Publish(sig model.Signal) {
	if r.pnl == nil {
		r.pnl = portfolio.NewPnLTracker()
		r.last = make(map[string]float64)
	}
	r.Signals = append(r.Signals, sig)
	r.last[portfolio.Key(sig)] = sig.Price

	held := r.pnl.Position(portfolio.Key(sig)).Qty
	switch {
	case sig.Side == model.SideBuy && held == 0:
		r.pnl.RecordSignal(sig, 1)
	case sig.Side == model.SideSell && held > 0:
		r.pnl.RecordSignal(sig, held)
	}
}

func (r *report) stats() []*planStats {
	byKey := make(map[string]*planStats)
	get := func(sig model.Signal) *planStats {
		key := portfolio.Key(sig)
		st, ok := byKey[key]
		if !ok {
			st = &planStats{Plan: sig.Strategy, Symbol: sig.Symbol}
			byKey[key] = st
		}
		return st
	}

	for _, sig := range r.Signals {
		st := get(sig)
		if sig.Side == model.SideBuy {
			st.Buys++
		} else {
			st.Sells++
		}
	}
	if r.pnl != nil {
		for _, tr := range r.pnl.Trades() {
			if tr.Side != model.SideSell {
				continue
			}
			st := byKey[tr.Key]
			st.Trades++
			st.PnLPct += tr.ReturnPct
			if tr.ReturnPct > 0 {
				st.Wins++
			}
		}
	}

	out := make([]*planStats, 0, len(byKey))
	for _, st := range byKey {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Plan != out[j].Plan {
			return out[i].Plan < out[j].Plan
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// Render writes the summary table and, when verbose, every signal.
func (r *report) Render(w io.Writer, verbose bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle(fmt.Sprintf("BACKTEST: %d candles, %d symbols, %d signals in %s",
		r.Candles, len(r.Symbols), len(r.Signals), r.Duration.Round(time.Millisecond)))
	t.AppendHeader(table.Row{"Plan", "Symbol", "Buys", "Sells", "Trades", "Win %", "PnL %"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	var total float64
	for _, st := range r.stats() {
		winPct := 0.0
		if st.Trades > 0 {
			winPct = float64(st.Wins) / float64(st.Trades) * 100
		}
		t.AppendRow(table.Row{st.Plan, st.Symbol, st.Buys, st.Sells, st.Trades,
			fmt.Sprintf("%.1f", winPct), fmt.Sprintf("%.2f", st.PnLPct)})
		total += st.PnLPct
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", fmt.Sprintf("%.2f", total)})
	if r.pnl != nil {
		sum := r.pnl.Summary(r.last)
		t.SetCaption("realized %.4f, unrealized %.4f, open positions %d",
			sum.RealizedPnL, sum.UnrealizedPnL, sum.OpenPositions)
	}
	t.Render()

	if !verbose || len(r.Signals) == 0 {
		return
	}

	renderSignals(w, r.Signals)
}

// renderSignals writes one row per signal.
func renderSignals(w io.Writer, signals []model.Signal) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Time", "Plan", "Symbol", "Side", "Price", "Point"})
	for _, sig := range signals {
		t.AppendRow(table.Row{sig.TS.UTC().Format(time.RFC3339), sig.Strategy, sig.Symbol,
			sig.Side, fmt.Sprintf("%.4f", sig.Price), fmt.Sprintf("%.4f", sig.Point)})
	}
	t.Render()
}
