package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"trading-signals/internal/model"
)

func renderSummary(w io.Writer, res *result, runID string) {
	keys := make([]string, 0, len(res.stats))
	for k := range res.stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	setStyle(t)
	t.SetTitle("Signal replay " + runID)
	t.AppendHeader(table.Row{"Series", "Bars", model.LabelL, model.LabelLPlus, model.LabelR, model.LabelRPlus, "Suppressed", "Rejected"})

	var total seriesStats
	total.fired = make(map[string]int)
	for _, k := range keys {
		s := res.stats[k]
		t.AppendRow(table.Row{k, s.bars,
			s.fired[model.LabelL], s.fired[model.LabelLPlus], s.fired[model.LabelR], s.fired[model.LabelRPlus],
			s.suppressed, s.rejected})
		total.bars += s.bars
		total.suppressed += s.suppressed
		total.rejected += s.rejected
		for l, n := range s.fired {
			total.fired[l] += n
		}
	}
	t.AppendFooter(table.Row{"Total", total.bars,
		total.fired[model.LabelL], total.fired[model.LabelLPlus], total.fired[model.LabelR], total.fired[model.LabelRPlus],
		total.suppressed, total.rejected})
	t.Render()
}

func renderSignals(w io.Writer, fired []model.SignalEvent) {
	if len(fired) == 0 {
		fmt.Fprintln(w, "no signals fired")
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(w)
	setStyle(t)
	t.AppendHeader(table.Row{"Time", "Series", "Bar", "Signal", "Close", "K", "D", "RSI"})
	for _, ev := range fired {
		t.AppendRow(table.Row{
			ev.TS.UTC().Format("2006-01-02 15:04"),
			ev.Symbol + ":" + ev.Timeframe,
			ev.EventIndex,
			strings.Join(ev.Labels, " "),
			fmt.Sprintf("%.2f", ev.Frame.Bar.Close),
			num(ev.Frame.K), num(ev.Frame.D), num(ev.Frame.RSI),
		})
	}
	t.Render()
}

// num prints unavailable values as "-".
func num(v float64) string {
	if !model.Available(v) {
		return "-"
	}
	return fmt.Sprintf("%.1f", v)
}

// setStyle is StyleLight without the upper-cased title, header and footer.
func setStyle(t table.Writer) {
	t.SetStyle(table.StyleLight)
	t.Style().Title.Format = text.FormatDefault
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
}
