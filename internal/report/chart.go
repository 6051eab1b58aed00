package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/eitopstats/topstats/internal/dps"
	"github.com/eitopstats/topstats/internal/engine"
)

const chartHeight = "500px"

// FightsChart plots squad damage per fight with enemy kills and squad deaths
// on a second series set.
func FightsChart(res *engine.Result) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Top Stats", Width: "100%", Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Squad Damage per Fight"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Fight"}),
	)

	labels := make([]string, len(res.Fights))
	damage := make([]opts.BarData, len(res.Fights))
	kills := make([]opts.BarData, len(res.Fights))
	deaths := make([]opts.BarData, len(res.Fights))
	for i, f := range res.Fights {
		labels[i] = strconv.Itoa(f.Number)
		damage[i] = opts.BarData{Value: f.SquadDamage, Name: f.Name}
		kills[i] = opts.BarData{Value: f.EnemyKills}
		deaths[i] = opts.BarData{Value: f.SquadDeaths}
	}
	bar.SetXAxis(labels).
		AddSeries("Damage", damage).
		AddSeries("Enemy Kills", kills).
		AddSeries("Squad Deaths", deaths)
	return bar
}

// DamageChart plots the top n players by total damage.
func DamageChart(t *dps.Table, n int) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Top Damage"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 30, Interval: "0"}}),
	)

	stats := ranked(t, func(s *dps.Stats) float64 { return s.DamageTotal })
	stats = stats[:min(n, len(stats))]
	labels := make([]string, len(stats))
	data := make([]opts.BarData, len(stats))
	for i, s := range stats {
		labels[i] = s.Name + " (" + s.Profession + ")"
		data[i] = opts.BarData{Value: s.DamageTotal}
	}
	bar.SetXAxis(labels).AddSeries("Damage", data)
	return bar
}

// Chart renders the chart page of a run as HTML.
func Chart(w io.Writer, res *engine.Result, topN int) error {
	if topN <= 0 {
		topN = DefaultTopN
	}
	page := components.NewPage()
	page.PageTitle = "Top Stats"
	page.AddCharts(FightsChart(res), DamageChart(res.Derived, topN))
	return page.Render(w)
}

// WriteChart renders the chart page to path.
func WriteChart(path string, res *engine.Result, topN int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := Chart(f, res, topN); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return f.Close()
}
