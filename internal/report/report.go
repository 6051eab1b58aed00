// Package report renders a finished run for people: console tables and an
// HTML chart page.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/eitopstats/topstats/internal/dps"
	"github.com/eitopstats/topstats/internal/engine"
)

// DefaultTopN is the number of players listed per ranking.
const DefaultTopN = 10

// BurstWindow is the burst window shown in the console.
const BurstWindow = 5

// Options controls the console output.
type Options struct {
	Color bool
	TopN  int
}

func (o Options) topN() int {
	if o.TopN <= 0 {
		return DefaultTopN
	}
	return o.TopN
}

// Console writes the fight overview, damage and burst rankings and the
// high-score boards to w.
func Console(w io.Writer, res *engine.Result, o Options) error {
	heading := color.New(color.FgCyan, color.Bold)
	if !o.Color {
		heading.DisableColor()
	}

	sections := []struct {
		title string
		tbl   table.Writer
	}{
		{"Fights", FightsTable(res)},
		{"Top Damage", DamageTable(res.Derived, o.topN())},
		{fmt.Sprintf("Top %ds Burst", BurstWindow), BurstTable(res.Derived, BurstWindow, o.topN())},
		{"High Scores", HighScoreTable(res)},
		{"Firebrand Pages", FirebrandTable(res.Derived)},
	}
	for _, s := range sections {
		if _, err := fmt.Fprintf(w, "\n%s\n%s\n", heading.Sprint(s.title), s.tbl.Render()); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d fights, %d players, %s sanitized values\n",
		res.LastFight, len(res.Players), humanize.Comma(int64(res.Sanitized)))
	return err
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	return tbl
}

func rightAligned(cols ...int) []table.ColumnConfig {
	out := make([]table.ColumnConfig, 0, len(cols))
	for _, c := range cols {
		out = append(out, table.ColumnConfig{Number: c, Align: text.AlignRight})
	}
	return out
}

// FightsTable lists every fight with squad and enemy totals.
func FightsTable(res *engine.Result) table.Writer {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "Map", "Start", "Duration", "Squad", "Enemies", "Damage", "Downs", "Kills", "Deaths"})
	tbl.SetColumnConfigs(rightAligned(1, 4, 5, 6, 7, 8, 9, 10))

	var dur, dmg, kills float64
	for _, f := range res.Fights {
		tbl.AppendRow(table.Row{
			f.Number, f.Name, f.TimeStart, formatSeconds(f.DurationSeconds()),
			f.SquadCount, f.EnemyCount, humanize.Comma(int64(f.SquadDamage)),
			f.EnemyDowns, f.EnemyKills, f.SquadDeaths,
		})
		dur += f.DurationSeconds()
		dmg += f.SquadDamage
		kills += f.EnemyKills
	}
	tbl.AppendFooter(table.Row{"", "Total", "", formatSeconds(dur), "", "", humanize.Comma(int64(dmg)), "", kills, ""})
	return tbl
}

// DamageTable ranks derived stats by total damage.
func DamageTable(t *dps.Table, n int) table.Writer {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Rank", "Name", "Profession", "Role", "Fights", "Damage", "DPS", "Coordination"})
	tbl.SetColumnConfigs(rightAligned(1, 5, 6, 7, 8))

	stats := ranked(t, func(s *dps.Stats) float64 { return s.DamageTotal })
	for i, s := range stats[:min(n, len(stats))] {
		tbl.AppendRow(table.Row{
			i + 1, s.Name, s.Profession, s.Role.String(), s.Fights,
			humanize.Comma(int64(s.DamageTotal)),
			humanize.FormatFloat("#,###.", perSecond(s.DamageTotal, s.CombatTimeS)),
			humanize.FormatFloat("#,###.##", perSecond(s.CoordinationDamage, s.CombatTimeS)),
		})
	}
	return tbl
}

// BurstTable ranks derived stats by their best burst over window seconds.
func BurstTable(t *dps.Table, window, n int) table.Writer {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Rank", "Name", "Profession", "Role", "Burst", "Ch5Ca Burst"})
	tbl.SetColumnConfigs(rightAligned(1, 5, 6))

	at := func(series []float64) float64 {
		if window < len(series) {
			return series[window]
		}
		return 0
	}
	stats := ranked(t, func(s *dps.Stats) float64 { return at(s.BurstDamage) })
	for i, s := range stats[:min(n, len(stats))] {
		tbl.AppendRow(table.Row{
			i + 1, s.Name, s.Profession, s.Role.String(),
			humanize.Comma(int64(at(s.BurstDamage))),
			humanize.Comma(int64(at(s.Ch5CaBurstDamage))),
		})
	}
	return tbl
}

// HighScoreTable lists every leaderboard, metrics in name order.
func HighScoreTable(res *engine.Result) table.Writer {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Metric", "Rank", "Player", "Profession", "Fight", "Per Second"})
	tbl.SetColumnConfigs(append(rightAligned(2, 5, 6), table.ColumnConfig{Number: 1, AutoMerge: true}))

	metrics := make([]string, 0, len(res.HighScores))
	for m := range res.HighScores {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	for _, m := range metrics {
		for i, s := range res.HighScores[m] {
			name, prof, fight := splitScoreKey(s.Key)
			tbl.AppendRow(table.Row{m, i + 1, name, prof, fight, humanize.FormatFloat("#,###.###", s.Value)})
		}
	}
	return tbl
}

// FirebrandTable lists tome chapter casts per Firebrand, busiest first.
func FirebrandTable(t *dps.Table) table.Writer {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Name", "Fight Time", "Pages", "Pages/min"})
	tbl.SetColumnConfigs(rightAligned(2, 3, 4))
	if t == nil {
		return tbl
	}

	pages := make([]*dps.FirebrandPages, 0, len(t.Pages))
	for _, fp := range t.Pages {
		pages = append(pages, fp)
	}
	sort.Slice(pages, func(i, j int) bool {
		if a, b := pages[i].PagesPerMinute(), pages[j].PagesPerMinute(); a != b {
			return a > b
		}
		return pages[i].Name < pages[j].Name
	})
	for _, fp := range pages {
		var n int
		for _, c := range fp.Pages {
			n += c
		}
		tbl.AppendRow(table.Row{
			fp.Name, formatSeconds(fp.FightTimeS), n,
			humanize.FormatFloat("#,###.##", fp.PagesPerMinute()),
		})
	}
	return tbl
}

func ranked(t *dps.Table, value func(*dps.Stats) float64) []*dps.Stats {
	if t == nil {
		return nil
	}
	out := make([]*dps.Stats, 0, len(t.Stats))
	for _, s := range t.Stats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		vi, vj := value(out[i]), value(out[j])
		if vi != vj {
			return vi > vj
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Profession < out[j].Profession
	})
	return out
}

func perSecond(v, seconds float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return v / seconds
}

func formatSeconds(s float64) string {
	total := int(s)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// splitScoreKey splits a "name|profession|fight" high-score key.
func splitScoreKey(key string) (name, profession, fight string) {
	parts := strings.SplitN(key, "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}
