package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"ConflictVol/pkg/logger"
	"ConflictVol/pkg/util"
)

// Event is one reduced UCDP GED record: best-estimate deaths aggregated by
// date, country, violence type, conflict and region.
type Event struct {
	Date     time.Time
	Country  string
	Region   string
	Type     string
	Conflict string
	Deaths   float64
}

// Panel is a daily conflict-intensity panel on a full calendar grid:
// zero-filled fatality counts plus derived log-intensity, shock flags and
// EWMA-smoothed columns.
type Panel struct {
	Dates   []time.Time
	Columns map[string][]float64
}

// Column returns the named series, or nil.
func (p *Panel) Column(name string) []float64 { return p.Columns[name] }

// At looks up a column value by date; ok is false outside the grid.
func (p *Panel) At(name string, date time.Time) (float64, bool) {
	col, exists := p.Columns[name]
	if !exists || len(p.Dates) == 0 {
		return 0, false
	}
	d := util.Day(date)
	offset := int(d.Sub(p.Dates[0]).Hours() / 24)
	if offset < 0 || offset >= len(p.Dates) {
		return 0, false
	}
	return col[offset], true
}

// PanelParams controls panel derivation.
type PanelParams struct {
	Lambdas         []float64 // EWMA smoothing factors, e.g. 0.94, 0.97
	ShockPercentile float64   // expanding quantile defining a fatality shock
	ShockMinHistory int       // days of history required before shocks activate
}

// ReduceGED streams the raw UCDP GED file, keeps events on or after cutoff,
// and aggregates deaths by (date, country, type, conflict, region).
func ReduceGED(path string, cutoff time.Time, log *logger.Logger) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GED file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read GED header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"date_start", "country", "best"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("GED file missing column %q", required)
		}
	}

	type key struct {
		date                             time.Time
		country, region, vtype, conflict string
	}
	agg := map[key]float64{}
	read, dropped := 0, 0

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read GED record: %w", err)
		}
		read++

		date, ok := util.ParseISODate(field(rec, col, "date_start"))
		if !ok || date.Before(cutoff) {
			dropped++
			continue
		}
		deaths := util.ParseNumeric(field(rec, col, "best"))
		if math.IsNaN(deaths) || deaths < 0 {
			deaths = 0
		}
		k := key{
			date:     util.Day(date),
			country:  field(rec, col, "country"),
			region:   field(rec, col, "region"),
			vtype:    field(rec, col, "type_of_violence"),
			conflict: field(rec, col, "conflict_name"),
		}
		agg[k] += deaths
	}

	events := make([]Event, 0, len(agg))
	for k, deaths := range agg {
		events = append(events, Event{
			Date:     k.date,
			Country:  k.country,
			Region:   k.region,
			Type:     k.vtype,
			Conflict: k.conflict,
			Deaths:   deaths,
		})
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].Country < events[j].Country
	})

	log.Info("GED reduced",
		logger.Int("records_read", read),
		logger.Int("records_dropped", dropped),
		logger.Int("aggregated_rows", len(events)))
	return events, nil
}

func field(rec []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// BuildDailyPanel aggregates events to a full daily calendar between start and
// end and derives the index columns. The shock threshold at day t is the
// expanding quantile over days strictly before t, so the flag never observes
// its own day.
func BuildDailyPanel(events []Event, start, end time.Time, p PanelParams) *Panel {
	start, end = util.Day(start), util.Day(end)
	nDays := int(end.Sub(start).Hours()/24) + 1
	if nDays <= 0 {
		return &Panel{Columns: map[string][]float64{}}
	}

	dates := make([]time.Time, nDays)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
	}

	fatal := make([]float64, nDays)
	for _, e := range events {
		offset := int(e.Date.Sub(start).Hours() / 24)
		if offset < 0 || offset >= nDays {
			continue
		}
		fatal[offset] += e.Deaths
	}

	logFatal := make([]float64, nDays)
	for i, v := range fatal {
		logFatal[i] = math.Log1p(v)
	}

	shock := expandingShock(fatal, p.ShockPercentile, p.ShockMinHistory)

	cols := map[string][]float64{
		"fatal":       fatal,
		"log_fatal":   logFatal,
		"fatal_shock": shock,
	}
	for _, lam := range p.Lambdas {
		suffix := fmt.Sprintf("ewma_%d", int(lam*100))
		cols["log_fatal_"+suffix] = ewma(logFatal, lam)
		cols["fatal_shock_"+suffix] = ewma(shock, lam)
	}
	return &Panel{Dates: dates, Columns: cols}
}

// ewma is the adjust=false exponentially weighted mean:
// s_0 = x_0, s_t = (1-lambda)*x_t + lambda*s_{t-1}.
func ewma(values []float64, lambda float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = (1-lambda)*values[i] + lambda*out[i-1]
	}
	return out
}

// expandingShock flags day t when its fatality count strictly exceeds the
// q-quantile of all days before t. Inactive (zero) until minHistory prior
// days exist.
func expandingShock(fatal []float64, q float64, minHistory int) []float64 {
	out := make([]float64, len(fatal))
	history := make([]float64, 0, len(fatal))

	for i, v := range fatal {
		if len(history) >= minHistory {
			threshold := quantile(history, q)
			if v > threshold {
				out[i] = 1
			}
		}
		// insert keeping history sorted
		pos := sort.SearchFloat64s(history, v)
		history = append(history, 0)
		copy(history[pos+1:], history[pos:])
		history[pos] = v
	}
	return out
}

// quantile computes the linearly interpolated q-quantile of a sorted slice.
func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// IndexParams selects which panels to build and from which event subsets.
type IndexParams struct {
	Start, End        time.Time
	KeepRegions       []string
	OilFocusCountries []string
	GasFocusCountries []string
	Panel             PanelParams
}

// BuildConflictIndices derives the full set of daily panels: the global index,
// one per kept region, and the oil/gas focus country baskets. Panel tags are
// lower_snake_case ("middle_east", "oil_focus", ...).
func BuildConflictIndices(events []Event, p IndexParams, log *logger.Logger) map[string]*Panel {
	panels := map[string]*Panel{
		"global": BuildDailyPanel(events, p.Start, p.End, p.Panel),
	}

	for _, region := range p.KeepRegions {
		subset := filterEvents(events, func(e Event) bool { return e.Region == region })
		panels[tagFor(region)] = BuildDailyPanel(subset, p.Start, p.End, p.Panel)
	}
	if len(p.OilFocusCountries) > 0 {
		in := toSet(p.OilFocusCountries)
		subset := filterEvents(events, func(e Event) bool { return in[e.Country] })
		panels["oil_focus"] = BuildDailyPanel(subset, p.Start, p.End, p.Panel)
	}
	if len(p.GasFocusCountries) > 0 {
		in := toSet(p.GasFocusCountries)
		subset := filterEvents(events, func(e Event) bool { return in[e.Country] })
		panels["gas_focus"] = BuildDailyPanel(subset, p.Start, p.End, p.Panel)
	}

	tags := make([]string, 0, len(panels))
	for tag := range panels {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	log.Info("conflict indices built", logger.Strings("panels", tags))
	return panels
}

func tagFor(region string) string {
	return strings.ToLower(strings.ReplaceAll(region, " ", "_"))
}

func filterEvents(events []Event, keep func(Event) bool) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}

// WritePanel persists a panel as CSV with deterministic column order.
func WritePanel(path string, p *Panel) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	names := make([]string, 0, len(p.Columns))
	for name := range p.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	w := csv.NewWriter(f)
	if err := w.Write(append([]string{"Date"}, names...)); err != nil {
		return err
	}
	for i, d := range p.Dates {
		rec := make([]string, 0, len(names)+1)
		rec = append(rec, d.Format("2006-01-02"))
		for _, name := range names {
			rec = append(rec, fmt.Sprintf("%g", p.Columns[name][i]))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
