package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ConflictVol/pkg/logger"
	"ConflictVol/pkg/util"
)

// CleanRow is one trading day of a cleaned commodity series. Missing numeric
// fields are NaN; Price is mandatory, Volume is not.
type CleanRow struct {
	Date      time.Time
	Price     float64
	Open      float64
	High      float64
	Low       float64
	Volume    float64
	ChangePct float64
}

// Loader reads raw Investing.com CSV "parts". The parts are not well-formed
// CSV: each line is a full record, fields may carry embedded quotes, thousands
// separators, % signs and K/M volume suffixes, and dates are strictly
// US-format MM/DD/YYYY. Deviations become missing values, never misparses.
type Loader struct {
	log *logger.Logger
}

func NewLoader(log *logger.Logger) *Loader {
	return &Loader{log: log.Component("loader")}
}

// LoadParts merges all CSV parts in a directory into one clean series sorted
// by date, first occurrence winning on duplicate dates.
func (l *Loader) LoadParts(dir string) ([]CleanRow, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("glob parts: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CSV parts found in %s", dir)
	}
	sort.Strings(files)

	var all []CleanRow
	for _, f := range files {
		rows, err := l.readPart(f)
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", filepath.Base(f), err)
		}
		all = append(all, rows...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no valid data extracted from %s", dir)
	}
	return dedupeByDate(all), nil
}

func (l *Loader) readPart(path string) ([]CleanRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		l.log.Warn("empty part ignored", logger.String("file", filepath.Base(path)))
		return nil, nil
	}

	headerIdx := 0
	for i, line := range lines {
		if strings.Contains(line, "Date") {
			headerIdx = i
			break
		}
	}
	columns := parseHeader(lines[headerIdx])
	idx := columnIndex(columns)
	if idx.date < 0 {
		l.log.Warn("'Date' column not found, part skipped",
			logger.String("file", filepath.Base(path)),
			logger.Strings("columns", columns))
		return nil, nil
	}

	rows := make([]CleanRow, 0, len(lines))
	for i, line := range lines {
		if i == headerIdx || strings.TrimSpace(line) == "" {
			continue
		}
		fields := splitRecord(line, len(columns))

		date, ok := util.ParseUSDate(fields[idx.date])
		if !ok {
			continue
		}
		row := CleanRow{
			Date:      util.Day(date),
			Price:     numericAt(fields, idx.price),
			Open:      numericAt(fields, idx.open),
			High:      numericAt(fields, idx.high),
			Low:       numericAt(fields, idx.low),
			Volume:    numericAt(fields, idx.volume),
			ChangePct: numericAt(fields, idx.change),
		}
		// Volume may be missing; a row without a price is unusable.
		if math.IsNaN(row.Price) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type colIndex struct {
	date, price, open, high, low, volume, change int
}

// columnIndex maps header names to positions, folding the naming variants the
// raw downloads use (Last/Dernier for Price, Volume for Vol., Var. % for
// Change %).
func columnIndex(columns []string) colIndex {
	ci := colIndex{date: -1, price: -1, open: -1, high: -1, low: -1, volume: -1, change: -1}
	for i, c := range columns {
		switch c {
		case "Date":
			ci.date = i
		case "Price", "Last", "Dernier":
			ci.price = i
		case "Open":
			ci.open = i
		case "High":
			ci.high = i
		case "Low":
			ci.low = i
		case "Vol.", "Volume":
			ci.volume = i
		case "Change %", "Var. %":
			ci.change = i
		}
	}
	return ci
}

func numericAt(fields []string, i int) float64 {
	if i < 0 || i >= len(fields) {
		return math.NaN()
	}
	return util.ParseNumeric(fields[i])
}

func parseHeader(line string) []string {
	parts := strings.Split(line, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.Trim(p, "\"' ")
	}
	return out
}

// splitRecord splits a raw line on commas outside quotes and pads or truncates
// to nCols.
func splitRecord(line string, nCols int) []string {
	values := make([]string, 0, nCols)
	var current strings.Builder
	inQuotes := false

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			values = append(values, strings.Trim(current.String(), "\"' "))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	if current.Len() > 0 {
		values = append(values, strings.Trim(current.String(), "\"' "))
	}

	for len(values) < nCols {
		values = append(values, "")
	}
	return values[:nCols]
}

func dedupeByDate(rows []CleanRow) []CleanRow {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	out := rows[:0]
	var last time.Time
	for _, r := range rows {
		if !last.IsZero() && r.Date.Equal(last) {
			continue
		}
		out = append(out, r)
		last = r.Date
	}
	return out
}

// WriteClean persists a cleaned series as a well-formed CSV.
func WriteClean(path string, rows []CleanRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Date", "Price", "Open", "High", "Low", "Vol.", "Change %"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.Date.Format("2006-01-02"),
			formatFloat(r.Price),
			formatFloat(r.Open),
			formatFloat(r.High),
			formatFloat(r.Low),
			formatFloat(r.Volume),
			formatFloat(r.ChangePct),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%g", v)
}
