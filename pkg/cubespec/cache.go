package cubespec

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// FitResultCache persists per-star, per-method spectrum tables as CSV
// files under one directory, with an atomically-written completion marker
// per star. The marker alone decides a cache hit: a star without its
// marker recomputes from scratch, so a crash mid-persist never leaves a
// half-trusted table behind.
type FitResultCache struct {
	Dir string
}

func NewFitResultCache(dir string) *FitResultCache {
	return &FitResultCache{Dir: dir}
}

func (c *FitResultCache) tablePath(ident string, m Method) string {
	return filepath.Join(c.Dir, fmt.Sprintf("%s_%s.csv", ident, m))
}

func (c *FitResultCache) markerPath(ident string) string {
	return filepath.Join(c.Dir, ident+".done")
}

// Complete reports whether the star has a finished persist pass.
func (c *FitResultCache) Complete(ident string) bool {
	_, err := os.Stat(c.markerPath(ident))
	return err == nil
}

// Invalidate removes a star's marker and tables.
func (c *FitResultCache) Invalidate(ident string) error {
	if err := os.Remove(c.markerPath(ident)); err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, m := range Methods {
		if err := os.Remove(c.tablePath(ident, m)); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// Store writes one CSV table per method plus the completion marker. The
// marker lands last, via rename, so readers only ever trust fully
// written stars.
func (c *FitResultCache) Store(ident string, spectra map[Method][]float64, stats []GoodnessStats) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}

	for _, m := range Methods {
		if err := c.writeTable(ident, m, spectra[m], stats); err != nil {
			return err
		}
	}

	tmp := c.markerPath(ident) + ".tmp"
	if err := os.WriteFile(tmp, []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing cache marker: %w", err)
	}
	if err := os.Rename(tmp, c.markerPath(ident)); err != nil {
		return fmt.Errorf("committing cache marker: %w", err)
	}
	return nil
}

func (c *FitResultCache) writeTable(ident string, m Method, seq []float64, stats []GoodnessStats) error {
	f, err := os.Create(c.tablePath(ident, m))
	if err != nil {
		return fmt.Errorf("creating cache table: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"index", "intensity", "chi_squared", "reduced_chi_squared", "r_squared"}); err != nil {
		return err
	}
	for i, v := range seq {
		st := missingGoodness()
		if i < len(stats) {
			st = stats[i]
		}
		row := []string{
			strconv.Itoa(i),
			formatCell(v),
			formatCell(st.ChiSquared),
			formatCell(st.ReducedChiSquared),
			formatCell(st.RSquared),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("writing cache table: %w", err)
	}
	return nil
}

// Load reads the three method tables back. Sequences come out in table
// order; the shared goodness stats are taken from the peak table (all
// three tables carry identical stats columns).
func (c *FitResultCache) Load(ident string) (map[Method][]float64, []GoodnessStats, error) {
	spectra := make(map[Method][]float64, len(Methods))
	var stats []GoodnessStats

	for _, m := range Methods {
		seq, tableStats, err := c.readTable(ident, m)
		if err != nil {
			return nil, nil, err
		}
		spectra[m] = seq
		if m == MethodPeak {
			stats = tableStats
		}
	}
	return spectra, stats, nil
}

func (c *FitResultCache) readTable(ident string, m Method) ([]float64, []GoodnessStats, error) {
	f, err := os.Open(c.tablePath(ident, m))
	if err != nil {
		return nil, nil, fmt.Errorf("opening cache table: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading cache table %s/%s: %w", ident, m, err)
	}
	if len(rows) > 0 && rows[0][0] == "index" {
		rows = rows[1:]
	}

	seq := make([]float64, 0, len(rows))
	stats := make([]GoodnessStats, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			return nil, nil, fmt.Errorf("cache table %s/%s: short row %v", ident, m, row)
		}
		seq = append(seq, parseCell(row[1]))
		stats = append(stats, GoodnessStats{
			ChiSquared:        parseCell(row[2]),
			ReducedChiSquared: parseCell(row[3]),
			RSquared:          parseCell(row[4]),
		})
	}
	return seq, stats, nil
}

// Missing values serialize as empty cells, not "NaN", so the tables stay
// loadable by column-oriented tools.
func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func parseCell(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
