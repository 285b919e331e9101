// Package relaxation implements the optional Lane-Emden density relaxation
// pass: a radial restoring force that settles an initial particle
// distribution onto the polytropic (n=1.5) equilibrium profile before the
// physical integration begins.
package relaxation

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/gocarina/gocsv"
)

//go:embed data/lane_emden_n1.5.csv
var defaultTableCSV []byte

// laneEmdenRow is one row of the Lane-Emden xi/theta lookup table, tagged
// for gocsv's header-driven unmarshal.
type laneEmdenRow struct {
	Xi    float64 `csv:"xi"`
	Theta float64 `csv:"theta"`
}

// Table holds a loaded Lane-Emden (n=1.5) xi/theta solution and provides
// piecewise-linear interpolation and differentiation, with linear
// extrapolation outside the tabulated range.
type Table struct {
	xi    []float64
	theta []float64
	file  string
}

// LoadTable reads a two-column (xi, theta) CSV table from path. An empty
// path loads the embedded n=1.5 solution (data/lane_emden_n1.5.csv,
// integrated once offline and shipped with the binary) instead of requiring
// every scenario to carry its own copy.
func LoadTable(path string) (*Table, error) {
	var rows []laneEmdenRow
	if path == "" {
		if err := gocsv.UnmarshalBytes(defaultTableCSV, &rows); err != nil {
			return nil, fmt.Errorf("relaxation: parse embedded lane-emden table: %w", err)
		}
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("relaxation: open lane-emden table: %w", err)
		}
		defer f.Close()
		if err := gocsv.UnmarshalFile(f, &rows); err != nil {
			return nil, fmt.Errorf("relaxation: parse lane-emden table: %w", err)
		}
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("relaxation: lane-emden table %s has fewer than 2 rows", path)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Xi < rows[j].Xi })

	t := &Table{file: path}
	for _, r := range rows {
		t.xi = append(t.xi, r.Xi)
		t.theta = append(t.theta, r.Theta)
	}
	return t, nil
}

// Theta interpolates theta(xi), linearly extrapolating outside the table.
func (t *Table) Theta(xi float64) float64 {
	n := len(t.xi)
	if n < 2 {
		if xi < 1e-6 {
			return 1
		}
		return 0
	}
	if xi <= t.xi[0] {
		return t.theta[0] + t.slope(0)*(xi-t.xi[0])
	}
	if xi >= t.xi[n-1] {
		return t.theta[n-1] + t.slope(n-2)*(xi-t.xi[n-1])
	}
	i := t.bracket(xi)
	frac := (xi - t.xi[i]) / (t.xi[i+1] - t.xi[i])
	return t.theta[i] + frac*(t.theta[i+1]-t.theta[i])
}

// DTheta returns a numerical estimate of dtheta/dxi at xi, matching the
// small-central-difference approach used for the tabulated profile.
func (t *Table) DTheta(xi float64) float64 {
	const eps = 1e-5
	return (t.Theta(xi+eps) - t.Theta(xi-eps)) / (2 * eps)
}

func (t *Table) slope(i int) float64 {
	return (t.theta[i+1] - t.theta[i]) / (t.xi[i+1] - t.xi[i])
}

func (t *Table) bracket(xi float64) int {
	i := 0
	for ; i < len(t.xi)-1; i++ {
		if xi < t.xi[i+1] {
			break
		}
	}
	return i
}
