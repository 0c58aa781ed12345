package design

import "fmt"

// Sentinel marks a pair that must never be linked (no road path).
const Sentinel = 1e9

// DistanceMatrix holds origin×destination distances in meters, row-major.
type DistanceMatrix struct {
	Rows   int
	Cols   int
	values []float64
}

// NewDistanceMatrix returns a zeroed rows×cols matrix.
func NewDistanceMatrix(rows, cols int) *DistanceMatrix {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("design: negative matrix dimension %dx%d", rows, cols))
	}
	return &DistanceMatrix{Rows: rows, Cols: cols, values: make([]float64, rows*cols)}
}

// MatrixFromRows builds a matrix from a slice of equal-length rows.
func MatrixFromRows(rows [][]float64) (*DistanceMatrix, error) {
	if len(rows) == 0 {
		return NewDistanceMatrix(0, 0), nil
	}
	m := NewDistanceMatrix(len(rows), len(rows[0]))
	for i, row := range rows {
		if len(row) != m.Cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(row), m.Cols)
		}
		for j, v := range row {
			if v < 0 {
				return nil, fmt.Errorf("entry (%d,%d) is negative: %f", i, j, v)
			}
			m.Set(i, j, v)
		}
	}
	return m, nil
}

// At returns the distance from origin i to destination j.
func (m *DistanceMatrix) At(i, j int) float64 {
	return m.values[i*m.Cols+j]
}

// Set stores the distance from origin i to destination j.
func (m *DistanceMatrix) Set(i, j int, v float64) {
	m.values[i*m.Cols+j] = v
}

// Row returns a view of row i. Callers must not retain it across Set calls on other goroutines.
func (m *DistanceMatrix) Row(i int) []float64 {
	return m.values[i*m.Cols : (i+1)*m.Cols]
}

// Within reports whether pair (i,j) may be linked under the given ceiling.
func (m *DistanceMatrix) Within(i, j int, ceiling float64) bool {
	v := m.At(i, j)
	return v < Sentinel && v <= ceiling
}

// Reachable returns the destinations of row i within the ceiling, in index order.
func (m *DistanceMatrix) Reachable(i int, ceiling float64) []int {
	var out []int
	for j := 0; j < m.Cols; j++ {
		if m.Within(i, j, ceiling) {
			out = append(out, j)
		}
	}
	return out
}

// RowMin returns the smallest entry of row i and its column, or (Sentinel, -1) for an empty row.
func (m *DistanceMatrix) RowMin(i int) (float64, int) {
	best, arg := Sentinel, -1
	for j, v := range m.Row(i) {
		if v < best {
			best, arg = v, j
		}
	}
	return best, arg
}

// ToRows copies the matrix into a slice of rows.
func (m *DistanceMatrix) ToRows() [][]float64 {
	out := make([][]float64, m.Rows)
	for i := range out {
		out[i] = append([]float64(nil), m.Row(i)...)
	}
	return out
}
