package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// LoadCSV reads a series from a CSV file whose columns are laid out as
// ny observation channels, then nu control channels, then nz behavior
// channels. A single non-numeric header row is skipped.
func LoadCSV(path string, ny, nu, nz int) (*Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: opening %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("dataset: reading %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset: %s is empty", path)
	}

	want := ny + nu + nz
	start := 0
	if _, err := strconv.ParseFloat(records[0][0], 64); err != nil {
		start = 1
	}
	rows := records[start:]
	if len(rows) == 0 {
		return nil, fmt.Errorf("dataset: %s has no data rows", path)
	}

	y := mat.NewDense(len(rows), ny, nil)
	u := mat.NewDense(len(rows), nu, nil)
	z := mat.NewDense(len(rows), nz, nil)
	for i, rec := range rows {
		if len(rec) != want {
			return nil, fmt.Errorf("dataset: row %d has %d columns, want %d", start+i+1, len(rec), want)
		}
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("dataset: row %d column %d: %w", start+i+1, j+1, err)
			}
			switch {
			case j < ny:
				y.Set(i, j, v)
			case j < ny+nu:
				u.Set(i, j-ny, v)
			default:
				z.Set(i, j-ny-nu, v)
			}
		}
	}
	return NewSeries(y, u, z)
}

// WriteCSV writes the series in the column layout read by LoadCSV, with a
// header row naming each channel.
func (s *Series) WriteCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: creating %s: %w", path, err)
	}
	defer f.Close()

	ny, nu, nz := s.Dims()
	w := csv.NewWriter(f)

	header := make([]string, 0, ny+nu+nz)
	for j := 0; j < ny; j++ {
		header = append(header, fmt.Sprintf("y%d", j))
	}
	for j := 0; j < nu; j++ {
		header = append(header, fmt.Sprintf("u%d", j))
	}
	for j := 0; j < nz; j++ {
		header = append(header, fmt.Sprintf("z%d", j))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, ny+nu+nz)
	for i := 0; i < s.Len(); i++ {
		for j := 0; j < ny; j++ {
			row[j] = strconv.FormatFloat(s.Y.At(i, j), 'g', -1, 64)
		}
		for j := 0; j < nu; j++ {
			row[ny+j] = strconv.FormatFloat(s.U.At(i, j), 'g', -1, 64)
		}
		for j := 0; j < nz; j++ {
			row[ny+nu+j] = strconv.FormatFloat(s.Z.At(i, j), 'g', -1, 64)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
