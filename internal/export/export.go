package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/ufosim/internal/sim"
)

// CSVHeader is the column order of WriteCSV.
var CSVHeader = []string{"t", "theta", "omega", "error", "u"}

func WriteJSON(w io.Writer, tr *sim.Trace) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(tr)
}

func ReadJSON(r io.Reader) (*sim.Trace, error) {
	var tr sim.Trace
	if err := json.NewDecoder(r).Decode(&tr); err != nil {
		return nil, err
	}
	return &tr, nil
}

// WriteCSV writes one row per sample. Values use the shortest
// representation that round-trips.
func WriteCSV(w io.Writer, samples []sim.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}

	row := make([]string, len(CSVHeader))
	for _, s := range samples {
		for i, v := range []float64{s.Time, s.Theta, s.Omega, s.Error, s.U} {
			row[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) ([]sim.Sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(CSVHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty csv")
	}

	samples := make([]sim.Sample, 0, len(records)-1)
	for line, record := range records[1:] {
		var vals [5]float64
		for i, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %s: %w", line+2, CSVHeader[i], err)
			}
			vals[i] = v
		}
		samples = append(samples, sim.Sample{
			Time:  vals[0],
			Theta: vals[1],
			Omega: vals[2],
			Error: vals[3],
			U:     vals[4],
		})
	}
	return samples, nil
}
