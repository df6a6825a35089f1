package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV writes a metric,score table.
func WriteCSV(w io.Writer, rep *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"metric", "score"}); err != nil {
		return err
	}
	if rep.Metrics != nil {
		for _, s := range rep.Metrics.Scores() {
			if err := cw.Write([]string{s.Name, strconv.FormatFloat(s.Value, 'g', -1, 64)}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
