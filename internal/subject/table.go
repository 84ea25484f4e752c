package subject

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/banshee-data/inhibition.report/internal/dip"
)

// TableHeader is the column order of the metrics table.
var TableHeader = []string{
	"subject", "condition", "flash_shown", "stim_jumped",
	"minimum", "magnitude", "bottom", "latency",
}

// WriteTable writes records as tab-separated rows. Flags are written as 0/1
// and a missing latency as NaN. header controls whether the column names are
// written first.
func WriteTable(w io.Writer, subjectID string, records []dip.Record, header bool) error {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'
	if header {
		if err := tw.Write(TableHeader); err != nil {
			return err
		}
	}
	for _, r := range records {
		latency := "NaN"
		if r.LatencyOK {
			latency = strconv.Itoa(r.Latency)
		}
		row := []string{
			subjectID,
			r.Condition,
			flag(r.FlashShown),
			flag(r.StimJumped),
			strconv.FormatFloat(r.Minimum, 'g', -1, 64),
			strconv.FormatFloat(r.Magnitude, 'g', -1, 64),
			strconv.Itoa(r.Bottom),
			latency,
		}
		if err := tw.Write(row); err != nil {
			return err
		}
	}
	tw.Flush()
	return tw.Error()
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
