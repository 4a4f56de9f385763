package report

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteFillsCSV writes one row per fill (§9 "per-fill CSV"). Uses the
// standard library's encoding/csv directly: no pack repo wraps CSV
// writing in a third-party library, and the format itself (a handful of
// numeric/timestamp columns) has no parsing ambiguity that would benefit
// from one.
func WriteFillsCSV(w io.Writer, fills []FillRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"ts_ms", "realized_pnl", "fee"}); err != nil {
		return err
	}
	for _, f := range fills {
		row := []string{
			strconv.FormatInt(f.TsMs, 10),
			strconv.FormatFloat(f.RealizedPnL, 'f', -1, 64),
			strconv.FormatFloat(f.Fee, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

// WriteEquityCSV writes one row per bar's equity sample (§9 "per-bar
// equity CSV").
func WriteEquityCSV(w io.Writer, curve []EquityPoint) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"ts_ms", "equity"}); err != nil {
		return err
	}
	for _, p := range curve {
		row := []string{
			strconv.FormatInt(p.TsMs, 10),
			strconv.FormatFloat(p.Equity, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}
