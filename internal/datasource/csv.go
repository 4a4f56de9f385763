// Package datasource provides replay.Source implementations that load a
// bar sequence for a (symbol, interval, start, end) window: a CSV file
// reader grounded on the teacher's loadCSV (backtest.go), and an HTTP
// scraper grounded on the pack's resty usage.
package datasource

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/uri157/exchange-simulator/internal/core"
)

// CSV loads bars from a local file with headers time|timestamp, open,
// high, low, close, volume — the same flexible header matching as the
// teacher's loadCSV, generalized to produce core.Bar instead of Candle.
type CSV struct {
	Path string
}

// LoadBars implements replay.Source. symbol/interval/startMs/endMs filter
// rows already loaded from Path; CSV rows carry no symbol column, so
// symbol is stamped onto every bar as given.
func (c CSV) LoadBars(_ context.Context, symbol, _ string, startMs, endMs int64) ([]core.Bar, error) {
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var out []core.Bar
	var headers []string
	rowIdx := 0

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if rowIdx == 0 {
			headers = rec
			rowIdx++
			continue
		}
		row := map[string]string{}
		for j, h := range headers {
			k := strings.ToLower(strings.TrimSpace(h))
			if j < len(rec) {
				row[k] = strings.TrimSpace(rec[j])
			}
		}
		ts := first(row, "time", "timestamp", "open_time")
		op := first(row, "open")
		hp := first(row, "high")
		lp := first(row, "low")
		cp := first(row, "close")
		vp := first(row, "volume", "vol")
		if ts == "" || op == "" || cp == "" {
			continue
		}
		openMs, err := parseTimeFlexibleMs(ts)
		if err != nil {
			continue
		}
		if openMs < startMs || (endMs > 0 && openMs > endMs) {
			rowIdx++
			continue
		}
		o, _ := strconv.ParseFloat(op, 64)
		h, _ := strconv.ParseFloat(hp, 64)
		l, _ := strconv.ParseFloat(lp, 64)
		cl, _ := strconv.ParseFloat(cp, 64)
		v, _ := strconv.ParseFloat(vp, 64)
		closeMs := first(row, "close_time")
		closeTimeMs := openMs + 1
		if closeMs != "" {
			if cm, err := parseTimeFlexibleMs(closeMs); err == nil {
				closeTimeMs = cm
			}
		}
		out = append(out, core.Bar{
			Symbol:      symbol,
			OpenTimeMs:  openMs,
			CloseTimeMs: closeTimeMs,
			Open:        o,
			High:        h,
			Low:         l,
			Close:       cl,
			Volume:      v,
		})
		rowIdx++
	}

	sort.Slice(out, func(i, j int) bool { return out[i].OpenTimeMs < out[j].OpenTimeMs })
	return out, nil
}

func first(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

func parseTimeFlexibleMs(s string) (int64, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UnixMilli(), nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 1e12 {
			return n * 1000, nil
		}
		return n, nil
	}
	return 0, &time.ParseError{Value: s}
}
