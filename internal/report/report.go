// Package report tallies the per-fill and per-bar records a run produces
// into a Binance-agnostic summary: win rate, profit factor, Sharpe/Sortino
// ratios, max drawdown and average weekly/monthly return. Grounded on the
// teacher's win/loss tally in backtest.go (runBacktest counts EXIT P/L>0
// as a win, P/L<0 as a loss and logs "Wins=%d Losses=%d Equity=%.2f" at
// the end of a run), generalized from a log line into a structured,
// queryable summary.
package report

import (
	"math"
)

// FillRecord is the subset of a committed fill the summary needs.
type FillRecord struct {
	TsMs        int64
	RealizedPnL float64
	Fee         float64
}

// EquityPoint is one sample of the equity curve (§3 EquitySample).
type EquityPoint struct {
	TsMs   int64
	Equity float64
}

// Summary is the run-level report (§9: "win-rate/profit-factor/Sharpe/
// Sortino/max-drawdown/avg weekly-monthly-return JSON summary").
type Summary struct {
	Wins           int     `json:"wins"`
	Losses         int     `json:"losses"`
	WinRate        float64 `json:"winRate"`
	GrossProfit    float64 `json:"grossProfit"`
	GrossLoss      float64 `json:"grossLoss"`
	ProfitFactor   float64 `json:"profitFactor"`
	TotalFees      float64 `json:"totalFees"`
	NetPnL         float64 `json:"netPnl"`
	Sharpe         float64 `json:"sharpe"`
	Sortino        float64 `json:"sortino"`
	MaxDrawdown    float64 `json:"maxDrawdown"`
	MaxDrawdownPct float64 `json:"maxDrawdownPct"`
	AvgWeeklyPct   float64 `json:"avgWeeklyReturnPct"`
	AvgMonthlyPct  float64 `json:"avgMonthlyReturnPct"`
	StartEquity    float64 `json:"startEquity"`
	EndEquity      float64 `json:"endEquity"`
}

// Summarize computes a Summary from a run's fills and equity curve. curve
// must be sorted by TsMs ascending; fills need not be.
func Summarize(fills []FillRecord, curve []EquityPoint) Summary {
	var s Summary
	for _, f := range fills {
		s.TotalFees += f.Fee
		switch {
		case f.RealizedPnL > 0:
			s.Wins++
			s.GrossProfit += f.RealizedPnL
		case f.RealizedPnL < 0:
			s.Losses++
			s.GrossLoss += -f.RealizedPnL
		}
	}
	if total := s.Wins + s.Losses; total > 0 {
		s.WinRate = float64(s.Wins) / float64(total)
	}
	if s.GrossLoss > 0 {
		s.ProfitFactor = s.GrossProfit / s.GrossLoss
	} else if s.GrossProfit > 0 {
		s.ProfitFactor = math.Inf(1)
	}
	s.NetPnL = s.GrossProfit - s.GrossLoss - s.TotalFees

	if len(curve) > 0 {
		s.StartEquity = curve[0].Equity
		s.EndEquity = curve[len(curve)-1].Equity
	}

	returns := periodReturns(curve)
	s.Sharpe = sharpeRatio(returns)
	s.Sortino = sortinoRatio(returns)
	s.MaxDrawdown, s.MaxDrawdownPct = maxDrawdown(curve)
	s.AvgWeeklyPct = avgReturnOverWindow(curve, 7*24*60*60*1000)
	s.AvgMonthlyPct = avgReturnOverWindow(curve, 30*24*60*60*1000)
	return s
}

// periodReturns computes the simple return between consecutive equity
// samples.
func periodReturns(curve []EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		out = append(out, (curve[i].Equity-prev)/prev)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}

func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	sd := stdDev(returns, m)
	if sd == 0 {
		return 0
	}
	return m / sd
}

func sortinoRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	m := mean(returns)
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	dsd := stdDev(downside, 0)
	if dsd == 0 {
		return 0
	}
	return m / dsd
}

// maxDrawdown returns the largest peak-to-trough drop in absolute and
// percentage terms.
func maxDrawdown(curve []EquityPoint) (abs float64, pct float64) {
	if len(curve) == 0 {
		return 0, 0
	}
	peak := curve[0].Equity
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		dd := peak - p.Equity
		if dd > abs {
			abs = dd
			if peak != 0 {
				pct = dd / peak
			}
		}
	}
	return abs, pct
}

// avgReturnOverWindow buckets the equity curve into non-overlapping
// windows of windowMs and averages the return within each bucket.
func avgReturnOverWindow(curve []EquityPoint, windowMs int64) float64 {
	if len(curve) < 2 {
		return 0
	}
	var returns []float64
	bucketStart := curve[0].Equity
	bucketTs := curve[0].TsMs
	for i := 1; i < len(curve); i++ {
		if curve[i].TsMs-bucketTs >= windowMs {
			if bucketStart != 0 {
				returns = append(returns, (curve[i-1].Equity-bucketStart)/bucketStart)
			}
			bucketStart = curve[i-1].Equity
			bucketTs = curve[i].TsMs
		}
	}
	last := curve[len(curve)-1]
	if bucketStart != 0 && last.TsMs != bucketTs {
		returns = append(returns, (last.Equity-bucketStart)/bucketStart)
	}
	return mean(returns)
}
