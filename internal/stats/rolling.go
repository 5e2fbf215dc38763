package stats

// Series pairs a payer with one value per day of the pivot range.
type Series struct {
	Payer  string
	Values []int64
}

// PercentSeries pairs a payer with one percentage per day of the pivot range.
type PercentSeries struct {
	Payer  string
	Values []float64
}

// CumulativeSum returns the running total of values.
func CumulativeSum(values []int64) []int64 {
	out := make([]int64, len(values))
	var run int64
	for i, v := range values {
		run += v
		out[i] = run
	}
	return out
}

// RollingSum returns the trailing-window sum of values. Positions with fewer
// than window preceding values still produce a value from what is available.
func RollingSum(values []int64, window int) []int64 {
	if window < 1 {
		window = 1
	}
	out := make([]int64, len(values))
	var run int64
	for i, v := range values {
		run += v
		if i >= window {
			run -= values[i-window]
		}
		out[i] = run
	}
	return out
}

// RollingMax returns the trailing-window maximum of values, with the same
// short-window semantics as RollingSum.
func RollingMax(values []int64, window int) []int64 {
	if window < 1 {
		window = 1
	}
	out := make([]int64, len(values))
	for i := range values {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		max := values[lo]
		for j := lo + 1; j <= i; j++ {
			if values[j] > max {
				max = values[j]
			}
		}
		out[i] = max
	}
	return out
}

// DailyByPayer returns one zero-filled daily series per payer.
func (t *Table) DailyByPayer() []Series {
	out := make([]Series, len(t.Payers))
	for i, p := range t.Payers {
		out[i] = Series{Payer: p, Values: t.Series(p)}
	}
	return out
}

// CumulativeByPayer returns the running total series per payer.
func (t *Table) CumulativeByPayer() []Series {
	out := make([]Series, len(t.Payers))
	for i, p := range t.Payers {
		out[i] = Series{Payer: p, Values: CumulativeSum(t.Series(p))}
	}
	return out
}

// RollingSumByPayer returns the trailing-window sum series per payer.
func (t *Table) RollingSumByPayer(window int) []Series {
	out := make([]Series, len(t.Payers))
	for i, p := range t.Payers {
		out[i] = Series{Payer: p, Values: RollingSum(t.Series(p), window)}
	}
	return out
}

// RollingMaxByPayer returns the trailing-window max series per payer.
func (t *Table) RollingMaxByPayer(window int) []Series {
	out := make([]Series, len(t.Payers))
	for i, p := range t.Payers {
		out[i] = Series{Payer: p, Values: RollingMax(t.Series(p), window)}
	}
	return out
}

// ShareOfSpend returns, per payer, the cumulative share of total spend as a
// percentage over time: cumsum(payer) / cumsum(everyone) × 100. Days before
// any spending carry 0.
func (t *Table) ShareOfSpend() []PercentSeries {
	totalCum := CumulativeSum(t.DayTotals())
	out := make([]PercentSeries, len(t.Payers))
	for i, p := range t.Payers {
		payerCum := CumulativeSum(t.Series(p))
		vals := make([]float64, len(payerCum))
		for j, v := range payerCum {
			if totalCum[j] > 0 {
				vals[j] = float64(v) / float64(totalCum[j]) * 100
			}
		}
		out[i] = PercentSeries{Payer: p, Values: vals}
	}
	return out
}
