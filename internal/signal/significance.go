package signal

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// yatesCorrection is the maximum shift applied to each |observed - expected|
const yatesCorrection = 0.5

// chiSquaredDF1 is the reference distribution for a 2x2 table
var chiSquaredDF1 = distuv.ChiSquared{K: 1}

// ChiSquaredResult is the outcome of the independence test on one table.
// Defined is false when a marginal total is zero and the test has no value.
type ChiSquaredResult struct {
	Statistic float64
	PValue    float64
	Defined   bool
}

// ChiSquared runs Pearson's chi-squared test of independence with Yates'
// continuity correction on the raw integer cells of the table.
func ChiSquared(t Table) ChiSquaredResult {
	observed := [2][2]float64{
		{float64(t.A), float64(t.B)},
		{float64(t.C), float64(t.D)},
	}
	rows := [2]float64{observed[0][0] + observed[0][1], observed[1][0] + observed[1][1]}
	cols := [2]float64{observed[0][0] + observed[1][0], observed[0][1] + observed[1][1]}
	n := rows[0] + rows[1]

	if rows[0] == 0 || rows[1] == 0 || cols[0] == 0 || cols[1] == 0 {
		return ChiSquaredResult{}
	}

	stat := 0.0
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			expected := rows[i] * cols[j] / n
			diff := math.Abs(observed[i][j] - expected)
			diff -= math.Min(yatesCorrection, diff)
			stat += diff * diff / expected
		}
	}

	p := chiSquaredDF1.Survival(stat)
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}

	return ChiSquaredResult{
		Statistic: stat,
		PValue:    p,
		Defined:   true,
	}
}
