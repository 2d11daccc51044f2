package signal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate_FiniteForAllSmallTables(t *testing.T) {
	for a := 0; a <= 4; a++ {
		for b := 0; b <= 4; b++ {
			for c := 0; c <= 4; c++ {
				for d := 0; d <= 4; d++ {
					e := Estimate(Table{A: a, B: b, C: c, D: d})
					for _, v := range []float64{e.OddsRatio, e.ORCILower, e.ORCIUpper, e.PRR, e.PRRSE, e.PRRCILower, e.PRRCIUpper} {
						if math.IsNaN(v) || math.IsInf(v, 0) {
							t.Fatalf("non-finite estimate for a=%d b=%d c=%d d=%d: %+v", a, b, c, d, e)
						}
					}
					assert.LessOrEqual(t, e.ORCILower, e.OddsRatio)
					assert.GreaterOrEqual(t, e.ORCIUpper, e.OddsRatio)
					assert.LessOrEqual(t, e.PRRCILower, e.PRR)
					assert.GreaterOrEqual(t, e.PRRCIUpper, e.PRR)
				}
			}
		}
	}
}

func TestEstimate_KnownTable(t *testing.T) {
	e := Estimate(Table{Term: "headache", A: 10, B: 90, C: 50, D: 9950})

	a, b, c, d := 10.5, 90.5, 50.5, 9950.5
	wantOR := a * d / (b * c)
	wantPRR := (a / (a + b)) / (c / (c + d))
	wantPRRSE := math.Sqrt(1/a + 1/c - 1/(a+b) - 1/(c+d))

	assert.InDelta(t, wantOR, e.OddsRatio, 1e-9)
	assert.InDelta(t, math.Sqrt(1/a+1/b+1/c+1/d), e.ORSE, 1e-12)
	assert.InDelta(t, wantPRR, e.PRR, 1e-9)
	assert.InDelta(t, 20.588, e.PRR, 1e-3)
	assert.InDelta(t, wantPRRSE, e.PRRSE, 1e-12)
	assert.InDelta(t, wantPRR*math.Exp(-1.96*wantPRRSE), e.PRRCILower, 1e-9)
	assert.InDelta(t, wantPRR*math.Exp(1.96*wantPRRSE), e.PRRCIUpper, 1e-9)
	assert.Greater(t, e.PRRCILower, 1.0)
}

func TestEstimate_AllZeroTable(t *testing.T) {
	e := Estimate(Table{})

	assert.InDelta(t, 1.0, e.OddsRatio, 1e-12)
	assert.InDelta(t, 1.0, e.PRR, 1e-12)
	assert.InDelta(t, math.Sqrt(8), e.ORSE, 1e-12)
}
