package signal

import "math"

const (
	// continuityCorrection is added to every cell before ratios are taken
	continuityCorrection = 0.5
	// z95 is the two-sided normal quantile for a 95% interval
	z95 = 1.96
)

// Effect holds the disproportionality estimates for one table
type Effect struct {
	OddsRatio  float64
	ORSE       float64
	ORCILower  float64
	ORCIUpper  float64
	PRR        float64
	PRRSE      float64
	PRRCILower float64
	PRRCIUpper float64
}

// Estimate computes the odds ratio and proportional reporting ratio with
// log-scale (delta method) 95% intervals. 0.5 is added to every cell first,
// so the result is finite for any non-negative table.
func Estimate(t Table) Effect {
	a := float64(t.A) + continuityCorrection
	b := float64(t.B) + continuityCorrection
	c := float64(t.C) + continuityCorrection
	d := float64(t.D) + continuityCorrection

	or := (a * d) / (b * c)
	orSE := math.Sqrt(1/a + 1/b + 1/c + 1/d)
	orLow, orHigh := logInterval(or, orSE)

	prr := (a / (a + b)) / (c / (c + d))
	prrSE := math.Sqrt(1/a + 1/c - 1/(a+b) - 1/(c+d))
	prrLow, prrHigh := logInterval(prr, prrSE)

	return Effect{
		OddsRatio:  or,
		ORSE:       orSE,
		ORCILower:  orLow,
		ORCIUpper:  orHigh,
		PRR:        prr,
		PRRSE:      prrSE,
		PRRCILower: prrLow,
		PRRCIUpper: prrHigh,
	}
}

// logInterval returns exp(log(ratio) -/+ z*se)
func logInterval(ratio, se float64) (float64, float64) {
	logRatio := math.Log(ratio)
	return math.Exp(logRatio - z95*se), math.Exp(logRatio + z95*se)
}
