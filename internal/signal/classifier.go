package signal

const (
	signalMinPRR   = 2.0
	signalMinCount = 3
	signalMinLower = 1.0
)

// IsSignal applies the PRR screening rule: PRR >= 2, at least 3 exposed
// reports, and a PRR interval lying entirely above 1. The corrected p-value
// is reported alongside and is not part of the rule.
func IsSignal(a int, prr, prrLower float64) bool {
	return prr >= signalMinPRR && a >= signalMinCount && prrLower > signalMinLower
}
