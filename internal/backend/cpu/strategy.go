package cpu

import "github.com/klauspost/cpuid/v2"

// Strategy selects how the gather kernels walk the marked buffer.
// Both strategies produce bit-identical results.
type Strategy int

const (
	// StrategyScalar scans the marked buffer once and gathers each origin's
	// neighbourhood as soon as it is found.
	StrategyScalar Strategy = iota

	// StrategyBatch first collects every origin index, then gathers all
	// neighbourhoods from the flattened origin+offset index grid.
	StrategyBatch
)

// String returns the strategy name used in logs and metric labels.
func (s Strategy) String() string {
	switch s {
	case StrategyScalar:
		return "scalar"
	case StrategyBatch:
		return "batch"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a strategy name back to its value.
func ParseStrategy(name string) (Strategy, bool) {
	switch name {
	case "scalar":
		return StrategyScalar, true
	case "batch":
		return StrategyBatch, true
	default:
		return 0, false
	}
}

// DefaultStrategy picks the batched gather on CPUs with AVX2, where the
// separate index pass pipelines well, and the scalar loop elsewhere.
func DefaultStrategy() Strategy {
	if cpuid.CPU.Supports(cpuid.AVX2) {
		return StrategyBatch
	}
	return StrategyScalar
}
