package projection

// Config carries the tunables the core consumes. Loading it from flags,
// environment, or a config file is the caller's concern (see
// cmd/tmpld/config.go for the demo daemon's take on that) — the core only
// ever sees the resolved struct.
type Config struct {
	// BlockWeightUnits is the maximum weight of a non-overflow projected
	// block.
	BlockWeightUnits int64

	// MempoolBlocksAmount is the maximum number of projected blocks,
	// including the overflow block.
	MempoolBlocksAmount int

	// RecommendedFeePercentile selects which entry of block 0's FeeRange
	// (the one whose percentile is nearest to it) is surfaced as
	// RecommendedFees.HalfHourFee.
	RecommendedFeePercentile float64

	// FeeRangePercentiles are the percentiles (ascending, 0-100)
	// computed for MempoolBlock.FeeRange.
	FeeRangePercentiles []float64
}

// RelaxedWeightCapRatio is the multiplier applied to BlockWeightUnits when
// deciding how many packed transactions to retain in the client-facing
// Transactions slice of a MempoolBlockWithTransactions (§4.2).
const RelaxedWeightCapRatio = 1.2

// DefaultConfig returns the configuration a standalone node would ship
// with: an 4M weight-unit block, 8 projected blocks (7 full plus one
// overflow tail), and the percentile set real fee estimators report.
func DefaultConfig() Config {
	return Config{
		BlockWeightUnits:         4_000_000,
		MempoolBlocksAmount:      8,
		RecommendedFeePercentile: 50,
		FeeRangePercentiles:      []float64{10, 25, 50, 75, 90, 100},
	}
}

// maxProjectionWeight is the weight cap past which the fast path stops
// resolving CPFP relatives for remaining transactions (§4.1).
func (c Config) maxProjectionWeight() int64 {
	return c.BlockWeightUnits * int64(c.MempoolBlocksAmount)
}
