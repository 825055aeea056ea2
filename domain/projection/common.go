package projection

import "sort"

// StripTransaction returns the compact, client-facing form of tx.
func StripTransaction(tx *Transaction) StrippedTransaction {
	return StrippedTransaction{
		TxID:  tx.TxID,
		Fee:   tx.Fee,
		Vsize: tx.Vsize(),
		Rate:  tx.EffectiveFeePerVsize,
	}
}

// stripThread returns the worker-exchange form of tx.
func stripThread(tx *Transaction) ThreadTransaction {
	return ThreadTransaction{
		TxID:                 tx.TxID,
		Fee:                  tx.Fee,
		Weight:               tx.Weight,
		FeePerVsize:          tx.FeePerVsize(),
		EffectiveFeePerVsize: tx.EffectiveFeePerVsize,
		Vin:                  tx.Vin,
		CPFPChecked:          tx.CPFPChecked,
	}
}

// CalcEffectiveFeeStatistics computes the median effective fee rate and the
// fee-range percentiles (per cfg.FeeRangePercentiles) over the given
// transaction set, ascending-sorted on EffectiveFeePerVsize.
//
// Every tx is expected to already carry a seeded EffectiveFeePerVsize
// (its own FeePerVsize, at minimum) before it reaches here — a
// zero-valued float64 is indistinguishable from a genuinely free
// transaction, so this function does not attempt to fill the gap itself.
func CalcEffectiveFeeStatistics(txs []*Transaction, percentiles []float64) (medianFee float64, feeRange []float64) {
	if len(txs) == 0 {
		feeRange = make([]float64, len(percentiles))
		return 0, feeRange
	}

	rates := make([]float64, len(txs))
	for i, tx := range txs {
		rates[i] = tx.EffectiveFeePerVsize
	}
	sort.Float64s(rates)

	feeRange = make([]float64, len(percentiles))
	for i, p := range percentiles {
		feeRange[i] = percentile(rates, p)
	}
	medianFee = percentile(rates, 50)
	return medianFee, feeRange
}

// percentile returns percentile p (0-100) of the ascending-sorted slice
// sorted, linearly interpolated between the two closest ranks.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := (p / 100) * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}
