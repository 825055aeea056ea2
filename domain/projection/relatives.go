package projection

import "sort"

// SetRelativesAndGetCPFPInfo walks tx's unconfirmed ancestor closure through
// mempool, records the package members on tx.Ancestors, sets
// tx.EffectiveFeePerVsize to the package rate (fee and vsize summed over
// tx and every ancestor), floors each ancestor's own EffectiveFeePerVsize
// at that same package rate, and propagates tx (or whichever of tx and its
// own best descendant has the higher effective rate) as a bestDescendant
// candidate to every ancestor it touches.
//
// It is idempotent: once tx.CPFPChecked is true, it returns immediately —
// including when an earlier call on a descendant already marked it
// checked while lifting its rate, so a later pass over the raw mempool
// does not recompute it from its own, unlifted, closure.
func SetRelativesAndGetCPFPInfo(tx *Transaction, mempool Mempool) {
	if tx.CPFPChecked {
		return
	}
	tx.CPFPChecked = true

	ancestors := make(map[TxID]*Transaction)
	visiting := map[TxID]bool{tx.TxID: true}
	collectAncestors(tx, mempool, ancestors, visiting)

	tx.Ancestors = make([]ClusterMember, 0, len(ancestors))
	packageFee := tx.Fee
	packageVsize := tx.Vsize()
	for txid, ancestor := range ancestors {
		tx.Ancestors = append(tx.Ancestors, ClusterMember{
			TxID:   txid,
			Fee:    ancestor.Fee,
			Weight: ancestor.Weight,
		})
		packageFee += ancestor.Fee
		packageVsize += ancestor.Vsize()
	}
	sort.Slice(tx.Ancestors, func(i, j int) bool {
		return tx.Ancestors[i].TxID < tx.Ancestors[j].TxID
	})

	packageRate := 0.0
	if packageVsize > 0 {
		packageRate = float64(packageFee) / packageVsize
	}
	// The package rate applies to tx directly, even when it is below tx's
	// own isolated rate: a high-fee child's package rate is diluted by a
	// low-fee parent's weight, and that diluted rate is what a miner
	// actually realizes by including the pair together.
	tx.EffectiveFeePerVsize = packageRate

	candidate := ClusterMember{TxID: tx.TxID, Fee: tx.Fee, Weight: tx.Weight}
	candidateRate := tx.EffectiveFeePerVsize
	if tx.BestDescendant != nil {
		if best, ok := mempool[tx.BestDescendant.TxID]; ok && best.EffectiveFeePerVsize > candidateRate {
			candidate = *tx.BestDescendant
			candidateRate = best.EffectiveFeePerVsize
		}
	}

	for _, ancestor := range ancestors {
		// The ancestor is lifted to at least the shared package rate and
		// marked checked so the driver loop's later pass over it (it is
		// still in the mempool's own sort order) does not recompute it
		// from its own, unlifted, closure and undo the lift.
		ancestor.CPFPChecked = true
		if packageRate > ancestor.EffectiveFeePerVsize {
			ancestor.EffectiveFeePerVsize = packageRate
		}

		currentRate := -1.0
		if ancestor.BestDescendant != nil {
			if current, ok := mempool[ancestor.BestDescendant.TxID]; ok {
				currentRate = current.EffectiveFeePerVsize
			}
		}
		if ancestor.BestDescendant == nil || candidateRate > currentRate {
			bestDescendant := candidate
			ancestor.BestDescendant = &bestDescendant
		}
	}
}

// collectAncestors transitively follows tx.Vin through mempool, adding
// every reachable in-mempool ancestor to out. visiting guards against
// cycles in otherwise-pathological input; a valid mempool never has one.
func collectAncestors(tx *Transaction, mempool Mempool, out map[TxID]*Transaction, visiting map[TxID]bool) {
	for _, inputTxID := range tx.Vin {
		if visiting[inputTxID] {
			continue
		}
		parent, ok := mempool[inputTxID]
		if !ok {
			continue
		}
		if _, already := out[inputTxID]; already {
			continue
		}
		visiting[inputTxID] = true
		out[inputTxID] = parent
		collectAncestors(parent, mempool, out, visiting)
	}
}

// sortByFeePerVsizeDesc returns txs sorted by feePerVsize (own, not
// effective) descending, txid ascending as tie-break — the order the fast
// path resolves CPFP relatives in.
func sortByFeePerVsizeDesc(txs []*Transaction) []*Transaction {
	sorted := make([]*Transaction, len(txs))
	copy(sorted, txs)
	sort.Slice(sorted, func(i, j int) bool {
		ri, rj := sorted[i].FeePerVsize(), sorted[j].FeePerVsize()
		if ri != rj {
			return ri > rj
		}
		return sorted[i].TxID < sorted[j].TxID
	})
	return sorted
}

// sortByEffectiveFeePerVsizeDesc returns txs sorted by
// effectiveFeePerVsize descending, txid ascending as tie-break — the
// packing order.
func sortByEffectiveFeePerVsizeDesc(txs []*Transaction) []*Transaction {
	sorted := make([]*Transaction, len(txs))
	copy(sorted, txs)
	sort.Slice(sorted, func(i, j int) bool {
		ri, rj := sorted[i].EffectiveFeePerVsize, sorted[j].EffectiveFeePerVsize
		if ri != rj {
			return ri > rj
		}
		return sorted[i].TxID < sorted[j].TxID
	})
	return sorted
}

// liveTransactions returns every transaction in mempool whose DeleteAfter
// tombstone is unset, in no particular order.
func liveTransactions(mempool Mempool) []*Transaction {
	txs := make([]*Transaction, 0, len(mempool))
	for _, tx := range mempool {
		if tx.DeleteAfter != nil {
			continue
		}
		txs = append(txs, tx)
	}
	return txs
}

// UpdateMempoolBlocks is the synchronous fast path (§4.1 + §4.2): sort by
// own fee rate, resolve CPFP relatives up to the projection weight cap,
// re-sort by effective fee rate, and pack.
func UpdateMempoolBlocks(mempool Mempool, cfg Config) []MempoolBlockWithTransactions {
	live := liveTransactions(mempool)

	// Seed every live transaction's EffectiveFeePerVsize at its own rate
	// before resolving CPFP relatives: a transaction past the weight cap
	// below is skipped by the resolve loop and must still sort and pack
	// at its own rate (§4.1), not at the zero value the field defaults
	// to.
	for _, tx := range live {
		tx.EffectiveFeePerVsize = tx.FeePerVsize()
	}

	byOwnRate := sortByFeePerVsizeDesc(live)

	maxWeight := cfg.maxProjectionWeight()
	runningWeight := int64(0)
	for _, tx := range byOwnRate {
		if runningWeight > maxWeight {
			break
		}
		SetRelativesAndGetCPFPInfo(tx, mempool)
		runningWeight += tx.Weight
	}

	packingOrder := sortByEffectiveFeePerVsizeDesc(live)
	return PackBlocks(packingOrder, cfg)
}
