package projection

import "sort"

// ComputeDeltas diffs prevBlocks against newBlocks block-by-block, per
// §4.4. The result always has max(len(prevBlocks), len(newBlocks))
// entries; an index present on only one side produces an all-added or
// all-removed delta.
func ComputeDeltas(prevBlocks, newBlocks []MempoolBlockWithTransactions) []MempoolBlockDelta {
	n := len(prevBlocks)
	if len(newBlocks) > n {
		n = len(newBlocks)
	}

	deltas := make([]MempoolBlockDelta, n)
	for i := 0; i < n; i++ {
		hasPrev := i < len(prevBlocks)
		hasNew := i < len(newBlocks)

		switch {
		case hasNew && !hasPrev:
			deltas[i] = MempoolBlockDelta{
				Added: append([]StrippedTransaction{}, newBlocks[i].Transactions...),
			}
		case hasPrev && !hasNew:
			removed := make([]TxID, len(prevBlocks[i].Transactions))
			for j, tx := range prevBlocks[i].Transactions {
				removed[j] = tx.TxID
			}
			deltas[i] = MempoolBlockDelta{Removed: removed}
		default:
			deltas[i] = computeBlockDelta(prevBlocks[i].Transactions, newBlocks[i].Transactions)
		}
	}
	return deltas
}

func computeBlockDelta(prev, next []StrippedTransaction) MempoolBlockDelta {
	prevByID := make(map[TxID]StrippedTransaction, len(prev))
	for _, tx := range prev {
		prevByID[tx.TxID] = tx
	}
	nextByID := make(map[TxID]StrippedTransaction, len(next))
	for _, tx := range next {
		nextByID[tx.TxID] = tx
	}

	var delta MempoolBlockDelta
	for _, tx := range next {
		if _, ok := prevByID[tx.TxID]; !ok {
			delta.Added = append(delta.Added, tx)
		}
	}
	for _, tx := range prev {
		if _, ok := nextByID[tx.TxID]; !ok {
			delta.Removed = append(delta.Removed, tx.TxID)
		}
	}
	for txid, nextTx := range nextByID {
		if prevTx, ok := prevByID[txid]; ok && prevTx.Rate != nextTx.Rate {
			delta.Changed = append(delta.Changed, RateChange{TxID: txid, Rate: nextTx.Rate})
		}
	}
	sort.Slice(delta.Changed, func(i, j int) bool { return delta.Changed[i].TxID < delta.Changed[j].TxID })
	return delta
}
