package projection

import "container/heap"

// txPrioItem pairs a transaction with the heap bookkeeping needed to pop
// transactions back out in effective-fee-rate order. Mirrors the
// txPrioItem/txPriorityQueue split this engine's packing algorithm is
// modeled on: the item is a thin handle, the queue owns the ordering.
type txPrioItem struct {
	tx *Transaction
}

// txPriorityQueue is a container/heap.Interface implementation that pops
// transactions in (effectiveFeePerVsize desc, txid asc) order — the
// packing order required by §4.1's determinism rule.
type txPriorityQueue struct {
	items []*txPrioItem
}

func (pq *txPriorityQueue) Len() int { return len(pq.items) }

func (pq *txPriorityQueue) Less(i, j int) bool {
	a, b := pq.items[i].tx, pq.items[j].tx
	if a.EffectiveFeePerVsize != b.EffectiveFeePerVsize {
		return a.EffectiveFeePerVsize > b.EffectiveFeePerVsize
	}
	return a.TxID < b.TxID
}

func (pq *txPriorityQueue) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

func (pq *txPriorityQueue) Push(x interface{}) {
	pq.items = append(pq.items, x.(*txPrioItem))
}

func (pq *txPriorityQueue) Pop() interface{} {
	n := len(pq.items)
	item := pq.items[n-1]
	pq.items[n-1] = nil
	pq.items = pq.items[:n-1]
	return item
}

// newTxPriorityQueue builds and heap-initializes a priority queue over
// txs. The queue is a one-shot popping order, not a live structure txs
// can later be pushed onto — incremental re-ordering belongs to the
// Template Builder's mirror, not the packer.
func newTxPriorityQueue(txs []*Transaction) *txPriorityQueue {
	pq := &txPriorityQueue{items: make([]*txPrioItem, 0, len(txs))}
	for _, tx := range txs {
		pq.items = append(pq.items, &txPrioItem{tx: tx})
	}
	heap.Init(pq)
	return pq
}

// packTransactions greedily assigns txs to weight-bounded blocks in
// (effectiveFeePerVsize desc, txid asc) order, per §4.2, mutating each
// tx's Position as a side effect. It is the shared core behind both
// PackBlocks (fast path) and the Template Builder's per-block sequences.
func packTransactions(txs []*Transaction, cfg Config) [][]*Transaction {
	pq := newTxPriorityQueue(txs)

	var blocks [][]*Transaction
	var current []*Transaction
	blockIndex := 0
	blockWeight := int64(0)
	blockVsize := 0.0

	for pq.Len() > 0 {
		tx := heap.Pop(pq).(*txPrioItem).tx

		fits := blockWeight+tx.Weight <= cfg.BlockWeightUnits
		isLastBlock := blockIndex == cfg.MempoolBlocksAmount-1
		mustStartFresh := !fits && !isLastBlock && len(current) > 0

		if mustStartFresh {
			blocks = append(blocks, current)
			blockIndex++
			current = nil
			blockWeight = 0
			blockVsize = 0
		}

		tx.Position = &Position{Block: blockIndex, Vsize: blockVsize + tx.Vsize()/2}
		current = append(current, tx)
		blockWeight += tx.Weight
		blockVsize += tx.Vsize()
	}

	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

// PackBlocks is the Block Packer contract of §4.2: pack txs (already
// sorted, or not — packTransactions re-derives packing order itself) and
// summarize each resulting block.
func PackBlocks(txs []*Transaction, cfg Config) []MempoolBlockWithTransactions {
	blocks := packTransactions(txs, cfg)
	result := make([]MempoolBlockWithTransactions, len(blocks))
	for i, blockTxs := range blocks {
		result[i] = DataToMempoolBlock(blockTxs, cfg)
	}
	return result
}

// DataToMempoolBlock builds a MempoolBlockWithTransactions summary from an
// already-packed, in-order transaction slice (§4.2).
func DataToMempoolBlock(txs []*Transaction, cfg Config) MempoolBlockWithTransactions {
	var blockSize, totalFees int64
	var blockVSize float64
	txids := make([]TxID, len(txs))
	for i, tx := range txs {
		blockSize += tx.Size
		totalFees += tx.Fee
		blockVSize += tx.Vsize()
		txids[i] = tx.TxID
	}

	medianFee, feeRange := CalcEffectiveFeeStatistics(txs, cfg.FeeRangePercentiles)

	relaxedCap := int64(float64(cfg.BlockWeightUnits) * RelaxedWeightCapRatio)
	retained := make([]StrippedTransaction, 0, len(txs))
	runningWeight := int64(0)
	for _, tx := range txs {
		// Incrementing before comparing (rather than comparing the
		// pre-increment total) is the documented open question in
		// the design notes: it yields a retained set slightly
		// smaller than a literal "<= 1.2x" reading would suggest,
		// since the transaction that first pushes the running total
		// past the cap is excluded rather than let through.
		runningWeight += tx.Weight
		if runningWeight <= relaxedCap {
			retained = append(retained, StripTransaction(tx))
		}
	}

	return MempoolBlockWithTransactions{
		MempoolBlock: MempoolBlock{
			BlockSize:  blockSize,
			BlockVSize: blockVSize,
			NTx:        len(txs),
			TotalFees:  totalFees,
			MedianFee:  medianFee,
			FeeRange:   feeRange,
		},
		TransactionIDs: txids,
		Transactions:   retained,
	}
}
