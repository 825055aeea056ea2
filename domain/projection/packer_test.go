package projection

import (
	"fmt"
	"testing"
)

// TestPackBlocksSingleTransaction covers scenario S1.
func TestPackBlocksSingleTransaction(t *testing.T) {
	cfg := Config{BlockWeightUnits: 4_000_000, MempoolBlocksAmount: 8, FeeRangePercentiles: []float64{50}}
	a := &Transaction{TxID: "A", Fee: 1000, Weight: 400, Size: 250, EffectiveFeePerVsize: 1000 / 100.0}

	blocks := PackBlocks([]*Transaction{a}, cfg)

	if len(blocks) != 1 {
		t.Fatalf("len(blocks) = %d, want 1", len(blocks))
	}
	b := blocks[0]
	if b.NTx != 1 || b.BlockSize != 250 || b.BlockVSize != 100 || b.TotalFees != 1000 {
		t.Fatalf("block summary = %+v, want {NTx:1 BlockSize:250 BlockVSize:100 TotalFees:1000}", b.MempoolBlock)
	}
	if a.Position == nil || a.Position.Block != 0 || a.Position.Vsize != 50 {
		t.Fatalf("a.Position = %+v, want {0 50}", a.Position)
	}
}

// TestPackBlocksWeightOverflow covers scenario S3: ten equal-weight
// transactions of decreasing fee, half the block weight each, spread
// across blocks until the final (overflow) block absorbs the remainder.
func TestPackBlocksWeightOverflow(t *testing.T) {
	cfg := Config{BlockWeightUnits: 1000, MempoolBlocksAmount: 3, FeeRangePercentiles: []float64{50}}
	var txs []*Transaction
	for i := 0; i < 10; i++ {
		txs = append(txs, &Transaction{
			TxID:                 TxID(fmt.Sprintf("tx%d", i)),
			Fee:                  int64(10 - i),
			Weight:               500,
			EffectiveFeePerVsize: float64(10-i) / (500.0 / 4),
		})
	}

	blocks := PackBlocks(txs, cfg)

	if len(blocks) != cfg.MempoolBlocksAmount {
		t.Fatalf("len(blocks) = %d, want %d", len(blocks), cfg.MempoolBlocksAmount)
	}
	if blocks[0].NTx != 2 || blocks[1].NTx != 2 {
		t.Fatalf("blocks[0].NTx=%d blocks[1].NTx=%d, want 2 and 2", blocks[0].NTx, blocks[1].NTx)
	}
	// The last block is the overflow tail and must absorb everything else.
	if blocks[2].NTx != 6 {
		t.Fatalf("blocks[2].NTx = %d, want 6", blocks[2].NTx)
	}
}

// TestPackBlocksPositionVsizeMonotonic covers invariant 4.
func TestPackBlocksPositionVsizeMonotonic(t *testing.T) {
	cfg := Config{BlockWeightUnits: 4_000_000, MempoolBlocksAmount: 8, FeeRangePercentiles: []float64{50}}
	txs := []*Transaction{
		{TxID: "a", Fee: 300, Weight: 400, EffectiveFeePerVsize: 3},
		{TxID: "b", Fee: 200, Weight: 800, EffectiveFeePerVsize: 2},
		{TxID: "c", Fee: 100, Weight: 1200, EffectiveFeePerVsize: 1},
	}
	PackBlocks(txs, cfg)

	prevVsize := -1.0
	running := 0.0
	for _, tx := range txs {
		if tx.Position.Vsize <= prevVsize {
			t.Fatalf("position.Vsize not strictly increasing: %v after %v", tx.Position.Vsize, prevVsize)
		}
		want := running + tx.Vsize()/2
		if tx.Position.Vsize != want {
			t.Fatalf("tx %s Position.Vsize = %v, want %v", tx.TxID, tx.Position.Vsize, want)
		}
		prevVsize = tx.Position.Vsize
		running += tx.Vsize()
	}
}

// TestPackBlocksNoDuplicatesAcrossBlocks covers invariant 1.
func TestPackBlocksNoDuplicatesAcrossBlocks(t *testing.T) {
	cfg := Config{BlockWeightUnits: 400, MempoolBlocksAmount: 4, FeeRangePercentiles: []float64{50}}
	var txs []*Transaction
	for i := 0; i < 6; i++ {
		txs = append(txs, &Transaction{TxID: TxID(fmt.Sprintf("tx%d", i)), Fee: int64(6 - i), Weight: 400, EffectiveFeePerVsize: float64(6 - i)})
	}
	blocks := PackBlocks(txs, cfg)

	seen := make(map[TxID]bool)
	for _, b := range blocks {
		for _, txid := range b.TransactionIDs {
			if seen[txid] {
				t.Fatalf("txid %s appears in more than one block", txid)
			}
			seen[txid] = true
		}
	}
	if len(seen) != len(txs) {
		t.Fatalf("len(seen) = %d, want %d", len(seen), len(txs))
	}
}

// TestDataToMempoolBlockRelaxedCap exercises the 1.2x cap's
// increment-then-compare semantics (the documented open question).
func TestDataToMempoolBlockRelaxedCap(t *testing.T) {
	cfg := Config{BlockWeightUnits: 1000, FeeRangePercentiles: []float64{50}}
	// Relaxed cap = 1200. Three transactions of weight 500 each:
	// running totals are 500, 1000, 1500 — the third pushes the total
	// past 1200 and is excluded, even though 1000 (the pre-increment
	// total before it) is under the cap.
	txs := []*Transaction{
		{TxID: "a", Fee: 10, Weight: 500, EffectiveFeePerVsize: 10},
		{TxID: "b", Fee: 10, Weight: 500, EffectiveFeePerVsize: 9},
		{TxID: "c", Fee: 10, Weight: 500, EffectiveFeePerVsize: 8},
	}

	block := DataToMempoolBlock(txs, cfg)

	if len(block.Transactions) != 2 {
		t.Fatalf("len(block.Transactions) = %d, want 2", len(block.Transactions))
	}
	if block.Transactions[0].TxID != "a" || block.Transactions[1].TxID != "b" {
		t.Fatalf("retained = %+v, want [a b]", block.Transactions)
	}
	if len(block.TransactionIDs) != 3 {
		t.Fatalf("len(block.TransactionIDs) = %d, want 3 (all packed txids, cap only affects client subset)", len(block.TransactionIDs))
	}
}
