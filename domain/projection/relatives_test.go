package projection

import "testing"

// TestSetRelativesAndGetCPFPInfoCPFPLift covers scenario S2: a zero-fee
// parent lifted by a high-fee child.
func TestSetRelativesAndGetCPFPInfoCPFPLift(t *testing.T) {
	parent := &Transaction{TxID: "P", Fee: 0, Weight: 400}
	child := &Transaction{TxID: "C", Fee: 2000, Weight: 400, Vin: []TxID{"P"}}
	mempool := Mempool{"P": parent, "C": child}

	SetRelativesAndGetCPFPInfo(parent, mempool)
	SetRelativesAndGetCPFPInfo(child, mempool)

	const want = 2000.0 / (800.0 / 4.0)
	if parent.EffectiveFeePerVsize != want {
		t.Fatalf("parent.EffectiveFeePerVsize = %v, want %v", parent.EffectiveFeePerVsize, want)
	}
	if child.EffectiveFeePerVsize != want {
		t.Fatalf("child.EffectiveFeePerVsize = %v, want %v", child.EffectiveFeePerVsize, want)
	}
	if len(child.Ancestors) != 1 || child.Ancestors[0].TxID != "P" {
		t.Fatalf("child.Ancestors = %+v, want [{P}]", child.Ancestors)
	}
	if parent.BestDescendant == nil || parent.BestDescendant.TxID != "C" {
		t.Fatalf("parent.BestDescendant = %+v, want C", parent.BestDescendant)
	}
}

func TestSetRelativesAndGetCPFPInfoIdempotent(t *testing.T) {
	tx := &Transaction{TxID: "a", Fee: 100, Weight: 400}
	mempool := Mempool{"a": tx}
	SetRelativesAndGetCPFPInfo(tx, mempool)
	firstRate := tx.EffectiveFeePerVsize
	tx.Fee = 999999 // mutate after checked; should have no further effect
	SetRelativesAndGetCPFPInfo(tx, mempool)
	if tx.EffectiveFeePerVsize != firstRate {
		t.Fatalf("second call changed EffectiveFeePerVsize: got %v, want %v", tx.EffectiveFeePerVsize, firstRate)
	}
}

func TestSetRelativesAndGetCPFPInfoMissingAncestor(t *testing.T) {
	tx := &Transaction{TxID: "a", Fee: 100, Weight: 400, Vin: []TxID{"confirmed-or-unknown"}}
	mempool := Mempool{"a": tx}
	SetRelativesAndGetCPFPInfo(tx, mempool)
	if len(tx.Ancestors) != 0 {
		t.Fatalf("Ancestors = %+v, want empty (missing ancestor skipped)", tx.Ancestors)
	}
	if tx.EffectiveFeePerVsize != tx.FeePerVsize() {
		t.Fatalf("EffectiveFeePerVsize = %v, want own rate %v", tx.EffectiveFeePerVsize, tx.FeePerVsize())
	}
}

// TestSortByFeePerVsizeDescTieBreak covers invariant 5: the txid tie-break
// must be deterministic.
func TestSortByFeePerVsizeDescTieBreak(t *testing.T) {
	txs := []*Transaction{
		{TxID: "b", Fee: 100, Weight: 400},
		{TxID: "a", Fee: 100, Weight: 400},
		{TxID: "c", Fee: 100, Weight: 400},
	}
	sorted := sortByFeePerVsizeDesc(txs)
	gotOrder := []TxID{sorted[0].TxID, sorted[1].TxID, sorted[2].TxID}
	wantOrder := []TxID{"a", "b", "c"}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("sort order = %v, want %v", gotOrder, wantOrder)
		}
	}
}

func TestLiveTransactionsExcludesTombstoned(t *testing.T) {
	deadline := int64(12345)
	mempool := Mempool{
		"a": {TxID: "a"},
		"b": {TxID: "b", DeleteAfter: &deadline},
	}
	live := liveTransactions(mempool)
	if len(live) != 1 || live[0].TxID != "a" {
		t.Fatalf("liveTransactions = %+v, want only a", live)
	}
}

func TestUpdateMempoolBlocksWeightCapSkipsResolution(t *testing.T) {
	// maxProjectionWeight = 500 * 1 = 500. Three independent transactions
	// of weight 400 each, sorted by descending fee rate: the cap is
	// crossed after the second, so the third is never resolved.
	cfg := Config{BlockWeightUnits: 500, MempoolBlocksAmount: 1, FeeRangePercentiles: []float64{50}}
	a := &Transaction{TxID: "a", Fee: 300, Weight: 400}
	b := &Transaction{TxID: "b", Fee: 200, Weight: 400}
	c := &Transaction{TxID: "c", Fee: 100, Weight: 400}
	mempool := Mempool{"a": a, "b": b, "c": c}

	UpdateMempoolBlocks(mempool, cfg)

	if !a.CPFPChecked {
		t.Fatalf("a.CPFPChecked = false, want true (under cap)")
	}
	if !b.CPFPChecked {
		t.Fatalf("b.CPFPChecked = false, want true (crosses cap but admitted)")
	}
	if c.CPFPChecked {
		t.Fatalf("c.CPFPChecked = true, want false (past cap)")
	}
}
