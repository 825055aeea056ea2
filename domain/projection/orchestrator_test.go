package projection

import (
	"testing"

	"github.com/bholm/mempool/logger"
)

func newTestOrchestrator() *Orchestrator {
	return newTestOrchestratorWithConfig(DefaultConfig())
}

func newTestOrchestratorWithConfig(cfg Config) *Orchestrator {
	logger.DisableLog()
	log, _ := logger.Get(logger.SubsystemTags.PJTN)
	return NewOrchestrator(cfg, log)
}

func TestOrchestratorUpdateMempoolBlocksFastPath(t *testing.T) {
	orch := newTestOrchestrator()
	mempool := Mempool{"a": {TxID: "a", Fee: 1000, Weight: 400, Size: 250}}

	blocks := orch.UpdateMempoolBlocks(mempool, true)
	if len(blocks) != 1 || blocks[0].NTx != 1 {
		t.Fatalf("blocks = %+v, want one block with one tx", blocks)
	}

	stats := orch.LastProjectionStats()
	if stats.UsedTemplatePath {
		t.Fatalf("stats.UsedTemplatePath = true, want false for the fast path")
	}

	got := orch.GetMempoolBlocks()
	if len(got) != 1 || got[0].NTx != 1 {
		t.Fatalf("GetMempoolBlocks() = %+v, want published snapshot", got)
	}
}

func TestOrchestratorMakeBlockTemplates(t *testing.T) {
	orch := newTestOrchestrator()
	mempool := Mempool{
		"P": {TxID: "P", Fee: 0, Weight: 400, Size: 200},
		"C": {TxID: "C", Fee: 2000, Weight: 400, Size: 200, Vin: []TxID{"P"}},
	}

	blocks := orch.MakeBlockTemplates(mempool, true)
	if len(blocks) != 1 || blocks[0].NTx != 2 {
		t.Fatalf("blocks = %+v, want one block with two txs", blocks)
	}

	stats := orch.LastProjectionStats()
	if !stats.UsedTemplatePath {
		t.Fatalf("stats.UsedTemplatePath = false, want true for the template path")
	}

	// Enrichment should have populated P's cluster fields via the
	// patch-application path.
	p := mempool["P"]
	if p.Position == nil {
		t.Fatalf("P.Position = nil, want populated by enrichment")
	}
	if len(p.Descendants) != 1 || p.Descendants[0].TxID != "C" {
		t.Fatalf("P.Descendants = %+v, want [{C}]", p.Descendants)
	}
}

func TestOrchestratorMakeBlockTemplatesTracksBlockIndex(t *testing.T) {
	cfg := Config{BlockWeightUnits: 400, MempoolBlocksAmount: 3, FeeRangePercentiles: []float64{50}}
	orch := newTestOrchestratorWithConfig(cfg)
	mempool := Mempool{
		"a": {TxID: "a", Fee: 300, Weight: 400, Size: 100},
		"b": {TxID: "b", Fee: 200, Weight: 400, Size: 100},
		"c": {TxID: "c", Fee: 100, Weight: 400, Size: 100},
	}

	blocks := orch.MakeBlockTemplates(mempool, true)
	if len(blocks) != 3 {
		t.Fatalf("len(blocks) = %d, want 3 one-tx blocks", len(blocks))
	}

	for txid, wantBlock := range map[TxID]int{"a": 0, "b": 1, "c": 2} {
		tx := mempool[txid]
		if tx.Position == nil || tx.Position.Block != wantBlock {
			t.Fatalf("%s.Position = %+v, want Block == %d", txid, tx.Position, wantBlock)
		}
	}
}

func TestOrchestratorUpdateBlockTemplatesDelegatesWithoutWorker(t *testing.T) {
	orch := newTestOrchestrator()
	mempool := Mempool{"a": {TxID: "a", Fee: 500, Weight: 400, Size: 100}}

	// No prior MakeBlockTemplates call, so no worker handle exists yet:
	// UpdateBlockTemplates must delegate to a full rebuild (scenario S6's
	// "absent handle" branch).
	blocks := orch.UpdateBlockTemplates(mempool, []*Transaction{mempool["a"]}, nil, true)
	if len(blocks) != 1 || blocks[0].NTx != 1 {
		t.Fatalf("blocks = %+v, want one block with one tx", blocks)
	}
	if !orch.LastProjectionStats().UsedTemplatePath {
		t.Fatalf("UsedTemplatePath = false, want true (delegated to MakeBlockTemplates)")
	}
}

func TestOrchestratorStaleFilterDropsMissingTransactions(t *testing.T) {
	orch := newTestOrchestrator()
	mempool := Mempool{
		"a": {TxID: "a", Fee: 500, Weight: 400, Size: 100},
		"b": {TxID: "b", Fee: 400, Weight: 400, Size: 100},
	}
	orch.MakeBlockTemplates(mempool, true)

	// Simulate a race: b disappears from the live mempool between the
	// worker request and the result handling (scenario S5).
	delete(mempool, "b")
	blocks := orch.UpdateBlockTemplates(mempool, nil, nil, true)

	if len(blocks) != 1 || blocks[0].NTx != 1 {
		t.Fatalf("blocks = %+v, want one block with only a", blocks)
	}
	stats := orch.LastProjectionStats()
	if stats.DroppedStaleTransactions != 1 {
		t.Fatalf("DroppedStaleTransactions = %d, want 1", stats.DroppedStaleTransactions)
	}
}

func TestOrchestratorRecommendedFeesEmptySnapshot(t *testing.T) {
	orch := newTestOrchestrator()
	fees := orch.GetRecommendedFees()
	if fees != (RecommendedFees{}) {
		t.Fatalf("fees = %+v, want zero value for an empty snapshot", fees)
	}
}

func TestOrchestratorRecommendedFeesDerivedFromBlockZero(t *testing.T) {
	orch := newTestOrchestrator()
	mempool := Mempool{
		"a": {TxID: "a", Fee: 1000, Weight: 400, Size: 100},
		"b": {TxID: "b", Fee: 500, Weight: 400, Size: 100},
	}
	orch.UpdateMempoolBlocks(mempool, true)

	fees := orch.GetRecommendedFees()
	if fees.FastestFee == 0 {
		t.Fatalf("fees.FastestFee = 0, want a non-zero rate derived from block 0")
	}
}
