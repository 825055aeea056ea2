package projection

import (
	"sync"

	"github.com/btcsuite/btclog"
)

// MempoolSource is the seam an ingestion driver implements to hand the
// orchestrator a full mempool. It has no method for an add/remove diff;
// a diff is passed directly to UpdateBlockTemplates. No concrete
// implementation lives in this module — mempool ingestion is an external
// collaborator.
type MempoolSource interface {
	CurrentMempool() Mempool
}

// ProjectionStats is the telemetry §4.3/§7 calls for: counts of entries
// dropped during the last template-path finalize, and which path produced
// the published snapshot.
type ProjectionStats struct {
	DroppedStaleTransactions int
	DroppedClusterMembers    int
	UsedTemplatePath         bool
}

// RecommendedFees is a set of top-level fee recommendations derived from
// block 0's FeeRange, one rate per urgency level, supplementing the
// per-block percentiles. Each field is the FeeRange entry whose configured
// percentile is nearest to that level's target percentile.
type RecommendedFees struct {
	FastestFee  float64
	HalfHourFee float64
	HourFee     float64
	EconomyFee  float64
	MinimumFee  float64
}

// Orchestrator owns exactly one published snapshot and the Template
// Builder worker handle, and exposes the read-only accessors and update
// entry points of §6.
type Orchestrator struct {
	cfg Config
	log btclog.Logger

	// workerMu serializes access to the worker handle: MakeBlockTemplates
	// and UpdateBlockTemplates hold it while spawning the worker, posting
	// to it, and dropping it, matching §5's "orchestrator
	// must not issue a new request until the prior reply has been
	// received".
	workerMu sync.Mutex
	worker   *Worker

	// snapshotMu guards the published snapshot so readers always see a
	// consistent (mempoolBlocks, mempoolBlockDeltas) pair from the same
	// generation, independent of how long a worker round trip takes.
	snapshotMu         sync.Mutex
	mempoolBlocks      []MempoolBlockWithTransactions
	mempoolBlockDeltas []MempoolBlockDelta
	stats              ProjectionStats
}

// NewOrchestrator returns an orchestrator with an empty published
// snapshot and no worker spawned yet; the worker is created lazily on
// first use.
func NewOrchestrator(cfg Config, log btclog.Logger) *Orchestrator {
	return &Orchestrator{cfg: cfg, log: log}
}

// GetMempoolBlocks returns the summaries of the current published
// snapshot.
func (o *Orchestrator) GetMempoolBlocks() []MempoolBlock {
	o.snapshotMu.Lock()
	defer o.snapshotMu.Unlock()
	blocks := make([]MempoolBlock, len(o.mempoolBlocks))
	for i, b := range o.mempoolBlocks {
		blocks[i] = b.MempoolBlock
	}
	return blocks
}

// GetMempoolBlocksWithTransactions returns the full current published
// snapshot.
func (o *Orchestrator) GetMempoolBlocksWithTransactions() []MempoolBlockWithTransactions {
	o.snapshotMu.Lock()
	defer o.snapshotMu.Unlock()
	blocks := make([]MempoolBlockWithTransactions, len(o.mempoolBlocks))
	copy(blocks, o.mempoolBlocks)
	return blocks
}

// GetMempoolBlockDeltas returns the deltas computed when the current
// snapshot replaced the previous one.
func (o *Orchestrator) GetMempoolBlockDeltas() []MempoolBlockDelta {
	o.snapshotMu.Lock()
	defer o.snapshotMu.Unlock()
	deltas := make([]MempoolBlockDelta, len(o.mempoolBlockDeltas))
	copy(deltas, o.mempoolBlockDeltas)
	return deltas
}

// LastProjectionStats returns telemetry about the most recently published
// snapshot's computation.
func (o *Orchestrator) LastProjectionStats() ProjectionStats {
	o.snapshotMu.Lock()
	defer o.snapshotMu.Unlock()
	return o.stats
}

// GetRecommendedFees derives the fee recommendations from block 0's
// FeeRange; HalfHourFee follows cfg.RecommendedFeePercentile. It returns
// the zero value if the snapshot is empty.
func (o *Orchestrator) GetRecommendedFees() RecommendedFees {
	o.snapshotMu.Lock()
	defer o.snapshotMu.Unlock()
	if len(o.mempoolBlocks) == 0 {
		return RecommendedFees{}
	}
	feeRange := o.mempoolBlocks[0].FeeRange
	return RecommendedFees{
		FastestFee:  feeRangeValue(o.cfg, feeRange, 100),
		HalfHourFee: feeRangeValue(o.cfg, feeRange, o.cfg.RecommendedFeePercentile),
		HourFee:     feeRangeValue(o.cfg, feeRange, 25),
		EconomyFee:  feeRangeValue(o.cfg, feeRange, 10),
		MinimumFee:  feeRangeValue(o.cfg, feeRange, 0),
	}
}

func feeRangeValue(cfg Config, feeRange []float64, target float64) float64 {
	if len(feeRange) == 0 {
		return 0
	}
	bestIdx := 0
	bestDiff := absFloat(cfg.FeeRangePercentiles[0] - target)
	for i, p := range cfg.FeeRangePercentiles {
		if i >= len(feeRange) {
			break
		}
		if diff := absFloat(p - target); diff < bestDiff {
			bestDiff = diff
			bestIdx = i
		}
	}
	return feeRange[bestIdx]
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func (o *Orchestrator) publish(blocks []MempoolBlockWithTransactions, stats ProjectionStats) []MempoolBlockWithTransactions {
	o.snapshotMu.Lock()
	defer o.snapshotMu.Unlock()
	deltas := ComputeDeltas(o.mempoolBlocks, blocks)
	o.mempoolBlocks = blocks
	o.mempoolBlockDeltas = deltas
	o.stats = stats
	return blocks
}

// UpdateMempoolBlocks is the synchronous fast path (§4.1 + §4.2). It never
// suspends and never fails.
func (o *Orchestrator) UpdateMempoolBlocks(mempool Mempool, saveResults bool) []MempoolBlockWithTransactions {
	blocks := UpdateMempoolBlocks(mempool, o.cfg)
	if saveResults {
		o.publish(blocks, ProjectionStats{UsedTemplatePath: false})
	}
	return blocks
}

// MakeBlockTemplates runs a full Template Builder rebuild: a fresh `set`
// message carrying every live transaction. On worker failure it drops the
// handle, logs, and falls back to the last published snapshot.
func (o *Orchestrator) MakeBlockTemplates(mempool Mempool, saveResults bool) []MempoolBlockWithTransactions {
	o.workerMu.Lock()
	defer o.workerMu.Unlock()

	thread := make(map[TxID]ThreadTransaction, len(mempool))
	for txid, tx := range mempool {
		if tx.DeleteAfter != nil {
			continue
		}
		thread[txid] = stripThread(tx)
	}

	if o.worker == nil {
		o.worker = NewWorker(o.cfg, o.log)
	}

	result, err := o.worker.Set(thread)
	if err != nil {
		o.log.Warnf("template builder set failed, dropping worker: %s", err)
		o.worker.Close()
		o.worker = nil
		return o.GetMempoolBlocksWithTransactions()
	}

	return o.finalizeTemplate(result, mempool, saveResults)
}

// UpdateBlockTemplates applies an incremental add/remove diff to the
// Template Builder's mirror. If no worker is currently live (e.g. the
// previous call's worker crashed), it delegates to MakeBlockTemplates for
// a full rebuild instead, per §5/§7's recovery policy.
func (o *Orchestrator) UpdateBlockTemplates(mempool Mempool, added []*Transaction, removed []TxID, saveResults bool) []MempoolBlockWithTransactions {
	o.workerMu.Lock()
	if o.worker == nil {
		o.workerMu.Unlock()
		return o.MakeBlockTemplates(mempool, saveResults)
	}
	defer o.workerMu.Unlock()

	addedThread := make([]ThreadTransaction, 0, len(added))
	for _, tx := range added {
		if tx.DeleteAfter != nil {
			continue
		}
		addedThread = append(addedThread, stripThread(tx))
	}

	result, err := o.worker.Update(addedThread, removed)
	if err != nil {
		o.log.Warnf("template builder update failed, dropping worker: %s", err)
		o.worker.Close()
		o.worker = nil
		return o.GetMempoolBlocksWithTransactions()
	}

	return o.finalizeTemplate(result, mempool, saveResults)
}

// finalizeTemplate applies §4.3's staleness filter and enrichment to a
// worker result, rebuilds block summaries from the live subset, and
// optionally publishes the result.
func (o *Orchestrator) finalizeTemplate(result WorkerResult, mempool Mempool, saveResults bool) []MempoolBlockWithTransactions {
	droppedStale := 0
	droppedClusterMembers := 0

	finalBlocks := make([]MempoolBlockWithTransactions, 0, len(result.Blocks))
	for _, resultBlock := range result.Blocks {
		liveTxs := make([]*Transaction, 0, len(resultBlock))
		liveResults := make([]ResultTx, 0, len(resultBlock))
		for _, rtx := range resultBlock {
			tx, ok := mempool[rtx.TxID]
			if !ok {
				droppedStale++
				continue
			}
			liveTxs = append(liveTxs, tx)
			liveResults = append(liveResults, rtx)
		}
		if len(liveTxs) == 0 {
			continue
		}

		// blockIndex is this block's position in finalBlocks, the slice
		// the published snapshot is built from — not its position in
		// result.Blocks, which can run ahead once an earlier block is
		// dropped entirely for having gone fully stale.
		blockIndex := len(finalBlocks)

		runningVsize := 0.0
		for i, tx := range liveTxs {
			rtx := liveResults[i]
			vsize := tx.Vsize()
			dropped := o.applyResultPatch(tx, rtx, blockIndex, runningVsize, result.Clusters, mempool)
			droppedClusterMembers += dropped
			runningVsize += vsize
		}

		finalBlocks = append(finalBlocks, DataToMempoolBlock(liveTxs, o.cfg))
	}

	if droppedStale > 0 {
		o.log.Warnf("dropped %d stale transactions from template result", droppedStale)
	}

	if saveResults {
		stats := ProjectionStats{
			DroppedStaleTransactions: droppedStale,
			DroppedClusterMembers:    droppedClusterMembers,
			UsedTemplatePath:         true,
		}
		o.publish(finalBlocks, stats)
	}
	return finalBlocks
}

// applyResultPatch builds and applies the TransactionPatch for a single
// live transaction, per §4.3's enrichment steps 1-4. It returns the
// number of cluster members that were skipped because they no longer
// exist in the live mempool.
func (o *Orchestrator) applyResultPatch(tx *Transaction, rtx ResultTx, blockIndex int, runningVsize float64, clusters ClusterMap, mempool Mempool) int {
	patch := TransactionPatch{
		TxID:        tx.TxID,
		CPFPChecked: rtx.CPFPChecked,
	}

	patch.Position = &Position{Block: blockIndex, Vsize: runningVsize + tx.Vsize()/2}

	if rtx.EffectiveFeePerVsize != nil {
		rate := *rtx.EffectiveFeePerVsize
		patch.EffectiveFeePerVsize = &rate
	}

	dropped := 0
	if rtx.CPFPRoot != nil {
		if members, ok := clusters[*rtx.CPFPRoot]; ok {
			ancestors, descendants, skipped := splitCluster(members, tx.TxID, mempool, o.log)
			patch.Ancestors = ancestors
			patch.Descendants = descendants
			dropped = skipped
		}
	}

	applyPatch(tx, patch)
	return dropped
}

// splitCluster partitions a cluster's ordered member list around pivot:
// members before it become ancestors, members after it become
// descendants. Members no longer present in mempool are skipped and
// counted.
func splitCluster(members []TxID, pivot TxID, mempool Mempool, log btclog.Logger) (ancestors, descendants []ClusterMember, dropped int) {
	pivotIdx := -1
	for i, m := range members {
		if m == pivot {
			pivotIdx = i
			break
		}
	}
	if pivotIdx == -1 {
		return nil, nil, 0
	}

	for i, m := range members {
		tx, ok := mempool[m]
		if !ok {
			if i != pivotIdx {
				dropped++
				log.Warnf("cluster member %s missing from live mempool, skipping", m)
			}
			continue
		}
		member := ClusterMember{TxID: m, Fee: tx.Fee, Weight: tx.Weight}
		switch {
		case i < pivotIdx:
			ancestors = append(ancestors, member)
		case i > pivotIdx:
			descendants = append(descendants, member)
		}
	}
	return ancestors, descendants, dropped
}

// applyPatch applies a TransactionPatch atomically, per the design note on
// mutation of shared mempool records (§9).
func applyPatch(tx *Transaction, patch TransactionPatch) {
	tx.Position = patch.Position
	if patch.EffectiveFeePerVsize != nil {
		tx.EffectiveFeePerVsize = *patch.EffectiveFeePerVsize
	}
	if patch.Ancestors != nil {
		tx.Ancestors = patch.Ancestors
	}
	if patch.Descendants != nil {
		tx.Descendants = patch.Descendants
	}
	tx.CPFPChecked = patch.CPFPChecked
	tx.BestDescendant = nil
}
