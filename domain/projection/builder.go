package projection

// buildTemplate is the Template Builder's per-request computation (§4.3):
// run full CPFP resolution over the worker's mirror (no weight cap — the
// worker is the "optimal" projector, the fast path is the one that
// truncates), pack into blocks, and export cluster membership for the
// orchestrator's enrichment step.
func buildTemplate(mirror Mempool, cfg Config) WorkerResult {
	live := liveTransactions(mirror)

	for _, tx := range sortByFeePerVsizeDesc(live) {
		SetRelativesAndGetCPFPInfo(tx, mirror)
	}

	packingOrder := sortByEffectiveFeePerVsizeDesc(live)
	blockLists := packTransactions(packingOrder, cfg)
	clusters := buildClusters(live)

	memberToRoot := make(map[TxID]TxID, len(clusters)*2)
	for root, members := range clusters {
		for _, member := range members {
			memberToRoot[member] = root
		}
	}

	blocks := make([][]ResultTx, len(blockLists))
	for i, blockTxs := range blockLists {
		blocks[i] = make([]ResultTx, len(blockTxs))
		for j, tx := range blockTxs {
			rate := tx.EffectiveFeePerVsize
			resultTx := ResultTx{
				TxID:                 tx.TxID,
				EffectiveFeePerVsize: &rate,
				CPFPChecked:          tx.CPFPChecked,
			}
			if root, ok := memberToRoot[tx.TxID]; ok {
				resultTx.CPFPRoot = &root
			}
			blocks[i][j] = resultTx
		}
	}

	return WorkerResult{Blocks: blocks, Clusters: clusters}
}
