// Package projection implements the mempool block projection engine: the
// CPFP-aware effective-fee computation, the weight-bounded block packer,
// the background template builder, and the delta computer that diffs two
// successive projections.
package projection

// TxID is a transaction identifier. Unlike the node this engine was lifted
// out of, which carries fixed-size hash types for every identifier
// (daghash.TxID, daghash.Hash), this engine only ever compares and maps
// identifiers — it never parses or serializes them — so a lowercase hex
// string is the simplest correct representation.
type TxID string

// ClusterMember is a compact reference to another transaction inside a CPFP
// cluster: just enough to fold its fee and weight into a package
// computation without re-fetching the full record.
type ClusterMember struct {
	TxID   TxID
	Fee    int64
	Weight int64
}

// Position records where a transaction landed inside its projected block.
type Position struct {
	Block int
	Vsize float64
}

// Transaction is the mempool-resident record the projection engine reads
// and mutates in place. Ownership remains with the caller's mempool map;
// the engine never stores a Transaction beyond the call that touches it.
type Transaction struct {
	TxID   TxID
	Fee    int64
	Weight int64
	Size   int64

	Vin []TxID

	Ancestors   []ClusterMember
	Descendants []ClusterMember
	BestDescendant *ClusterMember

	EffectiveFeePerVsize float64
	CPFPChecked          bool

	Position *Position

	// DeleteAfter is a tombstone unix-second deadline set by the
	// ingestion layer. A non-nil value excludes the transaction from
	// projection inputs regardless of how far in the future it is.
	DeleteAfter *int64
}

// Vsize is weight expressed in virtual bytes. Fractional values are
// expected and intentional (weight is not always a multiple of 4).
func (tx *Transaction) Vsize() float64 {
	return float64(tx.Weight) / 4
}

// FeePerVsize is the transaction's own fee rate, ignoring any CPFP lift.
func (tx *Transaction) FeePerVsize() float64 {
	vsize := tx.Vsize()
	if vsize == 0 {
		return 0
	}
	return float64(tx.Fee) / vsize
}

// Mempool is the externally-owned set of unconfirmed transactions, keyed
// by txid.
type Mempool map[TxID]*Transaction

// StrippedTransaction is the compact, client-facing form of a Transaction.
type StrippedTransaction struct {
	TxID  TxID
	Fee   int64
	Vsize float64
	Rate  float64
}

// ThreadTransaction is the compact record exchanged with the Template
// Builder worker: enough for fee/weight/topology computation, nothing
// else.
type ThreadTransaction struct {
	TxID                 TxID
	Fee                  int64
	Weight               int64
	FeePerVsize          float64
	EffectiveFeePerVsize float64
	Vin                  []TxID

	CPFPRoot    *TxID
	CPFPChecked bool
}

// MempoolBlock is a projected block summary, with no transaction detail.
type MempoolBlock struct {
	BlockSize  int64
	BlockVSize float64
	NTx        int
	TotalFees  int64
	MedianFee  float64
	FeeRange   []float64
}

// MempoolBlockWithTransactions is a MempoolBlock plus the packed txids and
// the client-facing stripped transaction subset (see RelaxedWeightCapRatio).
type MempoolBlockWithTransactions struct {
	MempoolBlock
	TransactionIDs []TxID
	Transactions   []StrippedTransaction
}

// RateChange is a single txid whose effective rate moved between two
// successive projections.
type RateChange struct {
	TxID TxID
	Rate float64
}

// MempoolBlockDelta is the per-block difference between two successive
// projections.
type MempoolBlockDelta struct {
	Added   []StrippedTransaction
	Removed []TxID
	Changed []RateChange
}

// ClusterMap maps a CPFP cluster's root txid to the ordered list of every
// member of that cluster, ancestors first, the pivot, then descendants.
type ClusterMap map[TxID][]TxID

// ResultTx is a single transaction as reported back by the Template
// Builder worker for one projected block.
type ResultTx struct {
	TxID                 TxID
	EffectiveFeePerVsize *float64
	CPFPRoot             *TxID
	CPFPChecked          bool
}

// WorkerResult is the Template Builder worker's reply to a set/update
// request.
type WorkerResult struct {
	Blocks   [][]ResultTx
	Clusters ClusterMap
}

// TransactionPatch is the atomic update the orchestrator applies to a live
// mempool record after enriching a worker result, rather than letting the
// worker-result handler mutate Transaction fields directly across a
// failure boundary (see the design note on mutation of shared mempool
// records).
type TransactionPatch struct {
	TxID                 TxID
	Position             *Position
	EffectiveFeePerVsize *float64
	Ancestors            []ClusterMember
	Descendants          []ClusterMember
	CPFPChecked          bool
}
