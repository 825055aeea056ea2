package projection

import (
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/pkg/errors"

	"github.com/bholm/mempool/util/panics"
)

// requestKind distinguishes the two Template Builder message types of
// §4.3's protocol.
type requestKind int

const (
	requestSet requestKind = iota
	requestUpdate
)

type workerRequest struct {
	kind    requestKind
	mempool map[TxID]ThreadTransaction // requestSet
	added   []ThreadTransaction        // requestUpdate
	removed []TxID                     // requestUpdate
	reply   chan workerReply
}

type workerReply struct {
	result WorkerResult
	err    error
}

// Worker is the Template Builder's background goroutine handle: a mirror
// of the mempool, reached exclusively through a request/reply channel, in
// the style of this codebase's own netadapter Route — a single buffered
// channel, a closed/closeLock guard, and sentinel errors wrapped with
// errors.WithStack rather than bare returns.
type Worker struct {
	cfg      Config
	log      btclog.Logger
	requests chan *workerRequest
	done     chan struct{}

	closeLock sync.Mutex
	closed    bool

	mirror Mempool
}

// NewWorker spawns the Template Builder goroutine and returns a handle to
// it. The goroutine is wrapped so that a panic during template building is
// recovered and logged instead of taking the process down; the handle is
// still unusable afterward, which is why the orchestrator drops it.
func NewWorker(cfg Config, log btclog.Logger) *Worker {
	w := &Worker{
		cfg:      cfg,
		log:      log,
		requests: make(chan *workerRequest, 1),
		done:     make(chan struct{}),
		mirror:   make(Mempool),
	}
	panics.GoroutineWrapperFunc(log)(w.run)
	return w
}

func (w *Worker) run() {
	defer close(w.done)
	for req := range w.requests {
		result := w.handle(req)
		req.reply <- workerReply{result: result}
	}
}

func (w *Worker) handle(req *workerRequest) WorkerResult {
	switch req.kind {
	case requestSet:
		w.mirror = make(Mempool, len(req.mempool))
		for txid, tt := range req.mempool {
			w.mirror[txid] = threadToTransaction(tt)
		}
	case requestUpdate:
		for _, tt := range req.added {
			w.mirror[tt.TxID] = threadToTransaction(tt)
		}
		for _, txid := range req.removed {
			delete(w.mirror, txid)
		}
	}
	return buildTemplate(w.mirror, w.cfg)
}

// Set replaces the worker's entire mempool view and returns the resulting
// template.
func (w *Worker) Set(mempool map[TxID]ThreadTransaction) (WorkerResult, error) {
	return w.post(&workerRequest{kind: requestSet, mempool: mempool})
}

// Update applies an incremental add/remove diff and returns the resulting
// template.
func (w *Worker) Update(added []ThreadTransaction, removed []TxID) (WorkerResult, error) {
	return w.post(&workerRequest{kind: requestUpdate, added: added, removed: removed})
}

func (w *Worker) post(req *workerRequest) (WorkerResult, error) {
	w.closeLock.Lock()
	if w.closed {
		w.closeLock.Unlock()
		return WorkerResult{}, errors.WithStack(ErrWorkerClosed)
	}
	w.closeLock.Unlock()

	req.reply = make(chan workerReply, 1)

	select {
	case w.requests <- req:
	case <-w.done:
		return WorkerResult{}, errors.WithStack(ErrWorkerCrashed)
	}

	select {
	case reply := <-req.reply:
		return reply.result, reply.err
	case <-w.done:
		return WorkerResult{}, errors.WithStack(ErrWorkerCrashed)
	}
}

// Close stops accepting new requests. Any request already in flight still
// completes or is rejected via ErrWorkerCrashed if the goroutine has
// already exited.
func (w *Worker) Close() {
	w.closeLock.Lock()
	defer w.closeLock.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.requests)
}

func threadToTransaction(tt ThreadTransaction) *Transaction {
	tx := &Transaction{
		TxID:                 tt.TxID,
		Fee:                  tt.Fee,
		Weight:               tt.Weight,
		Vin:                  tt.Vin,
		EffectiveFeePerVsize: tt.FeePerVsize,
		CPFPChecked:          false,
	}
	if tt.EffectiveFeePerVsize > tx.EffectiveFeePerVsize {
		tx.EffectiveFeePerVsize = tt.EffectiveFeePerVsize
	}
	return tx
}
