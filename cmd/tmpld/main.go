package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/bholm/mempool/domain/projection"
	"github.com/bholm/mempool/logger"
	"github.com/bholm/mempool/util/panics"
)

var tmpdLog, _ = logger.Get(logger.SubsystemTags.TMPD)

func main() {
	defer handlePanic()

	cfg, err := parseConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing command-line arguments: %s\n", err)
		os.Exit(1)
	}

	if err := logger.InitLogRotator(cfg.logFile()); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing log rotator: %s\n", err)
		os.Exit(1)
	}
	logger.SetLogLevels(cfg.LogLevel)

	orch := projection.NewOrchestrator(cfg.projectionConfig(), tmpdLog)
	mempool := make(projection.Mempool)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	spawn := panics.GoroutineWrapperFunc(tmpdLog)
	spawn(func() { driveDemo(orch, mempool) })

	<-interrupt
	tmpdLog.Info("received interrupt, shutting down")
}

// driveDemo periodically runs the fast path and, every few ticks, the full
// Template Builder path, printing the resulting block summaries. It stands
// in for a real MempoolSource driver, which this module deliberately does
// not implement (see domain/projection.MempoolSource).
func driveDemo(orch *projection.Orchestrator, mempool projection.Mempool) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	tick := 0
	for range ticker.C {
		tick++
		seedDemoTransactions(mempool, tick)

		if tick%5 == 0 {
			blocks := orch.MakeBlockTemplates(mempool, true)
			tmpdLog.Infof("template path: %d blocks published", len(blocks))
		} else {
			blocks := orch.UpdateMempoolBlocks(mempool, true)
			tmpdLog.Infof("fast path: %d blocks published", len(blocks))
		}

		fees := orch.GetRecommendedFees()
		tmpdLog.Infof("recommended fees: fastest=%.2f halfHour=%.2f hour=%.2f economy=%.2f minimum=%.2f",
			fees.FastestFee, fees.HalfHourFee, fees.HourFee, fees.EconomyFee, fees.MinimumFee)

		stats := orch.LastProjectionStats()
		if stats.DroppedStaleTransactions > 0 || stats.DroppedClusterMembers > 0 {
			tmpdLog.Warnf("dropped %d stale transactions, %d cluster members this round",
				stats.DroppedStaleTransactions, stats.DroppedClusterMembers)
		}
	}
}

// seedDemoTransactions adds a handful of synthetic transactions to mempool
// on every tick, occasionally chaining one onto a prior transaction's
// output to exercise CPFP. It is demo scaffolding, not a mempool ingestion
// implementation.
func seedDemoTransactions(mempool projection.Mempool, tick int) {
	base := projection.TxID(fmt.Sprintf("tx-%04d-a", tick))
	mempool[base] = &projection.Transaction{
		TxID:   base,
		Fee:    1000,
		Weight: 4000,
		Size:   1000,
	}

	if tick%3 == 0 {
		child := projection.TxID(fmt.Sprintf("tx-%04d-b", tick))
		mempool[child] = &projection.Transaction{
			TxID:   child,
			Fee:    200,
			Weight: 2000,
			Size:   500,
			Vin:    []projection.TxID{base},
		}
	}
}

func handlePanic() {
	if err := recover(); err != nil {
		tmpdLog.Criticalf("fatal error: %s", err)
		tmpdLog.Criticalf("stack trace: %s", debug.Stack())
	}
}
