package main

import (
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"

	"github.com/bholm/mempool/domain/projection"
)

const (
	defaultHomeDir     = "tmpld-data"
	defaultLogFilename = "tmpld.log"
)

var defaultLogFile = filepath.Join(defaultHomeDir, defaultLogFilename)

// config is the demo daemon's command-line surface, in the same
// long-tagged-struct-plus-flags.NewParser shape as this engine's
// originating node uses for its own standalone tools.
type config struct {
	LogDir              string  `long:"logdir" description:"Directory to log output to"`
	LogLevel            string  `long:"loglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	BlockWeightUnits    int64   `long:"blockweight" description:"Maximum weight of a projected block"`
	MempoolBlocksAmount int     `long:"blocks" description:"Number of projected blocks to maintain, including the overflow block"`
	FeePercentile       float64 `long:"fee-percentile" description:"Percentile of block 0's fee range surfaced as the half-hour recommended fee"`
}

func parseConfig() (*config, error) {
	cfg := &config{
		LogDir:              defaultHomeDir,
		LogLevel:            "info",
		BlockWeightUnits:    projection.DefaultConfig().BlockWeightUnits,
		MempoolBlocksAmount: projection.DefaultConfig().MempoolBlocksAmount,
		FeePercentile:       projection.DefaultConfig().RecommendedFeePercentile,
	}

	parser := flags.NewParser(cfg, flags.PrintErrors|flags.HelpFlag)
	if _, err := parser.Parse(); err != nil {
		return nil, err
	}

	if cfg.BlockWeightUnits <= 0 {
		return nil, errors.New("--blockweight must be positive")
	}
	if cfg.MempoolBlocksAmount <= 0 {
		return nil, errors.New("--blocks must be positive")
	}
	if cfg.FeePercentile < 0 || cfg.FeePercentile > 100 {
		return nil, errors.New("--fee-percentile must be between 0 and 100")
	}

	return cfg, nil
}

func (cfg *config) projectionConfig() projection.Config {
	pcfg := projection.DefaultConfig()
	pcfg.BlockWeightUnits = cfg.BlockWeightUnits
	pcfg.MempoolBlocksAmount = cfg.MempoolBlocksAmount
	pcfg.RecommendedFeePercentile = cfg.FeePercentile
	return pcfg
}

func (cfg *config) logFile() string {
	return filepath.Join(cfg.LogDir, defaultLogFilename)
}
