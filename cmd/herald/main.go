package main

import (
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/23skdu/longbow-herald/internal/logger"
	"github.com/23skdu/longbow-herald/internal/model"
	"github.com/23skdu/longbow-herald/internal/weights"
)

var (
	vocabSize   = flag.Int("vocab", 37000, "Vocabulary size")
	layers      = flag.Int("layers", 6, "Number of encoder and decoder layers")
	heads       = flag.Int("heads", 8, "Attention heads per layer")
	dModel      = flag.Int("d-model", 512, "Model width")
	dFF         = flag.Int("d-ff", 2048, "Feed-forward hidden width")
	seed        = flag.Int64("seed", 1, "Weight initialization seed")
	batch       = flag.Int("batch", 2, "Batch size for the demo forward pass")
	srcLen      = flag.Int("src-len", 8, "Source sequence length")
	tgtLen      = flag.Int("tgt-len", 8, "Target sequence length")
	loadPath    = flag.String("load", "", "Load a weight snapshot before running")
	savePath    = flag.String("save", "", "Save a weight snapshot after construction")
	metricsAddr = flag.String("metrics", ":9090", "Address to serve Prometheus metrics")
	logLevel    = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat   = flag.String("log-format", "console", "Log format (console, json)")
)

func main() {
	flag.Parse()
	logger.Setup(*logLevel, *logFormat)
	log := logger.Log.With("herald")

	go func() {
		http.Handle("/metrics", promhttp.Handler())
		log.Info("metrics serving", "addr", *metricsAddr)
		if err := http.ListenAndServe(*metricsAddr, nil); err != nil {
			log.Error("metrics server failed", "error", err)
		}
	}()

	cfg := model.Config{
		VocabSize: *vocabSize,
		Layers:    *layers,
		Heads:     *heads,
		DModel:    *dModel,
		DFF:       *dFF,
		Eps:       1e-5,
		Seed:      *seed,
	}
	m, err := model.New(cfg)
	if err != nil {
		log.Error("model construction failed", "error", err)
		os.Exit(1)
	}

	if *loadPath != "" {
		if err := loadSnapshot(m, *loadPath); err != nil {
			log.Error("snapshot load failed", "path", *loadPath, "error", err)
			os.Exit(1)
		}
		log.Info("snapshot loaded", "path", *loadPath)
	}
	if *savePath != "" {
		if err := saveSnapshot(m, *savePath); err != nil {
			log.Error("snapshot save failed", "path", *savePath, "error", err)
			os.Exit(1)
		}
		log.Info("snapshot saved", "path", *savePath)
	}

	// Demo pass over random token indices; deterministic for a fixed seed.
	rng := rand.New(rand.NewSource(*seed))
	source := randomTokens(rng, *batch, *srcLen, cfg.VocabSize)
	target := randomTokens(rng, *batch, *tgtLen, cfg.VocabSize)

	start := time.Now()
	probs, err := m.Forward(source, target)
	if err != nil {
		log.Error("forward pass failed", "error", err)
		os.Exit(1)
	}
	log.Info("forward pass complete",
		"batch", *batch,
		"src_len", *srcLen,
		"tgt_len", *tgtLen,
		"duration", time.Since(start).String(),
	)

	// Greedy readout: the argmax token per target position.
	for b := 0; b < *batch; b++ {
		fmt.Printf("sequence %d:", b)
		for s := 0; s < *tgtLen; s++ {
			best, bestP := 0, float32(-1)
			for v := 0; v < cfg.VocabSize; v++ {
				if p := probs.At(b, s, v); p > bestP {
					best, bestP = v, p
				}
			}
			fmt.Printf(" %d(%.4f)", best, bestP)
		}
		fmt.Println()
	}
}

func randomTokens(rng *rand.Rand, batch, seqLen, vocab int) [][]int {
	out := make([][]int, batch)
	for b := range out {
		row := make([]int, seqLen)
		for s := range row {
			row[s] = rng.Intn(vocab)
		}
		out[b] = row
	}
	return out
}

func loadSnapshot(m *model.Transformer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	params, err := weights.Load(f)
	if err != nil {
		return err
	}
	return m.SetParameters(params)
}

func saveSnapshot(m *model.Transformer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := weights.Save(f, m.Parameters()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
