// Package engine assembles the minting engine: storage, ledger, chain
// indexer, fee oracle and the reconciliation monitor, wired from one
// Config.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ordforge/ordforge/config"
	"github.com/ordforge/ordforge/internal/chainindex"
	"github.com/ordforge/ordforge/internal/content"
	"github.com/ordforge/ordforge/internal/feeoracle"
	"github.com/ordforge/ordforge/internal/ledger"
	"github.com/ordforge/ordforge/internal/log"
	"github.com/ordforge/ordforge/internal/reconcile"
	"github.com/ordforge/ordforge/internal/storage"
)

// Engine is the assembled minting engine.
type Engine struct {
	cfg *config.Config

	db      storage.DB
	Ledger  *ledger.Ledger
	Indexer *chainindex.Client
	Oracle  *feeoracle.Oracle
	Monitor *reconcile.Monitor
	Content content.Source

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an engine from config. The caller owns Stop.
func New(cfg *config.Config) (*Engine, error) {
	// ── 1. Init logger ──────────────────────────────────────────────
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			return nil, fmt.Errorf("creating logs dir: %w", err)
		}
		logFile = filepath.Join(logsDir, "ordforge.log")
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	logger := log.WithComponent("engine")

	logger.Info().
		Str("network", string(cfg.Network)).
		Str("indexer", cfg.Indexer.Endpoint).
		Msg("Starting Ordforge minting engine")

	// ── 2. Open storage ─────────────────────────────────────────────
	raw, err := storage.NewBadger(cfg.LedgerDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.LedgerDir(), err)
	}
	// Keys are namespaced by network so a datadir pointed at the wrong
	// network can never read another network's mint records.
	db := storage.NewPrefixDB(raw, []byte(string(cfg.Network)+"/"))
	logger.Info().Str("path", cfg.LedgerDir()).Msg("Ledger database opened")

	// ── 3. Ledger ───────────────────────────────────────────────────
	led := ledger.New(db)

	// ── 4. Chain indexer ────────────────────────────────────────────
	indexer := chainindex.NewWithTimeout(
		cfg.Indexer.Endpoint,
		time.Duration(cfg.Indexer.TimeoutSeconds)*time.Second,
	)

	// ── 5. Fee oracle ───────────────────────────────────────────────
	oracle := feeoracle.New(feeoracle.Options{
		Endpoints: cfg.Fees.Endpoints,
		Floor:     cfg.Fees.Floor,
		CacheTTL:  time.Duration(cfg.Fees.CacheSeconds) * time.Second,
	}, indexer)

	// ── 6. Reconciliation monitor ───────────────────────────────────
	monitor := reconcile.New(led, indexer, reconcile.Options{
		Interval:   time.Duration(cfg.Reconcile.IntervalSeconds) * time.Second,
		StaleAfter: time.Duration(cfg.Reconcile.StaleMinutes) * time.Minute,
	})

	// ── 7. Content source ───────────────────────────────────────────
	var src content.Source
	if cfg.Content.Dir != "" {
		src, err = content.NewDirSource(cfg.Content.Dir)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("open content source: %w", err)
		}
		logger.Info().Str("dir", cfg.Content.Dir).Msg("Content source opened")
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		cfg:     cfg,
		db:      raw,
		Ledger:  led,
		Indexer: indexer,
		Oracle:  oracle,
		Monitor: monitor,
		Content: src,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Start launches the background reconciliation loop.
func (e *Engine) Start() error {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.Monitor.Start(e.ctx)
	}()
	return nil
}

// Stop shuts down background work and closes storage.
func (e *Engine) Stop() {
	e.cancel()
	e.wg.Wait()
	if err := e.db.Close(); err != nil {
		logger := log.WithComponent("engine")
		logger.Error().Err(err).Msg("closing database")
	}
}
