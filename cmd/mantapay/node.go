package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/leveldb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/kysee/mantapay/bank"
	"github.com/kysee/mantapay/circuit"
	"github.com/kysee/mantapay/config"
	"github.com/kysee/mantapay/ledger"
	"github.com/kysee/mantapay/logging"
	"github.com/kysee/mantapay/verifier"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

func loadConfig(ctx *cli.Context) (*config.Config, zerolog.Logger, error) {
	cfg := config.Default()
	if file := ctx.String(configFlag.Name); file != "" {
		var err error
		if cfg, err = config.Load(file); err != nil {
			return nil, zerolog.Nop(), err
		}
	}
	if ctx.IsSet(dataDirFlag.Name) {
		cfg.Node.DataDir = ctx.String(dataDirFlag.Name)
	}
	if ctx.IsSet(logLevelFlag.Name) {
		cfg.Node.LogLevel = ctx.String(logLevelFlag.Name)
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	log, err := logging.Console(cfg.Node.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logging.SetCircuitLogger(log)
	return cfg, log, nil
}

// node is everything a command needs to read or change the ledger.
type node struct {
	cfg     *config.Config
	log     zerolog.Logger
	db      ethdb.KeyValueStore
	backend *verifier.Groth16
	state   *ledger.State
	bank    *bank.Bank
}

func openDB(cfg *config.Config) (ethdb.KeyValueStore, error) {
	if cfg.Node.DataDir == "" {
		return memorydb.New(), nil
	}
	return leveldb.New(cfg.Node.DataDir, cfg.Node.Cache, cfg.Node.Handles, "mantapay/db/", false)
}

// openNode loads the verifying keys and opens the ledger. A fresh database is
// initialised with genesis parameters.
func openNode(ctx *cli.Context) (*node, error) {
	cfg, log, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	s := cfg.Scheme
	backend, err := verifier.LoadGroth16(s.KeyDir, s.TreeDepth, circuit.Shapes(s.MaxInputs, s.MaxOutputs))
	if err != nil {
		return nil, fmt.Errorf("load keys (run setup first?): %w", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	st, err := ledger.Open(db, cfg.Params(backend.Checksum()), log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &node{
		cfg:     cfg,
		log:     log,
		db:      db,
		backend: backend,
		state:   st,
		bank:    bank.New(db, log),
	}, nil
}

func (n *node) Close() error {
	return n.db.Close()
}
