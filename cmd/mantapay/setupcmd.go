package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/mantapay/circuit"
	"github.com/kysee/mantapay/verifier"
	"github.com/urfave/cli/v2"
)

var solidityFlag = &cli.StringFlag{
	Name:  "solidity",
	Usage: "also write a Solidity verifier contract per shape into this directory",
}

var commandSetup = &cli.Command{
	Name:  "setup",
	Usage: "compile every circuit shape and generate its keys",
	Description: `
Compiles the spend circuit for every shape allowed by Scheme.MaxInputs and
Scheme.MaxOutputs at Scheme.TreeDepth and writes the constraint system,
proving key and verifying key of each into Scheme.KeyDir.

The keys come from a local setup and are only fit for testing.`,
	Flags: []cli.Flag{
		solidityFlag,
	},
	Action: func(ctx *cli.Context) error {
		cfg, log, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		s := cfg.Scheme
		solDir := ctx.String(solidityFlag.Name)
		if solDir != "" {
			if err := os.MkdirAll(solDir, 0o755); err != nil {
				return err
			}
		}

		backend := verifier.NewGroth16()
		for _, shape := range circuit.Shapes(s.MaxInputs, s.MaxOutputs) {
			start := time.Now()
			keys, err := circuit.Setup(shape, s.TreeDepth)
			if err != nil {
				return err
			}
			if err := keys.Save(s.KeyDir); err != nil {
				return err
			}
			if solDir != "" {
				if err := exportSolidity(keys, filepath.Join(solDir, shape.String()+".sol")); err != nil {
					return err
				}
			}
			backend.Register(shape, keys.VK)
			log.Info().
				Str("shape", shape.String()).
				Int("constraints", keys.CCS.GetNbConstraints()).
				Dur("elapsed", time.Since(start)).
				Msg("generated keys")
		}
		sum := backend.Checksum()
		fmt.Printf("keys checksum: %s\n", hexutil.Encode(sum[:]))
		return nil
	},
}

func exportSolidity(keys *circuit.Keys, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := keys.ExportSolidity(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
