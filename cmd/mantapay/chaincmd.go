package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/mantapay/bank"
	"github.com/kysee/mantapay/processor"
	"github.com/kysee/mantapay/types"
	"github.com/kysee/mantapay/verifier"
	"github.com/urfave/cli/v2"
)

var (
	originFlag = &cli.StringFlag{
		Name:     "origin",
		Usage:    "account address submitting the operations",
		Required: true,
	}
	assetFlag = &cli.UintFlag{
		Name:  "asset",
		Usage: "asset id to report balances for",
	}
)

var commandInit = &cli.Command{
	Name:  "init",
	Usage: "write the ledger genesis and issue the genesis balance",
	Action: func(ctx *cli.Context) error {
		n, err := openNode(ctx)
		if err != nil {
			return err
		}
		defer n.Close()

		if g := n.cfg.Genesis; g != nil {
			account, err := types.ParseAccount(g.Account)
			if err != nil {
				return err
			}
			ev, err := n.bank.Init(account, types.AssetID(g.Asset), g.Total)
			if errors.Is(err, bank.ErrAlreadyInitialized) {
				n.log.Warn().Msg("bank already initialised")
			} else if err != nil {
				return err
			} else {
				n.log.Info().Stringer("event", ev.Kind).Str("to", account.String()).Uint64("total", g.Total).Msg("issued genesis balance")
			}
		}
		root := n.state.Root()
		fmt.Printf("genesis root: %s\n", hexutil.Encode(root[:]))
		return nil
	},
}

var commandStatus = &cli.Command{
	Name:  "status",
	Usage: "print the ledger state",
	Flags: []cli.Flag{
		assetFlag,
	},
	Action: func(ctx *cli.Context) error {
		n, err := openNode(ctx)
		if err != nil {
			return err
		}
		defer n.Close()

		st := n.state
		root := st.Root()
		asset := types.AssetID(ctx.Uint(assetFlag.Name))
		fmt.Printf("root:          %s\n", hexutil.Encode(root[:]))
		fmt.Printf("leaves:        %d / %d\n", st.LeafCount(), st.Capacity())
		fmt.Printf("known roots:   %d\n", len(st.Roots()))
		fmt.Printf("spent tags:    %d\n", st.TagCount())
		fmt.Printf("tags digest:   %s\n", hexutil.Encode(st.TagsDigest()))
		fmt.Printf("pool[%d]:       %s\n", asset, st.Pool(asset).Dec())
		done, err := n.bank.Initialized()
		if err != nil {
			return err
		}
		if done {
			total, err := n.bank.TotalSupply(asset)
			if err != nil {
				return err
			}
			fmt.Printf("supply[%d]:     %s\n", asset, total.Dec())
		}
		return nil
	},
}

var commandInspectRoot = &cli.Command{
	Name:      "inspect-root",
	Usage:     "check whether a root is still accepted for spends",
	ArgsUsage: "<root>",
	Action: func(ctx *cli.Context) error {
		bz, err := hexutil.Decode(ctx.Args().First())
		if err != nil {
			return err
		}
		root, err := types.DecodeRoot(bz)
		if err != nil {
			return err
		}
		n, err := openNode(ctx)
		if err != nil {
			return err
		}
		defer n.Close()

		roots := n.state.Roots()
		for i := range roots {
			if roots[i] == root {
				fmt.Printf("accepted: %d of %d retained roots, %d newer\n", i+1, len(roots), len(roots)-1-i)
				return nil
			}
		}
		fmt.Println("stale: not in the retained window")
		return nil
	},
}

var commandApply = &cli.Command{
	Name:      "apply",
	Usage:     "apply a block of encoded operations",
	ArgsUsage: "<file>",
	Description: `
Reads one hex encoded operation per line from <file> and applies them in
order as one block. Every operation gets its own result; a rejected one does
not stop the others.`,
	Flags: []cli.Flag{
		originFlag,
	},
	Action: func(ctx *cli.Context) error {
		origin, err := types.ParseAccount(ctx.String(originFlag.Name))
		if err != nil {
			return err
		}
		entries, err := readBlock(ctx.Args().First(), origin)
		if err != nil {
			return err
		}
		n, err := openNode(ctx)
		if err != nil {
			return err
		}
		defer n.Close()

		v, err := verifier.New(n.backend, n.cfg.Node.VerifyCacheSize, n.log)
		if err != nil {
			return err
		}
		proc := processor.New(v, n.bank, processor.Config{
			MaxInputs:  n.cfg.Scheme.MaxInputs,
			MaxOutputs: n.cfg.Scheme.MaxOutputs,
		}, n.log)

		var subs []processor.Submission
		for _, e := range entries {
			if e.err == nil {
				subs = append(subs, e.sub)
			}
		}
		results, err := proc.ApplyBlock(context.Background(), n.state, subs)
		if err != nil {
			return err
		}
		for i, res := range mergeResults(entries, results) {
			if res.Err != nil {
				fmt.Printf("line %d: rejected: %v\n", entries[i].line, res.Err)
				continue
			}
			fmt.Printf("line %d: %s root %s\n", entries[i].line, types.ActionName(res.Receipt.Action), hexutil.Encode(res.Receipt.Root[:]))
		}
		return nil
	},
}

// blockEntry is one operation line of a block file. Lines that do not decode
// keep their error and are not submitted.
type blockEntry struct {
	line int
	sub  processor.Submission
	err  error
}

func readBlock(file string, origin types.Account) ([]blockEntry, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []blockEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		e := blockEntry{line: line}
		if bz, err := hexutil.Decode(text); err != nil {
			e.err = fmt.Errorf("%w: %v", types.ErrMalformedEncoding, err)
		} else if op, err := types.DecodeOperation(bz); err != nil {
			e.err = err
		} else {
			e.sub = processor.Submission{Origin: origin, Op: op}
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// mergeResults puts the results of the submitted entries back in file order
// next to the entries that never decoded.
func mergeResults(entries []blockEntry, results []processor.Result) []processor.Result {
	out := make([]processor.Result, len(entries))
	next := 0
	for i, e := range entries {
		if e.err != nil {
			out[i] = processor.Result{Err: e.err}
			continue
		}
		out[i] = results[next]
		next++
	}
	return out
}
