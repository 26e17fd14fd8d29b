package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kysee/mantapay/processor"
	"github.com/kysee/mantapay/types"
	"github.com/kysee/mantapay/utils"
	"github.com/stretchr/testify/require"
)

func TestReadBlock(t *testing.T) {
	k, s := utils.RandElement(), utils.RandElement()
	mint := &types.Mint{
		Asset:  1,
		Amount: 5,
		Data: types.MintData{
			K:          types.ScalarFromElement(k),
			S:          types.ScalarFromElement(s),
			Commitment: types.NoteCommitment(1, 5, k, s),
		},
	}
	bz, err := types.EncodeOperation(mint)
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "block.txt")
	content := "# one mint\n" +
		hexutil.Encode(bz) + "\n\n" +
		hexutil.Encode(bz[:len(bz)-1]) + "\n" +
		"zz\n" +
		hexutil.Encode(bz) + "\n"
	require.NoError(t, os.WriteFile(file, []byte(content), 0o644))

	origin := types.Account{0x07}
	entries, err := readBlock(file, origin)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	require.Equal(t, []int{2, 4, 5, 6}, []int{entries[0].line, entries[1].line, entries[2].line, entries[3].line})

	require.NoError(t, entries[0].err)
	require.Equal(t, origin, entries[0].sub.Origin)
	require.Equal(t, mint, entries[0].sub.Op)
	require.ErrorIs(t, entries[1].err, types.ErrMalformedEncoding)
	require.ErrorIs(t, entries[2].err, types.ErrMalformedEncoding)
	require.NoError(t, entries[3].err)

	// bad lines keep their place among the block results
	applied := []processor.Result{{Receipt: &processor.Receipt{Action: types.ActionMint}}, {Err: types.ErrDoubleSpend}}
	merged := mergeResults(entries, applied)
	require.Len(t, merged, 4)
	require.Equal(t, applied[0], merged[0])
	require.ErrorIs(t, merged[1].Err, types.ErrMalformedEncoding)
	require.ErrorIs(t, merged[2].Err, types.ErrMalformedEncoding)
	require.Equal(t, applied[1], merged[3])
}
