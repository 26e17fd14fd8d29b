package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kysee/mantapay/types"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	p := cfg.Params([32]byte{1})
	require.Equal(t, 20, p.Depth)
	require.Equal(t, 128, p.RetainRoots)
	require.NoError(t, p.Validate())
}

func TestEncodeDecode(t *testing.T) {
	cfg := Default()
	cfg.Genesis = &Genesis{Account: types.Account{0x01}.String(), Asset: 3, Total: 500}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, cfg))
	require.Contains(t, buf.String(), "TreeDepth = 20")

	got := Default()
	require.NoError(t, Decode(&buf, got))
	require.Equal(t, cfg, got)
}

func TestLoad(t *testing.T) {
	file := filepath.Join(t.TempDir(), "mantapay.toml")
	require.NoError(t, os.WriteFile(file, []byte("[Scheme]\nTreeDepth = 8\n"), 0o644))

	cfg, err := Load(file)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Scheme.TreeDepth)
	require.Equal(t, 128, cfg.Scheme.RetainRoots)

	require.NoError(t, os.WriteFile(file, []byte("[Scheme]\nDepth = 8\n"), 0o644))
	_, err = Load(file)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "Depth"))

	require.NoError(t, os.WriteFile(file, []byte("[Scheme]\nTreeDepth = 40\n"), 0o644))
	_, err = Load(file)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"depth":   func(c *Config) { c.Scheme.TreeDepth = 0 },
		"retain":  func(c *Config) { c.Scheme.RetainRoots = 0 },
		"arity":   func(c *Config) { c.Scheme.MaxOutputs = 0 },
		"cache":   func(c *Config) { c.Node.VerifyCacheSize = -1 },
		"account": func(c *Config) { c.Genesis = &Genesis{Account: "nope", Total: 1} },
		"total":   func(c *Config) { c.Genesis = &Genesis{Account: types.Account{}.String()} },
	} {
		cfg := Default()
		mutate(cfg)
		require.Error(t, cfg.Validate(), name)
	}
}
