// Package config holds the node configuration and its TOML file format.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"unicode"

	"github.com/kysee/mantapay/accumulator"
	"github.com/kysee/mantapay/ledger"
	"github.com/kysee/mantapay/types"
	"github.com/naoina/toml"
)

// Scheme settings are fixed at genesis; changing them needs new keys and a
// new ledger.
type Scheme struct {
	TreeDepth   int
	RetainRoots int
	MaxInputs   int
	MaxOutputs  int
	KeyDir      string
}

// MaxArity bounds MaxInputs and MaxOutputs; every allowed shape needs its
// own key.
const MaxArity = 8

type Node struct {
	// DataDir is the leveldb directory; empty keeps state in memory.
	DataDir         string
	Cache           int `toml:",omitempty"` // MB
	Handles         int `toml:",omitempty"`
	VerifyCacheSize int `toml:",omitempty"`
	LogLevel        string
}

// Genesis describes the public balance the bank starts with.
type Genesis struct {
	Account string
	Asset   uint32
	Total   uint64
}

type Config struct {
	Scheme  Scheme
	Node    Node
	Genesis *Genesis `toml:",omitempty"`
}

func Default() *Config {
	return &Config{
		Scheme: Scheme{
			TreeDepth:   20,
			RetainRoots: 128,
			MaxInputs:   2,
			MaxOutputs:  2,
			KeyDir:      "keys",
		},
		Node: Node{
			DataDir:         "data",
			Cache:           64,
			Handles:         64,
			VerifyCacheSize: 1024,
			LogLevel:        "info",
		},
	}
}

// Params returns the ledger parameters for keysChecksum.
func (c *Config) Params(keysChecksum [32]byte) ledger.Params {
	return ledger.Params{
		Depth:        c.Scheme.TreeDepth,
		RetainRoots:  c.Scheme.RetainRoots,
		KeysChecksum: keysChecksum,
	}
}

func (c *Config) Validate() error {
	s := c.Scheme
	if s.TreeDepth < 1 || s.TreeDepth > accumulator.MaxDepth {
		return fmt.Errorf("config: tree depth %d out of range 1..%d", s.TreeDepth, accumulator.MaxDepth)
	}
	if s.RetainRoots < 1 {
		return errors.New("config: at least one root must be retained")
	}
	if s.MaxInputs < 1 || s.MaxInputs > MaxArity || s.MaxOutputs < 1 || s.MaxOutputs > MaxArity {
		return fmt.Errorf("config: arity %dx%d out of range 1..%d", s.MaxInputs, s.MaxOutputs, MaxArity)
	}
	if c.Node.VerifyCacheSize < 0 {
		return errors.New("config: negative verify cache size")
	}
	if g := c.Genesis; g != nil {
		if _, err := types.ParseAccount(g.Account); err != nil {
			return fmt.Errorf("config: genesis account: %w", err)
		}
		if g.Total == 0 {
			return errors.New("config: genesis total must be positive")
		}
	}
	return nil
}

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		link := ""
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Load reads file over the defaults and validates the result.
func Load(file string) (*Config, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	if err := Decode(bufio.NewReader(f), cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Decode(r io.Reader, cfg *Config) error {
	return tomlSettings.NewDecoder(r).Decode(cfg)
}

func Encode(w io.Writer, cfg *Config) error {
	return tomlSettings.NewEncoder(w).Encode(cfg)
}
