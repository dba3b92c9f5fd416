// Package registry holds the static table of chains the service queries.
package registry

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"yapp-query/internal/validation"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

const DefaultNativeDecimals = 18

var ErrUnknownChain = errors.New("unknown chain")

// ChainConfig holds the connection parameters for one chain.
type ChainConfig struct {
	ChainID         uint64  `yaml:"chainId"`
	Name            string  `yaml:"name"`
	RPCEndpoint     string  `yaml:"rpcEndpoint"`
	APIKey          string  `yaml:"apiKey,omitempty"`
	NativeSymbol    string  `yaml:"nativeSymbol"`
	NativeDecimals  int     `yaml:"nativeDecimals,omitempty"`
	TokenAddress    string  `yaml:"tokenAddress,omitempty"`
	TokenSymbol     string  `yaml:"tokenSymbol,omitempty"`
	TokenDecimals   int     `yaml:"tokenDecimals,omitempty"`
	CounterAddress  string  `yaml:"counterAddress,omitempty"`
	RateLimit       float64 `yaml:"rateLimit,omitempty"`
	ExplorerBaseURL string  `yaml:"explorerBaseUrl,omitempty"`
}

// Asset describes what the balance query reads on this chain.
type Asset struct {
	Symbol   string
	Decimals int
	// Token is nil for the native asset.
	Token *common.Address
}

func (c ChainConfig) Asset() Asset {
	if c.TokenAddress != "" {
		token := common.HexToAddress(c.TokenAddress)
		return Asset{Symbol: c.TokenSymbol, Decimals: c.TokenDecimals, Token: &token}
	}
	return Asset{Symbol: c.NativeSymbol, Decimals: c.NativeDecimals}
}

// Counter returns the counter contract address, if one is deployed on the chain.
func (c ChainConfig) Counter() (common.Address, bool) {
	if c.CounterAddress == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(c.CounterAddress), true
}

func (c ChainConfig) String() string {
	return fmt.Sprintf("%s(%d)", c.Name, c.ChainID)
}

func (c ChainConfig) validate() error {
	if c.ChainID == 0 {
		return errors.New("chain id is required")
	}
	if err := validation.ValidateURL(c.RPCEndpoint); err != nil {
		return fmt.Errorf("rpc endpoint: %w", err)
	}
	if c.NativeSymbol == "" {
		return errors.New("native symbol is required")
	}
	if c.NativeDecimals < 0 || c.TokenDecimals < 0 {
		return errors.New("decimals cannot be negative")
	}
	if c.TokenAddress != "" {
		if err := validation.ValidateAddress(c.TokenAddress); err != nil {
			return fmt.Errorf("token address: %w", err)
		}
		if c.TokenSymbol == "" {
			return errors.New("token symbol is required with a token address")
		}
	}
	if c.CounterAddress != "" {
		if err := validation.ValidateAddress(c.CounterAddress); err != nil {
			return fmt.Errorf("counter address: %w", err)
		}
	}
	return nil
}

// Registry is an immutable, ordered set of chains. Iteration follows declaration order.
type Registry struct {
	chains []ChainConfig
	index  map[uint64]int
}

func New(chains []ChainConfig) (*Registry, error) {
	r := &Registry{
		chains: make([]ChainConfig, 0, len(chains)),
		index:  make(map[uint64]int, len(chains)),
	}
	for _, c := range chains {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			c.Name = fmt.Sprintf("chain-%d", c.ChainID)
		}
		if c.NativeDecimals == 0 {
			c.NativeDecimals = DefaultNativeDecimals
		}
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("chain %s: %w", c, err)
		}
		if _, dup := r.index[c.ChainID]; dup {
			return nil, fmt.Errorf("chain %s: duplicate chain id", c)
		}
		r.index[c.ChainID] = len(r.chains)
		r.chains = append(r.chains, c)
	}
	if len(r.chains) == 0 {
		return nil, errors.New("registry has no chains")
	}
	return r, nil
}

// Chains returns the chains in declaration order.
func (r *Registry) Chains() []ChainConfig {
	out := make([]ChainConfig, len(r.chains))
	copy(out, r.chains)
	return out
}

func (r *Registry) Len() int {
	return len(r.chains)
}

func (r *Registry) Lookup(chainID uint64) (ChainConfig, bool) {
	i, ok := r.index[chainID]
	if !ok {
		return ChainConfig{}, false
	}
	return r.chains[i], true
}

// Get is Lookup returning ErrUnknownChain for missing ids.
func (r *Registry) Get(chainID uint64) (ChainConfig, error) {
	c, ok := r.Lookup(chainID)
	if !ok {
		return ChainConfig{}, fmt.Errorf("%w: %d", ErrUnknownChain, chainID)
	}
	return c, nil
}

type fileFormat struct {
	Chains []ChainConfig `yaml:"chains"`
}

// LoadFile reads a chain table from a YAML file of the form `chains: [...]`.
func LoadFile(path string) ([]ChainConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain registry: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) ([]ChainConfig, error) {
	var f fileFormat
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse chain registry: %w", err)
	}
	if len(f.Chains) == 0 {
		return nil, errors.New("parse chain registry: no chains declared")
	}
	return f.Chains, nil
}
