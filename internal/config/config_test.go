package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"yapp-query/internal/registry"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, 10*time.Second, cfg.ChainTimeout)
	require.Equal(t, 8, cfg.BalanceFractionDigits)
	require.Equal(t, registry.EthereumMainnet, cfg.ENSChainID)
	require.Equal(t, "number", cfg.CounterReadMethod)
	require.False(t, cfg.Kafka.Enabled)
	require.False(t, cfg.Database.Enabled)
	require.Len(t, cfg.Chains, len(registry.Default()))
}

func TestLoad_ChainOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BASE_RPC_ENDPOINT", "http://localhost:9545")
	t.Setenv("BASE_COUNTER_ADDRESS", "0x00000000000000000000000000000000000000c0")
	t.Setenv("POLYGON_RATE_LIMIT", "12.5")
	t.Setenv("CHAIN_TIMEOUT", "3")
	t.Setenv("KAFKA_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, cfg.ChainTimeout)
	require.True(t, cfg.Kafka.Enabled)

	byID := map[uint64]registry.ChainConfig{}
	for _, c := range cfg.Chains {
		byID[c.ChainID] = c
	}
	require.Equal(t, "http://localhost:9545", byID[registry.Base].RPCEndpoint)
	require.Equal(t, "0x00000000000000000000000000000000000000c0", byID[registry.Base].CounterAddress)
	require.Equal(t, 12.5, byID[registry.Polygon].RateLimit)
}

func TestLoad_RegistryFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "chains.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`chains:
  - chainId: 31337
    name: Local Anvil
    rpcEndpoint: http://127.0.0.1:8545
    nativeSymbol: ETH
`), 0o600))
	t.Setenv("CHAIN_REGISTRY_FILE", path)
	t.Setenv("LOCAL_ANVIL_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Len(t, cfg.Chains, 1)
	require.Equal(t, uint64(31337), cfg.Chains[0].ChainID)
	require.Equal(t, "secret", cfg.Chains[0].APIKey)
}

func TestLoad_InvalidTimeout(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CHAIN_TIMEOUT", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestEnvPrefix(t *testing.T) {
	require.Equal(t, "ETHEREUM", envPrefix("Ethereum"))
	require.Equal(t, "LOCAL_ANVIL", envPrefix(" local anvil "))
	require.Equal(t, "OP_MAINNET", envPrefix("op-mainnet"))
}
