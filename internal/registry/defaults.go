package registry

// Chain ids of the built-in table.
const (
	EthereumMainnet uint64 = 1
	Optimism        uint64 = 10
	Polygon         uint64 = 137
	Base            uint64 = 8453
	Arbitrum        uint64 = 42161
)

// Default returns the built-in chain table. Counter addresses are left empty;
// they are supplied per deployment through the environment or a registry file.
func Default() []ChainConfig {
	return []ChainConfig{
		{
			ChainID:         EthereumMainnet,
			Name:            "Ethereum",
			RPCEndpoint:     "https://cloudflare-eth.com",
			NativeSymbol:    "ETH",
			RateLimit:       4,
			ExplorerBaseURL: "https://etherscan.io",
		},
		{
			ChainID:         Base,
			Name:            "Base",
			RPCEndpoint:     "https://mainnet.base.org",
			NativeSymbol:    "ETH",
			RateLimit:       4,
			ExplorerBaseURL: "https://basescan.org",
		},
		{
			ChainID:         Polygon,
			Name:            "Polygon",
			RPCEndpoint:     "https://polygon-rpc.com",
			NativeSymbol:    "POL",
			RateLimit:       4,
			ExplorerBaseURL: "https://polygonscan.com",
		},
		{
			ChainID:         Arbitrum,
			Name:            "Arbitrum",
			RPCEndpoint:     "https://arb1.arbitrum.io/rpc",
			NativeSymbol:    "ETH",
			RateLimit:       4,
			ExplorerBaseURL: "https://arbiscan.io",
		},
		{
			ChainID:         Optimism,
			Name:            "Optimism",
			RPCEndpoint:     "https://mainnet.optimism.io",
			NativeSymbol:    "ETH",
			RateLimit:       4,
			ExplorerBaseURL: "https://optimistic.etherscan.io",
		},
	}
}
