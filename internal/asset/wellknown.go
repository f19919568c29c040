package asset

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDSepolia  = 11155111
	ChainIDGnosis   = 100
	ChainIDArbitrum = 42161
	ChainIDBase     = 8453
)

// Well-known token addresses on Ethereum Mainnet
var (
	WETH = HexToToken("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	USDC = HexToToken("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	USDT = HexToToken("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	DAI  = HexToToken("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	WBTC = HexToToken("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
	COW  = HexToToken("0xDEf1CA1fb7FBcDC777520aa7f396b4E015F497aB")
)

// DefaultRegistry is pre-populated with the well-known mainnet tokens.
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Register(Token{Address: NativeToken, Symbol: "ETH", Decimals: 18})
	r.Register(Token{Address: WETH, Symbol: "WETH", Decimals: 18})
	r.Register(Token{Address: USDC, Symbol: "USDC", Decimals: 6})
	r.Register(Token{Address: USDT, Symbol: "USDT", Decimals: 6})
	r.Register(Token{Address: DAI, Symbol: "DAI", Decimals: 18})
	r.Register(Token{Address: WBTC, Symbol: "WBTC", Decimals: 8})
	r.Register(Token{Address: COW, Symbol: "COW", Decimals: 18})
	return r
}()

// WrappedNative returns the wrapped native token for a chain.
// Unknown chains fall back to mainnet WETH.
func WrappedNative(chainID uint64) TokenAddress {
	switch chainID {
	case ChainIDGnosis:
		return HexToToken("0xe91D153E0b41518A2Ce8Dd3D7944Fa863463a97d")
	case ChainIDSepolia:
		return HexToToken("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14")
	case ChainIDArbitrum:
		return HexToToken("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")
	case ChainIDBase:
		return HexToToken("0x4200000000000000000000000000000000000006")
	default:
		return WETH
	}
}
