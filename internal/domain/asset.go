package domain

type AssetCode string

// Chain names used by address validation and network-specific routing.
const (
	ChainBitcoin  = "bitcoin"
	ChainEthereum = "ethereum"
	ChainTron     = "tron"
	ChainSolana   = "solana"
	ChainLitecoin = "litecoin"
	ChainRipple   = "ripple"
	ChainDogecoin = "dogecoin"
	ChainCardano  = "cardano"
	ChainTON      = "ton"
)

var fiatCurrencies = map[AssetCode]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"NGN": true,
	"MXN": true,
	"CAD": true,
	"AUD": true,
	"CHF": true,
	"PLN": true,
	"BRL": true,
}

// AssetChains maps a crypto asset to the chains it is issued on. Multi-chain
// assets accept a destination address valid on any listed chain.
var AssetChains = map[AssetCode][]string{
	"BTC":   {ChainBitcoin},
	"ETH":   {ChainEthereum},
	"USDT":  {ChainEthereum, ChainTron},
	"USDC":  {ChainEthereum, ChainSolana},
	"TRX":   {ChainTron},
	"SOL":   {ChainSolana},
	"LTC":   {ChainLitecoin},
	"XRP":   {ChainRipple},
	"DOGE":  {ChainDogecoin},
	"ADA":   {ChainCardano},
	"TON":   {ChainTON},
	"BNB":   {ChainEthereum},
	"MATIC": {ChainEthereum},
}

func (a AssetCode) IsFiat() bool { return fiatCurrencies[a] }

func (a AssetCode) IsCrypto() bool {
	_, ok := AssetChains[a]
	return ok
}

// RestrictedPairAsset can only be served by a single provider against a
// narrow set of fiat currencies; when it appears in a request every other
// provider is suppressed for that cycle.
const RestrictedPairAsset AssetCode = "TON"

// RestrictedPairFiat is the fiat set allowed for RestrictedPairAsset and the
// only fiat currencies FinchPay serves at all.
var RestrictedPairFiat = map[AssetCode]bool{
	"EUR": true,
	"GBP": true,
}
