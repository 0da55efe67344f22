package domain

type ProviderID string

const (
	ProviderMeld      ProviderID = "meld"
	ProviderOnRamp    ProviderID = "onramp"
	ProviderMoonPay   ProviderID = "moonpay"
	ProviderChangelly ProviderID = "changelly"
	ProviderExolix    ProviderID = "exolix"
	ProviderFinchPay  ProviderID = "finchpay"
)

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
	DirectionSwap Direction = "SWAP"
)

func ValidDirection(d Direction) bool {
	switch d {
	case DirectionBuy, DirectionSell, DirectionSwap:
		return true
	}
	return false
}
