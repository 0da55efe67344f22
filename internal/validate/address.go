// Package validate holds the synchronous, format-only destination checks
// that gate checkout before any network call is made. These are structural
// checks (charset, prefix, length), not checksum or on-chain existence
// checks; a provider-side pass may still reject an address that passes here.
package validate

import (
	"regexp"

	"rampcore/internal/domain"
)

var chainPatterns = map[string][]*regexp.Regexp{
	domain.ChainBitcoin: {
		regexp.MustCompile(`^1[a-km-zA-HJ-NP-Z1-9]{25,34}$`),
		regexp.MustCompile(`^3[a-km-zA-HJ-NP-Z1-9]{25,34}$`),
		regexp.MustCompile(`^bc1[02-9ac-hj-np-z]{11,71}$`),
	},
	domain.ChainEthereum: {
		regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`),
	},
	domain.ChainTron: {
		regexp.MustCompile(`^T[1-9A-HJ-NP-Za-km-z]{33}$`),
	},
	domain.ChainSolana: {
		regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`),
	},
	domain.ChainLitecoin: {
		regexp.MustCompile(`^[LM][a-km-zA-HJ-NP-Z1-9]{26,33}$`),
		regexp.MustCompile(`^ltc1[02-9ac-hj-np-z]{11,71}$`),
	},
	domain.ChainRipple: {
		regexp.MustCompile(`^r[1-9A-HJ-NP-Za-km-z]{24,34}$`),
	},
	domain.ChainDogecoin: {
		regexp.MustCompile(`^D[1-9A-HJ-NP-Za-km-z]{25,34}$`),
	},
	domain.ChainCardano: {
		regexp.MustCompile(`^addr1[02-9ac-hj-np-z]{20,104}$`),
	},
	domain.ChainTON: {
		regexp.MustCompile(`^(?:EQ|UQ)[A-Za-z0-9_-]{46}$`),
	},
}

// Address reports whether addr is structurally valid for the given asset.
// Assets issued on multiple chains accept an address matching any of their
// chains' formats. Unknown assets validate false.
func Address(addr string, asset domain.AssetCode) bool {
	if addr == "" {
		return false
	}
	chains, ok := domain.AssetChains[asset]
	if !ok {
		return false
	}
	for _, chain := range chains {
		for _, re := range chainPatterns[chain] {
			if re.MatchString(addr) {
				return true
			}
		}
	}
	return false
}
