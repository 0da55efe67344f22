package validate

import (
	"regexp"
	"strings"

	"rampcore/internal/domain"
)

// BankDetails is a payout destination for SELL flows.
type BankDetails struct {
	Currency      domain.AssetCode
	AccountNumber string
	RoutingCode   string
}

// BankCheck explains which rule failed when a bank detail is rejected.
type BankCheck struct {
	IsValid bool
	Err     string
}

var (
	nubanRe   = regexp.MustCompile(`^\d{10}$`)
	abaRe     = regexp.MustCompile(`^\d{9}$`)
	usAcctRe  = regexp.MustCompile(`^\d{4,17}$`)
	ukAcctRe  = regexp.MustCompile(`^\d{8}$`)
	sortRe    = regexp.MustCompile(`^\d{6}$`)
	ibanRe    = regexp.MustCompile(`^[A-Z]{2}\d{2}[A-Z0-9]{11,30}$`)
	genericRe = regexp.MustCompile(`^[A-Za-z0-9]{6,34}$`)
)

func ok() BankCheck             { return BankCheck{IsValid: true} }
func fail(msg string) BankCheck { return BankCheck{Err: msg} }
func digits(s string) string    { return strings.Map(keepDigit, s) }
func keepDigit(r rune) rune {
	if r >= '0' && r <= '9' {
		return r
	}
	return -1
}

// Bank validates per-jurisdiction account number schemes: NUBAN for NGN,
// ABA routing plus account for USD, sort code plus 8-digit account for GBP,
// IBAN for EUR, and a generic alphanumeric length check for anything else.
func Bank(d BankDetails) BankCheck {
	switch d.Currency {
	case "NGN":
		if !nubanRe.MatchString(d.AccountNumber) {
			return fail("account number must be a 10-digit NUBAN")
		}
		return ok()
	case "USD":
		if !abaRe.MatchString(digits(d.RoutingCode)) {
			return fail("routing number must be 9 digits")
		}
		if !usAcctRe.MatchString(d.AccountNumber) {
			return fail("account number must be 4-17 digits")
		}
		return ok()
	case "GBP":
		if !ukAcctRe.MatchString(d.AccountNumber) {
			return fail("account number must be 8 digits")
		}
		if !sortRe.MatchString(digits(d.RoutingCode)) {
			return fail("sort code must be 6 digits")
		}
		return ok()
	case "EUR":
		iban := strings.ToUpper(strings.ReplaceAll(d.AccountNumber, " ", ""))
		if !ibanRe.MatchString(iban) {
			return fail("account number must be IBAN-shaped")
		}
		return ok()
	default:
		if !genericRe.MatchString(d.AccountNumber) {
			return fail("account number must be 6-34 alphanumeric characters")
		}
		return ok()
	}
}
