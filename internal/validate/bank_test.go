package validate

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBank(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		details BankDetails
		valid   bool
		errLike string
	}{
		{"nuban ok", BankDetails{Currency: "NGN", AccountNumber: "0123456789"}, true, ""},
		{"nuban short", BankDetails{Currency: "NGN", AccountNumber: "012345678"}, false, "NUBAN"},
		{"us ok", BankDetails{Currency: "USD", AccountNumber: "000123456789", RoutingCode: "021000021"}, true, ""},
		{"us bad routing", BankDetails{Currency: "USD", AccountNumber: "000123456789", RoutingCode: "12345"}, false, "routing"},
		{"gb ok", BankDetails{Currency: "GBP", AccountNumber: "12345678", RoutingCode: "12-34-56"}, true, ""},
		{"gb bad sort", BankDetails{Currency: "GBP", AccountNumber: "12345678", RoutingCode: "12-34"}, false, "sort code"},
		{"gb bad account", BankDetails{Currency: "GBP", AccountNumber: "1234567", RoutingCode: "123456"}, false, "8 digits"},
		{"iban ok", BankDetails{Currency: "EUR", AccountNumber: "DE89 3704 0044 0532 0130 00"}, true, ""},
		{"iban bad", BankDetails{Currency: "EUR", AccountNumber: "89370400440532013000"}, false, "IBAN"},
		{"generic ok", BankDetails{Currency: "JPY", AccountNumber: "ACC0012345"}, true, ""},
		{"generic short", BankDetails{Currency: "JPY", AccountNumber: "A1"}, false, "alphanumeric"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Bank(tc.details)
			require.Equal(t, tc.valid, got.IsValid)
			if tc.errLike != "" {
				require.Contains(t, got.Err, tc.errLike)
			}
		})
	}
}
