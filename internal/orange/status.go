package orange

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// MobilePrepaid is the billing account type that carries a prepaid status.
const MobilePrepaid = "mobileprepaid"

// TimestampLayout is the provider's offset-less timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// Fraction keys exported as data allowances, in output order.
var DataFractions = []string{"DATA", "DATA_R"}

// AccountInfo is the resolved customer identity of one login.
type AccountInfo struct {
	CustomerID string
}

// BillingAccount is one provider-side account under a customer. Code is
// empty when the document did not carry one.
type BillingAccount struct {
	Type string
	Code string
	Name string
}

// PrepaidStatus is the balance document of a mobileprepaid billing account.
type PrepaidStatus struct {
	AccountExpiryDate string               `json:"accountExpiryDate"`
	GC                *Cash                `json:"gc"`
	PC                *Cash                `json:"pc"`
	Fractions         map[string]*Fraction `json:"fractions"`
}

type Cash struct {
	Value Money `json:"value"`
}

type Money struct {
	Amount Decimal `json:"amount"`
}

// Fraction is a named allowance bucket.
type Fraction struct {
	Sum      Money         `json:"sum"`
	Balances []BalanceItem `json:"balances"`
}

type BalanceItem struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Value       Money  `json:"value"`
	ExpiryDate  string `json:"expiryDate"`
}

// Decimal is an amount the provider sends either as a string or as a bare
// JSON number. The text is kept verbatim and parsed on use.
type Decimal string

func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*d = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*d = Decimal(s)
	case len(data) > 0 && (data[0] == '-' || (data[0] >= '0' && data[0] <= '9')):
		*d = Decimal(data)
	default:
		return fmt.Errorf("amount: unexpected JSON %s", data)
	}
	return nil
}

// Int parses d and rounds it down to a whole number.
func (d Decimal) Int() (int64, error) {
	s := strings.TrimSpace(string(d))
	if s == "" {
		return 0, errMissing
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("amount %q is not finite", s)
	}
	return int64(math.Floor(f)), nil
}

// ParseTimestamp reads a provider timestamp as wall-clock time in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, errMissing
	}
	return time.ParseInLocation(TimestampLayout, s, loc)
}
