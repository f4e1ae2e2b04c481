package campaign

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// EtherDecimals is the fixed-point scale of ledger amounts (1 ether = 10^18 wei)
const EtherDecimals = 18

// ErrInvalidAmount is returned when an ether string cannot be represented
// exactly in wei
var ErrInvalidAmount = errors.New("campaign: invalid amount")

// maxAmountBits is the width of a ledger amount (uint256)
const maxAmountBits = 256

// plain decimal only; exponent forms are rejected before any expansion
var amountPattern = regexp.MustCompile(`^[0-9]{1,78}(\.[0-9]{1,78})?$`)

// FormatEther renders wei as an exact ether decimal string ("1.5", "10")
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	return decimal.NewFromBigInt(wei, -EtherDecimals).String()
}

// ParseEther converts an ether decimal string to wei. It rejects negative
// values, exponent notation, anything finer than one wei and anything
// that does not fit in uint256
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if !amountPattern.MatchString(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}

	wei := d.Shift(EtherDecimals)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, EtherDecimals)
	}
	v := wei.BigInt()
	if v.BitLen() > maxAmountBits {
		return nil, fmt.Errorf("%w: %q exceeds uint256", ErrInvalidAmount, s)
	}
	return v, nil
}
