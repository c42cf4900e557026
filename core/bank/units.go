package bank

import (
	"strings"

	"github.com/holiman/uint256"
	"golang.org/x/xerrors"
)

// Unit is a denomination of the value, as a power of ten of the wei.
type Unit struct {
	Name     string
	Decimals int
}

var (
	// Wei is the smallest unit.
	Wei = Unit{Name: "wei", Decimals: 0}

	// Gwei is 10^9 wei.
	Gwei = Unit{Name: "gwei", Decimals: 9}

	// Ether is 10^18 wei.
	Ether = Unit{Name: "ether", Decimals: 18}

	units = []Unit{Ether, Gwei, Wei}
)

// NewValue returns the amount of wei of a number of the unit.
func NewValue(amount uint64, unit Unit) *uint256.Int {
	mul := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(unit.Decimals)))

	return mul.Mul(mul, uint256.NewInt(amount))
}

// ParseValue parses a decimal amount followed by an optional unit, for
// instance "0.02ether", "15gwei" or "1000". The default unit is the wei.
func ParseValue(text string) (*uint256.Int, error) {
	text = strings.ToLower(strings.TrimSpace(text))

	unit := Wei
	for _, u := range units {
		if strings.HasSuffix(text, u.Name) {
			unit = u
			text = strings.TrimSpace(strings.TrimSuffix(text, u.Name))
			break
		}
	}

	parts := strings.SplitN(text, ".", 2)

	integer := parts[0]
	fraction := ""
	if len(parts) == 2 {
		fraction = strings.TrimRight(parts[1], "0")
	}

	if integer == "" && fraction == "" {
		return nil, xerrors.Errorf("invalid value '%s'", text)
	}

	if len(fraction) > unit.Decimals {
		return nil, xerrors.Errorf("value '%s' is smaller than one wei", text)
	}

	digits := integer + fraction + strings.Repeat("0", unit.Decimals-len(fraction))
	if strings.Trim(digits, "0123456789") != "" {
		return nil, xerrors.Errorf("invalid value '%s'", text)
	}

	// Leading zeros are not accepted when parsing a decimal.
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return new(uint256.Int), nil
	}

	value, err := uint256.FromDecimal(digits)
	if err != nil {
		return nil, xerrors.Errorf("invalid value '%s': %v", text, err)
	}

	return value, nil
}

// FormatValue returns the text representation of the amount in ether.
func FormatValue(value *uint256.Int) string {
	if value == nil {
		value = new(uint256.Int)
	}

	digits := value.ToBig().String()

	if len(digits) <= Ether.Decimals {
		digits = strings.Repeat("0", Ether.Decimals-len(digits)+1) + digits
	}

	split := len(digits) - Ether.Decimals

	integer := digits[:split]
	fraction := strings.TrimRight(digits[split:], "0")

	if fraction == "" {
		return integer + Ether.Name
	}

	return integer + "." + fraction + Ether.Name
}
