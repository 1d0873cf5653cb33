package rebalance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/etnz/rebalance/date"
)

// Side is the direction of a trade.
type Side int

const (
	// Buy adds units to a holding.
	Buy Side = iota + 1
	// Sell removes units from a holding.
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseSide parses a trade side. Besides BUY and SELL it accepts the single
// letters B/S and the Brazilian broker codes C (compra) and V (venda).
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "BUY", "B", "C", "COMPRA":
		return Buy, nil
	case "SELL", "S", "V", "VENDA":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown trade side: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Side) UnmarshalText(text []byte) error {
	v, err := ParseSide(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Transaction is a single row of the trade ledger. It is immutable once read.
type Transaction struct {
	Date       date.Date
	RawName    string // instrument as written by the broker
	Side       Side
	Quantity   Quantity
	UnitPrice  Money
	GrossValue Money // optional, derived from Quantity×UnitPrice when zero
	Fees       Money // optional, informative only
}

// Gross returns the gross value of the trade.
func (t Transaction) Gross() Money {
	if !t.GrossValue.IsZero() {
		return t.GrossValue
	}
	return t.UnitPrice.Mul(t.Quantity)
}

// Validate reports why a transaction cannot be replayed, if any.
func (t Transaction) Validate() error {
	var errs []error
	if t.Date.IsZero() {
		errs = append(errs, errors.New("date is missing"))
	}
	if Normalize(t.RawName) == "" {
		errs = append(errs, fmt.Errorf("instrument %q has no letters or digits", t.RawName))
	}
	if t.Side != Buy && t.Side != Sell {
		errs = append(errs, errors.New("side is missing"))
	}
	if !t.Quantity.IsPositive() {
		errs = append(errs, fmt.Errorf("quantity %v must be positive", t.Quantity))
	}
	if t.UnitPrice.IsNegative() || t.GrossValue.IsNegative() || t.Fees.IsNegative() {
		errs = append(errs, errors.New("price, gross value and fees cannot be negative"))
	}
	if t.Side == Buy && t.UnitPrice.IsZero() && t.GrossValue.IsZero() {
		errs = append(errs, errors.New("buy has neither a unit price nor a gross value"))
	}
	return errors.Join(errs...)
}

func (t Transaction) String() string {
	return fmt.Sprintf("%v %v %v %q @ %v", t.Date, t.Side, t.Quantity, t.RawName, t.UnitPrice)
}
