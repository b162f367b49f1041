package notify

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Money formats amounts for a locale with a fixed currency symbol and two
// fraction digits, e.g. "₹ 1,23,456.50" for en-IN.
type Money struct {
	printer *message.Printer
	symbol  string
}

// NewMoney returns a formatter for the BCP 47 locale tag.
func NewMoney(locale, symbol string) (*Money, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, errors.Wrapf(err, "parse locale %q", locale)
	}
	return &Money{
		printer: message.NewPrinter(tag),
		symbol:  symbol,
	}, nil
}

// Format renders d. The amount is rounded to cents before it is converted
// for display.
func (m *Money) Format(d decimal.Decimal) string {
	amount := m.printer.Sprintf("%v", number.Decimal(d.Round(2).InexactFloat64(), number.Scale(2)))
	if m.symbol == "" {
		return amount
	}
	return m.symbol + " " + amount
}
