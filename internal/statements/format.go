package statements

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders amounts for the formatted-string fields carried next to
// every numeric value. Presentation only; numbers stay authoritative.
type Formatter interface {
	Format(amount float64, currency string) string
}

// TextFormatter formats with locale-aware digit grouping.
type TextFormatter struct {
	printer   *message.Printer
	precision int32
}

// NewTextFormatter constructs TextFormatter. Precision follows the company
// rounding settings.
func NewTextFormatter(tag language.Tag, precision int32) *TextFormatter {
	if precision < 0 {
		precision = 2
	}
	return &TextFormatter{printer: message.NewPrinter(tag), precision: precision}
}

// Format renders "CUR 1,234.56".
func (f *TextFormatter) Format(amount float64, currency string) string {
	opts := []number.Option{
		number.MaxFractionDigits(int(f.precision)),
		number.MinFractionDigits(int(f.precision)),
	}
	if currency == "" {
		return f.printer.Sprintf("%v", number.Decimal(amount, opts...))
	}
	return f.printer.Sprintf("%s %v", currency, number.Decimal(amount, opts...))
}

// plainFormatter is the no-locale fallback used when no formatter is wired.
type plainFormatter struct {
	precision int32
}

func (f plainFormatter) Format(amount float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.*f", int(f.precision), amount)
	}
	return fmt.Sprintf("%s %.*f", currency, int(f.precision), amount)
}
