// Package boleto encodes bank payment-slip identifiers: the 44-digit
// machine barcode and the 47-digit human-readable digitable line, following
// the FEBRABAN layout for collection documents.
package boleto

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// CurrencyReal is the fixed currency code for BRL slips.
	CurrencyReal = "9"

	barcodeLen   = 44
	freeFieldLen = 25
)

// Due-date factor epochs. Factors counted from the 1997 base overflowed the
// 4-digit field on 2025-02-21 (factor 9999); from the rollover date on, the
// count restarts at 1000.
var (
	factorBase     = time.Date(1997, time.October, 7, 0, 0, 0, 0, time.UTC)
	factorRollover = time.Date(2025, time.February, 22, 0, 0, 0, 0, time.UTC)
)

// Fields are the numeric banking inputs of a slip barcode.
type Fields struct {
	BankCode   string // 3 digits
	Agency     string // up to 4 digits
	Account    string // up to 8 digits
	Wallet     string // up to 2 digits
	SlipNumber string // up to 11 digits
	DueDate    time.Time
	Value      decimal.Decimal // monetary value, 2 decimal places
}

// Encoded carries every identifier derived from one set of slip fields.
type Encoded struct {
	Barcode            string
	DigitableLine      string
	FormattedDigitable string
	DueDateFactor      int
}

// Encode produces the barcode and digitable line for the given fields.
func Encode(f Fields) (Encoded, error) {
	bank, err := padNumeric(f.BankCode, 3)
	if err != nil {
		return Encoded{}, fmt.Errorf("bank code: %w", err)
	}
	cents := f.Value.Shift(2).IntPart()
	if cents <= 0 {
		return Encoded{}, fmt.Errorf("value must be positive, got %s", f.Value)
	}
	value := fmt.Sprintf("%010d", cents)
	if len(value) > 10 {
		return Encoded{}, fmt.Errorf("value %s exceeds 10-digit cents field", f.Value)
	}

	free, err := freeField(f)
	if err != nil {
		return Encoded{}, err
	}

	factor := DueDateFactor(f.DueDate)
	factorStr := fmt.Sprintf("%04d", factor)

	// Barcode layout: bank(3) currency(1) dv(1) factor(4) value(10) free(25).
	partial := bank + CurrencyReal + factorStr + value + free
	dv := CheckDigitMod11(partial)
	barcode := bank + CurrencyReal + fmt.Sprintf("%d", dv) + factorStr + value + free
	if len(barcode) != barcodeLen {
		return Encoded{}, fmt.Errorf("barcode length %d, want %d", len(barcode), barcodeLen)
	}

	line := digitableLine(barcode)

	return Encoded{
		Barcode:            barcode,
		DigitableLine:      line,
		FormattedDigitable: formatDigitable(line),
		DueDateFactor:      factor,
	}, nil
}

// DueDateFactor counts days since the FEBRABAN epoch, restarting at 1000 on
// the 2025 rollover date, reduced modulo 10000.
func DueDateFactor(due time.Time) int {
	due = time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	var days int
	if !due.Before(factorRollover) {
		days = 1000 + int(due.Sub(factorRollover).Hours()/24)
	} else {
		days = int(due.Sub(factorBase).Hours() / 24)
	}
	return ((days % 10000) + 10000) % 10000
}

// CheckDigitMod11 computes the barcode's overall check digit: digits are
// weighted right-to-left with weights cycling 2..9; the digit is
// 11 - (sum mod 11), collapsing 0, 10 and 11 to 1.
func CheckDigitMod11(digits string) int {
	sum := 0
	weight := 2
	for i := len(digits) - 1; i >= 0; i-- {
		sum += int(digits[i]-'0') * weight
		weight++
		if weight > 9 {
			weight = 2
		}
	}
	dv := 11 - sum%11
	if dv == 0 || dv == 10 || dv == 11 {
		dv = 1
	}
	return dv
}

// CheckDigitMod10 computes a digitable-line field check digit: digits are
// weighted right-to-left alternating 2,1; products above 9 drop 9; the
// digit is (10 - sum mod 10) mod 10.
func CheckDigitMod10(digits string) int {
	sum := 0
	weight := 2
	for i := len(digits) - 1; i >= 0; i-- {
		p := int(digits[i]-'0') * weight
		if p > 9 {
			p -= 9
		}
		sum += p
		if weight == 2 {
			weight = 1
		} else {
			weight = 2
		}
	}
	return (10 - sum%10) % 10
}

// digitableLine re-segments a 44-digit barcode into the 47-digit line:
// three fields of free-field digits each closed by a mod-10 digit, the
// barcode check digit, and the factor+value block.
func digitableLine(barcode string) string {
	bankCurrency := barcode[0:4]
	dv := barcode[4:5]
	factorValue := barcode[5:19]
	free := barcode[19:44]

	f1 := bankCurrency + free[0:5]
	f2 := free[5:15]
	f3 := free[15:25]

	var b strings.Builder
	b.WriteString(f1)
	fmt.Fprintf(&b, "%d", CheckDigitMod10(f1))
	b.WriteString(f2)
	fmt.Fprintf(&b, "%d", CheckDigitMod10(f2))
	b.WriteString(f3)
	fmt.Fprintf(&b, "%d", CheckDigitMod10(f3))
	b.WriteString(dv)
	b.WriteString(factorValue)
	return b.String()
}

func formatDigitable(line string) string {
	return fmt.Sprintf("%s.%s %s.%s %s.%s %s %s",
		line[0:5], line[5:10],
		line[10:15], line[15:21],
		line[21:26], line[26:32],
		line[32:33],
		line[33:47],
	)
}

func freeField(f Fields) (string, error) {
	wallet, err := padNumeric(f.Wallet, 2)
	if err != nil {
		return "", fmt.Errorf("wallet: %w", err)
	}
	slip, err := padNumeric(f.SlipNumber, 11)
	if err != nil {
		return "", fmt.Errorf("slip number: %w", err)
	}
	agency, err := padNumeric(f.Agency, 4)
	if err != nil {
		return "", fmt.Errorf("agency: %w", err)
	}
	account, err := padNumeric(f.Account, 8)
	if err != nil {
		return "", fmt.Errorf("account: %w", err)
	}
	free := wallet + slip + agency + account
	if len(free) != freeFieldLen {
		return "", fmt.Errorf("free field length %d, want %d", len(free), freeFieldLen)
	}
	return free, nil
}

// padNumeric strips separators, validates digits and left-pads with zeros.
func padNumeric(raw string, width int) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if cleaned == "" {
		return "", fmt.Errorf("empty numeric field %q", raw)
	}
	if len(cleaned) > width {
		return "", fmt.Errorf("field %q longer than %d digits", raw, width)
	}
	return strings.Repeat("0", width-len(cleaned)) + cleaned, nil
}
