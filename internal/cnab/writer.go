package cnab

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RemittanceHeader carries the account-level fields of an outgoing file.
type RemittanceHeader struct {
	BankCode    string
	BankName    string
	Agency      string
	Account     string
	Beneficiary string
	Sequence    uint64
	GeneratedAt time.Time
}

// RemittanceDetail is one slip entry of an outgoing file.
type RemittanceDetail struct {
	SlipNumber     string
	DocumentNumber string
	Value          decimal.Decimal
	DueDate        time.Time
	IssueDate      time.Time
}

// WriteRemittance renders the full fixed-width file for the given layout.
// Records are joined with CRLF, matching what collection banks expect.
func WriteRemittance(layout Layout, header RemittanceHeader, details []RemittanceDetail) []byte {
	var lines []string
	switch layout {
	case Layout240:
		lines = render240(header, details)
	default:
		lines = render400(header, details)
	}
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

// RemittanceFileName follows the CBddmmNN.REM convention.
func RemittanceFileName(generatedAt time.Time, sequence uint64) string {
	return fmt.Sprintf("CB%s%02d.REM", generatedAt.Format("0201"), sequence%100)
}

func render400(h RemittanceHeader, details []RemittanceDetail) []string {
	lines := make([]string, 0, len(details)+2)

	var b strings.Builder
	b.WriteString("0")                        // record type: file header
	b.WriteString("1")                        // operation: remittance
	b.WriteString(padRight("REMESSA", 7))     // literal
	b.WriteString("01")                       // service: collection
	b.WriteString(padRight("COBRANCA", 15))   // literal
	b.WriteString(padDigits(h.Agency, 4))     //
	b.WriteString("00")                       // agency check digit
	b.WriteString(padDigits(h.Account, 8))    //
	b.WriteString(padRight("", 1))            // account check digit
	b.WriteString(padRight("", 6))            //
	b.WriteString(padRight(h.Beneficiary, 30))
	b.WriteString(padDigits(h.BankCode, 3))
	b.WriteString(padRight(h.BankName, 15))
	b.WriteString(h.GeneratedAt.Format("020106"))
	b.WriteString(padRight("", 8))
	b.WriteString(padRight("", 2))
	b.WriteString(fmt.Sprintf("%07d", h.Sequence))
	b.WriteString(padRight("", 276))
	b.WriteString("000001")
	lines = append(lines, clip(b.String(), lineLen400))

	seq := 2
	for _, d := range details {
		var r strings.Builder
		r.WriteString("1") // record type: detail
		r.WriteString("02")
		r.WriteString(padDigits("", 14)) // beneficiary document, bank-filled
		r.WriteString(padDigits(h.Agency, 4))
		r.WriteString("00")
		r.WriteString(padDigits(h.Account, 8))
		r.WriteString(padRight("", 1))
		r.WriteString(padRight("", 6))
		r.WriteString(padRight(d.DocumentNumber, 25))
		r.WriteString(padDigits(d.SlipNumber, 20))
		r.WriteString(padRight("", 25))
		r.WriteString("0")  // interest code
		r.WriteString("01") // wallet code
		r.WriteString("01") // command: entry
		r.WriteString(padRight(clip(d.DocumentNumber, 10), 10))
		r.WriteString(d.DueDate.Format("020106"))
		r.WriteString(fmt.Sprintf("%013d", d.Value.Shift(2).IntPart()))
		r.WriteString(padDigits(h.BankCode, 3))
		r.WriteString("00000") // collecting agency
		r.WriteString("01")    // document kind
		r.WriteString("N")     // acceptance
		r.WriteString(d.IssueDate.Format("020106"))
		r.WriteString("00")
		r.WriteString("00")
		r.WriteString(padDigits("", 13)) // interest
		r.WriteString(padDigits("", 6))  // discount date
		r.WriteString(padDigits("", 13)) // discount
		r.WriteString(padDigits("", 13)) // IOF
		r.WriteString(padDigits("", 13)) // rebate
		r.WriteString("01")
		r.WriteString(padDigits("", 14)) // payer document
		r.WriteString(padRight("", 40))  // payer name
		r.WriteString(padRight("", 40))  // payer address
		r.WriteString(padRight("", 12))
		r.WriteString(padDigits("", 8)) // payer zip
		r.WriteString(padRight("", 15)) // payer city
		r.WriteString(padRight("", 2))  // payer state
		r.WriteString(padRight("", 40))
		r.WriteString(fmt.Sprintf("%06d", seq))
		lines = append(lines, clip(r.String(), lineLen400))
		seq++
	}

	var t strings.Builder
	t.WriteString("9")
	t.WriteString(padRight("", 393))
	t.WriteString(fmt.Sprintf("%06d", seq))
	lines = append(lines, clip(t.String(), lineLen400))
	return lines
}

func render240(h RemittanceHeader, details []RemittanceDetail) []string {
	lines := make([]string, 0, len(details)+2)

	var b strings.Builder
	b.WriteString(padDigits(h.BankCode, 3))
	b.WriteString("0000") // service lot
	b.WriteString("0")    // record type: file header
	b.WriteString(padRight("", 9))
	b.WriteString("2")               // company document kind
	b.WriteString(padDigits("", 14)) // company document
	b.WriteString(padRight("", 20))  // agreement code
	b.WriteString(padDigits(h.Agency, 5))
	b.WriteString(padRight("", 1))
	b.WriteString(padDigits(h.Account, 12))
	b.WriteString(padRight("", 1))
	b.WriteString(padRight("", 1))
	b.WriteString(padRight(h.Beneficiary, 30))
	b.WriteString(padRight(h.BankName, 30))
	b.WriteString(padRight("", 10))
	b.WriteString("1") // file code: remittance
	b.WriteString(h.GeneratedAt.Format("02012006"))
	b.WriteString(h.GeneratedAt.Format("150405"))
	b.WriteString(fmt.Sprintf("%06d", h.Sequence))
	b.WriteString("103") // layout version
	b.WriteString(padDigits("", 5))
	b.WriteString(padRight("", 69))
	lines = append(lines, clip(b.String(), lineLen240))

	seq := 1
	for _, d := range details {
		var r strings.Builder
		r.WriteString(padDigits(h.BankCode, 3))
		r.WriteString("0001") // lot
		r.WriteString("3")    // record type: detail
		r.WriteString(fmt.Sprintf("%05d", seq))
		r.WriteString("P")  // segment
		r.WriteString(" ")  //
		r.WriteString("01") // movement: entry
		r.WriteString(padDigits(h.Agency, 5))
		r.WriteString(padRight("", 1))
		r.WriteString(padDigits(h.Account, 12))
		r.WriteString(padRight("", 1))
		r.WriteString(padRight("", 1))
		r.WriteString(padDigits(d.SlipNumber, 20))
		r.WriteString("1")   // wallet: registered
		r.WriteString("1")   // registration
		r.WriteString("1")   // document kind
		r.WriteString("2")   // issuance: beneficiary
		r.WriteString("2")   // distribution
		r.WriteString(padRight(d.DocumentNumber, 15))
		r.WriteString(d.DueDate.Format("02012006"))
		r.WriteString(fmt.Sprintf("%015d", d.Value.Shift(2).IntPart()))
		r.WriteString(padDigits("", 5)) // collecting agency
		r.WriteString(padRight("", 1))
		r.WriteString("02") // kind: trade note
		r.WriteString("N")
		r.WriteString(d.IssueDate.Format("02012006"))
		r.WriteString(padRight("", 107))
		lines = append(lines, clip(r.String(), lineLen240))
		seq++
	}

	var t strings.Builder
	t.WriteString(padDigits(h.BankCode, 3))
	t.WriteString("9999")
	t.WriteString("9") // record type: file trailer
	t.WriteString(padRight("", 9))
	t.WriteString(fmt.Sprintf("%06d", 1))
	t.WriteString(fmt.Sprintf("%06d", len(details)+2))
	t.WriteString(fmt.Sprintf("%06d", 0))
	t.WriteString(padRight("", 205))
	lines = append(lines, clip(t.String(), lineLen240))
	return lines
}

func padRight(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

func padDigits(s string, width int) string {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
	if len(cleaned) > width {
		return cleaned[len(cleaned)-width:]
	}
	return strings.Repeat("0", width-len(cleaned)) + cleaned
}

func clip(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	if len(s) < width {
		return s + strings.Repeat(" ", width-len(s))
	}
	return s
}
