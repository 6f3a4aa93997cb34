// Package format renders money, percentages and score bands for templates.
package format

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer = message.NewPrinter(language.English)
	titler  = cases.Title(language.English)
)

// Tone is the colour band of a score badge.
type Tone string

const (
	ToneGood    Tone = "good"
	ToneFair    Tone = "fair"
	TonePoor    Tone = "poor"
	ToneUnknown Tone = "unknown"
)

// Naira formats an amount in naira with thousands separators. Whole amounts
// drop the kobo.
func Naira(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return "₦0"
	}
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	if amount == math.Trunc(amount) {
		return sign + printer.Sprintf("₦%d", int64(amount))
	}
	return sign + printer.Sprintf("₦%.2f", amount)
}

// Number formats a plain quantity with separators, keeping up to two decimals.
func Number(n float64) string {
	if n == math.Trunc(n) {
		return printer.Sprintf("%d", int64(n))
	}
	return strings.TrimRight(strings.TrimRight(printer.Sprintf("%.2f", n), "0"), ".")
}

// Percent formats a 0-100 value with one decimal.
func Percent(p float64) string {
	return printer.Sprintf("%.1f%%", p)
}

// ScoreTone bands a credit score: above 700 is good, above 600 fair.
func ScoreTone(score int) Tone {
	switch {
	case score > 700:
		return ToneGood
	case score > 600:
		return ToneFair
	default:
		return TonePoor
	}
}

// RepaymentTone bands a repayment probability: 70 and up is good, 60 and up fair.
func RepaymentTone(percent float64, known bool) Tone {
	switch {
	case !known:
		return ToneUnknown
	case percent >= 70:
		return ToneGood
	case percent >= 60:
		return ToneFair
	default:
		return TonePoor
	}
}

// Name title-cases a display name.
func Name(parts ...string) string {
	joined := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if joined == "" {
		return ""
	}
	return titler.String(strings.ToLower(joined))
}

// Date formats t as "Jan 2, 2006".
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2, 2006")
}
