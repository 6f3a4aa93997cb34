package format

import (
	"testing"
	"time"
)

func TestNaira(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "₦0"},
		{250000, "₦250,000"},
		{1234.5, "₦1,234.50"},
		{-1500, "-₦1,500"},
	}
	for _, tc := range cases {
		if got := Naira(tc.in); got != tc.want {
			t.Errorf("Naira(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNumberAndPercent(t *testing.T) {
	if got := Number(12000); got != "12,000" {
		t.Errorf("Number(12000) = %q", got)
	}
	if got := Number(2.5); got != "2.5" {
		t.Errorf("Number(2.5) = %q", got)
	}
	if got := Percent(73.44); got != "73.4%" {
		t.Errorf("Percent(73.44) = %q", got)
	}
}

func TestTones(t *testing.T) {
	scoreCases := map[int]Tone{701: ToneGood, 700: ToneFair, 601: ToneFair, 600: TonePoor, 300: TonePoor}
	for score, want := range scoreCases {
		if got := ScoreTone(score); got != want {
			t.Errorf("ScoreTone(%d) = %s, want %s", score, got, want)
		}
	}
	repaymentCases := map[float64]Tone{70: ToneGood, 69.9: ToneFair, 60: ToneFair, 59.9: TonePoor}
	for pct, want := range repaymentCases {
		if got := RepaymentTone(pct, true); got != want {
			t.Errorf("RepaymentTone(%v) = %s, want %s", pct, got, want)
		}
	}
	if got := RepaymentTone(0, false); got != ToneUnknown {
		t.Errorf("unknown repayment should be %s, got %s", ToneUnknown, got)
	}
}

func TestName(t *testing.T) {
	if got := Name(" ada ", "OBI"); got != "Ada Obi" {
		t.Errorf("Name = %q", got)
	}
	if got := Name("", " "); got != "" {
		t.Errorf("blank Name = %q", got)
	}
}

func TestDate(t *testing.T) {
	if got := Date(time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)); got != "Mar 7, 2025" {
		t.Errorf("Date = %q", got)
	}
	if Date(time.Time{}) != "" {
		t.Errorf("zero date should be blank")
	}
}
