package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSafeParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"valid integer", "100", "100"},
		{"valid decimal", "3.14", "3.14"},
		{"zero", "0", "0"},
		{"empty string", "", "0"},
		{"invalid string", "abc", "0"},
		{"padded", " 2.5 ", "2.5"},
		{"satoshi", "0.00000001", "0.00000001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeParse(tt.input)
			want, _ := decimal.NewFromString(tt.want)
			if !got.Equal(want) {
				t.Errorf("SafeParse(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		input  string
		want   string
	}{
		{"whole btc", "BTC", "1", "1"},
		{"fractional btc", "BTC", "0.12345678", "0.12345678"},
		{"rounds past eight places", "ETH", "0.123456789", "0.12345679"},
		{"dust renders as zero", "ETH", "0.000000001", "0"},
		{"usd two places", "USD", "10.5", "10.5"},
		{"usd rounding", "USD", "10.499", "10.5"},
		{"zero", "TUIT", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatAmount(tt.symbol, SafeParse(tt.input))
			if got != tt.want {
				t.Errorf("FormatAmount(%q, %s) = %q, want %q", tt.symbol, tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0", "$0.00"},
		{"5", "$5.00"},
		{"999.999", "$1,000.00"},
		{"12345.6", "$12,345.60"},
		{"1234567.891", "$1,234,567.89"},
		{"-42.5", "-$42.50"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FormatUSD(SafeParse(tt.input)); got != tt.want {
				t.Errorf("FormatUSD(%s) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatPercent(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2.5", "+2.50%"},
		{"0", "+0.00%"},
		{"-1.234", "-1.23%"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := FormatPercent(SafeParse(tt.input)); got != tt.want {
				t.Errorf("FormatPercent(%s) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestChangePercent(t *testing.T) {
	got := ChangePercent(decimal.NewFromInt(110), decimal.NewFromInt(100))
	if !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("ChangePercent(110, 100) = %s, want 10", got)
	}
	if got := ChangePercent(decimal.NewFromInt(110), decimal.Zero); !got.IsZero() {
		t.Errorf("ChangePercent with zero open = %s, want 0", got)
	}
}
