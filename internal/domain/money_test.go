package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToPaise(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"220", 22000},
		{"99.99", 9999},
		{"0.005", 1},
		{"10.004", 1000},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			if got := ToPaise(decimal.RequireFromString(tt.amount)); got != tt.want {
				t.Errorf("ToPaise(%s) = %d, want %d", tt.amount, got, tt.want)
			}
		})
	}

	if got := FromPaise(9999); !got.Equal(decimal.RequireFromString("99.99")) {
		t.Errorf("FromPaise(9999) = %s", got)
	}
}

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"220", "220", true},
		{"220", "220.01", true},
		{"220.01", "220", true},
		{"220", "220.011", false},
		{"220", "221", false},
	}
	for _, tt := range tests {
		t.Run(tt.a+" vs "+tt.b, func(t *testing.T) {
			got := WithinTolerance(decimal.RequireFromString(tt.a), decimal.RequireFromString(tt.b))
			if got != tt.want {
				t.Errorf("WithinTolerance() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLineTotal(t *testing.T) {
	got := LineTotal(decimal.RequireFromString("100"), 2)
	if !got.Equal(decimal.NewFromInt(200)) {
		t.Errorf("LineTotal = %s, want 200", got)
	}
}

func TestDecimalMarshalsAsNumber(t *testing.T) {
	b, err := json.Marshal(struct {
		Total decimal.Decimal `json:"total"`
	}{decimal.RequireFromString("220.50")})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"total":220.5}` {
		t.Errorf("got %s", b)
	}
}

func TestWeightOption_Label(t *testing.T) {
	w := WeightOption{Value: decimal.NewFromInt(250), Unit: "g"}
	if got := w.Label(); got != "250g" {
		t.Errorf("Label() = %q, want 250g", got)
	}
}
