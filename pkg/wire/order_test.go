package wire

import (
	"errors"
	"testing"

	"github.com/freeeve/cellwar/pkg/conquest"
)

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in   string
		want conquest.Order
	}{
		{"MOVE 0 3 12", conquest.Order{Kind: conquest.OrderMove, From: 0, To: 3, Units: 12}},
		{"BOMB 2 5", conquest.Order{Kind: conquest.OrderBomb, From: 2, To: 5}},
		{"INC 4", conquest.Order{Kind: conquest.OrderInc, From: 4}},
		{"  MOVE 1  2 3 ", conquest.Order{Kind: conquest.OrderMove, From: 1, To: 2, Units: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrder(tt.in)
			if err != nil {
				t.Fatalf("ParseOrder: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
			if got.String() != tt.want.String() {
				t.Errorf("expected %q, got %q", tt.want.String(), got.String())
			}
		})
	}
}

func TestParseOrderErrors(t *testing.T) {
	for _, in := range []string{"", "WAIT", "MOVE 1 2", "BOMB 1", "INC", "INC x", "MOVE 1 2 -3", "MSG hi"} {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseOrder(in); !errors.Is(err, ErrProtocol) {
				t.Errorf("expected ErrProtocol for %q, got %v", in, err)
			}
		})
	}
}

func TestParseRound(t *testing.T) {
	orders := []conquest.Order{
		{Kind: conquest.OrderBomb, From: 0, To: 2},
		{Kind: conquest.OrderMove, From: 0, To: 1, Units: 4},
	}
	line := FormatRound(orders, "3ms - 10/12 units")

	got, msg, err := ParseRound(line)
	if err != nil {
		t.Fatalf("ParseRound: %v", err)
	}
	if len(got) != 2 || got[0] != orders[0] || got[1] != orders[1] {
		t.Errorf("expected %v, got %v", orders, got)
	}
	if msg != "3ms - 10/12 units" {
		t.Errorf("expected message, got %q", msg)
	}

	got, msg, err = ParseRound("WAIT")
	if err != nil || got != nil || msg != "" {
		t.Errorf("expected empty WAIT round, got %v %q %v", got, msg, err)
	}
}
