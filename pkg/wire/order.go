package wire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/freeeve/cellwar/pkg/conquest"
)

// ParseOrder reads one order in the form written by WriteRound: "MOVE a b n",
// "BOMB a b" or "INC a". It is used when loading archived rounds.
func ParseOrder(s string) (conquest.Order, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return conquest.Order{}, fmt.Errorf("%w: empty order", ErrProtocol)
	}
	var o conquest.Order
	var want int
	switch fields[0] {
	case "MOVE":
		o.Kind, want = conquest.OrderMove, 4
	case "BOMB":
		o.Kind, want = conquest.OrderBomb, 3
	case "INC":
		o.Kind, want = conquest.OrderInc, 2
	default:
		return o, fmt.Errorf("%w: unknown order %q", ErrProtocol, fields[0])
	}
	if len(fields) != want {
		return o, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrProtocol, fields[0], want-1, len(fields)-1)
	}

	args := make([]int, len(fields)-1)
	for i, f := range fields[1:] {
		v, err := strconv.Atoi(f)
		if err != nil || v < 0 {
			return o, fmt.Errorf("%w: bad %s argument %q", ErrProtocol, fields[0], f)
		}
		args[i] = v
	}
	o.From = args[0]
	if len(args) > 1 {
		o.To = args[1]
	}
	if len(args) > 2 {
		o.Units = args[2]
	}
	return o, nil
}

// ParseRound splits a round line back into its orders and message. WAIT
// yields neither.
func ParseRound(line string) ([]conquest.Order, string, error) {
	line = strings.TrimSpace(line)
	if line == "" || line == "WAIT" {
		return nil, "", nil
	}
	var orders []conquest.Order
	var msg string
	for _, part := range strings.Split(line, ";") {
		part = strings.TrimSpace(part)
		if rest, ok := strings.CutPrefix(part, "MSG"); ok {
			msg = strings.TrimSpace(rest)
			continue
		}
		o, err := ParseOrder(part)
		if err != nil {
			return nil, "", err
		}
		orders = append(orders, o)
	}
	return orders, msg, nil
}
