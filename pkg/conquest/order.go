package conquest

import "fmt"

// OrderKind is the type of an emitted order.
type OrderKind int

const (
	OrderMove OrderKind = iota
	OrderBomb
	OrderInc
)

func (k OrderKind) String() string {
	switch k {
	case OrderMove:
		return "move"
	case OrderBomb:
		return "bomb"
	case OrderInc:
		return "inc"
	default:
		return "unknown"
	}
}

// Order is one action emitted for the current round.
type Order struct {
	Kind  OrderKind
	From  int
	To    int
	Units int
}

// String renders the order in protocol form (without the terminator).
func (o Order) String() string {
	switch o.Kind {
	case OrderBomb:
		return fmt.Sprintf("BOMB %d %d", o.From, o.To)
	case OrderInc:
		return fmt.Sprintf("INC %d", o.From)
	default:
		return fmt.Sprintf("MOVE %d %d %d", o.From, o.To, o.Units)
	}
}

// Cost returns the stationary units the order consumes.
func (o Order) Cost() int {
	switch o.Kind {
	case OrderMove:
		return o.Units
	case OrderInc:
		return UpgradeCost
	default:
		return 0
	}
}
