package conquest

// Owner identifies the side controlling a cell or entity, using the wire
// encoding (1 = us, -1 = opponent, 0 = nobody).
type Owner int8

const (
	Enemy    Owner = -1
	Neutral  Owner = 0
	Friendly Owner = 1
)

func (o Owner) String() string {
	switch o {
	case Friendly:
		return "friendly"
	case Enemy:
		return "enemy"
	default:
		return "neutral"
	}
}

// Game rule constants.
const (
	MaxProduction = 3
	UpgradeCost   = 10
	MaxDisabled   = 5 // production-disabled counter right after a bomb hit
	StartingBombs = 2
)

// Cell is one node of the match graph. Cells live in the State arena and
// refer to each other only by id.
type Cell struct {
	ID         int
	Owner      Owner
	Units      int
	Production int
	Disabled   int // rounds until production resumes; 0 = producing

	Forecast ForecastWindow
	Threat   ThreatStatus
}

// EffectiveProduction is the production credited this round.
func (c *Cell) EffectiveProduction() int {
	if c.Disabled > 0 {
		return 0
	}
	return c.Production
}

// HitByBomb reports whether production is currently disabled.
func (c *Cell) HitByBomb() bool {
	return c.Disabled != 0
}
