package conquest

// ThreatStatus is the defense posture of a friendly cell.
type ThreatStatus int

const (
	Safe                  ThreatStatus = iota // survives every round unaided
	DefendBySavingUnits                       // survives if it keeps its produced units
	DefendByIncomingUnits                     // survives with hoarding plus reinforcements in flight
	BeingConquered                            // falls even with both
)

func (t ThreatStatus) String() string {
	switch t {
	case Safe:
		return "SAFE"
	case DefendBySavingUnits:
		return "DEFEND_BY_SAVING_UNITS"
	case DefendByIncomingUnits:
		return "DEFEND_BY_INCOMING_UNITS"
	case BeingConquered:
		return "BEING_CONQUERED"
	default:
		return "UNKNOWN"
	}
}

// defenseVerdicts are the outcomes of walking a cell's forecast window.
type defenseVerdicts struct {
	selfDefends bool // each round's enemy arrivals <= production + friendly arrivals
	hoarding    bool // stationary units + production never go negative
	withHelp    bool // as hoarding, also crediting friendly arrivals
}

type threatRule struct {
	holds  func(defenseVerdicts) bool
	status ThreatStatus
}

// threatRules is evaluated top to bottom; the first rule that holds wins.
var threatRules = []threatRule{
	{func(v defenseVerdicts) bool { return v.selfDefends }, Safe},
	{func(v defenseVerdicts) bool { return v.hoarding }, DefendBySavingUnits},
	{func(v defenseVerdicts) bool { return v.withHelp }, DefendByIncomingUnits},
	{func(defenseVerdicts) bool { return true }, BeingConquered},
}

// Classify computes the threat posture of c from its forecast window.
func Classify(c *Cell) ThreatStatus {
	if c.Forecast.TotalEnemy() == 0 {
		return Safe
	}
	v := walkForecast(c)
	for _, r := range threatRules {
		if r.holds(v) {
			return r.status
		}
	}
	return BeingConquered
}

func walkForecast(c *Cell) defenseVerdicts {
	v := defenseVerdicts{selfDefends: true, hoarding: true, withHelp: true}
	hoarded := c.Units
	helped := c.Units
	w := &c.Forecast
	for i := 1; i < Horizon; i++ {
		produced := producedIn(c, i)
		enemy := w.Enemy(i)
		friendly := w.Friendly(i)

		if enemy > produced+friendly {
			v.selfDefends = false
		}
		hoarded += produced - enemy
		if hoarded < 0 {
			v.hoarding = false
		}
		helped += produced - enemy + friendly
		if helped < 0 {
			v.withHelp = false
		}
	}
	return v
}

// producedIn returns the units c produces in the i-th round from now,
// accounting for the production-disabled countdown.
func producedIn(c *Cell, i int) int {
	if c.Disabled-(i-1) > 0 {
		return 0
	}
	return c.Production
}

// UnitsToSave returns how many of c's current units must stay home this
// round for the cell to survive the forecast, given its production and the
// friendly units already on their way.
func UnitsToSave(c *Cell) int {
	required := 0
	for i := Horizon - 1; i > 0; i-- {
		available := producedIn(c, i) + c.Forecast.Friendly(i) - c.Forecast.Enemy(i)
		required = max(0, required-available)
	}
	return required
}

// AboutToBeConquered reports whether friendly units already in flight will
// take c. Friendly cells always report true. Neutral cells do not produce.
func AboutToBeConquered(c *Cell) bool {
	if c.Owner == Friendly {
		return true
	}
	units := c.Units
	for i := 1; i < Horizon; i++ {
		produced := 0
		if c.Owner != Neutral {
			produced = c.EffectiveProduction()
		}
		units += c.Forecast.Enemy(i) - c.Forecast.Friendly(i) + produced
		if units < 0 {
			return true
		}
	}
	return false
}
