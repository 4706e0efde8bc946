package conquest

// Horizon is the number of rounds tracked by a forecast window and by the
// per-cell request rings. Slot 0 is "no remaining delay".
const Horizon = 21

// ForecastWindow is a sliding per-cell forecast of incoming units, indexed
// by rounds from now and split into friendly and enemy components.
type ForecastWindow struct {
	friendly      [Horizon]int
	enemy         [Horizon]int
	totalFriendly int
	totalEnemy    int
}

// Advance consumes slot 0 and shifts every slot down by one. Call it once
// per round, before any AddIncoming for that round.
func (w *ForecastWindow) Advance() {
	w.totalFriendly -= w.friendly[0]
	w.totalEnemy -= w.enemy[0]
	copy(w.friendly[:], w.friendly[1:])
	copy(w.enemy[:], w.enemy[1:])
	w.friendly[Horizon-1] = 0
	w.enemy[Horizon-1] = 0
}

// AddIncoming records units of the given owner arriving after delay rounds.
// Delays past the horizon are not recorded and AddIncoming returns false;
// the group stays invisible until a later observation brings it in range.
func (w *ForecastWindow) AddIncoming(owner Owner, units, delay int) bool {
	if delay < 0 {
		delay = 0
	}
	if delay >= Horizon {
		return false
	}
	switch owner {
	case Friendly:
		w.friendly[delay] += units
		w.totalFriendly += units
	case Enemy:
		w.enemy[delay] += units
		w.totalEnemy += units
	default:
		return false
	}
	return true
}

// Friendly returns the friendly units arriving in i rounds.
func (w *ForecastWindow) Friendly(i int) int { return w.friendly[i] }

// Enemy returns the enemy units arriving in i rounds.
func (w *ForecastWindow) Enemy(i int) int { return w.enemy[i] }

// Net returns friendly minus enemy units arriving in i rounds.
func (w *ForecastWindow) Net(i int) int { return w.friendly[i] - w.enemy[i] }

// TotalFriendly returns all friendly units inside the window.
func (w *ForecastWindow) TotalFriendly() int { return w.totalFriendly }

// TotalEnemy returns all enemy units inside the window.
func (w *ForecastWindow) TotalEnemy() int { return w.totalEnemy }

// Empty reports whether nothing is forecast to arrive.
func (w *ForecastWindow) Empty() bool {
	return w.totalFriendly == 0 && w.totalEnemy == 0
}
