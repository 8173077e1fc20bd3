package game

// Blinds derives the blinds from a table's buy-in ceiling: the minimum bet is
// 1/200th of it, the small blind is one minimum bet and the big blind two.
func Blinds(maxBuyIn int) (small, big int) {
	minBet := maxBuyIn / 200
	return minBet, 2 * minBet
}

// NextButton returns the seat that holds the button for the next hand: the
// first seat after previous, in seat order and wrapping, that has chips.
// previous may have left the table; any seat with chips is then acceptable
// starting from the front. It returns "" when no seat has chips.
func NextButton(seats []Seat, previous string) string {
	start := -1
	for i, s := range seats {
		if s.ID == previous {
			start = i
			break
		}
	}
	n := len(seats)
	for i := 1; i <= n; i++ {
		s := seats[(start+i+n)%n]
		if s.Stack > 0 {
			return s.ID
		}
	}
	return ""
}
