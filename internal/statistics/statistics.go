// Package statistics aggregates per-user results across hands for the
// history views: win and loss counts, amounts, and a running big blind
// win rate with its error bars.
package statistics

import (
	"fmt"
	"math"
)

// HandResult is one user's outcome in one finished hand.
type HandResult struct {
	UserID string
	// Net is the stack change over the hand: stack minus previous stack.
	Net      int
	BigBlind int
	// WentToShowdown is set when the hand ended at showdown with the user still in.
	WentToShowdown bool
	Pot            int
}

// NetBB returns the net result in big blinds.
func (r HandResult) NetBB() float64 {
	if r.BigBlind <= 0 {
		return 0
	}
	return float64(r.Net) / float64(r.BigBlind)
}

// Summary is the running aggregate for one user.
type Summary struct {
	UserID string `json:"userId"`
	Hands  int    `json:"hands"`
	Wins   int    `json:"wins"`
	Losses int    `json:"losses"`

	AmountWon  int `json:"amountWon"`
	AmountLost int `json:"amountLost"`

	ShowdownWins    int `json:"showdownWins"`
	NonShowdownWins int `json:"nonShowdownWins"`
	BiggestPot      int `json:"biggestPot"`

	SumBB  float64 `json:"sumBB"`
	SumBB2 float64 `json:"sumBB2"` // Sum of squares for variance calculation
}

// Add incorporates a new hand result into the summary
func (s *Summary) Add(r HandResult) {
	if s.UserID == "" {
		s.UserID = r.UserID
	}
	s.Hands++
	bb := r.NetBB()
	s.SumBB += bb
	s.SumBB2 += bb * bb

	switch {
	case r.Net > 0:
		s.Wins++
		s.AmountWon += r.Net
		if r.WentToShowdown {
			s.ShowdownWins++
		} else {
			s.NonShowdownWins++
		}
	case r.Net < 0:
		s.Losses++
		s.AmountLost += -r.Net
	}

	s.BiggestPot = max(s.BiggestPot, r.Pot)
}

// Net returns the total chips won minus lost
func (s *Summary) Net() int {
	return s.AmountWon - s.AmountLost
}

// Mean returns the arithmetic mean result in big blinds per hand
func (s *Summary) Mean() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.SumBB / float64(s.Hands)
}

// Variance returns the sample variance of all results
func (s *Summary) Variance() float64 {
	if s.Hands < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumBB2 - float64(s.Hands)*mean*mean) / float64(s.Hands-1)
}

// StdDev returns the sample standard deviation of all results
func (s *Summary) StdDev() float64 {
	return math.Sqrt(max(s.Variance(), 0))
}

// StdError returns the standard error of the mean
func (s *Summary) StdError() float64 {
	if s.Hands == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Hands))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Summary) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// BBPer100 returns the win rate in big blinds per 100 hands.
func (s *Summary) BBPer100() float64 {
	return s.Mean() * 100
}

// Validate checks the summary is internally consistent
func (s *Summary) Validate() error {
	if s.Hands < 0 || s.Wins < 0 || s.Losses < 0 {
		return fmt.Errorf("negative counts: hands=%d wins=%d losses=%d", s.Hands, s.Wins, s.Losses)
	}
	if s.Wins+s.Losses > s.Hands {
		return fmt.Errorf("wins (%d) plus losses (%d) exceed hands (%d)", s.Wins, s.Losses, s.Hands)
	}
	if s.ShowdownWins+s.NonShowdownWins != s.Wins {
		return fmt.Errorf("showdown split (%d+%d) does not match wins (%d)", s.ShowdownWins, s.NonShowdownWins, s.Wins)
	}
	if s.AmountWon < 0 || s.AmountLost < 0 {
		return fmt.Errorf("negative amounts: won=%d lost=%d", s.AmountWon, s.AmountLost)
	}
	return nil
}
