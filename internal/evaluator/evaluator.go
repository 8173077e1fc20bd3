// Package evaluator ranks Texas Hold'em hands. It finds the best five card
// hand out of five to seven cards and totally orders the results.
package evaluator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/lox/cardroom/internal/deck"
)

var (
	// ErrCardCount is returned when fewer than 5 or more than 7 cards are given.
	ErrCardCount = errors.New("evaluator needs between 5 and 7 cards")
	// ErrDuplicateCard is returned when the same card appears twice.
	ErrDuplicateCard = errors.New("duplicate card")
)

// Hand is the best five card hand found for a set of cards.
type Hand struct {
	Rank HandRank
	// Cards holds the five cards ordered by significance: the defining group
	// first (trips before the pair of a full house), then kickers high to low.
	// For the wheel the ace is last.
	Cards [5]deck.Card
}

// Category returns the hand's category
func (h Hand) Category() Category {
	return h.Rank.Category()
}

// Contains reports whether c is one of the five cards making the hand.
func (h Hand) Contains(c deck.Card) bool {
	return slices.Contains(h.Cards[:], c)
}

// String returns the category and the five cards, e.g. "Flush (A♠ J♠ 9♠ 6♠ 2♠)".
func (h Hand) String() string {
	return fmt.Sprintf("%s (%s)", h.Description(), deck.FormatCards(h.Cards[:]))
}

// Compare returns 1 if a beats b, -1 if b beats a and 0 for a split.
func Compare(a, b Hand) int {
	return a.Rank.Compare(b.Rank)
}

// Evaluate returns the best five card hand that can be made from cards.
func Evaluate(cards []deck.Card) (Hand, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return Hand{}, fmt.Errorf("%w: got %d", ErrCardCount, len(cards))
	}
	var seen uint64
	for _, c := range cards {
		if !c.IsValid() {
			return Hand{}, fmt.Errorf("invalid card %v", c)
		}
		bit := uint64(1) << c.Index()
		if seen&bit != 0 {
			return Hand{}, fmt.Errorf("%w: %s", ErrDuplicateCard, c)
		}
		seen |= bit
	}

	var (
		best  Hand
		found bool
		combo [5]deck.Card
	)
	n := len(cards)
	// at most 21 combinations for 7 cards
	for a := 0; a < n-4; a++ {
		for b := a + 1; b < n-3; b++ {
			for c := b + 1; c < n-2; c++ {
				for d := c + 1; d < n-1; d++ {
					for e := d + 1; e < n; e++ {
						combo = [5]deck.Card{cards[a], cards[b], cards[c], cards[d], cards[e]}
						h := evaluate5(combo)
						if !found || h.Rank > best.Rank {
							best, found = h, true
						}
					}
				}
			}
		}
	}
	return best, nil
}

// MustEvaluate is Evaluate for fixtures; it panics on error.
func MustEvaluate(cards []deck.Card) Hand {
	h, err := Evaluate(cards)
	if err != nil {
		panic(err)
	}
	return h
}

type group struct {
	rank  deck.Rank
	cards []deck.Card
}

func evaluate5(cards [5]deck.Card) Hand {
	sorted := cards
	slices.SortFunc(sorted[:], func(x, y deck.Card) int {
		if x.Rank != y.Rank {
			return int(y.Rank) - int(x.Rank)
		}
		return int(y.Suit) - int(x.Suit)
	})

	flush := true
	for _, c := range sorted[1:] {
		if c.Suit != sorted[0].Suit {
			flush = false
			break
		}
	}

	if high, ok := straightHigh(sorted); ok {
		ordered := sorted
		if high == deck.Five {
			// wheel: the ace plays low
			ordered = [5]deck.Card{sorted[1], sorted[2], sorted[3], sorted[4], sorted[0]}
		}
		cat := Straight
		if flush {
			cat = StraightFlush
		}
		return Hand{Rank: packRank(cat, int(high)), Cards: ordered}
	}

	groups := make([]group, 0, 5)
	for _, c := range sorted {
		if len(groups) > 0 && groups[len(groups)-1].rank == c.Rank {
			groups[len(groups)-1].cards = append(groups[len(groups)-1].cards, c)
			continue
		}
		groups = append(groups, group{rank: c.Rank, cards: []deck.Card{c}})
	}
	slices.SortStableFunc(groups, func(x, y group) int {
		if len(x.cards) != len(y.cards) {
			return len(y.cards) - len(x.cards)
		}
		return int(y.rank) - int(x.rank)
	})

	var (
		ordered [5]deck.Card
		ranks   = make([]int, 0, 5)
		i       int
	)
	for _, g := range groups {
		i += copy(ordered[i:], g.cards)
		ranks = append(ranks, int(g.rank))
	}

	var cat Category
	switch {
	case len(groups[0].cards) == 4:
		cat = FourOfAKind
	case len(groups[0].cards) == 3 && len(groups[1].cards) == 2:
		cat = FullHouse
	case flush:
		cat = Flush
	case len(groups[0].cards) == 3:
		cat = ThreeOfAKind
	case len(groups[0].cards) == 2 && len(groups[1].cards) == 2:
		cat = TwoPair
	case len(groups[0].cards) == 2:
		cat = OnePair
	default:
		cat = HighCard
	}
	return Hand{Rank: packRank(cat, ranks...), Cards: ordered}
}

// straightHigh expects cards sorted high to low.
func straightHigh(sorted [5]deck.Card) (deck.Rank, bool) {
	for i := 1; i < 5; i++ {
		if sorted[i].Rank == sorted[i-1].Rank {
			return 0, false
		}
	}
	if sorted[0].Rank-sorted[4].Rank == 4 {
		return sorted[0].Rank, true
	}
	if sorted[0].Rank == deck.Ace && sorted[1].Rank == deck.Five && sorted[4].Rank == deck.Two {
		return deck.Five, true
	}
	return 0, false
}
