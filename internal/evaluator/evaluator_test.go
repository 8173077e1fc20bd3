package evaluator

import (
	"testing"

	"github.com/lox/cardroom/internal/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateCategories(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cards string
		want  Category
		desc  string
	}{
		{"royal flush", "As Ks Qs Js Ts 9h 8h", StraightFlush, "Royal Flush"},
		{"straight flush", "9s 8s 7s 6s 5s 4h 3h", StraightFlush, "Straight Flush, Nine high"},
		{"steel wheel", "As 2s 3s 4s 5s Kh Qd", StraightFlush, "Straight Flush, Five high"},
		{"four of a kind", "As Ah Ad Ac Ks 2h 3h", FourOfAKind, "Four of a Kind, Aces"},
		{"full house", "As Ah Ad Ks Kh 2h 3h", FullHouse, "Full House, Aces full of Kings"},
		{"flush", "As Ks Qs 8s 6s 4h 3h", Flush, "Flush, Ace high"},
		{"broadway", "As Kh Qd Jc Ts 9h 8h", Straight, "Straight, Ace high"},
		{"wheel", "Ah 2c 3d 4s 5h 9c Kd", Straight, "Straight, Five high"},
		{"three of a kind", "As Ah Ad Ks 9c 7h 5h", ThreeOfAKind, "Three of a Kind, Aces"},
		{"two pair", "As Ah Kd Ks 9c 7h 5h", TwoPair, "Two Pair, Aces and Kings"},
		{"one pair", "As Ah Kd Qs 9c 7h 5h", OnePair, "Pair of Aces"},
		{"high card", "As Kh Qd 9s 7c 5h 3h", HighCard, "High Card, Ace"},
		{"five cards", "2c 2d 2h 9s 9d", FullHouse, "Full House, Twos full of Nines"},
		{"no wraparound straight", "Qs Kd Ac 2h 3c", HighCard, "High Card, Ace"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h, err := Evaluate(deck.MustParseCards(tt.cards))
			require.NoError(t, err)
			assert.Equal(t, tt.want, h.Category())
			assert.Equal(t, tt.desc, h.Description())
		})
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"full house beats two pair", "2c 2d 2h 9s 9d", "As Ad Ks Kd Qs", 1},
		{"same ranks different suits tie", "Ah Kd Qs 9c 7h", "Ad Kc Qh 9s 7d", 0},
		{"pair kicker decides", "Ah Ad Kc 7s 4h", "As Ac Qd 7h 4c", 1},
		{"second pair decides", "Ah Ad 9c 9s 2h", "As Ac 8d 8h Kc", 1},
		{"two pair kicker decides", "Kh Kd 5c 5s 3h", "Ks Kc 5d 5h 2c", 1},
		{"wheel is the lowest straight", "Ah 2c 3d 4s 5h", "2h 3c 4d 5s 6h", -1},
		{"flush beats straight", "2h 5h 7h 9h Jh", "Tc Jd Qs Kh Ac", 1},
		{"trips over trips", "3h 3d 3c Ks Qh", "4h 4d 4c 2s 5h", -1},
		{"full house trips decide", "9h 9d 9c 2s 2h", "8h 8d 8c As Ah", 1},
		{"quads kicker", "7h 7d 7c 7s Ah", "7h 7d 7c 7s Kh", 1},
		{"flush high card order", "Ah Qh 9h 5h 3h", "Ad Qd 9d 5d 2d", 1},
		{"straight flush beats quads", "5c 6c 7c 8c 9c", "Ah Ad Ac As Kh", 1},
		{"high card all five", "Ah Kd 9s 6c 3h", "Ad Ks 9h 6d 2c", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := MustEvaluate(deck.MustParseCards(tt.a))
			b := MustEvaluate(deck.MustParseCards(tt.b))
			assert.Equal(t, tt.want, Compare(a, b))
			assert.Equal(t, -tt.want, Compare(b, a))
		})
	}
}

func TestEvaluatePicksBestFive(t *testing.T) {
	t.Parallel()

	// board plays a straight, hole cards make a better flush
	h := MustEvaluate(deck.MustParseCards("Kh 2h 9h Th Jd Qc 4h"))
	assert.Equal(t, Flush, h.Category())
	assert.Equal(t, "K♥ T♥ 9♥ 4♥ 2♥", deck.FormatCards(h.Cards[:]))
	assert.True(t, h.Contains(deck.NewCard(deck.Two, deck.Hearts)))
	assert.False(t, h.Contains(deck.NewCard(deck.Jack, deck.Diamonds)))

	// two trips make a full house with the higher set on top
	h = MustEvaluate(deck.MustParseCards("5h 5d 5c 8s 8h 8d Ac"))
	assert.Equal(t, FullHouse, h.Category())
	assert.Equal(t, "Full House, Eights full of Fives", h.Description())

	// three pair keeps the best two and the best kicker
	h = MustEvaluate(deck.MustParseCards("4h 4d 9c 9s Qh Qd 7c"))
	assert.Equal(t, TwoPair, h.Category())
	assert.Equal(t, "Two Pair, Queens and Nines", h.Description())
	assert.Equal(t, deck.Seven, h.Cards[4].Rank)
}

func TestWheelOrdersAceLast(t *testing.T) {
	t.Parallel()

	h := MustEvaluate(deck.MustParseCards("Ah 2c 3d 4s 5h"))
	assert.Equal(t, deck.Five, h.Cards[0].Rank)
	assert.Equal(t, deck.Ace, h.Cards[4].Rank)
}

func TestEvaluateErrors(t *testing.T) {
	t.Parallel()

	_, err := Evaluate(deck.MustParseCards("As Ks Qs Js"))
	require.ErrorIs(t, err, ErrCardCount)

	_, err = Evaluate(deck.MustParseCards("As Ks Qs Js Ts 9s 8s 7s"))
	require.ErrorIs(t, err, ErrCardCount)

	_, err = Evaluate(deck.MustParseCards("As As Qs Js Ts"))
	require.ErrorIs(t, err, ErrDuplicateCard)
}

func TestHandRankOrder(t *testing.T) {
	t.Parallel()

	for c := HighCard; c < StraightFlush; c++ {
		assert.Less(t, packRank(c, 14, 13, 12, 11, 9), packRank(c+1, 2, 3, 4, 5, 7), "%s vs %s", c, c+1)
	}
}

func BenchmarkEvaluate7(b *testing.B) {
	cards := deck.MustParseCards("As Kd 9h 9c 4s 2d Th")
	for b.Loop() {
		_, _ = Evaluate(cards)
	}
}
