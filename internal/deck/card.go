package deck

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Suit represents a card suit
type Suit int

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

// Suits lists every suit in deck order.
var Suits = [...]Suit{Clubs, Diamonds, Hearts, Spades}

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Clubs:
		return "♣"
	case Diamonds:
		return "♦"
	case Hearts:
		return "♥"
	case Spades:
		return "♠"
	default:
		return "?"
	}
}

// Letter returns the single ASCII letter used on the wire (c, d, h, s).
func (s Suit) Letter() byte {
	if s < Clubs || s > Spades {
		return '?'
	}
	return "cdhs"[s]
}

// IsRed returns true if the suit is red (Hearts or Diamonds)
func (s Suit) IsRed() bool {
	return s == Hearts || s == Diamonds
}

// Rank represents a card rank. Ranks are totally ordered with the ace high;
// the evaluator handles the ace-low straight on its own.
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Nine:
		return string(rune('0' + int(r)))
	case r == Ten:
		return "T"
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// Name returns the plural English name used in hand descriptions ("Twos", "Aces").
func (r Rank) Name() string {
	if n, ok := rankNames[r]; ok {
		return n
	}
	return "?"
}

var rankNames = map[Rank]string{
	Two: "Twos", Three: "Threes", Four: "Fours", Five: "Fives", Six: "Sixes",
	Seven: "Sevens", Eight: "Eights", Nine: "Nines", Ten: "Tens", Jack: "Jacks",
	Queen: "Queens", King: "Kings", Ace: "Aces",
}

// Card represents a playing card
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the string representation of a card (e.g., "A♠")
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Code returns the compact ASCII form used on the wire (e.g., "As", "Td").
func (c Card) Code() string {
	return c.Rank.String() + string(c.Suit.Letter())
}

// Index returns a dense 0..51 index, handy for bitsets.
func (c Card) Index() int {
	return int(c.Suit)*13 + int(c.Rank-Two)
}

// IsValid reports whether both rank and suit are in range.
func (c Card) IsValid() bool {
	return c.Rank >= Two && c.Rank <= Ace && c.Suit >= Clubs && c.Suit <= Spades
}

// MarshalJSON encodes the card as its wire code.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Code())
}

// UnmarshalJSON decodes a card from its wire code.
func (c *Card) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseCard(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard parses "As", "10h", "Td" or "A♠" into a Card.
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Card{}, fmt.Errorf("empty card")
	}

	runes := []rune(s)
	suitRune := runes[len(runes)-1]
	rankPart := strings.ToUpper(string(runes[:len(runes)-1]))

	var suit Suit
	switch suitRune {
	case 'c', 'C', '♣':
		suit = Clubs
	case 'd', 'D', '♦':
		suit = Diamonds
	case 'h', 'H', '♥':
		suit = Hearts
	case 's', 'S', '♠':
		suit = Spades
	default:
		return Card{}, fmt.Errorf("invalid suit in card %q", s)
	}

	var rank Rank
	switch rankPart {
	case "2", "3", "4", "5", "6", "7", "8", "9":
		rank = Rank(rankPart[0] - '0')
	case "T", "10":
		rank = Ten
	case "J":
		rank = Jack
	case "Q":
		rank = Queen
	case "K":
		rank = King
	case "A":
		rank = Ace
	default:
		return Card{}, fmt.Errorf("invalid rank in card %q", s)
	}

	return NewCard(rank, suit), nil
}

// MustParseCards parses a space separated list of cards and panics on error.
// Intended for tests and fixtures.
func MustParseCards(s string) []Card {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := ParseCard(f)
		if err != nil {
			panic(err)
		}
		cards = append(cards, c)
	}
	return cards
}

// FormatCards joins cards with spaces.
func FormatCards(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// FormatCodes joins the wire codes of cards with spaces ("As Kd").
func FormatCodes(cards []Card) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = c.Code()
	}
	return strings.Join(parts, " ")
}
