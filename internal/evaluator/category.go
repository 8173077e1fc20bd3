package evaluator

// Category is the class of a five card hand, ordered weakest to strongest.
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
)

// String returns the readable name of the category
func (c Category) String() string {
	switch c {
	case HighCard:
		return "High Card"
	case OnePair:
		return "One Pair"
	case TwoPair:
		return "Two Pair"
	case ThreeOfAKind:
		return "Three of a Kind"
	case Straight:
		return "Straight"
	case Flush:
		return "Flush"
	case FullHouse:
		return "Full House"
	case FourOfAKind:
		return "Four of a Kind"
	case StraightFlush:
		return "Straight Flush"
	default:
		return "Unknown"
	}
}

// HandRank packs a category and up to five tiebreak ranks into one integer so
// that a larger value is always a stronger hand.
//
// Layout: category in bits 20-23, then one 4 bit rank per nibble, most
// significant first.
type HandRank uint32

func packRank(cat Category, ranks ...int) HandRank {
	r := uint32(cat) << 20
	for i, v := range ranks {
		if i >= 5 {
			break
		}
		r |= uint32(v&0xF) << (16 - 4*uint(i))
	}
	return HandRank(r)
}

// Category returns the hand category encoded in the rank
func (h HandRank) Category() Category {
	return Category(h >> 20)
}

// Compare returns -1 if h is weaker, 0 if equal, 1 if h is stronger
func (h HandRank) Compare(other HandRank) int {
	switch {
	case h < other:
		return -1
	case h > other:
		return 1
	default:
		return 0
	}
}

// String returns the readable name of the hand
func (h HandRank) String() string {
	return h.Category().String()
}
