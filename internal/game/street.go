package game

import "fmt"

// Street is the phase of a match. Streets only move forward, through Next.
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
	Showdown
	// FoldedOut ends a hand where everyone but one participant folded.
	FoldedOut
	// Voided ends a hand that was abandoned unfinished; every bet went back.
	Voided
)

var streetNames = [...]string{"preflop", "flop", "turn", "river", "showdown", "folded_out", "voided"}

// String returns the name of the street
func (s Street) String() string {
	if s < Preflop || s > Voided {
		return fmt.Sprintf("street(%d)", int(s))
	}
	return streetNames[s]
}

// Next returns the street that follows s. Terminal streets return themselves.
func (s Street) Next() Street {
	switch s {
	case Preflop:
		return Flop
	case Flop:
		return Turn
	case Turn:
		return River
	case River:
		return Showdown
	default:
		return s
	}
}

// IsTerminal reports whether the hand is over.
func (s Street) IsTerminal() bool {
	return s >= Showdown && s <= Voided
}

// BoardSize is the number of community cards visible on the street.
func (s Street) BoardSize() int {
	switch s {
	case Flop:
		return 3
	case Turn:
		return 4
	case River, Showdown:
		return 5
	default:
		return 0
	}
}

// MarshalText encodes the street by name.
func (s Street) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a street name.
func (s *Street) UnmarshalText(b []byte) error {
	st, err := ParseStreet(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// ParseStreet parses a street name as produced by String.
func ParseStreet(name string) (Street, error) {
	for i, n := range streetNames {
		if n == name {
			return Street(i), nil
		}
	}
	return 0, fmt.Errorf("unknown street %q", name)
}
