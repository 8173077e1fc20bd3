package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreetProgression(t *testing.T) {
	t.Parallel()

	s := Preflop
	var seen []Street
	for !s.IsTerminal() {
		seen = append(seen, s)
		s = s.Next()
	}
	assert.Equal(t, []Street{Preflop, Flop, Turn, River}, seen)
	assert.Equal(t, Showdown, s)
	assert.Equal(t, Showdown, Showdown.Next())
	assert.Equal(t, FoldedOut, FoldedOut.Next())
	assert.True(t, Voided.IsTerminal())
	assert.Equal(t, "voided", Voided.String())
	assert.Equal(t, []int{0, 3, 4, 5, 5}, []int{Preflop.BoardSize(), Flop.BoardSize(), Turn.BoardSize(), River.BoardSize(), Showdown.BoardSize()})
}

func TestStreetText(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(map[string]Street{"s": Turn})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"turn"}`, string(data))

	var back map[string]Street
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, Turn, back["s"])

	_, err = ParseStreet("fifth")
	assert.Error(t, err)
}

func TestParseActionKind(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]ActionKind{"fold": ActionFold, "Check": ActionCheck, "bet": ActionRaise, "all-in": ActionAllIn, "c": ActionCall} {
		got, err := ParseActionKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseActionKind("dance")
	var validationErr *ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestBlindsAndButton(t *testing.T) {
	t.Parallel()

	sb, bb := Blinds(2000)
	assert.Equal(t, 10, sb)
	assert.Equal(t, 20, bb)

	seats := []Seat{{ID: "a", Stack: 10}, {ID: "b", Stack: 0}, {ID: "c", Stack: 10}}
	assert.Equal(t, "c", NextButton(seats, "a"), "skips seats without chips")
	assert.Equal(t, "a", NextButton(seats, "c"), "wraps around")
	assert.Equal(t, "a", NextButton(seats, "gone"))
	assert.Equal(t, "", NextButton([]Seat{{ID: "a"}}, "a"))
}
