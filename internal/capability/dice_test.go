package capability

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver() *DiceResolver {
	return NewDiceResolver(rand.New(rand.NewPCG(1, 2)))
}

func TestDiceRollBounds(t *testing.T) {
	d := newTestResolver()

	cases := []struct {
		notation string
		n, m, k  int
	}{
		{"1d20", 1, 20, 0},
		{"2d6+3", 2, 6, 3},
		{"4d4-2", 4, 4, -2},
		{" 3D8 ", 3, 8, 0},
		{"1d1", 1, 1, 0},
		{"10d100+15", 10, 100, 15},
		{"2d6 + 3", 2, 6, 3},
	}

	for _, tc := range cases {
		t.Run(tc.notation, func(t *testing.T) {
			for range 50 {
				roll, err := d.Roll(tc.notation)
				require.NoError(t, err)
				require.Len(t, roll.Rolls, tc.n)
				assert.Equal(t, tc.k, roll.Modifier)

				sum := 0
				for _, v := range roll.Rolls {
					assert.GreaterOrEqual(t, v, 1)
					assert.LessOrEqual(t, v, tc.m)
					sum += v
				}
				assert.Equal(t, sum+tc.k, roll.Total)
				assert.GreaterOrEqual(t, roll.Total, tc.n+tc.k)
				assert.LessOrEqual(t, roll.Total, tc.n*tc.m+tc.k)
			}
		})
	}
}

func TestDiceMalformedNotation(t *testing.T) {
	d := newTestResolver()

	for _, notation := range []string{"", "d6", "2d", "abc", "0d6", "2d0", "-1d6", "2d6+", "2x6", "1.5d6", "2d6*3", "99999999999999999999d6",
		"1d6+9223372036854775807", "1d6-9223372036854775807", "1000d9223372036854775807", "1d1000001", "1d6+1000001"} {
		t.Run(notation, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, err := d.Roll(notation)
				require.Error(t, err)

				var inputErr *UserInputError
				require.True(t, errors.As(err, &inputErr))
				assert.Equal(t, DiceFormatHint, inputErr.Message)
			})
			assert.Equal(t, DiceFormatHint, d.Resolve(notation))
		})
	}
}

func TestDiceLargestAllowedRollStaysInRange(t *testing.T) {
	roll, err := newTestResolver().Roll("1000d1000000+1000000")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, roll.Total, 1000+1_000_000)
	assert.LessOrEqual(t, roll.Total, 1000*1_000_000+1_000_000)
}

func TestDiceTooManyDice(t *testing.T) {
	_, err := newTestResolver().Roll("1001d6")

	var inputErr *UserInputError
	require.ErrorAs(t, err, &inputErr)
	assert.Contains(t, inputErr.Message, "too many dice")
}

func TestDiceRollString(t *testing.T) {
	assert.Equal(t, "Rolled [3, 5] + 3 = 11", DiceRoll{Rolls: []int{3, 5}, Modifier: 3, Total: 11}.String())
	assert.Equal(t, "Rolled [4] - 2 = 2", DiceRoll{Rolls: []int{4}, Modifier: -2, Total: 2}.String())
	assert.Equal(t, "Rolled [17] = 17", DiceRoll{Rolls: []int{17}, Total: 17}.String())
}

func TestRollFromFreeText(t *testing.T) {
	notation, ok := ExtractNotation("roll 2d6+3")
	require.True(t, ok)
	assert.Equal(t, "2d6+3", notation)

	roll, err := newTestResolver().Roll(notation)
	require.NoError(t, err)
	assert.Len(t, roll.Rolls, 2)
	assert.Equal(t, 3, roll.Modifier)
	assert.Equal(t, roll.Rolls[0]+roll.Rolls[1]+3, roll.Total)

	notation, ok = ExtractNotation("Can you roll 1D20 - 1 for my stealth check?")
	require.True(t, ok)
	assert.Equal(t, "1d20-1", notation)

	_, ok = ExtractNotation("roll some dice")
	assert.False(t, ok)
}

func TestDiceDeterministicWithSeed(t *testing.T) {
	a, err := newTestResolver().Roll("5d20")
	require.NoError(t, err)
	b, err := newTestResolver().Roll("5d20")
	require.NoError(t, err)
	assert.Equal(t, a.Rolls, b.Rolls)
}
