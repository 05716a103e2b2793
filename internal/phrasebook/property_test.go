// ABOUTME: Property tests for state invariants under random operation sequences
// ABOUTME: Uses rapid to drive create/append/select/rotate in arbitrary order

package phrasebook

import (
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestProperty_StateInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := NewState()
		nameGen := rapid.SampledFrom([]string{"default", "foo", "bar", "baz", "", "two words"})

		steps := rapid.IntRange(1, 60).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(rt, "op") {
			case 0:
				_ = s.Create(nameGen.Draw(rt, "create"))
			case 1:
				_ = s.AppendPhrase(nameGen.Draw(rt, "append"), rapid.StringN(1, 8, -1).Draw(rt, "phrase"))
			case 2:
				_ = s.SetCurrent(nameGen.Draw(rt, "select"))
			case 3:
				_, _ = s.NextPhrase(s.Snapshot())
			}

			names := s.Names()
			require.Contains(rt, names, DefaultDictionary)
			require.Contains(rt, names, s.Current())
			require.GreaterOrEqual(rt, s.Cursor(), 0)
			for _, name := range names {
				_, err := s.Get(name)
				require.NoError(rt, err)
			}
		}

		data, err := Encode(s)
		require.NoError(rt, err)
		_, err = Decode(data)
		require.NoError(rt, err)
	})
}

func TestProperty_RotationRepeatsAfterN(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		snap := rapid.SliceOfN(rapid.String(), 1, 12).Draw(rt, "snapshot")
		s := NewState()
		warmup := rapid.IntRange(0, 30).Draw(rt, "warmup")
		for i := 0; i < warmup; i++ {
			_, _ = s.NextPhrase(snap)
		}

		start := s.Cursor()
		first := make([]string, len(snap))
		for i := range snap {
			p, err := s.NextPhrase(snap)
			require.NoError(rt, err)
			first[i] = p
		}
		require.Equal(rt, start, s.Cursor())

		for i := range snap {
			p, _ := s.NextPhrase(snap)
			require.Equal(rt, first[i], p)
		}
	})
}
