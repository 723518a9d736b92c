package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSpec() Spec {
	return Spec{Prefix: "CMYK", TargetCount: 1, IterationBits: 20}
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Spec)
		field  string
	}{
		{"both affixes empty", func(s *Spec) { s.Prefix, s.Suffix = "", "" }, "prefix/suffix"},
		{"prefix outside alphabet", func(s *Spec) { s.Prefix = "0000" }, "prefix"},
		{"suffix outside alphabet", func(s *Spec) { s.Prefix, s.Suffix = "", "0000" }, "suffix"},
		{"suffix with excluded letters", func(s *Spec) { s.Suffix = "OIl" }, "suffix"},
		{"affixes exceed address length", func(s *Spec) {
			s.Prefix = strings.Repeat("A", 23)
			s.Suffix = strings.Repeat("B", 22)
		}, "prefix/suffix"},
		{"zero target count", func(s *Spec) { s.TargetCount = 0 }, "targetCount"},
		{"negative target count", func(s *Spec) { s.TargetCount = -4 }, "targetCount"},
		{"iteration bits too small", func(s *Spec) { s.IterationBits = 15 }, "iterationBits"},
		{"iteration bits too large", func(s *Spec) { s.IterationBits = 29 }, "iterationBits"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)

			err := spec.Validate()
			require.Error(t, err)
			assert.True(t, IsInvalidSpec(err))

			var se *SpecError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.field, se.Field)
		})
	}
}

// A case-insensitive "0000" suffix is still rejected, because '0' is
// not a base58 character in any case.
func TestSpecValidateCaseInsensitiveStillChecksAlphabet(t *testing.T) {
	spec := Spec{Suffix: "0000", CaseSensitive: false, TargetCount: 1, IterationBits: 20}
	err := spec.Validate()
	require.Error(t, err)
	assert.True(t, IsInvalidSpec(err))
}

func TestSpecValidateAccepts(t *testing.T) {
	for _, spec := range []Spec{
		{Prefix: "CMYK", TargetCount: 1, IterationBits: 16},
		{Suffix: "zzz", TargetCount: 10, IterationBits: 28},
		{Prefix: "A", Suffix: "B", CaseSensitive: true, TargetCount: 2, IterationBits: 24},
		{Prefix: strings.Repeat("1", 44), TargetCount: 1, IterationBits: 20},
	} {
		assert.NoError(t, spec.Validate())
	}
}

func TestSpecDifficulty(t *testing.T) {
	assert.Equal(t, uint64(1), (&Spec{}).Difficulty())
	assert.Equal(t, uint64(58), (&Spec{Prefix: "C"}).Difficulty())
	assert.Equal(t, uint64(58*58*58), (&Spec{Prefix: "CM", Suffix: "K"}).Difficulty())
	// 58^44 overflows; the estimate saturates instead of wrapping.
	long := &Spec{Prefix: strings.Repeat("A", 44)}
	assert.Equal(t, ^uint64(0), long.Difficulty())
}
