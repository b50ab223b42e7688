package codes

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_Deterministic(t *testing.T) {
	a := Derive("Fall2024", 3, 10, Checkpoint)
	b := Derive("Fall2024", 3, 10, Checkpoint)
	assert.Equal(t, a, b)
}

func TestDerive_AlphabetClosure(t *testing.T) {
	for _, key := range []string{"", "Fall2024", "Midterm", "ключ", "a:b;c"} {
		for g := 1; g <= 26; g++ {
			for _, c := range []int{0, 5, 10, 47, 50} {
				for _, k := range []Kind{Checkpoint, Final} {
					code := Derive(key, g, c, k)
					require.Len(t, code, Length)
					require.True(t, Valid(code), "code %q for %q/%d/%d/%s", code, key, g, c, k)
				}
			}
		}
	}
}

func TestDerive_EmptyKeyFallsBackToDefault(t *testing.T) {
	assert.Equal(t, Derive(DefaultKey, 2, 5, Checkpoint), Derive("", 2, 5, Checkpoint))
}

func TestDerive_FinalDiffersFromCheckpoint(t *testing.T) {
	same := 0
	for g := 1; g <= 26; g++ {
		for _, c := range []int{5, 10, 20, 50} {
			if Derive("Fall2024", g, c, Checkpoint) == Derive("Fall2024", g, c, Final) {
				same++
			}
		}
	}
	// 36^5 symbols; a coincidence here would point at kind being ignored.
	assert.Zero(t, same)
	assert.NotEqual(t, Seed("Fall2024", 3, 10, Checkpoint), Seed("Fall2024", 3, 10, Final))
}

func TestComposite_Injective(t *testing.T) {
	// Inputs that collide under naive concatenation.
	pairs := [][2]struct {
		key   string
		group int
		count int
	}{
		{{"A-1", 2, 3}, {"A", 12, 3}},
		{{"key;group:1", 1, 1}, {"key", 1, 1}},
		{{"12", 3, 4}, {"1", 23, 4}},
		{{"x", 1, 23}, {"x", 12, 3}},
	}
	for _, p := range pairs {
		a := Composite(p[0].key, p[0].group, p[0].count, Checkpoint)
		b := Composite(p[1].key, p[1].group, p[1].count, Checkpoint)
		assert.NotEqual(t, a, b)
	}

	assert.Equal(t, "kind:10:CHECKPOINT;key:8:Fall2024;group:1:3;count:2:10;",
		Composite("Fall2024", 3, 10, Checkpoint))
}

func TestDerive_Spread(t *testing.T) {
	seen := map[string]bool{}
	for g := 1; g <= 26; g++ {
		for c := 1; c <= 50; c++ {
			seen[Derive("Fall2024", g, c, Checkpoint)] = true
		}
	}
	assert.Greater(t, len(seen), 1290, "codes should rarely repeat across 1300 inputs")
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("AB12C"))
	assert.False(t, Valid("ab12c"))
	assert.False(t, Valid("AB12"))
	assert.False(t, Valid("AB12C9"))
	assert.False(t, Valid("AB-2C"))
}

func TestCheckpoints(t *testing.T) {
	tests := []struct {
		interval, max int
		want          []int
	}{
		{5, 20, []int{5, 10, 15, 20}},
		{5, 22, []int{5, 10, 15, 20}},
		{5, 3, nil},
		{5, 50, []int{5, 10, 15, 20, 25, 30, 35, 40, 45, 50}},
		{1, 3, []int{1, 2, 3}},
		{0, 10, nil},
		{5, 0, nil},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.interval, tt.max), func(t *testing.T) {
			if diff := cmp.Diff(tt.want, Checkpoints(tt.interval, tt.max)); diff != "" {
				t.Errorf("Checkpoints mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKindLabel(t *testing.T) {
	assert.Equal(t, "FINAL COMPLETION", Final.Label())
	assert.Equal(t, "CHECKPOINT", Checkpoint.Label())
}
