package quran

import (
	"math/rand/v2"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerseCounts_SumToTotal(t *testing.T) {
	total := 0
	for c := 1; c <= ChapterCount; c++ {
		total += VerseCount(c)
	}
	assert.Equal(t, TotalVerses, total)
}

func TestVerseCount_OutOfRange(t *testing.T) {
	assert.Zero(t, VerseCount(0))
	assert.Zero(t, VerseCount(115))
	assert.Equal(t, 7, VerseCount(1))
	assert.Equal(t, 286, VerseCount(2))
	assert.Equal(t, 6, VerseCount(114))
}

func TestGlobalIndex_Locate_RoundTrip(t *testing.T) {
	assert.Equal(t, 1, GlobalIndex(1, 1))
	assert.Equal(t, 262, GlobalIndex(2, 255))
	assert.Equal(t, TotalVerses, GlobalIndex(114, 6))
	assert.Zero(t, GlobalIndex(1, 8))

	for n := 1; n <= TotalVerses; n++ {
		c, v, ok := Locate(n)
		require.True(t, ok, n)
		require.Equal(t, n, GlobalIndex(c, v), "n=%d -> %d:%d", n, c, v)
	}

	_, _, ok := Locate(0)
	assert.False(t, ok)
	_, _, ok = Locate(TotalVerses + 1)
	assert.False(t, ok)
}

func TestRandomIndex_InRange(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 10000; i++ {
		n := RandomIndex(rng)
		require.GreaterOrEqual(t, n, 1)
		require.LessOrEqual(t, n, TotalVerses)
	}
	n := RandomIndex(nil)
	assert.True(t, n >= 1 && n <= TotalVerses)
}

func TestVerse_Validate(t *testing.T) {
	valid := Verse{
		ID:              "262",
		TextPrimary:     "ar",
		TextTranslation: "en",
		ChapterNumber:   2,
		VerseNumber:     255,
		ChapterName:     "Al-Baqara",
		Reference:       Reference("Al-Baqara", 2, 255),
	}
	require.NoError(t, valid.Validate())
	assert.Equal(t, "2:255", valid.DedupKey())

	broken := []func(v *Verse){
		func(v *Verse) { v.ID = "" },
		func(v *Verse) { v.ID = "abc" },
		func(v *Verse) { v.ID = strconv.Itoa(263) },
		func(v *Verse) { v.TextPrimary = "" },
		func(v *Verse) { v.ChapterNumber = 115 },
		func(v *Verse) { v.VerseNumber = 0 },
		func(v *Verse) { v.VerseNumber = 287 },
		func(v *Verse) { v.Reference = "" },
	}
	for i, mutate := range broken {
		v := valid
		mutate(&v)
		assert.Error(t, v.Validate(), "case %d", i)
	}
}
