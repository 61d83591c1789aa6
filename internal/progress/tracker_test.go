package progress_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quran-go/internal/kv"
	"quran-go/internal/progress"
	"quran-go/internal/quran"
)

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

type failingSetStore struct {
	*kv.Memory
	fail bool
}

func (s *failingSetStore) Set(ctx context.Context, key, value string) error {
	if s.fail {
		return errors.New("write refused")
	}
	return s.Memory.Set(ctx, key, value)
}

func verseAt(c, v int) quran.Verse {
	return quran.Verse{
		ID:                strconv.Itoa(quran.GlobalIndex(c, v)),
		TextPrimary:       "ar",
		TextTranslation:   "en",
		ChapterNumber:     c,
		VerseNumber:       v,
		ChapterName:       "Al-Faatiha",
		ChapterNameNative: "الفاتحة",
		Reference:         quran.Reference("Al-Faatiha", c, v),
	}
}

func newTracker(store kv.Store) *progress.Tracker {
	tr := progress.NewTracker(store, progress.NewViewSet(), slog.New(slog.DiscardHandler))
	tr.SetClock(func() time.Time { return fixedNow })
	return tr
}

func TestRecordView_EmptyBlob(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, progress.StatsKey, `{}`))

	tr := newTracker(store)
	assert.Equal(t, progress.Recorded, tr.RecordView(ctx, verseAt(1, 1)))

	raw, err := store.Get(ctx, progress.StatsKey)
	require.NoError(t, err)

	var blob map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &blob))
	require.Contains(t, blob, "chapter_1")
	assert.Equal(t, []any{float64(1)}, blob["chapter_1"]["verseNumbersRead"])
	assert.Equal(t, float64(1), blob["chapter_1"]["totalViewEvents"])
	assert.Equal(t, "Al-Faatiha", blob["chapter_1"]["chapterName"])
	assert.Equal(t, "2026-10-16T09:30:00Z", blob["chapter_1"]["lastReadAt"])
}

func TestRecordView_DedupedPerSession(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	tr := newTracker(store)

	assert.Equal(t, progress.Recorded, tr.RecordView(ctx, verseAt(1, 1)))
	assert.Equal(t, progress.Skipped, tr.RecordView(ctx, verseAt(1, 1)))
	assert.Equal(t, progress.Recorded, tr.RecordView(ctx, verseAt(1, 2)))
	assert.Equal(t, progress.Skipped, tr.RecordView(ctx, verseAt(1, 1)))

	stats, err := tr.Stats(ctx)
	require.NoError(t, err)
	p := stats.Chapter(1)
	require.NotNil(t, p)
	assert.Equal(t, []int{1, 2}, p.VerseNumbersRead)
	assert.Equal(t, 2, p.TotalViewEvents)
}

func TestRecordView_NewSessionCountsAgain(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	require.Equal(t, progress.Recorded, newTracker(store).RecordView(ctx, verseAt(1, 3)))
	require.Equal(t, progress.Recorded, newTracker(store).RecordView(ctx, verseAt(1, 3)))

	stats, err := newTracker(store).Stats(ctx)
	require.NoError(t, err)
	p := stats.Chapter(1)
	assert.Equal(t, []int{3}, p.VerseNumbersRead, "read set does not grow on repeat")
	assert.Equal(t, 2, p.TotalViewEvents)
}

func TestRecordView_InvariantsHold(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()

	for session := 0; session < 3; session++ {
		tr := newTracker(store)
		for v := 1; v <= 7; v++ {
			tr.RecordView(ctx, verseAt(1, v))
			tr.RecordView(ctx, verseAt(1, v))
		}
		// Out-of-range verse numbers count as a view but are never read.
		tr.RecordView(ctx, verseAt(1, 1+7))
	}

	stats, err := newTracker(store).Stats(ctx)
	require.NoError(t, err)
	for _, p := range stats.Chapters() {
		assert.LessOrEqual(t, len(p.VerseNumbersRead), quran.VerseCount(p.ChapterNumber))
		assert.GreaterOrEqual(t, p.TotalViewEvents, len(p.VerseNumbersRead))
	}
	assert.Equal(t, 100.0, stats.Chapter(1).Percent())
	assert.Equal(t, 24, stats.Chapter(1).TotalViewEvents)
}

func TestRecordView_CorruptBlobStartsEmpty(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, progress.StatsKey, `{"chapter_1": [}`))

	tr := newTracker(store)
	assert.Equal(t, progress.Recorded, tr.RecordView(ctx, verseAt(2, 255)))

	stats, err := tr.Stats(ctx)
	require.NoError(t, err)
	assert.Len(t, stats, 1)
	assert.Equal(t, []int{255}, stats.Chapter(2).VerseNumbersRead)
}

func TestRecordView_WriteFailureIsLostAndNotRetried(t *testing.T) {
	ctx := context.Background()
	store := &failingSetStore{Memory: kv.NewMemory(), fail: true}
	tr := newTracker(store)

	assert.Equal(t, progress.Lost, tr.RecordView(ctx, verseAt(1, 1)))

	store.fail = false
	assert.Equal(t, progress.Skipped, tr.RecordView(ctx, verseAt(1, 1)), "still marked viewed for the session")

	stats, err := tr.Stats(ctx)
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestRecordView_UnknownChapter(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	tr := newTracker(store)

	assert.Equal(t, progress.Lost, tr.RecordView(ctx, quran.Verse{ID: "x", ChapterNumber: 0, VerseNumber: 1}))
	_, err := store.Get(ctx, progress.StatsKey)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestRecordView_ConcurrentDifferentVerses(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	tr := newTracker(store)

	var wg sync.WaitGroup
	for v := 1; v <= 50; v++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			tr.RecordView(ctx, verseAt(2, v))
		}(v)
	}
	wg.Wait()

	stats, err := tr.Stats(ctx)
	require.NoError(t, err)
	assert.Len(t, stats.Chapter(2).VerseNumbersRead, 50)
	assert.Equal(t, 50, stats.Chapter(2).TotalViewEvents)
}

func TestStats_NormalizesHandEditedBlob(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	require.NoError(t, store.Set(ctx, progress.StatsKey, `{
		"chapter_1": {"verseNumbersRead": [3, 1, 3, 99, 0], "totalViewEvents": 1},
		"chapter_200": {"verseNumbersRead": [1], "totalViewEvents": 1},
		"junk": {"verseNumbersRead": [1], "totalViewEvents": 1}
	}`))

	stats, err := newTracker(store).Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	p := stats.Chapter(1)
	assert.Equal(t, 1, p.ChapterNumber)
	assert.Equal(t, []int{1, 3}, p.VerseNumbersRead)
	assert.Equal(t, 2, p.TotalViewEvents)
	assert.True(t, p.HasRead(3))
	assert.False(t, p.HasRead(2))
	assert.Equal(t, 2, stats.VersesRead())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "skipped", progress.Skipped.String())
	assert.Equal(t, "recorded", progress.Recorded.String())
	assert.Equal(t, "lost", progress.Lost.String())
}
