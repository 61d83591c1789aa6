package feed_test

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quran-go/internal/feed"
	"quran-go/internal/quran"
)

var errUnavailable = errors.New("503")

// fakeFetcher serves synthetic verses and fails chosen numbers.
type fakeFetcher struct {
	mu           sync.Mutex
	failVerse    func(n int) bool
	failChapter  bool
	verseCalls   []int
	chapterCalls int
	inFlight     int
	maxInFlight  int
}

func synthetic(n int) quran.Verse {
	c, v, _ := quran.Locate(n)
	return quran.Verse{
		ID:              strconv.Itoa(n),
		TextPrimary:     "ar",
		TextTranslation: "en",
		ChapterNumber:   c,
		VerseNumber:     v,
		ChapterName:     "Chapter " + strconv.Itoa(c),
		Reference:       quran.Reference("Chapter "+strconv.Itoa(c), c, v),
	}
}

func (f *fakeFetcher) FetchVerse(_ context.Context, n int) (quran.Verse, error) {
	f.mu.Lock()
	f.verseCalls = append(f.verseCalls, n)
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	fail := f.failVerse != nil && f.failVerse(n)
	f.inFlight--
	f.mu.Unlock()

	if fail {
		return quran.Verse{}, &quran.Error{Op: "fetchVerse", Ref: n, Err: quran.ErrStatus}
	}
	return synthetic(n), nil
}

func (f *fakeFetcher) FetchChapter(_ context.Context, chapter int) ([]quran.Verse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chapterCalls++
	if f.failChapter {
		return nil, errUnavailable
	}
	verses := make([]quran.Verse, 0, quran.VerseCount(chapter))
	for v := 1; v <= quran.VerseCount(chapter); v++ {
		verses = append(verses, synthetic(quran.GlobalIndex(chapter, v)))
	}
	return verses, nil
}

func logger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func randomController(f *fakeFetcher, opts feed.Options) *feed.Controller {
	src := feed.NewRandomSource(f, rand.New(rand.NewPCG(7, 11)), logger())
	return feed.NewController(src, opts)
}

func TestController_MountLoadsInitialBatch(t *testing.T) {
	f := &fakeFetcher{}
	c := randomController(f, feed.Options{})
	assert.Equal(t, feed.Idle, c.State())

	req := c.Mount()
	require.NotNil(t, req)
	assert.Equal(t, 10, req.Size())
	assert.Equal(t, feed.FetchingBatch, c.State())
	assert.True(t, c.Loading())

	shown := c.Complete(req.Run(context.Background()))
	assert.Equal(t, feed.IdleWithItems, c.State())
	assert.Equal(t, 10, c.Len())
	assert.Len(t, f.verseCalls, 10)
	assert.Equal(t, 1, f.maxInFlight, "verses in a batch are fetched one at a time")

	require.NotNil(t, shown, "first verse becomes visible")
	assert.Equal(t, c.Verses()[0].ID, shown.ID)

	for _, v := range c.Verses() {
		require.NoError(t, v.Validate())
	}
}

func TestController_NoOverlappingBatches(t *testing.T) {
	f := &fakeFetcher{}
	c := randomController(f, feed.Options{InitialBatch: 4, BatchSize: 3})

	req := c.Mount()
	require.NotNil(t, req)
	assert.Nil(t, c.Mount(), "second mount while fetching is dropped")
	assert.Nil(t, c.Retry())

	c.Complete(req.Run(context.Background()))

	// Index 2 of 4 is within two of the end.
	visit := c.Visit(2)
	require.NotNil(t, visit.Fetch)
	assert.Equal(t, 3, visit.Fetch.Size())

	// A burst of visits while that batch is in flight starts nothing.
	for _, i := range []int{3, 2, 3} {
		v := c.Visit(i)
		assert.Nil(t, v.Fetch, "visit %d", i)
	}
	assert.Equal(t, 2, c.Batches())

	c.Complete(visit.Fetch.Run(context.Background()))
	assert.Equal(t, 7, c.Len())
	assert.False(t, c.Loading())
}

func TestController_VisitFarFromEndDoesNotFetch(t *testing.T) {
	f := &fakeFetcher{}
	c := randomController(f, feed.Options{})
	c.Complete(c.Mount().Run(context.Background()))

	for i := 1; i < 8; i++ {
		v := c.Next()
		assert.True(t, v.Changed)
		require.NotNil(t, v.Verse)
		assert.Equal(t, c.Verses()[i].ID, v.Verse.ID)
		assert.Nil(t, v.Fetch, "index %d", i)
	}

	v := c.Next()
	assert.Equal(t, 8, v.Index)
	assert.NotNil(t, v.Fetch)
}

func TestController_VisitSameIndexIsNoop(t *testing.T) {
	f := &fakeFetcher{}
	c := randomController(f, feed.Options{})
	c.Complete(c.Mount().Run(context.Background()))

	v := c.Visit(0)
	assert.False(t, v.Changed)
	assert.Nil(t, v.Verse)

	v = c.Prev()
	assert.False(t, v.Changed, "clamped at the start")

	c.Visit(3)
	v = c.Visit(3)
	assert.False(t, v.Changed)
}

func TestController_VisitClampsToLoadedRange(t *testing.T) {
	f := &fakeFetcher{}
	c := randomController(f, feed.Options{})
	c.Complete(c.Mount().Run(context.Background()))

	v := c.Visit(50)
	assert.Equal(t, 9, v.Index)
	assert.Equal(t, 9, c.Index())

	v = c.Visit(-4)
	assert.Equal(t, 0, v.Index)
}

func TestController_FailedVersesAreSkipped(t *testing.T) {
	f := &fakeFetcher{failVerse: func(n int) bool { return n%2 == 0 }}
	c := randomController(f, feed.Options{InitialBatch: 20})

	req := c.Mount()
	result := req.Run(context.Background())
	assert.Equal(t, 20, result.Requested)
	assert.Less(t, len(result.Verses), 20)

	c.Complete(result)
	assert.Equal(t, len(result.Verses), c.Len())
	assert.Len(t, f.verseCalls, 20, "failures are not retried")
	for _, v := range c.Verses() {
		n, _ := strconv.Atoi(v.ID)
		assert.Equal(t, 1, n%2)
	}
}

func TestController_EmptyBatchStillCompletes(t *testing.T) {
	f := &fakeFetcher{failVerse: func(int) bool { return true }}
	c := randomController(f, feed.Options{})

	shown := c.Complete(c.Mount().Run(context.Background()))
	assert.Nil(t, shown)
	assert.Equal(t, feed.IdleWithItems, c.State())
	assert.Zero(t, c.Len())

	v := c.Next()
	assert.False(t, v.Changed)
	_, ok := c.Current()
	assert.False(t, ok)

	f.failVerse = nil
	req := c.Retry()
	require.NotNil(t, req)
	assert.Equal(t, 5, req.Size())
	require.NotNil(t, c.Complete(req.Run(context.Background())))
	assert.Equal(t, 5, c.Len())
}

func TestController_CanceledBatchStopsEarly(t *testing.T) {
	f := &fakeFetcher{}
	c := randomController(f, feed.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Complete(c.Mount().Run(ctx))
	assert.Zero(t, c.Len())
	assert.Empty(t, f.verseCalls)
}

func TestChapterSource_LoadsOnceThenExhausted(t *testing.T) {
	f := &fakeFetcher{}
	c := feed.NewController(feed.NewChapterSource(f, 1, logger()), feed.Options{})

	c.Complete(c.Mount().Run(context.Background()))
	assert.Equal(t, 7, c.Len())
	assert.True(t, c.Exhausted())
	for i, v := range c.Verses() {
		assert.Equal(t, i+1, v.VerseNumber)
	}

	v := c.Visit(6)
	assert.True(t, v.Changed)
	assert.Nil(t, v.Fetch, "nothing more to fetch")
	assert.Nil(t, c.Retry())
	assert.Equal(t, 1, f.chapterCalls)
}

func TestChapterSource_FailureCanBeRetried(t *testing.T) {
	f := &fakeFetcher{failChapter: true}
	c := feed.NewController(feed.NewChapterSource(f, 114, logger()), feed.Options{})

	c.Complete(c.Mount().Run(context.Background()))
	assert.Zero(t, c.Len())
	assert.False(t, c.Exhausted())

	f.failChapter = false
	req := c.Retry()
	require.NotNil(t, req)
	c.Complete(req.Run(context.Background()))
	assert.Equal(t, 6, c.Len())
}

func TestController_StartAt(t *testing.T) {
	f := &fakeFetcher{}
	c := feed.NewController(feed.NewChapterSource(f, 2, logger()), feed.Options{})
	c.StartAt(254)

	shown := c.Complete(c.Mount().Run(context.Background()))
	require.NotNil(t, shown)
	assert.Equal(t, 255, shown.VerseNumber)
	assert.Equal(t, 254, c.Index())

	c.StartAt(0)
	assert.Equal(t, 254, c.Index(), "ignored once a verse is shown")
}

func TestController_StartAtBeyondEndClamps(t *testing.T) {
	f := &fakeFetcher{}
	c := feed.NewController(feed.NewChapterSource(f, 1, logger()), feed.Options{})
	c.StartAt(40)

	shown := c.Complete(c.Mount().Run(context.Background()))
	require.NotNil(t, shown)
	assert.Equal(t, 7, shown.VerseNumber)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", feed.Idle.String())
	assert.Equal(t, "fetchingBatch", feed.FetchingBatch.String())
	assert.Equal(t, "idleWithItems", feed.IdleWithItems.String())
}

func TestController_RefillAfterShortBatch(t *testing.T) {
	calls := 0
	f := &fakeFetcher{failVerse: func(int) bool {
		calls++
		return calls > 2
	}}
	c := randomController(f, feed.Options{})

	c.Complete(c.Mount().Run(context.Background()))
	require.Equal(t, 2, c.Len())

	req := c.Refill()
	require.NotNil(t, req, "index 0 of 2 is within the threshold")
	assert.Nil(t, c.Refill(), "already fetching")
	c.Complete(req.Run(context.Background()))
	assert.Equal(t, 2, c.Len())
}

func TestController_RefillNeedsVerses(t *testing.T) {
	f := &fakeFetcher{failVerse: func(int) bool { return true }}
	c := randomController(f, feed.Options{})
	c.Complete(c.Mount().Run(context.Background()))

	assert.Nil(t, c.Refill())
}

func TestController_RefillFarFromEnd(t *testing.T) {
	f := &fakeFetcher{}
	c := randomController(f, feed.Options{})
	c.Complete(c.Mount().Run(context.Background()))

	assert.Nil(t, c.Refill())
}
