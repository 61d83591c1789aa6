package feed

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"

	"quran-go/internal/quran"
)

// Source produces verses for the feed.
type Source interface {
	// Fetch returns up to n more verses. Individual failures are skipped,
	// so fewer than n (even zero) is normal. done reports that the source
	// has nothing further to give.
	Fetch(ctx context.Context, n int) (verses []quran.Verse, done bool)
}

// RandomSource yields random verses, one request per verse, forever.
type RandomSource struct {
	fetcher quran.Fetcher
	logger  *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomSource creates a RandomSource. A nil rng uses the global source.
func NewRandomSource(fetcher quran.Fetcher, rng *rand.Rand, logger *slog.Logger) *RandomSource {
	return &RandomSource{fetcher: fetcher, rng: rng, logger: logger}
}

func (s *RandomSource) next() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return quran.RandomIndex(s.rng)
}

// Fetch requests n random verses strictly one after another.
func (s *RandomSource) Fetch(ctx context.Context, n int) ([]quran.Verse, bool) {
	verses := make([]quran.Verse, 0, n)
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		number := s.next()
		verse, err := s.fetcher.FetchVerse(ctx, number)
		if err != nil {
			s.logger.Debug("skipping verse", "number", number, "error", err)
			continue
		}
		verses = append(verses, verse)
	}
	return verses, false
}

// ChapterSource yields one whole chapter in a single batch.
type ChapterSource struct {
	fetcher quran.Fetcher
	chapter int
	logger  *slog.Logger
}

// NewChapterSource creates a ChapterSource for chapter (1..114).
func NewChapterSource(fetcher quran.Fetcher, chapter int, logger *slog.Logger) *ChapterSource {
	return &ChapterSource{fetcher: fetcher, chapter: chapter, logger: logger}
}

// Fetch returns the entire chapter regardless of n. A failed chapter
// fetch yields nothing and leaves the source open for another attempt.
func (s *ChapterSource) Fetch(ctx context.Context, _ int) ([]quran.Verse, bool) {
	verses, err := s.fetcher.FetchChapter(ctx, s.chapter)
	if err != nil {
		s.logger.Warn("chapter unavailable", "chapter", s.chapter, "error", err)
		return nil, false
	}
	return verses, true
}
