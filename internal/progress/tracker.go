// Package progress records per-chapter reading progress.
//
// All chapters share a single blob under StatsKey that is read, modified
// and written back on every counted view. Within one process the tracker
// serializes those writes; across processes the last writer wins.
package progress

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"quran-go/internal/kv"
	"quran-go/internal/quran"
)

// Outcome is what RecordView did with a view.
type Outcome int

const (
	// Skipped means the verse was already counted this session.
	Skipped Outcome = iota
	// Recorded means the stats blob was updated.
	Recorded
	// Lost means the update could not be written. The verse stays
	// counted for the session and is not retried.
	Lost
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Recorded:
		return "recorded"
	case Lost:
		return "lost"
	default:
		return "unknown"
	}
}

// Tracker updates reading stats as verses become visible.
type Tracker struct {
	store   kv.Store
	session *ViewSet
	logger  *slog.Logger
	now     func() time.Time

	mu sync.Mutex
}

// NewTracker creates a tracker that dedupes views through session.
func NewTracker(store kv.Store, session *ViewSet, logger *slog.Logger) *Tracker {
	return &Tracker{
		store:   store,
		session: session,
		logger:  logger.With("session", session.ID()),
		now:     time.Now,
	}
}

// SetClock replaces the time source.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// RecordView counts a view of verse at most once per session.
func (t *Tracker) RecordView(ctx context.Context, verse quran.Verse) Outcome {
	if !t.session.Add(verse.DedupKey()) {
		return Skipped
	}
	if !quran.ValidChapter(verse.ChapterNumber) {
		t.logger.Warn("view of unknown chapter dropped", "chapter", verse.ChapterNumber)
		return Lost
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stats := t.load(ctx)

	p := stats[verse.ChapterNumber]
	if p == nil {
		p = &ChapterProgress{
			ChapterNumber:    verse.ChapterNumber,
			VerseNumbersRead: []int{},
		}
		stats[verse.ChapterNumber] = p
	}
	if verse.ChapterName != "" {
		p.ChapterName = verse.ChapterName
	}
	if verse.ChapterNameNative != "" {
		p.ChapterNameNative = verse.ChapterNameNative
	}
	if quran.ValidVerse(verse.ChapterNumber, verse.VerseNumber) {
		p.markRead(verse.VerseNumber)
	} else {
		t.logger.Warn("verse number outside chapter, not marking read",
			"chapter", verse.ChapterNumber, "verse", verse.VerseNumber)
	}
	p.TotalViewEvents++
	p.LastReadAt = t.now().UTC()

	data, err := json.Marshal(stats)
	if err == nil {
		err = t.store.Set(ctx, StatsKey, string(data))
	}
	if err != nil {
		t.logger.Error("failed to save reading stats", "verse", verse.DedupKey(), "error", err)
		return Lost
	}

	t.logger.Debug("view recorded", "verse", verse.DedupKey(), "views", p.TotalViewEvents)
	return Recorded
}

// Stats returns the persisted stats. A missing or corrupt blob reads as
// empty stats; a failed read is returned as an error.
func (t *Tracker) Stats(ctx context.Context) (Stats, error) {
	raw, err := t.store.Get(ctx, StatsKey)
	if kv.IsNotFound(err) {
		return Stats{}, nil
	}
	if err != nil {
		return Stats{}, err
	}
	var stats Stats
	if err := json.Unmarshal([]byte(raw), &stats); err != nil {
		t.logger.Warn("discarding corrupt reading stats", "error", err)
		return Stats{}, nil
	}
	return stats, nil
}

// load reads the blob for a read-modify-write. Any failure means starting
// from empty stats.
func (t *Tracker) load(ctx context.Context) Stats {
	stats, err := t.Stats(ctx)
	if err != nil {
		t.logger.Warn("failed to read reading stats, starting empty", "error", err)
		return Stats{}
	}
	if stats == nil {
		return Stats{}
	}
	return stats
}
