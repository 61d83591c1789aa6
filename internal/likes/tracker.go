// Package likes tracks the verses a reader has liked.
//
// Each liked verse is stored as its own entry under KeyPrefix+id. A
// secondary index under IndexKey lists the liked ids in like order so the
// set can be rebuilt without reading every key. The entries are the
// source of truth: the index is repaired from them whenever a listing
// load finds the two disagree. A failed index write leaves a marker under
// StaleKey so the next index load lists the entries instead.
package likes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"quran-go/internal/kv"
	"quran-go/internal/quran"
)

// Persisted key layout.
const (
	KeyPrefix = "liked-ayah:"
	IndexKey  = "liked-ayah-ids"
	StaleKey  = "liked-ayah-ids-stale"
)

// Strategy selects how Load reconstructs the liked set.
type Strategy string

const (
	// StrategyList enumerates every entry under KeyPrefix.
	StrategyList Strategy = "list"
	// StrategyIndex reads the id index and then each indexed entry.
	StrategyIndex Strategy = "index"
)

// ParseStrategy maps a config value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyList, StrategyIndex:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown likes strategy %q (want %q or %q)", s, StrategyList, StrategyIndex)
}

// ErrSave is returned by Toggle when the verse entry could not be written
// or removed. The in-memory set is left unchanged.
var ErrSave = errors.New("likes: could not save like")

// Tracker holds the liked set in memory and mirrors it to a kv.Store.
type Tracker struct {
	store    kv.Store
	logger   *slog.Logger
	strategy Strategy

	mu     sync.RWMutex
	order  []string
	verses map[string]quran.Verse
	// gen counts successful toggles.
	gen uint64
}

// NewTracker creates an empty tracker. Call Load to read persisted likes.
func NewTracker(store kv.Store, strategy Strategy, logger *slog.Logger) *Tracker {
	if strategy == "" {
		strategy = StrategyList
	}
	return &Tracker{
		store:    store,
		logger:   logger,
		strategy: strategy,
		verses:   make(map[string]quran.Verse),
	}
}

func entryKey(id string) string {
	return KeyPrefix + id
}

// IsLiked reports whether the verse id is liked.
func (t *Tracker) IsLiked(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.verses[id]
	return ok
}

// Count returns the number of liked verses.
func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// Verses returns the liked verses in like order.
func (t *Tracker) Verses() []quran.Verse {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]quran.Verse, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.verses[id])
	}
	return out
}

// Toggle likes the verse if it is not liked and unlikes it otherwise.
// It returns the new state.
func (t *Tracker) Toggle(ctx context.Context, verse quran.Verse) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, liked := t.verses[verse.ID]; liked {
		if err := t.store.Delete(ctx, entryKey(verse.ID)); err != nil {
			t.logger.Error("failed to remove liked verse", "id", verse.ID, "error", err)
			return true, fmt.Errorf("%w: %v", ErrSave, err)
		}
		delete(t.verses, verse.ID)
		t.order = slices.DeleteFunc(t.order, func(id string) bool { return id == verse.ID })
		t.gen++
		t.saveIndex(ctx, t.order)
		return false, nil
	}

	data, err := json.Marshal(verse)
	if err != nil {
		return false, fmt.Errorf("%w: marshal: %v", ErrSave, err)
	}
	if err := t.store.Set(ctx, entryKey(verse.ID), string(data)); err != nil {
		t.logger.Error("failed to save liked verse", "id", verse.ID, "error", err)
		return false, fmt.Errorf("%w: %v", ErrSave, err)
	}
	t.verses[verse.ID] = verse
	if !slices.Contains(t.order, verse.ID) {
		t.order = append(t.order, verse.ID)
	}
	t.gen++
	t.saveIndex(ctx, t.order)
	return true, nil
}

// saveIndex persists the id index. When that fails the index is marked
// stale, which sends the next load through a listing pass.
func (t *Tracker) saveIndex(ctx context.Context, ids []string) {
	err := t.writeIndex(ctx, ids)
	if err == nil {
		return
	}
	t.logger.Warn("failed to update liked index", "error", err)
	if err := t.store.Set(ctx, StaleKey, "1"); err != nil {
		t.logger.Error("failed to mark liked index stale", "error", err)
	}
}

func (t *Tracker) writeIndex(ctx context.Context, ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return t.store.Set(ctx, IndexKey, string(data))
}

// Load replaces the in-memory set with the persisted one. If a toggle
// lands while the store is being read, the read is repeated under the
// lock so the toggle is not lost.
func (t *Tracker) Load(ctx context.Context) error {
	t.mu.RLock()
	gen := t.gen
	t.mu.RUnlock()

	order, verses, err := t.read(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.gen != gen {
		t.logger.Debug("liked verses changed during load, reading again")
		if order, verses, err = t.read(ctx); err != nil {
			return err
		}
	}
	t.order = order
	t.verses = verses

	t.logger.Debug("liked verses loaded", "count", len(order), "strategy", t.strategy)
	return nil
}

func (t *Tracker) read(ctx context.Context) ([]string, map[string]quran.Verse, error) {
	if t.strategy == StrategyIndex {
		order, verses, err := t.loadFromIndex(ctx)
		if err == nil {
			return order, verses, nil
		}
		t.logger.Info("liked index unusable, listing entries", "error", err)
	}
	return t.loadFromList(ctx)
}

// errIndexStale is returned by loadFromIndex when a write left the index
// behind the entries.
var errIndexStale = errors.New("liked index marked stale")

// loadFromIndex reads the index, then each indexed entry. Ids whose entry
// is gone are dropped.
func (t *Tracker) loadFromIndex(ctx context.Context) ([]string, map[string]quran.Verse, error) {
	if _, err := t.store.Get(ctx, StaleKey); err == nil {
		return nil, nil, errIndexStale
	} else if !kv.IsNotFound(err) {
		return nil, nil, err
	}

	ids, err := t.readIndex(ctx)
	if err != nil {
		return nil, nil, err
	}

	order := make([]string, 0, len(ids))
	verses := make(map[string]quran.Verse, len(ids))
	for _, id := range ids {
		if _, dup := verses[id]; dup {
			continue
		}
		verse, ok := t.readEntry(ctx, entryKey(id))
		if !ok {
			continue
		}
		order = append(order, id)
		verses[id] = verse
	}
	return order, verses, nil
}

// loadFromList enumerates the entries. Entries keep their index order
// where the index knows them; the rest follow in key order. The index is
// rewritten if it disagrees with the entries.
func (t *Tracker) loadFromList(ctx context.Context) ([]string, map[string]quran.Verse, error) {
	keys, err := t.store.List(ctx, KeyPrefix)
	if err != nil {
		t.logger.Error("failed to list liked verses", "error", err)
		return nil, nil, err
	}

	verses := make(map[string]quran.Verse, len(keys))
	for _, key := range keys {
		verse, ok := t.readEntry(ctx, key)
		if !ok {
			continue
		}
		verses[verse.ID] = verse
	}

	indexed, indexErr := t.readIndex(ctx)
	order := make([]string, 0, len(verses))
	seen := make(map[string]bool, len(verses))
	for _, id := range indexed {
		if _, ok := verses[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}
	for _, key := range keys {
		id := key[len(KeyPrefix):]
		if _, ok := verses[id]; ok && !seen[id] {
			order = append(order, id)
			seen[id] = true
		}
	}

	if indexErr != nil || !slices.Equal(indexed, order) {
		t.logger.Info("rebuilding liked index", "entries", len(order), "indexed", len(indexed))
		if err := t.writeIndex(ctx, order); err != nil {
			t.logger.Warn("failed to rebuild liked index", "error", err)
			return order, verses, nil
		}
	}
	if err := t.store.Delete(ctx, StaleKey); err != nil {
		t.logger.Warn("failed to clear liked index marker", "error", err)
	}
	return order, verses, nil
}

func (t *Tracker) readIndex(ctx context.Context) ([]string, error) {
	raw, err := t.store.Get(ctx, IndexKey)
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode liked index: %w", err)
	}
	return ids, nil
}

// readEntry loads one verse entry. Missing or corrupt entries are skipped.
func (t *Tracker) readEntry(ctx context.Context, key string) (quran.Verse, bool) {
	raw, err := t.store.Get(ctx, key)
	if err != nil {
		if !kv.IsNotFound(err) {
			t.logger.Warn("failed to read liked verse", "key", key, "error", err)
		}
		return quran.Verse{}, false
	}
	var verse quran.Verse
	if err := json.Unmarshal([]byte(raw), &verse); err != nil || verse.ID == "" || entryKey(verse.ID) != key {
		t.logger.Warn("discarding corrupt liked verse", "key", key)
		return quran.Verse{}, false
	}
	return verse, true
}
