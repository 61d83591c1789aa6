package progress

import (
	"encoding/json"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"quran-go/internal/quran"
)

// StatsKey is the storage key of the reading-stats blob.
const StatsKey = "reading-stats"

const chapterKeyPrefix = "chapter_"

// ChapterProgress aggregates what has been read of one chapter.
type ChapterProgress struct {
	ChapterNumber     int       `json:"chapterNumber"`
	ChapterName       string    `json:"chapterName"`
	ChapterNameNative string    `json:"chapterNameNative"`
	VerseNumbersRead  []int     `json:"verseNumbersRead"`
	TotalViewEvents   int       `json:"totalViewEvents"`
	LastReadAt        time.Time `json:"lastReadAt"`
}

// HasRead reports whether verse v has been seen.
func (p *ChapterProgress) HasRead(v int) bool {
	_, found := slices.BinarySearch(p.VerseNumbersRead, v)
	return found
}

// markRead adds v to the sorted read set. It reports whether v was new.
func (p *ChapterProgress) markRead(v int) bool {
	i, found := slices.BinarySearch(p.VerseNumbersRead, v)
	if found {
		return false
	}
	p.VerseNumbersRead = slices.Insert(p.VerseNumbersRead, i, v)
	return true
}

// Percent is the share of the chapter's verses read, 0..100.
func (p *ChapterProgress) Percent() float64 {
	total := quran.VerseCount(p.ChapterNumber)
	if total == 0 {
		return 0
	}
	return float64(len(p.VerseNumbersRead)) * 100 / float64(total)
}

// Stats maps chapter numbers to their progress.
type Stats map[int]*ChapterProgress

// Chapter returns the progress for chapter c, or nil.
func (s Stats) Chapter(c int) *ChapterProgress {
	return s[c]
}

// Chapters returns every chapter with progress, by chapter number.
func (s Stats) Chapters() []*ChapterProgress {
	out := make([]*ChapterProgress, 0, len(s))
	for _, p := range s {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChapterNumber < out[j].ChapterNumber })
	return out
}

// VersesRead is the number of distinct verses read across all chapters.
func (s Stats) VersesRead() int {
	n := 0
	for _, p := range s {
		n += len(p.VerseNumbersRead)
	}
	return n
}

// MarshalJSON writes the blob keyed "chapter_<n>".
func (s Stats) MarshalJSON() ([]byte, error) {
	out := make(map[string]*ChapterProgress, len(s))
	for c, p := range s {
		out[chapterKeyPrefix+strconv.Itoa(c)] = p
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the blob. Entries with an unusable key or chapter
// number are dropped, and read sets are normalized so the invariants hold
// even for hand-edited data.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var raw map[string]*ChapterProgress
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Stats, len(raw))
	for key, p := range raw {
		c, err := strconv.Atoi(strings.TrimPrefix(key, chapterKeyPrefix))
		if err != nil || !strings.HasPrefix(key, chapterKeyPrefix) || !quran.ValidChapter(c) || p == nil {
			continue
		}
		p.ChapterNumber = c
		p.normalize()
		out[c] = p
	}
	*s = out
	return nil
}

// normalize sorts and dedupes the read set, drops verse numbers outside
// the chapter, and keeps the view counter at least the read count.
func (p *ChapterProgress) normalize() {
	total := quran.VerseCount(p.ChapterNumber)
	read := p.VerseNumbersRead[:0]
	for _, v := range p.VerseNumbersRead {
		if v >= 1 && v <= total {
			read = append(read, v)
		}
	}
	slices.Sort(read)
	p.VerseNumbersRead = slices.Compact(read)
	if p.VerseNumbersRead == nil {
		p.VerseNumbersRead = []int{}
	}
	if p.TotalViewEvents < len(p.VerseNumbersRead) {
		p.TotalViewEvents = len(p.VerseNumbersRead)
	}
}
