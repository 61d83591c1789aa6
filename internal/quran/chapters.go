package quran

// ChapterCount is the number of chapters (surahs).
const ChapterCount = 114

// TotalVerses is the number of verses (ayahs) across all chapters.
const TotalVerses = 6236

// verseCounts[c-1] is the number of verses in chapter c.
var verseCounts = [ChapterCount]int{
	7, 286, 200, 176, 120, 165, 206, 75, 129, 109,
	123, 111, 43, 52, 99, 128, 111, 110, 98, 135,
	112, 78, 118, 64, 77, 227, 93, 88, 69, 60,
	34, 30, 73, 54, 45, 83, 182, 88, 75, 85,
	54, 53, 89, 59, 37, 35, 38, 29, 18, 45,
	60, 49, 62, 55, 78, 96, 29, 22, 24, 13,
	14, 11, 11, 18, 12, 12, 30, 52, 52, 44,
	28, 28, 20, 56, 40, 31, 50, 40, 46, 42,
	29, 19, 36, 25, 22, 17, 19, 26, 30, 20,
	15, 21, 11, 8, 8, 19, 5, 8, 8, 11,
	11, 8, 3, 9, 5, 4, 7, 3, 6, 3,
	5, 4, 5, 6,
}

// chapterOffsets[c-1] is the global number of the verse before chapter c.
var chapterOffsets = func() [ChapterCount]int {
	var offsets [ChapterCount]int
	total := 0
	for i, n := range verseCounts {
		offsets[i] = total
		total += n
	}
	return offsets
}()

// ValidChapter reports whether c is a chapter number.
func ValidChapter(c int) bool {
	return c >= 1 && c <= ChapterCount
}

// VerseCount returns the number of verses in chapter c, or 0.
func VerseCount(c int) int {
	if !ValidChapter(c) {
		return 0
	}
	return verseCounts[c-1]
}

// ValidVerse reports whether v is a verse of chapter c.
func ValidVerse(c, v int) bool {
	return v >= 1 && v <= VerseCount(c)
}

// GlobalIndex returns the global number of verse v of chapter c, or 0.
func GlobalIndex(c, v int) int {
	if !ValidVerse(c, v) {
		return 0
	}
	return chapterOffsets[c-1] + v
}

// Locate maps a global verse number to its chapter and verse.
func Locate(n int) (chapter, verse int, ok bool) {
	if n < 1 || n > TotalVerses {
		return 0, 0, false
	}
	lo, hi := 0, ChapterCount-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if chapterOffsets[mid] < n {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo + 1, n - chapterOffsets[lo], true
}
