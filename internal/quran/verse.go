// Package quran fetches verses from the alquran.cloud API and normalizes
// them into Verse records.
package quran

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Verse is one ayah with its translation. It does not change once fetched.
type Verse struct {
	ID                string `json:"id" validate:"required,numeric"`
	TextPrimary       string `json:"textPrimary" validate:"required"`
	TextTranslation   string `json:"textTranslation" validate:"required"`
	ChapterNumber     int    `json:"chapterNumber" validate:"min=1,max=114"`
	VerseNumber       int    `json:"verseNumber" validate:"min=1"`
	ChapterName       string `json:"chapterName" validate:"required"`
	ChapterNameNative string `json:"chapterNameNative"`
	Reference         string `json:"reference" validate:"required"`
}

// Reference formats the display reference for a verse.
func Reference(chapterName string, chapter, verse int) string {
	return fmt.Sprintf("%s %d:%d", chapterName, chapter, verse)
}

// DedupKey identifies the verse within a reading session.
func (v Verse) DedupKey() string {
	return strconv.Itoa(v.ChapterNumber) + ":" + strconv.Itoa(v.VerseNumber)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the verse is well formed and that its id matches
// its chapter and verse numbers.
func (v Verse) Validate() error {
	if err := validate.Struct(v); err != nil {
		return err
	}
	if !ValidVerse(v.ChapterNumber, v.VerseNumber) {
		return fmt.Errorf("verse %d:%d out of range", v.ChapterNumber, v.VerseNumber)
	}
	if want := strconv.Itoa(GlobalIndex(v.ChapterNumber, v.VerseNumber)); v.ID != want {
		return fmt.Errorf("id %s does not match %d:%d (want %s)", v.ID, v.ChapterNumber, v.VerseNumber, want)
	}
	return nil
}
