package quran

import "fmt"

// envelope is the body every alquran.cloud endpoint returns. Success is
// signalled by Code, not only by the HTTP status.
type envelope[T any] struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   []T    `json:"data"`
}

type surahInfo struct {
	Number        int    `json:"number"`
	Name          string `json:"name"`
	EnglishName   string `json:"englishName"`
	NumberOfAyahs int    `json:"numberOfAyahs"`
}

type edition struct {
	Identifier string `json:"identifier"`
}

// ayahEdition is one edition of a single ayah (/ayah/{n}/editions/...).
type ayahEdition struct {
	Number        int       `json:"number"`
	Text          string    `json:"text"`
	NumberInSurah int       `json:"numberInSurah"`
	Surah         surahInfo `json:"surah"`
	Edition       edition   `json:"edition"`
}

type surahAyah struct {
	Number        int    `json:"number"`
	Text          string `json:"text"`
	NumberInSurah int    `json:"numberInSurah"`
}

// surahEdition is one edition of a whole surah (/surah/{c}/editions/...).
type surahEdition struct {
	surahInfo
	Ayahs   []surahAyah `json:"ayahs"`
	Edition edition     `json:"edition"`
}

type editioned interface {
	editionID() string
}

func (a ayahEdition) editionID() string  { return a.Edition.Identifier }
func (s surahEdition) editionID() string { return s.Edition.Identifier }

// splitEditions finds the primary and translation entries by identifier.
// The API does not promise to answer in request order.
func splitEditions[T editioned](data []T, primary, translation string) (T, T, error) {
	var p, t T
	var havePrimary, haveTranslation bool
	for _, d := range data {
		switch d.editionID() {
		case primary:
			p, havePrimary = d, true
		case translation:
			t, haveTranslation = d, true
		}
	}
	if !havePrimary || !haveTranslation {
		return p, t, fmt.Errorf("%w: want editions %s and %s", ErrMalformed, primary, translation)
	}
	return p, t, nil
}
