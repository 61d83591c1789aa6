package quran

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public alquran.cloud API.
const DefaultBaseURL = "https://api.alquran.cloud/v1"

// Default editions: Uthmani script and Muhammad Asad's translation.
const (
	DefaultPrimaryEdition     = "quran-uthmani"
	DefaultTranslationEdition = "en.asad"
)

// Fetcher is what feed sources need from the API.
type Fetcher interface {
	FetchVerse(ctx context.Context, n int) (Verse, error)
	FetchChapter(ctx context.Context, chapter int) ([]Verse, error)
}

// Options configures a Client. Zero values take defaults.
type Options struct {
	BaseURL            string
	PrimaryEdition     string
	TranslationEdition string
	Timeout            time.Duration
	// RequestsPerSecond caps outgoing requests; <= 0 disables the limit.
	RequestsPerSecond float64
}

// Client fetches verses over HTTP.
type Client struct {
	http        *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger
	baseURL     string
	primary     string
	translation string
	editions    string
}

// NewClient creates a Client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PrimaryEdition == "" {
		opts.PrimaryEdition = DefaultPrimaryEdition
	}
	if opts.TranslationEdition == "" {
		opts.TranslationEdition = DefaultTranslationEdition
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Client{
		http:        &http.Client{Timeout: opts.Timeout},
		rateLimiter: limiter,
		logger:      logger,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		primary:     opts.PrimaryEdition,
		translation: opts.TranslationEdition,
		editions:    opts.PrimaryEdition + "," + opts.TranslationEdition,
	}
}

// FetchVerse fetches the verse with global number n (1..6236).
func (c *Client) FetchVerse(ctx context.Context, n int) (Verse, error) {
	const op = "fetchVerse"

	if n < 1 || n > TotalVerses {
		return Verse{}, c.fail(op, n, ErrInvalidNumber)
	}

	var env envelope[ayahEdition]
	if err := c.get(ctx, "/ayah/"+strconv.Itoa(n)+"/editions/"+c.editions, &env); err != nil {
		return Verse{}, c.fail(op, n, err)
	}
	if len(env.Data) < 2 {
		return Verse{}, c.fail(op, n, fmt.Errorf("%w: %d editions", ErrMalformed, len(env.Data)))
	}

	primary, translation, err := splitEditions(env.Data, c.primary, c.translation)
	if err != nil {
		return Verse{}, c.fail(op, n, err)
	}
	verse := Verse{
		ID:                strconv.Itoa(primary.Number),
		TextPrimary:       primary.Text,
		TextTranslation:   translation.Text,
		ChapterNumber:     primary.Surah.Number,
		VerseNumber:       primary.NumberInSurah,
		ChapterName:       primary.Surah.EnglishName,
		ChapterNameNative: primary.Surah.Name,
		Reference:         Reference(primary.Surah.EnglishName, primary.Surah.Number, primary.NumberInSurah),
	}
	if err := verse.Validate(); err != nil {
		return Verse{}, c.fail(op, n, fmt.Errorf("%w: %v", ErrMalformed, err))
	}

	c.logger.Debug("fetched verse", "number", n, "reference", verse.Reference)
	return verse, nil
}

// FetchChapter fetches every verse of chapter (1..114) in order.
func (c *Client) FetchChapter(ctx context.Context, chapter int) ([]Verse, error) {
	const op = "fetchChapter"

	if !ValidChapter(chapter) {
		return nil, c.fail(op, chapter, ErrInvalidNumber)
	}

	var env envelope[surahEdition]
	if err := c.get(ctx, "/surah/"+strconv.Itoa(chapter)+"/editions/"+c.editions, &env); err != nil {
		return nil, c.fail(op, chapter, err)
	}
	if len(env.Data) < 2 {
		return nil, c.fail(op, chapter, fmt.Errorf("%w: %d editions", ErrMalformed, len(env.Data)))
	}

	primary, translation, err := splitEditions(env.Data, c.primary, c.translation)
	if err != nil {
		return nil, c.fail(op, chapter, err)
	}
	if len(primary.Ayahs) != len(translation.Ayahs) {
		return nil, c.fail(op, chapter, fmt.Errorf("%w: edition lengths differ (%d vs %d)",
			ErrMalformed, len(primary.Ayahs), len(translation.Ayahs)))
	}
	if want := VerseCount(chapter); len(primary.Ayahs) != want || primary.NumberOfAyahs != want {
		return nil, c.fail(op, chapter, fmt.Errorf("%w: %d ayahs (declared %d, want %d)",
			ErrMalformed, len(primary.Ayahs), primary.NumberOfAyahs, want))
	}

	verses := make([]Verse, 0, len(primary.Ayahs))
	for i, ayah := range primary.Ayahs {
		verse := Verse{
			ID:                strconv.Itoa(ayah.Number),
			TextPrimary:       ayah.Text,
			TextTranslation:   translation.Ayahs[i].Text,
			ChapterNumber:     primary.Number,
			VerseNumber:       ayah.NumberInSurah,
			ChapterName:       primary.EnglishName,
			ChapterNameNative: primary.Name,
			Reference:         Reference(primary.EnglishName, primary.Number, ayah.NumberInSurah),
		}
		if err := verse.Validate(); err != nil {
			return nil, c.fail(op, chapter, fmt.Errorf("%w: ayah %d: %v", ErrMalformed, i+1, err))
		}
		verses = append(verses, verse)
	}

	c.logger.Debug("fetched chapter", "chapter", chapter, "verses", len(verses))
	return verses, nil
}

// get performs a rate-limited GET and decodes a successful envelope.
func (c *Client) get(ctx context.Context, path string, env interface{ ok() bool }) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: rate limit: %v", ErrRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: http %d", ErrStatus, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(env); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrMalformed, err)
	}
	if !env.ok() {
		return ErrStatus
	}
	return nil
}

func (e *envelope[T]) ok() bool {
	return e.Code == http.StatusOK
}

func (c *Client) fail(op string, ref int, err error) error {
	c.logger.Warn("quran api call failed", "op", op, "ref", ref, "error", err)
	return wrapError(op, ref, err)
}
