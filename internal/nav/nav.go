// Package nav maps location paths to the view they select.
package nav

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"quran-go/internal/quran"
)

// View identifies which screen a route shows.
type View int

const (
	// Feed is the endless random-verse feed.
	Feed View = iota
	// Chapter is a single chapter, read in order.
	Chapter
)

func (v View) String() string {
	if v == Chapter {
		return "chapter"
	}
	return "feed"
}

// Route is a resolved location.
type Route struct {
	View    View
	Chapter int
	// Verse to focus within the chapter, 0 for the first.
	Verse int
}

// Path renders the canonical path for the route.
func (r Route) Path() string {
	if r.View != Chapter {
		return "/"
	}
	return "/chapter/" + strconv.Itoa(r.Chapter)
}

// Resolver matches paths against the known routes.
type Resolver struct {
	mux *chi.Mux
}

// NewResolver creates a Resolver. Routes carry no handlers of their own;
// the router is only used for matching.
func NewResolver() *Resolver {
	mux := chi.NewRouter()
	noop := func(http.ResponseWriter, *http.Request) {}
	mux.Get("/", noop)
	mux.Get("/chapter/{number}", noop)
	mux.Get("/surah/{number}", noop)
	return &Resolver{mux: mux}
}

// Resolve returns the route for path. Unknown paths and chapter numbers
// outside 1..114 resolve to the feed.
func (r *Resolver) Resolve(path string) Route {
	path = strings.TrimSpace(path)
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	rctx := chi.NewRouteContext()
	if !r.mux.Match(rctx, http.MethodGet, path) {
		return Route{View: Feed}
	}
	raw := rctx.URLParam("number")
	if raw == "" {
		return Route{View: Feed}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || !quran.ValidChapter(n) {
		return Route{View: Feed}
	}
	return Route{View: Chapter, Chapter: n}
}

// ParseTarget reads user input from the go-to prompt. It accepts paths,
// bare chapter numbers and "chapter:verse" references. A reference whose
// verse is out of range opens the chapter at its start.
func (r *Resolver) ParseTarget(input string) Route {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "/") {
		return r.Resolve(input)
	}

	chapterPart, versePart, hasVerse := strings.Cut(input, ":")
	c, err := strconv.Atoi(strings.TrimSpace(chapterPart))
	if err != nil || !quran.ValidChapter(c) {
		return Route{View: Feed}
	}
	route := Route{View: Chapter, Chapter: c}
	if hasVerse {
		if v, err := strconv.Atoi(strings.TrimSpace(versePart)); err == nil && quran.ValidVerse(c, v) {
			route.Verse = v
		}
	}
	return route
}
