package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"quran-go/internal/config"
	"quran-go/internal/feed"
	"quran-go/internal/likes"
	"quran-go/internal/nav"
	"quran-go/internal/progress"
	"quran-go/internal/quran"
)

type mode int

const (
	readingMode mode = iota
	likedMode
	statsMode
	gotoMode
)

const (
	likeSaveError = "Error saving like. Please try again."
	statusTTL     = 3 * time.Second
	storeTimeout  = 5 * time.Second
)

type model struct {
	fetcher  quran.Fetcher
	likes    *likes.Tracker
	progress *progress.Tracker
	resolver *nav.Resolver
	feedOpts feed.Options
	logger   *slog.Logger

	route nav.Route
	feed  *feed.Controller
	// generation identifies the current route; batches from older routes
	// are dropped.
	generation int
	// ctx is canceled when the route changes or the program quits.
	ctx     context.Context
	cancel  context.CancelFunc
	initCmd tea.Cmd

	mode        mode
	liked       list.Model
	prompt      textinput.Model
	spinner     spinner.Model
	stats       progress.Stats
	statsErr    error
	statsOffset int

	status   string
	statusID int

	height int
	width  int
	styles styles
}

type modelDeps struct {
	Fetcher  quran.Fetcher
	Likes    *likes.Tracker
	Progress *progress.Tracker
	Resolver *nav.Resolver
	Feed     feed.Options
	Theme    config.Theme
	Logger   *slog.Logger
	Start    nav.Route
}

func newModel(d modelDeps) model {
	s := newStyles(d.Theme)

	ti := textinput.New()
	ti.Prompt = "Go to: "
	ti.Placeholder = "2:255, 36 or /chapter/18"
	ti.PromptStyle = s.reference
	ti.TextStyle = s.text
	ti.CharLimit = 32
	ti.Width = 30

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.header

	m := model{
		fetcher:  d.Fetcher,
		likes:    d.Likes,
		progress: d.Progress,
		resolver: d.Resolver,
		feedOpts: d.Feed,
		logger:   d.Logger,
		route:    d.Start,
		mode:     readingMode,
		liked:    newLikedList(s),
		prompt:   ti,
		spinner:  sp,
		height:   24,
		width:    80,
		styles:   s,
	}
	m.initCmd = m.navigate(d.Start)
	return m
}

// Messages.

type batchLoadedMsg struct {
	generation int
	result     feed.Result
}

type likesLoadedMsg struct {
	err error
}

type likeToggledMsg struct {
	verse quran.Verse
	liked bool
	err   error
}

type viewRecordedMsg struct {
	verse   quran.Verse
	outcome progress.Outcome
}

type statsLoadedMsg struct {
	stats progress.Stats
	err   error
}

type clearStatusMsg struct {
	id int
}

// Commands.

func fetchBatchCmd(ctx context.Context, generation int, req *feed.Request) tea.Cmd {
	return func() tea.Msg {
		return batchLoadedMsg{generation: generation, result: req.Run(ctx)}
	}
}

func loadLikesCmd(tracker *likes.Tracker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return likesLoadedMsg{err: tracker.Load(ctx)}
	}
}

func toggleLikeCmd(tracker *likes.Tracker, verse quran.Verse) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		liked, err := tracker.Toggle(ctx, verse)
		return likeToggledMsg{verse: verse, liked: liked, err: err}
	}
}

func recordViewCmd(tracker *progress.Tracker, verse quran.Verse) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		return viewRecordedMsg{verse: verse, outcome: tracker.RecordView(ctx, verse)}
	}
}

func loadStatsCmd(tracker *progress.Tracker) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()
		stats, err := tracker.Stats(ctx)
		return statsLoadedMsg{stats: stats, err: err}
	}
}

func clearStatusCmd(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return clearStatusMsg{id: id}
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(loadLikesCmd(m.likes), m.initCmd)
}

// navigate mounts a fresh feed for route and returns the command loading
// its first batch.
func (m *model) navigate(route nav.Route) tea.Cmd {
	if m.cancel != nil {
		m.cancel()
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.generation++
	m.route = route
	m.mode = readingMode

	var source feed.Source
	if route.View == nav.Chapter {
		source = feed.NewChapterSource(m.fetcher, route.Chapter, m.logger)
	} else {
		source = feed.NewRandomSource(m.fetcher, nil, m.logger)
	}
	m.feed = feed.NewController(source, m.feedOpts)
	if route.Verse > 0 {
		m.feed.StartAt(route.Verse - 1)
	}
	m.logger.Info("navigated", "path", route.Path(), "view", route.View.String(), "verse", route.Verse)

	return m.startBatch(m.feed.Mount())
}

// visit applies the effects of moving within the feed.
func (m model) visit(v feed.Visit) tea.Cmd {
	var cmds []tea.Cmd
	if v.Verse != nil {
		cmds = append(cmds, recordViewCmd(m.progress, *v.Verse))
	}
	if v.Fetch != nil {
		cmds = append(cmds, m.startBatch(v.Fetch))
	}
	return tea.Batch(cmds...)
}

func (m model) startBatch(req *feed.Request) tea.Cmd {
	if req == nil {
		return nil
	}
	return tea.Batch(fetchBatchCmd(m.ctx, m.generation, req), m.spinner.Tick)
}

func (m *model) setStatus(text string) tea.Cmd {
	m.statusID++
	m.status = text
	return clearStatusCmd(m.statusID, statusTTL)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.width = msg.Width
		m.liked.SetSize(msg.Width, max(1, msg.Height-2))
		return m, nil

	case spinner.TickMsg:
		if !m.feed.Loading() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case batchLoadedMsg:
		if msg.generation != m.generation {
			m.logger.Debug("dropping stale batch", "generation", msg.generation, "current", m.generation)
			return m, nil
		}
		shown := m.feed.Complete(msg.result)
		m.logger.Debug("batch loaded", "requested", msg.result.Requested, "received", len(msg.result.Verses), "total", m.feed.Len())

		var cmds []tea.Cmd
		if shown != nil {
			cmds = append(cmds, recordViewCmd(m.progress, *shown))
		}
		if len(msg.result.Verses) > 0 {
			cmds = append(cmds, m.startBatch(m.feed.Refill()))
		}
		if m.feed.Len() == 0 {
			cmds = append(cmds, m.setStatus("No verses could be loaded. Press r to retry."))
		}
		return m, tea.Batch(cmds...)

	case likesLoadedMsg:
		if msg.err != nil {
			m.logger.Warn("could not load liked verses", "error", msg.err)
		}
		m.refreshLiked()
		return m, nil

	case likeToggledMsg:
		if msg.err != nil {
			return m, m.setStatus(likeSaveError)
		}
		m.refreshLiked()
		if msg.liked {
			return m, m.setStatus("Liked " + msg.verse.Reference)
		}
		return m, m.setStatus("Removed " + msg.verse.Reference)

	case viewRecordedMsg:
		if msg.outcome == progress.Lost {
			m.logger.Warn("view not recorded", "verse", msg.verse.DedupKey())
		}
		return m, nil

	case statsLoadedMsg:
		m.stats, m.statsErr = msg.stats, msg.err
		return m, nil

	case clearStatusMsg:
		if msg.id == m.statusID {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.shutdown()
			return m, tea.Quit
		}
		switch m.mode {
		case likedMode:
			return m.updateLiked(msg)
		case statsMode:
			return m.updateStats(msg)
		case gotoMode:
			return m.updateGoto(msg)
		default:
			return m.updateReading(msg)
		}
	}

	if m.mode == likedMode {
		var cmd tea.Cmd
		m.liked, cmd = m.liked.Update(msg)
		return m, cmd
	}
	if m.mode == gotoMode {
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) updateReading(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.shutdown()
		return m, tea.Quit
	case "j", "down", "pgdown", " ":
		return m, m.visit(m.feed.Next())
	case "k", "up", "pgup":
		return m, m.visit(m.feed.Prev())
	case "g", "home":
		return m, m.visit(m.feed.Visit(0))
	case "G", "end":
		return m, m.visit(m.feed.Visit(m.feed.Len() - 1))
	case "l":
		if verse, ok := m.feed.Current(); ok {
			return m, toggleLikeCmd(m.likes, verse)
		}
	case "r":
		return m, m.startBatch(m.feed.Retry())
	case "f":
		if m.route.View != nav.Feed {
			cmd := m.navigate(nav.Route{View: nav.Feed})
			return m, cmd
		}
	case "c":
		if verse, ok := m.feed.Current(); ok && m.route.View == nav.Feed {
			cmd := m.navigate(nav.Route{View: nav.Chapter, Chapter: verse.ChapterNumber, Verse: verse.VerseNumber})
			return m, cmd
		}
	case "left", "[":
		if m.route.View == nav.Chapter && m.route.Chapter > 1 {
			cmd := m.navigate(nav.Route{View: nav.Chapter, Chapter: m.route.Chapter - 1})
			return m, cmd
		}
	case "right", "]":
		if m.route.View == nav.Chapter && m.route.Chapter < quran.ChapterCount {
			cmd := m.navigate(nav.Route{View: nav.Chapter, Chapter: m.route.Chapter + 1})
			return m, cmd
		}
	case "b":
		m.mode = likedMode
		m.refreshLiked()
		return m, nil
	case "s":
		m.mode = statsMode
		m.statsOffset = 0
		return m, loadStatsCmd(m.progress)
	case ":", "/":
		m.mode = gotoMode
		m.prompt.SetValue("")
		return m, m.prompt.Focus()
	}
	return m, nil
}

func (m model) updateLiked(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.liked.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.liked, cmd = m.liked.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "esc", "b", "q":
		if m.liked.IsFiltered() && msg.String() == "esc" {
			break
		}
		m.mode = readingMode
		return m, nil
	case "enter":
		if it, ok := m.liked.SelectedItem().(likedItem); ok {
			cmd := m.navigate(nav.Route{View: nav.Chapter, Chapter: it.verse.ChapterNumber, Verse: it.verse.VerseNumber})
			return m, cmd
		}
		return m, nil
	case "x", "d", "delete":
		if it, ok := m.liked.SelectedItem().(likedItem); ok {
			return m, toggleLikeCmd(m.likes, it.verse)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.liked, cmd = m.liked.Update(msg)
	return m, cmd
}

func (m model) updateStats(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "s", "q":
		m.mode = readingMode
	case "j", "down":
		m.statsOffset = min(m.statsOffset+1, max(0, len(m.stats)-1))
	case "k", "up":
		m.statsOffset = max(0, m.statsOffset-1)
	}
	return m, nil
}

func (m model) updateGoto(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.prompt.Blur()
		m.mode = readingMode
		return m, nil
	case "enter":
		m.prompt.Blur()
		cmd := m.navigate(m.resolver.ParseTarget(m.prompt.Value()))
		return m, cmd
	}
	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m *model) refreshLiked() {
	m.liked.SetItems(likedItems(m.likes.Verses()))
}

func (m model) shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m model) helpText() string {
	switch m.mode {
	case likedMode:
		return "j/k: Navigate • /: Filter • Enter: Open • x: Unlike • Esc: Back"
	case statsMode:
		return "j/k: Scroll • Esc: Back"
	case gotoMode:
		return "Enter: Go • Esc: Cancel"
	}
	if m.route.View == nav.Chapter {
		return "j/k: Verse • ←/→: Chapter • g/G: Top/Bottom • l: Like • b: Liked • s: Stats • :: Go to • f: Feed • q: Quit"
	}
	return "j/k: Verse • g/G: Top/Bottom • l: Like • c: Chapter • b: Liked • s: Stats • :: Go to • q: Quit"
}

func (m model) header() string {
	title := "Feed"
	if m.route.View == nav.Chapter {
		title = fmt.Sprintf("Chapter %d", m.route.Chapter)
		if verses := m.feed.Verses(); len(verses) > 0 {
			title += " · " + verses[0].ChapterName
		}
	}
	badge := m.styles.liked.Render(fmt.Sprintf("♥ %d", m.likes.Count()))
	return m.styles.header.Render(title) + "   " + badge
}

func (m model) View() string {
	switch m.mode {
	case likedMode:
		return m.viewLiked()
	case statsMode:
		return m.viewStats()
	}

	var content strings.Builder
	content.WriteString(m.centerText(m.header()))
	content.WriteString("\n\n")
	used := 2

	if m.mode == gotoMode {
		content.WriteString(m.centerText(m.prompt.View()))
		content.WriteString("\n\n")
		used += 2
	}

	used += m.viewFeed(&content, m.height-used-2)

	padTo(&content, used, m.height-2)
	content.WriteString(m.centerText(m.styles.status.Render(m.status)))
	content.WriteByte('\n')
	content.WriteString(m.centerText(m.styles.help.Render(m.helpText())))
	return content.String()
}

// viewFeed renders the visible verse with its neighbours dimmed above and
// below, vertically centered in available lines.
func (m model) viewFeed(content *strings.Builder, available int) int {
	verse, ok := m.feed.Current()
	if !ok {
		msg := "Press r to retry."
		if m.feed.Loading() || m.feed.State() == feed.Idle {
			msg = m.spinner.View() + " Loading verses…"
		}
		content.WriteString(m.centerText(m.styles.dim.Render(msg)))
		content.WriteByte('\n')
		return 1
	}

	var body strings.Builder
	lines := 0
	verses := m.feed.Verses()
	i := m.feed.Index()
	if i > 0 {
		m.renderNeighbour(&body, verses[i-1])
	} else {
		body.WriteByte('\n')
	}
	body.WriteByte('\n')
	lines += 2

	lines += m.renderVerseZen(&body, verse)

	body.WriteByte('\n')
	lines++
	if i+1 < len(verses) {
		m.renderNeighbour(&body, verses[i+1])
	} else if m.feed.Loading() {
		body.WriteString(m.centerText(m.spinner.View()))
		body.WriteByte('\n')
	} else {
		body.WriteByte('\n')
	}
	lines++

	position := fmt.Sprintf("%d / %d", i+1, len(verses))
	if m.feed.Exhausted() && i == len(verses)-1 {
		position += " · end"
	}
	body.WriteByte('\n')
	body.WriteString(m.centerText(m.styles.dim.Render(position)))
	body.WriteByte('\n')
	lines += 2

	topPadding := max(0, (available-lines)/2)
	content.WriteString(strings.Repeat("\n", topPadding))
	content.WriteString(body.String())
	return topPadding + lines
}

func (m model) viewLiked() string {
	var content strings.Builder
	content.WriteString(m.liked.View())
	content.WriteByte('\n')
	if m.likes.Count() == 0 {
		content.WriteString(m.centerText(m.styles.dim.Render("No liked verses yet. Press l on a verse to like it.")))
	}
	content.WriteByte('\n')
	content.WriteString(m.centerText(m.styles.help.Render(m.helpText())))
	return content.String()
}

func (m model) viewStats() string {
	var content strings.Builder
	content.WriteString(m.centerText(m.styles.header.Render("Reading statistics")))
	content.WriteString("\n\n")
	used := 2

	switch {
	case m.statsErr != nil:
		content.WriteString(m.centerText(m.styles.dim.Render("Statistics are unavailable right now.")))
		content.WriteByte('\n')
		used++
	case len(m.stats) == 0:
		content.WriteString(m.centerText(m.styles.dim.Render("Nothing read yet.")))
		content.WriteByte('\n')
		used++
	default:
		summary := fmt.Sprintf("%d verses read across %d chapters", m.stats.VersesRead(), len(m.stats))
		content.WriteString(m.centerText(m.styles.text.Render(summary)))
		content.WriteString("\n\n")
		used += 2

		rows := max(1, m.height-used-2)
		chapters := m.stats.Chapters()
		end := min(len(chapters), m.statsOffset+rows)
		for _, p := range chapters[m.statsOffset:end] {
			content.WriteString(m.centerText(m.statsRow(p)))
			content.WriteByte('\n')
			used++
		}
	}

	padTo(&content, used, m.height-1)
	content.WriteString(m.centerText(m.styles.help.Render(m.helpText())))
	return content.String()
}

func (m model) statsRow(p *progress.ChapterProgress) string {
	name := truncateText(p.ChapterName, 18)
	last := "-"
	if !p.LastReadAt.IsZero() {
		last = p.LastReadAt.Local().Format("2006-01-02")
	}
	ref := m.styles.reference.Render(fmt.Sprintf("%3d %-18s", p.ChapterNumber, name))
	row := fmt.Sprintf(" %3d/%-3d %5.1f%%  views %-4d %s",
		len(p.VerseNumbersRead), quran.VerseCount(p.ChapterNumber), p.Percent(), p.TotalViewEvents, last)
	return ref + m.styles.text.Render(row)
}
