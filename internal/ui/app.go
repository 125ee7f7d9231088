package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/tanker/internal/api"
	"github.com/five82/tanker/internal/geocode"
	"github.com/five82/tanker/internal/keystore"
	"github.com/five82/tanker/internal/location"
	"github.com/five82/tanker/internal/logger"
	"github.com/five82/tanker/internal/logtail"
	"github.com/five82/tanker/internal/models"
	"github.com/five82/tanker/internal/pool"
	"github.com/five82/tanker/internal/requests"
	"github.com/five82/tanker/internal/session"
	"github.com/five82/tanker/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewRequests View = iota
	ViewAddresses
	ViewPool
	ViewActivity
)

// Operation names, used for logging and success handling.
const (
	opLogin           = "login"
	opRegister        = "register"
	opCreateRequest   = "create-request"
	opOpenRequest     = "open-request"
	opConfirmDelivery = "confirm-delivery"
	opAddAddress      = "add-address"
	opRemoveAddress   = "remove-address"
	opDefaultAddress  = "default-address"
	opAccept          = "accept"
	opProfile         = "profile"
)

// themeKey is the keystore entry holding the chosen theme name.
const themeKey = "theme"

const (
	defaultUIInterval = time.Second
	bannerDuration    = 4 * time.Second
	activityLines     = 200
)

// Refresher wakes the background poller.
type Refresher interface {
	Trigger()
}

// Options configures the UI.
type Options struct {
	Context        context.Context
	Session        *session.Store
	Locations      *location.Store
	Requests       *requests.Store
	Pool           *pool.Store
	Geocoder       geocode.Lookup
	Keys           keystore.Store
	Refresher      Refresher
	Logout         func() // clears every store; defaults to Session.LogoutUser
	Log            logger.Logger
	LogPath        string
	PollTick       time.Duration
	NearbyRadiusKm float64
}

// snapshot is everything one frame renders.
type snapshot struct {
	session   session.Snapshot
	locations location.Snapshot
	requests  requests.Snapshot
	pool      pool.Snapshot
	nearby    []pool.Candidate
}

type banner struct {
	text    string
	isError bool
	until   time.Time
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	sess      *session.Store
	locations *location.Store
	reqs      *requests.Store
	pool      *pool.Store
	geocoder  geocode.Lookup
	storage   keystore.Store
	refresher Refresher
	logout    func()
	log       logger.Logger
	logPath   string
	pollTick  time.Duration
	radiusKm  float64

	keys        keyMap
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	showHelp    bool
	modal       Modal
	spinner     spinner.Model

	snap        snapshot
	lastUpdated time.Time
	selectedRow int
	activity    []logtail.Entry
	banner      banner
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultUIInterval
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}
	logout := opts.Logout
	if logout == nil && opts.Session != nil {
		logout = opts.Session.LogoutUser
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		ctx:       ctx,
		sess:      opts.Session,
		locations: opts.Locations,
		reqs:      opts.Requests,
		pool:      opts.Pool,
		geocoder:  opts.Geocoder,
		storage:   opts.Keys,
		refresher: opts.Refresher,
		logout:    logout,
		log:       log.With(logger.String("component", "ui")),
		logPath:   opts.LogPath,
		pollTick:  pollTick,
		radiusKm:  opts.NearbyRadiusKm,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(loadThemeName(opts.Keys)),
		spinner:   sp,
	}
	m.snap = m.takeSnapshot()
	m.currentView = m.homeView()
	return m
}

func loadThemeName(keys keystore.Store) string {
	if keys == nil {
		return ""
	}
	blob, ok, err := keys.Get(themeKey)
	if err != nil || !ok {
		return ""
	}
	return strings.TrimSpace(string(blob))
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		m.spinner.Tick,
		m.fetchSnapshotCmd(),
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case snapshotMsg:
		m.applySnapshot(snapshot(msg))
		return m, nil

	case opDoneMsg:
		return m.handleOpDone(msg)

	case activityMsg:
		if msg.err != nil {
			m.log.Warn("read activity log failed", logger.Error(msg.err))
			return m, nil
		}
		m.activity = msg.entries
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.modal != nil {
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}
	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.modal != nil {
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		var closed bool
		m.modal, cmd, closed = m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return m, nil
	}

	if !m.snap.session.IsAuthenticated() {
		return m.handleSignedOutKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Tab):
		return m.focus(m.nextView(1))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.focus(m.nextView(-1))
	case key.Matches(msg, m.keys.ViewRequests):
		return m.focus(ViewRequests)
	case key.Matches(msg, m.keys.ViewAddresses):
		return m.focus(ViewAddresses)
	case key.Matches(msg, m.keys.ViewPool):
		return m.focus(ViewPool)
	case key.Matches(msg, m.keys.ViewActivity):
		return m.focus(ViewActivity)
	case key.Matches(msg, m.keys.Refresh):
		m.triggerRefresh()
		return m, m.fetchSnapshotCmd()
	case key.Matches(msg, m.keys.Profile):
		m.modal = m.profileForm()
		return m, nil
	case key.Matches(msg, m.keys.Logout):
		if m.logout != nil {
			m.logout()
		}
		m.selectedRow = 0
		m.setBanner("Signed out", false)
		return m, m.fetchSnapshotCmd()
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.selectedRow = 0
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.selectedRow = max(m.rowCount()-1, 0)
		return m, nil
	}

	switch m.currentView {
	case ViewRequests:
		return m.handleRequestsKey(msg)
	case ViewAddresses:
		return m.handleAddressesKey(msg)
	case ViewPool:
		return m.handlePoolKey(msg)
	}
	return m, nil
}

// views lists the screens available to the signed-in role.
func (m Model) views() []View {
	if m.snap.session.Session.User.IsProvider() {
		return []View{ViewPool, ViewAddresses, ViewActivity}
	}
	return []View{ViewRequests, ViewAddresses, ViewActivity}
}

func (m Model) homeView() View {
	return m.views()[0]
}

func (m Model) nextView(delta int) View {
	views := m.views()
	for i, v := range views {
		if v == m.currentView {
			return views[(i+delta+len(views))%len(views)]
		}
	}
	return views[0]
}

// focus switches view. A newly focused screen asks for fresh data.
func (m Model) focus(v View) (tea.Model, tea.Cmd) {
	if v == ViewPool && !m.snap.session.Session.User.IsProvider() {
		m.setBanner("The pool is only available to providers", true)
		return m, nil
	}
	if v == ViewRequests && m.snap.session.Session.User.IsProvider() {
		m.setBanner("Requests are only available to customers", true)
		return m, nil
	}
	if m.currentView != v {
		m.selectedRow = 0
	}
	m.currentView = v
	m.triggerRefresh()
	cmds := []tea.Cmd{m.fetchSnapshotCmd()}
	if v == ViewActivity {
		cmds = append(cmds, m.fetchActivityCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) triggerRefresh() {
	if m.refresher != nil {
		m.refresher.Trigger()
	}
}

func (m *Model) cycleTheme() {
	m.theme = GetTheme(NextTheme(m.theme.Name))
	if m.storage == nil {
		return
	}
	if err := m.storage.Set(themeKey, []byte(m.theme.Name)); err != nil {
		m.log.Warn("persist theme failed", logger.Error(err))
	}
}

func (m Model) rowCount() int {
	switch m.currentView {
	case ViewRequests:
		return len(m.snap.requests.Customer)
	case ViewAddresses:
		return len(m.snap.locations.Addresses)
	case ViewPool:
		return len(m.snap.nearby)
	case ViewActivity:
		return len(m.activity)
	}
	return 0
}

func (m *Model) moveSelection(delta int) {
	n := m.rowCount()
	if n == 0 {
		m.selectedRow = 0
		return
	}
	m.selectedRow = min(max(m.selectedRow+delta, 0), n-1)
}

func (m *Model) clampSelection() {
	m.selectedRow = min(m.selectedRow, max(m.rowCount()-1, 0))
}

func (m *Model) setBanner(text string, isError bool) {
	m.banner = banner{text: text, isError: isError, until: time.Now().Add(bannerDuration)}
}

// handleTick processes the polling tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	if m.banner.text != "" && now.After(m.banner.until) {
		m.banner = banner{}
	}
	cmds := []tea.Cmd{m.fetchSnapshotCmd(), tickCmd(m.pollTick)}
	if m.currentView == ViewActivity {
		cmds = append(cmds, m.fetchActivityCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) applySnapshot(s snapshot) {
	wasAuthenticated := m.snap.session.IsAuthenticated()
	m.snap = s
	m.lastUpdated = time.Now()
	if s.session.IsAuthenticated() != wasAuthenticated {
		m.currentView = m.homeView()
		m.selectedRow = 0
	}
	m.clampSelection()
}

func (m Model) takeSnapshot() snapshot {
	var s snapshot
	if m.sess != nil {
		s.session = m.sess.Snapshot()
	}
	if m.locations != nil {
		s.locations = m.locations.Snapshot()
	}
	if m.reqs != nil {
		s.requests = m.reqs.Snapshot()
	}
	if m.pool != nil {
		s.pool = m.pool.Snapshot()
		var origin models.Coordinates
		if sel := s.locations.Selected; sel != nil {
			origin = sel.Coordinates()
		}
		radius := m.radiusKm
		if origin.IsZero() {
			radius = 0
		}
		s.nearby = m.pool.Nearby(origin, radius)
	}
	return s
}

// loading reports whether any store has a call in flight.
func (s snapshot) loading() bool {
	return s.session.Loading || s.locations.Loading || s.requests.Loading || s.pool.Loading
}

// offline reports repeated failures in any store.
func (s snapshot) offline() bool {
	return s.session.IsOffline() || s.locations.IsOffline() || s.requests.IsOffline() || s.pool.IsOffline()
}

// describe turns an operation error into a user-facing line.
func describe(err error) string {
	switch {
	case errors.Is(err, state.ErrMissingCredentials):
		return "Please fill in every field."
	case errors.Is(err, state.ErrUnknownOutcome):
		return "Saved, but the refresh failed. Pull again in a moment."
	}
	return capitalize(api.MessageOr(err, err.Error()))
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

// Messages

type tickMsg time.Time

type snapshotMsg snapshot

type opDoneMsg struct {
	op      string
	success string
	err     error
}

type activityMsg struct {
	entries []logtail.Entry
	err     error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) fetchSnapshotCmd() tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(m.takeSnapshot())
	}
}

func (m Model) fetchActivityCmd() tea.Cmd {
	if m.logPath == "" {
		return nil
	}
	path := m.logPath
	return func() tea.Msg {
		entries, err := logtail.ReadEntries(path, activityLines)
		return activityMsg{entries: entries, err: err}
	}
}

// runOp runs a store operation off the UI goroutine.
func (m Model) runOp(op, success string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, success: success, err: fn(ctx)}
	}
}

func (m Model) handleOpDone(msg opDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.log.Warn("operation failed", logger.String("op", msg.op), logger.Error(msg.err))
		m.setBanner(describe(msg.err), true)
	} else if m.consumeSuccess(msg.op) && msg.success != "" {
		m.setBanner(msg.success, false)
	}
	if msg.err == nil && msg.op != opOpenRequest {
		m.triggerRefresh()
	}
	return m, m.fetchSnapshotCmd()
}

// consumeSuccess reads and clears the store flag behind op's banner.
func (m Model) consumeSuccess(op string) bool {
	switch op {
	case opCreateRequest:
		return m.reqs != nil && m.reqs.ConsumeSuccess()
	case opAccept:
		return m.pool != nil && m.pool.ConsumeSuccess()
	}
	return true
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
