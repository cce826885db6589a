// Package display renders the board in the terminal using Bubble Tea.
//
// Buttons are drawn as a grid of fixed-size cells. The mouse drives the
// interaction context directly: motion enters and leaves controls and a
// left press clicks. Typed keys go straight to the board, so a physical
// keyboard never waits for a dwell.
package display

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/ottoboard/internal/board"
	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/interaction"
	"github.com/hammamikhairi/ottoboard/internal/logger"
)

// ── Styles ───────────────────────────────────────────────────────

var (
	// BannerStyle colours the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#f4f4f5"))

	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	lockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	historyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	historyTime = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	cellBase = lipgloss.NewStyle().
			Align(lipgloss.Center).
			Background(lipgloss.Color("#3f3f46")).
			Foreground(lipgloss.Color("#e4e4e7"))

	kindStyles = map[board.Kind]lipgloss.Style{
		board.KindNav:        cellBase.Background(lipgloss.Color("#1e293b")),
		board.KindCommand:    cellBase.Background(lipgloss.Color("#44403c")),
		board.KindSuggestion: cellBase.Background(lipgloss.Color("#312e81")).Foreground(lipgloss.Color("#c7d2fe")),
		board.KindPhrase:     cellBase.Background(lipgloss.Color("#134e4a")),
		board.KindSetting:    cellBase.Background(lipgloss.Color("#1e293b")),
	}

	activeCell   = cellBase.Background(lipgloss.Color("#1d4ed8")).Foreground(lipgloss.Color("#eff6ff")).Bold(true)
	hoverCell    = cellBase.Background(lipgloss.Color("#52525b")).Foreground(lipgloss.Color("#fafafa"))
	armedCell    = cellBase.Background(lipgloss.Color("#365314")).Foreground(lipgloss.Color("#ecfccb")).Bold(true)
	firedCell    = cellBase.Background(lipgloss.Color("#15803d")).Foreground(lipgloss.Color("#f0fdf4")).Bold(true)
	disabledCell = cellBase.Background(lipgloss.Color("#27272a")).Foreground(lipgloss.Color("#52525b"))
)

// ── Keys ─────────────────────────────────────────────────────────

type keyMap struct {
	Speak  key.Binding
	Clear  key.Binding
	Screen key.Binding
	Mode   key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Speak, k.Clear, k.Screen, k.Mode, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultKeys = keyMap{
	Speak:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "speak")),
	Clear:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
	Screen: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next screen")),
	Mode:   key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "click/dwell")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}

// ── UI ───────────────────────────────────────────────────────────

// Option configures the UI.
type Option func(*UI)

// WithTick sets the redraw interval used to animate dwell fills.
func WithTick(d time.Duration) Option {
	return func(u *UI) {
		if d > 0 {
			u.tick = d
		}
	}
}

// WithCellWidth sets the preferred button width in columns. Buttons shrink
// when the terminal is too narrow.
func WithCellWidth(w int) Option {
	return func(u *UI) {
		if w > 0 {
			u.cellWidth = w
		}
	}
}

// WithBanner toggles the title art above the board.
func WithBanner(on bool) Option {
	return func(u *UI) {
		u.banner = on
	}
}

// WithHistory sets how many recent messages are shown above the buttons.
// Zero hides the history.
func WithHistory(lines int) Option {
	return func(u *UI) {
		u.history = max(lines, 0)
	}
}

// UI draws a board and feeds terminal input into it.
type UI struct {
	ui    *interaction.Context
	board *board.Board
	log   *logger.Logger

	tick      time.Duration
	cellWidth int
	banner    bool
	history   int
}

// New creates the display. Call Run to start it.
func New(ui *interaction.Context, b *board.Board, log *logger.Logger, opts ...Option) *UI {
	u := &UI{
		ui:        ui,
		board:     b,
		log:       log,
		tick:      50 * time.Millisecond,
		cellWidth: 12,
		banner:    true,
		history:   3,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Run starts the Bubble Tea event loop and blocks until the user quits or
// ctx is cancelled.
func (u *UI) Run(ctx context.Context) error {
	changes := make(chan struct{}, 1)
	unsubscribe := u.ui.Subscribe(func(interaction.Snapshot) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	p := tea.NewProgram(u.model(changes),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

func (u *UI) model(changes <-chan struct{}) model {
	bar := progress.New(
		progress.WithSolidFill("#a3e635"),
		progress.WithoutPercentage(),
		progress.WithWidth(u.cellWidth),
	)
	return model{
		ui:        u.ui,
		board:     u.board,
		log:       u.log,
		changes:   changes,
		tick:      u.tick,
		cellWidth: u.cellWidth,
		banner:    u.banner,
		history:   u.history,
		keys:      defaultKeys,
		help:      help.New(),
		bar:       bar,
		mouseX:    -1,
		mouseY:    -1,
	}
}

// ── Bubble Tea model ─────────────────────────────────────────────

type (
	tickMsg    time.Time
	changedMsg struct{}
)

type model struct {
	ui      *interaction.Context
	board   *board.Board
	log     *logger.Logger
	changes <-chan struct{}

	tick      time.Duration
	cellWidth int
	banner    bool
	history   int
	keys      keyMap
	help      help.Model
	bar       progress.Model

	width, height  int
	mouseX, mouseY int
	hovered        string
}

// cell is a button's position on screen.
type cell struct {
	btn  board.Button
	x, y int
	w    int
}

const (
	cellHeight = 2 // label line and dwell fill line
	rowPitch   = cellHeight + 1
	margin     = 1
	gap        = 1
)

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.tick),
		waitForChange(m.changes),
		tea.SetWindowTitle("OttoBoard"),
	)
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		return m, tickCmd(m.tick)

	case changedMsg:
		m = m.syncHover()
		return m, waitForChange(m.changes)

	case tea.MouseMsg:
		m.mouseX, m.mouseY = msg.X, msg.Y
		switch msg.Action {
		case tea.MouseActionMotion:
			m = m.syncHover()
		case tea.MouseActionPress:
			if msg.Button != tea.MouseButtonLeft {
				return m, nil
			}
			m = m.syncHover()
			if m.hovered != "" {
				m.ui.Click(m.hovered)
			}
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Speak):
		m.board.Speak()
	case key.Matches(msg, m.keys.Clear):
		m.board.Press(board.KeyClear)
	case key.Matches(msg, m.keys.Screen):
		m.board.SetScreen(nextScreen(m.board.Screen()))
	case key.Matches(msg, m.keys.Mode):
		if m.ui.Mode() == domain.ModeDwell {
			m.board.SetMode(domain.ModeClick)
		} else {
			m.board.SetMode(domain.ModeDwell)
		}
	case msg.Type == tea.KeyBackspace || msg.Type == tea.KeyDelete:
		m.board.Press(board.KeyBackspace)
	case msg.Type == tea.KeySpace:
		m.board.Press(board.KeySpace)
	case msg.Type == tea.KeyRunes:
		for _, r := range msg.Runes {
			if k, ok := typed(r); ok {
				m.board.Press(k)
			}
		}
	}
	return m, nil
}

// typed maps a typed rune to a board key.
func typed(r rune) (string, bool) {
	switch {
	case r == ' ':
		return board.KeySpace, true
	case unicode.IsLetter(r), strings.ContainsRune(".,?!", r):
		return string(r), true
	}
	return "", false
}

func nextScreen(s domain.Screen) domain.Screen {
	switch s {
	case domain.ScreenKeyboard:
		return domain.ScreenPhrases
	case domain.ScreenPhrases:
		return domain.ScreenSettings
	}
	return domain.ScreenKeyboard
}

// syncHover moves the pointer to whatever control sits under the last
// mouse position. It also re-enters a control that was replaced under a
// resting pointer.
func (m model) syncHover() model {
	id := m.hit(m.mouseX, m.mouseY)

	if id == m.hovered {
		if id != "" {
			if ctl := m.ui.Control(id); ctl != nil && !ctl.View().Hovered {
				ctl.PointerEnter()
			}
		}
		return m
	}

	if m.hovered != "" {
		if ctl := m.ui.Control(m.hovered); ctl != nil {
			ctl.PointerLeave()
		}
	}
	m.hovered = id
	if id != "" {
		if ctl := m.ui.Control(id); ctl != nil {
			ctl.PointerEnter()
		}
	}
	return m
}

// hit returns the id of the button at x, y, or "".
func (m model) hit(x, y int) string {
	if x < 0 || y < 0 {
		return ""
	}
	for _, c := range m.layout(m.ui.Snapshot()) {
		if y >= c.y && y < c.y+cellHeight && x >= c.x && x < c.x+c.w {
			return c.btn.ID
		}
	}
	return ""
}

// layout positions every button below the header.
func (m model) layout(snap interaction.Snapshot) []cell {
	buttons := m.board.Buttons()
	if len(buttons) == 0 {
		return nil
	}

	widest, run := 0, 0
	for i, b := range buttons {
		if i > 0 && b.Row != buttons[i-1].Row {
			run = 0
		}
		run++
		if run > widest {
			widest = run
		}
	}
	w := m.cellWidth
	if m.width > 0 && margin+widest*(w+gap) > m.width {
		w = (m.width-margin)/widest - gap
	}
	if w < 4 {
		w = 4
	}

	top := lipgloss.Height(m.header(snap)) + 1
	cells := make([]cell, 0, len(buttons))
	row, col := -1, 0
	for i, b := range buttons {
		if i == 0 || b.Row != buttons[i-1].Row {
			row++
			col = 0
		}
		cells = append(cells, cell{
			btn: b,
			x:   margin + col*(w+gap),
			y:   top + row*rowPitch,
			w:   w,
		})
		col++
	}
	return cells
}

// ── View ─────────────────────────────────────────────────────────

func (m model) View() string {
	snap := m.ui.Snapshot()
	views := make(map[string]interaction.ControlView, len(snap.Controls))
	for _, v := range snap.Controls {
		views[v.ID] = v
	}

	var b strings.Builder
	b.WriteString(m.header(snap))
	b.WriteString("\n\n")
	b.WriteString(m.grid(m.layout(snap), views, snap.Locked))
	b.WriteString("\n\n")
	b.WriteString(" " + m.help.View(m.keys))
	return b.String()
}

func (m model) header(snap interaction.Snapshot) string {
	var lines []string
	if m.banner {
		lines = append(lines, RenderBanner(m.width))
	}

	title := m.board.Screen().String()
	if m.board.Screen() == domain.ScreenPhrases {
		title = m.board.Heading()
	}
	lines = append(lines, headingStyle.Render(" "+title))

	w := m.width
	if w <= 0 {
		w = 80
	}
	lines = append(lines, barBg.Width(w).Render(" "+m.board.Buffer()+"▏"))

	status := fmt.Sprintf(" %s · dwell %.1fs", snap.Mode, snap.Dwell.Seconds())
	if snap.Gaze != "" {
		status += " · gaze " + snap.Gaze
	}
	if snap.Demo != "" {
		status += " · demo " + snap.Demo
	}
	line := statusStyle.Render(status)
	if snap.Locked {
		line += lockStyle.Render(fmt.Sprintf(" · locked %.1fs", snap.LockRemaining.Seconds()))
	}
	if n := m.board.Notice(); n != "" {
		line += noticeStyle.Render(" · " + n)
	}
	lines = append(lines, line)
	lines = append(lines, m.recent(w)...)

	return strings.Join(lines, "\n")
}

// recent renders the last messages spoken, oldest first. It always returns
// m.history lines so the grid does not move when the first one arrives.
func (m model) recent(width int) []string {
	if m.history == 0 {
		return nil
	}
	msgs := m.board.History()
	if len(msgs) > m.history {
		msgs = msgs[len(msgs)-m.history:]
	}

	lines := make([]string, m.history)
	if len(msgs) == 0 {
		lines[0] = historyTime.Render(" No messages yet")
		return lines
	}
	for i, msg := range msgs {
		stamp := msg.At.Format("15:04")
		lines[i] = historyTime.Render(" "+stamp+" ") + historyStyle.Render(clip(msg.Text, max(width-len(stamp)-3, 1)))
	}
	return lines
}

func (m model) grid(cells []cell, views map[string]interaction.ControlView, locked bool) string {
	var rows []string
	var label, fill strings.Builder

	flush := func() {
		rows = append(rows, label.String()+"\n"+fill.String())
		label.Reset()
		fill.Reset()
	}

	for i, c := range cells {
		if i > 0 && c.y != cells[i-1].y {
			flush()
		}
		if label.Len() == 0 {
			label.WriteString(strings.Repeat(" ", margin))
			fill.WriteString(strings.Repeat(" ", margin))
		} else {
			label.WriteString(strings.Repeat(" ", gap))
			fill.WriteString(strings.Repeat(" ", gap))
		}

		v, ok := views[c.btn.ID]
		style := styleFor(c.btn, v, ok, locked).Width(c.w).MaxWidth(c.w)
		label.WriteString(style.Render(clip(c.btn.Label, c.w)))

		if ok && v.State == interaction.StateArmed {
			bar := m.bar
			bar.Width = c.w
			fill.WriteString(bar.ViewAs(v.Progress))
		} else {
			fill.WriteString(style.Render(""))
		}
	}
	if len(cells) > 0 {
		flush()
	}
	return strings.Join(rows, "\n\n")
}

func styleFor(btn board.Button, v interaction.ControlView, registered, locked bool) lipgloss.Style {
	switch {
	case btn.Disabled || !registered:
		return disabledCell
	case v.State == interaction.StateFired:
		return firedCell
	case v.State == interaction.StateArmed:
		return armedCell
	case locked:
		return disabledCell
	case v.Hovered:
		return hoverCell
	case btn.Active:
		return activeCell
	}
	style, ok := kindStyles[btn.Kind]
	if !ok {
		style = cellBase
	}
	if btn.Custom {
		style = style.Italic(true)
	}
	return style
}

// clip shortens s to fit w columns.
func clip(s string, w int) string {
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w <= 1 {
		return string(r[:w])
	}
	return string(r[:w-1]) + "…"
}
