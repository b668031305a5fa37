package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"QueryChat/internal/cache"
	"QueryChat/internal/session"
	"QueryChat/internal/widget"
)

const (
	buttonLabel = "[ Send ]"

	headerHeight = 1
	footerHeight = 3 // separator, input row, status bar
)

type focusArea int

const (
	focusInput focusArea = iota
	focusButton
)

// postedMsg carries a closure posted back onto the UI loop
type postedMsg struct {
	fn func()
}

// uiLoop runs request work on goroutines and funnels replies back through
// Update, which is the only place the display is touched. Once stopped,
// posts are dropped.
type uiLoop struct {
	posts    chan func()
	done     chan struct{}
	stopOnce sync.Once
}

func newUILoop() *uiLoop {
	return &uiLoop{
		posts: make(chan func(), 64),
		done:  make(chan struct{}),
	}
}

func (l *uiLoop) Go(fn func()) { go fn() }

func (l *uiLoop) Post(fn func()) {
	select {
	case l.posts <- fn:
	case <-l.done:
	}
}

func (l *uiLoop) stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

func (l *uiLoop) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case fn := <-l.posts:
			return postedMsg{fn: fn}
		case <-l.done:
			return nil
		}
	}
}

// Model is the terminal host for the chat widget. It acts as the widget's
// input, message display and event source.
type Model struct {
	endpoint string
	widget   *widget.Widget
	loop     *uiLoop

	input    textinput.Model
	viewport viewport.Model
	focus    focusArea

	transcript session.Transcript
	renders    *cache.RenderCache

	onClick func()
	onKey   func(key string)

	ready  bool
	width  int
	height int
	notice string
	err    error
}

// NewModel creates the chat model. Triggers are attached in Init.
func NewModel(querier widget.Querier, endpoint string, opts ...widget.Option) (*Model, error) {
	ti := textinput.New()
	ti.Placeholder = "Ask about customers, processes or documents..."
	ti.Prompt = "> "
	ti.CharLimit = 4000
	ti.PromptStyle = lipgloss.NewStyle().Foreground(colorPrimary)
	ti.TextStyle = lipgloss.NewStyle().Foreground(colorText)
	ti.PlaceholderStyle = lipgloss.NewStyle().Foreground(colorTextDim)
	ti.Focus()

	m := &Model{
		endpoint: endpoint,
		loop:     newUILoop(),
		input:    ti,
		viewport: viewport.New(0, 0),
		renders:  &cache.RenderCache{},
	}

	w, err := widget.New(m, m, querier, m.loop, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create widget: %w", err)
	}
	m.widget = w
	return m, nil
}

// Value implements widget.Input
func (m *Model) Value() string { return m.input.Value() }

// SetValue implements widget.Input
func (m *Model) SetValue(v string) { m.input.SetValue(v) }

// AppendMessage implements widget.Display
func (m *Model) AppendMessage(msg session.Message) {
	m.transcript.Append(msg)
	m.refreshViewport()
}

// ScrollToBottom implements widget.Display
func (m *Model) ScrollToBottom() { m.viewport.GotoBottom() }

// OnClick implements widget.Events
func (m *Model) OnClick(handler func()) { m.onClick = handler }

// OnKeyPress implements widget.Events
func (m *Model) OnKeyPress(handler func(key string)) { m.onKey = handler }

// Messages returns the bubbles shown so far
func (m *Model) Messages() []session.Message { return m.transcript.Messages() }

// Init attaches the widget triggers; Bubble Tea calls it once
func (m *Model) Init() tea.Cmd {
	if err := m.widget.Attach(m); err != nil {
		m.err = err
		return tea.Quit
	}
	return tea.Batch(textinput.Blink, m.loop.wait())
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case postedMsg:
		msg.fn()
		return m, m.loop.wait()

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft && m.onButton(msg.X, msg.Y) {
			m.click()
			return m, nil
		}
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.focus == focusInput {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	key := msg.String()
	m.notice = ""

	switch key {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "tab", "shift+tab":
		m.toggleFocus()
		return m, nil

	case "ctrl+y":
		m.copyLastReply()
		return m, nil

	case "pgup", "pgdown", "up", "down":
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.focus == focusButton {
		if key == "enter" || key == " " {
			m.click()
		}
		return m, nil
	}

	if m.onKey != nil {
		m.onKey(key)
	}
	if key == "enter" {
		return m, nil
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) click() {
	if m.onClick != nil {
		m.onClick()
	}
}

func (m *Model) toggleFocus() {
	if m.focus == focusInput {
		m.focus = focusButton
		m.input.Blur()
		return
	}
	m.focus = focusInput
	m.input.Focus()
}

func (m *Model) copyLastReply() {
	last, ok := m.transcript.Last(session.SenderBot)
	if !ok {
		m.notice = "nothing to copy yet"
		return
	}
	if err := clipboard.WriteAll(last.Text); err != nil {
		m.notice = "copy failed: " + err.Error()
		return
	}
	m.notice = "reply copied"
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	vpHeight := height - headerHeight - footerHeight
	if vpHeight < 3 {
		vpHeight = 3
	}

	m.viewport.Width = width
	m.viewport.Height = vpHeight
	m.input.Width = m.inputColumnWidth() - len(m.input.Prompt) - 1
	m.ready = true

	m.refreshViewport()
	m.viewport.GotoBottom()
}

// inputColumnWidth is the width reserved for the text input; the button
// follows it after a single space.
func (m *Model) inputColumnWidth() int {
	w := m.width - lipgloss.Width(buttonLabel) - 1
	if w < 10 {
		w = 10
	}
	return w
}

// onButton reports whether the cell x,y lies on the send button
func (m *Model) onButton(x, y int) bool {
	if !m.ready {
		return false
	}
	row := headerHeight + m.viewport.Height + 1
	start := m.inputColumnWidth() + 1
	return y == row && x >= start && x < start+lipgloss.Width(buttonLabel)
}

func (m *Model) refreshViewport() {
	msgs := m.transcript.Messages()
	width := m.viewport.Width
	if width <= 0 {
		width = 80
	}

	var content strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			content.WriteString("\n")
		}
		content.WriteString(m.renders.GetOrRender(msg, width, func() string {
			return renderBubble(msg, width)
		}))
		content.WriteString("\n")
	}
	m.viewport.SetContent(content.String())
}

// renderBubble draws one message, right-aligned for the user and
// left-aligned for the bot
func renderBubble(msg session.Message, width int) string {
	maxWidth := width * 3 / 4
	if maxWidth < 10 {
		maxWidth = 10
	}
	textWidth := lipgloss.Width(msg.Text)
	if textWidth > maxWidth-2 {
		textWidth = maxWidth - 2
	}

	align := lipgloss.Left
	label := botLabelStyle.Render("Bot")
	style := botBubbleStyle
	if msg.Sender == session.SenderUser {
		align = lipgloss.Right
		label = userLabelStyle.Render("You")
		style = userBubbleStyle
	} else if msg.Text == widget.ErrorText {
		style = errorBubbleStyle
	}

	bubble := style.Width(textWidth + 2).Render(msg.Text)
	block := lipgloss.JoinVertical(align, label, bubble)
	return lipgloss.PlaceHorizontal(width, align, block)
}

// View renders the TUI
func (m *Model) View() string {
	if !m.ready {
		return hintStyle.Render("  Initializing...")
	}

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("QueryChat"),
		hintStyle.Render("  •  "+m.endpoint),
	)

	var messages string
	if m.transcript.Len() == 0 {
		messages = lipgloss.Place(m.viewport.Width, m.viewport.Height, lipgloss.Center, lipgloss.Center,
			hintStyle.Render("Type a question and press Enter"))
	} else {
		messages = m.viewport.View()
	}

	separator := separatorStyle.Render(strings.Repeat("─", max(m.width, 0)))

	button := buttonStyle.Render(buttonLabel)
	if m.focus == focusButton {
		button = buttonFocusedStyle.Render(buttonLabel)
	}
	inputRow := lipgloss.NewStyle().Width(m.inputColumnWidth()).MaxHeight(1).Render(m.input.View()) + " " + button

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		messages,
		separator,
		inputRow,
		m.renderStatusBar(),
	)
}

// renderStatusBar renders the bottom status bar with shortcuts
func (m *Model) renderStatusBar() string {
	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send"},
		{"Tab", "Button"},
		{"Ctrl+Y", "Copy reply"},
		{"Esc", "Quit"},
	}

	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	bar := strings.Join(items, "  │  ")

	if n := m.widget.Pending(); n > 0 {
		bar = pendingStyle.Render(fmt.Sprintf("%d pending", n)) + "  │  " + bar
	}
	if m.notice != "" {
		bar = hintStyle.Render(m.notice) + "  │  " + bar
	}
	return lipgloss.NewStyle().MaxWidth(max(m.width, 1)).Render(bar)
}

// Err returns the error that stopped the model, if any
func (m *Model) Err() error { return m.err }

// Run starts the chat TUI and blocks until the user quits
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	defer m.loop.stop()

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return m.Err()
}
