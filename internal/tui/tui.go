package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"round-curator/internal/round"
)

func padToWidth(s string, width int) string {
	current := runewidth.StringWidth(s)
	if current >= width {
		return s
	}
	return s + strings.Repeat(" ", width-current)
}

// truncateToWidth cuts s to at most width display cells, marking the cut.
func truncateToWidth(s string, width int) string {
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width, "...")
}

func separatorLine(width int) string {
	if width < 2 {
		return strings.Repeat("─", width)
	}
	return "├" + strings.Repeat("─", width-2) + "┤"
}

func formatInfoLine(text string, width int) string {
	if width < 2 {
		return padToWidth(text, width)
	}
	return "│" + padToWidth(truncateToWidth(text, width-2), width-2) + "│"
}

// Status describes the keeper's clock and settlement counters.
type Status struct {
	Height    int64     // 0 when running on the system clock
	Now       time.Time // block time or wall time of the last tick
	Source    string    // "chain" or "system"
	Settled   uint64
	Failed    uint64
	LastError string
}

// RoundInfo is a snapshot of the watched round.
type RoundInfo struct {
	State *round.RoundState
	Last  *round.Settlement // most recent settlement seen by the keeper
}

// UpdateMsg is sent when the keeper status changes
type UpdateMsg struct {
	Status Status
}

// RoundUpdateMsg is sent when the watched round changes
type RoundUpdateMsg struct {
	Round RoundInfo
}

// Model holds the TUI state
type Model struct {
	status Status
	round  RoundInfo
	width  int
	height int
}

// NewModel creates a new TUI model
func NewModel() Model {
	return Model{}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case UpdateMsg:
		m.status = msg.Status
		return m, nil

	case RoundUpdateMsg:
		if msg.Round.Last == nil {
			msg.Round.Last = m.round.Last
		}
		m.round = msg.Round
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.renderRound())
}

func formatCountdown(now time.Time, deadline uint64) string {
	if now.IsZero() {
		return "N/A"
	}
	left := int64(deadline) - now.Unix()
	if left <= 0 {
		return "due"
	}
	return "in " + (time.Duration(left) * time.Second).String()
}

// renderHeader renders the top header section
func (m Model) renderHeader() string {
	colWidth := (m.width - 4) / 3
	rightColWidth := m.width - colWidth*2 - 4

	clockLine := fmt.Sprintf("clock: %s", m.status.Source)
	if m.status.Height > 0 {
		clockLine = fmt.Sprintf("clock: %s height=%d", m.status.Source, m.status.Height)
	}
	nowLine := "now: N/A"
	if !m.status.Now.IsZero() {
		nowLine = "now: " + m.status.Now.UTC().Format(time.RFC3339)
	}
	leftLines := []string{
		clockLine,
		nowLine,
		fmt.Sprintf("settled: %d failed: %d", m.status.Settled, m.status.Failed),
	}
	if m.status.LastError != "" {
		leftLines = append(leftLines, "error: "+m.status.LastError)
	}

	middleLines := []string{"round: N/A"}
	if s := m.round.State; s != nil {
		state := "active"
		if !s.Active {
			state = "inactive"
		}
		ai := "off"
		if s.Config.AiModeration {
			ai = "on"
		}
		middleLines = []string{
			fmt.Sprintf("round: %s (%s)", s.Key(), state),
			fmt.Sprintf("time limit: %s", time.Duration(s.Config.TimeLimit)*time.Second),
			fmt.Sprintf("fee: %d%% share: %d%% ai: %s", s.Config.BaseFeePercent, s.Config.DepositSharePercent, ai),
			fmt.Sprintf("timeout: %s", formatCountdown(m.status.Now, s.TimeoutTimestamp)),
		}
	}

	rightLines := []string{"last settlement: none"}
	if last := m.round.Last; last != nil {
		rightLines = []string{fmt.Sprintf("last settlement: %s", time.Unix(int64(last.SettledAt), 0).UTC().Format(time.RFC3339))}
		if r := last.Reward; r != nil {
			rightLines = append(rightLines,
				fmt.Sprintf("winner: %s", r.Winner),
				fmt.Sprintf("base fee: %d", r.BaseFeeAmount),
				fmt.Sprintf("quality share: %d", r.QualityShare),
			)
		} else {
			rightLines = append(rightLines, "winner: none")
		}
	}

	maxLines := len(leftLines)
	if len(middleLines) > maxLines {
		maxLines = len(middleLines)
	}
	if len(rightLines) > maxLines {
		maxLines = len(rightLines)
	}

	cell := func(lines []string, i, width int) string {
		s := ""
		if i < len(lines) {
			s = lines[i]
		}
		return padToWidth(truncateToWidth(s, width-2), width-2)
	}

	var rows []string
	for i := 0; i < maxLines; i++ {
		rows = append(rows, fmt.Sprintf("│ %s │ %s │ %s │",
			cell(leftLines, i, colWidth),
			cell(middleLines, i, colWidth),
			cell(rightLines, i, rightColWidth)))
	}

	topBorder := fmt.Sprintf("┌%s┬%s┬%s┐",
		strings.Repeat("─", colWidth),
		strings.Repeat("─", colWidth),
		strings.Repeat("─", rightColWidth))

	separator := fmt.Sprintf("├%s┴%s┴%s┤",
		strings.Repeat("─", colWidth),
		strings.Repeat("─", colWidth),
		strings.Repeat("─", rightColWidth))

	return topBorder + "\n" + strings.Join(rows, "\n") + "\n" + separator
}

// renderRound renders depositors, content entries and proposals, cut to
// the terminal height.
func (m Model) renderRound() string {
	s := m.round.State
	if s == nil {
		return formatInfoLine("waiting for round snapshot (set WATCH_ROUND)", m.width) + "\n" + bottomBorder(m.width)
	}

	var lines []string
	lines = append(lines, formatInfoLine(fmt.Sprintf("depositors %d/%d  total deposit %d", len(s.Depositors), round.MaxDepositors, s.TotalDeposit), m.width))
	for _, d := range s.Depositors {
		lines = append(lines, formatInfoLine(fmt.Sprintf("  %s  %d", d.Identity, d.Amount), m.width))
	}

	lines = append(lines, separatorLine(m.width))
	lines = append(lines, formatInfoLine(fmt.Sprintf("content %d/%d", len(s.Contents), round.MaxContents), m.width))
	for i, c := range s.Contents {
		lines = append(lines, formatInfoLine(fmt.Sprintf("  #%d %-3d %s %q %s", i, c.VoteCount, c.Author, c.Text, c.MediaURI), m.width))
	}

	lines = append(lines, separatorLine(m.width))
	lines = append(lines, formatInfoLine(fmt.Sprintf("proposals %d/%d", len(s.Proposals), round.MaxProposals), m.width))
	for i := range s.Proposals {
		p := &s.Proposals[i]
		perOption, total := p.Tally()
		opts := make([]string, len(p.Options))
		for j, o := range p.Options {
			opts[j] = fmt.Sprintf("%s=%d", o, perOption[j])
		}
		lines = append(lines, formatInfoLine(fmt.Sprintf("  #%d %s [%s] %s votes=%d %s ends %s",
			p.ID, p.Title, p.Type, p.Status, total, strings.Join(opts, " "),
			formatCountdown(m.status.Now, p.EndTime)), m.width))
	}

	// header takes the top border, at least three rows and the separator
	available := m.height - 6
	if available < 1 {
		available = 1
	}
	if len(lines) > available {
		lines = lines[:available]
	}
	return strings.Join(lines, "\n") + "\n" + bottomBorder(m.width)
}

func bottomBorder(width int) string {
	if width < 2 {
		return strings.Repeat("─", width)
	}
	return "└" + strings.Repeat("─", width-2) + "┘"
}

// Run starts the TUI program
func Run(updateCh <-chan interface{}) error {
	m := NewModel()
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Start goroutine to receive updates
	go func() {
		for data := range updateCh {
			switch v := data.(type) {
			case Status:
				p.Send(UpdateMsg{Status: v})
			case RoundInfo:
				p.Send(RoundUpdateMsg{Round: v})
			}
		}
		// Channel closed, quit TUI
		p.Quit()
	}()

	_, err := p.Run()
	return err
}
