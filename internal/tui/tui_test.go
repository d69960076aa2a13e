package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"round-curator/internal/round"
)

func sized(t *testing.T, w, h int) Model {
	t.Helper()
	next, _ := NewModel().Update(tea.WindowSizeMsg{Width: w, Height: h})
	return next.(Model)
}

func sampleRound(t *testing.T) *round.RoundState {
	t.Helper()
	s, err := round.NewRoundState("OWNER", round.InitParams{Name: "memes", TimeLimit: 3600, BaseFeePercent: 10, DepositSharePercent: 50}, 1000)
	require.NoError(t, err)
	require.NoError(t, s.AddDeposit("ALICE", 40, 1000))
	require.NoError(t, s.SubmitContent("ALICE", "cat", "ipfs://cat", 1000))
	return s
}

func TestView_Loading(t *testing.T) {
	assert.Equal(t, "Loading...", NewModel().View())
}

func TestView_RoundSnapshot(t *testing.T) {
	m := sized(t, 120, 30)
	next, _ := m.Update(UpdateMsg{Status: Status{Height: 42, Now: time.Unix(1000, 0), Source: "chain", Settled: 3}})
	next, _ = next.Update(RoundUpdateMsg{Round: RoundInfo{State: sampleRound(t)}})
	out := next.(Model).View()

	assert.Contains(t, out, "height=42")
	assert.Contains(t, out, "round: OWNER/memes (active)")
	assert.Contains(t, out, "settled: 3 failed: 0")
	assert.Contains(t, out, "depositors 1/10")
	assert.Contains(t, out, "ALICE")
	assert.Contains(t, out, `"cat"`)
	assert.Contains(t, out, "last settlement: none")

	for _, line := range strings.Split(out, "\n") {
		assert.Equal(t, 120, runewidth.StringWidth(line), line)
	}
}

func TestUpdate_KeepsLastSettlement(t *testing.T) {
	m := sized(t, 100, 20)
	last := &round.Settlement{SettledAt: 5000, Reward: &round.Reward{Winner: "ALICE", BaseFeeAmount: 4}}
	next, _ := m.Update(RoundUpdateMsg{Round: RoundInfo{State: sampleRound(t), Last: last}})
	next, _ = next.Update(RoundUpdateMsg{Round: RoundInfo{State: sampleRound(t)}})

	out := next.(Model).View()
	assert.Contains(t, out, "winner: ALICE")
	assert.Contains(t, out, "base fee: 4")
}

func TestUpdate_Quit(t *testing.T) {
	_, cmd := NewModel().Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}
