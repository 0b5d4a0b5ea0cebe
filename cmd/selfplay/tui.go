package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/skirmish/selfplay"
)

type MatchUpdate struct {
	Result *selfplay.MatchResult
	Path   string
	Err    error
}

type TickMsg time.Time

// doneMsg means the update channel closed: every match has finished.
type doneMsg struct{}

type model struct {
	total     int
	finished  int
	outcomes  map[string]int
	turns     int64
	nodes     int64
	startTime time.Time
	recent    []string
	lastBoard string
	updates   chan MatchUpdate
	done      bool
}

func initialModel(updates chan MatchUpdate, total int) model {
	return model{
		total:     total,
		outcomes:  map[string]int{},
		startTime: time.Now(),
		updates:   updates,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func waitForUpdate(updates chan MatchUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return u
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case TickMsg:
		m.turns = totalTurns.Load()
		m.nodes = totalNodes.Load()
		return m, tickCmd()
	case MatchUpdate:
		m.finished++
		r := msg.Result
		m.outcomes[r.Outcome]++
		line := fmt.Sprintf("%s %-10s %-14s turns=%-3d %s", r.MatchID[:8], r.Scenario, r.Outcome, r.Turns, r.Elapsed.Round(time.Millisecond))
		if msg.Err != nil {
			line += " (write failed: " + msg.Err.Error() + ")"
		}
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > 10 {
			m.recent = m.recent[:10]
		}
		if r.Final != nil {
			m.lastBoard = selfplay.Render(r.Final)
		}
		return m, waitForUpdate(m.updates)
	case doneMsg:
		m.done = true
		m.turns = totalTurns.Load()
		m.nodes = totalNodes.Load()
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	elapsed := durationSince(m.startTime)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Matches:        %d / %d\n", m.finished, m.total)
	fmt.Fprintf(&sb, "Attacker wins:  %d\n", m.outcomes["attacker_wins"])
	fmt.Fprintf(&sb, "Defender wins:  %d\n", m.outcomes["defender_wins"])
	fmt.Fprintf(&sb, "Draws:          %d\n", m.outcomes[selfplay.Draw])
	fmt.Fprintf(&sb, "Turns:          %d (%.1f/s)\n", m.turns, float64(m.turns)/elapsed.Seconds())
	fmt.Fprintf(&sb, "Search nodes:   %d (%.0f/s)\n", m.nodes, float64(m.nodes)/elapsed.Seconds())
	fmt.Fprintf(&sb, "Duration:       %s\n\n", elapsed.Round(time.Second))

	sb.WriteString("Recent matches:\n")
	for _, line := range m.recent {
		sb.WriteString(line + "\n")
	}
	if m.lastBoard != "" {
		sb.WriteString("\nLast final position:\n" + m.lastBoard)
	}
	if m.done {
		sb.WriteString("\nAll matches finished.\n")
	} else {
		sb.WriteString("\nPress q to quit.\n")
	}
	return sb.String()
}
