package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/ownership/internal/scenario"
	"github.com/wippyai/ownership/ptr"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB")).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type stressModel struct {
	err      error
	cancel   context.CancelFunc
	start    time.Time
	elapsed  time.Duration
	report   scenario.StressReport
	stats    ptr.Stats
	spinner  spinner.Model
	progress progress.Model
	cfg      scenario.StressConfig
	round    int
	done     bool
}

type roundMsg struct {
	round int
	stats ptr.Stats
}

type doneMsg struct {
	err    error
	report scenario.StressReport
}

func newStressModel(cfg scenario.StressConfig, cancel context.CancelFunc) *stressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = valueStyle
	return &stressModel{
		cfg:      cfg,
		cancel:   cancel,
		start:    time.Now(),
		spinner:  s,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m *stressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *stressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
			if m.done {
				return m, tea.Quit
			}
		}

	case roundMsg:
		m.round = msg.round
		m.stats = msg.stats
		m.elapsed = time.Since(m.start)

	case doneMsg:
		m.done = true
		m.err = msg.err
		m.report = msg.report
		m.stats = msg.report.Stats
		m.elapsed = time.Since(m.start)
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *stressModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ownctl stress"))
	b.WriteString("\n\n")

	if !m.done {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
	}
	b.WriteString(m.progress.ViewAs(float64(m.round) / float64(m.cfg.Rounds)))
	b.WriteString(fmt.Sprintf("  %d/%d\n\n", m.round, m.cfg.Rounds))

	row := func(label string, v any) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(fmt.Sprint(v)))
		b.WriteString("\n")
	}
	row("goroutines", m.cfg.Goroutines)
	row("created", m.stats.ObjectsCreated)
	row("destroyed", m.stats.ObjectsDestroyed)
	row("live blocks", m.stats.LiveBlocks())
	row("lock misses", m.stats.LockFailures)
	row("violations", m.stats.Violations)
	row("elapsed", m.elapsed.Round(time.Millisecond))
	b.WriteString("\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	case m.done:
		b.WriteString(resultStyle.Render(fmt.Sprintf("%d rounds, %d promotions, every object destroyed once",
			m.report.Rounds, m.report.Promotions)))
		b.WriteString("\n")
	default:
		b.WriteString(helpStyle.Render("q cancel"))
		b.WriteString("\n")
	}

	return b.String()
}

func runInteractive(ctx context.Context, cfg scenario.StressConfig) error {
	stressCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newStressModel(cfg, cancel)
	p := tea.NewProgram(m, tea.WithContext(ctx))

	base := ptr.ReadStats()
	cfg.Progress = func(round, _ int) {
		p.Send(roundMsg{round: round, stats: ptr.ReadStats().Sub(base)})
	}
	go func() {
		report, err := scenario.Stress(stressCtx, cfg)
		p.Send(doneMsg{report: report, err: err})
	}()

	if _, err := p.Run(); err != nil && !m.done {
		return err
	}
	return m.err
}
