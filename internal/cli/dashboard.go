package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/phaseops/pkg/models"
)

// Dashboard panel indices.
const (
	panelPhase = iota
	panelMetrics
	panelTeam
	panelAlerts
	panelCount
)

// progressBarWidth is the number of cells of the phase progress bar.
const progressBarWidth = 20

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	url  string
	msgs <-chan tea.Msg

	// Data.
	status     *models.SystemStatus
	metrics    models.LiveMetrics
	team       []models.TeamMemberState
	lastUpdate time.Time

	// State.
	connected bool
	err       error
}

// snapshotMsg carries the initial snapshot sent on connect.
type snapshotMsg struct {
	status models.SystemStatus
}

// updateMsg carries a periodic broadcast update.
type updateMsg struct {
	timestamp time.Time
	payload   models.UpdatePayload
}

// disconnectedMsg reports that the observer channel closed.
type disconnectedMsg struct {
	err error
}

func newDashboardModel(url string, msgs <-chan tea.Msg) dashboardModel {
	return dashboardModel{
		activePanel: panelPhase,
		url:         url,
		msgs:        msgs,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return listen(m.msgs)
}

// listen waits for the next message from the observer channel.
func listen(msgs <-chan tea.Msg) tea.Cmd {
	if msgs == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-msgs
		if !ok {
			return disconnectedMsg{}
		}
		return msg
	}
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case snapshotMsg:
		status := msg.status
		m.status = &status
		m.connected = true
		m.err = nil
		return m, listen(m.msgs)

	case updateMsg:
		status := msg.payload.Status
		m.status = &status
		m.metrics = msg.payload.Metrics
		m.team = msg.payload.Team
		m.lastUpdate = msg.timestamp
		m.connected = true
		return m, listen(m.msgs)

	case disconnectedMsg:
		m.connected = false
		m.err = msg.err
		if m.err == nil {
			m.err = fmt.Errorf("observer channel closed")
		}
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" phaseops dashboard ")
	help := helpStyle.Render("tab: switch panel | q: quit")

	if m.status == nil {
		if m.err != nil {
			return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
		}
		return fmt.Sprintf("%s\n\n  Connecting to %s...\n\n%s", title, m.url, help)
	}

	phasePanel := m.renderPhasePanel()
	metricsPanel := m.renderMetricsPanel()
	teamPanel := m.renderTeamPanel()
	alertsPanel := m.renderAlertsPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Two columns of two panels.
		colWidth := availableWidth / 2
		phasePanel = m.applyPanelStyle(panelPhase, phasePanel, colWidth-4)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, colWidth-4)
		teamPanel = m.applyPanelStyle(panelTeam, teamPanel, colWidth-4)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, colWidth-4)
		top := lipgloss.JoinHorizontal(lipgloss.Top, phasePanel, metricsPanel)
		bottom := lipgloss.JoinHorizontal(lipgloss.Top, teamPanel, alertsPanel)
		body = lipgloss.JoinVertical(lipgloss.Left, top, bottom)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		phasePanel = m.applyPanelStyle(panelPhase, phasePanel, panelWidth)
		metricsPanel = m.applyPanelStyle(panelMetrics, metricsPanel, panelWidth)
		teamPanel = m.applyPanelStyle(panelTeam, teamPanel, panelWidth)
		alertsPanel = m.applyPanelStyle(panelAlerts, alertsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, phasePanel, metricsPanel, teamPanel, alertsPanel)
	}

	footer := help
	if !m.connected && m.err != nil {
		footer = fmt.Sprintf("%s\n%s", levelError.Render("disconnected: "+m.err.Error()), help)
	} else if !m.lastUpdate.IsZero() {
		footer = fmt.Sprintf("%s\n%s", helpStyle.Render("last update "+m.lastUpdate.Local().Format("15:04:05")), help)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, footer)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderPhasePanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Phase"))
	b.WriteString("\n")

	s := m.status
	horizon := s.Phase.CurrentDay + s.Phase.DaysRemaining
	b.WriteString(fmt.Sprintf("  Day %d of %d\n", s.Phase.CurrentDay, horizon))
	b.WriteString(fmt.Sprintf("  %s %d%%\n\n", progressBar(s.Phase.Percent, progressBarWidth), s.Phase.Percent))

	b.WriteString(fmt.Sprintf("  %-12s %d/%d\n", "Completed", s.Tasks.Completed, s.Tasks.Total))
	b.WriteString(statusFailed.Render(fmt.Sprintf("  %-12s %d", "Failed", s.Tasks.Failed)))
	b.WriteString("\n")
	b.WriteString(statusBlocked.Render(fmt.Sprintf("  %-12s %d", "Blocked", s.Tasks.Blocked)))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  Health: %s", styleForHealth(s.Health).Render(string(s.Health))))

	return b.String()
}

func (m dashboardModel) renderMetricsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Latest report"))
	b.WriteString("\n")

	md := m.metrics
	if md.LastReportDate == "" {
		b.WriteString("  No reports yet.")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-14s %s\n", "Date", md.LastReportDate))
	b.WriteString(fmt.Sprintf("  %-14s %d\n", "Tasks", md.TasksToday))
	b.WriteString(fmt.Sprintf("  %-14s %s%%\n", "Success", md.SuccessRate))
	b.WriteString(fmt.Sprintf("  %-14s %d%%\n", "Efficiency", md.Efficiency))
	b.WriteString(fmt.Sprintf("  %-14s %d min\n", "Total time", md.TotalTimeMinutes))
	b.WriteString(fmt.Sprintf("  %-14s %ds", "Average", md.AverageTimeSeconds))

	return b.String()
}

func (m dashboardModel) renderTeamPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Team"))
	b.WriteString("\n")

	if len(m.team) == 0 {
		b.WriteString("  Waiting for the first update.")
		return b.String()
	}

	for _, member := range m.team {
		tasks := "-"
		if len(member.TasksToday) > 0 {
			tasks = strings.Join(member.TasksToday, ", ")
		}
		line := fmt.Sprintf("  %-10s %-7s %s", member.Name, member.State, tasks)
		if member.State == "active" {
			line = statusCompleted.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m dashboardModel) renderAlertsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Alerts"))
	b.WriteString("\n")

	alerts := m.status.Alerts
	if len(alerts) == 0 {
		b.WriteString("  No active alerts.")
		return b.String()
	}

	limit := len(alerts)
	if m.height > 0 && limit > m.height/4 {
		limit = max(m.height/4, 1)
	}
	for _, a := range alerts[:limit] {
		level := styleForLevel(string(a.Level)).Render(fmt.Sprintf("[%s]", strings.ToUpper(string(a.Level))))
		b.WriteString(fmt.Sprintf("  %s %s\n", level, a.Message))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d alert(s)", len(alerts)))

	return b.String()
}

func progressBar(percent, width int) string {
	percent = min(max(percent, 0), 100)
	filled := percent * width / 100
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}

// decodeObserverMessage turns one observer channel frame into a model message.
func decodeObserverMessage(data []byte) (tea.Msg, error) {
	var env struct {
		Type      string          `json:"type"`
		Timestamp *time.Time      `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding observer message: %w", err)
	}

	switch env.Type {
	case models.MessageInitial:
		var status models.SystemStatus
		if err := json.Unmarshal(env.Data, &status); err != nil {
			return nil, fmt.Errorf("decoding initial snapshot: %w", err)
		}
		return snapshotMsg{status: status}, nil
	case models.MessageUpdate:
		var payload models.UpdatePayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, fmt.Errorf("decoding update: %w", err)
		}
		msg := updateMsg{payload: payload}
		if env.Timestamp != nil {
			msg.timestamp = *env.Timestamp
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("unknown observer message type %q", env.Type)
	}
}

// subscribe dials the observer channel and forwards decoded messages until
// the connection closes. Undecodable frames are skipped.
func subscribe(url string) (*websocket.Conn, <-chan tea.Msg, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", url, err)
	}

	msgs := make(chan tea.Msg)
	go func() {
		defer close(msgs)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				msgs <- disconnectedMsg{err: err}
				return
			}
			msg, err := decodeObserverMessage(data)
			if err != nil {
				logger().Warn("skipping observer message", "error", err)
				continue
			}
			msgs <- msg
		}
	}()
	return conn, msgs, nil
}

// observerURL derives the WebSocket URL from a listen address.
func observerURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "ws://" + addr + "/ws"
}

var dashboardURL string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for the live phase status",
	Long: `Launch an interactive terminal dashboard subscribed to a running
'phaseops serve'. It shows phase progress, task counters, health, the latest
report metrics, the team and recent alerts, updated on every broadcast.

Navigate between panels with Tab, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		url := dashboardURL
		if url == "" {
			url = observerURL(Config.ServerAddr)
		}

		conn, msgs, err := subscribe(url)
		if err != nil {
			return err
		}
		defer conn.Close()

		p := tea.NewProgram(newDashboardModel(url, msgs), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardURL, "url", "", "Observer channel URL (defaults to ws://<server.addr>/ws)")
	rootCmd.AddCommand(dashboardCmd)
}
