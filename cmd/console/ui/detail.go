package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type AgentDetailModel struct {
	Client  *Client
	AgentID string
	Agent   *AgentEntry
	Width   int
	Height  int

	Queue       table.Model
	CommandForm *CommandFormModel
	Log         viewport.Model
	LogContent  string

	// Focus: 0 queue table, 1 command form
	Focus int
}

const (
	focusQueue = iota
	focusForm
)

type agentLoadedMsg struct {
	Agent *AgentEntry
}

type queueLoadedMsg struct {
	Commands []CommandEntry
}

type BackToDashboardMsg struct{}

func NewAgentDetailModel(c *Client, agentID string, width, height int) AgentDetailModel {
	columns := []table.Column{
		{Title: "Command", Width: 18},
		{Title: "Status", Width: 12},
		{Title: "Error", Width: 24},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height-14),
	)
	sT := table.DefaultStyles()
	sT.Header = sT.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	sT.Selected = sT.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(sT)

	vp := viewport.New(50, 8)
	vp.Style = lipgloss.NewStyle().PaddingLeft(1)

	form := NewCommandFormModel(c, agentID, 50, height-14)

	return AgentDetailModel{
		Client:      c,
		AgentID:     agentID,
		Width:       width,
		Height:      height,
		Queue:       t,
		CommandForm: &form,
		Log:         vp,
		Focus:       focusQueue,
	}
}

func (m AgentDetailModel) Init() tea.Cmd {
	return tea.Batch(m.fetchAgent, m.fetchQueue)
}

func (m AgentDetailModel) fetchAgent() tea.Msg {
	agent, err := m.Client.GetAgent(m.AgentID)
	if err != nil {
		return errMsg(err)
	}
	return agentLoadedMsg{Agent: agent}
}

func (m AgentDetailModel) fetchQueue() tea.Msg {
	cmds, err := m.Client.Queue(m.AgentID)
	if err != nil {
		return errMsg(err)
	}
	return queueLoadedMsg{Commands: cmds}
}

func (m AgentDetailModel) cancelCmd() tea.Msg {
	cmd, err := m.Client.Cancel(m.AgentID)
	if err != nil {
		return errMsg(err)
	}
	return CommandSentMsg{Log: fmt.Sprintf("Cancelled %s (%s)", cmd.Type, cmd.CommandID)}
}

func (m AgentDetailModel) Update(msg tea.Msg) (AgentDetailModel, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.Focus == focusForm && m.CommandForm.State == stateFilling {
				break
			}
			return m, func() tea.Msg { return BackToDashboardMsg{} }
		case "tab":
			if m.Focus == focusQueue {
				m.Focus = focusForm
				m.Queue.Blur()
			} else {
				m.Focus = focusQueue
				m.Queue.Focus()
			}
			return m, nil
		case "r":
			if m.Focus == focusQueue {
				return m, tea.Batch(m.fetchAgent, m.fetchQueue)
			}
		case "c":
			if m.Focus == focusQueue {
				return m, m.cancelCmd
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Queue.SetHeight(msg.Height - 14)
		m.Log.Width = msg.Width/2 - 8

	case agentLoadedMsg:
		m.Agent = msg.Agent

	case queueLoadedMsg:
		rows := make([]table.Row, 0, len(msg.Commands))
		for _, c := range msg.Commands {
			rows = append(rows, table.Row{c.Type, c.Status, c.ErrorMessage})
		}
		m.Queue.SetRows(rows)

	case CommandSentMsg:
		m.LogContent += "\n" + msg.Log
		m.Log.SetContent(m.LogContent)
		m.Log.GotoBottom()
		cmds = append(cmds, m.fetchQueue)

	case errMsg:
		m.LogContent += "\nError: " + msg.Error()
		m.Log.SetContent(m.LogContent)
		m.Log.GotoBottom()
	}

	if m.Focus == focusQueue {
		m.Queue, cmd = m.Queue.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		*m.CommandForm, cmd = m.CommandForm.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.Log, cmd = m.Log.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m AgentDetailModel) infoView() string {
	if m.Agent == nil {
		return blurredStyle.Render("loading...")
	}
	a := m.Agent
	deref := func(s *string) string {
		if s == nil {
			return "-"
		}
		return *s
	}
	online := offlineStyle("offline")
	if a.Online {
		online = onlineStyle("online")
	}
	lines := []string{
		fmt.Sprintf("Name: %s  %s", a.DisplayName, online),
		fmt.Sprintf("Host: %s (%s)", a.Hostname, a.IP),
		fmt.Sprintf("Version: %s", a.AgentVersion),
		fmt.Sprintf("Last seen: %s", deref(a.LastSeenAt)),
		fmt.Sprintf("Last run: %s  status %s", deref(a.LastRunAt), deref(a.LastStatus)),
		fmt.Sprintf("Schedule: enabled=%v daily=%s", a.Schedule.Enabled, a.Schedule.DailyTime),
		fmt.Sprintf("Local web: enabled=%v port=%d", a.LocalWeb.Enabled, a.LocalWeb.Port),
	}
	if a.PendingPollInterval != nil {
		lines = append(lines, fmt.Sprintf("Pending poll interval: %ds", *a.PendingPollInterval))
	}
	if a.RebootRequired != nil && *a.RebootRequired {
		lines = append(lines, errorMessageStyle("Reboot required"))
	}
	return strings.Join(lines, "\n")
}

func (m AgentDetailModel) View() string {
	header := titleStyle.Render("Agent "+m.AgentID) + "\n"

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.infoView(),
		"",
		lipgloss.NewStyle().Bold(true).Render("Queue"),
		m.Queue.View(),
	)

	right := m.CommandForm.View()
	if m.LogContent != "" {
		sep := blurredStyle.Render(strings.Repeat("─", m.Width/2-8))
		right = lipgloss.JoinVertical(lipgloss.Left, right, sep, m.Log.View())
	}

	activeBorder := lipgloss.NewStyle().BorderStyle(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("205")).Padding(1, 2).Width(m.Width/2 - 6)
	inactiveBorder := lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(m.Width/2 - 6)

	var leftStyle, rightStyle lipgloss.Style
	if m.Focus == focusQueue {
		leftStyle, rightStyle = activeBorder, inactiveBorder
	} else {
		leftStyle, rightStyle = inactiveBorder, activeBorder
	}

	content := lipgloss.JoinHorizontal(lipgloss.Top, leftStyle.Render(left), rightStyle.Render(right))
	help := blurredStyle.Render("Tab: switch panel • r: refresh • c: cancel queued • Esc: back")

	return lipgloss.JoinVertical(lipgloss.Left, header, content, help)
}
