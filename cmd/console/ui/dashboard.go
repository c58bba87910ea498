package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type DashboardModel struct {
	Client *Client
	Table  table.Model
	Agents []AgentEntry
	Status string
	Err    error
}

type agentsLoadedMsg struct {
	Agents []AgentEntry
}

type AgentSelectedMsg struct {
	AgentID string
}

func NewDashboardModel(c *Client, width, height int) DashboardModel {
	columns := []table.Column{
		{Title: "Agent ID", Width: 36},
		{Title: "Name", Width: 16},
		{Title: "Hostname", Width: 16},
		{Title: "Version", Width: 9},
		{Title: "Last Status", Width: 11},
		{Title: "Online", Width: 7},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height-10),
	)

	sStyle := table.DefaultStyles()
	sStyle.Header = sStyle.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	sStyle.Selected = sStyle.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(sStyle)

	return DashboardModel{Client: c, Table: t}
}

func (m DashboardModel) Init() tea.Cmd {
	return m.refreshCmd
}

func (m DashboardModel) refreshCmd() tea.Msg {
	agents, err := m.Client.ListAgents()
	if err != nil {
		return errMsg(err)
	}
	return agentsLoadedMsg{Agents: agents}
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.Status = "Refreshing..."
			return m, m.refreshCmd
		case "enter":
			selected := m.Table.SelectedRow()
			if len(selected) > 0 {
				agentID := selected[0]
				return m, func() tea.Msg { return AgentSelectedMsg{AgentID: agentID} }
			}
		case "q":
			return m, tea.Quit
		}

	case agentsLoadedMsg:
		m.Agents = msg.Agents
		m.Err = nil
		m.Status = ""
		rows := make([]table.Row, 0, len(m.Agents))
		for _, a := range m.Agents {
			status := "-"
			if a.LastStatus != nil {
				status = *a.LastStatus
			}
			online := offlineStyle("offline")
			if a.Online {
				online = onlineStyle("online")
			}
			rows = append(rows, table.Row{a.AgentID, a.DisplayName, a.Hostname, a.AgentVersion, status, online})
		}
		m.Table.SetRows(rows)

	case errMsg:
		m.Err = msg
		m.Status = ""
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m DashboardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Fleetguard - Agents") + "\n\n")
	b.WriteString(m.Table.View())
	b.WriteString("\n\n")
	b.WriteString(blurredStyle.Render("Press 'r' to refresh, Enter to open, 'q' to quit"))
	if m.Status != "" {
		b.WriteString("\n" + statusMessageStyle(m.Status))
	}
	if m.Err != nil {
		b.WriteString("\n" + errorMessageStyle(m.Err.Error()))
	}
	return b.String()
}
