package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

type state int

const (
	stateLogin state = iota
	stateDashboard
	stateAgentDetail
)

type RootModel struct {
	State     state
	Client    *Client
	Login     LoginModel
	Dashboard DashboardModel
	Detail    AgentDetailModel
	Quitting  bool
	width     int
	height    int
}

func NewRootModel(baseURL string) RootModel {
	c := NewClient()
	return RootModel{
		State:  stateLogin,
		Client: c,
		Login:  NewLoginModel(c, baseURL),
	}
}

func (m RootModel) Init() tea.Cmd {
	return m.Login.Init()
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Quitting = true
			return m, tea.Quit
		}
	}

	switch m.State {
	case stateLogin:
		if _, ok := msg.(loginDoneMsg); ok {
			m.State = stateDashboard
			m.Dashboard = NewDashboardModel(m.Client, m.width, m.height)
			return m, m.Dashboard.Init()
		}
		newLogin, cmd := m.Login.Update(msg)
		m.Login = newLogin
		cmds = append(cmds, cmd)

	case stateDashboard:
		if sel, ok := msg.(AgentSelectedMsg); ok {
			m.State = stateAgentDetail
			m.Detail = NewAgentDetailModel(m.Client, sel.AgentID, m.width, m.height)
			return m, m.Detail.Init()
		}
		newDash, cmd := m.Dashboard.Update(msg)
		m.Dashboard = newDash
		cmds = append(cmds, cmd)

	case stateAgentDetail:
		if _, ok := msg.(BackToDashboardMsg); ok {
			m.State = stateDashboard
			return m, m.Dashboard.Init()
		}
		newDetail, cmd := m.Detail.Update(msg)
		m.Detail = newDetail
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m RootModel) View() string {
	if m.Quitting {
		return "Bye!\n"
	}
	switch m.State {
	case stateLogin:
		return m.Login.View()
	case stateDashboard:
		return m.Dashboard.View()
	case stateAgentDetail:
		return m.Detail.View()
	}
	return ""
}
