package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type formState int

const (
	stateSelecting formState = iota
	stateFilling
)

type cmdItem struct {
	title, desc string
	index       int
}

func (i cmdItem) Title() string       { return i.title }
func (i cmdItem) Description() string { return i.desc }
func (i cmdItem) FilterValue() string { return i.title }

// CommandSentMsg reports a submitted or cancelled command for the log panel.
type CommandSentMsg struct {
	Log string
}

type fieldDef struct {
	Name        string
	Placeholder string
	Required    bool
	Default     string
}

type commandDef struct {
	Name        string
	Description string
	Fields      []fieldDef
}

var availableCommands = []commandDef{
	{Name: "RUN_NOW", Description: "Trigger an immediate run"},
	{
		Name:        "SET_SCHEDULE",
		Description: "Set the daily run schedule",
		Fields: []fieldDef{
			{Name: "enabled", Placeholder: "true or false", Required: true, Default: "true"},
			{Name: "dailyTime", Placeholder: "HH:MM", Required: true, Default: "03:00"},
		},
	},
	{Name: "UPDATE_AGENT", Description: "Self-update the agent binary"},
	{Name: "FETCH_INFO", Description: "Collect a host info snapshot"},
	{Name: "LIST_LOGS", Description: "List the agent's log files"},
	{
		Name:        "FETCH_LOG",
		Description: "Fetch the tail of one log file",
		Fields: []fieldDef{
			{Name: "logName", Placeholder: "agent.log", Required: true},
		},
	},
	{
		Name:        "SET_POLL_INTERVAL",
		Description: "Change the poll cadence",
		Fields: []fieldDef{
			{Name: "pollIntervalSeconds", Placeholder: "60", Required: true, Default: "60"},
		},
	},
	{Name: "UNINSTALL", Description: "Uninstall the agent and remove it from the fleet"},
}

type CommandFormModel struct {
	Client      *Client
	AgentID     string
	State       formState
	List        list.Model
	Inputs      []textinput.Model
	Focused     int
	SelectedCmd int
}

func NewCommandFormModel(c *Client, agentID string, width, height int) CommandFormModel {
	items := []list.Item{}
	for i, cmd := range availableCommands {
		items = append(items, cmdItem{title: cmd.Name, desc: cmd.Description, index: i})
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, width, height)
	l.Title = "Send Command"
	l.SetShowHelp(false)

	return CommandFormModel{
		Client:  c,
		AgentID: agentID,
		State:   stateSelecting,
		List:    l,
	}
}

func (m *CommandFormModel) initInputs() {
	cmd := availableCommands[m.SelectedCmd]
	m.Inputs = make([]textinput.Model, len(cmd.Fields))
	for i, field := range cmd.Fields {
		ti := textinput.New()
		ti.Placeholder = field.Placeholder
		ti.CharLimit = 256
		if field.Default != "" {
			ti.SetValue(field.Default)
		}
		if i == 0 {
			ti.Focus()
		}
		m.Inputs[i] = ti
	}
	m.Focused = 0
}

func (m CommandFormModel) Init() tea.Cmd {
	return nil
}

func (m CommandFormModel) Update(msg tea.Msg) (CommandFormModel, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	if m.State == stateSelecting {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "enter":
				if i, ok := m.List.SelectedItem().(cmdItem); ok {
					m.SelectedCmd = i.index
					if len(availableCommands[m.SelectedCmd].Fields) == 0 {
						return m, m.submitCommand()
					}
					m.State = stateFilling
					m.initInputs()
					return m, textinput.Blink
				}
			case "up", "k":
				m.List.CursorUp()
				return m, nil
			case "down", "j":
				m.List.CursorDown()
				return m, nil
			}
		case tea.WindowSizeMsg:
			m.List.SetWidth(msg.Width/2 - 8)
			m.List.SetHeight(msg.Height - 14)
		}
		m.List, cmd = m.List.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "esc":
				m.State = stateSelecting
				return m, nil
			case "enter":
				if m.Focused == len(m.Inputs) {
					m.State = stateSelecting
					return m, m.submitCommand()
				}
				m.Focused++
				if m.Focused > len(m.Inputs) {
					m.Focused = 0
				}
				m.updateFocus()
				return m, nil
			case "tab", "down":
				m.Focused++
				if m.Focused > len(m.Inputs) {
					m.Focused = 0
				}
				m.updateFocus()
				return m, nil
			case "shift+tab", "up":
				m.Focused--
				if m.Focused < 0 {
					m.Focused = len(m.Inputs)
				}
				m.updateFocus()
				return m, nil
			}
		}
		if m.Focused >= 0 && m.Focused < len(m.Inputs) {
			m.Inputs[m.Focused], cmd = m.Inputs[m.Focused].Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *CommandFormModel) updateFocus() {
	for i := range m.Inputs {
		if i == m.Focused {
			m.Inputs[i].Focus()
		} else {
			m.Inputs[i].Blur()
		}
	}
}

func (m CommandFormModel) renderButton(text string, focused bool) string {
	if focused {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("205")).Padding(0, 3).Bold(true).Render(text)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("254")).Background(lipgloss.Color("240")).Padding(0, 3).Render(text)
}

func (m CommandFormModel) View() string {
	if m.State == stateSelecting {
		return m.List.View()
	}

	cmd := availableCommands[m.SelectedCmd]
	var s string

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Render(fmt.Sprintf("Parameters: %s", cmd.Name))
	s += title + "\n\n"

	for i, field := range cmd.Fields {
		label := field.Name
		if field.Required {
			label += " *"
		}
		labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
		if i == m.Focused {
			labelStyle = labelStyle.Foreground(lipgloss.Color("205")).Bold(true)
		}
		s += labelStyle.Render(label) + "\n"
		s += m.Inputs[i].View() + "\n\n"
	}

	s += "\n" + m.renderButton("Submit", m.Focused == len(m.Inputs))
	s += "\n\n" + blurredStyle.Render("Esc: back to command list")

	return lipgloss.NewStyle().Padding(1, 2).Render(s)
}

func (m CommandFormModel) submitCommand() tea.Cmd {
	cmd := availableCommands[m.SelectedCmd]
	payload := buildFormPayload(cmd.Name, m.Inputs)
	return func() tea.Msg {
		sent, err := m.Client.Enqueue(m.AgentID, cmd.Name, payload)
		if err != nil {
			return errMsg(err)
		}
		return CommandSentMsg{Log: fmt.Sprintf("Queued %s (%s)", sent.Type, sent.CommandID)}
	}
}

func buildFormPayload(name string, inputs []textinput.Model) any {
	switch name {
	case "SET_SCHEDULE":
		return map[string]any{
			"enabled":   inputs[0].Value() == "true",
			"dailyTime": inputs[1].Value(),
		}
	case "FETCH_LOG":
		return map[string]any{"logName": inputs[0].Value()}
	case "SET_POLL_INTERVAL":
		seconds, _ := strconv.Atoi(inputs[0].Value())
		return map[string]any{"pollIntervalSeconds": seconds}
	}
	return nil
}
