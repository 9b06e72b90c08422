package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/alarmdesk/console/internal/login"
)

const (
	fieldUsername = iota
	fieldPassword
	fieldCount
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")).MarginBottom(1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	busyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 2)
)

// submitResultMsg carries the outcome of a login attempt back into Update.
type submitResultMsg login.Result

// LoginModel is the credential form: two bound fields, a submit trigger,
// a busy indicator, and an error line. Submission is blocked while a
// request is outstanding.
type LoginModel struct {
	flow   *login.Flow
	inputs [fieldCount]textinput.Model
	focus  int
	spin   spinner.Model

	busy      bool
	fieldErrs login.FieldErrors
	errMsg    string
	done      bool
}

func NewLoginModel(flow *login.Flow) LoginModel {
	username := textinput.New()
	username.Placeholder = "username"
	username.CharLimit = 64
	username.Width = 32
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.Width = 32
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return LoginModel{
		flow:   flow,
		inputs: [fieldCount]textinput.Model{username, password},
		spin:   sp,
	}
}

// Done reports whether login succeeded and the form exited.
func (m LoginModel) Done() bool { return m.done }

func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit

		case "tab", "down":
			if !m.busy {
				m.setFocus((m.focus + 1) % fieldCount)
			}
			return m, nil

		case "shift+tab", "up":
			if !m.busy {
				m.setFocus((m.focus + fieldCount - 1) % fieldCount)
			}
			return m, nil

		case "enter":
			return m.submit(login.Credentials{
				Username: m.inputs[fieldUsername].Value(),
				Password: m.inputs[fieldPassword].Value(),
			})

		case "f2":
			// Quick login: pre-fill the demo credentials, then run the
			// exact same validate→submit path as manual entry.
			creds := login.QuickLogin()
			m.inputs[fieldUsername].SetValue(creds.Username)
			m.inputs[fieldPassword].SetValue(creds.Password)
			return m.submit(creds)
		}

	case spinner.TickMsg:
		if m.busy {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil

	case submitResultMsg:
		m.busy = false
		res := login.Result(msg)
		m.fieldErrs = res.FieldErrors

		switch {
		case res.State == login.StateRedirected:
			m.done = true
			return m, tea.Quit
		case errors.Is(res.Err, login.ErrInFlight):
			// Ignore; the outstanding attempt will report.
		case errors.Is(res.Err, login.ErrInvalidCredentials):
			m.errMsg = "wrong username or password"
		case res.Err != nil:
			m.errMsg = "login failed, try again later"
		}
		return m, nil
	}

	if m.busy {
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m LoginModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Alarm Analysis Console — Sign In"))
	b.WriteString("\n")

	labels := [fieldCount]string{"Username", "Password"}
	fieldErrs := [fieldCount]string{m.fieldErrs.Username, m.fieldErrs.Password}
	for i := 0; i < fieldCount; i++ {
		b.WriteString(labelStyle.Render(labels[i]))
		b.WriteString(m.inputs[i].View())
		if fieldErrs[i] != "" {
			b.WriteString("  " + errStyle.Render(fieldErrs[i]))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString(busyStyle.Render(m.spin.View() + " signing in..."))
	case m.errMsg != "":
		b.WriteString(errStyle.Render(m.errMsg))
	}

	b.WriteString(helpStyle.Render("\nenter submit · f2 quick login · esc quit"))

	return boxStyle.Render(b.String())
}

func (m LoginModel) submit(creds login.Credentials) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	// Field errors surface immediately; invalid input never leaves the form.
	if fe := login.Validate(creds); !fe.Empty() {
		m.fieldErrs = fe
		m.errMsg = ""
		return m, nil
	}

	m.busy = true
	m.errMsg = ""
	m.fieldErrs = login.FieldErrors{}
	return m, tea.Batch(m.spin.Tick, submitCmd(m.flow, creds))
}

func (m *LoginModel) setFocus(i int) {
	m.inputs[m.focus].Blur()
	m.focus = i
	m.inputs[m.focus].Focus()
}

func submitCmd(flow *login.Flow, creds login.Credentials) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return submitResultMsg(flow.Submit(ctx, creds))
	}
}
