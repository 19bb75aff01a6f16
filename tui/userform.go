package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chupakbra/authelia-admin-cli/internal/client"
	"github.com/chupakbra/authelia-admin-cli/internal/form"
)

type formField int

const (
	fieldUserID formField = iota
	fieldDisplayName
	fieldEmail
	fieldPassword
	fieldConfirm
	fieldDisabled
	fieldGroups
)

// errKeys maps fields to the keys used in form.Errors.
var errKeys = map[formField]string{
	fieldUserID:      "user_id",
	fieldDisplayName: "displayname",
	fieldEmail:       "email",
	fieldPassword:    "password",
	fieldConfirm:     "confirmPassword",
}

// formLoadedMsg is sent when the edit-mode prefetch of the user (and the
// group vocabulary) completes.
type formLoadedMsg struct {
	user   *client.User
	groups []string
	err    error
}

// vocabMsg carries the group vocabulary for a create-mode form. Fetch
// failures are ignored; the seed vocabulary still works.
type vocabMsg struct {
	groups []string
	err    error
}

// formSavedMsg is sent when the create/update call completes.
type formSavedMsg struct {
	user *client.User
	err  error
}

// userFormModel is the create/edit form screen. It owns the FormState
// until save or cancel and never touches the list's collection.
type userFormModel struct {
	api      client.API
	instName string
	mode     form.Mode
	userID   string // edit target; immutable once created

	inputs   [5]textinput.Model // indexed by formField for the text fields
	disabled bool
	groups   groupInput
	fields   []formField // focus order for this mode
	focus    int

	errs    form.Errors
	busy    bool // submit in flight; suppresses duplicate submits
	loading bool // edit-mode prefetch in flight
	loadErr error
	spinner spinner.Model

	width  int
	height int
}

func newUserFormModel(api client.API, instName string, mode form.Mode, userID string, w, h int) userFormModel {
	s := spinner.New()
	s.Spinner = ConsoleSpinner
	s.Style = StyleSpinner

	placeholders := [5]string{
		"username (letters, numbers, _ or -)",
		"Display name",
		"user@example.com",
		"Password",
		"Confirm password",
	}
	var inputs [5]textinput.Model
	for i := range inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 256
		if i == int(fieldPassword) || i == int(fieldConfirm) {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		inputs[i] = ti
	}
	if mode == form.Edit {
		inputs[fieldPassword].Placeholder = "Leave blank to keep current password"
	}

	fields := []formField{fieldUserID, fieldDisplayName, fieldEmail, fieldPassword, fieldConfirm, fieldDisabled, fieldGroups}
	if mode == form.Edit {
		fields = fields[1:] // user_id is display-only after creation
	}

	m := userFormModel{
		api:      api,
		instName: instName,
		mode:     mode,
		userID:   userID,
		inputs:   inputs,
		groups:   newGroupInput(),
		fields:   fields,
		errs:     form.Errors{},
		loading:  mode == form.Edit,
		spinner:  s,
		width:    w,
		height:   h,
	}
	if mode == form.Create {
		m.inputs[fieldUserID].Focus()
	}
	return m
}

func (m userFormModel) init() tea.Cmd {
	if m.mode == form.Edit {
		return tea.Batch(loadFormCmd(m.api, m.userID), m.spinner.Tick, textinput.Blink)
	}
	return tea.Batch(fetchVocabCmd(m.api), textinput.Blink)
}

func (m userFormModel) currentField() formField {
	return m.fields[m.focus]
}

// setFocus moves focus to the field at index i in the focus order.
func (m userFormModel) setFocus(i int) (userFormModel, tea.Cmd) {
	if i < 0 {
		i = 0
	}
	if i >= len(m.fields) {
		i = len(m.fields) - 1
	}
	for idx := range m.inputs {
		m.inputs[idx].Blur()
	}
	m.groups.input.Blur()
	m.focus = i

	f := m.currentField()
	switch f {
	case fieldDisabled:
		return m, nil
	case fieldGroups:
		return m, m.groups.input.Focus()
	default:
		return m, m.inputs[f].Focus()
	}
}

// state assembles the FormState from the widgets.
func (m userFormModel) state() form.State {
	return form.State{
		UserID:          strings.TrimSpace(m.inputs[fieldUserID].Value()),
		DisplayName:     m.inputs[fieldDisplayName].Value(),
		Email:           m.inputs[fieldEmail].Value(),
		Password:        m.inputs[fieldPassword].Value(),
		ConfirmPassword: m.inputs[fieldConfirm].Value(),
		Disabled:        m.disabled,
		Groups:          m.groups.committed,
	}
}

// submit validates and, if clean, fires the create/update call. Field
// errors abort before any network traffic. A submit already in flight
// makes this a no-op.
func (m userFormModel) submit() (userFormModel, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	st := m.state()
	m.errs = form.Validate(st, m.mode)
	if form.HasErrors(m.errs) {
		return m, nil
	}

	m.busy = true
	input := st.Input(m.mode)
	api, mode, userID := m.api, m.mode, m.userID
	if mode == form.Create {
		userID = st.UserID
	}
	save := func() tea.Msg {
		var (
			u   *client.User
			err error
		)
		if mode == form.Create {
			u, err = api.CreateUser(context.Background(), input)
		} else {
			u, err = api.UpdateUser(context.Background(), userID, input)
		}
		return formSavedMsg{user: u, err: err}
	}
	return m, tea.Batch(save, m.spinner.Tick)
}

func (m userFormModel) update(msg tea.Msg) (userFormModel, tea.Cmd) {
	switch msg := msg.(type) {
	case formLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.loadErr = msg.err
			return m, nil
		}
		st := form.StateFromUser(*msg.user)
		m.inputs[fieldDisplayName].SetValue(st.DisplayName)
		m.inputs[fieldEmail].SetValue(st.Email)
		m.disabled = st.Disabled
		m.groups = m.groups.withSelection(st.Groups).withVocabulary(msg.groups)
		return m.setFocus(0)

	case vocabMsg:
		if msg.err == nil {
			m.groups = m.groups.withVocabulary(msg.groups)
		}
		return m, nil

	case formSavedMsg:
		m.busy = false
		if msg.err != nil {
			// Leave the form open for retry; the password fields keep
			// their text so nothing needs retyping.
			m.errs["submit"] = msg.err.Error()
			return m, nil
		}
		saved := *msg.user
		return m, func() tea.Msg { return userSavedMsg{user: saved} }

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.busy || m.loading {
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.busy {
			return m, nil
		}
		if m.loading {
			if msg.String() == "esc" {
				return m, cancelFormCmd
			}
			return m, nil
		}
		if m.loadErr != nil {
			switch msg.String() {
			case "ctrl+r":
				m.loadErr = nil
				m.loading = true
				return m, tea.Batch(loadFormCmd(m.api, m.userID), m.spinner.Tick)
			case "esc":
				return m, cancelFormCmd
			}
			return m, nil
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m userFormModel) updateKey(msg tea.KeyMsg) (userFormModel, tea.Cmd) {
	f := m.currentField()

	switch msg.String() {
	case "ctrl+s":
		return m.submit()
	case "esc":
		if f == fieldGroups && m.groups.open {
			var cmd tea.Cmd
			m.groups, cmd = m.groups.handleKey(msg)
			return m, cmd
		}
		return m, cancelFormCmd
	case "up", "shift+tab":
		return m.setFocus(m.focus - 1)
	case "down":
		return m.setFocus(m.focus + 1)
	}

	switch f {
	case fieldDisabled:
		switch msg.String() {
		case " ", "space":
			m.disabled = !m.disabled
			return m, nil
		case "enter", "tab":
			return m.setFocus(m.focus + 1)
		}
		return m, nil

	case fieldGroups:
		if msg.String() == "enter" && strings.TrimSpace(m.groups.input.Value()) == "" {
			// Last field; an empty draft means the operator is done.
			return m.submit()
		}
		var cmd tea.Cmd
		m.groups, cmd = m.groups.handleKey(msg)
		return m, cmd

	default:
		switch msg.String() {
		case "enter", "tab":
			return m.setFocus(m.focus + 1)
		}
		var cmd tea.Cmd
		m.inputs[f], cmd = m.inputs[f].Update(msg)
		return m, cmd
	}
}

func (m userFormModel) view() string {
	if m.width == 0 {
		return ""
	}

	title := StyleTitle.Render(fmt.Sprintf("Create User — %s", m.instName))
	if m.mode == form.Edit {
		title = StyleTitle.Render(fmt.Sprintf("Edit User %s — %s", m.userID, m.instName))
	}

	if m.loading {
		return lipgloss.NewStyle().Padding(1, 2).Render(
			title + "\n\n" + StyleWarning.Render(m.spinner.View()+" Loading user..."),
		)
	}
	if m.loadErr != nil {
		lines := []string{
			title,
			"",
			StyleError.Render("Error: " + m.loadErr.Error()),
			"",
			StyleHelp.Render("[ctrl+r] retry   [Esc] back"),
		}
		return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
	}

	lines := []string{title, ""}

	if m.mode == form.Edit {
		lines = append(lines, StyleDim.Render(fmt.Sprintf("  %-14s", "Username:"))+m.userID)
	}

	for _, f := range m.fields {
		label := fmt.Sprintf("  %-14s", fieldLabel(f))
		styledLabel := StyleDim.Render(label)
		if f == m.currentField() {
			styledLabel = StyleWarning.Render(label)
		}

		switch f {
		case fieldDisabled:
			box := "[ ]"
			if m.disabled {
				box = "[x]"
			}
			lines = append(lines, styledLabel+box+StyleDim.Render(" (space to toggle)"))
		case fieldGroups:
			body := m.groups.view()
			indented := strings.Split(body, "\n")
			lines = append(lines, styledLabel+indented[0])
			for _, l := range indented[1:] {
				lines = append(lines, strings.Repeat(" ", 16)+l)
			}
		default:
			lines = append(lines, styledLabel+m.inputs[f].View())
		}

		if key, ok := errKeys[f]; ok {
			if msg, bad := m.errs[key]; bad {
				lines = append(lines, strings.Repeat(" ", 16)+StyleError.Render(msg))
			}
		}
	}

	lines = append(lines, "")
	switch {
	case m.busy:
		lines = append(lines, StyleWarning.Render(m.spinner.View()+" Saving..."))
	case m.errs["submit"] != "":
		lines = append(lines, StyleError.Render("Save failed: "+m.errs["submit"]))
	default:
		lines = append(lines, "")
	}
	lines = append(lines, StyleHelp.Render("[Ctrl+S] save   [Enter] next field   [Tab] complete group   [Esc] cancel"))

	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

func fieldLabel(f formField) string {
	switch f {
	case fieldUserID:
		return "Username:"
	case fieldDisplayName:
		return "Display name:"
	case fieldEmail:
		return "Email:"
	case fieldPassword:
		return "Password:"
	case fieldConfirm:
		return "Confirm:"
	case fieldDisabled:
		return "Disabled:"
	case fieldGroups:
		return "Groups:"
	}
	return ""
}

func cancelFormCmd() tea.Msg {
	return formCancelledMsg{}
}

// loadFormCmd fetches the user being edited plus the group vocabulary.
// A vocabulary failure is not fatal; the form falls back to the seeds.
func loadFormCmd(api client.API, userID string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		u, err := api.GetUser(ctx, userID)
		if err != nil {
			return formLoadedMsg{err: err}
		}
		groups, err := api.ListGroups(ctx)
		if err != nil {
			groups = nil
		}
		return formLoadedMsg{user: u, groups: groups}
	}
}

func fetchVocabCmd(api client.API) tea.Cmd {
	return func() tea.Msg {
		groups, err := api.ListGroups(context.Background())
		return vocabMsg{groups: groups, err: err}
	}
}
