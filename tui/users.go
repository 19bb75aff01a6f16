package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chupakbra/authelia-admin-cli/internal/client"
)

type usersMode int

const (
	usersNormal        usersMode = iota
	usersMenu                    // per-row action menu open
	usersConfirmDel              // confirm user deletion
	usersConfirmToggle           // confirm enable/disable
)

type rowOp int

const (
	opDelete rowOp = iota
	opToggle
)

// usersFetchedMsg is sent when the async fetch of users completes.
type usersFetchedMsg struct {
	users   []client.User
	err     error
	fetchID int64 // matches usersModel.fetchID; stale responses are discarded
}

// userActionMsg reports the outcome of a row-scoped mutation. Results are
// keyed by userID so completions arriving out of order cannot touch
// unrelated rows.
type userActionMsg struct {
	userID string
	op     rowOp
	user   *client.User // server representation after a successful toggle
	err    error
}

// usersModel is the user list screen. It is the single writer of the
// in-memory user collection.
type usersModel struct {
	api      client.API
	instName string
	users    []client.User
	visible  []client.User // users matching the filter, in table order
	loading  bool
	err      error  // load failure with nothing to show (dedicated error state)
	banner   string // page-level error shown above a populated table
	table    table.Model
	spinner  spinner.Model
	filter   tableFilter
	mode     usersMode
	fetchID  int64

	// acting marks rows with a mutation in flight. A second action on the
	// same row is ignored until the first resolves; other rows are
	// unaffected.
	acting map[string]bool

	// dialogUser is the row the open action menu or confirmation refers
	// to. A single slot, so opening a menu on one row closes any other.
	dialogUser client.User

	statusMsg     string
	statusErr     bool
	lastRefreshed time.Time

	width  int
	height int
}

func newUsersModel(api client.API, instName string, w, h int) usersModel {
	s := spinner.New()
	s.Spinner = ConsoleSpinner
	s.Style = StyleSpinner

	return usersModel{
		api:      api,
		instName: instName,
		loading:  true,
		spinner:  s,
		fetchID:  time.Now().UnixNano(),
		acting:   map[string]bool{},
		width:    w,
		height:   h,
	}
}

// fixedUsersColWidth: DISPLAY NAME(20)+EMAIL(28)+GROUPS(24)+STATUS(10) = 82 + separators ~10 = 92
const fixedUsersColWidth = 82 + 10

func (m usersModel) userIDColWidth() int {
	w := m.width - fixedUsersColWidth - 4
	if w < 12 {
		w = 12
	}
	return w
}

func (m usersModel) withRebuiltTable() usersModel {
	cols := []table.Column{
		{Title: "USERNAME", Width: m.userIDColWidth()},
		{Title: "DISPLAY NAME", Width: 20},
		{Title: "EMAIL", Width: 28},
		{Title: "GROUPS", Width: 24},
		{Title: "STATUS", Width: 10},
	}

	m.visible = m.visible[:0]
	var rows []table.Row
	for _, u := range m.users {
		groups := strings.Join(u.Groups, ", ")
		if !m.filter.matches(u.UserID, u.DisplayName, u.Email, groups) {
			continue
		}
		m.visible = append(m.visible, u)
		if groups == "" {
			groups = "-"
		}
		status := "active"
		switch {
		case m.acting[u.UserID]:
			status = "working"
		case u.Disabled:
			status = "disabled"
		}
		rows = append(rows, table.Row{u.UserID, u.DisplayName, u.Email, groups, status})
	}

	tableHeight := m.height - 9 // padding(2) + title(1) + blank(1) + status(1) + help(2) + table border(2)
	if tableHeight < 3 {
		tableHeight = 3
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(tableHeight),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("255")).
		Background(lipgloss.Color("236")).
		Bold(false)
	t.SetStyles(s)

	cursor := m.table.Cursor()
	if cursor >= 0 && cursor < len(rows) {
		t.SetCursor(cursor)
	}
	m.table = t
	return m
}

func (m usersModel) init() tea.Cmd {
	return tea.Batch(fetchUsers(m.api, m.fetchID), m.spinner.Tick)
}

// refresh starts a new list fetch, invalidating any in-flight one.
func (m usersModel) refresh() (usersModel, tea.Cmd) {
	m.loading = true
	m.err = nil
	m.fetchID = time.Now().UnixNano()
	return m, tea.Batch(fetchUsers(m.api, m.fetchID), m.spinner.Tick)
}

func (m usersModel) selectedUser() (client.User, bool) {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.visible) {
		return client.User{}, false
	}
	return m.visible[cursor], true
}

func (m usersModel) update(msg tea.Msg) (usersModel, tea.Cmd) {
	switch msg := msg.(type) {
	case usersFetchedMsg:
		if msg.fetchID != m.fetchID {
			return m, nil // stale response from a previous fetch; discard
		}
		m.loading = false
		if msg.err != nil {
			// Keep whatever is already on screen; a failed refresh must
			// not blank a populated list.
			if len(m.users) > 0 {
				m.banner = "Failed to load users: " + msg.err.Error()
			} else {
				m.err = msg.err
			}
			return m, nil
		}
		m.err = nil
		m.banner = ""
		m.users = msg.users
		m.lastRefreshed = time.Now()
		return m.withRebuiltTable(), nil

	case userActionMsg:
		delete(m.acting, msg.userID)
		if msg.err != nil {
			// The row stays as it was; no speculative mutation to undo.
			verb := "delete"
			if msg.op == opToggle {
				verb = "update"
			}
			m.banner = fmt.Sprintf("Failed to %s user %q: %s", verb, msg.userID, msg.err)
			return m.withRebuiltTable(), nil
		}
		switch msg.op {
		case opDelete:
			m.users = removeUser(m.users, msg.userID)
			m.statusMsg = fmt.Sprintf("User %q deleted", msg.userID)
			m.statusErr = false
		case opToggle:
			// Take the server's representation, not a local flip, so any
			// other server-side changes come along.
			if msg.user != nil {
				m.users = replaceUser(m.users, *msg.user)
			}
			m.statusMsg = fmt.Sprintf("User %q updated", msg.userID)
			m.statusErr = false
		}
		return m.withRebuiltTable(), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading || len(m.acting) > 0 {
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.filter.active {
			var rebuild bool
			m.filter, rebuild = m.filter.handleKey(msg)
			if rebuild {
				m = m.withRebuiltTable()
			}
			return m, nil
		}

		switch m.mode {
		case usersMenu:
			return m.updateMenu(msg)
		case usersConfirmDel, usersConfirmToggle:
			return m.updateConfirm(msg)
		}

		// Normal mode.
		switch msg.String() {
		case "enter":
			if u, ok := m.selectedUser(); ok {
				return m.openMenu(u), nil
			}
		case "a":
			return m, func() tea.Msg { return openCreateMsg{} }
		case "e":
			if u, ok := m.selectedUser(); ok {
				return m, openEditCmd(u.UserID)
			}
		case "d":
			if u, ok := m.selectedUser(); ok {
				return m.requestDelete(u), nil
			}
		case "t":
			if u, ok := m.selectedUser(); ok {
				return m.requestToggle(u), nil
			}
		case "x":
			m.banner = ""
			return m, nil
		case "/":
			m.filter.active = true
			m.statusMsg = ""
			return m, nil
		case "ctrl+r":
			return m.refresh()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// openMenu opens the action menu for u. A row with an action in flight
// does not get a menu; any menu open on another row is replaced.
func (m usersModel) openMenu(u client.User) usersModel {
	if m.acting[u.UserID] {
		return m
	}
	m.mode = usersMenu
	m.dialogUser = u
	m.statusMsg = ""
	return m
}

// requestDelete opens the delete confirmation for u unless an action is
// already in flight on that row.
func (m usersModel) requestDelete(u client.User) usersModel {
	if m.acting[u.UserID] {
		return m
	}
	m.mode = usersConfirmDel
	m.dialogUser = u
	return m
}

// requestToggle opens the enable/disable confirmation for u.
func (m usersModel) requestToggle(u client.User) usersModel {
	if m.acting[u.UserID] {
		return m
	}
	m.mode = usersConfirmToggle
	m.dialogUser = u
	return m
}

func (m usersModel) updateMenu(msg tea.KeyMsg) (usersModel, tea.Cmd) {
	switch msg.String() {
	case "e":
		m.mode = usersNormal
		return m, openEditCmd(m.dialogUser.UserID)
	case "t":
		m.mode = usersNormal
		return m.requestToggle(m.dialogUser), nil
	case "d":
		m.mode = usersNormal
		return m.requestDelete(m.dialogUser), nil
	case "esc":
		m.mode = usersNormal
		return m, nil
	}
	return m, nil
}

func (m usersModel) updateConfirm(msg tea.KeyMsg) (usersModel, tea.Cmd) {
	switch msg.String() {
	case "enter":
		// The dialog closes now; the collection only changes once the
		// server confirms.
		mode := m.mode
		u := m.dialogUser
		m.mode = usersNormal
		if m.acting[u.UserID] {
			return m, nil
		}
		m.acting[u.UserID] = true
		m = m.withRebuiltTable()
		if mode == usersConfirmDel {
			return m, tea.Batch(deleteUserCmd(m.api, u.UserID), m.spinner.Tick)
		}
		return m, tea.Batch(toggleUserCmd(m.api, u.UserID, !u.Disabled), m.spinner.Tick)
	case "esc":
		m.mode = usersNormal
		return m, nil
	}
	return m, nil
}

func (m usersModel) view() string {
	if m.width == 0 {
		return ""
	}

	title := StyleTitle.Render(fmt.Sprintf("Authelia Users — %s", m.instName))

	if m.loading && len(m.users) == 0 {
		return lipgloss.NewStyle().Padding(1, 2).Render(
			title + "\n\n" + StyleWarning.Render(m.spinner.View()+" Loading users..."),
		)
	}

	if m.err != nil && len(m.users) == 0 {
		lines := []string{
			title,
			"",
			StyleError.Render("Error: " + m.err.Error()),
			"",
			StyleHelp.Render("[ctrl+r] retry"),
			StyleHelp.Render("[Q] quit"),
		}
		return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
	}

	if len(m.users) == 0 {
		lines := []string{
			title,
			"",
			StyleDim.Render("No users found. Press 'a' to create the first one."),
			"",
			StyleHelp.Render("[a] create   [ctrl+r] refresh   [Q] quit"),
		}
		return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
	}

	nDisabled := 0
	for _, u := range m.users {
		if u.Disabled {
			nDisabled++
		}
	}
	count := StyleDim.Render(" (") + StyleActive.Render(fmt.Sprintf("%d active", len(m.users)-nDisabled))
	if nDisabled > 0 {
		count += StyleDim.Render(", ") + StyleDisabled.Render(fmt.Sprintf("%d disabled", nDisabled))
	}
	count += StyleDim.Render(")")

	var lines []string
	lines = append(lines, headerLine(title+count, m.width, m.lastRefreshed))
	if m.banner != "" {
		lines = append(lines, StyleError.Render(m.banner)+StyleHelp.Render("   [x] dismiss"))
	} else {
		lines = append(lines, "")
	}
	lines = append(lines, m.table.View())

	if fl := m.filter.renderLine(); fl != "" {
		lines = append(lines, fl)
	}

	switch m.mode {
	case usersMenu:
		lines = append(lines, "")
		lines = append(lines, StyleWarning.Render(fmt.Sprintf("%s:", m.dialogUser.UserID))+
			renderHelp("  [e] edit   [t] "+toggleVerb(m.dialogUser)+"   [d] delete   [Esc] close"))
	case usersConfirmDel:
		lines = append(lines, "")
		lines = append(lines, StyleWarning.Render(fmt.Sprintf(
			"Delete user %q? This cannot be undone. [Enter] confirm   [Esc] cancel", m.dialogUser.UserID)))
	case usersConfirmToggle:
		lines = append(lines, "")
		label := "Disable"
		note := "They will not be able to log in until re-enabled."
		if m.dialogUser.Disabled {
			label = "Enable"
			note = "They will be able to log in again."
		}
		lines = append(lines, StyleWarning.Render(fmt.Sprintf(
			"%s user %q? %s [Enter] confirm   [Esc] cancel",
			label, m.dialogUser.UserID, note)))
	default:
		if m.loading {
			lines = append(lines, StyleWarning.Render(m.spinner.View()+" Refreshing..."))
		} else if m.statusMsg != "" && m.statusErr {
			lines = append(lines, StyleError.Render(m.statusMsg))
		} else if m.statusMsg != "" {
			lines = append(lines, StyleSuccess.Render(m.statusMsg))
		} else {
			lines = append(lines, "")
		}
		lines = append(lines, StyleHelp.Render("[Enter] actions   [a] create   [e] edit   [t] enable/disable   [d] delete"))
		lines = append(lines, StyleHelp.Render("[/] filter   [ctrl+r] refresh   [Q] quit"))
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(strings.Join(lines, "\n"))
}

func toggleVerb(u client.User) string {
	if u.Disabled {
		return "enable"
	}
	return "disable"
}

func removeUser(users []client.User, userID string) []client.User {
	out := make([]client.User, 0, len(users))
	for _, u := range users {
		if u.UserID != userID {
			out = append(out, u)
		}
	}
	return out
}

func replaceUser(users []client.User, updated client.User) []client.User {
	out := make([]client.User, len(users))
	for i, u := range users {
		if u.UserID == updated.UserID {
			out[i] = updated
		} else {
			out[i] = u
		}
	}
	return out
}

func fetchUsers(api client.API, fetchID int64) tea.Cmd {
	return func() tea.Msg {
		users, err := api.ListUsers(context.Background())
		return usersFetchedMsg{users: users, err: err, fetchID: fetchID}
	}
}

func deleteUserCmd(api client.API, userID string) tea.Cmd {
	return func() tea.Msg {
		err := api.DeleteUser(context.Background(), userID)
		return userActionMsg{userID: userID, op: opDelete, err: err}
	}
}

func toggleUserCmd(api client.API, userID string, disabled bool) tea.Cmd {
	return func() tea.Msg {
		u, err := api.UpdateUser(context.Background(), userID, client.UserInput{Disabled: &disabled})
		return userActionMsg{userID: userID, op: opToggle, user: u, err: err}
	}
}
