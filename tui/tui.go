// Package tui implements the interactive terminal console for managing
// Authelia user accounts.
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chupakbra/authelia-admin-cli/internal/client"
	"github.com/chupakbra/authelia-admin-cli/internal/form"
)

type screen int

const (
	screenUsers screen = iota // user list
	screenForm                // create/edit form
)

// openCreateMsg is sent by the list when the operator starts creating a user.
type openCreateMsg struct{}

// openEditMsg is sent by the list when the operator starts editing a user.
type openEditMsg struct {
	userID string
}

func openEditCmd(userID string) tea.Cmd {
	return func() tea.Msg {
		return openEditMsg{userID: userID}
	}
}

// userSavedMsg is sent by the form when a create/update succeeded.
type userSavedMsg struct {
	user client.User
}

// formCancelledMsg is sent by the form when the operator backs out.
type formCancelledMsg struct{}

// appModel is the top-level Bubble Tea model acting as a screen router.
// Messages are only delivered to the active screen, so a response that
// arrives after its screen was torn down is discarded instead of mutating
// state with no live owner.
type appModel struct {
	api      client.API
	instName string
	screen   screen
	width    int
	height   int
	users    usersModel
	form     userFormModel
}

func newAppModel(api client.API, instName string) appModel {
	return appModel{
		api:      api,
		instName: instName,
		screen:   screenUsers,
		users:    newUsersModel(api, instName, 0, 0),
	}
}

func (a appModel) Init() tea.Cmd {
	return a.users.init()
}

func (a appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle router-level messages first.
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.users.width = msg.Width
		a.users.height = msg.Height
		a.form.width = msg.Width
		a.form.height = msg.Height
		if !a.users.loading && len(a.users.users) > 0 {
			a.users = a.users.withRebuiltTable()
		}
		return a, nil

	case openCreateMsg:
		a.screen = screenForm
		a.form = newUserFormModel(a.api, a.instName, form.Create, "", a.width, a.height)
		return a, a.form.init()

	case openEditMsg:
		a.screen = screenForm
		a.form = newUserFormModel(a.api, a.instName, form.Edit, msg.userID, a.width, a.height)
		return a, a.form.init()

	case userSavedMsg:
		a.screen = screenUsers
		a.form = userFormModel{} // drop the form state, passwords included
		a.users.statusMsg = fmt.Sprintf("User %q saved", msg.user.UserID)
		a.users.statusErr = false
		var cmd tea.Cmd
		a.users, cmd = a.users.refresh()
		return a, cmd

	case formCancelledMsg:
		a.screen = screenUsers
		a.form = userFormModel{}
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit

		case "Q":
			// Let 'Q' pass through when a sub-model is in a non-normal
			// mode or a text input has focus.
			if a.screen == screenForm {
				break
			}
			if a.users.mode != usersNormal || a.users.filter.active {
				break
			}
			return a, tea.Quit

		case "esc":
			if a.screen == screenUsers && a.users.mode == usersNormal && !a.users.filter.active {
				return a, tea.Quit
			}
			// Sub-models handle Esc for dialog/filter/form dismissal.
		}
	}

	// Delegate all other messages to the active screen.
	var cmd tea.Cmd
	switch a.screen {
	case screenUsers:
		a.users, cmd = a.users.update(msg)
	case screenForm:
		a.form, cmd = a.form.update(msg)
	}
	return a, cmd
}

func (a appModel) View() string {
	switch a.screen {
	case screenUsers:
		return a.users.view()
	case screenForm:
		return a.form.view()
	}
	return ""
}

// Launch starts the Bubble Tea program against the given API and blocks
// until the user quits.
func Launch(api client.API, instName string) error {
	m := newAppModel(api, instName)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
