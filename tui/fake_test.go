package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chupakbra/authelia-admin-cli/internal/client"
)

// fakeAPI implements client.API with per-method hooks. Unset hooks
// return zero values so tests only wire what they exercise.
type fakeAPI struct {
	listUsers  func(context.Context) ([]client.User, error)
	getUser    func(context.Context, string) (*client.User, error)
	createUser func(context.Context, client.UserInput) (*client.User, error)
	updateUser func(context.Context, string, client.UserInput) (*client.User, error)
	deleteUser func(context.Context, string) error
	listGroups func(context.Context) ([]string, error)
}

var _ client.API = (*fakeAPI)(nil)

func (f *fakeAPI) ListUsers(ctx context.Context) ([]client.User, error) {
	if f.listUsers == nil {
		return nil, nil
	}
	return f.listUsers(ctx)
}

func (f *fakeAPI) GetUser(ctx context.Context, userID string) (*client.User, error) {
	if f.getUser == nil {
		return &client.User{UserID: userID}, nil
	}
	return f.getUser(ctx, userID)
}

func (f *fakeAPI) CreateUser(ctx context.Context, input client.UserInput) (*client.User, error) {
	if f.createUser == nil {
		return &client.User{UserID: input.UserID}, nil
	}
	return f.createUser(ctx, input)
}

func (f *fakeAPI) UpdateUser(ctx context.Context, userID string, partial client.UserInput) (*client.User, error) {
	if f.updateUser == nil {
		return &client.User{UserID: userID}, nil
	}
	return f.updateUser(ctx, userID, partial)
}

func (f *fakeAPI) DeleteUser(ctx context.Context, userID string) error {
	if f.deleteUser == nil {
		return nil
	}
	return f.deleteUser(ctx, userID)
}

func (f *fakeAPI) ListGroups(ctx context.Context) ([]string, error) {
	if f.listGroups == nil {
		return nil, nil
	}
	return f.listGroups(ctx)
}

// keyMsg builds a KeyMsg from the strings used in update switch cases.
func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+r":
		return tea.KeyMsg{Type: tea.KeyCtrlR}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

// collectMsgs runs a command (flattening batches) and returns every
// message it produces.
func collectMsgs(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collectMsgs(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// findMsg returns the first message of type T produced by cmd, or the
// zero value with ok=false.
func findUserActionMsg(msgs []tea.Msg) (userActionMsg, bool) {
	for _, m := range msgs {
		if am, ok := m.(userActionMsg); ok {
			return am, true
		}
	}
	return userActionMsg{}, false
}

func findFormSavedMsg(msgs []tea.Msg) (formSavedMsg, bool) {
	for _, m := range msgs {
		if fm, ok := m.(formSavedMsg); ok {
			return fm, true
		}
	}
	return formSavedMsg{}, false
}
