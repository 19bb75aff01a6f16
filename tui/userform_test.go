package tui

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chupakbra/authelia-admin-cli/internal/client"
	"github.com/chupakbra/authelia-admin-cli/internal/form"
)

func fillCreateForm(m userFormModel) userFormModel {
	m.inputs[fieldUserID].SetValue("alice")
	m.inputs[fieldDisplayName].SetValue("Alice A")
	m.inputs[fieldEmail].SetValue("alice@example.com")
	m.inputs[fieldPassword].SetValue("s3cret-pw")
	m.inputs[fieldConfirm].SetValue("s3cret-pw")
	return m
}

func TestFormValidationBlocksNetwork(t *testing.T) {
	calls := 0
	api := &fakeAPI{createUser: func(context.Context, client.UserInput) (*client.User, error) {
		calls++
		return nil, nil
	}}
	m := newUserFormModel(api, "test", form.Create, "", 120, 40)

	m, cmd := m.submit()

	assert.Nil(t, cmd)
	assert.Zero(t, calls)
	assert.False(t, m.busy)
	assert.True(t, form.HasErrors(m.errs))
	assert.Contains(t, m.errs, "user_id")
	assert.Contains(t, m.errs, "displayname")
	assert.Contains(t, m.errs, "email")
	assert.Contains(t, m.errs, "password")
}

func TestFormMismatchIsOnlyError(t *testing.T) {
	m := newUserFormModel(&fakeAPI{}, "test", form.Create, "", 120, 40)
	m = fillCreateForm(m)
	m.inputs[fieldPassword].SetValue("x")
	m.inputs[fieldConfirm].SetValue("y")

	m, cmd := m.submit()

	assert.Nil(t, cmd)
	require.Len(t, m.errs, 1)
	assert.Contains(t, m.errs, "confirmPassword")
}

func TestFormCreateSubmit(t *testing.T) {
	var got client.UserInput
	api := &fakeAPI{createUser: func(_ context.Context, input client.UserInput) (*client.User, error) {
		got = input
		return &client.User{UserID: input.UserID, DisplayName: *input.DisplayName}, nil
	}}
	m := newUserFormModel(api, "test", form.Create, "", 120, 40)
	m = fillCreateForm(m)
	m.groups, _ = m.groups.add("Admins")

	m, cmd := m.update(keyMsg("ctrl+s"))
	require.True(t, m.busy)

	saved, ok := findFormSavedMsg(collectMsgs(cmd))
	require.True(t, ok)
	require.NoError(t, saved.err)

	assert.Equal(t, "alice", got.UserID)
	require.NotNil(t, got.DisplayName)
	assert.Equal(t, "Alice A", *got.DisplayName)
	require.NotNil(t, got.Password)
	assert.Equal(t, "s3cret-pw", *got.Password)
	require.NotNil(t, got.Groups)
	assert.Equal(t, []string{"admins"}, *got.Groups)

	m, cmd2 := m.update(saved)
	assert.False(t, m.busy)
	require.NotNil(t, cmd2)
	done, ok := cmd2().(userSavedMsg)
	require.True(t, ok)
	assert.Equal(t, "alice", done.user.UserID)
}

func TestFormBusySuppressesDuplicateSubmit(t *testing.T) {
	calls := 0
	api := &fakeAPI{createUser: func(context.Context, client.UserInput) (*client.User, error) {
		calls++
		return &client.User{UserID: "alice"}, nil
	}}
	m := newUserFormModel(api, "test", form.Create, "", 120, 40)
	m = fillCreateForm(m)

	m, cmd1 := m.submit()
	require.True(t, m.busy)
	m, cmd2 := m.submit()
	assert.Nil(t, cmd2)

	// Keys are swallowed while a save is in flight.
	m, cmd3 := m.update(keyMsg("ctrl+s"))
	assert.Nil(t, cmd3)

	collectMsgs(cmd1)
	assert.Equal(t, 1, calls)
	_ = m
}

func TestFormSubmitFailureRetainsPassword(t *testing.T) {
	api := &fakeAPI{createUser: func(context.Context, client.UserInput) (*client.User, error) {
		return nil, &client.APIError{Code: client.CodeConflict, Message: "user already exists"}
	}}
	m := newUserFormModel(api, "test", form.Create, "", 120, 40)
	m = fillCreateForm(m)

	m, cmd := m.submit()
	saved, ok := findFormSavedMsg(collectMsgs(cmd))
	require.True(t, ok)
	m, _ = m.update(saved)

	assert.False(t, m.busy)
	assert.Contains(t, m.errs["submit"], "user already exists")
	assert.Equal(t, "s3cret-pw", m.inputs[fieldPassword].Value(), "no retyping after a failed save")
	assert.Equal(t, "s3cret-pw", m.inputs[fieldConfirm].Value())

	// The form is live again for a retry.
	m, cmd = m.submit()
	assert.True(t, m.busy)
	assert.NotNil(t, cmd)
}

func TestFormEditPrefillsFromServer(t *testing.T) {
	m := newUserFormModel(&fakeAPI{}, "test", form.Edit, "bob", 120, 40)
	require.True(t, m.loading)

	m, _ = m.update(formLoadedMsg{
		user: &client.User{
			UserID:      "bob",
			DisplayName: "Bob B",
			Email:       "bob@example.com",
			Disabled:    true,
			Groups:      []string{"users"},
		},
		groups: []string{"ops", "users"},
	})

	assert.False(t, m.loading)
	assert.Equal(t, "Bob B", m.inputs[fieldDisplayName].Value())
	assert.Equal(t, "bob@example.com", m.inputs[fieldEmail].Value())
	assert.True(t, m.disabled)
	assert.Equal(t, []string{"users"}, m.groups.committed)
	assert.Contains(t, m.groups.vocab, "ops")
	assert.Equal(t, fieldDisplayName, m.currentField(), "user_id is not editable")
}

func TestFormEditOmitsBlankPassword(t *testing.T) {
	var gotID string
	var got client.UserInput
	api := &fakeAPI{updateUser: func(_ context.Context, userID string, input client.UserInput) (*client.User, error) {
		gotID = userID
		got = input
		return &client.User{UserID: userID, DisplayName: *input.DisplayName}, nil
	}}
	m := newUserFormModel(api, "test", form.Edit, "bob", 120, 40)
	m, _ = m.update(formLoadedMsg{
		user: &client.User{UserID: "bob", DisplayName: "Bob B", Email: "bob@example.com", Groups: []string{"users"}},
	})
	m.inputs[fieldDisplayName].SetValue("Bobby")

	m, cmd := m.submit()
	require.True(t, m.busy)
	saved, ok := findFormSavedMsg(collectMsgs(cmd))
	require.True(t, ok)
	require.NoError(t, saved.err)

	assert.Equal(t, "bob", gotID)
	assert.Empty(t, got.UserID, "the username never travels on update")
	assert.Nil(t, got.Password, "a blank password means keep the current one")
	require.NotNil(t, got.DisplayName)
	assert.Equal(t, "Bobby", *got.DisplayName)
	require.NotNil(t, got.Groups)
	assert.Equal(t, []string{"users"}, *got.Groups)
}

func TestFormEditSendsNewPassword(t *testing.T) {
	var got client.UserInput
	api := &fakeAPI{updateUser: func(_ context.Context, userID string, input client.UserInput) (*client.User, error) {
		got = input
		return &client.User{UserID: userID}, nil
	}}
	m := newUserFormModel(api, "test", form.Edit, "bob", 120, 40)
	m, _ = m.update(formLoadedMsg{
		user: &client.User{UserID: "bob", DisplayName: "Bob B", Email: "bob@example.com"},
	})
	m.inputs[fieldPassword].SetValue("new-pw")
	m.inputs[fieldConfirm].SetValue("new-pw")

	m, cmd := m.submit()
	require.True(t, m.busy)
	collectMsgs(cmd)

	require.NotNil(t, got.Password)
	assert.Equal(t, "new-pw", *got.Password)
}

func TestFormEditLoadFailureAndRetry(t *testing.T) {
	fail := true
	api := &fakeAPI{getUser: func(_ context.Context, userID string) (*client.User, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return &client.User{UserID: userID, DisplayName: "Bob B", Email: "bob@example.com"}, nil
	}}
	m := newUserFormModel(api, "test", form.Edit, "bob", 120, 40)

	m, _ = m.update(loadFormCmd(m.api, m.userID)())
	require.Error(t, m.loadErr)

	fail = false
	m, cmd := m.update(keyMsg("ctrl+r"))
	require.True(t, m.loading)
	for _, msg := range collectMsgs(cmd) {
		m, _ = m.update(msg)
	}
	assert.NoError(t, m.loadErr)
	assert.Equal(t, "Bob B", m.inputs[fieldDisplayName].Value())
}

func TestFormVocabAppliesToSuggestions(t *testing.T) {
	m := newUserFormModel(&fakeAPI{}, "test", form.Create, "", 120, 40)

	m, _ = m.update(vocabMsg{groups: []string{"ops"}})

	assert.Contains(t, m.groups.vocab, "ops")
}

func TestFormEscCancels(t *testing.T) {
	m := newUserFormModel(&fakeAPI{}, "test", form.Create, "", 120, 40)

	_, cmd := m.update(keyMsg("esc"))

	require.NotNil(t, cmd)
	_, ok := cmd().(formCancelledMsg)
	assert.True(t, ok)
}

func TestFormEscClosesSuggestionsFirst(t *testing.T) {
	m := newUserFormModel(&fakeAPI{}, "test", form.Create, "", 120, 40)
	for m.currentField() != fieldGroups {
		m, _ = m.setFocus(m.focus + 1)
	}
	m, _ = m.update(keyMsg("a"))
	m, _ = m.update(keyMsg("d"))
	require.True(t, m.groups.open)

	m, cmd := m.update(keyMsg("esc"))
	assert.Nil(t, cmd)
	assert.False(t, m.groups.open)
	assert.Equal(t, "ad", m.groups.input.Value())

	_, cmd = m.update(keyMsg("esc"))
	require.NotNil(t, cmd)
	_, ok := cmd().(formCancelledMsg)
	assert.True(t, ok, "a second esc leaves the form")
}

func TestFormDisabledToggleAndSubmitOnGroups(t *testing.T) {
	var got client.UserInput
	api := &fakeAPI{createUser: func(_ context.Context, input client.UserInput) (*client.User, error) {
		got = input
		return &client.User{UserID: input.UserID}, nil
	}}
	m := newUserFormModel(api, "test", form.Create, "", 120, 40)
	m = fillCreateForm(m)

	for m.currentField() != fieldDisabled {
		m, _ = m.setFocus(m.focus + 1)
	}
	m, _ = m.update(keyMsg(" "))
	assert.True(t, m.disabled)

	m, _ = m.update(keyMsg("enter"))
	require.Equal(t, fieldGroups, m.currentField())

	// Enter on an empty group draft submits the form.
	m, cmd := m.update(keyMsg("enter"))
	require.True(t, m.busy)
	collectMsgs(cmd)

	require.NotNil(t, got.Disabled)
	assert.True(t, *got.Disabled)
}
