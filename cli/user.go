package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chupakbra/authelia-admin-cli/internal/client"
	"github.com/chupakbra/authelia-admin-cli/internal/form"
)

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage Authelia user accounts",
	}
	cmd.AddCommand(userListCmd())
	cmd.AddCommand(userShowCmd())
	cmd.AddCommand(userCreateCmd())
	cmd.AddCommand(userUpdateCmd())
	cmd.AddCommand(userDeleteCmd())
	cmd.AddCommand(userEnableCmd())
	cmd.AddCommand(userDisableCmd())
	cmd.AddCommand(userPasswordCmd())
	return cmd
}

// userListCmd lists all users.
func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initClient(cmd); err != nil {
				return err
			}
			s := startSpinner("Loading users...")
			users, err := apiClient.ListUsers(context.Background())
			s.Stop()
			if err != nil {
				return handleErr(err)
			}

			if flagOutput == "json" {
				return jsonOut(cmd, users)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "USERNAME\tDISPLAY NAME\tEMAIL\tGROUPS\tSTATUS")
			for _, u := range users {
				status := "active"
				if u.Disabled {
					status = "disabled"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					u.UserID, u.DisplayName, u.Email, joinOrDash(u.Groups), status)
			}
			return w.Flush()
		},
	}
}

// userShowCmd shows a single user.
func userShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <username>",
		Short: "Show a single user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initClient(cmd); err != nil {
				return err
			}
			s := startSpinner("Loading user...")
			u, err := apiClient.GetUser(context.Background(), args[0])
			s.Stop()
			if err != nil {
				return handleErr(err)
			}

			if flagOutput == "json" {
				return jsonOut(cmd, u)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Username:      %s\n", u.UserID)
			fmt.Fprintf(cmd.OutOrStdout(), "Display name:  %s\n", u.DisplayName)
			fmt.Fprintf(cmd.OutOrStdout(), "Email:         %s\n", u.Email)
			fmt.Fprintf(cmd.OutOrStdout(), "Groups:        %s\n", joinOrDash(u.Groups))
			fmt.Fprintf(cmd.OutOrStdout(), "Disabled:      %s\n", yesNoBool(u.Disabled))
			return nil
		},
	}
}

// userCreateCmd creates a new user.
func userCreateCmd() *cobra.Command {
	var (
		displayname string
		email       string
		password    string
		disabled    bool
		groups      []string
	)
	cmd := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a new user",
		Example: `  authadm user create alice --displayname "Alice Smith" \
    --email alice@example.com --password s3cret --groups users,admins`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := form.State{
				UserID:          args[0],
				DisplayName:     displayname,
				Email:           email,
				Password:        password,
				ConfirmPassword: password,
				Disabled:        disabled,
				Groups:          normalizeGroups(groups),
			}
			if errs := form.Validate(st, form.Create); form.HasErrors(errs) {
				return validationError(errs)
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			s := startSpinner("Creating user...")
			u, err := apiClient.CreateUser(context.Background(), st.Input(form.Create))
			s.Stop()
			if err != nil {
				return handleErr(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %q created.\n", u.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&displayname, "displayname", "", "display name (required)")
	cmd.Flags().StringVar(&email, "email", "", "email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "initial password (required)")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "create the account disabled")
	cmd.Flags().StringSliceVar(&groups, "groups", nil, "comma-separated list of groups")
	return cmd
}

// userUpdateCmd applies a partial update; only flags that were set are sent.
func userUpdateCmd() *cobra.Command {
	var (
		displayname string
		email       string
		groups      []string
	)
	cmd := &cobra.Command{
		Use:   "update <username>",
		Short: "Update a user's profile fields",
		Example: `  authadm user update alice --email alice@new.example.com
  authadm user update alice --groups users  (replaces the group list)`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var input client.UserInput
			if cmd.Flags().Changed("displayname") {
				input.DisplayName = &displayname
			}
			if cmd.Flags().Changed("email") {
				input.Email = &email
			}
			if cmd.Flags().Changed("groups") {
				normalized := normalizeGroups(groups)
				input.Groups = &normalized
			}
			if input == (client.UserInput{}) {
				return fmt.Errorf("nothing to update: set --displayname, --email, or --groups")
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			s := startSpinner("Updating user...")
			u, err := apiClient.UpdateUser(context.Background(), args[0], input)
			s.Stop()
			if err != nil {
				return handleErr(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %q updated.\n", u.UserID)
			return nil
		},
	}
	cmd.Flags().StringVar(&displayname, "displayname", "", "new display name")
	cmd.Flags().StringVar(&email, "email", "", "new email address")
	cmd.Flags().StringSliceVar(&groups, "groups", nil, "replacement group list (comma-separated; empty string clears all)")
	return cmd
}

// userDeleteCmd deletes a user after confirmation.
func userDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd, fmt.Sprintf("Delete user %q? This cannot be undone.", args[0])) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			s := startSpinner("Deleting user...")
			err := apiClient.DeleteUser(context.Background(), args[0])
			s.Stop()
			if err != nil {
				return handleErr(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %q deleted.\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func userEnableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enable <username>",
		Short: "Enable a disabled user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setDisabled(cmd, args[0], false)
		},
	}
}

func userDisableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "disable <username>",
		Short: "Disable a user (they cannot log in until re-enabled)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setDisabled(cmd, args[0], true)
		},
	}
}

func setDisabled(cmd *cobra.Command, userID string, disabled bool) error {
	if err := initClient(cmd); err != nil {
		return err
	}
	s := startSpinner("Updating user...")
	u, err := apiClient.UpdateUser(context.Background(), userID, client.UserInput{Disabled: &disabled})
	s.Stop()
	if err != nil {
		return handleErr(err)
	}
	state := "enabled"
	if u.Disabled {
		state = "disabled"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "User %q is now %s.\n", u.UserID, state)
	return nil
}

// userPasswordCmd changes a user's password.
func userPasswordCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "password <username>",
		Short: "Change a user's password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return fmt.Errorf("--password is required")
			}
			if err := initClient(cmd); err != nil {
				return err
			}
			s := startSpinner("Updating password...")
			_, err := apiClient.UpdateUser(context.Background(), args[0], client.UserInput{Password: &password})
			s.Stop()
			if err != nil {
				return handleErr(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %q.\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password (required)")
	return cmd
}

// validationError flattens field errors into a single CLI error.
func validationError(errs form.Errors) error {
	for _, field := range []string{"user_id", "displayname", "email", "password", "confirmPassword"} {
		if msg, ok := errs[field]; ok {
			return fmt.Errorf("%s", msg)
		}
	}
	for _, msg := range errs {
		return fmt.Errorf("%s", msg)
	}
	return fmt.Errorf("invalid input")
}
