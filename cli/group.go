package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func groupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Inspect Authelia groups",
	}
	cmd.AddCommand(groupListCmd())
	cmd.AddCommand(groupMembersCmd())
	return cmd
}

// groupListCmd lists the groups known to the server.
func groupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := initClient(cmd); err != nil {
				return err
			}
			s := startSpinner("Loading groups...")
			groups, err := apiClient.ListGroups(context.Background())
			s.Stop()
			if err != nil {
				return handleErr(err)
			}

			if flagOutput == "json" {
				return jsonOut(cmd, groups)
			}
			for _, g := range groups {
				fmt.Fprintln(cmd.OutOrStdout(), g)
			}
			return nil
		},
	}
}

// groupMembersCmd lists the users belonging to a group. Membership lives
// on the user records, so this is a filtered user list.
func groupMembersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "members <group>",
		Short: "List the users in a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			group := strings.ToLower(strings.TrimSpace(args[0]))
			if err := initClient(cmd); err != nil {
				return err
			}
			s := startSpinner("Loading users...")
			users, err := apiClient.ListUsers(context.Background())
			s.Stop()
			if err != nil {
				return handleErr(err)
			}

			var members []string
			for _, u := range users {
				for _, g := range u.Groups {
					if g == group {
						members = append(members, u.UserID)
						break
					}
				}
			}
			if flagOutput == "json" {
				return jsonOut(cmd, members)
			}
			if len(members) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No users in group %q.\n", group)
				return nil
			}
			for _, m := range members {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
}

// normalizeGroups lower-cases, trims, and dedups a group list, matching
// what the interactive group editor commits.
func normalizeGroups(raw []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(raw))
	for _, g := range raw {
		g = strings.ToLower(strings.TrimSpace(g))
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}
