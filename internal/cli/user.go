// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/netascode/go-gns3"
	"github.com/netascode/go-gns3/internal/config"
	"github.com/netascode/go-gns3/internal/fuzzy"
	"github.com/netascode/go-gns3/internal/output"
)

func (a *app) userBulkCreateCmd() *cobra.Command {
	var (
		prefix, password, emailDomain, group, file string
		count                                     int
	)
	cmd := &cobra.Command{
		Use:   "bulk-create",
		Short: "Create many users, optionally adding them to a group",
		Long: "Create users either from --file (a YAML or JSON list of " +
			"{username, password, email, full_name}) or as <prefix>1..<prefix>N.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var users []gns3.NewUser
			switch {
			case file != "":
				loaded, err := loadUsers(file)
				if err != nil {
					return err
				}
				users = loaded
			case prefix != "" && count > 0:
				if password == "" {
					return fmt.Errorf("--password is required with --prefix")
				}
				users = gns3.GenerateUsers(prefix, count, password, emailDomain)
			default:
				return fmt.Errorf("use --file, or --prefix with --count")
			}

			client, _, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			groupID := ""
			if group != "" {
				gr, _ := gns3.LookupResource("group")
				groupID, err = fuzzy.ResolveID(cmd.Context(), client, gr, "", group)
				if err != nil {
					return err
				}
			}

			failed := 0
			for _, r := range client.CreateUsers(cmd.Context(), users, groupID) {
				if r.Err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", r.Username, output.FormatError(r.Err))
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), output.FormatSuccess("created %s (%s)", r.Username, r.UserID))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d users failed", failed, len(users))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&file, "file", "", "YAML or JSON list of users")
	f.StringVar(&prefix, "prefix", "", "Username prefix for generated users")
	f.IntVar(&count, "count", 0, "Number of users to generate")
	f.StringVar(&password, "password", "", "Password of generated users")
	f.StringVar(&emailDomain, "email-domain", "", "Give generated users <name>@<domain> addresses")
	f.StringVarP(&group, "group", "g", "", "Add every created user to this group (name or ID)")
	return cmd
}

// loadUsers reads a YAML or JSON list of users
func loadUsers(file string) ([]gns3.NewUser, error) {
	path, err := config.ExpandPath(file)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read user file: %w", err)
	}
	var users []gns3.NewUser
	if err := yaml.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("failed to parse user file: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user file %s contains no users", file)
	}
	for i, u := range users {
		if u.Username == "" || u.Password == "" {
			return nil, fmt.Errorf("user %d in %s needs username and password", i+1, file)
		}
	}
	return users, nil
}

func (a *app) userBulkDeleteCmd() *cobra.Command {
	var (
		workers int
		skip    []string
		prefix  string
		all     bool
		yes     bool
	)
	cmd := &cobra.Command{
		Use:   "bulk-delete [username...]",
		Short: "Delete many users concurrently",
		Long: "Delete the named users, every user whose name starts with --prefix, " +
			"or --all users. Protected users (--skip, default admin) are never deleted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && prefix == "" && !all {
				return fmt.Errorf("name users, or use --prefix or --all")
			}

			client, _, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			r, _ := gns3.LookupResource("user")
			items, err := client.List(cmd.Context(), r, "")
			if err != nil {
				return err
			}

			wanted := make(map[string]bool, len(args))
			for _, name := range args {
				wanted[strings.ToLower(name)] = true
			}
			var users []gns3.UserRef
			for _, it := range items {
				u := gns3.UserRef{ID: it.Get(r.IDField).String(), Username: it.Get(r.NameField).String()}
				switch {
				case all,
					prefix != "" && strings.HasPrefix(u.Username, prefix),
					wanted[strings.ToLower(u.Username)]:
					users = append(users, u)
				}
			}
			if len(users) == 0 {
				return gns3.NewError(gns3.KindEmptyResponse, "no users match")
			}

			if !yes {
				fmt.Fprintln(cmd.OutOrStdout(), output.FormatWarning("would delete %d user(s); rerun with --yes", len(users)))
				return nil
			}

			result := client.DeleteUsers(cmd.Context(), users, workers, skip)
			for _, name := range result.Skipped {
				fmt.Fprintln(cmd.OutOrStdout(), output.FormatWarning("skipped protected user %s", name))
			}
			for _, f := range result.Failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", f.ID, output.FormatError(f.Err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), output.FormatSuccess("deleted %d, failed %d", result.Deleted, result.Failed))
			if result.Failed > 0 {
				return fmt.Errorf("%d deletion(s) failed", result.Failed)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&workers, "workers", "w", gns3.DefaultBulkWorkers, "Concurrent deletions")
	f.StringSliceVar(&skip, "skip", gns3.DefaultProtectedUsers, "Usernames never deleted")
	f.StringVar(&prefix, "prefix", "", "Delete users whose name starts with this prefix")
	f.BoolVar(&all, "all", false, "Delete all users except protected ones")
	f.BoolVarP(&yes, "yes", "y", false, "Do not just report what would be deleted")
	return cmd
}
