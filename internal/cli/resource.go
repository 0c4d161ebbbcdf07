// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/netascode/go-gns3"
	"github.com/netascode/go-gns3/internal/config"
	"github.com/netascode/go-gns3/internal/fuzzy"
	"github.com/netascode/go-gns3/internal/output"
)

// resourceCmd builds ls/info/create/update/delete for r, plus the
// resource-specific actions
func (a *app) resourceCmd(r gns3.Resource) *cobra.Command {
	cmd := &cobra.Command{
		Use:   r.Name,
		Short: fmt.Sprintf("Manage %ss", r.Name),
	}
	if r.ProjectScoped {
		cmd.PersistentFlags().StringP("project", "p", "", "Project name or ID")
	}

	cmd.AddCommand(
		a.lsCmd(r),
		a.infoCmd(r),
		a.createCmd(r),
		a.updateCmd(r),
		a.deleteCmd(r),
	)

	switch r.Name {
	case "project":
		cmd.AddCommand(
			a.projectActionCmd(r, "open", gns3.Endpoints.ProjectOpen),
			a.projectActionCmd(r, "close", gns3.Endpoints.ProjectClose),
			a.projectActionCmd(r, "lock", gns3.Endpoints.ProjectLock),
			a.projectActionCmd(r, "unlock", gns3.Endpoints.ProjectUnlock),
			a.projectExportCmd(r),
		)
	case "node":
		for _, action := range []string{"start", "stop", "suspend", "reload"} {
			cmd.AddCommand(a.nodeActionCmd(r, action))
		}
	case "snapshot":
		cmd.AddCommand(a.snapshotRestoreCmd(r))
	case "link":
		cmd.AddCommand(a.linkCaptureCmd(r))
	case "user":
		cmd.AddCommand(a.userBulkCreateCmd(), a.userBulkDeleteCmd())
	}
	return cmd
}

// scope resolves the --project flag of project-scoped resources
func (a *app) scope(cmd *cobra.Command, client *gns3.Client, r gns3.Resource) (string, error) {
	if !r.ProjectScoped {
		return "", nil
	}
	project, _ := cmd.Flags().GetString("project")
	if project == "" {
		return "", fmt.Errorf("%s commands require --project", r.Name)
	}
	pr, _ := gns3.LookupResource("project")
	return fuzzy.ResolveID(cmd.Context(), client, pr, "", project)
}

func (a *app) lsCmd(r gns3.Resource) *cobra.Command {
	return &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   fmt.Sprintf("List %ss", r.Name),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, opts, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			projectID, err := a.scope(cmd, client, r)
			if err != nil {
				return err
			}
			res, err := client.Get(cmd.Context(), r.ListPath(projectID))
			if err != nil {
				return err
			}
			printer(cmd, opts).PrintResult(r.Name+" ls", res)
			return nil
		},
	}
}

func (a *app) infoCmd(r gns3.Resource) *cobra.Command {
	var useFuzzy, multi bool
	cmd := &cobra.Command{
		Use:   "info <name|id>",
		Short: fmt.Sprintf("Show a %s", r.Name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, opts, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			projectID, err := a.scope(cmd, client, r)
			if err != nil {
				return err
			}

			if useFuzzy || multi {
				items, err := client.List(cmd.Context(), r, projectID)
				if err != nil {
					return err
				}
				matches, err := fuzzy.Select(args[0], items, r, multi)
				if err != nil {
					return err
				}
				selected := make([]gjson.Result, 0, len(matches))
				for _, m := range matches {
					selected = append(selected, m.Item)
				}
				printer(cmd, opts).Print(output.JoinItems(selected))
				return nil
			}

			id, err := fuzzy.ResolveID(cmd.Context(), client, r, projectID, args[0])
			if err != nil {
				return err
			}
			res, err := client.Get(cmd.Context(), r.ItemPath(projectID, id))
			if err != nil {
				return err
			}
			printer(cmd, opts).PrintResult(r.Name+" info", res)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&useFuzzy, "fuzzy", "f", false, "Select the best fuzzy match by name")
	cmd.Flags().BoolVarP(&multi, "multi", "m", false, "Show every fuzzy match")
	return cmd
}

func (a *app) createCmd(r gns3.Resource) *cobra.Command {
	var in bodyInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: fmt.Sprintf("Create a %s", r.Name),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := in.build()
			if err != nil {
				return err
			}
			client, opts, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			projectID, err := a.scope(cmd, client, r)
			if err != nil {
				return err
			}
			res, err := client.Post(cmd.Context(), r.ListPath(projectID), body)
			if err != nil {
				return err
			}
			printer(cmd, opts).PrintResult(r.Name+" create", res)
			return nil
		},
	}
	in.register(cmd)
	return cmd
}

func (a *app) updateCmd(r gns3.Resource) *cobra.Command {
	var in bodyInput
	cmd := &cobra.Command{
		Use:   "update <name|id>",
		Short: fmt.Sprintf("Update a %s", r.Name),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := in.build()
			if err != nil {
				return err
			}
			client, opts, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			projectID, err := a.scope(cmd, client, r)
			if err != nil {
				return err
			}
			id, err := fuzzy.ResolveID(cmd.Context(), client, r, projectID, args[0])
			if err != nil {
				return err
			}
			res, err := client.Put(cmd.Context(), r.ItemPath(projectID, id), body)
			if err != nil {
				return err
			}
			printer(cmd, opts).PrintResult(r.Name+" update", res)
			return nil
		},
	}
	in.register(cmd)
	return cmd
}

func (a *app) deleteCmd(r gns3.Resource) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <name|id>...",
		Aliases: []string{"rm"},
		Short:   fmt.Sprintf("Delete %ss", r.Name),
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, opts, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			projectID, err := a.scope(cmd, client, r)
			if err != nil {
				return err
			}
			for _, arg := range args {
				id, err := fuzzy.ResolveID(cmd.Context(), client, r, projectID, arg)
				if err != nil {
					return err
				}
				res, err := client.Delete(cmd.Context(), r.ItemPath(projectID, id))
				if err != nil {
					return err
				}
				printer(cmd, opts).PrintResult(r.Name+" delete "+arg, res)
			}
			return nil
		},
	}
}

// bodyInput collects a JSON payload from --data, --file and --set
type bodyInput struct {
	data string
	file string
	sets []string
}

func (in *bodyInput) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&in.data, "data", "d", "", "JSON payload")
	cmd.Flags().StringVar(&in.file, "file", "", "Read the JSON payload from a file")
	cmd.Flags().StringArrayVar(&in.sets, "set", nil, "Set a field, path=value (repeatable)")
}

// build merges the inputs: --data or --file is the base, --set entries are
// applied on top. Values that are valid JSON are set raw, anything else as
// a string.
func (in *bodyInput) build() (any, error) {
	base := in.data
	if in.file != "" {
		if base != "" {
			return nil, fmt.Errorf("--data and --file are mutually exclusive")
		}
		path, err := config.ExpandPath(in.file)
		if err != nil {
			return nil, err
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read payload file: %w", err)
		}
		base = string(raw)
	}
	if base != "" && !gjson.Valid(base) {
		return nil, fmt.Errorf("payload is not valid JSON")
	}

	body := gns3.NewBody(base)
	for _, s := range in.sets {
		path, value, ok := strings.Cut(s, "=")
		if !ok || path == "" {
			return nil, fmt.Errorf("invalid --set %q: expected path=value", s)
		}
		if gjson.Valid(value) {
			body = body.SetRaw(path, value)
		} else {
			body = body.Set(path, value)
		}
	}
	if err := body.Err(); err != nil {
		return nil, err
	}
	if body.Res() == "" {
		return nil, fmt.Errorf("a payload is required: use --data, --file or --set")
	}
	return body, nil
}
