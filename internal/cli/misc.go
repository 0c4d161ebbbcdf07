// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/netascode/go-gns3"
	"github.com/netascode/go-gns3/internal/config"
	"github.com/netascode/go-gns3/internal/fuzzy"
	"github.com/netascode/go-gns3/internal/output"
	"github.com/netascode/go-gns3/internal/script"
)

func (a *app) callCmd() *cobra.Command {
	var in bodyInput
	var list bool
	cmd := &cobra.Command{
		Use:   "call <operation> [args...]",
		Short: "Call a named controller operation",
		Long:  "Call any registered operation, e.g. 'call addGroupMember <group-id> <user-id>'. Use --list to show them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, op := range gns3.Operations() {
					fmt.Fprintf(cmd.OutOrStdout(), "%-7s %s\n", op.Method, op.Usage())
				}
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("an operation name is required (see --list)")
			}

			var body any
			if in.data != "" || in.file != "" || len(in.sets) > 0 {
				b, err := in.build()
				if err != nil {
					return err
				}
				body = b
			}

			client, opts, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			res, err := client.Run(cmd.Context(), args[0], args[1:], body)
			if err != nil {
				return err
			}
			printer(cmd, opts).PrintResult(args[0], res)
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().BoolVar(&list, "list", false, "List all operations")
	return cmd
}

func (a *app) findCmd() *cobra.Command {
	var project string
	var multi bool
	cmd := &cobra.Command{
		Use:   "find <resource> <query>",
		Short: "Fuzzy-find resources by name",
		Long:  "Rank resources by fuzzy name match. Resources: " + strings.Join(gns3.ResourceNames(), ", "),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := gns3.LookupResource(args[0])
			if !ok {
				return fmt.Errorf("unknown resource %q (one of: %s)", args[0], strings.Join(gns3.ResourceNames(), ", "))
			}

			client, opts, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			projectID := ""
			if r.ProjectScoped {
				if project == "" {
					return fmt.Errorf("%s lookups require --project", r.Name)
				}
				pr, _ := gns3.LookupResource("project")
				if projectID, err = fuzzy.ResolveID(cmd.Context(), client, pr, "", project); err != nil {
					return err
				}
			}

			items, err := client.List(cmd.Context(), r, projectID)
			if err != nil {
				return err
			}
			matches, err := fuzzy.Select(args[1], items, r, multi)
			if err != nil {
				return err
			}

			if opts.Raw {
				selected := make([]gjson.Result, 0, len(matches))
				for _, m := range matches {
					selected = append(selected, m.Item)
				}
				printer(cmd, opts).PrintJSON(output.JoinItems(selected))
				return nil
			}
			for _, m := range matches {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", m.ID, m.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "Project of project-scoped resources")
	cmd.Flags().BoolVarP(&multi, "multi", "m", true, "Show all matches instead of the best one")
	return cmd
}

func (a *app) scriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Run YAML scripts of operations",
	}
	run := &cobra.Command{
		Use:   "run <file>",
		Short: "Run a script; stops at the first failing step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			doc, err := script.ParseFile(path)
			if err != nil {
				return err
			}

			client, opts, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if title := doc.Title(); title != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Executing script: %s\n", title)
			}
			p := printer(cmd, opts)
			runner := &script.Runner{
				Client: client,
				OnStep: func(r script.Result) {
					fmt.Fprintln(cmd.OutOrStdout(), output.FormatSuccess("step %d: %s", r.Plan.Index, r.Plan.Operation.Name))
					if !r.Res.IsEmpty() {
						p.Print(r.Res.Body)
					}
				},
			}
			_, err = runner.Run(cmd.Context(), doc)
			return err
		},
	}
	cmd.AddCommand(run)
	return cmd
}
