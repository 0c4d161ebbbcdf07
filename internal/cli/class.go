// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/netascode/go-gns3"
	"github.com/netascode/go-gns3/internal/config"
	"github.com/netascode/go-gns3/internal/output"
)

func (a *app) classCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "class",
		Short: "Set up classes of students",
	}

	var file string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a class from a JSON or YAML file",
		Long: "Create the class group, a <class>-<group> group per student group and " +
			"every student, adding each student to the class group and their own group.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			path, err := config.ExpandPath(file)
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open class file: %w", err)
			}
			class, err := gns3.LoadClass(f)
			f.Close()
			if err != nil {
				return err
			}

			client, _, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.CreateClass(cmd.Context(), class)
			for _, u := range result.Users {
				if u.Err == nil {
					fmt.Fprintln(cmd.OutOrStdout(), output.FormatSuccess("created user %s", u.Username))
				}
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), output.FormatSuccess("created class %s with %d groups and %d students",
				class.Name, len(result.GroupIDs), len(result.Users)))
			return nil
		},
	}
	create.Flags().StringVarP(&file, "file", "f", "", "Class file")
	cmd.AddCommand(create)
	return cmd
}

func (a *app) exerciseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exercise",
		Short: "Hand out exercise projects to the groups of a class",
	}

	var className, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a locked-down project for every group of a class",
		Long: "Create <class>-<exercise>-<group> for every group of the class, each in its " +
			"own pool, and give only that group the " + gns3.ExerciseRole + " role on it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if className == "" || name == "" {
				return fmt.Errorf("--class and --name are required")
			}

			client, _, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			projects, err := client.CreateExercise(cmd.Context(), className, name)
			for _, p := range projects {
				fmt.Fprintln(cmd.OutOrStdout(), output.FormatSuccess("created %s for group %s (pool %s)",
					gns3.ExerciseProjectName(className, name, p.Group), p.Group, p.PoolID))
			}
			return err
		},
	}
	create.Flags().StringVarP(&className, "class", "c", "", "Class name")
	create.Flags().StringVarP(&name, "name", "e", "", "Exercise name")
	cmd.AddCommand(create)
	return cmd
}
