// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/netascode/go-gns3"
	"github.com/netascode/go-gns3/internal/config"
	"github.com/netascode/go-gns3/internal/fuzzy"
	"github.com/netascode/go-gns3/internal/output"
)

func (a *app) projectActionCmd(r gns3.Resource, action string, path func(string) string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <name|id>",
		Short: fmt.Sprintf("%s a project", action),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, opts, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := fuzzy.ResolveID(cmd.Context(), client, r, "", args[0])
			if err != nil {
				return err
			}
			res, err := client.Post(cmd.Context(), path(id), nil)
			if err != nil {
				return err
			}
			printer(cmd, opts).PrintResult("project "+action, res)
			return nil
		},
	}
}

func (a *app) projectExportCmd(r gns3.Resource) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export <name|id>",
		Short: "Export a project to a .gns3project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := fuzzy.ResolveID(cmd.Context(), client, r, "", args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = args[0] + ".gns3project"
			}
			return download(cmd, client, gns3.Endpoints.ProjectExport(id), out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default <project>.gns3project)")
	return cmd
}

func (a *app) nodeActionCmd(r gns3.Resource, action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " [name|id]",
		Short: fmt.Sprintf("%s one node, or every node of the project", action),
		Args:  cobra.MaximumNArgs(1),
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

			path := gns3.Endpoints.NodesAction(projectID, action)
			if len(args) == 1 {
				nodeID, err := fuzzy.ResolveID(cmd.Context(), client, r, projectID, args[0])
				if err != nil {
					return err
				}
				path = gns3.Endpoints.NodeAction(projectID, nodeID, action)
			}

			res, err := client.Post(cmd.Context(), path, nil)
			if err != nil {
				return err
			}
			printer(cmd, opts).PrintResult("node "+action, res)
			return nil
		},
	}
}

func (a *app) snapshotRestoreCmd(r gns3.Resource) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <name|id>",
		Short: "Restore a snapshot",
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
			snapshotID, err := fuzzy.ResolveID(cmd.Context(), client, r, projectID, args[0])
			if err != nil {
				return err
			}
			res, err := client.Post(cmd.Context(), gns3.Endpoints.SnapshotRestore(projectID, snapshotID), nil)
			if err != nil {
				return err
			}
			printer(cmd, opts).PrintResult("snapshot restore", res)
			return nil
		},
	}
}

func (a *app) linkCaptureCmd(r gns3.Resource) *cobra.Command {
	var out string
	var start bool
	cmd := &cobra.Command{
		Use:   "capture <link-id>",
		Short: "Stream a link's packet capture into a pcap file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			projectID, err := a.scope(cmd, client, r)
			if err != nil {
				return err
			}
			linkID := args[0]
			if start {
				if _, err := client.Post(cmd.Context(), gns3.Endpoints.LinkCaptureStart(projectID, linkID), gns3.Body{}.Set("data_link_type", "DLT_EN10MB")); err != nil {
					return err
				}
			}
			if out == "" {
				out = linkID + ".pcap"
			}
			return download(cmd, client, gns3.Endpoints.LinkCaptureStream(projectID, linkID), out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default <link-id>.pcap)")
	cmd.Flags().BoolVar(&start, "start", false, "Start the capture first")
	return cmd
}

func download(cmd *cobra.Command, client *gns3.Client, endpoint, out string) error {
	path, err := config.ExpandPath(out)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := client.Download(cmd.Context(), endpoint, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, cerr)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), output.FormatSuccess("wrote %d bytes to %s", n, path))
	return nil
}

func (a *app) notificationsCmd() *cobra.Command {
	var project string
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Follow the controller or project notification feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, opts, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			endpoint := gns3.Endpoints.Notifications()
			if project != "" {
				pr, _ := gns3.LookupResource("project")
				id, err := fuzzy.ResolveID(cmd.Context(), client, pr, "", project)
				if err != nil {
					return err
				}
				endpoint = gns3.Endpoints.ProjectNotifications(id)
			}

			p := printer(cmd, opts)
			return client.Notifications(cmd.Context(), endpoint, func(n gns3.Notification) bool {
				if n.Err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), output.FormatError(n.Err))
					return true
				}
				if opts.Raw {
					p.PrintJSON(n.Raw)
					return true
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", n.Action, n.Event.Raw)
				return true
			}, gns3.FeedDuration(duration))
		},
	}
	cmd.Flags().StringVarP(&project, "project", "p", "", "Follow the feed of this project")
	cmd.Flags().DurationVar(&duration, "duration", gns3.DefaultFeedDuration, "How long to follow the feed")
	return cmd
}
