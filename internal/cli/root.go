// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package cli implements the gns3util command tree.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/netascode/go-gns3"
	"github.com/netascode/go-gns3/internal/auth"
	"github.com/netascode/go-gns3/internal/config"
	"github.com/netascode/go-gns3/internal/output"
)

// Version is set at build time
var Version = "dev"

// app holds what the commands share
type app struct {
	v *viper.Viper

	// newClient is replaced in tests
	newClient func(opts config.GlobalOptions) (*gns3.Client, error)
}

// NewRootCmd builds the command tree. configDir is searched for
// config.yaml; pass "" to skip the config file.
func NewRootCmd(configDir string) *cobra.Command {
	a := &app{v: config.New(configDir)}
	a.newClient = a.defaultClient

	root := &cobra.Command{
		Use:           "gns3util",
		Short:         "A utility for GNS3v3",
		Long:          "A utility for managing GNS3v3 controllers: users, projects, nodes and more.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.ReadConfigFile(a.v); err != nil {
				return err
			}
			opts, err := config.Load(a.v)
			if err != nil {
				return err
			}
			if opts.NoColor {
				output.DisableColor()
			}
			cmd.SetContext(config.WithGlobalOptions(cmd.Context(), opts))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringP(config.KeyServer, "s", "", "GNS3v3 server URL (env GNS3_SERVER)")
	flags.StringP(config.KeyKeyFile, "k", "", "Location of the key file (default ~/.gns3/gns3key)")
	flags.BoolP(config.KeyInsecure, "i", false, "Do not verify the server's TLS certificate")
	flags.Bool(config.KeyRaw, false, "Output raw JSON")
	flags.Bool(config.KeyNoColor, false, "Disable coloured output")
	flags.Duration(config.KeyTimeout, config.DefaultTimeout, "Request timeout")
	flags.Bool(config.KeyVerbose, false, "Log requests and responses")
	_ = a.v.BindPFlags(flags)

	root.AddCommand(
		a.authCmd(),
		a.callCmd(),
		a.classCmd(),
		a.exerciseCmd(),
		a.findCmd(),
		a.notificationsCmd(),
		a.scriptCmd(),
	)
	for _, name := range gns3.ResourceNames() {
		r, _ := gns3.LookupResource(name)
		root.AddCommand(a.resourceCmd(r))
	}

	return root
}

// Execute runs the CLI and returns the process exit code
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	dir, err := config.GNS3Dir()
	if err != nil {
		dir = ""
	}
	root := NewRootCmd(dir)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, output.FormatError(err))
		return 1
	}
	return 0
}

func (a *app) defaultClient(opts config.GlobalOptions) (*gns3.Client, error) {
	store, err := auth.NewStore(opts.KeyFile)
	if err != nil {
		return nil, err
	}

	var logger gns3.Logger = &gns3.NoOpLogger{}
	if opts.Verbose {
		logger = gns3.NewDefaultLogger(gns3.LogLevelDebug)
	}

	return gns3.NewClient(opts.Server,
		gns3.WithTokenSource(store.TokenSource(opts.Server)),
		gns3.VerifyCertificate(!opts.Insecure),
		gns3.RequestTimeout(opts.Timeout),
		gns3.UserAgent("gns3util/"+Version),
		gns3.WithLogger(logger),
	)
}

// client resolves the global options and builds a client for cmd
func (a *app) client(cmd *cobra.Command) (*gns3.Client, config.GlobalOptions, error) {
	opts, err := config.FromContext(cmd.Context())
	if err != nil {
		return nil, opts, err
	}
	if err := opts.RequireServer(); err != nil {
		return nil, opts, err
	}
	c, err := a.newClient(opts)
	if err != nil {
		return nil, opts, err
	}
	return c, opts, nil
}

func printer(cmd *cobra.Command, opts config.GlobalOptions) output.Printer {
	return output.Printer{W: cmd.OutOrStdout(), Raw: opts.Raw, NoColor: opts.NoColor}
}
