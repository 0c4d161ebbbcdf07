// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/netascode/go-gns3"
	"github.com/netascode/go-gns3/internal/auth"
	"github.com/netascode/go-gns3/internal/output"
)

func (a *app) authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate against the controller",
	}
	cmd.AddCommand(a.authLoginCmd(), a.authStatusCmd())
	return cmd
}

func (a *app) authLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the access token",
		Long: "Log in as a user. Credentials come from --user/--password, " +
			"GNS3_USER/GNS3_PASSWORD, or are prompted for.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, opts, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			_ = a.v.BindPFlag("user", cmd.Flags().Lookup("user"))
			_ = a.v.BindPFlag("password", cmd.Flags().Lookup("password"))

			in := bufio.NewReader(cmd.InOrStdin())
			username, err := valueOrPrompt(in, cmd.ErrOrStderr(), a.v.GetString("user"), "Username: ")
			if err != nil {
				return err
			}
			password, err := valueOrPrompt(in, cmd.ErrOrStderr(), a.v.GetString("password"), "Password: ")
			if err != nil {
				return err
			}

			key, err := auth.Login(cmd.Context(), client, username, password)
			if err != nil {
				return err
			}

			store, err := auth.NewStore(opts.KeyFile)
			if err != nil {
				return err
			}
			if err := store.Save(key); err != nil {
				return fmt.Errorf("failed to save access token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), output.FormatSuccess("logged in as %s, token stored in %s", username, store.Path))
			return nil
		},
	}
	cmd.Flags().StringP("user", "u", "", "User to log in as")
	cmd.Flags().StringP("password", "p", "", "Password of the user")
	return cmd
}

func (a *app) authStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the user the stored token belongs to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, opts, err := a.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if !client.HasCredentials() {
				return fmt.Errorf("no access token stored for %s: use auth login", opts.Server)
			}
			res, err := client.Get(cmd.Context(), gns3.Endpoints.Me())
			if err != nil {
				return err
			}
			printer(cmd, opts).PrintResult("auth status", res)
			return nil
		},
	}
}

// valueOrPrompt returns value, or reads one line from in after writing prompt
func valueOrPrompt(in *bufio.Reader, w io.Writer, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Fprint(w, prompt)
	line, err := in.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("%s cannot be empty", strings.TrimSuffix(strings.ToLower(prompt), ": "))
	}
	return line, nil
}
