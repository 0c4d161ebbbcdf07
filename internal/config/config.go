// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package config resolves the global CLI options from flags, GNS3_*
// environment variables and an optional ~/.gns3/config.yaml, and carries
// them through a context.Context.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Configuration keys, shared by flags, environment and config file
const (
	KeyServer   = "server"
	KeyKeyFile  = "key-file"
	KeyInsecure = "insecure"
	KeyRaw      = "raw"
	KeyNoColor  = "no-color"
	KeyTimeout  = "timeout"
	KeyVerbose  = "verbose"
)

// EnvPrefix prefixes every environment variable, e.g. GNS3_SERVER
const EnvPrefix = "GNS3"

// DefaultTimeout is the request timeout when none is configured
const DefaultTimeout = 10 * time.Second

// GlobalOptions are the options every command sees
type GlobalOptions struct {
	Server   string
	KeyFile  string
	Insecure bool
	Raw      bool
	NoColor  bool
	Verbose  bool
	Timeout  time.Duration
}

type optionsKey struct{}

// WithGlobalOptions stores opts in ctx
func WithGlobalOptions(ctx context.Context, opts GlobalOptions) context.Context {
	return context.WithValue(ctx, optionsKey{}, opts)
}

// FromContext retrieves the options stored by WithGlobalOptions
func FromContext(ctx context.Context) (GlobalOptions, error) {
	opts, ok := ctx.Value(optionsKey{}).(GlobalOptions)
	if !ok {
		return GlobalOptions{}, errors.New("global options not found in context")
	}
	return opts, nil
}

// New returns a viper instance reading GNS3_* variables and, when dir is
// non-empty, config.yaml from dir
func New(dir string) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.SetDefault(KeyTimeout, DefaultTimeout)

	if dir != "" {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dir)
	}
	return v
}

// ReadConfigFile loads the config file, if there is one
func ReadConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load resolves GlobalOptions from v and validates them
func Load(v *viper.Viper) (GlobalOptions, error) {
	opts := GlobalOptions{
		Server:   strings.TrimSpace(v.GetString(KeyServer)),
		KeyFile:  v.GetString(KeyKeyFile),
		Insecure: v.GetBool(KeyInsecure),
		Raw:      v.GetBool(KeyRaw),
		NoColor:  v.GetBool(KeyNoColor),
		Verbose:  v.GetBool(KeyVerbose),
		Timeout:  v.GetDuration(KeyTimeout),
	}
	if opts.Timeout <= 0 {
		return GlobalOptions{}, fmt.Errorf("timeout must be positive, got: %v", opts.Timeout)
	}
	return opts, nil
}

// RequireServer reports a usable error when no server is configured
func (o GlobalOptions) RequireServer() error {
	if o.Server == "" {
		return fmt.Errorf("no server configured: use --server or set %s_SERVER", EnvPrefix)
	}
	return nil
}

// GNS3Dir returns ~/.gns3, creating it when missing
func GNS3Dir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("could not detect home dir: %w", err)
	}
	dir := filepath.Join(home, ".gns3")
	info, err := os.Stat(dir)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("could not create %q: %w", dir, err)
		}
	case err != nil:
		return "", fmt.Errorf("could not stat %q: %w", dir, err)
	case !info.IsDir():
		return "", fmt.Errorf("%q exists and is not a directory", dir)
	}
	return dir, nil
}

// ExpandPath expands a leading ~ to the home directory
func ExpandPath(p string) (string, error) {
	expanded, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("could not expand %q: %w", p, err)
	}
	return expanded, nil
}
