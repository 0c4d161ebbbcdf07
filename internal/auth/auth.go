// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package auth stores controller access tokens in a JSON-lines key file,
// one entry per server.
package auth

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/netascode/go-gns3"
	"github.com/netascode/go-gns3/internal/config"
)

// KeyFileName is the default file name inside ~/.gns3
const KeyFileName = "gns3key"

// Key is one line of the key file
type Key struct {
	ServerURL   string `json:"server_url"`
	User        string `json:"user"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Store reads and writes the key file at Path
type Store struct {
	Path string
}

// NewStore opens the store at keyFile. An empty keyFile selects
// ~/.gns3/gns3key; a directory selects gns3key inside it.
func NewStore(keyFile string) (*Store, error) {
	if keyFile == "" {
		dir, err := config.GNS3Dir()
		if err != nil {
			return nil, err
		}
		return &Store{Path: filepath.Join(dir, KeyFileName)}, nil
	}

	path, err := config.ExpandPath(keyFile)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	switch {
	case err == nil && info.IsDir():
		path = filepath.Join(path, KeyFileName)
	case err != nil && !os.IsNotExist(err):
		return nil, fmt.Errorf("could not stat %q: %w", path, err)
	}
	return &Store{Path: path}, nil
}

// Load returns all keys. A missing file yields no keys and no error.
func (s *Store) Load() ([]Key, error) {
	f, err := os.Open(s.Path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not open %q: %w", s.Path, err)
	}
	defer f.Close()

	var keys []Key
	dec := json.NewDecoder(bufio.NewReader(f))
	for {
		var k Key
		if err := dec.Decode(&k); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode key file %q: %w", s.Path, err)
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// LoadToken returns the stored token for server
func (s *Store) LoadToken(server string) (string, bool) {
	keys, err := s.Load()
	if err != nil {
		return "", false
	}
	want := NormalizeServer(server)
	for _, k := range keys {
		if NormalizeServer(k.ServerURL) == want && k.AccessToken != "" {
			return k.AccessToken, true
		}
	}
	return "", false
}

// Save stores key, replacing an existing entry for the same server
func (s *Store) Save(key Key) error {
	keys, err := s.Load()
	if err != nil {
		return err
	}

	want := NormalizeServer(key.ServerURL)
	replaced := false
	for i := range keys {
		if NormalizeServer(keys[i].ServerURL) == want {
			keys[i] = key
			replaced = true
			break
		}
	}
	if !replaced {
		keys = append(keys, key)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o700); err != nil {
		return fmt.Errorf("could not create key directory: %w", err)
	}
	f, err := os.OpenFile(s.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open key file %q: %w", s.Path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, k := range keys {
		if err := enc.Encode(k); err != nil {
			return fmt.Errorf("failed to write key file: %w", err)
		}
	}
	return w.Flush()
}

// NormalizeServer reduces a server URL to its host, so http/https and port
// variants of the same controller share one entry
func NormalizeServer(server string) string {
	s := strings.TrimSpace(strings.ToLower(server))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	if strings.HasPrefix(s, "[") {
		if i := strings.IndexByte(s, ']'); i >= 0 {
			return s[:i+1]
		}
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	return s
}

// TokenSource adapts the store to gns3.TokenSource for one server
func (s *Store) TokenSource(server string) gns3.TokenSource {
	return gns3.TokenFunc(func() (string, bool) {
		return s.LoadToken(server)
	})
}

// ValidateToken reports whether the client's token is accepted by the
// controller
func ValidateToken(ctx context.Context, client *gns3.Client) bool {
	if !client.HasCredentials() {
		return false
	}
	_, err := client.Get(ctx, gns3.Endpoints.Me())
	return err == nil
}

// Login authenticates against the controller and returns the key to store
func Login(ctx context.Context, client *gns3.Client, username, password string) (Key, error) {
	body := gns3.Body{}.
		Set("username", username).
		Set("password", password)

	res, err := client.Post(ctx, gns3.Endpoints.Authenticate(), body)
	if err != nil {
		return Key{}, err
	}

	token, ok := res.ID("access_token")
	if !ok {
		return Key{}, gns3.NewError(gns3.KindBodyDecodeFailed, "authentication response has no access_token")
	}
	tokenType := res.GetValue("token_type").String()
	if tokenType == "" {
		tokenType = "bearer"
	}

	return Key{
		ServerURL:   client.BaseURL,
		User:        username,
		AccessToken: token,
		TokenType:   tokenType,
	}, nil
}
