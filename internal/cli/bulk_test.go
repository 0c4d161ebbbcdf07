// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package cli

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/tidwall/gjson"
)

// directory is a stateful controller holding users and groups
type directory struct {
	mu      sync.Mutex
	users   []string // usernames, ID is "u-<name>"
	groups  []string
	members []string // "<group ID>/<user ID>"
	deleted []string
	created []string
	seen    []string
}

func newDirectory(t *testing.T, users ...string) (*directory, *httptest.Server) {
	t.Helper()
	d := &directory{users: users}
	srv := httptest.NewServer(d)
	t.Cleanup(srv.Close)
	return d, srv
}

func (d *directory) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen = append(d.seen, r.Method+" "+r.URL.Path)
	body, _ := io.ReadAll(r.Body)
	in := gjson.ParseBytes(body)
	path := strings.TrimPrefix(r.URL.Path, "/v3/")
	parts := strings.Split(path, "/")

	switch {
	case r.Method == http.MethodGet && path == "access/users":
		items := make([]string, 0, len(d.users))
		for _, u := range d.users {
			items = append(items, fmt.Sprintf(`{"user_id":"u-%s","username":%q}`, u, u))
		}
		io.WriteString(w, "["+strings.Join(items, ",")+"]")
	case r.Method == http.MethodDelete && len(parts) == 3 && parts[1] == "users":
		name := strings.TrimPrefix(parts[2], "u-")
		if name == "locked" {
			w.WriteHeader(http.StatusForbidden)
			io.WriteString(w, `{"message":"user is locked"}`)
			return
		}
		d.deleted = append(d.deleted, name)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPost && path == "access/users":
		name := in.Get("username").String()
		if name == "taken" {
			w.WriteHeader(http.StatusConflict)
			io.WriteString(w, `{"message":"User 'taken' already exists"}`)
			return
		}
		d.created = append(d.created, name+":"+in.Get("email").String())
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"user_id":"u-%s","username":%q}`, name, name)
	case r.Method == http.MethodGet && path == "access/groups":
		items := make([]string, 0, len(d.groups))
		for _, g := range d.groups {
			items = append(items, fmt.Sprintf(`{"user_group_id":"g-%s","name":%q}`, g, g))
		}
		io.WriteString(w, "["+strings.Join(items, ",")+"]")
	case r.Method == http.MethodPost && path == "access/groups":
		name := in.Get("name").String()
		d.groups = append(d.groups, name)
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"user_group_id":"g-%s","name":%q}`, name, name)
	case r.Method == http.MethodPut && len(parts) == 5 && parts[3] == "members":
		d.members = append(d.members, parts[2]+"/"+parts[4])
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && path == "access/roles":
		io.WriteString(w, `[{"role_id":"r-user","name":"User"}]`)
	case r.Method == http.MethodPost && path == "projects":
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"project_id":%q}`, in.Get("project_id").String())
	case r.Method == http.MethodPost && path == "pools":
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"resource_pool_id":"pool-%s"}`, in.Get("name").String())
	case r.Method == http.MethodPost && path == "access/acl":
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"ace_id":"a1"}`)
	case r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "close",
		r.Method == http.MethodPut && len(parts) == 4 && parts[0] == "pools",
		r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "open":
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodGet && path == "version":
		io.WriteString(w, `{"version":"3.0.0"}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"message":"not here"}`)
	}
}

func (d *directory) snapshot() (deleted, created, members []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	deleted = append([]string(nil), d.deleted...)
	sort.Strings(deleted)
	return deleted, append([]string(nil), d.created...), append([]string(nil), d.members...)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUserBulkDelete(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantOut     []string
		wantDeleted []string
		wantErr     string
	}{
		{
			name:    "no selection",
			args:    []string{},
			wantErr: "name users, or use --prefix or --all",
		},
		{
			name:    "dry run",
			args:    []string{"--prefix", "student"},
			wantOut: []string{"Warning: would delete 2 user(s); rerun with --yes"},
		},
		{
			name:        "prefix",
			args:        []string{"--prefix", "student", "--yes"},
			wantOut:     []string{"Success: deleted 2, failed 0"},
			wantDeleted: []string{"student1", "student2"},
		},
		{
			name:        "all skips protected users",
			args:        []string{"--all", "--yes", "--workers", "2"},
			wantOut:     []string{"Warning: skipped protected user admin", "Success: deleted 3, failed 1"},
			wantDeleted: []string{"bob", "student1", "student2"},
			wantErr:     "1 deletion(s) failed",
		},
		{
			name:        "named users, case insensitive",
			args:        []string{"BOB", "student2", "-y"},
			wantOut:     []string{"Success: deleted 2, failed 0"},
			wantDeleted: []string{"bob", "student2"},
		},
		{
			name:        "custom protected list",
			args:        []string{"--all", "--yes", "--skip", "bob,locked"},
			wantOut:     []string{"skipped protected user bob", "skipped protected user locked", "Success: deleted 3, failed 0"},
			wantDeleted: []string{"admin", "student1", "student2"},
		},
		{
			name:    "no match",
			args:    []string{"--prefix", "guest", "--yes"},
			wantErr: "no users match",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, srv := newDirectory(t, "admin", "bob", "locked", "student1", "student2")

			out, err := run(t, srv, append([]string{"user", "bulk-delete"}, tt.args...)...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("error = %v", err)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("output = %q, want containing %q", out, want)
				}
			}
			deleted, _, _ := d.snapshot()
			if strings.Join(deleted, ",") != strings.Join(tt.wantDeleted, ",") {
				t.Errorf("deleted = %v, want %v", deleted, tt.wantDeleted)
			}
		})
	}
}

func TestUserBulkCreate(t *testing.T) {
	usersFile := writeFile(t, "users.yaml", `
- username: carol
  password: carol-pass-1
  email: carol@lab.local
- username: taken
  password: taken-pass-1
`)

	tests := []struct {
		name        string
		args        []string
		wantOut     []string
		wantCreated []string
		wantMembers []string
		wantErr     string
	}{
		{
			name:    "nothing to create",
			args:    []string{"--count", "3"},
			wantErr: "use --file, or --prefix with --count",
		},
		{
			name:    "prefix without password",
			args:    []string{"--prefix", "student", "--count", "2"},
			wantErr: "--password is required with --prefix",
		},
		{
			name:        "prefix",
			args:        []string{"--prefix", "student", "--count", "2", "--password", "lab-pass-1", "--email-domain", "lab.local"},
			wantOut:     []string{"Success: created student1 (u-student1)", "Success: created student2 (u-student2)"},
			wantCreated: []string{"student1:student1@lab.local", "student2:student2@lab.local"},
		},
		{
			name:        "prefix into a group",
			args:        []string{"--prefix", "student", "--count", "1", "--password", "lab-pass-1", "-g", "netlab"},
			wantCreated: []string{"student1:"},
			wantMembers: []string{"g-netlab/u-student1"},
		},
		{
			name:        "file with a failing user",
			args:        []string{"--file", usersFile},
			wantOut:     []string{"Success: created carol (u-carol)"},
			wantCreated: []string{"carol:carol@lab.local"},
			wantErr:     "1 of 2 users failed",
		},
		{
			name:    "missing file",
			args:    []string{"--file", filepath.Join(t.TempDir(), "none.yaml")},
			wantErr: "failed to read user file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, srv := newDirectory(t)
			d.groups = []string{"netlab"}

			out, err := run(t, srv, append([]string{"user", "bulk-create"}, tt.args...)...)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("error = %v", err)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("output = %q, want containing %q", out, want)
				}
			}
			_, created, members := d.snapshot()
			if strings.Join(created, ",") != strings.Join(tt.wantCreated, ",") {
				t.Errorf("created = %v, want %v", created, tt.wantCreated)
			}
			if strings.Join(members, ",") != strings.Join(tt.wantMembers, ",") {
				t.Errorf("members = %v, want %v", members, tt.wantMembers)
			}
		})
	}
}

func TestScriptRun(t *testing.T) {
	ok := writeFile(t, "ok.yaml", `
options:
  - name: warmup
commands:
  - name: version
    subcommands:
      - name: get
  - name: project
    subcommands:
      - name: open
        args: [p1]
`)
	failing := writeFile(t, "failing.yaml", `
name: broken
commands:
  - name: project
    subcommands:
      - name: open
        args: [p1]
      - name: get
        args: [missing]
      - name: open
        args: [p2]
`)

	t.Run("success", func(t *testing.T) {
		_, srv := newDirectory(t)
		out, err := run(t, srv, "script", "run", ok)
		if err != nil {
			t.Fatalf("script run error = %v", err)
		}
		for _, want := range []string{"Executing script: warmup", "Success: step 1: getVersion", "Success: step 2: openProject", `version: "3.0.0"`} {
			if !strings.Contains(out, want) {
				t.Errorf("output = %q, want containing %q", out, want)
			}
		}
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		d, srv := newDirectory(t)
		out, err := run(t, srv, "script", "run", failing)
		if err == nil || !strings.Contains(err.Error(), "step 2 (getProject) failed") {
			t.Fatalf("script run error = %v", err)
		}
		if !strings.Contains(out, "Success: step 1: openProject") {
			t.Errorf("output = %q", out)
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		for _, req := range d.seen {
			if req == "POST /v3/projects/p2/open" {
				t.Errorf("step after the failure ran")
			}
		}
	})

	t.Run("unreadable script", func(t *testing.T) {
		_, srv := newDirectory(t)
		if _, err := run(t, srv, "script", "run", filepath.Join(t.TempDir(), "none.yaml")); err == nil {
			t.Error("script run on a missing file succeeded")
		}
	})
}

func TestClassCreate(t *testing.T) {
	class := writeFile(t, "class.yaml", `
name: netlab
groups:
  - name: "1"
    students:
      - {userName: alice, password: alice-pass-1}
      - {userName: bob, password: bob-pass-12}
`)

	d, srv := newDirectory(t)
	out, err := run(t, srv, "class", "create", "--file", class)
	if err != nil {
		t.Fatalf("class create error = %v", err)
	}
	for _, want := range []string{"Success: created user alice", "Success: created user bob", "Success: created class netlab with 1 groups and 2 students"} {
		if !strings.Contains(out, want) {
			t.Errorf("output = %q, want containing %q", out, want)
		}
	}
	_, _, members := d.snapshot()
	want := "g-netlab-1/u-alice,g-netlab-1/u-bob,g-netlab/u-alice,g-netlab/u-bob"
	if strings.Join(members, ",") != want {
		t.Errorf("members = %v, want %s", members, want)
	}

	if _, err := run(t, srv, "class", "create"); err == nil || err.Error() != "--file is required" {
		t.Errorf("class create without --file error = %v", err)
	}
	invalid := writeFile(t, "invalid.yaml", "name: netlab\n")
	if _, err := run(t, srv, "class", "create", "-f", invalid); err == nil || !strings.Contains(err.Error(), "needs at least one group") {
		t.Errorf("class create on invalid file error = %v", err)
	}
}

func TestExerciseCreate(t *testing.T) {
	d, srv := newDirectory(t)
	d.groups = []string{"netlab", "netlab-1", "netlab-2", "other-1"}

	out, err := run(t, srv, "exercise", "create", "--class", "netlab", "--name", "ospf")
	if err != nil {
		t.Fatalf("exercise create error = %v", err)
	}
	for _, want := range []string{
		"Success: created netlab-ospf-1 for group netlab-1 (pool pool-netlab-ospf-1-pool)",
		"Success: created netlab-ospf-2 for group netlab-2 (pool pool-netlab-ospf-2-pool)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output = %q, want containing %q", out, want)
		}
	}
	if strings.Contains(out, "other") {
		t.Errorf("exercise created for another class: %q", out)
	}

	if _, err := run(t, srv, "exercise", "create", "-c", "netlab"); err == nil || err.Error() != "--class and --name are required" {
		t.Errorf("exercise create without --name error = %v", err)
	}
	if _, err := run(t, srv, "exercise", "create", "-c", "empty", "-e", "ospf"); err == nil || !strings.Contains(err.Error(), "no groups found for class empty") {
		t.Errorf("exercise create for unknown class error = %v", err)
	}
}
