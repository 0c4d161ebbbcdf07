// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/tidwall/gjson"
)

const classFile = `{
  "name": "netlab",
  "description": "Networking lab",
  "groups": [
    {"name": "1", "students": [
      {"userName": "alice", "password": "alice-pass-1", "email": "alice@lab.local"},
      {"userName": "bob", "password": "bob-pass-12", "fullName": "Bob B"}
    ]},
    {"name": "netlab-2", "students": [
      {"userName": "carol", "password": "carol-pass-1"}
    ]}
  ]
}`

// fakeAccess serves the group, user, role, project, pool and ACL endpoints
type fakeAccess struct {
	mu       sync.Mutex
	groups   []string            // group names in creation order
	members  map[string][]string // group ID -> user IDs
	projects []string
	closed   []string            // project IDs
	pooled   map[string]string   // pool ID -> project ID
	aces     []gjson.Result

	// names answered with 409
	conflict map[string]bool
}

func newFakeAccess(conflicts ...string) *fakeAccess {
	f := &fakeAccess{
		members:  make(map[string][]string),
		pooled:   make(map[string]string),
		conflict: make(map[string]bool),
	}
	for _, c := range conflicts {
		f.conflict[c] = true
	}
	return f
}

func (f *fakeAccess) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		body, _ := io.ReadAll(r.Body)
		in := gjson.ParseBytes(body)
		path := strings.TrimPrefix(r.URL.Path, "/v3/")
		parts := strings.Split(path, "/")

		created := func(format string, a ...any) {
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, format, a...)
		}

		switch {
		case r.Method == http.MethodPost && (path == "access/groups" || path == "access/users" || path == "pools"):
			name := in.Get("name").String()
			if path == "access/users" {
				name = in.Get("username").String()
			}
			if f.conflict[name] {
				w.WriteHeader(http.StatusConflict)
				fmt.Fprintf(w, `{"message":"%s already exists"}`, name)
				return
			}
			switch path {
			case "access/groups":
				f.groups = append(f.groups, name)
				created(`{"user_group_id":"g-%s","name":%q}`, name, name)
			case "access/users":
				created(`{"user_id":"u-%s","username":%q}`, name, name)
			default:
				created(`{"resource_pool_id":"pool-%s","name":%q}`, name, name)
			}
		case r.Method == http.MethodGet && path == "access/groups":
			items := make([]string, 0, len(f.groups))
			for _, g := range f.groups {
				items = append(items, fmt.Sprintf(`{"user_group_id":"g-%s","name":%q}`, g, g))
			}
			io.WriteString(w, "["+strings.Join(items, ",")+"]")
		case r.Method == http.MethodPut && len(parts) == 5 && parts[1] == "groups" && parts[3] == "members":
			f.members[parts[2]] = append(f.members[parts[2]], parts[4])
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodGet && path == "access/roles":
			io.WriteString(w, `[{"role_id":"r-admin","name":"Administrator"},{"role_id":"r-user","name":"User"}]`)
		case r.Method == http.MethodPost && path == "projects":
			f.projects = append(f.projects, in.Get("name").String())
			created(`{"project_id":%q,"name":%q}`, in.Get("project_id").String(), in.Get("name").String())
		case r.Method == http.MethodPost && len(parts) == 3 && parts[0] == "projects" && parts[2] == "close":
			f.closed = append(f.closed, parts[1])
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPut && len(parts) == 4 && parts[0] == "pools" && parts[2] == "resources":
			f.pooled[parts[1]] = parts[3]
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && path == "access/acl":
			f.aces = append(f.aces, in)
			created(`{"ace_id":"a%d"}`, len(f.aces))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestLoadClass(t *testing.T) {
	class, err := LoadClass(strings.NewReader(classFile))
	if err != nil {
		t.Fatalf("LoadClass() error = %v", err)
	}
	if class.Name != "netlab" || len(class.Groups) != 2 || class.Groups[0].Students[1].FullName != "Bob B" {
		t.Errorf("class = %+v", class)
	}

	yamlClass := "name: netlab\ngroups:\n  - name: \"1\"\n    students:\n      - {userName: dave, password: dave-pass-1}\n"
	if _, err := LoadClass(strings.NewReader(yamlClass)); err != nil {
		t.Errorf("LoadClass() on YAML error = %v", err)
	}
}

func TestLoadClass_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"empty", "", "class file is empty"},
		{"unknown field", `{"name":"x","teams":[]}`, "failed to parse class file"},
		{"no name", `{"groups":[{"name":"1","students":[]}]}`, "class name is required"},
		{"no groups", `{"name":"x"}`, "needs at least one group"},
		{"unnamed group", `{"name":"x","groups":[{"students":[]}]}`, "group 1 of class x has no name"},
		{"short password", `{"name":"x","groups":[{"name":"1","students":[{"userName":"a","password":"short"}]}]}`, "at least 8 characters"},
		{"duplicate student", `{"name":"x","groups":[
			{"name":"1","students":[{"userName":"a","password":"long-enough"}]},
			{"name":"2","students":[{"userName":"A","password":"long-enough"}]}]}`, "listed twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadClass(strings.NewReader(tt.input))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadClass() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestClass_GroupName(t *testing.T) {
	class := Class{Name: "netlab"}
	tests := []struct {
		group string
		want  string
	}{
		{"1", "netlab-1"},
		{"netlab-2", "netlab-2"},
		{"red team", "netlab-red team"},
	}
	for _, tt := range tests {
		t.Run(tt.group, func(t *testing.T) {
			if got := class.GroupName(StudentGroup{Name: tt.group}); got != tt.want {
				t.Errorf("GroupName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCreateClass(t *testing.T) {
	fake := newFakeAccess()
	client := newTestClient(t, fake.handler(t))

	class, err := LoadClass(strings.NewReader(classFile))
	if err != nil {
		t.Fatal(err)
	}
	result, err := client.CreateClass(context.Background(), class)
	if err != nil {
		t.Fatalf("CreateClass() error = %v", err)
	}

	if result.ClassGroupID != "g-netlab" {
		t.Errorf("ClassGroupID = %q", result.ClassGroupID)
	}
	wantGroups := []string{"netlab", "netlab-1", "netlab-2"}
	if strings.Join(fake.groups, ",") != strings.Join(wantGroups, ",") {
		t.Errorf("groups created = %v, want %v", fake.groups, wantGroups)
	}
	if result.GroupIDs["netlab-1"] != "g-netlab-1" || result.GroupIDs["netlab-2"] != "g-netlab-2" {
		t.Errorf("GroupIDs = %v", result.GroupIDs)
	}
	if len(result.Users) != 3 {
		t.Fatalf("Users = %+v", result.Users)
	}

	members := map[string]string{
		"g-netlab":   "u-alice,u-bob,u-carol",
		"g-netlab-1": "u-alice,u-bob",
		"g-netlab-2": "u-carol",
	}
	for group, want := range members {
		if got := strings.Join(fake.members[group], ","); got != want {
			t.Errorf("members of %s = %s, want %s", group, got, want)
		}
	}
}

func TestCreateClass_StopsAtFailingGroup(t *testing.T) {
	fake := newFakeAccess("bob")
	client := newTestClient(t, fake.handler(t))

	class, _ := LoadClass(strings.NewReader(classFile))
	result, err := client.CreateClass(context.Background(), class)

	if !errors.Is(err, ErrConflict) {
		t.Fatalf("CreateClass() error = %v, want conflict", err)
	}
	// alice and bob were tried, group netlab-2 never created
	if len(result.Users) != 2 || result.Users[0].Err != nil || result.Users[1].Err == nil {
		t.Errorf("Users = %+v", result.Users)
	}
	for _, g := range fake.groups {
		if g == "netlab-2" {
			t.Errorf("group after the failure was created")
		}
	}
}

func TestCreateClass_ClassGroupExists(t *testing.T) {
	fake := newFakeAccess("netlab")
	client := newTestClient(t, fake.handler(t))

	class, _ := LoadClass(strings.NewReader(classFile))
	_, err := client.CreateClass(context.Background(), class)
	if !errors.Is(err, ErrConflict) || !strings.HasPrefix(err.Error(), "class group netlab: ") {
		t.Errorf("CreateClass() error = %v", err)
	}
	if len(fake.groups) != 0 {
		t.Errorf("groups created = %v", fake.groups)
	}
}

func TestCreateExercise(t *testing.T) {
	fake := newFakeAccess()
	fake.groups = []string{"netlab", "netlab-1", "netlab-2", "otherclass-1"}
	client := newTestClient(t, fake.handler(t))

	projects, err := client.CreateExercise(context.Background(), "netlab", "ospf")
	if err != nil {
		t.Fatalf("CreateExercise() error = %v", err)
	}
	if len(projects) != 2 {
		t.Fatalf("projects = %+v", projects)
	}

	wantNames := []string{"netlab-ospf-1", "netlab-ospf-2"}
	if strings.Join(fake.projects, ",") != strings.Join(wantNames, ",") {
		t.Errorf("projects created = %v, want %v", fake.projects, wantNames)
	}

	for i, p := range projects {
		if !contains(fake.closed, p.ProjectID) {
			t.Errorf("project %s was not closed", p.ProjectID)
		}
		if p.PoolID != "pool-"+wantNames[i]+"-pool" || fake.pooled[p.PoolID] != p.ProjectID {
			t.Errorf("project %s pool = %q, pooled %v", p.ProjectID, p.PoolID, fake.pooled)
		}

		ace := fake.aces[i]
		checks := map[string]string{
			"ace_type":  "group",
			"allowed":   "true",
			"group_id":  p.GroupID,
			"path":      "/pools/" + p.PoolID,
			"propagate": "true",
			"role_id":   "r-user",
		}
		for field, want := range checks {
			if got := ace.Get(field).String(); got != want {
				t.Errorf("ace %d %s = %q, want %q", i, field, got, want)
			}
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestCreateExercise_Errors(t *testing.T) {
	tests := []struct {
		name     string
		groups   []string
		conflict []string
		class    string
		wantKind ErrorKind
		wantErr  string
	}{
		{
			name:    "missing names",
			class:   "",
			wantErr: "class and exercise names are required",
		},
		{
			name:     "class without groups",
			groups:   []string{"netlab"},
			class:    "netlab",
			wantKind: KindEmptyResponse,
			wantErr:  "no groups found for class netlab",
		},
		{
			name:     "pool exists",
			groups:   []string{"netlab-1"},
			conflict: []string{"netlab-ospf-1-pool"},
			class:    "netlab",
			wantKind: KindConflict,
			wantErr:  "exercise ospf for group netlab-1: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeAccess(tt.conflict...)
			fake.groups = tt.groups
			client := newTestClient(t, fake.handler(t))

			_, err := client.CreateExercise(context.Background(), tt.class, "ospf")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("CreateExercise() error = %v, want containing %q", err, tt.wantErr)
			}
			if tt.wantKind != 0 && KindOf(err) != tt.wantKind {
				t.Errorf("kind = %s, want %s", KindOf(err), tt.wantKind)
			}
		})
	}
}

func TestCreateExercise_RoleMissing(t *testing.T) {
	client := newTestClient(t, respond(200, `[{"role_id":"r-admin","name":"Administrator"}]`))

	_, err := client.CreateExercise(context.Background(), "netlab", "ospf")
	e, ok := AsError(err)
	if !ok || e.Kind != KindNotFound || e.Resource != ExerciseRole {
		t.Errorf("CreateExercise() error = %v", err)
	}
}
