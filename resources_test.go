// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestLookupResource(t *testing.T) {
	tests := []struct {
		name      string
		wantName  string
		wantFound bool
	}{
		{"user", "user", true},
		{"Users", "user", true},
		{" nodes ", "node", true},
		{"snapshot", "snapshot", true},
		{"widget", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := LookupResource(tt.name)
			if ok != tt.wantFound || r.Name != tt.wantName {
				t.Errorf("LookupResource(%q) = %q, %v", tt.name, r.Name, ok)
			}
		})
	}
}

func TestResourcePaths(t *testing.T) {
	tests := []struct {
		resource string
		project  string
		id       string
		wantList string
		wantItem string
	}{
		{"user", "", "u1", "access/users", "access/users/u1"},
		{"group", "", "g1", "access/groups", "access/groups/g1"},
		{"acl", "", "a1", "access/acl", "access/acl/a1"},
		{"pool", "", "rp1", "pools", "pools/rp1"},
		{"image", "", "qemu/vm.qcow2", "images", "images/qemu/vm.qcow2"},
		{"node", "p1", "n1", "projects/p1/nodes", "projects/p1/nodes/n1"},
		{"link", "p1", "l1", "projects/p1/links", "projects/p1/links/l1"},
		{"snapshot", "p1", "s1", "projects/p1/snapshots", "projects/p1/snapshots/s1"},
	}

	for _, tt := range tests {
		t.Run(tt.resource, func(t *testing.T) {
			r, ok := LookupResource(tt.resource)
			if !ok {
				t.Fatalf("resource %s not registered", tt.resource)
			}
			if got := r.ListPath(tt.project); got != tt.wantList {
				t.Errorf("ListPath() = %q, want %q", got, tt.wantList)
			}
			if got := r.ItemPath(tt.project, tt.id); got != tt.wantItem {
				t.Errorf("ItemPath() = %q, want %q", got, tt.wantItem)
			}
		})
	}
}

func TestResourceNames(t *testing.T) {
	names := ResourceNames()
	if len(names) != len(resourceList) {
		t.Fatalf("ResourceNames() = %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted and unique at %d: %v", i, names)
		}
	}
}

func TestList(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/access/users":
			w.Write([]byte(`[{"user_id":"u1","username":"admin"},{"user_id":"u2","username":"alice"}]`))
		case "/v3/projects/p1/nodes":
			w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"not found"}`))
		}
	})

	users, _ := LookupResource("user")
	items, err := client.List(context.Background(), users, "")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 2 || items[1].Get("username").String() != "alice" {
		t.Errorf("items = %v", items)
	}

	nodes, _ := LookupResource("node")
	_, err = client.List(context.Background(), nodes, "p1")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("empty listing err = %v, want empty response", err)
	}
	if e, _ := AsError(err); e == nil || e.Message != "no nodes found" {
		t.Errorf("empty listing message = %v", err)
	}

	if _, err := client.List(context.Background(), nodes, ""); err == nil {
		t.Errorf("scoped listing without project should fail")
	}
}
