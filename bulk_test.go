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
	"sync/atomic"
	"testing"
	"time"
)

// TestBulkDelete_Tally verifies every item is counted exactly once
func TestBulkDelete_Tally(t *testing.T) {
	tests := []struct {
		name     string
		items    int
		workers  int
		failures int
	}{
		{"all succeed", 50, 5, 0},
		{"some fail", 50, 5, 7},
		{"all fail", 10, 3, 10},
		{"more workers than items", 3, 20, 1},
		{"default workers", 40, 0, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]string, tt.items)
			failing := make(map[string]bool)
			for i := range ids {
				ids[i] = fmt.Sprintf("u-%02d", i)
				if i < tt.failures {
					failing[ids[i]] = true
				}
			}

			var calls atomic.Int32
			result := BulkDelete(context.Background(), ids, func(_ context.Context, id string) error {
				calls.Add(1)
				if failing[id] {
					return &Error{Kind: KindConflict, Message: "in use"}
				}
				return nil
			}, tt.workers)

			if result.Deleted+result.Failed != tt.items {
				t.Errorf("Deleted+Failed = %d, want %d", result.Deleted+result.Failed, tt.items)
			}
			if result.Failed != tt.failures || len(result.Failures) != tt.failures {
				t.Errorf("Failed = %d (%d recorded), want %d", result.Failed, len(result.Failures), tt.failures)
			}
			if int(calls.Load()) != tt.items {
				t.Errorf("delete called %d times, want %d (no retries)", calls.Load(), tt.items)
			}
			for _, f := range result.Failures {
				if !failing[f.ID] {
					t.Errorf("unexpected failure for %s", f.ID)
				}
			}
		})
	}
}

func TestBulkDelete_Empty(t *testing.T) {
	result := BulkDelete(context.Background(), nil, func(context.Context, string) error {
		t.Error("delete should not be called")
		return nil
	}, 5)
	if result.Deleted != 0 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}
}

func TestBulkDelete_BoundedConcurrency(t *testing.T) {
	ids := make([]string, 30)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}

	var active, peak atomic.Int32
	BulkDelete(context.Background(), ids, func(context.Context, string) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		active.Add(-1)
		return nil
	}, 4)

	if peak.Load() > 4 {
		t.Errorf("peak concurrency = %d, want <= 4", peak.Load())
	}
}

func TestBulkDelete_Panic(t *testing.T) {
	result := BulkDelete(context.Background(), []string{"a", "b"}, func(_ context.Context, id string) error {
		if id == "a" {
			panic("boom")
		}
		return nil
	}, 2)

	if result.Deleted != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v", result)
	}
	if KindOf(result.Failures[0].Err) != KindUnexpected {
		t.Errorf("panic should be recorded as unexpected: %v", result.Failures[0].Err)
	}
}

func TestBulkDelete_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ids := []string{"a", "b", "c", "d"}
	result := BulkDelete(ctx, ids, func(ctx context.Context, _ string) error {
		return ctx.Err()
	}, 2)

	if result.Deleted != 0 || result.Failed != len(ids) {
		t.Errorf("result = %+v, want all failed", result)
	}
	for _, f := range result.Failures {
		if !errors.Is(f.Err, context.Canceled) {
			t.Errorf("failure %s: %v", f.ID, f.Err)
		}
	}
}

// fakeUsers is a minimal user service for the bulk helpers
type fakeUsers struct {
	mu      sync.Mutex
	deleted []string
	created []string
	members []string
	next    int
}

func (f *fakeUsers) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		path := strings.TrimPrefix(r.URL.Path, "/v3/")
		switch {
		case r.Method == http.MethodDelete && strings.HasPrefix(path, "access/users/"):
			id := strings.TrimPrefix(path, "access/users/")
			if id == "locked" {
				w.WriteHeader(http.StatusForbidden)
				io.WriteString(w, `{"message":"Cannot delete"}`)
				return
			}
			f.deleted = append(f.deleted, id)
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodPost && path == "access/users":
			body, _ := io.ReadAll(r.Body)
			if strings.Contains(string(body), `"username":"taken"`) {
				w.WriteHeader(http.StatusConflict)
				io.WriteString(w, `{"message":"User 'taken' already exists"}`)
				return
			}
			f.next++
			id := fmt.Sprintf("id-%d", f.next)
			f.created = append(f.created, id)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"user_id":%q}`, id)
		case r.Method == http.MethodPut && strings.HasPrefix(path, "access/groups/g1/members/"):
			f.members = append(f.members, strings.TrimPrefix(path, "access/groups/g1/members/"))
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestDeleteUsers(t *testing.T) {
	fake := &fakeUsers{}
	client := newTestClient(t, fake.handler(t))

	users := []UserRef{
		{ID: "id-admin", Username: "admin"},
		{ID: "id-1", Username: "student1"},
		{ID: "id-2", Username: "Student2"},
		{ID: "locked", Username: "student3"},
	}

	result := client.DeleteUsers(context.Background(), users, 2, nil)

	if result.Deleted != 2 || result.Failed != 1 {
		t.Errorf("Deleted = %d, Failed = %d, want 2 and 1", result.Deleted, result.Failed)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "admin" {
		t.Errorf("Skipped = %v, want [admin]", result.Skipped)
	}
	if !errors.Is(result.Failures[0].Err, ErrForbidden) {
		t.Errorf("failure = %v, want forbidden", result.Failures[0].Err)
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	for _, id := range fake.deleted {
		if id == "id-admin" {
			t.Errorf("protected user was deleted")
		}
	}
}

func TestDeleteUsers_CustomProtected(t *testing.T) {
	fake := &fakeUsers{}
	client := newTestClient(t, fake.handler(t))

	users := []UserRef{{ID: "id-1", Username: "Instructor"}, {ID: "id-2", Username: "admin"}}
	result := client.DeleteUsers(context.Background(), users, 1, []string{"instructor"})

	if result.Deleted != 1 || len(result.Skipped) != 1 || result.Skipped[0] != "Instructor" {
		t.Errorf("result = %+v", result)
	}
}

func TestCreateUsers(t *testing.T) {
	fake := &fakeUsers{}
	client := newTestClient(t, fake.handler(t))

	users := []NewUser{
		{Username: "student1", Password: "pw"},
		{Username: "taken", Password: "pw"},
		{Username: "student2", Password: "pw", Email: "s2@lab.local"},
	}
	results := client.CreateUsers(context.Background(), users, "g1")

	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].Err != nil || results[0].UserID != "id-1" {
		t.Errorf("results[0] = %+v", results[0])
	}
	if !errors.Is(results[1].Err, ErrConflict) || results[1].UserID != "" {
		t.Errorf("results[1] = %+v, want conflict", results[1])
	}
	if results[2].Err != nil || results[2].UserID != "id-2" {
		t.Errorf("results[2] = %+v", results[2])
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if strings.Join(fake.members, ",") != "id-1,id-2" {
		t.Errorf("group members = %v", fake.members)
	}
}

func TestGenerateUsers(t *testing.T) {
	users := GenerateUsers("student", 3, "pw", "lab.local")
	if len(users) != 3 {
		t.Fatalf("got %d users", len(users))
	}
	want := []string{"student1", "student2", "student3"}
	for i, u := range users {
		if u.Username != want[i] || u.Password != "pw" || u.Email != want[i]+"@lab.local" {
			t.Errorf("users[%d] = %+v", i, u)
		}
	}

	if u := GenerateUsers("x", 1, "pw", ""); u[0].Email != "" {
		t.Errorf("email should be empty without domain")
	}
}
