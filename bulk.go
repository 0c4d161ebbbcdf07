// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// DefaultBulkWorkers is the pool size used when BulkDelete gets workers <= 0
const DefaultBulkWorkers = 20

// DefaultProtectedUsers are never removed by DeleteUsers
var DefaultProtectedUsers = []string{"admin"}

// BulkFailure records one failed item of a bulk operation
type BulkFailure struct {
	ID  string
	Err error
}

// BulkResult summarizes a bulk operation. Deleted+Failed always equals the
// number of items submitted.
type BulkResult struct {
	Deleted  int
	Failed   int
	Failures []BulkFailure

	// Skipped lists protected items that were never submitted
	Skipped []string
}

type bulkOutcome struct {
	id  string
	err error
}

// BulkDelete runs del for every id on a bounded pool of workers (default
// DefaultBulkWorkers). Workers only report (id, err); the tally is kept by
// the calling goroutine. A failed item is not retried.
//
// When ctx is done, items not yet started are counted as failed with the
// context error.
//
// Example:
//
//	result := gns3.BulkDelete(ctx, ids, func(ctx context.Context, id string) error {
//	    _, err := client.Delete(ctx, gns3.Endpoints.User(id))
//	    return err
//	}, 10)
//	fmt.Printf("deleted %d, failed %d\n", result.Deleted, result.Failed)
func BulkDelete(ctx context.Context, ids []string, del func(context.Context, string) error, workers int) BulkResult {
	if workers <= 0 {
		workers = DefaultBulkWorkers
	}
	if workers > len(ids) {
		workers = len(ids)
	}

	jobs := make(chan string)
	results := make(chan bulkOutcome, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				results <- bulkOutcome{id: id, err: safeDelete(ctx, id, del)}
			}
		}()
	}

	go func() {
		defer close(results)
		defer wg.Wait()
		defer close(jobs)
		for i, id := range ids {
			select {
			case jobs <- id:
			case <-ctx.Done():
				for _, rest := range ids[i:] {
					results <- bulkOutcome{id: rest, err: ctx.Err()}
				}
				return
			}
		}
	}()

	var result BulkResult
	for out := range results {
		if out.err != nil {
			result.Failed++
			result.Failures = append(result.Failures, BulkFailure{ID: out.id, Err: out.err})
			continue
		}
		result.Deleted++
	}
	return result
}

// safeDelete converts a panic in del into a failure for that item
func safeDelete(ctx context.Context, id string, del func(context.Context, string) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindUnexpected, Message: fmt.Sprintf("panic deleting %s: %v", id, r)}
		}
	}()
	return del(ctx, id)
}

// UserRef identifies a user for bulk deletion
type UserRef struct {
	ID       string
	Username string
}

// DeleteUsers deletes users concurrently through BulkDelete. Users whose
// username is in protected (DefaultProtectedUsers when nil) are skipped and
// listed in BulkResult.Skipped.
func (c *Client) DeleteUsers(ctx context.Context, users []UserRef, workers int, protected []string) BulkResult {
	if protected == nil {
		protected = DefaultProtectedUsers
	}
	skip := make(map[string]bool, len(protected))
	for _, name := range protected {
		skip[strings.ToLower(name)] = true
	}

	var ids, skipped []string
	for _, u := range users {
		if skip[strings.ToLower(u.Username)] {
			skipped = append(skipped, u.Username)
			continue
		}
		ids = append(ids, u.ID)
	}

	c.logger.Info(ctx, "Bulk user deletion started",
		"users", len(ids),
		"skipped", len(skipped),
		"workers", workers)

	result := BulkDelete(ctx, ids, func(ctx context.Context, id string) error {
		_, err := c.Delete(ctx, Endpoints.User(id))
		return err
	}, workers)
	result.Skipped = skipped

	c.logger.Info(ctx, "Bulk user deletion finished",
		"deleted", result.Deleted,
		"failed", result.Failed)

	return result
}

// NewUser is the payload of a user created by CreateUsers
type NewUser struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"password"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	FullName string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
}

func (u NewUser) body() Body {
	return Body{}.
		Set("username", u.Username).
		Set("password", u.Password).
		SetIf(u.Email != "", "email", u.Email).
		SetIf(u.FullName != "", "full_name", u.FullName)
}

// CreateResult is the outcome of creating one user
type CreateResult struct {
	Username string

	// UserID is set once the user exists
	UserID string

	// Err is the creation or group membership failure, if any
	Err error
}

// CreateUsers creates users one after another. The new ID is read from the
// "user_id" field of each response. When groupID is non-empty every created
// user is added to that group; a membership failure is recorded on the
// user's result but the user stays created.
func (c *Client) CreateUsers(ctx context.Context, users []NewUser, groupID string) []CreateResult {
	results := make([]CreateResult, 0, len(users))
	for _, u := range users {
		r := CreateResult{Username: u.Username}

		res, err := c.Post(ctx, Endpoints.Users(), u.body())
		if err != nil {
			r.Err = err
			results = append(results, r)
			continue
		}

		id, err := requireID(res, "user_id", MethodPost+" "+Endpoints.Users())
		if err != nil {
			r.Err = err
			results = append(results, r)
			continue
		}
		r.UserID = id

		if groupID != "" {
			if _, err := c.Put(ctx, Endpoints.GroupMember(groupID, id), nil); err != nil {
				r.Err = fmt.Errorf("user %s created but not added to group %s: %w", u.Username, groupID, err)
			}
		}

		results = append(results, r)
	}
	return results
}

// GenerateUsers builds count users named <prefix><n>, n starting at 1, all
// sharing password
func GenerateUsers(prefix string, count int, password, emailDomain string) []NewUser {
	users := make([]NewUser, 0, count)
	for i := 1; i <= count; i++ {
		name := fmt.Sprintf("%s%d", prefix, i)
		u := NewUser{Username: name, Password: password}
		if emailDomain != "" {
			u.Email = name + "@" + emailDomain
		}
		users = append(users, u)
	}
	return users
}
