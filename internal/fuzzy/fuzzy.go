// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package fuzzy ranks resource listings by name and resolves names to IDs.
package fuzzy

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sahilm/fuzzy"
	"github.com/tidwall/gjson"

	"github.com/netascode/go-gns3"
)

// Match is one ranked item of a listing
type Match struct {
	Name  string
	ID    string
	Score int
	Item  gjson.Result
}

// names exposes the name field of a listing to the fuzzy matcher
type names struct {
	items []gjson.Result
	field string
}

func (n names) String(i int) string { return n.items[i].Get(n.field).String() }
func (n names) Len() int            { return len(n.items) }

// Rank orders items by how well their name matches query, best first.
// Items without a match are dropped; an empty query keeps all items in
// listing order.
func Rank(query string, items []gjson.Result, r gns3.Resource) []Match {
	src := names{items: items, field: r.NameField}

	if strings.TrimSpace(query) == "" {
		out := make([]Match, 0, len(items))
		for i, it := range items {
			out = append(out, newMatch(it, r, src.String(i), 0))
		}
		return out
	}

	found := fuzzy.FindFrom(query, src)
	out := make([]Match, 0, len(found))
	for _, m := range found {
		out = append(out, newMatch(items[m.Index], r, m.Str, m.Score))
	}
	return out
}

func newMatch(it gjson.Result, r gns3.Resource, name string, score int) Match {
	return Match{
		Name:  name,
		ID:    it.Get(r.IDField).String(),
		Score: score,
		Item:  it,
	}
}

// Select returns the best match, or every match when multi is set. No match
// is a not-found failure naming query.
func Select(query string, items []gjson.Result, r gns3.Resource, multi bool) ([]Match, error) {
	ranked := Rank(query, items, r)
	if len(ranked) == 0 {
		return nil, notFound(r, query)
	}
	if multi {
		return ranked, nil
	}
	return ranked[:1], nil
}

// IsID reports whether s looks like a controller identifier (a UUID)
func IsID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// ResolveID turns a name into an ID. Values that already are UUIDs are
// returned unchanged without contacting the controller. Names must match
// exactly (case-insensitively); several equal names are ambiguous.
//
// Resources identified by path (images, symbols) are returned unchanged.
func ResolveID(ctx context.Context, client *gns3.Client, r gns3.Resource, projectID, nameOrID string) (string, error) {
	if IsID(nameOrID) || r.IDField == r.NameField || r.IDField == "path" || r.IDField == "symbol_id" {
		return nameOrID, nil
	}

	items, err := client.List(ctx, r, projectID)
	if err != nil {
		return "", err
	}

	var ids []string
	for _, it := range items {
		if strings.EqualFold(it.Get(r.NameField).String(), nameOrID) {
			ids = append(ids, it.Get(r.IDField).String())
		}
	}

	switch len(ids) {
	case 0:
		return "", notFound(r, nameOrID)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%s name %q is ambiguous: %d matches (%s)",
			r.Name, nameOrID, len(ids), strings.Join(ids, ", "))
	}
}

func notFound(r gns3.Resource, name string) *gns3.Error {
	e := gns3.NewError(gns3.KindNotFound, fmt.Sprintf("no %s named %q", r.Name, name))
	e.Resource = name
	return e
}
