// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// Resource describes how a controller resource type is listed and identified
type Resource struct {
	// Name is the CLI name, e.g. "user" or "node"
	Name string

	// IDField is the JSON field holding the identifier
	IDField string

	// NameField is the JSON field holding the human-readable name
	NameField string

	// ProjectScoped resources are listed below a project
	ProjectScoped bool

	list func(projectID string) string
}

// ListPath returns the listing endpoint. projectID is ignored for resources
// that are not project scoped.
func (r Resource) ListPath(projectID string) string {
	return r.list(projectID)
}

// ItemPath returns the endpoint of a single item
func (r Resource) ItemPath(projectID, id string) string {
	if r.Name == "image" {
		return Endpoints.Image(id)
	}
	return r.list(projectID) + "/" + seg(id)
}

func global(path func() string) func(string) string {
	return func(string) string { return path() }
}

var resourceList = []Resource{
	{Name: "user", IDField: "user_id", NameField: "username", list: global(Endpoints.Users)},
	{Name: "group", IDField: "user_group_id", NameField: "name", list: global(Endpoints.Groups)},
	{Name: "role", IDField: "role_id", NameField: "name", list: global(Endpoints.Roles)},
	{Name: "privilege", IDField: "privilege_id", NameField: "name", list: global(Endpoints.Privileges)},
	{Name: "acl", IDField: "ace_id", NameField: "path", list: global(Endpoints.ACL)},
	{Name: "template", IDField: "template_id", NameField: "name", list: global(Endpoints.Templates)},
	{Name: "project", IDField: "project_id", NameField: "name", list: global(Endpoints.Projects)},
	{Name: "compute", IDField: "compute_id", NameField: "name", list: global(Endpoints.Computes)},
	{Name: "pool", IDField: "resource_pool_id", NameField: "name", list: global(Endpoints.Pools)},
	{Name: "image", IDField: "path", NameField: "filename", list: global(Endpoints.Images)},
	{Name: "appliance", IDField: "appliance_id", NameField: "name", list: global(Endpoints.Appliances)},
	{Name: "symbol", IDField: "symbol_id", NameField: "filename", list: global(Endpoints.Symbols)},
	{Name: "node", IDField: "node_id", NameField: "name", ProjectScoped: true, list: Endpoints.Nodes},
	{Name: "link", IDField: "link_id", NameField: "link_id", ProjectScoped: true, list: Endpoints.Links},
	{Name: "drawing", IDField: "drawing_id", NameField: "drawing_id", ProjectScoped: true, list: Endpoints.Drawings},
	{Name: "snapshot", IDField: "snapshot_id", NameField: "name", ProjectScoped: true, list: Endpoints.Snapshots},
}

var resourceIndex = func() map[string]Resource {
	idx := make(map[string]Resource, 2*len(resourceList))
	for _, r := range resourceList {
		idx[r.Name] = r
		idx[r.Name+"s"] = r
	}
	return idx
}()

// LookupResource finds a resource type by singular or plural name
func LookupResource(name string) (Resource, bool) {
	r, ok := resourceIndex[strings.ToLower(strings.TrimSpace(name))]
	return r, ok
}

// ResourceNames returns the singular names of all resource types, sorted
func ResourceNames() []string {
	names := make([]string, 0, len(resourceList))
	for _, r := range resourceList {
		names = append(names, r.Name)
	}
	sort.Strings(names)
	return names
}

// List fetches all items of a resource type. An empty listing is reported as
// KindEmptyResponse so callers resolving names get a typed failure.
func (c *Client) List(ctx context.Context, r Resource, projectID string) ([]gjson.Result, error) {
	if r.ProjectScoped && projectID == "" {
		return nil, fmt.Errorf("%s listing requires a project ID", r.Name)
	}
	res, err := c.Get(ctx, r.ListPath(projectID))
	if err != nil {
		return nil, err
	}
	items := res.Items()
	if len(items) == 0 {
		return nil, &Error{
			Kind:      KindEmptyResponse,
			Operation: MethodGet + " " + r.ListPath(projectID),
			Message:   fmt.Sprintf("no %ss found", r.Name),
		}
	}
	return items, nil
}
