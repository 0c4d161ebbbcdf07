// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Operation is a named controller call: a method, an endpoint builder and the
// names of the positional arguments the builder needs.
//
// Operations back the YAML script runner and the generic resource commands
// of the CLI, so a step such as
//
//	- name: createUser
//	  body: {username: alice, password: s3cret-pass}
//
// dispatches exactly like client.Post(ctx, gns3.Endpoints.Users(), body).
type Operation struct {
	Name   string
	Method string

	// Args names the positional arguments, in order
	Args []string

	// Body reports whether the operation sends a JSON payload
	Body bool

	path func(args []string) string
}

// Path builds the endpoint for args. It panics when len(args) differs from
// len(op.Args); use Client.Run for checked dispatch.
func (op Operation) Path(args ...string) string {
	return op.path(args)
}

// Usage renders "name <arg1> <arg2>"
func (op Operation) Usage() string {
	if len(op.Args) == 0 {
		return op.Name
	}
	return op.Name + " <" + strings.Join(op.Args, "> <") + ">"
}

func op0(name, method string, body bool, path func() string) Operation {
	return Operation{Name: name, Method: method, Body: body,
		path: func([]string) string { return path() }}
}

func op1(name, method string, body bool, a string, path func(string) string) Operation {
	return Operation{Name: name, Method: method, Body: body, Args: []string{a},
		path: func(args []string) string { return path(args[0]) }}
}

func op2(name, method string, body bool, a, b string, path func(string, string) string) Operation {
	return Operation{Name: name, Method: method, Body: body, Args: []string{a, b},
		path: func(args []string) string { return path(args[0], args[1]) }}
}

var ep = Endpoints

var operationList = []Operation{
	// controller
	op0("getVersion", MethodGet, false, ep.Version),
	op0("getStatistics", MethodGet, false, ep.Statistics),
	op0("getIouLicense", MethodGet, false, ep.IOULicense),
	op0("updateIouLicense", MethodPut, true, ep.IOULicense),

	// users
	op0("getMe", MethodGet, false, ep.Me),
	op0("updateMe", MethodPut, true, ep.Me),
	op0("getUsers", MethodGet, false, ep.Users),
	op1("getUser", MethodGet, false, "user_id", ep.User),
	op1("getUserGroups", MethodGet, false, "user_id", ep.UserGroups),
	op0("createUser", MethodPost, true, ep.Users),
	op1("updateUser", MethodPut, true, "user_id", ep.User),
	op1("deleteUser", MethodDelete, false, "user_id", ep.User),

	// groups
	op0("getGroups", MethodGet, false, ep.Groups),
	op1("getGroup", MethodGet, false, "group_id", ep.Group),
	op1("getGroupMembers", MethodGet, false, "group_id", ep.GroupMembers),
	op0("createGroup", MethodPost, true, ep.Groups),
	op1("updateGroup", MethodPut, true, "group_id", ep.Group),
	op1("deleteGroup", MethodDelete, false, "group_id", ep.Group),
	op2("addGroupMember", MethodPut, false, "group_id", "user_id", ep.GroupMember),
	op2("removeGroupMember", MethodDelete, false, "group_id", "user_id", ep.GroupMember),

	// roles and privileges
	op0("getRoles", MethodGet, false, ep.Roles),
	op1("getRole", MethodGet, false, "role_id", ep.Role),
	op1("getRolePrivileges", MethodGet, false, "role_id", ep.RolePrivileges),
	op0("createRole", MethodPost, true, ep.Roles),
	op1("updateRole", MethodPut, true, "role_id", ep.Role),
	op1("deleteRole", MethodDelete, false, "role_id", ep.Role),
	op2("addRolePrivilege", MethodPut, false, "role_id", "privilege_id", ep.RolePrivilege),
	op2("removeRolePrivilege", MethodDelete, false, "role_id", "privilege_id", ep.RolePrivilege),
	op0("getPrivileges", MethodGet, false, ep.Privileges),

	// acl
	op0("getAcl", MethodGet, false, ep.ACL),
	op0("getAclEndpoints", MethodGet, false, ep.ACLEndpoints),
	op1("getAce", MethodGet, false, "ace_id", ep.ACE),
	op0("createAce", MethodPost, true, ep.ACL),
	op1("updateAce", MethodPut, true, "ace_id", ep.ACE),
	op1("deleteAce", MethodDelete, false, "ace_id", ep.ACE),

	// templates
	op0("getTemplates", MethodGet, false, ep.Templates),
	op1("getTemplate", MethodGet, false, "template_id", ep.Template),
	op0("createTemplate", MethodPost, true, ep.Templates),
	op1("updateTemplate", MethodPut, true, "template_id", ep.Template),
	op1("deleteTemplate", MethodDelete, false, "template_id", ep.Template),
	op1("duplicateTemplate", MethodPost, true, "template_id", ep.TemplateDuplicate),

	// projects
	op0("getProjects", MethodGet, false, ep.Projects),
	op1("getProject", MethodGet, false, "project_id", ep.Project),
	op1("getProjectStats", MethodGet, false, "project_id", ep.ProjectStats),
	op1("getProjectLocked", MethodGet, false, "project_id", ep.ProjectLocked),
	op0("createProject", MethodPost, true, ep.Projects),
	op1("updateProject", MethodPut, true, "project_id", ep.Project),
	op1("deleteProject", MethodDelete, false, "project_id", ep.Project),
	op1("openProject", MethodPost, false, "project_id", ep.ProjectOpen),
	op1("closeProject", MethodPost, false, "project_id", ep.ProjectClose),
	op1("lockProject", MethodPost, false, "project_id", ep.ProjectLock),
	op1("unlockProject", MethodPost, false, "project_id", ep.ProjectUnlock),
	op1("duplicateProject", MethodPost, true, "project_id", ep.ProjectDuplicate),
	op2("createNodeFromTemplate", MethodPost, true, "project_id", "template_id", ep.ProjectNodeFromTemplate),

	// nodes
	op1("getNodes", MethodGet, false, "project_id", ep.Nodes),
	op2("getNode", MethodGet, false, "project_id", "node_id", ep.Node),
	op2("getNodeLinks", MethodGet, false, "project_id", "node_id", ep.NodeLinks),
	op1("createNode", MethodPost, true, "project_id", ep.Nodes),
	op2("updateNode", MethodPut, true, "project_id", "node_id", ep.Node),
	op2("deleteNode", MethodDelete, false, "project_id", "node_id", ep.Node),
	op1("startNodes", MethodPost, false, "project_id", nodesAction("start")),
	op1("stopNodes", MethodPost, false, "project_id", nodesAction("stop")),
	op1("suspendNodes", MethodPost, false, "project_id", nodesAction("suspend")),
	op1("reloadNodes", MethodPost, false, "project_id", nodesAction("reload")),
	op2("startNode", MethodPost, false, "project_id", "node_id", nodeAction("start")),
	op2("stopNode", MethodPost, false, "project_id", "node_id", nodeAction("stop")),
	op2("suspendNode", MethodPost, false, "project_id", "node_id", nodeAction("suspend")),
	op2("reloadNode", MethodPost, false, "project_id", "node_id", nodeAction("reload")),
	op2("duplicateNode", MethodPost, true, "project_id", "node_id", nodeAction("duplicate")),

	// links
	op1("getLinks", MethodGet, false, "project_id", ep.Links),
	op2("getLink", MethodGet, false, "project_id", "link_id", ep.Link),
	op2("getLinkFilters", MethodGet, false, "project_id", "link_id", ep.LinkFilters),
	op1("createLink", MethodPost, true, "project_id", ep.Links),
	op2("updateLink", MethodPut, true, "project_id", "link_id", ep.Link),
	op2("deleteLink", MethodDelete, false, "project_id", "link_id", ep.Link),
	op2("startCapture", MethodPost, true, "project_id", "link_id", ep.LinkCaptureStart),
	op2("stopCapture", MethodPost, false, "project_id", "link_id", ep.LinkCaptureStop),

	// drawings
	op1("getDrawings", MethodGet, false, "project_id", ep.Drawings),
	op2("getDrawing", MethodGet, false, "project_id", "drawing_id", ep.Drawing),
	op1("createDrawing", MethodPost, true, "project_id", ep.Drawings),
	op2("updateDrawing", MethodPut, true, "project_id", "drawing_id", ep.Drawing),
	op2("deleteDrawing", MethodDelete, false, "project_id", "drawing_id", ep.Drawing),

	// snapshots
	op1("getSnapshots", MethodGet, false, "project_id", ep.Snapshots),
	op1("createSnapshot", MethodPost, true, "project_id", ep.Snapshots),
	op2("deleteSnapshot", MethodDelete, false, "project_id", "snapshot_id", ep.Snapshot),
	op2("restoreSnapshot", MethodPost, false, "project_id", "snapshot_id", ep.SnapshotRestore),

	// symbols
	op0("getSymbols", MethodGet, false, ep.Symbols),
	op0("getDefaultSymbols", MethodGet, false, ep.DefaultSymbols),

	// computes
	op0("getComputes", MethodGet, false, ep.Computes),
	op1("getCompute", MethodGet, false, "compute_id", ep.Compute),
	op0("createCompute", MethodPost, true, ep.Computes),
	op1("updateCompute", MethodPut, true, "compute_id", ep.Compute),
	op1("deleteCompute", MethodDelete, false, "compute_id", ep.Compute),
	op1("connectCompute", MethodPost, false, "compute_id", ep.ComputeConnect),
	op2("getComputeImages", MethodGet, false, "compute_id", "emulator", ep.ComputeImages),

	// images
	op0("getImages", MethodGet, false, ep.Images),
	op1("getImage", MethodGet, false, "image_path", ep.Image),
	op1("deleteImage", MethodDelete, false, "image_path", ep.Image),
	op0("pruneImages", MethodDelete, false, ep.ImagesPrune),

	// pools
	op0("getPools", MethodGet, false, ep.Pools),
	op1("getPool", MethodGet, false, "pool_id", ep.Pool),
	op1("getPoolResources", MethodGet, false, "pool_id", ep.PoolResources),
	op0("createPool", MethodPost, true, ep.Pools),
	op1("updatePool", MethodPut, true, "pool_id", ep.Pool),
	op1("deletePool", MethodDelete, false, "pool_id", ep.Pool),
	op2("addPoolResource", MethodPut, false, "pool_id", "resource_id", ep.PoolResource),
	op2("removePoolResource", MethodDelete, false, "pool_id", "resource_id", ep.PoolResource),

	// appliances
	op0("getAppliances", MethodGet, false, ep.Appliances),
	op1("getAppliance", MethodGet, false, "appliance_id", ep.Appliance),
}

func nodesAction(action string) func(string) string {
	return func(projectID string) string { return Endpoints.NodesAction(projectID, action) }
}

func nodeAction(action string) func(string, string) string {
	return func(projectID, nodeID string) string { return Endpoints.NodeAction(projectID, nodeID, action) }
}

var operationIndex = func() map[string]Operation {
	idx := make(map[string]Operation, len(operationList))
	for _, op := range operationList {
		idx[strings.ToLower(op.Name)] = op
	}
	return idx
}()

// LookupOperation finds an operation by name, case-insensitively
func LookupOperation(name string) (Operation, bool) {
	op, ok := operationIndex[strings.ToLower(strings.TrimSpace(name))]
	return op, ok
}

// Operations returns all registered operations sorted by name
func Operations() []Operation {
	ops := make([]Operation, len(operationList))
	copy(ops, operationList)
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}

// Run dispatches the named operation with positional args and an optional
// body. Argument errors are reported before anything is sent.
//
// Example:
//
//	res, err := client.Run(ctx, "addGroupMember", []string{groupID, userID}, nil)
func (c *Client) Run(ctx context.Context, name string, args []string, body any) (Res, error) {
	op, ok := LookupOperation(name)
	if !ok {
		return Res{}, fmt.Errorf("unknown operation: %s", name)
	}
	if len(args) != len(op.Args) {
		return Res{}, fmt.Errorf("operation %s expects %d argument(s), got %d (usage: %s)",
			op.Name, len(op.Args), len(args), op.Usage())
	}
	for i, a := range args {
		if strings.TrimSpace(a) == "" {
			return Res{}, fmt.Errorf("operation %s: argument %s cannot be empty", op.Name, op.Args[i])
		}
	}
	if body != nil && !op.Body {
		c.logger.Warn(ctx, "Ignoring body for operation without payload", "operation", op.Name)
		body = nil
	}

	return c.Do(ctx, op.Method, op.Path(args...), JSONBody(body))
}
