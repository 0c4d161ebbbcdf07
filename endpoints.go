// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"fmt"
	"net/url"
)

// Endpoints is the catalog of controller API paths, relative to the /v3
// API root. Identifiers are path-escaped; file and image paths are kept as
// given since they legitimately contain slashes.
//
// Example:
//
//	res, err := client.Get(ctx, gns3.Endpoints.GroupMembers(groupID))
var Endpoints endpoints

type endpoints struct{}

func seg(id string) string {
	return url.PathEscape(id)
}

// Controller

func (endpoints) Version() string       { return "version" }
func (endpoints) Statistics() string    { return "statistics" }
func (endpoints) IOULicense() string    { return "iou_license" }
func (endpoints) Notifications() string { return "notifications" }

// Access: users

func (endpoints) Authenticate() string { return "access/users/authenticate" }
func (endpoints) Me() string           { return "access/users/me" }
func (endpoints) Users() string        { return "access/users" }

func (endpoints) User(userID string) string {
	return fmt.Sprintf("access/users/%s", seg(userID))
}

func (endpoints) UserGroups(userID string) string {
	return fmt.Sprintf("access/users/%s/groups", seg(userID))
}

// Access: groups

func (endpoints) Groups() string { return "access/groups" }

func (endpoints) Group(groupID string) string {
	return fmt.Sprintf("access/groups/%s", seg(groupID))
}

func (endpoints) GroupMembers(groupID string) string {
	return fmt.Sprintf("access/groups/%s/members", seg(groupID))
}

// GroupMember is used with PUT to add and DELETE to remove a member
func (endpoints) GroupMember(groupID, userID string) string {
	return fmt.Sprintf("access/groups/%s/members/%s", seg(groupID), seg(userID))
}

// Access: roles and privileges

func (endpoints) Roles() string      { return "access/roles" }
func (endpoints) Privileges() string { return "access/privileges" }

func (endpoints) Role(roleID string) string {
	return fmt.Sprintf("access/roles/%s", seg(roleID))
}

func (endpoints) RolePrivileges(roleID string) string {
	return fmt.Sprintf("access/roles/%s/privileges", seg(roleID))
}

func (endpoints) RolePrivilege(roleID, privilegeID string) string {
	return fmt.Sprintf("access/roles/%s/privileges/%s", seg(roleID), seg(privilegeID))
}

// Access: ACL

func (endpoints) ACL() string          { return "access/acl" }
func (endpoints) ACLEndpoints() string { return "access/acl/endpoints" }

func (endpoints) ACE(aceID string) string {
	return fmt.Sprintf("access/acl/%s", seg(aceID))
}

// Templates

func (endpoints) Templates() string { return "templates" }

func (endpoints) Template(templateID string) string {
	return fmt.Sprintf("templates/%s", seg(templateID))
}

func (endpoints) TemplateDuplicate(templateID string) string {
	return fmt.Sprintf("templates/%s/duplicate", seg(templateID))
}

// Projects

func (endpoints) Projects() string { return "projects" }

func (endpoints) Project(projectID string) string {
	return fmt.Sprintf("projects/%s", seg(projectID))
}

func (e endpoints) projectAction(projectID, action string) string {
	return e.Project(projectID) + "/" + action
}

func (e endpoints) ProjectOpen(projectID string) string      { return e.projectAction(projectID, "open") }
func (e endpoints) ProjectClose(projectID string) string     { return e.projectAction(projectID, "close") }
func (e endpoints) ProjectLock(projectID string) string      { return e.projectAction(projectID, "lock") }
func (e endpoints) ProjectUnlock(projectID string) string    { return e.projectAction(projectID, "unlock") }
func (e endpoints) ProjectLocked(projectID string) string    { return e.projectAction(projectID, "locked") }
func (e endpoints) ProjectDuplicate(projectID string) string { return e.projectAction(projectID, "duplicate") }
func (e endpoints) ProjectStats(projectID string) string     { return e.projectAction(projectID, "stats") }
func (e endpoints) ProjectExport(projectID string) string    { return e.projectAction(projectID, "export") }

func (e endpoints) ProjectNotifications(projectID string) string {
	return e.projectAction(projectID, "notifications")
}

func (e endpoints) ProjectFile(projectID, filePath string) string {
	return e.projectAction(projectID, "files/"+trimLeadingSlash(filePath))
}

// ProjectNodeFromTemplate creates a node in the project from a template
func (e endpoints) ProjectNodeFromTemplate(projectID, templateID string) string {
	return e.projectAction(projectID, "templates/"+seg(templateID))
}

// Nodes

func (e endpoints) Nodes(projectID string) string { return e.projectAction(projectID, "nodes") }

func (e endpoints) Node(projectID, nodeID string) string {
	return e.Nodes(projectID) + "/" + seg(nodeID)
}

// NodesAction applies start, stop, suspend or reload to every node of a project
func (e endpoints) NodesAction(projectID, action string) string {
	return e.Nodes(projectID) + "/" + action
}

// NodeAction applies start, stop, suspend, reload or duplicate to one node
func (e endpoints) NodeAction(projectID, nodeID, action string) string {
	return e.Node(projectID, nodeID) + "/" + action
}

func (e endpoints) NodeLinks(projectID, nodeID string) string {
	return e.NodeAction(projectID, nodeID, "links")
}

func (e endpoints) NodeFile(projectID, nodeID, filePath string) string {
	return e.NodeAction(projectID, nodeID, "files/"+trimLeadingSlash(filePath))
}

// Links

func (e endpoints) Links(projectID string) string { return e.projectAction(projectID, "links") }

func (e endpoints) Link(projectID, linkID string) string {
	return e.Links(projectID) + "/" + seg(linkID)
}

func (e endpoints) LinkFilters(projectID, linkID string) string {
	return e.Link(projectID, linkID) + "/available_filters"
}

func (e endpoints) LinkCaptureStart(projectID, linkID string) string {
	return e.Link(projectID, linkID) + "/capture/start"
}

func (e endpoints) LinkCaptureStop(projectID, linkID string) string {
	return e.Link(projectID, linkID) + "/capture/stop"
}

func (e endpoints) LinkCaptureStream(projectID, linkID string) string {
	return e.Link(projectID, linkID) + "/capture/stream"
}

// Drawings

func (e endpoints) Drawings(projectID string) string { return e.projectAction(projectID, "drawings") }

func (e endpoints) Drawing(projectID, drawingID string) string {
	return e.Drawings(projectID) + "/" + seg(drawingID)
}

// Snapshots

func (e endpoints) Snapshots(projectID string) string { return e.projectAction(projectID, "snapshots") }

func (e endpoints) Snapshot(projectID, snapshotID string) string {
	return e.Snapshots(projectID) + "/" + seg(snapshotID)
}

func (e endpoints) SnapshotRestore(projectID, snapshotID string) string {
	return e.Snapshot(projectID, snapshotID) + "/restore"
}

// Symbols

func (endpoints) Symbols() string        { return "symbols" }
func (endpoints) DefaultSymbols() string { return "symbols/default_symbols" }

func (endpoints) Symbol(symbolID string) string {
	return fmt.Sprintf("symbols/%s/raw", trimLeadingSlash(symbolID))
}

// Computes

func (endpoints) Computes() string { return "computes" }

func (endpoints) Compute(computeID string) string {
	return fmt.Sprintf("computes/%s", seg(computeID))
}

func (e endpoints) ComputeConnect(computeID string) string {
	return e.Compute(computeID) + "/connect"
}

// ComputeImages lists images of an emulator on a compute, e.g. "qemu" or "docker"
func (e endpoints) ComputeImages(computeID, emulator string) string {
	return e.Compute(computeID) + "/" + seg(emulator) + "/images"
}

// Images

func (endpoints) Images() string      { return "images" }
func (endpoints) ImagesPrune() string { return "images/prune" }

func (endpoints) Image(imagePath string) string {
	return "images/" + trimLeadingSlash(imagePath)
}

// ImageUpload is the POST target for uploading a qemu image
func (endpoints) ImageUpload(imagePath string) string {
	return "images/upload/" + trimLeadingSlash(imagePath)
}

// Resource pools

func (endpoints) Pools() string { return "pools" }

func (endpoints) Pool(poolID string) string {
	return fmt.Sprintf("pools/%s", seg(poolID))
}

func (e endpoints) PoolResources(poolID string) string {
	return e.Pool(poolID) + "/resources"
}

func (e endpoints) PoolResource(poolID, resourceID string) string {
	return e.PoolResources(poolID) + "/" + seg(resourceID)
}

// Appliances

func (endpoints) Appliances() string { return "appliances" }

func (endpoints) Appliance(applianceID string) string {
	return fmt.Sprintf("appliances/%s", seg(applianceID))
}
