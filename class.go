// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ExerciseRole is the role granted to student groups on their exercise pool
const ExerciseRole = "User"

// Student is a class member
type Student struct {
	UserName string `json:"userName" yaml:"userName"`
	Password string `json:"password" yaml:"password"`
	FullName string `json:"fullName,omitempty" yaml:"fullName,omitempty"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
}

// StudentGroup is a team of students working on the same exercise projects
type StudentGroup struct {
	Name     string    `json:"name" yaml:"name"`
	Students []Student `json:"students" yaml:"students"`
}

// Class describes a class file:
//
//	{
//	  "name": "netlab",
//	  "description": "Networking lab, spring term",
//	  "groups": [
//	    {"name": "1", "students": [{"userName": "alice", "password": "s3cret-pass"}]}
//	  ]
//	}
type Class struct {
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Groups      []StudentGroup `json:"groups" yaml:"groups"`
}

// LoadClass decodes and validates a class file, JSON or YAML
func LoadClass(r io.Reader) (Class, error) {
	var class Class
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&class); err != nil {
		if err == io.EOF {
			return class, fmt.Errorf("class file is empty")
		}
		return class, fmt.Errorf("failed to parse class file: %w", err)
	}
	return class, class.Validate()
}

// Validate checks the class has a name, groups, and students with
// credentials
func (c Class) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("class name is required")
	}
	if len(c.Groups) == 0 {
		return fmt.Errorf("class %s needs at least one group", c.Name)
	}
	seen := make(map[string]bool)
	for i, g := range c.Groups {
		if strings.TrimSpace(g.Name) == "" {
			return fmt.Errorf("group %d of class %s has no name", i+1, c.Name)
		}
		for j, s := range g.Students {
			if s.UserName == "" {
				return fmt.Errorf("student %d of group %s has no userName", j+1, g.Name)
			}
			if len(s.Password) < 8 {
				return fmt.Errorf("student %s: password must be at least 8 characters", s.UserName)
			}
			if seen[strings.ToLower(s.UserName)] {
				return fmt.Errorf("student %s is listed twice", s.UserName)
			}
			seen[strings.ToLower(s.UserName)] = true
		}
	}
	return nil
}

// GroupName returns the controller group name of a student group,
// <class>-<group>. Exercises find a class's groups by this prefix.
func (c Class) GroupName(g StudentGroup) string {
	prefix := c.Name + "-"
	if strings.HasPrefix(g.Name, prefix) {
		return g.Name
	}
	return prefix + g.Name
}

// ClassResult lists what CreateClass created, also when it stopped early
type ClassResult struct {
	ClassGroupID string

	// GroupIDs maps controller group names to their IDs
	GroupIDs map[string]string

	Users []CreateResult
}

// CreateClass creates the class group, one group per student group and the
// students. Every student joins both the class group and their own group.
// A failing group stops the run after its remaining students were tried;
// the result lists what exists by then.
func (c *Client) CreateClass(ctx context.Context, class Class) (ClassResult, error) {
	result := ClassResult{GroupIDs: make(map[string]string)}
	if err := class.Validate(); err != nil {
		return result, err
	}

	c.logger.Info(ctx, "Class creation started",
		"class", class.Name,
		"groups", len(class.Groups))

	classGroupID, err := c.createGroup(ctx, class.Name)
	if err != nil {
		return result, fmt.Errorf("class group %s: %w", class.Name, err)
	}
	result.ClassGroupID = classGroupID

	for _, g := range class.Groups {
		name := class.GroupName(g)
		groupID, err := c.createGroup(ctx, name)
		if err != nil {
			return result, fmt.Errorf("group %s: %w", name, err)
		}
		result.GroupIDs[name] = groupID

		users := make([]NewUser, 0, len(g.Students))
		for _, s := range g.Students {
			users = append(users, NewUser{Username: s.UserName, Password: s.Password, Email: s.Email, FullName: s.FullName})
		}
		var firstErr error
		for _, r := range c.CreateUsers(ctx, users, groupID) {
			if r.Err == nil {
				if _, err := c.Put(ctx, Endpoints.GroupMember(classGroupID, r.UserID), nil); err != nil {
					r.Err = fmt.Errorf("user %s created but not added to class group %s: %w", r.Username, class.Name, err)
				}
			}
			if r.Err != nil && firstErr == nil {
				firstErr = r.Err
			}
			result.Users = append(result.Users, r)
		}
		if firstErr != nil {
			return result, firstErr
		}
	}

	c.logger.Info(ctx, "Class creation finished",
		"class", class.Name,
		"users", len(result.Users))

	return result, nil
}

func (c *Client) createGroup(ctx context.Context, name string) (string, error) {
	res, err := c.Post(ctx, Endpoints.Groups(), Body{}.Set("name", name))
	if err != nil {
		return "", err
	}
	return requireID(res, "user_group_id", MethodPost+" "+Endpoints.Groups())
}

// requireID reads field from res or reports a body decode failure
func requireID(res Res, field, operation string) (string, error) {
	id, ok := res.ID(field)
	if !ok {
		return "", &Error{
			Kind:      KindBodyDecodeFailed,
			Operation: operation,
			Message:   "response has no " + field + ": " + res.JSON(),
		}
	}
	return id, nil
}

// ExerciseProject is the project one student group works in
type ExerciseProject struct {
	Group     string
	GroupID   string
	ProjectID string
	PoolID    string
}

// ExerciseProjectName returns <class>-<exercise>-<group suffix>
func ExerciseProjectName(className, exercise, groupName string) string {
	return className + "-" + exercise + "-" + strings.TrimPrefix(groupName, className+"-")
}

// CreateExercise creates one closed project per group of the class, each in
// its own resource pool, and grants the group the ExerciseRole on that pool
// only. The first failure stops the run; the projects set up by then are
// returned.
func (c *Client) CreateExercise(ctx context.Context, className, exercise string) ([]ExerciseProject, error) {
	if strings.TrimSpace(className) == "" || strings.TrimSpace(exercise) == "" {
		return nil, fmt.Errorf("class and exercise names are required")
	}

	roleID, err := c.roleID(ctx, ExerciseRole)
	if err != nil {
		return nil, err
	}
	groups, err := c.classGroups(ctx, className)
	if err != nil {
		return nil, err
	}

	c.logger.Info(ctx, "Exercise creation started",
		"class", className,
		"exercise", exercise,
		"groups", len(groups))

	projects := make([]ExerciseProject, 0, len(groups))
	for _, g := range groups {
		p, err := c.createExerciseProject(ctx, ExerciseProjectName(className, exercise, g.name), g, roleID)
		if err != nil {
			return projects, fmt.Errorf("exercise %s for group %s: %w", exercise, g.name, err)
		}
		projects = append(projects, p)
	}
	return projects, nil
}

type groupRef struct {
	id   string
	name string
}

func (c *Client) createExerciseProject(ctx context.Context, name string, g groupRef, roleID string) (ExerciseProject, error) {
	p := ExerciseProject{Group: g.name, GroupID: g.id, ProjectID: uuid.NewString()}

	project := Body{}.Set("name", name).Set("project_id", p.ProjectID)
	if _, err := c.Post(ctx, Endpoints.Projects(), project); err != nil {
		return p, err
	}
	if _, err := c.Post(ctx, Endpoints.ProjectClose(p.ProjectID), nil); err != nil {
		return p, err
	}

	res, err := c.Post(ctx, Endpoints.Pools(), Body{}.Set("name", name+"-pool"))
	if err != nil {
		return p, err
	}
	if p.PoolID, err = requireID(res, "resource_pool_id", MethodPost+" "+Endpoints.Pools()); err != nil {
		return p, err
	}
	if _, err := c.Put(ctx, Endpoints.PoolResource(p.PoolID, p.ProjectID), nil); err != nil {
		return p, err
	}

	ace := Body{}.
		Set("ace_type", "group").
		Set("allowed", true).
		Set("group_id", g.id).
		Set("path", "/pools/"+p.PoolID).
		Set("propagate", true).
		Set("role_id", roleID)
	if _, err := c.Post(ctx, Endpoints.ACL(), ace); err != nil {
		return p, err
	}

	c.logger.Debug(ctx, "Exercise project created",
		"project", name,
		"group", g.name)

	return p, nil
}

func (c *Client) roleID(ctx context.Context, name string) (string, error) {
	res, err := c.Get(ctx, Endpoints.Roles())
	if err != nil {
		return "", err
	}
	for _, r := range res.Items() {
		if r.Get("name").String() == name {
			return r.Get("role_id").String(), nil
		}
	}
	e := NewError(KindNotFound, fmt.Sprintf("role %s does not exist", name))
	e.Operation = MethodGet + " " + Endpoints.Roles()
	e.Resource = name
	return "", e
}

// classGroups returns the student groups of className, the groups named
// <class>-<suffix>
func (c *Client) classGroups(ctx context.Context, className string) ([]groupRef, error) {
	res, err := c.Get(ctx, Endpoints.Groups())
	if err != nil {
		return nil, err
	}
	prefix := className + "-"
	var groups []groupRef
	for _, g := range res.Items() {
		name := g.Get("name").String()
		if strings.HasPrefix(name, prefix) && len(name) > len(prefix) {
			groups = append(groups, groupRef{id: g.Get("user_group_id").String(), name: name})
		}
	}
	if len(groups) == 0 {
		return nil, NewError(KindEmptyResponse, fmt.Sprintf("no groups found for class %s", className))
	}
	return groups, nil
}
