// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package script runs YAML documents of ordered controller operations.
//
// A document looks like:
//
//	name: classroom setup
//	commands:
//	  - name: user
//	    subcommands:
//	      - name: createUser
//	        body: {username: student1, password: s3cret-pass}
//	  - name: project
//	    subcommands:
//	      - name: open
//	        args: [0b1c4a55-6a61-4c4e-8a44-6a0c7a4b6f2d]
//
// Each step names a registered operation, either directly ("createUser")
// or relative to its command ("open" under "project" is "openProject").
package script

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/netascode/go-gns3"
)

// Document is a parsed script. The name is read from "name", or from the
// first entry of "options" as older scripts write it:
//
//	options:
//	  - name: classroom setup
type Document struct {
	Name     string    `yaml:"name"`
	Options  []Option  `yaml:"options"`
	Commands []Command `yaml:"commands"`
}

// Option is an entry of the "options" list. Keys other than name are kept
// but unused.
type Option struct {
	Name  string         `yaml:"name"`
	Extra map[string]any `yaml:",inline"`
}

// Title returns the script name
func (d *Document) Title() string {
	if d.Name != "" {
		return d.Name
	}
	for _, o := range d.Options {
		if o.Name != "" {
			return o.Name
		}
	}
	return ""
}

// Command groups steps under a resource name
type Command struct {
	Name        string `yaml:"name"`
	Subcommands []Step `yaml:"subcommands"`
}

// Step is one operation call
type Step struct {
	Name string         `yaml:"name"`
	Args []string       `yaml:"args"`
	Body map[string]any `yaml:"body"`
}

// Parse decodes a document
func Parse(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("script is empty")
		}
		return nil, fmt.Errorf("failed to parse script: %w", err)
	}
	return &doc, nil
}

// ParseFile decodes the document at path
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open script: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Plan is a step resolved to its operation
type Plan struct {
	Index     int
	Command   string
	Step      Step
	Operation gns3.Operation
}

// Resolve maps every step to an operation and checks argument counts, so
// a malformed script fails before anything is sent.
func (d *Document) Resolve() ([]Plan, error) {
	var plans []Plan
	for _, cmd := range d.Commands {
		for _, step := range cmd.Subcommands {
			idx := len(plans) + 1
			op, ok := lookup(cmd.Name, step.Name)
			if !ok {
				return nil, fmt.Errorf("step %d (%s/%s): unknown operation", idx, cmd.Name, step.Name)
			}
			if len(step.Args) != len(op.Args) {
				return nil, fmt.Errorf("step %d (%s): expects %d argument(s), got %d (usage: %s)",
					idx, op.Name, len(op.Args), len(step.Args), op.Usage())
			}
			plans = append(plans, Plan{Index: idx, Command: cmd.Name, Step: step, Operation: op})
		}
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("script %q has no steps", d.Title())
	}
	return plans, nil
}

func lookup(group, name string) (gns3.Operation, bool) {
	if op, ok := gns3.LookupOperation(name); ok {
		return op, true
	}
	return gns3.LookupOperation(name + capitalize(group))
}

func capitalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Result is the outcome of a successful step
type Result struct {
	Plan Plan
	Res  gns3.Res
}

// Runner executes documents against a client
type Runner struct {
	Client *gns3.Client

	// OnStep is called after every successful step
	OnStep func(Result)
}

// Run executes the steps in order and stops at the first failure. The
// results of the steps that succeeded are returned either way.
func (r *Runner) Run(ctx context.Context, doc *Document) ([]Result, error) {
	plans, err := doc.Resolve()
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(plans))
	for _, p := range plans {
		var body any
		if p.Step.Body != nil {
			body = p.Step.Body
		}
		res, err := r.Client.Run(ctx, p.Operation.Name, p.Step.Args, body)
		if err != nil {
			return results, fmt.Errorf("step %d (%s) failed: %w", p.Index, p.Operation.Name, err)
		}
		result := Result{Plan: p, Res: res}
		results = append(results, result)
		if r.OnStep != nil {
			r.OnStep(result)
		}
	}
	return results, nil
}
