// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"fmt"

	"github.com/tidwall/sjson"
)

// Body builds JSON request payloads using sjson paths.
//
// Errors are tracked internally so calls can be chained; check them through
// Bytes, String or Err.
//
// Example:
//
//	body := gns3.Body{}.
//	    Set("username", "alice").
//	    Set("password", "s3cret-pass").
//	    Set("email", "alice@example.com").
//	    Set("is_active", true)
//
//	res, err := client.Post(ctx, gns3.Endpoints.Users(), body)
type Body struct {
	str string
	err error
}

// NewBody starts a builder from an existing JSON document
func NewBody(json string) Body {
	return Body{str: json}
}

// Set sets a value at the dot-separated path (e.g. "properties.ram")
//
// Once an error occurs, all subsequent operations are no-ops that preserve it.
func (b Body) Set(path string, value any) Body {
	if b.err != nil {
		return b
	}
	result, err := sjson.Set(b.str, path, value)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("Set(%q): %w", path, err)}
	}
	return Body{str: result}
}

// SetRaw sets pre-encoded JSON at path, e.g. a list of ACL rules read from a file
func (b Body) SetRaw(path, raw string) Body {
	if b.err != nil {
		return b
	}
	result, err := sjson.SetRaw(b.str, path, raw)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("SetRaw(%q): %w", path, err)}
	}
	return Body{str: result}
}

// SetIf sets the value only when cond is true. Useful for optional flags.
//
//	body := gns3.Body{}.
//	    Set("name", name).
//	    SetIf(email != "", "email", email)
func (b Body) SetIf(cond bool, path string, value any) Body {
	if !cond {
		return b
	}
	return b.Set(path, value)
}

// Delete removes the value at path
func (b Body) Delete(path string) Body {
	if b.err != nil {
		return b
	}
	result, err := sjson.Delete(b.str, path)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("Delete(%q): %w", path, err)}
	}
	return Body{str: result}
}

// String returns the JSON document and any build error
func (b Body) String() (string, error) {
	return b.str, b.err
}

// Err returns the first build error
func (b Body) Err() error {
	return b.err
}

// Res returns the JSON document for querying with gjson, or "" after an error
func (b Body) Res() string {
	if b.err != nil {
		return ""
	}
	return b.str
}

// Bytes returns the JSON document as bytes. An empty builder yields nil, which
// the dispatcher sends as a request without body.
func (b Body) Bytes() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.str == "" {
		return nil, nil
	}
	return []byte(b.str), nil
}
