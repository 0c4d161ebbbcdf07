// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Res is the success half of a dispatch outcome
type Res struct {
	// StatusCode is 200, 201 or 204
	StatusCode int

	// Header holds the response headers
	Header http.Header

	// Body is the raw response body
	Body []byte

	// Data is the decoded JSON body, nil when the body was empty.
	// Numbers are decoded as json.Number so they round-trip exactly.
	Data any
}

// IsEmpty reports whether the controller returned no body
func (r Res) IsEmpty() bool {
	return len(bytes.TrimSpace(r.Body)) == 0
}

// GetValue retrieves a value from the response body using a gjson path.
//
// Example paths:
//   - "user_id" - ID of a freshly created user
//   - "#.name" - all names of a listing
//   - "#(username==alice).user_id" - ID of the user named alice
//
// Example:
//
//	res, err := client.Post(ctx, gns3.Endpoints.Users(), body)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	userID := res.GetValue("user_id").String()
func (r Res) GetValue(path string) gjson.Result {
	if r.IsEmpty() {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Body, path)
}

// ID returns the string at field, the way the controller reports identifiers
// of created resources (user_id, project_id, ...). The boolean is false when
// the field is missing or empty.
func (r Res) ID(field string) (string, bool) {
	v := r.GetValue(field)
	if !v.Exists() || v.String() == "" {
		return "", false
	}
	return v.String(), true
}

// Items returns the elements of a JSON array body. Non-array bodies yield nil.
func (r Res) Items() []gjson.Result {
	if r.IsEmpty() {
		return nil
	}
	parsed := gjson.ParseBytes(r.Body)
	if !parsed.IsArray() {
		return nil
	}
	return parsed.Array()
}

// JSON returns the raw body as a string
func (r Res) JSON() string {
	return string(r.Body)
}

// Decode unmarshals the body into v
//
// Example:
//
//	var users []struct {
//	    UserID   string `json:"user_id"`
//	    Username string `json:"username"`
//	}
//	if err := res.Decode(&users); err != nil {
//	    log.Fatal(err)
//	}
func (r Res) Decode(v any) error {
	if r.IsEmpty() {
		return fmt.Errorf("response body is empty")
	}
	return json.Unmarshal(r.Body, v)
}

// decodeBody parses a success body; an empty body decodes to nil
func decodeBody(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level JSON value")
	}
	return data, nil
}
