// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"fmt"
	"strings"
)

// HTTP methods accepted by the dispatcher
const (
	// MethodGet reads a resource or listing
	MethodGet = "GET"

	// MethodPost creates a resource or triggers an action
	MethodPost = "POST"

	// MethodPut updates a resource or adds a membership
	MethodPut = "PUT"

	// MethodDelete removes a resource
	MethodDelete = "DELETE"
)

// ValidMethods contains the list of valid method values
var ValidMethods = []string{
	MethodGet,
	MethodPost,
	MethodPut,
	MethodDelete,
}

// ValidateMethod checks if the method is one the controller API uses.
// The comparison is case-insensitive.
//
// Example:
//
//	if err := gns3.ValidateMethod("patch"); err != nil {
//	    log.Fatal(err)
//	}
func ValidateMethod(method string) error {
	for _, valid := range ValidMethods {
		if strings.EqualFold(method, valid) {
			return nil
		}
	}
	return fmt.Errorf("invalid method: %s (valid values: GET, POST, PUT, DELETE)", method)
}
