// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"net/http"
	"net/url"
	"time"
)

// Req describes a single dispatch.
//
// Method and Endpoint are set by the calling Client method; everything else
// is applied through request modifiers.
//
// Example:
//
//	res, err := client.Do(ctx, gns3.MethodPost, gns3.Endpoints.Users(),
//	    gns3.JSONBody(body),
//	    gns3.Timeout(30*time.Second))
type Req struct {
	// Method is the HTTP method (GET, POST, PUT, DELETE)
	Method string

	// Endpoint is the path below the /v3 API root, without leading slash
	Endpoint string

	// Query holds additional query parameters
	Query url.Values

	// Body is the optional JSON payload
	Body any

	// Header holds additional request headers
	Header http.Header

	// Timeout overrides the client's RequestTimeout if set
	Timeout time.Duration

	// FeedDuration bounds notification feeds if set
	FeedDuration time.Duration
}

func newReq(method, endpoint string, mods []func(*Req)) *Req {
	req := &Req{Method: method, Endpoint: endpoint}
	for _, mod := range mods {
		if mod != nil {
			mod(req)
		}
	}
	return req
}

// operation renders "<METHOD> <endpoint>" for errors and logs
func (r *Req) operation() string {
	return r.Method + " " + r.Endpoint
}
