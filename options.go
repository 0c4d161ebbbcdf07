// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"net/http"
	"net/url"
	"time"
)

// Client configuration options using the functional options pattern

// Token sets a static bearer token attached to every request
func Token(token string) func(*Client) {
	return func(c *Client) {
		c.token = token
	}
}

// WithTokenSource configures a TokenSource consulted on every request.
//
// A source takes precedence over a static Token. When the source reports no
// token, the request is sent without an Authorization header.
//
// Example:
//
//	store := auth.NewStore(keyFile)
//	client, _ := gns3.NewClient(server,
//	    gns3.WithTokenSource(gns3.TokenFunc(func() (string, bool) {
//	        return store.LoadToken(server)
//	    })))
func WithTokenSource(src TokenSource) func(*Client) {
	return func(c *Client) {
		c.tokenSource = src
	}
}

// VerifyCertificate enables or disables TLS certificate verification (default: true)
//
// WARNING: Disabling certificate verification makes the connection vulnerable
// to Man-in-the-Middle attacks. GNS3 controllers frequently run with
// self-signed certificates in lab setups, which is what this is meant for.
// The insecure warning is logged once per InsecureNotice, not per request.
//
// Example:
//
//	client, _ := gns3.NewClient("https://gns3.lab:3080",
//	    gns3.Token(token),
//	    gns3.VerifyCertificate(false))
func VerifyCertificate(verify bool) func(*Client) {
	return func(c *Client) {
		c.VerifyCertificate = verify
	}
}

// RequestTimeout sets the timeout of non-streaming requests (default: 10s).
// For streaming requests it bounds the wait for response headers only.
func RequestTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.RequestTimeout = duration
	}
}

// NotificationDuration sets how long notification feeds stay open (default: 60s)
func NotificationDuration(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.FeedDuration = duration
	}
}

// UserAgent sets the User-Agent header sent with every request
func UserAgent(agent string) func(*Client) {
	return func(c *Client) {
		c.UserAgent = agent
	}
}

// WithHTTPClient replaces the underlying transport client.
//
// Leave its Timeout at zero: the dispatcher applies its own deadlines and a
// client-wide timeout would cut notification feeds short. VerifyCertificate
// has no effect on a custom client's TLS configuration.
func WithHTTPClient(hc *http.Client) func(*Client) {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithInsecureNotice shares an InsecureNotice between clients.
//
// By default every client uses the process-wide notice, so the insecure TLS
// warning is emitted at most once per process.
func WithInsecureNotice(n *InsecureNotice) func(*Client) {
	return func(c *Client) {
		if n != nil {
			c.insecureNotice = n
		}
	}
}

// WithLogger configures a custom logger for the client
//
// By default, the client uses NoOpLogger which discards all log messages.
// Request and response bodies logged at Debug level are redacted (passwords,
// tokens, secrets) before they reach the logger.
//
// Example:
//
//	logger := gns3.NewDefaultLogger(gns3.LogLevelDebug)
//	client, _ := gns3.NewClient("https://gns3.lab:3080",
//	    gns3.WithLogger(logger))
func WithLogger(logger Logger) func(*Client) {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPrettyPrintLogs enables/disables JSON pretty printing in debug logs
func WithPrettyPrintLogs(enabled bool) func(*Client) {
	return func(c *Client) {
		c.prettyPrintLogs = enabled
	}
}

// Request modifiers for individual operations

// Timeout returns a request modifier that overrides the client's
// RequestTimeout for a single call.
//
// Example:
//
//	// image listings on busy controllers can be slow
//	res, err := client.Get(ctx, gns3.Endpoints.Images("qemu"),
//	    gns3.Timeout(30*time.Second))
func Timeout(duration time.Duration) func(*Req) {
	return func(req *Req) {
		req.Timeout = duration
	}
}

// Query returns a request modifier adding a query parameter
//
// Example:
//
//	res, err := client.Post(ctx, gns3.Endpoints.Computes(), body,
//	    gns3.Query("connect", "true"))
func Query(key, value string) func(*Req) {
	return func(req *Req) {
		if req.Query == nil {
			req.Query = url.Values{}
		}
		req.Query.Add(key, value)
	}
}

// JSONBody returns a request modifier setting the request payload.
//
// Accepted payloads: Body, string or []byte holding JSON, json.RawMessage,
// or any value encoding/json can marshal.
func JSONBody(body any) func(*Req) {
	return func(req *Req) {
		req.Body = body
	}
}

// Header returns a request modifier adding a request header
func Header(key, value string) func(*Req) {
	return func(req *Req) {
		if req.Header == nil {
			req.Header = http.Header{}
		}
		req.Header.Add(key, value)
	}
}

// FeedDuration returns a request modifier bounding the lifetime of a single
// notification feed. The handle is closed when it elapses, regardless of
// traffic.
//
// Example:
//
//	err := client.Notifications(ctx, gns3.Endpoints.Notifications(), handle,
//	    gns3.FeedDuration(5*time.Minute))
func FeedDuration(duration time.Duration) func(*Req) {
	return func(req *Req) {
		req.FeedDuration = duration
	}
}
