// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// MaxEndpointLength is the maximum length of an endpoint path
const MaxEndpointLength = 2048

// validateEndpoint checks an endpoint path before it is joined to the API root
//
// Checks:
//   - non-empty, bounded length
//   - no null bytes
//   - no "/../" traversal out of the API root
func validateEndpoint(endpoint string) error {
	if strings.TrimSpace(endpoint) == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}
	if len(endpoint) > MaxEndpointLength {
		return fmt.Errorf("endpoint exceeds maximum length of %d characters: %s", MaxEndpointLength, truncateEndpoint(endpoint))
	}
	if i := strings.IndexByte(endpoint, 0); i >= 0 {
		return fmt.Errorf("endpoint contains null byte at position %d", i)
	}
	if strings.Contains("/"+endpoint+"/", "/../") {
		return fmt.Errorf("endpoint contains traversal segment '..': %s", truncateEndpoint(endpoint))
	}
	return nil
}

// truncateEndpoint shortens an endpoint for error messages
func truncateEndpoint(endpoint string) string {
	const maxLen = 100
	if len(endpoint) <= maxLen {
		return endpoint
	}
	return endpoint[:maxLen] + "..."
}

// Do performs one request against the controller's /v3 API root and returns
// exactly one outcome: a Res, or an *Error describing the failure.
//
// The dispatcher never retries. Expected failures (status codes, non-JSON
// bodies, connectivity problems) and unexpected ones (including panics in
// body encoding) are all returned as *Error values.
//
// Example:
//
//	res, err := client.Do(ctx, gns3.MethodPut,
//	    gns3.Endpoints.GroupMember(groupID, userID))
//	if err != nil {
//	    fmt.Println(output.FormatError(err))
//	    os.Exit(1)
//	}
func (c *Client) Do(ctx context.Context, method, endpoint string, mods ...func(*Req)) (res Res, err error) {
	req := newReq(strings.ToUpper(method), trimLeadingSlash(endpoint), mods)

	defer func() {
		if r := recover(); r != nil {
			res = Res{}
			err = &Error{
				Kind:      KindUnexpected,
				Operation: req.operation(),
				Message:   fmt.Sprintf("panic during request: %v", r),
			}
		}
	}()

	timeout := c.RequestTimeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, gerr := c.send(ctx, req)
	if gerr != nil {
		return Res{}, gerr
	}
	defer resp.Body.Close()

	body, rerr := io.ReadAll(resp.Body)
	if rerr != nil {
		return Res{}, c.classifyTransport(ctx, req, rerr)
	}

	c.logger.Debug(ctx, "GNS3 response",
		"operation", req.operation(),
		"status", resp.StatusCode,
		"body", c.prepareJSONForLogging(string(body)))

	if !isSuccessStatus(resp.StatusCode) {
		e := c.statusError(req, resp.Request.URL, resp.StatusCode, body)
		c.logger.Error(ctx, "GNS3 request failed",
			"operation", req.operation(),
			"status", resp.StatusCode,
			"kind", e.Kind.String())
		return Res{}, e
	}

	data, derr := decodeBody(body)
	if derr != nil {
		return Res{}, &Error{
			Kind:        KindBodyDecodeFailed,
			Operation:   req.operation(),
			StatusCode:  resp.StatusCode,
			Message:     string(body),
			Body:        body,
			InternalMsg: derr.Error(),
			Err:         derr,
		}
	}

	return Res{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Data:       data,
	}, nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, endpoint string, mods ...func(*Req)) (Res, error) {
	return c.Do(ctx, MethodGet, endpoint, mods...)
}

// Post performs a POST request with an optional body (nil for none)
func (c *Client) Post(ctx context.Context, endpoint string, body any, mods ...func(*Req)) (Res, error) {
	return c.Do(ctx, MethodPost, endpoint, append([]func(*Req){JSONBody(body)}, mods...)...)
}

// Put performs a PUT request with an optional body (nil for none)
func (c *Client) Put(ctx context.Context, endpoint string, body any, mods ...func(*Req)) (Res, error) {
	return c.Do(ctx, MethodPut, endpoint, append([]func(*Req){JSONBody(body)}, mods...)...)
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, endpoint string, mods ...func(*Req)) (Res, error) {
	return c.Do(ctx, MethodDelete, endpoint, mods...)
}

// send builds and executes the HTTP request. A non-nil response is returned
// for every status code; transport failures come back classified.
func (c *Client) send(ctx context.Context, req *Req) (*http.Response, *Error) {
	if err := ValidateMethod(req.Method); err != nil {
		return nil, &Error{Kind: KindUnexpected, Operation: req.operation(), Message: err.Error()}
	}
	if err := validateEndpoint(req.Endpoint); err != nil {
		return nil, &Error{Kind: KindTransportError, Operation: req.operation(), Message: err.Error()}
	}

	target, err := c.requestURL(req)
	if err != nil {
		return nil, &Error{Kind: KindTransportError, Operation: req.operation(), Message: err.Error(), Err: err}
	}

	payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, &Error{Kind: KindUnexpected, Operation: req.operation(), Message: err.Error(), Err: err}
	}

	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, &Error{Kind: KindTransportError, Operation: req.operation(), Message: err.Error(), Err: err}
	}

	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}
	if tok, ok := c.currentToken(); ok {
		httpReq.Header.Set("Authorization", "Bearer "+tok)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	if !c.VerifyCertificate {
		c.insecureNotice.Setup(ctx, c.logger, c.BaseURL)
	}

	c.logger.Debug(ctx, "GNS3 request",
		"operation", req.operation(),
		"body", c.prepareJSONForLogging(string(payload)))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransport(ctx, req, err)
	}
	return resp, nil
}

// requestURL joins the API root, the endpoint and the query parameters.
// Query parameters embedded in the endpoint are preserved.
func (c *Client) requestURL(req *Req) (string, error) {
	u, err := url.Parse(c.apiRoot + "/" + req.Endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid endpoint %q: %w", req.Endpoint, err)
	}
	if len(req.Query) > 0 {
		q := u.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// encodeBody turns a request payload into JSON bytes (nil for no body)
func encodeBody(body any) ([]byte, error) {
	switch v := body.(type) {
	case nil:
		return nil, nil
	case Body:
		return v.Bytes()
	case *Body:
		if v == nil {
			return nil, nil
		}
		return v.Bytes()
	case string:
		if v == "" {
			return nil, nil
		}
		return []byte(v), nil
	case []byte:
		if len(v) == 0 {
			return nil, nil
		}
		return v, nil
	case json.RawMessage:
		return v, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return b, nil
	}
}

// isSuccessStatus reports the statuses the controller uses for success
func isSuccessStatus(code int) bool {
	return code == http.StatusOK || code == http.StatusCreated || code == http.StatusNoContent
}

// statusError classifies a non-success response
func (c *Client) statusError(req *Req, u *url.URL, code int, body []byte) *Error {
	kind := kindForStatus(code)
	e := &Error{
		Kind:       kind,
		Operation:  req.operation(),
		StatusCode: code,
		Body:       body,
	}

	switch kind {
	case KindValidation:
		e.Message = validationMessage(body)
	case KindOtherHTTPStatus, KindUnauthorized:
		e.Message = strings.TrimSpace(string(body))
	default:
		e.Message = serverMessage(body)
	}

	if kind == KindNotFound {
		e.Resource = lastPathSegment(u.Path)
	}

	return e
}

// serverMessage returns body.message when the body is a JSON object that
// carries one, otherwise the raw text
func serverMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		if msg := gjson.GetBytes(body, "message"); msg.Exists() && msg.Type == gjson.String {
			return msg.String()
		}
	}
	return strings.TrimSpace(string(body))
}

// validationMessage renders a 422 body. The controller puts the details in
// "message" or "detail"; they are pretty-printed so the caller can show them.
func validationMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return strings.TrimSpace(string(body))
	}
	for _, field := range []string{"message", "detail"} {
		v := gjson.GetBytes(body, field)
		if !v.Exists() {
			continue
		}
		if v.Type == gjson.String {
			return v.String()
		}
		return strings.TrimSpace(string(pretty.Pretty([]byte(v.Raw))))
	}
	return strings.TrimSpace(string(pretty.Pretty(body)))
}

// lastPathSegment returns the last non-empty segment of an URL path after a
// trailing slash is stripped
func lastPathSegment(p string) string {
	p = strings.TrimSuffix(p, "/")
	segments := strings.Split(p, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i]
		}
	}
	return ""
}

// classifyTransport maps a transport failure to its kind. Order matters:
// timeouts first, then cancellation and name resolution, then
// refused/unreachable dials.
func (c *Client) classifyTransport(ctx context.Context, req *Req, err error) *Error {
	e := &Error{
		Operation:   req.operation(),
		InternalMsg: err.Error(),
		Err:         err,
	}

	var netErr net.Error
	var dnsErr *net.DNSError
	var opErr *net.OpError
	var urlErr *url.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()):
		e.Kind = KindTimedOut
		e.Message = "Connection timeout: the server took too long to respond"
	case errors.Is(err, context.Canceled):
		e.Kind = KindTransportError
		e.Message = "request canceled"
	case errors.As(err, &dnsErr):
		e.Kind = KindTransportError
		e.Message = dnsErr.Error()
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.Is(err, syscall.ECONNRESET),
		errors.As(err, &opErr) && opErr.Op == "dial":
		e.Kind = KindConnectionFailed
		e.Message = fmt.Sprintf("Connection error: could not connect to %s", c.BaseURL)
	case errors.As(err, &urlErr), errors.As(err, &opErr):
		e.Kind = KindTransportError
		e.Message = err.Error()
	default:
		e.Kind = KindUnexpected
		e.Message = err.Error()
	}

	c.logger.Error(ctx, "GNS3 transport failure",
		"operation", req.operation(),
		"kind", e.Kind.String(),
		"error", err.Error())

	return e
}
