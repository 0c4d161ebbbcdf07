// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/gjson"
)

const (
	// DownloadChunkSize is the read size used by Download
	DownloadChunkSize = 8 * 1024

	// maxStreamErrorBody bounds how much of a failed stream response is read
	maxStreamErrorBody = 64 * 1024
)

var errStreamClosed = errors.New("gns3: read on closed stream")

// Stream is an open, unconsumed streaming response.
//
// The caller owns the stream and must Close it. Close may be called any
// number of times, from any goroutine; a feed timer and the caller closing
// the same stream is expected.
type Stream struct {
	StatusCode int
	Header     http.Header

	body   io.ReadCloser
	cancel context.CancelFunc

	once   sync.Once
	closed atomic.Bool
}

// Read implements io.Reader
func (s *Stream) Read(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, errStreamClosed
	}
	return s.body.Read(p)
}

// Close releases the connection. Only the first call has an effect.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		// cancel first: it unblocks a Read waiting for data
		s.cancel()
		err = s.body.Close()
	})
	return err
}

// Closed reports whether Close has been called
func (s *Stream) Closed() bool {
	return s.closed.Load()
}

// Stream opens a streaming GET request.
//
// Unlike Do, the request has no overall deadline: RequestTimeout (or the
// Timeout modifier) bounds only the wait for response headers. Non-success
// statuses are classified exactly like Do and no stream is returned.
//
// Example:
//
//	stream, err := client.Stream(ctx, gns3.Endpoints.ProjectExport(projectID))
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	_, err = io.Copy(file, stream)
func (c *Client) Stream(ctx context.Context, endpoint string, mods ...func(*Req)) (stream *Stream, err error) {
	req := newReq(MethodGet, trimLeadingSlash(endpoint), mods)

	defer func() {
		if r := recover(); r != nil {
			stream = nil
			err = &Error{
				Kind:      KindUnexpected,
				Operation: req.operation(),
				Message:   fmt.Sprintf("panic during stream request: %v", r),
			}
		}
	}()

	headerTimeout := c.RequestTimeout
	if req.Timeout > 0 {
		headerTimeout = req.Timeout
	}

	ctx, cancel := context.WithCancel(ctx)
	var headerTimedOut atomic.Bool
	headerTimer := time.AfterFunc(headerTimeout, func() {
		headerTimedOut.Store(true)
		cancel()
	})

	resp, gerr := c.send(ctx, req)
	stopped := headerTimer.Stop()
	if gerr != nil {
		cancel()
		if headerTimedOut.Load() {
			gerr.Kind = KindTimedOut
			gerr.Message = "Connection timeout: the server took too long to respond"
		}
		return nil, gerr
	}
	if !stopped {
		resp.Body.Close()
		cancel()
		return nil, &Error{
			Kind:      KindTimedOut,
			Operation: req.operation(),
			Message:   "Connection timeout: the server took too long to respond",
		}
	}

	if !isSuccessStatus(resp.StatusCode) {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxStreamErrorBody))
		resp.Body.Close()
		cancel()
		e := c.statusError(req, resp.Request.URL, resp.StatusCode, body)
		c.logger.Error(ctx, "GNS3 stream request failed",
			"operation", req.operation(),
			"status", resp.StatusCode,
			"kind", e.Kind.String())
		return nil, e
	}

	c.logger.Debug(ctx, "GNS3 stream opened", "operation", req.operation())

	return &Stream{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		body:       resp.Body,
		cancel:     cancel,
	}, nil
}

// Notification is one event of a notification feed.
//
// Err is set, with KindStreamDecodeFailed, when the line was not JSON; Raw
// still carries the line so the caller can show it.
type Notification struct {
	// Action is the event type, e.g. "node.updated" or "ping"
	Action string

	// Event is the decoded event payload
	Event gjson.Result

	// Data is the whole decoded line
	Data any

	// Raw is the undecoded line
	Raw []byte

	Err *Error
}

// Notifications consumes a newline-delimited JSON feed, calling fn for every
// non-empty line until fn returns false, the context is done, the server
// ends the feed, or the feed duration elapses.
//
// The feed duration (client FeedDuration, or the FeedDuration modifier)
// closes the stream regardless of traffic; that close ends the feed with a
// nil error, as do fn returning false, context cancellation and a clean end
// of stream. A read failure of any other cause returns KindStreamEndedEarly;
// failing to open the feed returns KindStreamStartFailed wrapping the
// dispatcher error.
//
// Example:
//
//	err := client.Notifications(ctx, gns3.Endpoints.ProjectNotifications(id),
//	    func(n gns3.Notification) bool {
//	        if n.Err == nil {
//	            fmt.Println(n.Action, n.Event.Raw)
//	        }
//	        return true
//	    },
//	    gns3.FeedDuration(30*time.Second))
func (c *Client) Notifications(ctx context.Context, endpoint string, fn func(Notification) bool, mods ...func(*Req)) error {
	req := newReq(MethodGet, trimLeadingSlash(endpoint), mods)
	duration := c.FeedDuration
	if req.FeedDuration > 0 {
		duration = req.FeedDuration
	}

	stream, err := c.Stream(ctx, endpoint, mods...)
	if err != nil {
		e, _ := AsError(err)
		msg := err.Error()
		if e != nil {
			msg = e.Message
		}
		return &Error{
			Kind:        KindStreamStartFailed,
			Operation:   req.operation(),
			StatusCode:  statusOf(e),
			Message:     "failed to start notification stream: " + msg,
			InternalMsg: err.Error(),
			Err:         err,
		}
	}
	defer stream.Close()

	var expired atomic.Bool
	timer := time.AfterFunc(duration, func() {
		expired.Store(true)
		stream.Close()
	})
	defer timer.Stop()

	c.logger.Info(ctx, "GNS3 notification feed started",
		"operation", req.operation(),
		"duration", duration.String())

	reader := bufio.NewReader(stream)
	for {
		line, rerr := reader.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if !fn(decodeNotification(req, trimmed)) {
				return nil
			}
		}
		if rerr == nil {
			continue
		}

		switch {
		case expired.Load():
			c.logger.Info(ctx, "GNS3 notification feed duration elapsed",
				"operation", req.operation())
			return nil
		case errors.Is(rerr, io.EOF), ctx.Err() != nil:
			return nil
		}

		c.logger.Error(ctx, "GNS3 notification feed ended early",
			"operation", req.operation(),
			"error", rerr.Error())
		return &Error{
			Kind:        KindStreamEndedEarly,
			Operation:   req.operation(),
			Message:     "notification stream ended unexpectedly: " + rerr.Error(),
			InternalMsg: rerr.Error(),
			Err:         rerr,
		}
	}
}

func decodeNotification(req *Req, line []byte) Notification {
	raw := append([]byte(nil), line...)
	data, err := decodeBody(raw)
	if err != nil {
		return Notification{
			Raw: raw,
			Err: &Error{
				Kind:        KindStreamDecodeFailed,
				Operation:   req.operation(),
				Message:     string(raw),
				InternalMsg: err.Error(),
				Err:         err,
			},
		}
	}
	parsed := gjson.ParseBytes(raw)
	return Notification{
		Action: parsed.Get("action").String(),
		Event:  parsed.Get("event"),
		Data:   data,
		Raw:    raw,
	}
}

// Download streams the response body into w in DownloadChunkSize chunks and
// returns the number of bytes written. Used for packet captures, project
// exports and project files.
//
// Example:
//
//	f, _ := os.Create("capture.pcap")
//	defer f.Close()
//	n, err := client.Download(ctx, gns3.Endpoints.LinkCaptureStream(projectID, linkID), f)
func (c *Client) Download(ctx context.Context, endpoint string, w io.Writer, mods ...func(*Req)) (int64, error) {
	stream, err := c.Stream(ctx, endpoint, mods...)
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	operation := MethodGet + " " + trimLeadingSlash(endpoint)
	buf := make([]byte, DownloadChunkSize)
	var written int64
	for {
		n, rerr := stream.Read(buf)
		if n > 0 {
			m, werr := w.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, &Error{
					Kind:      KindUnexpected,
					Operation: operation,
					Message:   "failed to write download: " + werr.Error(),
					Err:       werr,
				}
			}
		}
		if rerr == nil {
			continue
		}
		if errors.Is(rerr, io.EOF) {
			c.logger.Debug(ctx, "GNS3 download complete",
				"operation", operation,
				"bytes", written)
			return written, nil
		}
		kind := KindStreamEndedEarly
		if errors.Is(rerr, context.DeadlineExceeded) {
			kind = KindTimedOut
		}
		return written, &Error{
			Kind:        kind,
			Operation:   operation,
			Message:     "download ended unexpectedly: " + rerr.Error(),
			InternalMsg: rerr.Error(),
			Err:         rerr,
		}
	}
}

func statusOf(e *Error) int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func trimLeadingSlash(endpoint string) string {
	for len(endpoint) > 0 && endpoint[0] == '/' {
		endpoint = endpoint[1:]
	}
	return endpoint
}
