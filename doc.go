// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package gns3 provides a client for the GNS3 v3 controller REST API.
//
// Every call produces exactly one outcome: a Res on success, or an *Error
// whose Kind classifies the failure (HTTP status, decoding, connectivity,
// timeout, streaming). The dispatcher never retries.
//
// # Quick Start
//
//	client, err := gns3.NewClient(
//	    "https://gns3.lab:3080",
//	    gns3.Token(token),
//	    gns3.VerifyCertificate(false),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	ctx := context.Background()
//	res, err := client.Get(ctx, gns3.Endpoints.Users())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, u := range res.Items() {
//	    fmt.Println(u.Get("user_id").String(), u.Get("username").String())
//	}
//
// # JSON Manipulation
//
// Use the Body builder for request payloads and gjson paths on Res:
//
//	body := gns3.Body{}.
//	    Set("name", "lab-1").
//	    Set("auto_close", false)
//
//	res, err := client.Post(ctx, gns3.Endpoints.Projects(), body)
//	projectID := res.GetValue("project_id").String()
//
// # Error Handling
//
// Failures are *Error values; branch with errors.Is on the sentinels:
//
//	_, err := client.Delete(ctx, gns3.Endpoints.Project(id))
//	switch {
//	case errors.Is(err, gns3.ErrNotFound):
//	    e, _ := gns3.AsError(err)
//	    fmt.Println("no such project:", e.Resource)
//	case errors.Is(err, gns3.ErrConnectionFailed):
//	    fmt.Println("controller unreachable")
//	}
//
// # Streaming
//
// Notification feeds, packet captures and project exports are streamed:
//
//	err := client.Notifications(ctx, gns3.Endpoints.Notifications(),
//	    func(n gns3.Notification) bool {
//	        fmt.Println(n.Action)
//	        return true
//	    },
//	    gns3.FeedDuration(time.Minute))
//
// A feed ends after its duration regardless of traffic.
//
// # Thread Safety
//
// A Client is safe for concurrent use. The only shared mutable state is the
// InsecureNotice guarding the one-time TLS warning. BulkDelete runs deletions
// on a bounded worker pool.
//
// # References
//
//   - GNS3 API: https://gns3-server.readthedocs.io/
//   - gjson: https://github.com/tidwall/gjson
//   - sjson: https://github.com/tidwall/sjson
package gns3
