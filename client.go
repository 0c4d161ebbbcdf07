// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package gns3

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Default client configuration values
const (
	DefaultRequestTimeout    = 10 * time.Second
	DefaultFeedDuration      = 60 * time.Second
	DefaultVerifyCertificate = true
	DefaultPrettyPrintLogs   = false
	DefaultUserAgent         = "go-gns3"
	APIVersionPrefix         = "/v3"
)

// Security limits for JSON processing and logging
const (
	MaxJSONSizeForLogging = 1 * 1024 * 1024 // 1MB
	MaxSensitiveFields    = 1000
)

// Logging message constants
const (
	JSONTooLargeMessage     = "[JSON TOO LARGE FOR LOGGING]"
	JSONTooManySensitiveMsg = "[JSON CONTAINS TOO MANY SENSITIVE FIELDS]"
)

// sensitiveJSONKeys are redacted from bodies logged at Debug level
var sensitiveJSONKeys = []string{"password", "access_token", "token", "secret", "key"}

// defaultRedactionPatterns holds one pattern per entry of sensitiveJSONKeys
var defaultRedactionPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(sensitiveJSONKeys))
	for _, key := range sensitiveJSONKeys {
		patterns = append(patterns, regexp.MustCompile(`"`+key+`"\s*:\s*"[^"]*"`))
	}
	return patterns
}()

// TokenSource supplies the bearer token for outgoing requests.
//
// The credential store of the CLI implements it; Token(...) covers the
// static case.
type TokenSource interface {
	Token() (string, bool)
}

// TokenFunc adapts a function to the TokenSource interface
type TokenFunc func() (string, bool)

// Token implements TokenSource
func (f TokenFunc) Token() (string, bool) {
	return f()
}

// InsecureNotice performs the one-time setup that accompanies disabled
// certificate verification: the warning is logged once, no matter how many
// requests or clients share the notice.
type InsecureNotice struct {
	once  sync.Once
	count atomic.Int32
}

// processInsecureNotice is shared by every client that does not configure
// its own notice
var processInsecureNotice = &InsecureNotice{}

// Setup runs the insecure-connection setup at most once
func (n *InsecureNotice) Setup(ctx context.Context, logger Logger, baseURL string) {
	n.once.Do(func() {
		n.count.Add(1)
		logger.Warn(ctx, "TLS certificate verification disabled",
			"server", baseURL,
			"security_risk", "Man-in-the-Middle attacks possible")
	})
}

// Count reports how many times the setup ran (0 or 1)
func (n *InsecureNotice) Count() int {
	return int(n.count.Load())
}

// Client is a GNS3 v3 controller client.
//
// A Client holds no per-request state and is safe for concurrent use. Every
// call opens (or reuses from the pool) its own connection and produces an
// independent result.
type Client struct {
	// BaseURL is the controller URL without trailing slash, e.g. https://gns3.lab:3080
	BaseURL string

	// apiRoot is BaseURL plus the versioned prefix
	apiRoot string

	// Authentication
	token       string // unexported for security
	tokenSource TokenSource

	// TLS options
	VerifyCertificate bool

	// Timeout configuration
	RequestTimeout time.Duration
	FeedDuration   time.Duration

	UserAgent string

	httpClient     *http.Client
	insecureNotice *InsecureNotice

	// Logging configuration
	logger            Logger
	prettyPrintLogs   bool
	redactionPatterns []*regexp.Regexp

	closed atomic.Bool
}

// NewClient creates a new GNS3 client for the controller at baseURL.
//
// The trailing slash of baseURL is stripped once here; endpoints are then
// appended below the /v3 prefix. No request is made until the first call.
//
// Example:
//
//	client, err := gns3.NewClient("https://gns3.lab:3080",
//	    gns3.Token(token),
//	    gns3.VerifyCertificate(false),
//	    gns3.RequestTimeout(15*time.Second),
//	)
//	if err != nil {
//	    log.Fatal(err) // configuration error
//	}
//	defer client.Close()
//
//	res, err := client.Get(ctx, gns3.Endpoints.Users())
//
// Returns a configured Client or an error if configuration validation fails.
func NewClient(baseURL string, opts ...func(*Client)) (*Client, error) {
	client := &Client{
		BaseURL:           strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		VerifyCertificate: DefaultVerifyCertificate,
		RequestTimeout:    DefaultRequestTimeout,
		FeedDuration:      DefaultFeedDuration,
		UserAgent:         DefaultUserAgent,
		insecureNotice:    processInsecureNotice,
		logger:            &NoOpLogger{},
		prettyPrintLogs:   DefaultPrettyPrintLogs,
		redactionPatterns: defaultRedactionPatterns,
	}

	for _, opt := range opts {
		opt(client)
	}

	if err := client.validateConfig(); err != nil {
		return nil, err
	}

	client.apiRoot = client.BaseURL + APIVersionPrefix
	if client.httpClient == nil {
		client.httpClient = &http.Client{Transport: client.buildTransport()}
	}

	client.logger.Info(context.Background(), "GNS3 client created",
		"server", client.BaseURL,
		"verify_certificate", client.VerifyCertificate)

	return client, nil
}

// validateConfig validates client configuration
//
// Validates:
//   - BaseURL is an absolute http or https URL
//   - Positive timeouts
func (c *Client) validateConfig() error {
	if c.BaseURL == "" {
		return fmt.Errorf("server URL cannot be empty")
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server URL scheme %q (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("server URL %q has no host", c.BaseURL)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got: %v", c.RequestTimeout)
	}
	if c.FeedDuration <= 0 {
		return fmt.Errorf("feed duration must be positive, got: %v", c.FeedDuration)
	}

	if u.Scheme == "http" {
		c.logger.Warn(context.Background(), "TLS disabled - connection is not encrypted",
			"server", c.BaseURL,
			"security_risk", "Credentials and tokens transmitted in clear text")
	}

	return nil
}

// buildTransport clones the default transport and applies TLS settings
func (c *Client) buildTransport() *http.Transport {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if !c.VerifyCertificate {
		//nolint:gosec // G402: verification is disabled on explicit request only
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return tr
}

// Close releases idle connections. The client stays usable; a later request
// simply opens a new connection.
//
// Safe to call multiple times.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.httpClient.CloseIdleConnections()
	c.logger.Debug(context.Background(), "GNS3 client idle connections closed",
		"server", c.BaseURL)
	return nil
}

// HasCredentials reports whether a token is configured, without exposing it
func (c *Client) HasCredentials() bool {
	_, ok := c.currentToken()
	return ok
}

// currentToken resolves the bearer token for the next request
func (c *Client) currentToken() (string, bool) {
	if c.tokenSource != nil {
		if tok, ok := c.tokenSource.Token(); ok && tok != "" {
			return tok, true
		}
		return "", false
	}
	return c.token, c.token != ""
}

// Logger returns the configured logger
func (c *Client) Logger() Logger {
	return c.logger
}

// prepareJSONForLogging redacts sensitive data and formats JSON for logging
//
//  1. Rejects bodies larger than MaxJSONSizeForLogging
//  2. Rejects bodies with more than MaxSensitiveFields sensitive keys
//  3. Redacts sensitive values
//  4. Pretty-prints if enabled
func (c *Client) prepareJSONForLogging(jsonStr string) string {
	if len(jsonStr) > MaxJSONSizeForLogging {
		return JSONTooLargeMessage
	}

	sensitiveCount := 0
	for _, key := range sensitiveJSONKeys {
		sensitiveCount += strings.Count(jsonStr, `"`+key+`"`)
	}
	if sensitiveCount > MaxSensitiveFields {
		c.logger.Warn(context.Background(), "Too many sensitive fields detected",
			"count", sensitiveCount,
			"max", MaxSensitiveFields)
		return JSONTooManySensitiveMsg
	}

	redacted := c.redactSensitiveData(jsonStr)

	if c.prettyPrintLogs {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(redacted), "", "  "); err == nil {
			return buf.String()
		}
	}

	return redacted
}

// redactSensitiveData replaces sensitive string values with [REDACTED]
func (c *Client) redactSensitiveData(s string) string {
	result := s
	for i, pattern := range c.redactionPatterns {
		if i >= len(sensitiveJSONKeys) {
			break
		}
		result = pattern.ReplaceAllString(result, `"`+sensitiveJSONKeys[i]+`":"[REDACTED]"`)
	}
	return result
}
