// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides the HTTP client plumbing used by the map providers.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"
)

/////////////////////////////////////////
/// RountTrippers

// LoggingRoundTripper adds a very primitive logging to a http transaction.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool

	// RedactParams lists query parameters whose values are masked in the dump.
	RedactParams []string
}

// reduce the content the liens.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 2048, 512

	for i, line := range lines {
		if i < maxLines {
			lines[i] = fmt.Sprintf("%c %s", prefix, line)
		} else {
			break
		}
	}

	if len(lines) > maxLines {
		lines = lines[:maxLines]
		lines = append(lines, "…")
	}

	for i, line := range lines {
		if len(line) > maxChars {
			lines[i] = line[0:maxChars] + "…"
		}
	}

	return lines
}

// RedactURL returns a copy of u with the values of the given query parameters
// replaced by a placeholder.
func RedactURL(u *url.URL, params []string) *url.URL {
	redacted := *u
	if len(params) == 0 || u.RawQuery == "" {
		return &redacted
	}

	q := u.Query()
	for _, p := range params {
		if q.Has(p) {
			q.Set(p, "REDACTED")
		}
	}

	redacted.RawQuery = q.Encode()

	return &redacted
}

func (t *LoggingRoundTripper) dumpRequest(req *http.Request) error {
	out := req.Clone(req.Context())
	out.URL = RedactURL(req.URL, t.RedactParams)

	if out.Header.Get("Authorization") != "" {
		out.Header.Set("Authorization", "REDACTED")
	}

	dump, err := httputil.DumpRequestOut(out, true)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	// The clone shares the body reader; rewind the original when possible.
	if req.Body != nil && req.Body != http.NoBody && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return fmt.Errorf("tracing HTTP request: %w", err)
		}

		req.Body = body
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '>')
	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

func (t *LoggingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := abbreviate(strings.Split(string(dump), "\n"), '<')

	_, err = fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n", duration)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines = append(lines, "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	if err := t.dumpRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if err := t.dumpResponse(resp, time.Since(start)); err != nil {
		return nil, err
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to the request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	return t.Transport.RoundTrip(req)
}

////////////////////////////////////////////////////

// ClientOptions configures NewClient.
type ClientOptions struct {
	// Timeout bounds every request. Zero means 10 seconds.
	Timeout time.Duration

	// UserAgent is sent with every request when set.
	UserAgent string

	// TraceWriter enables request/response tracing when not nil.
	TraceWriter io.Writer

	// TraceBody includes response bodies in the trace.
	TraceBody bool

	// RedactParams are masked in traces (e.g. API keys).
	RedactParams []string

	// Transport is the base transport. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// NewClient builds an *http.Client wrapping the base transport with the
// header and tracing round trippers.
func NewClient(opts ClientOptions) *http.Client {
	transport := opts.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	if opts.TraceWriter != nil {
		transport = &LoggingRoundTripper{
			Transport:    transport,
			Writer:       opts.TraceWriter,
			DumpBody:     opts.TraceBody,
			RedactParams: opts.RedactParams,
		}
	}

	if opts.UserAgent != "" {
		transport = &AppendRequestHeadersRoundTripper{
			Transport: transport,
			Headers:   map[string]string{"User-Agent": opts.UserAgent},
		}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &http.Client{Transport: transport, Timeout: timeout}
}
