// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

// Package output renders controller responses and failures for the terminal.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/netascode/go-gns3"
)

var (
	errorLabel   = color.New(color.FgRed, color.Bold).SprintFunc()
	successLabel = color.New(color.FgGreen).SprintFunc()
	warnLabel    = color.New(color.FgYellow).SprintFunc()
	highlight    = color.New(color.FgCyan, color.Bold).SprintFunc()
	bold         = color.New(color.Bold).SprintFunc()
	separatorFn  = color.New(color.FgHiBlack).SprintFunc()
)

// DisableColor turns off colouring for all output of the process
func DisableColor() {
	color.NoColor = true
}

// FormatError renders err as a single line prefixed with "Error:".
//
// Not-found failures name the missing resource; other controller failures
// show the kind and the server's message.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	e, ok := gns3.AsError(err)
	if !ok {
		return fmt.Sprintf("%s %s", errorLabel("Error:"), err.Error())
	}

	var line string
	switch e.Kind {
	case gns3.KindNotFound:
		if e.Resource != "" {
			return FormatNotFound(e.Resource)
		}
		return FormatNotFound(e.Message)
	case gns3.KindOtherHTTPStatus:
		line = fmt.Sprintf("%s (%d): %s", e.Kind, e.StatusCode, e.Message)
	case gns3.KindUnauthorized:
		line = fmt.Sprintf("%s: %s (use %s to authenticate)", e.Kind, e.Message, bold("auth login"))
	default:
		line = fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}

	ctx, ok := wrapContext(err, e)
	if !ok {
		return fmt.Sprintf("%s %s", errorLabel("Error:"), err.Error())
	}
	if ctx != "" {
		line = ctx + ": " + line
	}
	return fmt.Sprintf("%s %s", errorLabel("Error:"), line)
}

// wrapContext returns what helpers such as the script runner put in front
// of e when wrapping it with %w. It reports false when e is not the tail
// of err's message.
func wrapContext(err error, e *gns3.Error) (string, bool) {
	full, inner := err.Error(), e.Error()
	if !strings.HasSuffix(full, inner) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimSuffix(full, inner), ": "), true
}

// FormatNotFound renders the not-found line for one or more names
func FormatNotFound(names ...string) string {
	quoted := make([]string, 0, len(names))
	for _, n := range names {
		quoted = append(quoted, highlight(n))
	}
	return fmt.Sprintf("%s resource not found: %s", errorLabel("Error:"), strings.Join(quoted, ", "))
}

// FormatSuccess renders a success line
func FormatSuccess(format string, a ...any) string {
	return fmt.Sprintf("%s %s", successLabel("Success:"), fmt.Sprintf(format, a...))
}

// FormatWarning renders a warning line
func FormatWarning(format string, a ...any) string {
	return fmt.Sprintf("%s %s", warnLabel("Warning:"), fmt.Sprintf(format, a...))
}

// Printer writes response bodies in the configured mode
type Printer struct {
	W io.Writer

	// Raw prints pretty JSON instead of key/value lines
	Raw bool

	// NoColor disables colourised JSON
	NoColor bool
}

// PrintResult prints a dispatch result. Empty bodies print a success line
// naming what was executed.
func (p Printer) PrintResult(name string, res gns3.Res) {
	if res.IsEmpty() {
		fmt.Fprintln(p.W, FormatSuccess("%s executed successfully (no content returned)", name))
		return
	}
	p.Print(res.Body)
}

// Print prints a JSON body
func (p Printer) Print(body []byte) {
	if p.Raw {
		p.PrintJSON(body)
		return
	}
	p.PrintKV(body)
}

// PrintJSON pretty-prints body, coloured unless NoColor is set
func (p Printer) PrintJSON(body []byte) {
	result := pretty.Pretty(body)
	if !p.NoColor && !color.NoColor {
		result = pretty.Color(result, nil)
	}
	fmt.Fprint(p.W, string(result))
}

// PrintKV prints objects as "key: value" lines, arrays as separated blocks
func (p Printer) PrintKV(body []byte) {
	result := gjson.ParseBytes(body)
	switch {
	case result.IsArray():
		items := result.Array()
		if len(items) == 0 {
			fmt.Fprintln(p.W, "  No data found")
			return
		}
		for _, item := range items {
			p.separator()
			p.printItem(item)
		}
		p.separator()
	case result.IsObject():
		p.separator()
		p.printItem(result)
		p.separator()
	default:
		fmt.Fprintln(p.W, strings.TrimSpace(string(body)))
	}
}

func (p Printer) printItem(item gjson.Result) {
	if !item.IsObject() {
		fmt.Fprintf(p.W, "  %s\n", item.Raw)
		return
	}
	item.ForEach(func(key, value gjson.Result) bool {
		fmt.Fprintf(p.W, "  %s: %s\n", highlight(key.String()), value.Raw)
		return true
	})
}

func (p Printer) separator() {
	fmt.Fprintln(p.W, separatorFn(strings.Repeat("-", 69)))
}

// JoinItems renders gjson items as one JSON array
func JoinItems(items []gjson.Result) []byte {
	var b strings.Builder
	b.WriteByte('[')
	for i, it := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(it.Raw)
	}
	b.WriteByte(']')
	return []byte(b.String())
}
