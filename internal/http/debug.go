// Package http is the HTTP client shared by the journey simulator and the
// AppDynamics poller.
package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

const maxBodyLogSize = 1024

// DebugLogger dumps requests and responses for --verbose runs. A nil
// *DebugLogger is valid and logs nothing.
type DebugLogger struct {
	out io.Writer
	mu  sync.Mutex
}

func NewDebugLogger(out io.Writer) *DebugLogger {
	return &DebugLogger{out: out}
}

func (d *DebugLogger) LogRequest(actorID int, name string, req *http.Request) {
	if d == nil {
		return
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\n[User %d] >>> %s\n", actorID, name)
	fmt.Fprintf(&buf, "  %s %s\n", req.Method, req.URL.String())
	writeHeaders(&buf, req.Header)

	if req.GetBody != nil {
		if rc, err := req.GetBody(); err == nil {
			body, _ := io.ReadAll(rc)
			rc.Close()
			if len(body) > 0 {
				fmt.Fprintf(&buf, "  Body: %s\n", truncateBody(body))
			}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.out, buf.String())
}

func (d *DebugLogger) LogResponse(actorID int, name string, resp *http.Response, body []byte, duration time.Duration) {
	if d == nil {
		return
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[User %d] <<< %s (%s)\n", actorID, name, duration.Round(time.Millisecond))
	fmt.Fprintf(&buf, "  Status: %d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode))
	writeHeaders(&buf, resp.Header)
	if len(body) > 0 {
		fmt.Fprintf(&buf, "  Body: %s\n", truncateBody(body))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.out, buf.String())
}

func (d *DebugLogger) LogError(actorID int, name string, errMsg string, duration time.Duration) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "[User %d] !!! ERROR: %s (%s)\n  %s\n",
		actorID, name, duration.Round(time.Millisecond), errMsg)
}

// writeHeaders prints headers sorted by name with credentials masked.
func writeHeaders(buf *bytes.Buffer, h http.Header) {
	if len(h) == 0 {
		return
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	buf.WriteString("  Headers:\n")
	for _, name := range names {
		value := strings.Join(h[name], ", ")
		if name == "Authorization" {
			value = redact(value)
		}
		fmt.Fprintf(buf, "    %s: %s\n", name, value)
	}
}

func redact(v string) string {
	scheme, _, found := strings.Cut(v, " ")
	if !found {
		return "[redacted]"
	}
	return scheme + " [redacted]"
}

func truncateBody(body []byte) string {
	if len(body) <= maxBodyLogSize {
		return string(body)
	}
	return string(body[:maxBodyLogSize]) + fmt.Sprintf("... (truncated, %d bytes total)", len(body))
}
