package testserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"perfkit/internal/demo"
)

// Controller metric paths served by the fake controller.
const (
	metricCalls    = "Application Infrastructure Performance|*|Calls per Minute"
	metricResponse = "Application Infrastructure Performance|*|Average Response Time (ms)"
	metricErrors   = "Application Infrastructure Performance|*|Errors per Minute"
)

// ControllerApp is one application known to the fake controller. Paths
// listed in Broken answer with 500.
type ControllerApp struct {
	ID             int64
	Name           string
	CallsPerMinute float64
	ResponseTime   float64
	ErrorsPerMin   float64
	Broken         []string
}

type controllerState struct {
	clientID      string
	secret        string
	tokenLifetime time.Duration
	apps          []ControllerApp
	tokens        map[string]bool
}

// WithApplications replaces the controller's application list.
func WithApplications(apps ...ControllerApp) Option {
	return func(s *Server) { s.controller.apps = apps }
}

// defaultControllerApps serves the demo applications plus an idle one.
func defaultControllerApps() []ControllerApp {
	var apps []ControllerApp
	for _, m := range demo.Samples(time.Now()) {
		apps = append(apps, ControllerApp{
			ID:             m.ApplicationID,
			Name:           m.ApplicationName,
			CallsPerMinute: m.CallsPerMinute,
			ResponseTime:   m.AverageResponseTime,
			ErrorsPerMin:   m.ErrorsPerMinute,
		})
	}
	return append(apps, ControllerApp{ID: 1007, Name: "Batch-Jobs"})
}

func (s *Server) handleAccessToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	if r.PostForm.Get("grant_type") != "client_credentials" {
		writeError(w, http.StatusBadRequest, "unsupported grant_type")
		return
	}
	if r.PostForm.Get("client_id") != s.controller.clientID || r.PostForm.Get("client_secret") != s.controller.secret {
		writeError(w, http.StatusUnauthorized, "invalid client")
		return
	}

	token := fmt.Sprintf("ctrl-%d", s.requestID.Add(1))
	s.mu.Lock()
	if s.controller.tokens == nil {
		s.controller.tokens = make(map[string]bool)
	}
	s.controller.tokens[token] = true
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(s.controller.tokenLifetime.Seconds()),
	})
}

// controllerAuth rejects requests without a token issued by handleAccessToken.
func (s *Server) controllerAuth(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		ok := s.controller.tokens[token]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		h(w, r)
	}
}

func (s *Server) handleApplications(w http.ResponseWriter, r *http.Request) {
	out := make([]map[string]any, 0, len(s.controller.apps))
	for _, app := range s.controller.apps {
		out = append(out, map[string]any{
			"id":          app.ID,
			"name":        app.Name,
			"description": "",
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMetricData(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid application id")
		return
	}
	var app *ControllerApp
	for i := range s.controller.apps {
		if s.controller.apps[i].ID == id {
			app = &s.controller.apps[i]
		}
	}
	if app == nil {
		writeError(w, http.StatusNotFound, "application not found")
		return
	}

	q := r.URL.Query()
	if q.Get("time-range-type") != "BETWEEN_TIMES" || q.Get("start-time") == "" || q.Get("end-time") == "" {
		writeError(w, http.StatusBadRequest, "time range required")
		return
	}
	path := q.Get("metric-path")
	for _, broken := range app.Broken {
		if broken == path {
			writeError(w, http.StatusInternalServerError, "metric store unavailable")
			return
		}
	}

	var value float64
	switch path {
	case metricCalls:
		value = app.CallsPerMinute
	case metricResponse:
		value = app.ResponseTime
	case metricErrors:
		value = app.ErrorsPerMin
	default:
		writeJSON(w, http.StatusOK, []any{})
		return
	}

	start, _ := strconv.ParseInt(q.Get("start-time"), 10, 64)
	writeJSON(w, http.StatusOK, []map[string]any{{
		"metricName": path,
		"metricPath": path,
		"frequency":  "ONE_MIN",
		"metricValues": []map[string]any{
			{"startTimeInMillis": start, "value": value, "count": 1},
		},
	}})
}
