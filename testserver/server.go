// Package testserver provides a fake e-commerce backend and a fake
// AppDynamics controller for exercising perfkit without real services.
package testserver

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Server serves the shop API and the controller API on one mux.
type Server struct {
	mux       *http.ServeMux
	requestID atomic.Int64

	latency  time.Duration
	failRate int // percent of product requests answered with 500

	mu     sync.Mutex
	rng    *rand.Rand
	users  map[string]*account // by email
	tokens map[string]*account // by bearer token
	guest  *account
	hits   map[string]int // by route pattern

	controller controllerState
}

// Option configures a Server.
type Option func(*Server)

// WithLatency delays every shop response by d.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

// WithFailRate makes percent of product requests fail with 500.
func WithFailRate(percent int) Option {
	return func(s *Server) { s.failRate = percent }
}

// WithControllerCredentials sets the client id and secret the fake
// controller accepts. The id must include the account, e.g. "perfkit@acme".
func WithControllerCredentials(clientID, secret string) Option {
	return func(s *Server) {
		s.controller.clientID = clientID
		s.controller.secret = secret
	}
}

// WithTokenLifetime sets expires_in for issued controller tokens.
func WithTokenLifetime(d time.Duration) Option {
	return func(s *Server) { s.controller.tokenLifetime = d }
}

// NewServer creates a test server with all endpoints configured.
func NewServer(opts ...Option) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		users:  make(map[string]*account),
		tokens: make(map[string]*account),
		hits:   make(map[string]int),
		guest:  &account{Email: "guest", Cart: make(map[int]int)},
		controller: controllerState{
			clientID:      "perfkit@customer1",
			secret:        "secret",
			tokenLifetime: time.Hour,
			apps:          defaultControllerApps(),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerHandlers()
	return s
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Hits returns how many requests matched the route pattern, e.g.
// "POST /cart-service/api/cart/add".
func (s *Server) Hits(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[pattern]
}

func (s *Server) registerHandlers() {
	s.handle("GET /health", s.handleHealth)

	s.handle("POST /user-service/api/users/login", s.shop(s.handleLogin))
	s.handle("POST /user-service/api/users/register", s.shop(s.handleRegister))
	s.handle("GET /{$}", s.shop(s.handleHomepage))
	s.handle("GET /product-service/api/products", s.shop(s.failing(s.handleProducts)))
	s.handle("GET /product-service/api/products/search", s.shop(s.failing(s.handleSearch)))
	s.handle("GET /product-service/api/products/{id}", s.shop(s.failing(s.handleProduct)))
	s.handle("POST /cart-service/api/cart/add", s.shop(s.handleAddToCart))
	s.handle("GET /cart-service/api/cart", s.shop(s.handleCart))
	s.handle("POST /order-service/api/orders/checkout", s.shop(s.handleCheckout))
	s.handle("GET /order-service/api/orders", s.shop(s.handleOrders))

	s.handle("POST /controller/api/oauth/access_token", s.handleAccessToken)
	s.handle("GET /controller/rest/applications", s.controllerAuth(s.handleApplications))
	s.handle("GET /controller/rest/applications/{id}/metric-data", s.controllerAuth(s.handleMetricData))
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[pattern]++
		s.mu.Unlock()
		h(w, r)
	})
}

// shop applies the configured latency.
func (s *Server) shop(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.latency > 0 {
			select {
			case <-time.After(s.latency):
			case <-r.Context().Done():
				return
			}
		}
		h(w, r)
	}
}

// failing answers a share of requests with 500.
func (s *Server) failing(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.failRate > 0 && s.intn(100) < s.failRate {
			http.Error(w, "simulated failure", http.StatusInternalServerError)
			return
		}
		h(w, r)
	}
}

func (s *Server) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
