package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var categories = []string{"electronics", "clothing", "books", "home", "sports", "beauty", "toys"}

type account struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Cart      map[int]int // product id to quantity
	Orders    []order
}

type order struct {
	ID    int64     `json:"id"`
	Items int       `json:"items"`
	Total float64   `json:"total"`
	At    time.Time `json:"createdAt"`
}

type product struct {
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
}

func productByID(id int) product {
	return product{
		ID:       id,
		Name:     fmt.Sprintf("Product %d", id),
		Category: categories[id%len(categories)],
		Price:    float64(id%50)*3.5 + 9.99,
	}
}

func (s *Server) handleHomepage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "<html><head><title>Shop</title></head><body>Welcome</body></html>")
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Role      string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[req.Email]; exists {
		writeError(w, http.StatusConflict, "user already exists")
		return
	}
	s.users[req.Email] = &account{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Cart:      make(map[int]int),
	}
	writeJSON(w, http.StatusCreated, map[string]any{"email": req.Email, "role": req.Role})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	s.mu.Lock()
	acct, ok := s.users[req.Email]
	if !ok || acct.Password != req.Password {
		s.mu.Unlock()
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	token := fmt.Sprintf("shop-%d-%d", s.requestID.Add(1), time.Now().UnixNano())
	s.tokens[token] = acct
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"token": token, "email": acct.Email})
}

// session returns the account behind the bearer token. Requests without a
// token share the guest account when allowGuest is set; an unknown token
// never falls back to it.
func (s *Server) session(r *http.Request, allowGuest bool) *account {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		if allowGuest {
			return s.guest
		}
		return nil
	}
	return s.tokens[token]
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	products := make([]product, 0, 20)
	for id := 1; id <= 100 && len(products) < 20; id++ {
		p := productByID(id)
		if category == "" || p.Category == category {
			products = append(products, p)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"content": products, "totalElements": len(products)})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "missing q")
		return
	}
	products := []product{productByID(len(q)), productByID(len(q) * 7)}
	writeJSON(w, http.StatusOK, map[string]any{"query": q, "content": products})
}

func (s *Server) handleProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 || id > 100 {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, productByID(id))
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	acct := s.session(r, true)
	if acct == nil {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	var req struct {
		ProductID int `json:"productId"`
		Quantity  int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID < 1 || req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "invalid cart item")
		return
	}

	s.mu.Lock()
	acct.Cart[req.ProductID] += req.Quantity
	items := len(acct.Cart)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"items": items})
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	acct := s.session(r, true)
	if acct == nil {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}

	s.mu.Lock()
	items := make([]map[string]int, 0, len(acct.Cart))
	for id, qty := range acct.Cart {
		items = append(items, map[string]int{"productId": id, "quantity": qty})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	acct := s.session(r, true)
	if acct == nil {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	var req struct {
		ShippingAddress struct {
			Street  string `json:"street"`
			City    string `json:"city"`
			State   string `json:"state"`
			ZipCode string `json:"zipCode"`
			Country string `json:"country"`
		} `json:"shippingAddress"`
		PaymentMethod string `json:"paymentMethod"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ShippingAddress.Street == "" {
		writeError(w, http.StatusBadRequest, "shipping address required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(acct.Cart) == 0 {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}
	o := order{ID: s.requestID.Add(1), At: time.Now().UTC()}
	for id, qty := range acct.Cart {
		o.Items += qty
		o.Total += productByID(id).Price * float64(qty)
	}
	acct.Orders = append(acct.Orders, o)
	acct.Cart = make(map[int]int)

	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	acct := s.session(r, false)
	if acct == nil {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}
	s.mu.Lock()
	orders := append([]order{}, acct.Orders...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, orders)
}
