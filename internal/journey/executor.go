package journey

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"perfkit/internal/core"
	phttp "perfkit/internal/http"
)

const (
	acceptHeader   = "application/json, text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "en-US,en;q=0.5"
	maxProductID   = 100
)

var searchTerms = []string{
	"laptop", "smartphone", "headphones", "book", "dress",
	"shoes", "watch", "camera", "tablet", "backpack",
}

// Doer sends one request. *phttp.Client implements it.
type Doer interface {
	Do(ctx context.Context, req phttp.Request) (*phttp.Response, error)
}

// ExecutorConfig wires an Executor to its session.
type ExecutorConfig struct {
	Client     Doer
	Clock      core.Clock
	Rand       Rand
	Faker      *gofakeit.Faker
	Tracer     trace.Tracer
	Reporter   core.Reporter
	ThinkScale float64 // multiplies every dwell, 0 disables them
	ActorID    int
	SessionID  string
	Journey    string // pattern name stamped on reported events
}

// Executor performs journey steps on behalf of one shopper.
type Executor struct {
	cfg     ExecutorConfig
	profile UserProfile
}

// NewExecutor returns an executor for profile.
func NewExecutor(cfg ExecutorConfig, profile UserProfile) *Executor {
	if cfg.Clock == nil {
		cfg.Clock = core.RealClock{}
	}
	if cfg.Reporter == nil {
		cfg.Reporter = core.NullReporter
	}
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if cfg.Faker == nil {
		cfg.Faker = gofakeit.New(0)
	}
	return &Executor{cfg: cfg, profile: profile}
}

// Execute performs one step and updates state. HTTP error statuses are
// outcomes and leave err nil; transport failures and cancellation are returned.
func (e *Executor) Execute(ctx context.Context, kind StepKind, state *SessionState) error {
	ctx, span := e.cfg.Tracer.Start(ctx, "step_"+kind.String())
	defer span.End()

	var err error
	switch kind {
	case Homepage:
		err = e.visitHomepage(ctx, state)
	case Login:
		err = e.login(ctx, state)
	case BrowseProducts, ContinueShopping:
		err = e.browseProducts(ctx, kind, state)
	case SearchProduct:
		err = e.searchProducts(ctx, state)
	case ViewProduct:
		err = e.viewProduct(ctx, kind, state)
	case AddToCart:
		err = e.addToCart(ctx, state)
	case ViewCart:
		err = e.viewCart(ctx, state)
	case Checkout:
		err = e.checkout(ctx, state)
	case ViewOrders:
		err = e.viewOrders(ctx, state)
	case Exit:
	default:
		return fmt.Errorf("%w: %v", ErrUnknownStep, kind)
	}
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.Bool("step.completed", true))
	return nil
}

func (e *Executor) visitHomepage(ctx context.Context, state *SessionState) error {
	ctx, span := e.cfg.Tracer.Start(ctx, "visit_homepage")
	defer span.End()

	resp, err := e.send(ctx, span, Homepage, state, phttp.Request{Name: "Homepage", Path: "/"})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusOK {
		return e.dwell(ctx, 2, 8)
	}
	return nil
}

func (e *Executor) login(ctx context.Context, state *SessionState) error {
	ctx, span := e.cfg.Tracer.Start(ctx, "login_user")
	defer span.End()

	creds := map[string]string{"email": e.profile.Email, "password": e.profile.Password}
	req := phttp.Request{
		Name:   "Login Attempt",
		Method: http.MethodPost,
		Path:   "/user-service/api/users/login",
		JSON:   creds,
	}
	resp, err := e.send(ctx, nil, Login, state, req)
	if err != nil {
		span.RecordError(err)
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if err := e.register(ctx, state); err != nil {
			return err
		}
		req.Name = "Login After Registration"
		resp, err = e.send(ctx, nil, Login, state, req)
		if err != nil {
			span.RecordError(err)
			return err
		}
	}

	if resp.StatusCode == http.StatusOK {
		if gjson.ValidBytes(resp.Body) {
			state.AuthToken = gjson.GetBytes(resp.Body, "token").String()
			span.SetAttributes(attribute.Bool("login.success", true))
		} else {
			span.SetAttributes(attribute.Bool("login.success", false))
		}
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return nil
}

func (e *Executor) register(ctx context.Context, state *SessionState) error {
	ctx, span := e.cfg.Tracer.Start(ctx, "register_user")
	defer span.End()

	resp, err := e.send(ctx, span, Login, state, phttp.Request{
		Name:   "User Registration",
		Method: http.MethodPost,
		Path:   "/user-service/api/users/register",
		JSON: map[string]string{
			"firstName": e.profile.FirstName,
			"lastName":  e.profile.LastName,
			"email":     e.profile.Email,
			"password":  e.profile.Password,
			"role":      "USER",
		},
	})
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Bool("registration.success", resp.StatusCode == http.StatusOK))
	return nil
}

func (e *Executor) browseProducts(ctx context.Context, kind StepKind, state *SessionState) error {
	ctx, span := e.cfg.Tracer.Start(ctx, "browse_products")
	defer span.End()

	req := phttp.Request{Name: "Browse All Products", Path: "/product-service/api/products"}
	cats := e.profile.PreferredCategories
	if e.cfg.Rand.Float64() < 0.7 && len(cats) > 0 {
		category := cats[e.cfg.Rand.Intn(len(cats))]
		req.Name = "Browse Products - " + category
		req.Query = url.Values{"category": {category}}
	}

	resp, err := e.send(ctx, span, kind, state, req)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusOK {
		return e.dwell(ctx, 3, 12)
	}
	return nil
}

func (e *Executor) searchProducts(ctx context.Context, state *SessionState) error {
	ctx, span := e.cfg.Tracer.Start(ctx, "search_products")
	defer span.End()

	query := searchTerms[e.cfg.Rand.Intn(len(searchTerms))]
	span.SetAttributes(attribute.String("search.query", query))

	resp, err := e.send(ctx, span, SearchProduct, state, phttp.Request{
		Name:  "Search - " + query,
		Path:  "/product-service/api/products/search",
		Query: url.Values{"q": {query}},
	})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusOK {
		return e.dwell(ctx, 2, 6)
	}
	return nil
}

func (e *Executor) viewProduct(ctx context.Context, kind StepKind, state *SessionState) error {
	ctx, span := e.cfg.Tracer.Start(ctx, "view_product")
	defer span.End()

	id := e.cfg.Rand.Intn(maxProductID) + 1
	span.SetAttributes(attribute.Int("product.id", id))

	resp, err := e.send(ctx, span, kind, state, phttp.Request{
		Name: "View Product " + strconv.Itoa(id),
		Path: "/product-service/api/products/" + strconv.Itoa(id),
	})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusOK {
		state.ViewedProducts = append(state.ViewedProducts, id)
		return e.dwell(ctx, 5, 20)
	}
	return nil
}

func (e *Executor) addToCart(ctx context.Context, state *SessionState) error {
	ctx, span := e.cfg.Tracer.Start(ctx, "add_to_cart")
	defer span.End()

	if len(state.ViewedProducts) == 0 {
		if err := e.viewProduct(ctx, AddToCart, state); err != nil {
			return err
		}
	}
	if len(state.ViewedProducts) == 0 {
		return nil
	}

	productID := state.ViewedProducts[e.cfg.Rand.Intn(len(state.ViewedProducts))]
	quantity := e.cfg.Rand.Intn(3) + 1
	span.SetAttributes(
		attribute.Int("cart.product_id", productID),
		attribute.Int("cart.quantity", quantity),
	)

	resp, err := e.send(ctx, span, AddToCart, state, phttp.Request{
		Name:   "Add to Cart",
		Method: http.MethodPost,
		Path:   "/cart-service/api/cart/add",
		JSON:   map[string]int{"productId": productID, "quantity": quantity},
	})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		state.CartItems = append(state.CartItems, CartItem{ProductID: productID, Quantity: quantity})
	}
	return nil
}

func (e *Executor) viewCart(ctx context.Context, state *SessionState) error {
	ctx, span := e.cfg.Tracer.Start(ctx, "view_cart")
	defer span.End()

	span.SetAttributes(attribute.Int("cart.items_count", len(state.CartItems)))
	resp, err := e.send(ctx, span, ViewCart, state, phttp.Request{Name: "View Cart", Path: "/cart-service/api/cart"})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusOK {
		return e.dwell(ctx, 2, 8)
	}
	return nil
}

func (e *Executor) checkout(ctx context.Context, state *SessionState) error {
	ctx, span := e.cfg.Tracer.Start(ctx, "checkout")
	defer span.End()

	if len(state.CartItems) == 0 {
		span.SetAttributes(
			attribute.Bool("checkout.abandoned", true),
			attribute.String("checkout.reason", "empty_cart"),
		)
		state.markAbandoned("empty_cart")
		return nil
	}

	// filling in the checkout form
	if err := e.dwell(ctx, 10, 30); err != nil {
		return err
	}

	f := e.cfg.Faker
	resp, err := e.send(ctx, span, Checkout, state, phttp.Request{
		Name:   "Checkout",
		Method: http.MethodPost,
		Path:   "/order-service/api/orders/checkout",
		JSON: map[string]any{
			"shippingAddress": map[string]string{
				"street":  f.Street(),
				"city":    f.City(),
				"state":   f.State(),
				"zipCode": f.Zip(),
				"country": "US",
			},
			"paymentMethod": "credit_card",
		},
	})
	if err != nil {
		return err
	}

	span.SetAttributes(attribute.Int("checkout.items_count", len(state.CartItems)))
	success := resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated
	if success {
		state.CartItems = nil
	}
	span.SetAttributes(attribute.Bool("checkout.success", success))
	return nil
}

func (e *Executor) viewOrders(ctx context.Context, state *SessionState) error {
	ctx, span := e.cfg.Tracer.Start(ctx, "view_orders")
	defer span.End()

	resp, err := e.send(ctx, span, ViewOrders, state, phttp.Request{Name: "View Orders", Path: "/order-service/api/orders"})
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusOK {
		return e.dwell(ctx, 3, 10)
	}
	return nil
}

// send issues req with the shopper's headers and reports one event. When
// span is non-nil the status code, or the transport error, is recorded on it.
func (e *Executor) send(ctx context.Context, span trace.Span, step StepKind, state *SessionState, req phttp.Request) (*phttp.Response, error) {
	req.Headers = e.headers(state)

	event := core.Event{
		ActorID:   e.cfg.ActorID,
		SessionID: e.cfg.SessionID,
		Journey:   e.cfg.Journey,
		Step:      step.String(),
		Name:      req.Name,
		Timestamp: e.cfg.Clock.Now(),
		Protocol:  "http",
	}

	start := time.Now()
	resp, err := e.cfg.Client.Do(ctx, req)
	if err != nil {
		event.Duration = time.Since(start)
		event.Error = err.Error()
		e.cfg.Reporter.Report(event)
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}

	event.Duration = resp.Duration
	event.StatusCode = resp.StatusCode
	event.Success = resp.StatusCode < 400
	if !event.Success {
		event.Error = resp.Status
	}
	event.BytesSent = resp.BytesSent
	event.BytesRecv = resp.BytesRecv
	e.cfg.Reporter.Report(event)

	if span != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	}
	return resp, nil
}

func (e *Executor) headers(state *SessionState) map[string]string {
	h := map[string]string{
		"User-Agent":      e.profile.UserAgent,
		"Accept":          acceptHeader,
		"Accept-Language": acceptLanguage,
	}
	if state.AuthToken != "" {
		h["Authorization"] = "Bearer " + state.AuthToken
	}
	return h
}

// dwell simulates reading a page for U(lo,hi) seconds, jittered by ±20%.
func (e *Executor) dwell(ctx context.Context, lo, hi float64) error {
	return sleepScaled(ctx, e.cfg.Clock, e.cfg.ThinkScale, uniform(e.cfg.Rand, lo, hi)*uniform(e.cfg.Rand, 0.8, 1.2))
}

func sleepScaled(ctx context.Context, clock core.Clock, scale, seconds float64) error {
	if scale <= 0 {
		return ctx.Err()
	}
	d := time.Duration(seconds * scale * float64(time.Second))
	return clock.Sleep(ctx, d)
}
