package journey

import (
	"context"
	"net/http"
	"sync"

	phttp "perfkit/internal/http"
)

// fakeDoer records requests and answers them with handler, or 200 OK.
type fakeDoer struct {
	mu       sync.Mutex
	requests []phttp.Request
	handler  func(req phttp.Request) (*phttp.Response, error)
}

func (f *fakeDoer) Do(ctx context.Context, req phttp.Request) (*phttp.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.handler == nil {
		return status(http.StatusOK), nil
	}
	return f.handler(req)
}

func (f *fakeDoer) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.Name
	}
	return out
}

func status(code int) *phttp.Response {
	return &phttp.Response{StatusCode: code, Status: http.StatusText(code)}
}

// seqRand replays fixed values, then returns zero.
type seqRand struct {
	ints   []int
	floats []float64
}

func (r *seqRand) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func (r *seqRand) Float64() float64 {
	if len(r.floats) == 0 {
		return 0
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}
