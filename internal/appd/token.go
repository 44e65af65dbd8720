package appd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// ErrAuthentication means no access token could be obtained. It ends a
// metrics run.
var ErrAuthentication = errors.New("appd: authentication failed")

const (
	tokenPath = "/controller/api/oauth/access_token"
	// tokens are refreshed this long before they expire
	tokenRefreshBuffer = 5 * time.Minute
	// lifetime assumed when the controller omits expires_in
	defaultTokenLifetime = time.Hour
)

// TokenProvider hands out OAuth2 client-credentials tokens, caching each until
// shortly before it expires. It is safe for concurrent use.
type TokenProvider struct {
	src oauth2.TokenSource
}

// NewTokenProvider returns a provider for the controller at controllerURL.
// When account is set the client id becomes "<clientID>@<account>". hc may be nil.
func NewTokenProvider(ctx context.Context, controllerURL, clientID, clientSecret, account string, hc *http.Client) *TokenProvider {
	id := clientID
	if account != "" && !strings.Contains(clientID, "@") {
		id = clientID + "@" + account
	}
	cfg := &clientcredentials.Config{
		ClientID:     id,
		ClientSecret: clientSecret,
		TokenURL:     strings.TrimRight(controllerURL, "/") + tokenPath,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	if hc != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
	}
	src := &fetchSource{ctx: ctx, cfg: cfg}
	return &TokenProvider{src: oauth2.ReuseTokenSourceWithExpiry(nil, src, tokenRefreshBuffer)}
}

// Token returns a valid access token.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	tok, err := p.src.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return tok.AccessToken, nil
}

// fetchSource asks the controller for a new token on every call; caching is
// left to the reuse source wrapped around it.
type fetchSource struct {
	ctx context.Context
	cfg *clientcredentials.Config
}

func (s *fetchSource) Token() (*oauth2.Token, error) {
	tok, err := s.cfg.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	if tok.Expiry.IsZero() {
		tok.Expiry = time.Now().Add(defaultTokenLifetime)
	}
	return tok, nil
}
