// Package auth obtains and caches Google OAuth2 credentials for the
// Analytics Data API. A cached token is refreshed in place; when no
// usable token exists an interactive browser flow is run once and the
// result persisted for later runs.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// AnalyticsReadOnlyScope is the only scope this tool requests.
const AnalyticsReadOnlyScope = "https://www.googleapis.com/auth/analytics.readonly"

// TokenSource returns an oauth2.TokenSource backed by the cached token
// file. Refreshed tokens are written back to the cache so subsequent
// runs skip the interactive flow. Any failure here is fatal to the run.
func TokenSource(ctx context.Context, cfg *Config) (oauth2.TokenSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	secrets, err := os.ReadFile(cfg.ClientSecretsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets file: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(secrets, AnalyticsReadOnlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets file: %w", err)
	}

	token, err := tokenFromFile(cfg.TokenPath)
	if err != nil {
		return nil, err
	}

	// No cached token, or one we can neither use nor refresh: authorise
	// interactively and persist the result.
	if token == nil || (!token.Valid() && token.RefreshToken == "") {
		token, err = authorise(ctx, oauthCfg)
		if err != nil {
			return nil, err
		}
		if err := saveToken(cfg.TokenPath, token); err != nil {
			return nil, err
		}
		log.Info().Str("token_path", cfg.TokenPath).Msg("Authorisation complete, token cached")
	}

	return &persistingTokenSource{
		source: oauthCfg.TokenSource(ctx, token),
		path:   cfg.TokenPath,
		last:   token,
	}, nil
}

// persistingTokenSource writes refreshed tokens back to the cache file
type persistingTokenSource struct {
	source oauth2.TokenSource
	path   string
	mu     sync.Mutex
	last   *oauth2.Token
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to obtain access token: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last == nil || token.AccessToken != p.last.AccessToken {
		if err := saveToken(p.path, token); err != nil {
			// The token is still usable this run, so only warn
			log.Warn().Err(err).Str("token_path", p.path).Msg("Failed to persist refreshed token")
		} else {
			log.Debug().Str("token_path", p.path).Msg("Refreshed token persisted")
		}
		p.last = token
	}

	return token, nil
}

// tokenFromFile loads the cached token, returning nil when the file
// does not exist.
func tokenFromFile(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("failed to parse token file: %w", err)
	}

	return token, nil
}

// saveToken persists the token as JSON, readable only by the owner
func saveToken(path string, token *oauth2.Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// authorise runs the installed-app flow: a loopback listener on a random
// port receives the authorisation code after the user approves access in
// their browser.
func authorise(ctx context.Context, oauthCfg *oauth2.Config) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to start loopback listener: %w", err)
	}
	defer listener.Close()

	oauthCfg.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr().String())
	state := uuid.NewString()

	type authResult struct {
		code string
		err  error
	}
	results := make(chan authResult, 1)

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if errMsg := r.URL.Query().Get("error"); errMsg != "" {
				http.Error(w, "Authorisation failed.", http.StatusBadRequest)
				results <- authResult{err: fmt.Errorf("authorisation denied: %s", errMsg)}
				return
			}
			if r.URL.Query().Get("state") != state {
				http.Error(w, "State mismatch.", http.StatusBadRequest)
				results <- authResult{err: fmt.Errorf("authorisation state mismatch")}
				return
			}
			fmt.Fprintln(w, "Authorisation complete. You can close this window.")
			results <- authResult{code: r.URL.Query().Get("code")}
		}),
	}
	go server.Serve(listener)
	defer server.Close()

	authURL := oauthCfg.AuthCodeURL(state, oauth2.AccessTypeOffline)
	log.Info().Str("url", authURL).Msg("Open this URL in your browser to authorise analytics access")
	fmt.Printf("Open the following URL in your browser to authorise access:\n\n%s\n\n", authURL)

	var result authResult
	select {
	case result = <-results:
	case <-ctx.Done():
		return nil, fmt.Errorf("authorisation cancelled: %w", ctx.Err())
	}
	if result.err != nil {
		return nil, result.err
	}

	token, err := oauthCfg.Exchange(ctx, result.code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorisation code: %w", err)
	}

	return token, nil
}
