package spotify

import (
	"context"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// New builds a Client authenticated with the client-credentials flow. The
// returned client refreshes its token on demand.
func New(ctx context.Context, cfg Config) *Client {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
	}
	return NewClient(creds.Client(ctx), cfg)
}
