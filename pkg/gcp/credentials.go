// Package gcp resolves Google Cloud credentials from configuration for the
// Pub/Sub client and the Cloud Storage REST client.
package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
)

// ClientOptions picks inline JSON over a credentials file. With neither set
// the SDK falls back to application default credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.ApplicationCredentials)}
	}
	return nil
}

// TokenSource follows the same precedence as ClientOptions. The returned
// source caches tokens until shortly before expiry.
func TokenSource(ctx context.Context, cfg config.GCPConfig, scopes ...string) (oauth2.TokenSource, error) {
	raw, err := credentialsJSON(cfg)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		ts, err := google.DefaultTokenSource(ctx, scopes...)
		if err != nil {
			return nil, fmt.Errorf("gcp: default credentials: %w", err)
		}
		return ts, nil
	}
	creds, err := google.CredentialsFromJSON(ctx, raw, scopes...)
	if err != nil {
		return nil, fmt.Errorf("gcp: parse credentials: %w", err)
	}
	return oauth2.ReuseTokenSource(nil, creds.TokenSource), nil
}

func credentialsJSON(cfg config.GCPConfig) ([]byte, error) {
	if inline := strings.TrimSpace(cfg.CredentialsJSON); inline != "" {
		return []byte(inline), nil
	}
	path := strings.TrimSpace(cfg.ApplicationCredentials)
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gcp: read credentials file: %w", err)
	}
	return raw, nil
}
