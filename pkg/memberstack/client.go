package memberstack

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	pkgerrors "github.com/clubpataamiga/pataamiga-backend/pkg/errors"
)

const (
	defaultBaseURL              = "https://admin.memberstack.com"
	responseBodyReadLimit int64 = 1024

	// CustomFieldAmbassador is the member custom field mirroring ambassador approval.
	CustomFieldAmbassador = "is-ambassador"
)

var errSecretKeyRequired = errors.New("memberstack secret key is required")

// Client wraps the Memberstack admin REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
	tokens     *cache.Cache
	tokenTTL   time.Duration
	now        func() time.Time
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the admin API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = strings.TrimRight(trimmed, "/")
		}
	}
}

// WithClock overrides the clock used for token expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient builds the admin client from config.
func NewClient(cfg config.MemberstackConfig, opts ...Option) (*Client, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, errSecretKeyRequired
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	client := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    defaultBaseURL,
		secretKey:  key,
		tokens:     cache.New(ttl, 2*ttl),
		tokenTTL:   ttl,
		now:        time.Now,
	}
	if cfg.BaseURL != "" {
		client.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// TokenIdentity is the verified subject of a member session token.
type TokenIdentity struct {
	MemberID  string
	ExpiresAt time.Time
}

// Member is the subset of the Memberstack member record the platform reads.
type Member struct {
	ID           string
	Email        string
	CustomFields map[string]string
}

// FirstName reads the conventional first-name custom field.
func (m Member) FirstName() string { return m.CustomFields["first-name"] }

// LastName reads the conventional last-name custom field.
func (m Member) LastName() string { return m.CustomFields["last-name"] }

// Phone reads the conventional phone custom field.
func (m Member) Phone() string { return m.CustomFields["phone"] }

// VerifyToken validates a member session token. Verified tokens are cached
// until the earlier of their expiry and the configured TTL.
func (c *Client) VerifyToken(ctx context.Context, token string) (TokenIdentity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenIdentity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "member token is required")
	}

	key := tokenCacheKey(token)
	if cached, ok := c.tokens.Get(key); ok {
		identity := cached.(TokenIdentity)
		if identity.ExpiresAt.IsZero() || c.now().Before(identity.ExpiresAt) {
			return identity, nil
		}
		c.tokens.Delete(key)
	}

	var resp struct {
		Data struct {
			ID  string `json:"id"`
			Exp int64  `json:"exp"`
		} `json:"data"`
	}
	status, err := c.do(ctx, http.MethodPost, "/members/verify-token", map[string]string{"token": token}, &resp)
	if err != nil {
		if status == http.StatusUnauthorized || status == http.StatusBadRequest || status == http.StatusForbidden {
			return TokenIdentity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid member token")
		}
		return TokenIdentity{}, err
	}
	if resp.Data.ID == "" {
		return TokenIdentity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid member token")
	}

	identity := TokenIdentity{MemberID: resp.Data.ID}
	ttl := c.tokenTTL
	if resp.Data.Exp > 0 {
		identity.ExpiresAt = time.Unix(resp.Data.Exp, 0)
		if !c.now().Before(identity.ExpiresAt) {
			return TokenIdentity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "member token expired")
		}
		if remaining := identity.ExpiresAt.Sub(c.now()); remaining < ttl {
			ttl = remaining
		}
	}
	c.tokens.Set(key, identity, ttl)
	return identity, nil
}

// GetMember loads a member record by its Memberstack id.
func (c *Client) GetMember(ctx context.Context, memberID string) (Member, error) {
	if strings.TrimSpace(memberID) == "" {
		return Member{}, pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}

	var resp struct {
		Data memberPayload `json:"data"`
	}
	status, err := c.do(ctx, http.MethodGet, "/members/"+url.PathEscape(memberID), nil, &resp)
	if err != nil {
		if status == http.StatusNotFound {
			return Member{}, pkgerrors.New(pkgerrors.CodeNotFound, "memberstack member not found")
		}
		return Member{}, err
	}
	return resp.Data.toMember(), nil
}

// UpdateCustomFields sets absolute custom field values on a member. Repeating
// the same call leaves the member unchanged.
func (c *Client) UpdateCustomFields(ctx context.Context, memberID string, fields map[string]string) error {
	if strings.TrimSpace(memberID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "member id is required")
	}
	if len(fields) == 0 {
		return nil
	}

	body := map[string]any{"customFields": fields}
	status, err := c.do(ctx, http.MethodPatch, "/members/"+url.PathEscape(memberID), body, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "memberstack member not found")
		}
		return err
	}
	return nil
}

type memberPayload struct {
	ID   string `json:"id"`
	Auth struct {
		Email string `json:"email"`
	} `json:"auth"`
	CustomFields map[string]any `json:"customFields"`
}

func (p memberPayload) toMember() Member {
	fields := make(map[string]string, len(p.CustomFields))
	for k, v := range p.CustomFields {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case nil:
		default:
			fields[k] = fmt.Sprint(val)
		}
	}
	return Member{ID: p.ID, Email: p.Auth.Email, CustomFields: fields}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) (int, error) {
	if c == nil {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "memberstack client not configured")
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal memberstack request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build memberstack request")
	}
	req.Header.Set("X-API-KEY", c.secretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute memberstack request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return resp.StatusCode, pkgerrors.Wrap(
			pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))),
			"memberstack request failed",
		)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode memberstack response")
		}
	}
	return resp.StatusCode, nil
}

func tokenCacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
