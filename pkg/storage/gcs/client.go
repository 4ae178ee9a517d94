// Package gcs is a small Cloud Storage JSON API client scoped to the uploads
// bucket: media uploads, deletes and public URL mapping.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/gcp"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

const (
	storageScope   = "https://www.googleapis.com/auth/devstorage.read_write"
	defaultAPIBase = "https://storage.googleapis.com"
	requestTimeout = 15 * time.Second
	pingTimeout    = 5 * time.Second
)

var (
	errNoBucket = errors.New("gcs: bucket name is required")
	errNoObject = errors.New("gcs: object name is required")
)

type Client struct {
	http       *http.Client
	bucket     string
	publicBase string
	apiBase    string
}

// NewClient authenticates with the configured service account (or the
// runtime's default credentials) and checks that the bucket is listable.
func NewClient(ctx context.Context, cfg config.GCSConfig, gcpCfg config.GCPConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BucketName) == "" {
		return nil, errNoBucket
	}
	ts, err := gcp.TokenSource(ctx, gcpCfg, storageScope)
	if err != nil {
		return nil, err
	}
	c := newClient(ts, cfg, defaultAPIBase)
	if err := c.Ping(ctx); err != nil {
		return nil, fmt.Errorf("gcs: bucket check: %w", err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "bucket", c.bucket), "gcs.connected")
	}
	return c, nil
}

func newClient(ts oauth2.TokenSource, cfg config.GCSConfig, apiBase string) *Client {
	publicBase := strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/")
	if publicBase == "" {
		publicBase = defaultAPIBase
	}
	return &Client{
		http: &http.Client{
			Timeout:   requestTimeout,
			Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
		},
		bucket:     strings.TrimSpace(cfg.BucketName),
		publicBase: publicBase,
		apiBase:    strings.TrimRight(apiBase, "/"),
	}
}

func (c *Client) Close() error { return nil }

// Ping lists at most one object, which needs storage.objects.list on the bucket.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.http == nil {
		return errors.New("gcs: client not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	endpoint := c.apiBase + "/storage/v1/b/" + url.PathEscape(c.bucket) + "/o?maxResults=1&fields=kind"
	_, err := c.do(ctx, http.MethodGet, endpoint, "", nil)
	return err
}

// Upload stores data under object and returns its public URL.
func (c *Client) Upload(ctx context.Context, object, contentType string, data []byte) (string, error) {
	if object == "" {
		return "", errNoObject
	}
	query := url.Values{"uploadType": {"media"}, "name": {object}}
	endpoint := c.apiBase + "/upload/storage/v1/b/" + url.PathEscape(c.bucket) + "/o?" + query.Encode()
	if _, err := c.do(ctx, http.MethodPost, endpoint, contentType, data); err != nil {
		return "", fmt.Errorf("gcs: upload %s: %w", object, err)
	}
	return c.PublicURL(object), nil
}

// Delete removes object. A missing object is not an error.
func (c *Client) Delete(ctx context.Context, object string) error {
	if object == "" {
		return errNoObject
	}
	endpoint := c.apiBase + "/storage/v1/b/" + url.PathEscape(c.bucket) + "/o/" + url.PathEscape(object)
	_, err := c.do(ctx, http.MethodDelete, endpoint, "", nil)
	if isNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("gcs: delete %s: %w", object, err)
	}
	return nil
}

func (c *Client) PublicURL(object string) string {
	return c.publicBase + "/" + c.bucket + "/" + object
}

// ObjectFromURL reverses PublicURL; ok is false for URLs outside the bucket.
func (c *Client) ObjectFromURL(publicURL string) (string, bool) {
	object, ok := strings.CutPrefix(publicURL, c.publicBase+"/"+c.bucket+"/")
	return object, ok && object != ""
}

// do sends one request and turns non-2xx answers into *googleapi.Error.
func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := googleapi.CheckResponse(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(io.LimitReader(resp.Body, 64<<10))
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
