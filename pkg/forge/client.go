package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mfriedrich/forgedeps/pkg/cache"
	"github.com/mfriedrich/forgedeps/pkg/observability"
)

const (
	// DefaultBaseURL is the public Forge v3 API endpoint.
	DefaultBaseURL = "https://forgeapi.puppet.com"

	httpTimeout = 10 * time.Second
)

// Client implements Provider against a Forge v3 registry API, with
// response caching and retry on transient failures.
//
// All methods are safe for concurrent use.
type Client struct {
	http     *http.Client
	cache    cache.Cache
	baseURL  string
	cacheTTL time.Duration
}

// NewClient creates a registry client. An empty baseURL selects the
// public Forge API; pass a NullCache to disable caching.
func NewClient(baseURL string, backend cache.Cache, cacheTTL time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if backend == nil {
		backend = cache.NewNullCache()
	}
	return &Client{
		http:     &http.Client{Timeout: httpTimeout},
		cache:    backend,
		baseURL:  baseURL,
		cacheTTL: cacheTTL,
	}
}

// SetTimeout overrides the default HTTP timeout.
func (c *Client) SetTimeout(d time.Duration) {
	c.http.Timeout = d
}

// ResolveModule fetches registry metadata for the given module name.
// The name is normalized before lookup.
//
// Returns ErrNotFound if the module doesn't exist and ErrNetwork for
// HTTP failures; both are non-fatal to resolution.
func (c *Client) ResolveModule(ctx context.Context, name string) (*Module, error) {
	slug := NormalizeName(name)

	var mod Module
	err := c.cached(ctx, "module:"+slug, &mod, func() error {
		return c.fetchModule(ctx, slug, &mod)
	})
	if err != nil {
		return nil, err
	}
	return &mod, nil
}

func (c *Client) fetchModule(ctx context.Context, slug string, mod *Module) error {
	var data moduleResponse
	u := fmt.Sprintf("%s/v3/modules/%s", c.baseURL, url.PathEscape(slug))
	if err := c.getJSON(ctx, u, &data); err != nil {
		if err == ErrNotFound {
			return fmt.Errorf("%w: module %s", err, slug)
		}
		return err
	}

	releases := make([]Release, 0, len(data.Releases))
	versions := make([]string, 0, len(data.Releases))
	for _, rel := range data.Releases {
		releases = append(releases, Release{
			Version:      rel.Version,
			Dependencies: rel.Metadata.Dependencies,
		})
		versions = append(versions, rel.Version)
	}

	*mod = Module{
		Name:              slug,
		AvailableVersions: versions,
		Releases:          releases,
	}
	if data.CurrentRelease != nil {
		mod.Current = &Release{
			Version:      data.CurrentRelease.Version,
			Dependencies: data.CurrentRelease.Metadata.Dependencies,
		}
	}
	return nil
}

type moduleResponse struct {
	Name           string       `json:"name"`
	CurrentRelease *releaseDoc  `json:"current_release"`
	Releases       []releaseDoc `json:"releases"`
}

type releaseDoc struct {
	Version  string `json:"version"`
	Metadata struct {
		Name         string       `json:"name"`
		Dependencies []Dependency `json:"dependencies"`
	} `json:"metadata"`
}

// cached wraps a fetch with cache lookup, retry, and hooks. The fetch
// function populates v; on success the populated value is stored.
func (c *Client) cached(ctx context.Context, key string, v any, fetch func() error) error {
	if err := c.lookup(ctx, key, v); err == nil {
		observability.Cache().OnCacheHit(ctx, "metadata")
		return nil
	}
	observability.Cache().OnCacheMiss(ctx, "metadata")

	if err := cache.RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, key, data, c.cacheTTL)
		observability.Cache().OnCacheSet(ctx, "metadata", len(data))
	}
	return nil
}

// lookup reads and decodes one cache entry. Misses, backend errors,
// and undecodable entries all report cache.ErrCacheMiss so the caller
// falls through to a fresh fetch.
func (c *Client) lookup(ctx context.Context, key string, v any) error {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil || !ok {
		return cache.ErrCacheMiss
	}
	if err := json.Unmarshal(data, v); err != nil {
		return cache.ErrCacheMiss
	}
	return nil
}

// getJSON performs a GET request and decodes the JSON response into v.
func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	body, err := c.doRequest(ctx, rawURL)
	if err != nil {
		return err
	}
	defer body.Close()
	return json.NewDecoder(body).Decode(v)
}

func (c *Client) doRequest(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	host, path := req.URL.Host, req.URL.Path
	observability.HTTP().OnRequest(ctx, http.MethodGet, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, http.MethodGet, host, path, err)
		return nil, cache.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	observability.HTTP().OnResponse(ctx, http.MethodGet, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return cache.Retryable(fmt.Errorf("%w: status %d", ErrNetwork, code))
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
