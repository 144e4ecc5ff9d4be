package modrinth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"modsync/config"

	"github.com/cenkalti/backoff/v4"
)

const (
	modrinthAPIURL = "https://api.modrinth.com/v2"
	defaultTimeout = 30 * time.Second

	// HashAlgorithm is the digest the Modrinth file index is keyed by.
	HashAlgorithm = "sha512"

	maxRetries = 4
)

// Client handles communication with the Modrinth API.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client

	// newBackOff builds the retry policy for a single request. Left nil
	// it defaults to exponential backoff; tests swap in a zero-delay one.
	newBackOff func() backoff.BackOff
}

// NewClient creates a new Modrinth API client using the provided configuration.
func NewClient(cfg config.Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("USERAGENT is not configured")
	}

	return &Client{
		BaseURL:   modrinthAPIURL,
		UserAgent: cfg.UserAgent,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}, nil
}

// retryAfterBackOff defers to the wrapped policy but never waits less
// than the server's most recent Retry-After hint.
type retryAfterBackOff struct {
	backoff.BackOff
	retryAfter time.Duration
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop {
		return backoff.Stop
	}
	if b.retryAfter > next {
		next = b.retryAfter
	}
	b.retryAfter = 0
	return next
}

func (c *Client) makeRequest(ctx context.Context, method, path string, queryParams url.Values, body, target interface{}) error {
	build := c.newBackOff
	if build == nil {
		build = func() backoff.BackOff { return backoff.NewExponentialBackOff() }
	}
	policy := &retryAfterBackOff{BackOff: backoff.WithMaxRetries(build(), maxRetries)}

	// WithContext stays outermost so cancellation also cuts waits short.
	return backoff.Retry(func() error {
		err := c.doOnce(ctx, method, path, queryParams, body, target)
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		var rate *RateLimitError
		if errors.As(err, &rate) {
			policy.retryAfter = rate.RetryAfter
		}
		return err
	}, backoff.WithContext(policy, ctx))
}

func (c *Client) doOnce(ctx context.Context, method, path string, queryParams url.Values, body, target interface{}) error {
	fullURL := c.BaseURL + path

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to encode request body: %w", err))
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	if queryParams != nil {
		req.URL.RawQuery = queryParams.Encode()
	}

	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		io.Copy(io.Discard, resp.Body)
		return ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		io.Copy(io.Discard, resp.Body)
		return &RateLimitError{RetryAfter: parseRetryAfter(resp)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			// A 2xx status with a body we cannot decode: not retryable.
			return &APIError{
				StatusCode: resp.StatusCode,
				Body:       fmt.Sprintf("undecodable response: %v", err),
			}
		}
	}

	return nil
}

func parseRetryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}

type hashLookupRequest struct {
	Hashes    []string `json:"hashes"`
	Algorithm string   `json:"algorithm"`
}

type updateLookupRequest struct {
	Hashes       []string `json:"hashes"`
	Algorithm    string   `json:"algorithm"`
	Loaders      []string `json:"loaders"`
	GameVersions []string `json:"game_versions"`
}

// VersionsByHash resolves the installed version for each hash in one
// round trip. Hashes the registry does not know are absent from the
// result, which is not an error.
func (c *Client) VersionsByHash(ctx context.Context, hashes []string) (map[string]Version, error) {
	if len(hashes) == 0 {
		return map[string]Version{}, nil
	}
	body := hashLookupRequest{Hashes: hashes, Algorithm: HashAlgorithm}
	versions := make(map[string]Version)
	if err := c.makeRequest(ctx, "POST", "/version_files", nil, body, &versions); err != nil {
		return nil, fmt.Errorf("failed to look up versions by hash: %w", err)
	}
	return versions, nil
}

// LatestVersions returns, per hash, the newest version of the same
// project compatible with the given loaders and game versions.
func (c *Client) LatestVersions(ctx context.Context, hashes, loaders, gameVersions []string) (map[string]Version, error) {
	if len(hashes) == 0 {
		return map[string]Version{}, nil
	}
	body := updateLookupRequest{
		Hashes:       hashes,
		Algorithm:    HashAlgorithm,
		Loaders:      loaders,
		GameVersions: gameVersions,
	}
	versions := make(map[string]Version)
	if err := c.makeRequest(ctx, "POST", "/version_files/update", nil, body, &versions); err != nil {
		return nil, fmt.Errorf("failed to look up latest versions: %w", err)
	}
	return versions, nil
}

// VersionByHash retrieves version information for a single file hash.
// Returns ErrNotFound when the registry has no matching file.
func (c *Client) VersionByHash(ctx context.Context, hash string) (*Version, error) {
	params := url.Values{}
	params.Add("algorithm", HashAlgorithm)

	var version Version
	err := c.makeRequest(ctx, "GET", fmt.Sprintf("/version_file/%s", hash), params, nil, &version)
	if err != nil {
		if err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get version by hash '%s': %w", hash, err)
	}
	return &version, nil
}

// ProjectVersions retrieves versions for a specific project, filtered by
// game versions and loaders, ordered newest-first.
func (c *Client) ProjectVersions(ctx context.Context, projectID string, gameVersions, loaders []string) ([]Version, error) {
	params := url.Values{}
	if len(gameVersions) > 0 {
		encoded, _ := json.Marshal(gameVersions)
		params.Add("game_versions", string(encoded))
	}
	if len(loaders) > 0 {
		encoded, _ := json.Marshal(loaders)
		params.Add("loaders", string(encoded))
	}

	var versions []Version
	err := c.makeRequest(ctx, "GET", fmt.Sprintf("/project/%s/version", projectID), params, nil, &versions)
	if err != nil {
		return nil, fmt.Errorf("failed to get project versions for '%s': %w", projectID, err)
	}

	// The API already returns newest-first, but the ordering is part of
	// this method's contract, so enforce it.
	sort.SliceStable(versions, func(i, j int) bool {
		return versions[i].DatePublished.After(versions[j].DatePublished)
	})
	return versions, nil
}

// Project retrieves details for a specific project.
func (c *Client) Project(ctx context.Context, id string) (*Project, error) {
	var project Project
	if err := c.makeRequest(ctx, "GET", fmt.Sprintf("/project/%s", id), nil, nil, &project); err != nil {
		if err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get project '%s': %w", id, err)
	}
	return &project, nil
}

// Download streams the file at the given URL into w.
func (c *Client) Download(ctx context.Context, downloadURL string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, "GET", downloadURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to start download from %s: %w", downloadURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to write downloaded content: %w", err)
	}
	return nil
}
