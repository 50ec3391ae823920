package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/oshokin/nix-npm-updater/internal/domain/channel"
	"github.com/oshokin/nix-npm-updater/internal/logger"
)

// maxMetadataBytes bounds the size of a registry metadata response (1 MB).
const maxMetadataBytes = 1 << 20

var (
	// errBadHTTPStatus is returned on any non-OK registry response.
	errBadHTTPStatus = errors.New("unexpected http status")
	// errEmptyVersion is returned when the metadata carries no usable version.
	errEmptyVersion = errors.New("registry returned an empty version")
)

type (
	// Client queries an npm-style registry for published version metadata.
	Client struct {
		httpClient *http.Client
		baseURL    string
		pkg        string
	}

	// Option configures a Client during construction.
	Option func(*Client)

	// metadataResponse is the JSON wire format of a tag's version metadata.
	// The registry returns a full manifest; only the version field matters here.
	metadataResponse struct {
		Version string `json:"version"`
	}
)

// WithHTTPClient sets a custom HTTP client, useful for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// NewClient creates a registry client for the given base URL and package name.
func NewClient(baseURL, pkg string, opts ...Option) *Client {
	c := &Client{
		httpClient: http.DefaultClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		pkg:        pkg,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// LatestVersion returns the version currently published under the distribution tag.
// The returned value is already sanitized for interpolation into files and URLs.
func (c *Client) LatestVersion(ctx context.Context, tag string) (string, error) {
	metadataURL, err := c.endpointURL(c.pkg, tag)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metadataURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("create registry request: %w", err)
	}

	response, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("query registry: %w", err)
	}

	defer func() {
		_ = response.Body.Close()
	}()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s, %s: %w", metadataURL, response.Status, errBadHTTPStatus)
	}

	var metadata metadataResponse
	if err = json.NewDecoder(io.LimitReader(response.Body, maxMetadataBytes)).Decode(&metadata); err != nil {
		return "", fmt.Errorf("decode registry metadata: %w", err)
	}

	version := channel.SanitizeToken(metadata.Version)
	if version == "" {
		return "", fmt.Errorf("%s@%s: %w", c.pkg, tag, errEmptyVersion)
	}

	logger.DebugKV(ctx, "Resolved distribution tag", "tag", tag, "version", version)

	return version, nil
}

// TarballURL returns the canonical archive URL for the version:
// <base>/<package>/-/<basename>-<version>.tgz. For scoped packages the
// archive is named after the part past the scope.
func (c *Client) TarballURL(version string) (string, error) {
	version = channel.SanitizeToken(version)

	basename := c.pkg
	if i := strings.LastIndex(basename, "/"); i >= 0 {
		basename = basename[i+1:]
	}

	return c.endpointURL(c.pkg, "-", basename+"-"+version+".tgz")
}

// endpointURL joins path parts onto the registry base URL,
// normalizing duplicate slashes along the way.
func (c *Client) endpointURL(parts ...string) (string, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse registry URL: %w", err)
	}

	base.Path = path.Join(append([]string{base.Path}, parts...)...)

	return base.String(), nil
}
