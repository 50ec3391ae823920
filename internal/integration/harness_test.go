package integration

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/nix-npm-updater/internal/config"
)

// errStubPrefetch marks download failures injected by the stub prefetcher.
var errStubPrefetch = errors.New("stub prefetch failed")

// sampleSources is a realistic pinned-channels document with all four default channels.
const sampleSources = `# Release channel pins consumed by package.nix.
# Rewritten by the update tool; keep one block per distribution tag.
{
  latest = {
    version = "5.6.2";
    sha256 = "0f1ij2k3l4m5n6p7q8r9s0av1bw2cx3dy4fz5g6h7i8j9k0l1m2n3p4q";
  };

  alpha = {
    version = "5.7.0-alpha.3";
    sha256 = "1a2b3c4d5f6g7h8i9j0k1l2m3n4p5q6r7s8v9w0x1y2z3a4b5c6d7f8g";
  };

  beta = {
    version = "5.7.0-beta.1";
    sha256 = "2b3c4d5f6g7h8i9j0k1l2m3n4p5q6r7s8v9w0x1y2z3a4b5c6d7f8g9h";
  };

  native = {
    version = "5.6.2-native.10";
    sha256 = "3c4d5f6g7h8i9j0k1l2m3n4p5q6r7s8v9w0x1y2z3a4b5c6d7f8g9h0i";
  };
}
`

// registryServer is a fake npm registry serving version metadata per dist-tag.
type registryServer struct {
	*httptest.Server

	// requests counts every metadata request that reached the registry.
	requests atomic.Int32
}

// startRegistry serves `GET /<package>/<tag>` responses for the typescript
// package from the provided tag-to-version map; unknown tags get a 404.
func startRegistry(t *testing.T, tags map[string]string) *registryServer {
	t.Helper()

	rs := new(registryServer)
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rs.requests.Add(1)

		tag := strings.TrimPrefix(r.URL.Path, "/typescript/")

		version, ok := tags[tag]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"Not found"}`))

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"name":    "typescript",
			"version": version,
		})
	}))

	t.Cleanup(rs.Close)

	return rs
}

// writeFlakeDir lays out a sources file and a settings file in a temporary
// directory and returns the settings path and the sources path.
func writeFlakeDir(t *testing.T, registryURL, document string) (string, string) {
	t.Helper()

	dir := t.TempDir()
	sourcesPath := filepath.Join(dir, "sources.nix")
	require.NoError(t, os.WriteFile(sourcesPath, []byte(document), 0o644))

	cfgPath := filepath.Join(dir, config.DefaultConfigFilename)
	cfg := &config.Config{
		RegistryURL: registryURL,
		Package:     "typescript",
		SourcesFile: sourcesPath,
		BuildTarget: ".#typescript",
	}
	require.NoError(t, config.Save(cfgPath, cfg))

	return cfgPath, sourcesPath
}

// stubPrefetcher derives a recognizable hash from the archive URL instead of
// downloading anything.
type stubPrefetcher struct {
	// failOn makes Fetch fail for URLs containing this substring.
	failOn string
	// fetched records every requested archive URL, in order.
	fetched []string
}

// hashFor is the hash the stub reports for an archive URL.
func hashFor(archiveURL string) string {
	return "0sha256-" + strings.TrimSuffix(path.Base(archiveURL), ".tgz")
}

func (s *stubPrefetcher) Fetch(_ context.Context, archiveURL string) (string, error) {
	s.fetched = append(s.fetched, archiveURL)

	if s.failOn != "" && strings.Contains(archiveURL, s.failOn) {
		return "", errStubPrefetch
	}

	return hashFor(archiveURL), nil
}

// stubBuilder records build verifications instead of invoking nix.
type stubBuilder struct {
	// err is the error to return from Verify.
	err error
	// calls counts Verify invocations.
	calls int
}

func (s *stubBuilder) Verify(context.Context) error {
	s.calls++

	return s.err
}
