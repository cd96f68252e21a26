package assetsync

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// ArtifactKind distinguishes the linter binary from style packages.
type ArtifactKind int

const (
	ArtifactBinary ArtifactKind = iota
	ArtifactPackage
)

// Artifact addresses one downloadable archive.
type Artifact struct {
	Kind    ArtifactKind
	Name    string // package name, or "vale"
	Version string // empty means latest
	File    string // archive file name
	URL     string // explicit location, overrides the source's layout
}

// Descriptor is the integrity descriptor published next to an archive.
type Descriptor struct {
	Algorithm string // always "sha256"
	Sum       string // lower-case hex; empty when none was published
}

// CatalogEntry is one package of the remote library.
type CatalogEntry struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Homepage    string `json:"homepage"`
}

// Source is the remote package source contract.
type Source interface {
	// Fetch opens the archive and returns its integrity descriptor.
	Fetch(ctx context.Context, a Artifact) (io.ReadCloser, Descriptor, error)
	// Latest returns the newest released linter version, without a "v".
	Latest(ctx context.Context) (string, error)
	// Catalog lists the packages of the remote library.
	Catalog(ctx context.Context) ([]CatalogEntry, error)
}

// Default remote locations.
const (
	DefaultReleasesURL = "https://github.com/errata-ai/vale/releases/download"
	DefaultLatestURL   = "https://api.github.com/repos/errata-ai/vale/releases/latest"
	DefaultPackagesURL = "https://github.com/errata-ai"
	DefaultLibraryURL  = "https://raw.githubusercontent.com/errata-ai/packages/master/library.json"
)

// SourceConfig configures an HTTPSource. Zero fields take the defaults.
type SourceConfig struct {
	ReleasesURL   string
	LatestURL     string
	PackagesURL   string
	LibraryURL    string
	RatePerSecond float64
	UserAgent     string
	Client        *http.Client
}

// HTTPSource fetches releases and packages over HTTP.
type HTTPSource struct {
	cfg     SourceConfig
	client  *http.Client
	limiter *rate.Limiter
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource creates a rate-limited HTTP source.
func NewHTTPSource(cfg SourceConfig) *HTTPSource {
	if cfg.ReleasesURL == "" {
		cfg.ReleasesURL = DefaultReleasesURL
	}
	if cfg.LatestURL == "" {
		cfg.LatestURL = DefaultLatestURL
	}
	if cfg.PackagesURL == "" {
		cfg.PackagesURL = DefaultPackagesURL
	}
	if cfg.LibraryURL == "" {
		cfg.LibraryURL = DefaultLibraryURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "vale-ls"
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &HTTPSource{
		cfg:     cfg,
		client:  client,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// ArchiveURL returns where an artifact is downloaded from.
func (s *HTTPSource) ArchiveURL(a Artifact) string {
	if a.URL != "" {
		return a.URL
	}
	base := strings.TrimSuffix(s.cfg.PackagesURL, "/")
	switch {
	case a.Kind == ArtifactBinary:
		return fmt.Sprintf("%s/v%s/%s", strings.TrimSuffix(s.cfg.ReleasesURL, "/"), a.Version, a.File)
	case a.Version == "":
		return fmt.Sprintf("%s/%s/releases/latest/download/%s", base, a.Name, a.File)
	default:
		return fmt.Sprintf("%s/%s/releases/download/%s/%s", base, a.Name, a.Version, a.File)
	}
}

// descriptorURL returns the location of the integrity descriptor and
// whether it is a checksums list (one "<sum>  <file>" per line).
func (s *HTTPSource) descriptorURL(a Artifact) (string, bool) {
	if a.Kind == ArtifactBinary && a.URL == "" {
		return fmt.Sprintf("%s/v%s/vale_%s_checksums.txt",
			strings.TrimSuffix(s.cfg.ReleasesURL, "/"), a.Version, a.Version), true
	}
	return s.ArchiveURL(a) + ".sha256", false
}

// Fetch implements Source. A missing descriptor yields an empty Descriptor.
func (s *HTTPSource) Fetch(ctx context.Context, a Artifact) (io.ReadCloser, Descriptor, error) {
	desc := Descriptor{Algorithm: "sha256"}

	durl, list := s.descriptorURL(a)
	body, status, err := s.get(ctx, durl)
	switch {
	case err != nil:
		return nil, desc, err
	case status == http.StatusOK:
		sum, perr := parseDescriptor(body, fileName(a), list)
		body.Close()
		if perr != nil {
			return nil, desc, perr
		}
		desc.Sum = sum
	case status == http.StatusNotFound:
		body.Close()
	default:
		body.Close()
		return nil, desc, transferError("GET %s: status %d", durl, status)
	}

	aurl := s.ArchiveURL(a)
	body, status, err = s.get(ctx, aurl)
	if err != nil {
		return nil, desc, err
	}
	if status != http.StatusOK {
		body.Close()
		return nil, desc, transferError("GET %s: status %d", aurl, status)
	}
	return body, desc, nil
}

// Latest implements Source.
func (s *HTTPSource) Latest(ctx context.Context) (string, error) {
	var release struct {
		TagName string `json:"tag_name"`
	}
	if err := s.getJSON(ctx, s.cfg.LatestURL, &release); err != nil {
		return "", err
	}
	if release.TagName == "" {
		return "", transferError("no tag_name in %s", s.cfg.LatestURL)
	}
	return strings.TrimPrefix(release.TagName, "v"), nil
}

// Catalog implements Source.
func (s *HTTPSource) Catalog(ctx context.Context) ([]CatalogEntry, error) {
	var entries []CatalogEntry
	if err := s.getJSON(ctx, s.cfg.LibraryURL, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *HTTPSource) getJSON(ctx context.Context, u string, v any) error {
	body, status, err := s.get(ctx, u)
	if err != nil {
		return err
	}
	defer body.Close()
	if status != http.StatusOK {
		return transferError("GET %s: status %d", u, status)
	}
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return wrapTransfer(err, "decode "+u)
	}
	return nil
}

func (s *HTTPSource) get(ctx context.Context, u string) (io.ReadCloser, int, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, 0, wrapTransfer(err, "rate limit")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, wrapTransfer(err, "request "+u)
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, 0, wrapTransfer(err, "GET "+u)
	}
	return resp.Body, resp.StatusCode, nil
}

func fileName(a Artifact) string {
	if a.File != "" {
		return a.File
	}
	if u, err := url.Parse(a.URL); err == nil {
		return path.Base(u.Path)
	}
	return path.Base(a.URL)
}

// parseDescriptor reads either a bare "<sum>[  <file>]" sidecar or a
// checksums list, in which case the line naming file is used.
func parseDescriptor(r io.Reader, file string, list bool) (string, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if !list {
			return strings.ToLower(fields[0]), nil
		}
		if len(fields) >= 2 && strings.TrimPrefix(fields[1], "*") == file {
			return strings.ToLower(fields[0]), nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", wrapTransfer(err, "read descriptor")
	}
	if list {
		return "", fmt.Errorf("%w: no checksum listed for %s", ErrIntegrityCheckFailed, file)
	}
	return "", nil
}
