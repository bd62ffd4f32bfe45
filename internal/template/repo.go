package template

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.yaml.in/yaml/v3"

	"valuesgen-cli/internal/merge"
	"valuesgen-cli/internal/version"
)

const maxArchiveEntry = 16 << 20

// RepoStore reads values.yaml out of chart archives published in a Helm
// repository.
type RepoStore struct {
	baseURL string
	chart   string
	client  *http.Client
	retries int
	logger  *slog.Logger
}

// NewRepoStore creates a store for chart in the repository at baseURL.
// Each request is attempted retries+1 times.
func NewRepoStore(baseURL, chart string, timeout time.Duration, retries int, logger *slog.Logger) *RepoStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if retries < 0 {
		retries = 0
	}
	return &RepoStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		chart:   chart,
		client:  &http.Client{Timeout: timeout},
		retries: retries,
		logger:  logger,
	}
}

type repoIndex struct {
	Entries map[string][]chartEntry `yaml:"entries"`
}

type chartEntry struct {
	Version string   `yaml:"version"`
	URLs    []string `yaml:"urls"`
}

func (s *RepoStore) index(ctx context.Context) ([]chartEntry, error) {
	data, err := s.fetch(ctx, s.baseURL+"/index.yaml")
	if err != nil {
		return nil, err
	}
	var idx repoIndex
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse repository index: %w", err)
	}
	entries, ok := idx.Entries[s.chart]
	if !ok {
		return nil, fmt.Errorf("chart %q not found in %s", s.chart, s.baseURL)
	}
	return entries, nil
}

// Versions lists the chart's published versions, newest first. Entries
// that are not plain MAJOR.MINOR.PATCH[-PRERELEASE] are ignored.
func (s *RepoStore) Versions(ctx context.Context) ([]string, error) {
	entries, err := s.index(ctx)
	if err != nil {
		return nil, err
	}
	var vs []version.Version
	for _, e := range entries {
		v, err := version.Parse(e.Version)
		if err != nil {
			s.logger.Debug("skipping chart version", "version", e.Version, "error", err)
			continue
		}
		vs = append(vs, v)
	}
	return newestFirst(vs), nil
}

// Load downloads the chart archive for v and extracts <chart>/values.yaml
func (s *RepoStore) Load(ctx context.Context, v string) (*merge.Document, error) {
	entries, err := s.index(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateUnavailable, err)
	}
	var archiveURL string
	for _, e := range entries {
		if e.Version == v && len(e.URLs) > 0 {
			archiveURL = e.URLs[0]
			break
		}
	}
	if archiveURL == "" {
		return nil, fmt.Errorf("%w: chart %s has no version %s", ErrTemplateUnavailable, s.chart, v)
	}
	archiveURL, err = s.resolve(archiveURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateUnavailable, err)
	}

	archive, err := s.fetch(ctx, archiveURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateUnavailable, err)
	}
	data, err := extractValues(archive, s.chart)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateUnavailable, err)
	}
	s.logger.Info("downloaded values template", "chart", s.chart, "version", v, "bytes", len(data))
	return parse(data, archiveURL)
}

func (s *RepoStore) resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid chart url %q: %w", ref, err)
	}
	if u.IsAbs() {
		return ref, nil
	}
	base, err := url.Parse(s.baseURL + "/")
	if err != nil {
		return "", fmt.Errorf("invalid repository url %q: %w", s.baseURL, err)
	}
	return base.ResolveReference(u).String(), nil
}

// fetch GETs url, retrying transport errors and 5xx responses with
// exponential backoff. Client errors are not retried.
func (s *RepoStore) fetch(ctx context.Context, target string) ([]byte, error) {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 200 * time.Millisecond

	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		resp, err := s.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			err := fmt.Errorf("GET %s: %s", target, resp.Status)
			if resp.StatusCode < 500 {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return io.ReadAll(resp.Body)
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(s.retries+1)), // #nosec G115 -- retries is clamped non-negative
		backoff.WithNotify(func(err error, d time.Duration) {
			s.logger.Warn("download failed, retrying", "url", target, "error", err, "delay", d)
		}),
	)
}

// extractValues pulls <chart>/values.yaml out of a gzipped chart archive
func extractValues(archive []byte, chart string) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("open chart archive: %w", err)
	}
	defer gz.Close()

	want := path.Join(chart, "values.yaml")
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s not found in chart archive", want)
		}
		if err != nil {
			return nil, fmt.Errorf("read chart archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg || path.Clean(hdr.Name) != want {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(tr, maxArchiveEntry+1))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", want, err)
		}
		if len(data) > maxArchiveEntry {
			return nil, fmt.Errorf("%s exceeds %d bytes", want, maxArchiveEntry)
		}
		return data, nil
	}
}
