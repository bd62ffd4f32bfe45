package template

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"valuesgen-cli/internal/interfaces"
	"valuesgen-cli/internal/merge"
	"valuesgen-cli/internal/version"
)

const (
	cachePrefix = "values-"
	cacheSuffix = ".yaml"

	lockTimeout       = 30 * time.Second
	lockRetryInterval = 100 * time.Millisecond
)

// CacheStore keeps downloaded templates as values-<version>.yaml files and
// only goes upstream on a miss or a forced refresh.
type CacheStore struct {
	fs       afero.Fs
	dir      string
	lockPath string
	upstream interfaces.TemplateStore
	force    bool
	logger   *slog.Logger
}

// CacheOption configures a CacheStore
type CacheOption func(*CacheStore)

// WithForceRefresh makes every Load fetch from upstream and rewrite the cache
func WithForceRefresh(force bool) CacheOption {
	return func(s *CacheStore) { s.force = force }
}

// WithLockFile sets the OS path of the lock guarding cache writes. It
// defaults to a file inside the cache directory.
func WithLockFile(path string) CacheOption {
	return func(s *CacheStore) { s.lockPath = path }
}

// NewCacheStore wraps upstream with a cache under dir on fs
func NewCacheStore(fs afero.Fs, dir string, upstream interfaces.TemplateStore, logger *slog.Logger, opts ...CacheOption) *CacheStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &CacheStore{
		fs:       fs,
		dir:      dir,
		lockPath: filepath.Join(dir, ".values.lock"),
		upstream: upstream,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the cache file for a chart version
func (s *CacheStore) Path(v string) string {
	return filepath.Join(s.dir, cachePrefix+v+cacheSuffix)
}

// Load returns the cached template, downloading it when missing
func (s *CacheStore) Load(ctx context.Context, v string) (*merge.Document, error) {
	path := s.Path(v)
	if !s.force {
		if data, err := afero.ReadFile(s.fs, path); err == nil {
			s.logger.Debug("values template cache hit", "version", v, "path", path)
			return parse(data, path)
		}
	}

	s.logger.Info("fetching values template", "version", v, "forced", s.force)
	doc, err := s.upstream.Load(ctx, v)
	if err != nil {
		return nil, err
	}
	if err := s.store(ctx, path, doc.Bytes()); err != nil {
		// The run can continue without a cache.
		s.logger.Warn("failed to cache values template", "path", path, "error", err)
	}
	return doc, nil
}

func (s *CacheStore) store(ctx context.Context, path string, data []byte) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	fileLock := flock.New(s.lockPath)
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := fileLock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire cache lock: timeout after %v", lockTimeout)
	}
	defer func() { _ = fileLock.Unlock() }()

	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	return s.fs.Rename(tmp, path)
}

// Cached lists the versions present in the cache, newest first
func (s *CacheStore) Cached() ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if err != nil {
		return nil, nil
	}
	var found []version.Version
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, cachePrefix) || !strings.HasSuffix(name, cacheSuffix) {
			continue
		}
		v, err := version.Parse(strings.TrimSuffix(strings.TrimPrefix(name, cachePrefix), cacheSuffix))
		if err != nil {
			continue
		}
		found = append(found, v)
	}
	return newestFirst(found), nil
}

// Versions lists upstream versions when upstream can enumerate them, and
// falls back to the cache contents otherwise.
func (s *CacheStore) Versions(ctx context.Context) ([]string, error) {
	if lister, ok := s.upstream.(interfaces.VersionLister); ok {
		vs, err := lister.Versions(ctx)
		if err == nil {
			return vs, nil
		}
		s.logger.Warn("listing chart versions failed, using cache", "error", err)
	}
	return s.Cached()
}

func newestFirst(vs []version.Version) []string {
	slices.SortFunc(vs, func(a, b version.Version) int { return b.Compare(a) })
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		if s := v.String(); !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
