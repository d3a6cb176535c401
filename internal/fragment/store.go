// Package fragment locates and reads named text fragments from a fixed set
// of filesystem roots. Fragments are immutable for the duration of one
// compilation run; the store caches reads so repeated lookups of the same
// path return identical content.
package fragment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotFound reports a fragment path that does not resolve under any root.
var ErrNotFound = errors.New("fragment not found")

// Store resolves fragment paths against an ordered list of roots. The first
// root that contains the path wins, so profile-level fragments shadow
// system-level ones.
type Store struct {
	roots []string

	mu    sync.RWMutex
	cache map[string]string
}

// NewStore builds a store over the given roots. Roots are searched in order.
func NewStore(roots ...string) *Store {
	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		if trimmed := strings.TrimSpace(root); trimmed != "" {
			cleaned = append(cleaned, filepath.Clean(trimmed))
		}
	}
	return &Store{
		roots: cleaned,
		cache: make(map[string]string),
	}
}

// Roots returns the configured roots in search order.
func (s *Store) Roots() []string {
	return append([]string(nil), s.roots...)
}

// Read returns the UTF-8 content of the fragment at the given root-relative
// path. It fails with ErrNotFound when no root contains the path.
func (s *Store) Read(path string) (string, error) {
	key, err := normalizePath(path)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	content, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return content, nil
	}

	resolved, ok := s.resolve(key)
	if !ok {
		return "", fmt.Errorf("fragment: %s: %w", key, ErrNotFound)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("fragment: read %s: %w", resolved, err)
	}
	content = string(data)

	s.mu.Lock()
	s.cache[key] = content
	s.mu.Unlock()
	return content, nil
}

// Exists reports whether the path resolves under any root, without forcing
// an error path during validation.
func (s *Store) Exists(path string) bool {
	key, err := normalizePath(path)
	if err != nil {
		return false
	}
	s.mu.RLock()
	_, cached := s.cache[key]
	s.mu.RUnlock()
	if cached {
		return true
	}
	_, ok := s.resolve(key)
	return ok
}

// resolve maps a normalized relative path to the first root that contains a
// regular file at that location.
func (s *Store) resolve(key string) (string, bool) {
	for _, root := range s.roots {
		candidate := filepath.Join(root, filepath.FromSlash(key))
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.IsDir() {
			continue
		}
		return candidate, true
	}
	return "", false
}

// normalizePath rejects absolute paths and any path that would escape a
// root, and canonicalizes separators so cache keys are stable.
func normalizePath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("fragment: path is required")
	}
	if filepath.IsAbs(trimmed) {
		return "", fmt.Errorf("fragment: %s: absolute paths are not allowed", trimmed)
	}
	cleaned := filepath.ToSlash(filepath.Clean(filepath.FromSlash(trimmed)))
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("fragment: %s: path escapes fragment roots", trimmed)
	}
	return cleaned, nil
}
