package chat

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrRevoked is returned when reading a handle that has been revoked.
var ErrRevoked = errors.New("handle revoked")

// Handle is a locally addressable copy of a downloaded PDF. It stays valid
// until revoked.
type Handle struct {
	URL  string
	Size int

	mu      sync.Mutex
	revoked bool
	read    func() ([]byte, error)
	release func() error
}

// NewHandle builds a Handle from its read and release functions.
func NewHandle(u string, size int, read func() ([]byte, error), release func() error) *Handle {
	return &Handle{URL: u, Size: size, read: read, release: release}
}

// Bytes returns the document.
func (h *Handle) Bytes() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.revoked {
		return nil, ErrRevoked
	}
	return h.read()
}

// Revoke releases the resource behind the handle. Revoking twice is a no-op.
func (h *Handle) Revoke() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.revoked {
		return nil
	}
	h.revoked = true
	if h.release == nil {
		return nil
	}
	return h.release()
}

// Revoked reports whether Revoke has run.
func (h *Handle) Revoked() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.revoked
}

// HandleFactory wraps a downloaded PDF for conversation id into a Handle.
type HandleFactory func(id string, data []byte) (*Handle, error)

// MemoryHandles keeps documents in memory under blob: URLs.
func MemoryHandles() HandleFactory {
	return func(id string, data []byte) (*Handle, error) {
		buf := append([]byte(nil), data...)
		u := "blob:hospital-console/" + uuid.NewString()
		return NewHandle(u, len(buf),
			func() ([]byte, error) { return buf, nil },
			nil), nil
	}
}

// TempFileHandles writes documents to dir (os.TempDir() when empty) and
// hands out file:// URLs. Revoking the handle deletes the file.
func TempFileHandles(dir string) HandleFactory {
	return func(id string, data []byte) (*Handle, error) {
		f, err := os.CreateTemp(dir, "conversation-"+SafeName(id)+"-*.pdf")
		if err != nil {
			return nil, fmt.Errorf("failed to create pdf file: %w", err)
		}
		path := f.Name()
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return nil, fmt.Errorf("failed to write pdf file: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(path)
			return nil, fmt.Errorf("failed to close pdf file: %w", err)
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
		return NewHandle(u.String(), len(data),
			func() ([]byte, error) { return os.ReadFile(path) },
			func() error {
				if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
					return err
				}
				return nil
			}), nil
	}
}

// SafeName maps a session id to a string usable as a file name component.
func SafeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, id)
}

// PDFCache maps conversation ids to their downloaded PDF handles. Every
// handle that leaves the cache is revoked.
type PDFCache struct {
	mu      sync.Mutex
	handles map[string]*Handle
}

// NewPDFCache creates an empty cache.
func NewPDFCache() *PDFCache {
	return &PDFCache{handles: make(map[string]*Handle)}
}

// Put stores h for id, revoking the handle it replaces.
func (c *PDFCache) Put(id string, h *Handle) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	old := c.handles[id]
	c.handles[id] = h
	if old != nil && old != h {
		return old.Revoke()
	}
	return nil
}

// Get returns the handle cached for id.
func (c *PDFCache) Get(id string) (*Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handles[id]
	return h, ok
}

// Clear removes and revokes the handle for id.
func (c *PDFCache) Clear(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handles[id]
	if !ok {
		return nil
	}
	delete(c.handles, id)
	return h.Revoke()
}

// IDs lists the cached conversation ids in order.
func (c *PDFCache) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.handles))
	for id := range c.handles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of cached handles.
func (c *PDFCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

// Close revokes every cached handle and empties the cache.
func (c *PDFCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for id, h := range c.handles {
		if err := h.Revoke(); err != nil {
			errs = append(errs, fmt.Errorf("revoke %s: %w", id, err))
		}
		delete(c.handles, id)
	}
	return errors.Join(errs...)
}
