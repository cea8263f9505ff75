// Package context remembers the entity each CLI command showed last, so that
// a later command can refer to it as "this".
package context

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ramarlina/tally-cli/pkg/config"
)

// ContextTTL is how long a shown entity stays addressable as "this".
const ContextTTL = time.Hour

const fileName = "context.json"

var mu sync.Mutex

// Entry is the last id shown for one resource.
type Entry struct {
	ID    string    `json:"id"`
	Shown time.Time `json:"shown"`
}

// Context maps resource names to the id last shown for them.
type Context struct {
	// Last is the resource shown most recently.
	Last    string           `json:"last,omitempty"`
	Entries map[string]Entry `json:"entries"`
}

func (c *Context) lookup(resource string) (Entry, bool) {
	e, ok := c.Entries[resource]
	if !ok || time.Since(e.Shown) > ContextTTL {
		return Entry{}, false
	}
	return e, true
}

func path() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// load must be called with mu held. A missing file is an empty context.
func load() (*Context, error) {
	p, err := path()
	if err != nil {
		return nil, err
	}

	c := &Context{Entries: map[string]Entry{}}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read context file: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse context: %w", err)
	}
	if c.Entries == nil {
		c.Entries = map[string]Entry{}
	}
	return c, nil
}

// save must be called with mu held. Expired entries are dropped.
func save(c *Context) error {
	p, err := path()
	if err != nil {
		return err
	}
	for name := range c.Entries {
		if _, ok := c.lookup(name); !ok {
			delete(c.Entries, name)
		}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal context: %w", err)
	}
	if err := os.WriteFile(p, data, 0600); err != nil {
		return fmt.Errorf("write context file: %w", err)
	}
	return nil
}

// Load reads the context from disk.
func Load() (*Context, error) {
	mu.Lock()
	defer mu.Unlock()
	return load()
}

// Save writes c to disk.
func Save(c *Context) error {
	mu.Lock()
	defer mu.Unlock()
	return save(c)
}

// Set records id as the entity last shown for resource.
func Set(id, resource string) error {
	mu.Lock()
	defer mu.Unlock()

	c, err := load()
	if err != nil {
		return err
	}
	c.Entries[resource] = Entry{ID: id, Shown: time.Now()}
	c.Last = resource
	return save(c)
}

// Get returns the most recently shown id and its resource.
func Get() (string, string, error) {
	c, err := Load()
	if err != nil {
		return "", "", err
	}
	e, ok := c.lookup(c.Last)
	if c.Last == "" || !ok {
		return "", "", fmt.Errorf("no context available")
	}
	return e.ID, c.Last, nil
}

// Forget drops the entry of resource, e.g. after the entity was deleted.
func Forget(resource string) error {
	mu.Lock()
	defer mu.Unlock()

	c, err := load()
	if err != nil {
		return err
	}
	if _, ok := c.Entries[resource]; !ok {
		return nil
	}
	delete(c.Entries, resource)
	if c.Last == resource {
		c.Last = ""
	}
	return save(c)
}

// Clear removes the context file.
func Clear() error {
	mu.Lock()
	defer mu.Unlock()

	p, err := path()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove context file: %w", err)
	}
	return nil
}

// ResolveTarget resolves "this" to the id last shown for resource, or to the
// most recent id of any resource when resource is empty. Other targets are
// returned as is. The bool reports a context hit.
func ResolveTarget(target, resource string) (string, bool, error) {
	if target != "this" {
		return target, false, nil
	}
	if resource == "" {
		id, _, err := Get()
		if err != nil {
			return "", false, fmt.Errorf("no context available: use an explicit ID")
		}
		return id, true, nil
	}

	c, err := Load()
	if err != nil {
		return "", false, err
	}
	e, ok := c.lookup(resource)
	if !ok {
		return "", false, fmt.Errorf("no %s shown in the last hour: use an explicit ID", resource)
	}
	return e.ID, true, nil
}
