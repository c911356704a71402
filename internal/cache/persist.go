package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/l2laihub/portrait-prompt-engine/internal/template"
)

// snapshotFile is the on-disk warm-start format.
type snapshotFile struct {
	Version string                   `json:"version"`
	Entries map[string]snapshotEntry `json:"entries"`
}

type snapshotEntry struct {
	Result    *template.CompiledResult `json:"result"`
	ExpiresAt time.Time                `json:"expires_at"`
}

// Save writes the unexpired entries to path so a restarted process can warm
// start. The file is written to a temporary sibling first and renamed into
// place.
func (c *Cache) Save(path string) error {
	now := time.Now()

	c.mu.RLock()
	file := snapshotFile{Version: "1", Entries: make(map[string]snapshotEntry, len(c.entries))}
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			continue
		}
		file.Entries[key] = snapshotEntry{Result: e.result, ExpiresAt: e.expiresAt}
	}
	c.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache snapshot: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return nil
}

// Load merges a saved snapshot into the cache, skipping entries that have
// expired since the snapshot was taken.
func (c *Cache) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse cache snapshot: %w", err)
	}

	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for key, se := range file.Entries {
		if now.After(se.ExpiresAt) || se.Result == nil {
			continue
		}
		if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
			c.evictOldest()
		}
		c.entries[key] = &entry{
			result:       se.Result,
			size:         approxSize(se.Result),
			expiresAt:    se.ExpiresAt,
			lastAccessed: now,
		}
	}
	return nil
}
