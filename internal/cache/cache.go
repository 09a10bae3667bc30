// Package cache orchestrates provider fetches and persists the merged range
// list to disk, so repeated runs reuse ranges until the staleness interval
// elapses.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m333rl1n/cdnx/internal/config"
	"github.com/m333rl1n/cdnx/internal/errors"
	"github.com/m333rl1n/cdnx/internal/hashing"
	"github.com/m333rl1n/cdnx/internal/log"
	"github.com/m333rl1n/cdnx/internal/provider"
	"github.com/m333rl1n/cdnx/internal/ranges"
)

// Record is the persisted form of a successful refresh.
type Record struct {
	FetchedAt time.Time `json:"fetched_at"`
	Checksum  string    `json:"checksum"`
	Ranges    []string  `json:"ranges"`
}

// RangeCache decides between reusing persisted ranges and refetching them
// from the configured providers.
type RangeCache struct {
	cfg     *config.Config
	fetcher *provider.Fetcher

	// now is swappable so freshness boundaries can be tested.
	now func() time.Time
}

// New creates a RangeCache for the given configuration.
func New(cfg *config.Config) *RangeCache {
	return &RangeCache{
		cfg:     cfg,
		fetcher: provider.NewFetcher(cfg.FetchTimeout()),
		now:     time.Now,
	}
}

// LoadOrRefresh returns the current RangeSet. A persisted record younger than
// the configured interval is reused without any network activity; otherwise
// all providers are fetched and the result persisted.
func (c *RangeCache) LoadOrRefresh() (*ranges.RangeSet, error) {
	record := c.readRecord()
	if record != nil {
		age := c.now().Sub(record.FetchedAt)
		if age < c.cfg.Interval() {
			log.Debugf("Range cache is fresh (age %s < interval %s), skipping refresh",
				age.Round(time.Second), c.cfg.Interval())
			return buildSet(record), nil
		}
		log.Debugf("Range cache is stale (age %s), refreshing", age.Round(time.Second))
	}
	return c.refresh(record)
}

// Refresh forces a fetch from all providers regardless of cache age.
func (c *RangeCache) Refresh() (*ranges.RangeSet, error) {
	return c.refresh(c.readRecord())
}

// refresh fetches every provider with bounded parallelism and merges the
// successful results. Individual provider failures are logged and excluded;
// only a total failure with no stale fallback is an error.
func (c *RangeCache) refresh(stale *Record) (*ranges.RangeSet, error) {
	log.Infof("Updating CDN ranges from %d provider(s)...", len(c.cfg.Providers))

	merged := hashing.NewChecksumStringSet()
	var mu sync.Mutex
	var succeeded atomic.Int32

	var g errgroup.Group
	g.SetLimit(c.cfg.General.FetchConcurrency)

	for _, source := range c.cfg.Providers {
		source := source
		g.Go(func() error {
			blocks, err := c.fetcher.Fetch(source)
			if err != nil {
				log.Warnf("%v, provider excluded from this refresh", err)
				return nil
			}

			mu.Lock()
			for _, block := range blocks {
				merged.Put(block.String())
			}
			mu.Unlock()

			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if merged.Size() == 0 {
		if stale != nil {
			log.Warnf("All providers failed, falling back to stale cache from %s",
				stale.FetchedAt.Format(time.RFC3339))
			return buildSet(stale), nil
		}
		return nil, errors.NewRefreshError("could not fetch any CIDR and no cached ranges exist", nil)
	}

	record := &Record{
		FetchedAt: c.now(),
		Checksum:  merged.Checksum(),
		Ranges:    merged.Sorted(),
	}

	if stale != nil && stale.Checksum == record.Checksum {
		log.Debugf("Merged ranges unchanged since last refresh (checksum %s)", record.Checksum)
	}

	if err := c.writeRecord(record); err != nil {
		// A failed persist degrades the next run to a refetch, nothing more.
		log.Warnf("Failed to persist range cache: %v", err)
	}

	log.Infof("Loaded %d unique range(s) from %d/%d provider(s)",
		merged.Size(), succeeded.Load(), len(c.cfg.Providers))

	return buildSet(record), nil
}

// readRecord loads the persisted record. Missing or corrupt files are a
// cache miss, never an error for the caller.
func (c *RangeCache) readRecord() *Record {
	path := c.cfg.GetAbsCachePath()

	content, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warnf("%v", errors.NewCacheError(fmt.Sprintf("failed to read range cache %s", path), err))
		}
		return nil
	}

	var record Record
	if err := json.Unmarshal(content, &record); err != nil {
		log.Warnf("%v", errors.NewCacheError(fmt.Sprintf("corrupt range cache %s, treating as miss", path), err))
		return nil
	}

	if record.FetchedAt.IsZero() || len(record.Ranges) == 0 {
		log.Warnf("%v", errors.NewCacheError(fmt.Sprintf("incomplete range cache %s, treating as miss", path), nil))
		return nil
	}

	return &record
}

// writeRecord persists the record atomically: the new content is written to a
// temp file in the same directory and renamed over the old one, so a reader
// never observes a half-written cache.
func (c *RangeCache) writeRecord(record *Record) error {
	path := c.cfg.GetAbsCachePath()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewCacheError("failed to create cache directory", err)
	}

	content, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return errors.NewCacheError("failed to serialize range cache", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".cidr-*.tmp")
	if err != nil {
		return errors.NewCacheError("failed to create temp cache file", err)
	}

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.NewCacheError("failed to write temp cache file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.NewCacheError("failed to close temp cache file", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return errors.NewCacheError("failed to replace range cache", err)
	}

	return nil
}

func buildSet(record *Record) *ranges.RangeSet {
	blocks := make([]ranges.CIDRBlock, 0, len(record.Ranges))
	for _, entry := range record.Ranges {
		block, err := ranges.ParseBlock(entry)
		if err != nil {
			log.Debugf("Skipping unparsable cached range %q", entry)
			continue
		}
		blocks = append(blocks, block)
	}
	return ranges.Build(blocks)
}
