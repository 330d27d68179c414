package geocode

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/labrasa/salesdash/internal/normalize"
)

// Entry is a geocoded postal code.
type Entry struct {
	PostalCode string  `json:"postal_code"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

var cacheHeader = []string{"postal_code", "latitude", "longitude"}

// header aliases accepted when loading older cache files
var (
	codeAliases = []string{"postal_code", "cep"}
	latAliases  = []string{"latitude", "lat"}
	lonAliases  = []string{"longitude", "lon", "lng"}
)

// Cache is an append-only postal code → coordinates file.
// Entries are never rewritten; a code is looked up at most once unless the lookup failed.
type Cache struct {
	mu      sync.RWMutex
	path    string
	columns []string
	entries map[string]Entry
}

// Load reads the cache file. A missing file is an empty cache.
func Load(path string) (*Cache, error) {
	c := &Cache{path: path, columns: cacheHeader, entries: map[string]Entry{}}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open geocode cache: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read geocode cache header: %w", err)
	}

	codeCol, latCol, lonCol := findColumn(header, codeAliases), findColumn(header, latAliases), findColumn(header, lonAliases)
	if codeCol < 0 || latCol < 0 || lonCol < 0 {
		return nil, fmt.Errorf("geocode cache %s has an unexpected header %v", path, header)
	}
	c.columns = header

	skipped := 0
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read geocode cache: %w", err)
		}
		e, ok := parseEntry(rec, codeCol, latCol, lonCol)
		if !ok {
			skipped++
			continue
		}
		c.entries[e.PostalCode] = e
	}
	if skipped > 0 {
		log.Warningf("ignored %d incomplete rows in %s", skipped, path)
	}
	log.Debugf("loaded %d cached postal codes from %s", len(c.entries), path)
	return c, nil
}

func findColumn(header []string, aliases []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for _, a := range aliases {
			if h == a {
				return i
			}
		}
	}
	return -1
}

func parseEntry(rec []string, codeCol, latCol, lonCol int) (Entry, bool) {
	if codeCol >= len(rec) || latCol >= len(rec) || lonCol >= len(rec) {
		return Entry{}, false
	}
	code := normalize.PostalCode(rec[codeCol])
	lat, err1 := strconv.ParseFloat(strings.TrimSpace(rec[latCol]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(rec[lonCol]), 64)
	if !ValidPostalCode(code) || err1 != nil || err2 != nil {
		return Entry{}, false
	}
	return Entry{PostalCode: code, Latitude: lat, Longitude: lon}, true
}

// ValidPostalCode reports whether code is a normalized 8-digit CEP worth looking up.
func ValidPostalCode(code string) bool {
	if len(code) != 8 || code == "00000000" {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (c *Cache) Path() string { return c.path }

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Get(code string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[code]
	return e, ok
}

// Entries returns every cached entry ordered by postal code.
func (c *Cache) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostalCode < out[j].PostalCode })
	return out
}

// LookupMissing returns the distinct valid codes not cached yet, sorted.
func (c *Cache) LookupMissing(codes []string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := map[string]bool{}
	var missing []string
	for _, code := range codes {
		if !ValidPostalCode(code) || seen[code] {
			continue
		}
		seen[code] = true
		if _, ok := c.entries[code]; !ok {
			missing = append(missing, code)
		}
	}
	sort.Strings(missing)
	return missing
}

// Append adds new entries to the file, creating it with a header when needed.
// Entries already cached or with an invalid code are ignored.
func (c *Cache) Append(entries []Entry) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var fresh []Entry
	seen := map[string]bool{}
	for _, e := range entries {
		if !ValidPostalCode(e.PostalCode) || seen[e.PostalCode] {
			continue
		}
		if _, ok := c.entries[e.PostalCode]; ok {
			continue
		}
		seen[e.PostalCode] = true
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to open geocode cache: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat geocode cache: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		c.columns = cacheHeader
		if err := w.Write(cacheHeader); err != nil {
			return 0, fmt.Errorf("failed to write cache header: %w", err)
		}
	}
	codeCol, latCol, lonCol := findColumn(c.columns, codeAliases), findColumn(c.columns, latAliases), findColumn(c.columns, lonAliases)
	for _, e := range fresh {
		rec := make([]string, len(c.columns))
		rec[codeCol] = e.PostalCode
		rec[latCol] = strconv.FormatFloat(e.Latitude, 'f', -1, 64)
		rec[lonCol] = strconv.FormatFloat(e.Longitude, 'f', -1, 64)
		if err := w.Write(rec); err != nil {
			return 0, fmt.Errorf("failed to write cache entry: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush geocode cache: %w", err)
	}

	for _, e := range fresh {
		c.entries[e.PostalCode] = e
	}
	return len(fresh), nil
}
