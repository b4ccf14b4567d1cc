// Package hashindex implements the persistent, searchable perceptual-hash
// catalog: a JSON document of per-(icon x
// overlay) entries backed by one BK-tree per hash kind, queryable by
// Hamming distance with metadata filtering and MD5-based aggregation.
package hashindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

// ErrNotFound is returned by Load when the index file does not exist.
// Wrapped by NotFoundError so callers can distinguish a
// missing index from a corrupt one.
var ErrNotFound = errors.New("hash index not found")

// NotFoundError wraps ErrNotFound with the path that was probed.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("hash index not found: %s", e.Path)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IndexError wraps any other hash-index I/O or parse failure.
type IndexError struct {
	Op  string
	Err error
}

func (e *IndexError) Error() string { return fmt.Sprintf("hash index %s: %v", e.Op, e.Err) }
func (e *IndexError) Unwrap() error { return e.Err }

const hashKindPHash = "phash"
const hashKindDHash = "dhash"

// HashIndex owns the in-memory entry map and one BK-tree per hash kind.
// Trees are instance-owned rather than held in a
// process-global map.
type HashIndex struct {
	hashes map[string]catalogmodel.CatalogEntry // key -> entry
	trees  map[string]*bkTree                   // "phash"/"dhash" -> tree
}

// New creates an empty, unpersisted index.
func New() *HashIndex {
	return &HashIndex{
		hashes: make(map[string]catalogmodel.CatalogEntry),
		trees: map[string]*bkTree{
			hashKindPHash: newBKTree(),
			hashKindDHash: newBKTree(),
		},
	}
}

// document is the on-disk JSON shape: {generated, hashes: {key -> entry}}.
type document struct {
	Generated string                   `json:"generated"`
	Hashes    map[string]entryDocument `json:"hashes"`
}

type entryDocument struct {
	PHash string            `json:"phash"`
	DHash string            `json:"dhash"`
	Mtime int64             `json:"mtime"`
	MD5   string            `json:"md5_hash"`
	Data  metadataDocument  `json:"data"`
}

type metadataDocument struct {
	ImagePath     string            `json:"image_path"`
	ImageFilename string            `json:"image_filename"`
	ImageCategory string            `json:"image_category"`
	OverlayName   string            `json:"overlay_name"`
	CargoType     string            `json:"cargo_type"`
	CargoItemName string            `json:"cargo_item_name"`
	CargoFilters  map[string]string `json:"cargo_filters,omitempty"`
	ItemName      string            `json:"item_name"`
	MaskType      string            `json:"mask_type"`
}

func toMetadataDocument(m catalogmodel.CatalogMetadata) metadataDocument {
	return metadataDocument{
		ImagePath:     m.ImagePath,
		ImageFilename: m.ImageFilename,
		ImageCategory: m.ImageCategory,
		OverlayName:   m.OverlayName,
		CargoType:     m.CargoType,
		CargoItemName: m.CargoItemName,
		CargoFilters:  m.CargoFilters,
		ItemName:      m.ItemName,
		MaskType:      string(m.MaskType),
	}
}

func fromMetadataDocument(d metadataDocument) catalogmodel.CatalogMetadata {
	return catalogmodel.CatalogMetadata{
		ImagePath:     d.ImagePath,
		ImageFilename: d.ImageFilename,
		ImageCategory: d.ImageCategory,
		OverlayName:   d.OverlayName,
		CargoType:     d.CargoType,
		CargoItemName: d.CargoItemName,
		CargoFilters:  d.CargoFilters,
		ItemName:      d.ItemName,
		MaskType:      catalogmodel.MaskType(d.MaskType),
	}
}

// Load reads a persisted index from path and rehydrates both BK-trees.
func Load(path string) (*HashIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, &IndexError{Op: "read", Err: err}
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &IndexError{Op: "parse", Err: err}
	}

	idx := New()
	for key, ed := range doc.Hashes {
		entry, err := entryFromDocument(key, ed)
		if err != nil {
			return nil, &IndexError{Op: "rehydrate", Err: err}
		}
		idx.insert(entry)
	}
	slog.Debug("loaded hash index", "path", path, "entries", len(idx.hashes))
	return idx, nil
}

func entryFromDocument(key string, ed entryDocument) (catalogmodel.CatalogEntry, error) {
	ph, ok := hexToUint64(ed.PHash)
	if !ok {
		return catalogmodel.CatalogEntry{}, fmt.Errorf("invalid phash for %s", key)
	}
	dh, ok := hexToUint64(ed.DHash)
	if !ok {
		return catalogmodel.CatalogEntry{}, fmt.Errorf("invalid dhash for %s", key)
	}
	return catalogmodel.CatalogEntry{
		Key:       key,
		PHash:     ph,
		DHash:     dh,
		FileMtime: ed.Mtime,
		FileMD5:   ed.MD5,
		Metadata:  fromMetadataDocument(ed.Data),
	}, nil
}

func hexToUint64(s string) (uint64, bool) {
	if len(s) != 16 {
		return 0, false
	}
	var h uint64
	for i := 0; i < 16; i++ {
		c := s[i]
		var v uint64
		switch {
		case c >= '0' && c <= '9':
			v = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			v = uint64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			v = uint64(c-'A') + 10
		default:
			return 0, false
		}
		h = h<<4 | v
	}
	return h, true
}

func uint64ToHex(h uint64) string {
	const digits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = digits[h&0xf]
		h >>= 4
	}
	return string(buf)
}

// Save writes the index to path as a single JSON document.
func (idx *HashIndex) Save(path string) error {
	doc := document{
		Generated: time.Now().UTC().Format(time.RFC3339),
		Hashes:    make(map[string]entryDocument, len(idx.hashes)),
	}
	for key, entry := range idx.hashes {
		doc.Hashes[key] = entryDocument{
			PHash: uint64ToHex(entry.PHash),
			DHash: uint64ToHex(entry.DHash),
			Mtime: entry.FileMtime,
			MD5:   entry.FileMD5,
			Data:  toMetadataDocument(entry.Metadata),
		}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &IndexError{Op: "marshal", Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &IndexError{Op: "write", Err: err}
	}
	slog.Info("saved hash index", "path", path, "entries", len(idx.hashes))
	return nil
}

// Put inserts or replaces a catalog entry and indexes it in both trees.
// Used by the hash-cache builder (§4.2 "Build").
func (idx *HashIndex) Put(entry catalogmodel.CatalogEntry) {
	idx.insert(entry)
}

func (idx *HashIndex) insert(entry catalogmodel.CatalogEntry) {
	idx.hashes[entry.Key] = entry
	idx.trees[hashKindPHash].Add(entry.PHash, entry.Key)
	idx.trees[hashKindDHash].Add(entry.DHash, entry.Key)
}

// Delete removes a catalog entry by key. The BK-trees are not rebuilt
// eagerly (rebuilt lazily on next Load), since §4.2 prunes disappeared
// entries only at build time, not at query time.
func (idx *HashIndex) Delete(key string) {
	delete(idx.hashes, key)
}

// Entries returns all catalog entries currently held (used by Build to
// detect stale rows and by tests to assert round-trip fidelity).
func (idx *HashIndex) Entries() map[string]catalogmodel.CatalogEntry {
	return idx.hashes
}

// Len reports the number of distinct catalog-entry keys in the index.
func (idx *HashIndex) Len() int { return len(idx.hashes) }

// Filter selects which metadata field a query result must (or must not)
// carry. A nil Any and nil None with RequireAbsent=true encodes the
// "field must be absent" rule.
type Filter struct {
	Field         string
	Any           []string // comma-separated "any of" values
	None          []string // leading "!" "none of" values
	RequireAbsent bool
}

func fieldValue(m catalogmodel.CatalogMetadata, field string) (string, bool) {
	switch field {
	case "image_category":
		return m.ImageCategory, m.ImageCategory != ""
	case "overlay_name":
		return m.OverlayName, m.OverlayName != ""
	case "cargo_type":
		return m.CargoType, m.CargoType != ""
	case "item_name":
		return m.ItemName, m.ItemName != ""
	case "mask_type":
		return string(m.MaskType), m.MaskType != ""
	default:
		return "", false
	}
}

func (f Filter) matches(m catalogmodel.CatalogMetadata) bool {
	val, present := fieldValue(m, f.Field)
	if f.RequireAbsent {
		return !present
	}
	if !present {
		return false
	}
	if len(f.None) > 0 {
		for _, n := range f.None {
			if val == n {
				return false
			}
		}
	}
	if len(f.Any) > 0 {
		for _, a := range f.Any {
			if val == a {
				return true
			}
		}
		return false
	}
	return true
}

func matchesAllFilters(m catalogmodel.CatalogMetadata, filters []Filter) bool {
	for _, f := range filters {
		if !f.matches(m) {
			return false
		}
	}
	return true
}

// QueryResult is one aggregated hit from FindSimilar: all catalog rows
// sharing a source-file MD5 collapse into one result whose MetadataList
// carries every surviving overlay variant.
type QueryResult struct {
	FilePath     string
	Distance     int
	MetadataList []catalogmodel.CatalogMetadata
}

// FindSimilar walks the BK-tree for hashKind and returns every catalog
// key within maxDistance of target, aggregated by source-file MD5 and
// filtered by the supplied metadata filters. Results are sorted by
// ascending distance, then by file path for determinism.
func (idx *HashIndex) FindSimilar(hashKind string, target uint64, maxDistance int,
	topN int, filters []Filter,
) ([]QueryResult, error) {
	tree, ok := idx.trees[hashKind]
	if !ok {
		return nil, fmt.Errorf("unknown hash kind %q", hashKind)
	}

	matches := tree.FindWithinRadius(target, maxDistance)

	// Apply metadata filters per-entry before aggregation.
	type md5Group struct {
		filePath string
		distance int
		metas    []catalogmodel.CatalogMetadata
	}
	byMD5 := make(map[string]*md5Group)
	order := make([]string, 0)

	for _, m := range matches {
		entry, ok := idx.hashes[m.Key]
		if !ok {
			continue
		}
		if !matchesAllFilters(entry.Metadata, filters) {
			continue
		}
		md5 := entry.FileMD5
		if md5 == "" {
			md5 = entry.Key // fall back to per-key grouping if md5 unknown
		}
		g, exists := byMD5[md5]
		if !exists {
			g = &md5Group{filePath: entry.Metadata.ImagePath, distance: m.Distance}
			byMD5[md5] = g
			order = append(order, md5)
		} else if m.Distance < g.distance {
			g.distance = m.Distance
		}
		g.metas = append(g.metas, entry.Metadata)
	}

	results := make([]QueryResult, 0, len(order))
	for _, md5 := range order {
		g := byMD5[md5]
		results = append(results, QueryResult{
			FilePath:     g.filePath,
			Distance:     g.distance,
			MetadataList: g.metas,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].FilePath < results[j].FilePath
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// ParseFilterValue turns a raw filter string into a Filter for field,
// implementing the comma/"any of" and leading-"!"/"none of" grammar from
// An empty value (no string at all) should instead be
// expressed by passing RequireAbsent directly; this helper is for the
// common "field=value" and "field=!value" CLI/config forms.
func ParseFilterValue(field, value string) Filter {
	if strings.HasPrefix(value, "!") {
		return Filter{Field: field, None: strings.Split(value[1:], ",")}
	}
	return Filter{Field: field, Any: strings.Split(value, ",")}
}
