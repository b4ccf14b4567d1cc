package hashindex

import (
	"bytes"
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/imagehash"
)

// ImageCacheEntry is one row of the catalog root's image_cache.json
// companion file: filename -> cargo/filter/name metadata.
type ImageCacheEntry struct {
	Cargo        string            `json:"cargo"`
	Filters      map[string]string `json:"filters"`
	Name         string            `json:"name"`
	CleanedName  string            `json:"cleaned_name"`
}

// BuildConfig controls a catalog scan.
type BuildConfig struct {
	IconRoot       string                  // directory tree whose leaves are PNG icon files
	ImageCachePath string                  // path to image_cache.json; empty disables metadata lookup
	Overlays       []catalogmodel.OverlayImage // rarity overlays; each one is blended onto every icon
	HashConfig     imagehash.Config
}

// Build scans IconRoot, alpha-blends every overlay onto every icon,
// masks per category, hashes the result, and returns a fresh HashIndex.
// Overlay-hash computation failures fail the whole
// build atomically: no index is returned on error, so no partial write
// is ever possible from a single Build call.
func Build(cfg BuildConfig) (*HashIndex, error) {
	cache, err := loadImageCache(cfg.ImageCachePath)
	if err != nil {
		return nil, &IndexError{Op: "build", Err: err}
	}

	idx := New()
	root := filepath.Clean(cfg.IconRoot)

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".png") {
			return nil
		}
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", relPath, err)
		}
		sum := md5.Sum(raw) //nolint:gosec
		md5hex := hex.EncodeToString(sum[:])

		icon, err := imaging.Decode(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("decode %s: %w", relPath, err)
		}
		info, statErr := d.Info()
		var mtime int64
		if statErr == nil {
			mtime = info.ModTime().Unix()
		}

		category := categoryForRelPath(relPath)
		maskType := catalogmodel.MaskTypeForCategory(category)
		meta := baseMetadata(relPath, category, maskType, cache)

		for _, overlay := range cfg.Overlays {
			blended := blendOverlay(icon, overlay.Image)
			hashes := imagehash.Compute(blended, maskType, cfg.HashConfig)

			entryMeta := meta
			entryMeta.OverlayName = overlay.Name
			key := relPath + "::" + overlay.Name

			idx.Put(catalogmodel.CatalogEntry{
				Key:       key,
				PHash:     hashes.PHash,
				DHash:     hashes.DHash,
				FileMtime: mtime,
				FileMD5:   md5hex,
				Metadata:  entryMeta,
			})
		}
		return nil
	})
	if err != nil {
		return nil, &IndexError{Op: "build", Err: err}
	}

	slog.Info("built hash index", "root", root, "entries", idx.Len())
	return idx, nil
}

// LoadOverlays decodes every "<name>.png" file directly under dir whose
// base name (without extension) matches one of catalogmodel.AllOverlayNames,
// returning one OverlayImage per match. Missing files are skipped rather
// than treated as an error; a tier without a PNG simply has no entry in
// the returned slice.
func LoadOverlays(dir string) ([]catalogmodel.OverlayImage, error) {
	var overlays []catalogmodel.OverlayImage
	for _, name := range catalogmodel.AllOverlayNames {
		path := filepath.Join(dir, name+".png")
		raw, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read overlay %s: %w", name, err)
		}
		img, err := imaging.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode overlay %s: %w", name, err)
		}
		overlays = append(overlays, catalogmodel.OverlayImage{Name: name, Image: img})
	}
	return overlays, nil
}

// categoryForRelPath derives the image_category from the folder path
// under the catalog root, e.g. "space/weapons/Phaser.png" -> "space/weapons".
func categoryForRelPath(relPath string) string {
	dir := filepath.ToSlash(filepath.Dir(relPath))
	if dir == "." {
		return ""
	}
	return dir
}

func baseMetadata(relPath, category string, maskType catalogmodel.MaskType, cache map[string]ImageCacheEntry) catalogmodel.CatalogMetadata {
	filename := filepath.Base(relPath)
	meta := catalogmodel.CatalogMetadata{
		ImagePath:     relPath,
		ImageFilename: filename,
		ImageCategory: category,
		MaskType:      maskType,
	}
	if entry, ok := cache[filename]; ok {
		meta.CargoType = entry.Cargo
		meta.CargoFilters = entry.Filters
		if entry.CleanedName != "" {
			meta.ItemName = entry.CleanedName
		} else {
			meta.ItemName = entry.Name
		}
		meta.CargoItemName = entry.Name
	}
	return meta
}

func loadImageCache(path string) (map[string]ImageCacheEntry, error) {
	if path == "" {
		return map[string]ImageCacheEntry{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ImageCacheEntry{}, nil
		}
		return nil, err
	}
	var cache map[string]ImageCacheEntry
	if err := json.Unmarshal(raw, &cache); err != nil {
		return nil, fmt.Errorf("parse image_cache.json: %w", err)
	}
	return cache, nil
}

// blendOverlay alpha-composites overlay (RGBA) onto icon, returning a new
// image the size of icon (alpha-blends the overlay onto the
// icon"). Uses image/draw's standard Porter-Duff "over" operator, the
// same approach golang.org/x/image/draw documents for alpha blending.
func blendOverlay(icon, overlay image.Image) image.Image {
	bounds := icon.Bounds()
	out := image.NewRGBA(bounds)
	draw.Draw(out, bounds, icon, bounds.Min, draw.Src)
	if overlay != nil {
		draw.Draw(out, bounds, overlay, overlay.Bounds().Min, draw.Over)
	}
	return out
}

