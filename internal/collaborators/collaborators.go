// Package collaborators defines the typed interfaces for the components
// the orchestrator treats as out-of-scope inputs — OCR-based label
// location, rule-driven region geometry, raw contour detection, and
// cargo-catalog download — plus minimal baseline implementations so a
// pipeline run can be exercised end-to-end without a real OCR backend.
package collaborators

import (
	"context"
	"image"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

// LabelLocator finds OCR label text boxes on a screenshot.
type LabelLocator interface {
	LocateLabels(ctx context.Context, screenshot catalogmodel.Screenshot) ([]catalogmodel.Label, error)
}

// LayoutClassifier decides which build type a screenshot's labels
// indicate, plus any additional required classifications (trait boxes
// coexisting with a build).
type LayoutClassifier interface {
	ClassifyLayout(ctx context.Context, labels []catalogmodel.Label) (catalogmodel.ClassificationSet, error)
}

// IconGroupLocator finds icon-group bounding boxes given labels and the
// winning classification.
type IconGroupLocator interface {
	LocateIconGroups(ctx context.Context, labels []catalogmodel.Label, classification catalogmodel.Classification) ([]catalogmodel.IconGroup, error)
}

// IconSlotLocator finds individual slot rectangles within an icon group
// and crops/hashes their ROIs.
type IconSlotLocator interface {
	LocateIconSlots(ctx context.Context, screenshot catalogmodel.Screenshot, group catalogmodel.IconGroup) ([]catalogmodel.Slot, error)
}

// CargoDownloader fetches the wiki cargo-catalog companion data used to
// enrich catalog metadata. Download itself is out of scope; this
// interface exists so build-cache/download tasks have a typed seam.
type CargoDownloader interface {
	Download(ctx context.Context, destDir string) error
}

// Image loading is shared by several stages: decode a reference ROI or
// catalog icon into memory, downloading it first if IconLoader requires.
type IconLoader interface {
	LoadIcon(ctx context.Context, filePath string) (image.Image, error)
}
