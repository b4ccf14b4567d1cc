package collaborators

import (
	"context"
	"image"
	"path/filepath"
	"strings"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

// FixtureLabelLocator returns a pre-supplied label set keyed by
// screenshot name, standing in for a real OCR backend so the pipeline
// can run end-to-end in tests.
type FixtureLabelLocator struct {
	Labels map[string][]catalogmodel.Label
}

func (f *FixtureLabelLocator) LocateLabels(_ context.Context, screenshot catalogmodel.Screenshot) ([]catalogmodel.Label, error) {
	return f.Labels[screenshot.Name], nil
}

// buildTypeKeywords maps a substring found among a screenshot's label
// text to the build type it indicates. Matching is first-hit, in the
// order below, mirroring a simple keyword classifier.
var buildTypeKeywords = []struct {
	keyword   string
	buildType catalogmodel.BuildType
	iconSet   catalogmodel.IconSetKey
}{
	{"fore weapon", catalogmodel.BuildPCShip, catalogmodel.IconSetShip},
	{"aft weapon", catalogmodel.BuildPCShip, catalogmodel.IconSetShip},
	{"kit modules", catalogmodel.BuildPCGround, catalogmodel.IconSetPCGround},
	{"space trait", catalogmodel.BuildPersonalSpaceTraits, catalogmodel.IconSetTraits},
	{"ground trait", catalogmodel.BuildPersonalGroundTraits, catalogmodel.IconSetTraits},
	{"starship trait", catalogmodel.BuildStarshipTraits, catalogmodel.IconSetTraits},
	{"space reputation", catalogmodel.BuildSpaceReputation, catalogmodel.IconSetTraits},
	{"ground reputation", catalogmodel.BuildGroundReputation, catalogmodel.IconSetTraits},
}

// HeuristicLayoutClassifier picks a build type by scanning label text
// for known section-header substrings. It is a geometric/lexical
// stand-in for the real classifier, sufficient to exercise the
// downstream pipeline stages in tests.
type HeuristicLayoutClassifier struct{}

func (HeuristicLayoutClassifier) ClassifyLayout(_ context.Context, labels []catalogmodel.Label) (catalogmodel.ClassificationSet, error) {
	for _, label := range labels {
		lower := strings.ToLower(label.Text)
		for _, kw := range buildTypeKeywords {
			if strings.Contains(lower, kw.keyword) {
				return catalogmodel.ClassificationSet{
					Main: catalogmodel.Classification{
						BuildType:  kw.buildType,
						Score:      1.0,
						IsRequired: true,
						IconSetKey: kw.iconSet,
					},
				}, nil
			}
		}
	}
	return catalogmodel.ClassificationSet{
		Main: catalogmodel.Classification{BuildType: catalogmodel.BuildPCShip, IconSetKey: catalogmodel.IconSetShip},
	}, nil
}

// GridSlotLocator slices an icon group's bbox into a uniform grid of
// Columns x Rows slots, in top-to-bottom, left-to-right reading order,
// standing in for the real contour-based slot locator.
type GridSlotLocator struct {
	Columns, Rows int
	CropFunc      func(screenshot catalogmodel.Screenshot, rect catalogmodel.Rect) image.Image
}

func (g *GridSlotLocator) LocateIconSlots(_ context.Context, screenshot catalogmodel.Screenshot, group catalogmodel.IconGroup) ([]catalogmodel.Slot, error) {
	cols, rows := g.Columns, g.Rows
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}

	cellW := group.Bbox.W / cols
	cellH := group.Bbox.H / rows

	slots := make([]catalogmodel.Slot, 0, cols*rows)
	index := 0
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			rect := catalogmodel.Rect{
				X: group.Bbox.X + col*cellW,
				Y: group.Bbox.Y + row*cellH,
				W: cellW,
				H: cellH,
			}
			var roi image.Image
			if g.CropFunc != nil {
				roi = g.CropFunc(screenshot, rect)
			}
			slots = append(slots, catalogmodel.Slot{
				GroupLabel: group.Label,
				SlotIndex:  index,
				Bbox:       rect,
				ROI:        roi,
			})
			index++
		}
	}
	return slots, nil
}

// NoopCargoDownloader satisfies CargoDownloader without performing any
// network access; download itself is out of scope and left to a real
// collaborator in production deployments.
type NoopCargoDownloader struct{}

func (NoopCargoDownloader) Download(context.Context, string) error { return nil }

// FixtureIconGroupLocator returns a pre-supplied set of icon-group
// rectangles regardless of labels or classification, standing in for
// the rule-DSL/geometry locator when no rule set has been authored for
// a given layout yet. Mirrors FixtureLabelLocator's role.
type FixtureIconGroupLocator struct {
	Groups []catalogmodel.IconGroup
}

func (f *FixtureIconGroupLocator) LocateIconGroups(_ context.Context, _ []catalogmodel.Label, _ catalogmodel.Classification) ([]catalogmodel.IconGroup, error) {
	return f.Groups, nil
}

// FileIconLoader decodes catalog icon files directly from a root
// directory on disk, downloading nothing itself (download is out of
// scope per §1); LoadIcon resolves filePath relative to Root unless it
// is already absolute.
type FileIconLoader struct {
	Root string
	Load func(path string) (image.Image, error)
}

func (f *FileIconLoader) LoadIcon(_ context.Context, filePath string) (image.Image, error) {
	path := filePath
	if f.Root != "" && !filepath.IsAbs(filePath) {
		path = filepath.Join(f.Root, filePath)
	}
	return f.Load(path)
}
