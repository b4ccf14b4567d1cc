// Package catalogmodel defines the shared data types that flow between
// pipeline stages: screenshots, labels, classifications, icon groups,
// slots, catalog entries and the match candidates/results produced by
// the prefilter, overlay detector and icon matcher.
package catalogmodel

import "image"

// BuildType enumerates the character-sheet layouts the classifier can
// recognize.
type BuildType string

const (
	BuildPCShip                 BuildType = "PC Ship Build"
	BuildConsoleShip             BuildType = "Console Ship Build"
	BuildPCGround                BuildType = "PC Ground Build"
	BuildConsoleGround           BuildType = "Console Ground Build"
	BuildPersonalSpaceTraits     BuildType = "Personal Space Traits"
	BuildPersonalGroundTraits    BuildType = "Personal Ground Traits"
	BuildStarshipTraits          BuildType = "Starship Traits"
	BuildSpaceReputation         BuildType = "Space Reputation"
	BuildGroundReputation        BuildType = "Ground Reputation"
	BuildActiveSpaceReputation   BuildType = "Active Space Reputation"
	BuildActiveGroundReputation  BuildType = "Active Ground Reputation"
)

// IconSetKey selects which folder map the prefilter should consult for a
// classification.
type IconSetKey string

const (
	IconSetShip          IconSetKey = "ship"
	IconSetPCGround      IconSetKey = "pc_ground"
	IconSetConsoleGround IconSetKey = "console_ground"
	IconSetTraits        IconSetKey = "traits"
)

// Platform distinguishes PC from console builds, which use different label
// fonts and icon-group geometry.
type Platform string

const (
	PlatformPC      Platform = "pc"
	PlatformConsole Platform = "console"
	PlatformUnknown Platform = ""
)

// Screenshot is one decoded character-sheet image owned by the run-state
// for the duration of a single pipeline run.
type Screenshot struct {
	Name  string
	Image image.Image
}

// Corner is a single point of a label's bounding quadrilateral, in
// screenshot pixel coordinates.
type Corner struct{ X, Y float64 }

// Label is an immutable OCR detection: recognized text plus its four
// corners in screenshot pixel coordinates.
type Label struct {
	Text    string
	Corners [4]Corner
}

// Left returns the label's left-most x coordinate.
func (l Label) Left() float64 {
	left := l.Corners[0].X
	for _, c := range l.Corners[1:] {
		if c.X < left {
			left = c.X
		}
	}
	return left
}

// Right returns the label's right-most x coordinate.
func (l Label) Right() float64 {
	right := l.Corners[0].X
	for _, c := range l.Corners[1:] {
		if c.X > right {
			right = c.X
		}
	}
	return right
}

// MidY returns the vertical midpoint of the label's bounding box.
func (l Label) MidY() float64 {
	top, bottom := l.Corners[0].Y, l.Corners[0].Y
	for _, c := range l.Corners[1:] {
		if c.Y < top {
			top = c.Y
		}
		if c.Y > bottom {
			bottom = c.Y
		}
	}
	return (top + bottom) / 2
}

// Classification is the winning layout guess for one screenshot, plus any
// additional required classifications (trait boxes coexisting with a
// build).
type Classification struct {
	BuildType   BuildType
	Score       float64
	IsRequired  bool
	IconSetKey  IconSetKey
	Platform    Platform
}

// ClassificationSet is the full output of classify_layout: the main
// classification plus zero or more additional required ones.
type ClassificationSet struct {
	Main       Classification
	Additional []Classification
}

// All returns the main classification followed by the additional ones.
func (c ClassificationSet) All() []Classification {
	out := make([]Classification, 0, 1+len(c.Additional))
	out = append(out, c.Main)
	out = append(out, c.Additional...)
	return out
}

// Rect is an axis-aligned pixel rectangle.
type Rect struct{ X, Y, W, H int }

// IconGroup is a named rectangular region inside which one column/row/grid
// of icon slots is expected. ScreenshotName ties the group back to the
// screenshot its bbox was located on, since one run may process several
// screenshots sharing a single run-state.
type IconGroup struct {
	Label          string
	Bbox           Rect
	ScreenshotName string
}

// Slot is one rectangular icon region within an icon group.
type Slot struct {
	GroupLabel string
	SlotIndex  int
	Bbox       Rect
	ROI        image.Image
	PHash      uint64
	DHash      uint64
}

// MaskType selects which corner/region mask is applied before hashing or
// comparing a slot/icon, as a pure function of the catalog entry's
// image_category.
type MaskType string

const (
	MaskDefault       MaskType = "default"
	MaskNoMask        MaskType = "none"
	MaskBottomLeft    MaskType = "bottom_left"
)

// MaskTypeForCategory implements the pure function mapping an
// image_category to a mask type. Categories are forward-slash separated
// catalog folder paths, e.g. "space/weapons/fore".
func MaskTypeForCategory(category string) MaskType {
	switch {
	case category == "":
		return MaskDefault
	case hasAnyPrefix(category, "ground/traits", "space/traits", "reputation"):
		return MaskNoMask
	case hasAnyPrefix(category, "ground/kit_modules"):
		return MaskBottomLeft
	default:
		return MaskDefault
	}
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}

// iconSetCategories maps each IconSetKey to the catalog category folder
// prefixes a slot classified under that key may draw candidates from.
var iconSetCategories = map[IconSetKey][]string{
	IconSetShip:          {"space/"},
	IconSetPCGround:      {"ground/", "reputation/"},
	IconSetConsoleGround: {"ground/", "reputation/"},
	IconSetTraits:        {"ground/traits", "space/traits"},
}

// AllowedCategoriesForIconSet returns the category folder prefixes the
// prefilter should restrict its hash-index query to for the given icon
// set key. An unrecognized key allows every category (empty prefix
// matches everything).
func AllowedCategoriesForIconSet(key IconSetKey) []string {
	if prefixes, ok := iconSetCategories[key]; ok {
		return prefixes
	}
	return []string{""}
}

// MaskTypeForIconSet picks the mask a slot's own ROI should be hashed
// with before it has been matched to any specific catalog entry: traits
// and reputation icons carry no bottom-right decoration to suppress, so
// they use MaskNoMask like their catalog counterparts; every other icon
// set uses the default corner mask.
func MaskTypeForIconSet(key IconSetKey) MaskType {
	if key == IconSetTraits {
		return MaskNoMask
	}
	return MaskDefault
}

// CategoryAllowed reports whether category is permitted by any of the
// given allowed prefixes.
func CategoryAllowed(category string, prefixes []string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if p == "" || hasAnyPrefix(category, p) {
			return true
		}
	}
	return false
}

// CatalogMetadata is the tagged-struct replacement for the source's
// free-form metadata dict. CargoFilters stays a map since
// the wiki's cargo schema is open-ended.
type CatalogMetadata struct {
	ImagePath      string
	ImageFilename  string
	ImageCategory  string
	OverlayName    string
	CargoType      string
	CargoItemName  string
	CargoFilters   map[string]string
	ItemName       string
	MaskType       MaskType
}

// CatalogEntry is one (icon file x overlay variant) row in the hash index.
type CatalogEntry struct {
	Key      string // "<relative-path>::<overlay-name>"
	PHash    uint64
	DHash    uint64
	FileMtime int64
	FileMD5  string
	Metadata CatalogMetadata
}

// OverlayImage is a decoded RGBA reference image for one rarity tier.
type OverlayImage struct {
	Name  string
	Image image.Image
}

// Rarity tier names, in the fixed order the overlay detector enumerates
// them (common excluded, since it is never matched directly).
var RarityTiers = []string{"uncommon", "rare", "very rare", "ultra rare", "epic"}

// AllOverlayNames includes "common" for contexts that need to enumerate
// every rarity including the fallback.
var AllOverlayNames = []string{"common", "uncommon", "rare", "very rare", "ultra rare", "epic"}

// MatchCandidate is one prefilter output row for a single slot.
type MatchCandidate struct {
	FilePath      string
	OverlayName   string
	HashKind      string // "phash" or "dhash"
	Distance      int
	MatchThreshold int
	MetadataList  []CatalogMetadata
}

// OverlayDetection is one overlay-detector output row for a single slot.
type OverlayDetection struct {
	OverlayName string
	Scale       float64
	OffsetX     int
	OffsetY     int
	SSIM        float64
	Method      string
}

// MatchResult is one icon-matcher output row for a single slot.
type MatchResult struct {
	Group        string
	Slot         int
	Name         string
	Score        float64
	Scale        float64
	OverlayScale float64
	Overlay      string
	Method       string
}
