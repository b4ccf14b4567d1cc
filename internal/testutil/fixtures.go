package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

// TestFixture represents a test fixture with input and expected output.
type TestFixture struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputFile   string                 `json:"input_file"`
	Expected    interface{}            `json:"expected"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// IconMatchExpectedResult is the expected icon-matcher output for a single
// slot fixture: the catalog icon name, the overlay it should be detected
// under, and the score the matcher should clear.
type IconMatchExpectedResult struct {
	MatchResult  catalogmodel.MatchResult  `json:"match_result"`
	MinScore     float64                   `json:"min_score"`
}

// OverlayDetectExpectedResult is the expected overlay-detector output for a
// single slot fixture.
type OverlayDetectExpectedResult struct {
	Detection catalogmodel.OverlayDetection `json:"detection"`
	MinSSIM   float64                       `json:"min_ssim"`
}

// LoadFixture loads a test fixture from JSON file.
func LoadFixture(t *testing.T, name string) TestFixture {
	t.Helper()

	fixturesDir := GetFixturesDir(t)
	fixturePath := filepath.Join(fixturesDir, name+".json")

	data, err := os.ReadFile(fixturePath) //nolint:gosec // G304: Reading test fixture files with controlled paths
	require.NoError(t, err, "Failed to read fixture file: %s", fixturePath)

	var fixture TestFixture
	err = json.Unmarshal(data, &fixture)
	require.NoError(t, err, "Failed to unmarshal fixture JSON")

	return fixture
}

// SaveFixture saves a test fixture to JSON file.
func SaveFixture(t *testing.T, fixture TestFixture) {
	t.Helper()

	fixturesDir := GetFixturesDir(t)
	require.NoError(t, EnsureDir(fixturesDir))

	fixturePath := filepath.Join(fixturesDir, fixture.Name+".json")

	data, err := json.MarshalIndent(fixture, "", "  ")
	require.NoError(t, err, "Failed to marshal fixture to JSON")

	err = os.WriteFile(fixturePath, data, 0o600)
	require.NoError(t, err, "Failed to write fixture file: %s", fixturePath)
}

// createIconMatchFixture creates a fixture pairing a synthetic catalog icon
// with the match result the icon matcher should report when the slot ROI
// is that same icon, unmodified.
func createIconMatchFixture(t *testing.T) TestFixture {
	t.Helper()

	return TestFixture{
		Name:        "icon_match_phaser_array",
		Description: "Slot ROI identical to the phaser_array catalog icon",
		InputFile:   "images/icons/phaser_array.png",
		Expected: IconMatchExpectedResult{
			MatchResult: catalogmodel.MatchResult{
				Group: "Fore Weapons",
				Slot:  0,
				Name:  "phaser_array.png",
				Scale: 1.0,
			},
			MinScore: 0.95,
		},
		Metadata: map[string]interface{}{
			"image_size": map[string]int{
				"width":  IconSize.Width,
				"height": IconSize.Height,
			},
		},
	}
}

// createOverlayDetectFixture creates a fixture pairing a synthetic rarity
// stripe overlay with the detection the overlay detector should report
// when the slot carries exactly that stripe.
func createOverlayDetectFixture(t *testing.T) TestFixture {
	t.Helper()

	return TestFixture{
		Name:        "overlay_detect_rare",
		Description: "Slot carrying the 'rare' rarity stripe overlay",
		InputFile:   "images/overlays/rare.png",
		Expected: OverlayDetectExpectedResult{
			Detection: catalogmodel.OverlayDetection{
				OverlayName: "rare",
				Scale:       1.0,
			},
			MinSSIM: 0.9,
		},
		Metadata: map[string]interface{}{
			"image_size": map[string]int{
				"width":  StripeSize.Width,
				"height": StripeSize.Height,
			},
		},
	}
}

// createMultiSlotFixture creates a fixture describing a small icon group
// with several slots, for exercising slot-locator and group-geometry code
// without a real character-sheet screenshot.
func createMultiSlotFixture(t *testing.T) TestFixture {
	t.Helper()

	return TestFixture{
		Name:        "multi_slot_fore_weapons",
		Description: "Fore Weapons icon group with four slots",
		InputFile:   "images/icons/disruptor_cannon.png",
		Expected: catalogmodel.IconGroup{
			Label:          "Fore Weapons",
			Bbox:           catalogmodel.Rect{X: 100, Y: 200, W: 288, H: 72},
			ScreenshotName: "character_sheet.png",
		},
		Metadata: map[string]interface{}{
			"slot_count": 4,
			"slot_size": map[string]int{
				"width":  SlotSize.Width,
				"height": SlotSize.Height,
			},
		},
	}
}

// CreateSampleFixtures creates sample test fixtures.
func CreateSampleFixtures(t *testing.T) {
	t.Helper()

	SaveFixture(t, createIconMatchFixture(t))
	SaveFixture(t, createOverlayDetectFixture(t))
	SaveFixture(t, createMultiSlotFixture(t))
}

// GetFixtureInputPath returns the full path to a fixture's input file.
func GetFixtureInputPath(t *testing.T, fixture TestFixture) string {
	t.Helper()

	testDataDir := GetTestDataDir(t)
	return filepath.Join(testDataDir, fixture.InputFile)
}

// ValidateFixture validates that a fixture's input file exists.
func ValidateFixture(t *testing.T, fixture TestFixture) {
	t.Helper()

	inputPath := GetFixtureInputPath(t, fixture)
	require.True(t, FileExists(inputPath), "Fixture input file does not exist: %s", inputPath)
}
