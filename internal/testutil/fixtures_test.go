package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
)

func TestCreateSampleFixtures(t *testing.T) {
	// First generate catalog images if they don't exist
	GenerateCatalogFixtures(t)

	// Create sample fixtures
	CreateSampleFixtures(t)

	// Verify fixtures were created
	fixturesDir := GetFixturesDir(t)
	assert.True(t, DirExists(fixturesDir))

	// Check that fixture files exist
	assert.True(t, FileExists(fixturesDir+"/icon_match_phaser_array.json"))
	assert.True(t, FileExists(fixturesDir+"/overlay_detect_rare.json"))
	assert.True(t, FileExists(fixturesDir+"/multi_slot_fore_weapons.json"))
}

func TestLoadFixture(t *testing.T) {
	// First create fixtures
	GenerateCatalogFixtures(t)
	CreateSampleFixtures(t)

	// Load a fixture
	fixture := LoadFixture(t, "icon_match_phaser_array")
	assert.Equal(t, "icon_match_phaser_array", fixture.Name)
	assert.Equal(t, "Slot ROI identical to the phaser_array catalog icon", fixture.Description)
	assert.Equal(t, "images/icons/phaser_array.png", fixture.InputFile)
	assert.NotNil(t, fixture.Expected)
}

func TestSaveAndLoadFixture(t *testing.T) {
	// Create a test fixture
	fixture := TestFixture{
		Name:        "test_fixture",
		Description: "Test fixture for unit testing",
		InputFile:   "test/input.png",
		Expected: IconMatchExpectedResult{
			MatchResult: catalogmodel.MatchResult{
				Group: "Fore Weapons",
				Slot:  0,
				Name:  "test.png",
				Score: 0.99,
			},
			MinScore: 0.95,
		},
	}

	// Save fixture
	SaveFixture(t, fixture)

	// Load it back
	loadedFixture := LoadFixture(t, "test_fixture")
	assert.Equal(t, fixture.Name, loadedFixture.Name)
	assert.Equal(t, fixture.Description, loadedFixture.Description)
	assert.Equal(t, fixture.InputFile, loadedFixture.InputFile)
}

func TestValidateFixture(t *testing.T) {
	// Generate catalog images first
	GenerateCatalogFixtures(t)
	CreateSampleFixtures(t)

	// Load a fixture
	fixture := LoadFixture(t, "icon_match_phaser_array")

	// This should not panic since the input file should exist
	require.NotPanics(t, func() {
		ValidateFixture(t, fixture)
	})
}

func TestGetFixtureInputPath(t *testing.T) {
	fixture := TestFixture{
		InputFile: "images/simple/test.png",
	}

	path := GetFixtureInputPath(t, fixture)
	assert.Contains(t, path, "testdata/images/simple/test.png")
}
