package cli_test

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
	"gopkg.in/yaml.v3"
)

// testContext captures one scenario's working directory, the last command
// run in it, and that command's captured output/exit code.
type testContext struct {
	binPath    string
	workingDir string

	lastOutput   string
	lastExitCode int

	catalogDir string
}

func newTestContext(binPath string) *testContext {
	dir, err := os.MkdirTemp("", "sister-scenario-")
	if err != nil {
		panic(err)
	}
	return &testContext{binPath: binPath, workingDir: dir}
}

func (tc *testContext) cleanup() {
	_ = os.RemoveAll(tc.workingDir)
}

func (tc *testContext) registerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, tc.iRun)
	sc.Step(`^I run "([^"]*)" with that catalog$`, tc.iRunWithCatalog)
	sc.Step(`^I run "([^"]*)" against a nonexistent icon directory$`, tc.iRunAgainstMissingIconDir)
	sc.Step(`^a catalog directory with (\d+) icon images? and (\d+) overlays?$`, tc.aCatalogDirectory)
	sc.Step(`^the command should succeed$`, tc.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, tc.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, tc.theOutputShouldContain)
	sc.Step(`^a hash index file should exist at the configured path$`, tc.aHashIndexFileShouldExist)
}

func (tc *testContext) run(args ...string) error {
	cmd := exec.Command(tc.binPath, args...)
	cmd.Dir = tc.workingDir
	cmd.Env = append(os.Environ(), "SISTER_LOG_LEVEL=error")

	out, err := cmd.CombinedOutput()
	tc.lastOutput = string(out)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		tc.lastExitCode = 0
	case errors.As(err, &exitErr):
		tc.lastExitCode = exitErr.ExitCode()
	default:
		tc.lastExitCode = -1
	}
	return nil
}

func (tc *testContext) iRun(command string) error {
	return tc.run(strings.Fields(command)...)
}

// aCatalogDirectory lays out a minimal catalog/icons and catalog/overlays
// tree with the requested number of 16x16 PNG fixtures, and writes a
// sister.yaml pointing the CLI at it.
func (tc *testContext) aCatalogDirectory(iconCount, overlayCount int) error {
	iconDir := filepath.Join(tc.workingDir, "catalog", "icons")
	overlayDir := filepath.Join(tc.workingDir, "catalog", "overlays")
	if err := os.MkdirAll(iconDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(overlayDir, 0o755); err != nil {
		return err
	}

	for i := 0; i < iconCount; i++ {
		name := "icon_" + strconv.Itoa(i) + ".png"
		if err := writeFixturePNG(filepath.Join(iconDir, name)); err != nil {
			return err
		}
	}
	for i := 0; i < overlayCount; i++ {
		name := "rare.png"
		if err := writeFixturePNG(filepath.Join(overlayDir, name)); err != nil {
			return err
		}
	}

	tc.catalogDir = filepath.Join(tc.workingDir, "catalog")

	cfg := map[string]any{
		"catalog": map[string]any{
			"icon_dir":        iconDir,
			"overlay_dir":      overlayDir,
			"hash_index_path": filepath.Join(tc.catalogDir, "hash_index.json"),
		},
	}
	return writeYAML(filepath.Join(tc.workingDir, "sister.yaml"), cfg)
}

func (tc *testContext) iRunWithCatalog(command string) error {
	return tc.iRun(command)
}

func (tc *testContext) iRunAgainstMissingIconDir(command string) error {
	cfg := map[string]any{
		"catalog": map[string]any{
			"icon_dir":        filepath.Join(tc.workingDir, "does-not-exist"),
			"overlay_dir":      filepath.Join(tc.workingDir, "does-not-exist-overlays"),
			"hash_index_path": filepath.Join(tc.workingDir, "hash_index.json"),
		},
	}
	if err := writeYAML(filepath.Join(tc.workingDir, "sister.yaml"), cfg); err != nil {
		return err
	}
	return tc.iRun(command)
}

func (tc *testContext) theCommandShouldSucceed() error {
	if tc.lastExitCode != 0 {
		return errorf("expected exit code 0, got %d; output:\n%s", tc.lastExitCode, tc.lastOutput)
	}
	return nil
}

func (tc *testContext) theCommandShouldFail() error {
	if tc.lastExitCode == 0 {
		return errorf("expected a non-zero exit code, got 0; output:\n%s", tc.lastOutput)
	}
	return nil
}

func (tc *testContext) theOutputShouldContain(want string) error {
	if !strings.Contains(tc.lastOutput, want) {
		return errorf("expected output to contain %q, got:\n%s", want, tc.lastOutput)
	}
	return nil
}

func (tc *testContext) aHashIndexFileShouldExist() error {
	path := filepath.Join(tc.catalogDir, "hash_index.json")
	if _, err := os.Stat(path); err != nil {
		return errorf("expected hash index at %s: %v", path, err)
	}
	return nil
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// writeFixturePNG writes a 16x16 red/green gradient PNG. Every call writes
// the same image, so fixture files written by it hash identically.
func writeFixturePNG(path string) error {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	return png.Encode(f, img)
}

func errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...) //nolint:err113
}
