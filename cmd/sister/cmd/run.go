package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"

	"github.com/phillipod/sister-sto/internal/catalogmodel"
	"github.com/phillipod/sister-sto/internal/collaborators"
	"github.com/phillipod/sister-sto/internal/config"
	"github.com/phillipod/sister-sto/internal/hashindex"
	"github.com/phillipod/sister-sto/internal/imageio"
	"github.com/phillipod/sister-sto/internal/overlaydetect"
	"github.com/phillipod/sister-sto/internal/pipeline"
	"github.com/phillipod/sister-sto/internal/testdata"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run [screenshot...]",
	Short: "Run the identification pipeline against one or more screenshots",
	Long: `run loads one or more character-sheet screenshots (PNG/JPEG, or a
PDF export whose pages are flattened to screenshots), locates icon
groups and slots within them, and reports the best-matching catalog
icon and rarity overlay for each slot.

Group and label geometry is supplied by pluggable collaborators: by
default run uses a fixed grid-slicing slot locator and an empty
label/group set, since OCR-based label detection and rule-driven group
geometry are out of scope for this tool (see the geometry fixture
flags below to supply real groups for a given layout).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("groups-file", "", "JSON file containing a []catalogmodel.IconGroup fixture")
	runCmd.Flags().String("labels-file", "", "JSON file containing a map[screenshot name][]catalogmodel.Label fixture")
	runCmd.Flags().Int("slot-columns", 1, "columns in the baseline grid slot locator")
	runCmd.Flags().Int("slot-rows", 1, "rows in the baseline grid slot locator")
	runCmd.Flags().StringP("output", "o", "", "write output to this file instead of stdout")
	runCmd.Flags().String("format", "", "output format: json or text (defaults to output.format)")
	runCmd.Flags().String("pdf-password", "", "password to try against an encrypted PDF screenshot export")
	runCmd.Flags().String("pdf-pages", "", "restrict PDF screenshot extraction to this page range, e.g. \"2-4\" (default: all pages)")

	if err := viper.BindPFlag("output.file", runCmd.Flags().Lookup("output")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}
	if err := viper.BindPFlag("output.format", runCmd.Flags().Lookup("format")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	idx, err := hashindex.Load(cfg.Catalog.HashIndexPath)
	if err != nil {
		return fmt.Errorf("load hash index: %w", err)
	}

	overlays, err := hashindex.LoadOverlays(cfg.Catalog.OverlayDir)
	if err != nil {
		return fmt.Errorf("load overlays: %w", err)
	}

	groupsFile, _ := cmd.Flags().GetString("groups-file")
	groups, err := loadGroupsFixture(groupsFile)
	if err != nil {
		return err
	}

	labelsFile, _ := cmd.Flags().GetString("labels-file")
	labels, err := loadLabelsFixture(labelsFile)
	if err != nil {
		return err
	}

	pdfPassword, _ := cmd.Flags().GetString("pdf-password")
	pdfPages, _ := cmd.Flags().GetString("pdf-pages")
	source := &collaborators.FileScreenshotSource{PDFPassword: pdfPassword, PDFPageRange: pdfPages}
	if !cfg.Output.NoResize {
		source.MaxWidth, source.MaxHeight = 1920, 1080
	}

	var screenshots []catalogmodel.Screenshot
	for _, path := range args {
		loaded, loadErr := source.LoadScreenshots(ctx, path)
		if loadErr != nil {
			return fmt.Errorf("load %s: %w", path, loadErr)
		}
		screenshots = append(screenshots, loaded...)
	}

	cols, _ := cmd.Flags().GetInt("slot-columns")
	rows, _ := cmd.Flags().GetInt("slot-rows")

	var recorder testdata.Recorder = testdata.NoopRecorder{}
	if cfg.TestData.Enabled {
		recorder = testdata.NewJSONRecorder(cfg.TestData.Prefix)
	}

	base := pipeline.Config{
		LabelLocator:     &collaborators.FixtureLabelLocator{Labels: labels},
		LayoutClassifier: collaborators.HeuristicLayoutClassifier{},
		GroupLocator:     &collaborators.FixtureIconGroupLocator{Groups: groups},
		SlotLocator: &collaborators.GridSlotLocator{
			Columns:  cols,
			Rows:     rows,
			CropFunc: cropSlot,
		},
		IconLoader:      &collaborators.FileIconLoader{Root: cfg.Catalog.IconDir, Load: imageio.Load},
		HashIndex:       idx,
		Overlays:        overlays,
		OverlayDetector: overlaydetect.NewDetector(overlays, cfg.ToOverlayDetectConfig()),
		Recorder:        recorder,
	}
	runCfg := cfg.ToOrchestratorConfig(base)

	orchestrator := pipeline.New(runCfg)
	state, metrics, runErr := orchestrator.Run(ctx, screenshots)
	if runErr != nil {
		return fmt.Errorf("run pipeline: %w", runErr)
	}
	if err := recorder.Flush(); err != nil {
		return fmt.Errorf("flush test data: %w", err)
	}

	return writeRunOutput(cmd, cfg, state.Output, metrics)
}

func cropSlot(screenshot catalogmodel.Screenshot, rect catalogmodel.Rect) image.Image {
	return imageio.Crop(screenshot.Image, image.Rect(rect.X, rect.Y, rect.X+rect.W, rect.Y+rect.H))
}

func loadGroupsFixture(path string) ([]catalogmodel.IconGroup, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied fixture path
	if err != nil {
		return nil, fmt.Errorf("read groups file: %w", err)
	}
	var groups []catalogmodel.IconGroup
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, fmt.Errorf("parse groups file: %w", err)
	}
	return groups, nil
}

func loadLabelsFixture(path string) (map[string][]catalogmodel.Label, error) {
	if path == "" {
		return map[string][]catalogmodel.Label{}, nil
	}
	raw, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied fixture path
	if err != nil {
		return nil, fmt.Errorf("read labels file: %w", err)
	}
	var labels map[string][]catalogmodel.Label
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, fmt.Errorf("parse labels file: %w", err)
	}
	return labels, nil
}

func writeRunOutput(cmd *cobra.Command, cfg *config.Config, output pipeline.OutputResult, metrics pipeline.Metrics) error {
	format := cfg.Output.Format
	if format == "" {
		format = "json"
	}

	var rendered string
	switch format {
	case "text":
		rendered = pipeline.FormatMatchSummary(output)
	default:
		payload := struct {
			Output  pipeline.OutputResult `json:"output"`
			Metrics pipeline.Metrics      `json:"metrics"`
		}{Output: output, Metrics: metrics}
		encoded, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		rendered = string(encoded)
	}

	if cfg.Output.File != "" {
		if err := os.WriteFile(cfg.Output.File, []byte(rendered+"\n"), 0o644); err != nil { //nolint:gosec // G306: operator-specified output path
			return fmt.Errorf("write output file: %w", err)
		}
		return nil
	}

	_, err := fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
