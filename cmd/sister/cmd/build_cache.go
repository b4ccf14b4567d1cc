package cmd

import (
	"fmt"

	"github.com/phillipod/sister-sto/internal/hashindex"
	"github.com/spf13/cobra"
)

var buildCacheCmd = &cobra.Command{
	Use:   "build-cache",
	Short: "Scan a catalog tree and build its perceptual-hash index",
	Long: `build-cache walks catalog.icon_dir, alpha-blends every rarity overlay
found under catalog.overlay_dir onto each icon, hashes every combination
with pHash and dHash, and writes the resulting index to
catalog.hash_index_path. Only tiers with a PNG in catalog.overlay_dir get
entries; the bare, un-overlaid icon is not hashed on its own.`,
	RunE: runBuildCache,
}

func init() {
	buildCacheCmd.Flags().String("image-cache", "", "path to an image_cache.json metadata file (optional)")

	rootCmd.AddCommand(buildCacheCmd)
}

func runBuildCache(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()

	overlays, err := hashindex.LoadOverlays(cfg.Catalog.OverlayDir)
	if err != nil {
		return fmt.Errorf("load overlays: %w", err)
	}

	imageCachePath, _ := cmd.Flags().GetString("image-cache")

	idx, err := hashindex.Build(hashindex.BuildConfig{
		IconRoot:       cfg.Catalog.IconDir,
		ImageCachePath: imageCachePath,
		Overlays:       overlays,
		HashConfig:     cfg.ToHashConfig(),
	})
	if err != nil {
		return fmt.Errorf("build hash index: %w", err)
	}

	if err := idx.Save(cfg.Catalog.HashIndexPath); err != nil {
		return fmt.Errorf("save hash index: %w", err)
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "built hash index with %d entries at %s\n", idx.Len(), cfg.Catalog.HashIndexPath)
	return err
}
