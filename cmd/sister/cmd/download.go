package cmd

import (
	"fmt"

	"github.com/phillipod/sister-sto/internal/collaborators"
	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Fetch catalog icon assets into catalog.icon_dir",
	Long: `download populates catalog.icon_dir from an external cargo source (the
STO wiki's icon cargo tables). Cargo retrieval itself is out of scope
for this tool (see CargoDownloader); the default downloader is a no-op,
so this command is a placeholder for a real downloader collaborator
plugged in at server/CLI wiring time.`,
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, _ []string) error {
	cfg := GetConfig()

	downloader := collaborators.NoopCargoDownloader{}
	if err := downloader.Download(cmd.Context(), cfg.Catalog.IconDir); err != nil {
		return fmt.Errorf("download catalog icons: %w", err)
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "download complete into %s (no-op downloader; plug in a real CargoDownloader for live cargo retrieval)\n", cfg.Catalog.IconDir)
	return err
}
