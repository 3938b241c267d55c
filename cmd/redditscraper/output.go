package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"redditscraper/internal/downloader"
	"redditscraper/pkg/scraper"
	"redditscraper/pkg/storage"
	"redditscraper/pkg/ui"
	"redditscraper/pkg/ui/tui"
)

var (
	outputDir string
	useTUI    bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export posts and loaded comments to JSON",
	Long: `Write a JSON document with the selected posts, or with the displayed
posts when nothing is selected. Comments are included for posts whose
thread has been loaded.`,
	Example: `  redditscraper export
  redditscraper export --output ./exports`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(outputFlags(), false)
		if err != nil {
			return err
		}
		store, err := storage.NewManager(a.cfg.Output.BaseDirectory)
		if err != nil {
			return err
		}

		name, err := a.scraper.WriteExport(store.AtomicFS(), time.Now())
		if err != nil {
			return err
		}
		a.notifier().Success("Export complete", store.Path(name))
		return nil
	},
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Download the media of the selected posts into a ZIP archive",
	Long: `Download every image, video and gallery item of the selected posts into
one ZIP file. A file that cannot be downloaded is replaced by a
_FETCH_ERROR.txt note and listed in _DOWNLOAD_ERRORS.txt.`,
	Example: `  redditscraper archive
  redditscraper archive --output ./archives --tui`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(outputFlags(), true)
		if err != nil {
			return err
		}
		if len(a.scraper.Selected()) == 0 {
			return scraper.ErrNoSelection
		}
		store, err := storage.NewManager(a.cfg.Output.BaseDirectory)
		if err != nil {
			return err
		}

		zf, path, err := store.CreateArchive(a.scraper.ArchiveName(time.Now()))
		if err != nil {
			return err
		}

		var report downloader.Report
		work := func(ctx context.Context, obs downloader.Observer) error {
			r, werr := a.scraper.Archive(ctx, zf, obs)
			report = r
			return werr
		}
		if useTUI {
			view := tui.NewTUI("Archiving " + a.scraper.Params().Describe())
			err = view.Run(cmd.Context(), func(ctx context.Context) error {
				return work(ctx, view)
			})
		} else {
			err = work(cmd.Context(), ui.NewArchiveProgress(os.Stderr, quiet))
		}

		if cerr := zf.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to finish archive: %w", cerr)
		}
		if err != nil {
			_ = os.Remove(path)
			a.notifier().Error("Archive failed", err.Error())
			return err
		}
		if err := a.save(); err != nil {
			return err
		}

		if useTUI {
			ui.PrintArchiveSummary(ui.Output, report)
		}
		msg := fmt.Sprintf("%s (%d of %d files)", path, report.Succeeded, report.Attempted)
		if report.Failed > 0 {
			a.notifier().Error("Archive finished with errors", msg)
			return nil
		}
		a.notifier().Success("Archive complete", msg)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{exportCmd, archiveCmd} {
		cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default from config)")
		rootCmd.AddCommand(cmd)
	}
	archiveCmd.Flags().BoolVar(&useTUI, "tui", false, "show an interactive progress view")
}

func outputFlags() map[string]interface{} {
	flags := make(map[string]interface{})
	if outputDir != "" {
		flags["output"] = outputDir
	}
	return flags
}
