package commands

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>...",
	Short: "Store local image files",
	Long: `Upload local images to object storage and index them: visual embedding,
OCR text and text embedding. A failing file is reported and the remaining
files are still ingested.

Examples:
  pixdex ingest photos/*.png`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if a.ingest == nil {
			return errors.New("object storage is not configured (storage.minio.endpoint)")
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			data, err := os.ReadFile(filepath.Clean(path))
			if err != nil {
				failed++
				a.logger.Error("read file failed", zap.String("path", path), zap.Error(err))
				continue
			}
			it, err := a.ingest.Ingest(ctx, data, filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)))
			if err != nil {
				failed++
				a.logger.Error("ingest failed", zap.String("path", path), zap.Error(err))
				continue
			}
			fmt.Fprintf(out, "%d\t%s\t%dx%d\ttext=%t\n", it.ID, it.URL, it.Width, it.Height, it.Text != "")
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}
