package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	ingestuc "github.com/kailas-cloud/pixdex/internal/usecase/ingest"
)

var (
	backfillConcurrency int
	backfillRate        float64
)

var backfillCmd = &cobra.Command{
	Use:   "backfill-ocr",
	Short: "Recompute OCR text for every stored object",
	Long: `Walk every object in the image bucket, run OCR and the text embedding,
and store the result. Images already indexed get their text replaced; objects
without an index entry are indexed from scratch. Failures are counted and the
walk continues.

Examples:
  pixdex backfill-ocr
  pixdex backfill-ocr --concurrency 8 --rate 5`,
	RunE: func(cmd *cobra.Command, _ []string) error {
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

		bc := ingestuc.BackfillConfig{
			Concurrency: a.cfg.Backfill.Concurrency,
			RatePerSec:  a.cfg.Backfill.RatePerSec,
			Burst:       a.cfg.Backfill.Burst,
		}
		if cmd.Flags().Changed("concurrency") {
			bc.Concurrency = backfillConcurrency
		}
		if cmd.Flags().Changed("rate") {
			bc.RatePerSec = backfillRate
		}

		report, err := a.ingest.Backfill(ctx, bc)
		fmt.Fprintf(cmd.OutOrStdout(), "updated=%d inserted=%d failed=%d\n",
			report.Updated, report.Inserted, report.Failed)
		if err != nil {
			return fmt.Errorf("backfill: %w", err)
		}
		return nil
	},
}

func init() {
	backfillCmd.Flags().IntVar(&backfillConcurrency, "concurrency", 0, "parallel objects (default: backfill.concurrency)")
	backfillCmd.Flags().Float64Var(&backfillRate, "rate", 0, "objects started per second, 0 for unlimited")
}
