package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var indexWaitTimeout time.Duration

var indexesCmd = &cobra.Command{
	Use:   "indexes",
	Short: "Manage ANN indexes",
}

var indexesEnsureCmd = &cobra.Command{
	Use:   "ensure",
	Short: "Build missing ANN indexes and wait for completion",
	Long: `Build every missing ANN index (visual embedding and OCR text embedding)
in the background task and wait for it to finish. Existing indexes are left
untouched, so running this repeatedly is safe.

Examples:
  pixdex indexes ensure
  pixdex indexes ensure --timeout 30m`,
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

		started := time.Now()
		if !a.indexes.EnsureIndexes() {
			fmt.Fprintf(cmd.OutOrStdout(), "index build already %s\n", a.indexes.State())
		}

		waitCtx := ctx
		if indexWaitTimeout > 0 {
			var cancel context.CancelFunc
			waitCtx, cancel = context.WithTimeout(ctx, indexWaitTimeout)
			defer cancel()
		}
		if err := a.indexes.Wait(waitCtx); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexes %s in %s\n", a.indexes.State(), time.Since(started).Round(time.Millisecond))
		return nil
	},
}

func init() {
	indexesEnsureCmd.Flags().DurationVar(&indexWaitTimeout, "timeout", 0, "give up waiting after this long (0 waits forever)")
	indexesCmd.AddCommand(indexesEnsureCmd)
}
