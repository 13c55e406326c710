package commands

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand_Subcommands(t *testing.T) {
	want := []string{"serve", "indexes", "ingest", "search", "backfill-ocr", "version"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered (%v)", name, err)
		}
	}

	cmd, _, err := rootCmd.Find([]string{"indexes", "ensure"})
	if err != nil || cmd.Name() != "ensure" {
		t.Errorf("indexes ensure not registered (%v)", err)
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "pixdex dev") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestIngestCommand_RequiresFiles(t *testing.T) {
	rootCmd.SetArgs([]string{"ingest"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected an error without file arguments")
	}
}
