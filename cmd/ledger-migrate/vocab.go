// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/ledger-migrate/internal/fluree"
	"github.com/pdiddy/ledger-migrate/internal/output"
	"github.com/pdiddy/ledger-migrate/internal/schema"
	"github.com/pdiddy/ledger-migrate/internal/secrets"
	"github.com/pdiddy/ledger-migrate/pkg/types"
)

var vocabCmd = &cobra.Command{
	Use:   "vocab",
	Short: "Convert only the source schema to a JSON-LD vocabulary",
	Long: `Vocab canonicalizes the source ledger's schema and emits the vocabulary
document without extracting any entity data. With --output it writes
0_vocab.jsonld; otherwise the document prints to stdout.`,
	RunE: runVocab,
}

func init() {
	addSourceFlags(vocabCmd)
	addContextFlags(vocabCmd)

	vocabCmd.Flags().String("output", "", "directory for the 0_vocab.jsonld file")
	vocabCmd.Flags().Bool("yes", false, "never prompt; fail after bounded retries")

	rootCmd.AddCommand(vocabCmd)
}

func runVocab(cmd *cobra.Command, args []string) error {
	var cfg types.MigrateConfig
	cfg.Source.URL = stringOpt(cmd, "url", "source.url")
	cfg.Source.Authorization = secretDefault(secrets.SourceAPIKey, stringOpt(cmd, "authorization", "source.authorization"))
	cfg.Source.UserAgent = defaultUserAgent

	ctxCfg, err := contextConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	cfg.Context = ctxCfg
	cfg.Output.Dir, _ = cmd.Flags().GetString("output")
	cfg.Output.Print = cfg.Output.Dir == ""
	cfg.Unattended, _ = cmd.Flags().GetBool("yes")

	return runVocabOnly(cmd.Context(), cfg, os.Stderr, os.Stdout)
}

// runVocabOnly fetches and canonicalizes the schema, then emits only
// the vocabulary document.
func runVocabOnly(ctx context.Context, cfg types.MigrateConfig, errw, outw io.Writer) error {
	prompter := interactivePrompter(cfg.Unattended, errw)

	source, registry, err := canonicalizeSource(ctx, &cfg, prompter, errw)
	if err != nil {
		return err
	}

	ledgerID, err := fluree.LedgerID(source.URL)
	if err != nil {
		return err
	}

	sink, err := output.New(output.Config{
		Print:    cfg.Output.Print,
		Dir:      cfg.Output.Dir,
		LedgerID: ledgerID,
		Context:  schema.Context(cfg.Context, source.URL, false),
		Out:      errw,
		Stdout:   outw,
	})
	if err != nil {
		return err
	}

	reportConflicts(registry, errw)

	vocabCtx := schema.Context(cfg.Context, source.URL, true)
	return sink.WriteVocab(ctx, registry.VocabDocument(ledgerID, vocabCtx, cfg.Context.SHACL, false))
}
