// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/ledger-migrate/internal/extract"
	"github.com/pdiddy/ledger-migrate/internal/fluree"
	"github.com/pdiddy/ledger-migrate/internal/journal"
	"github.com/pdiddy/ledger-migrate/internal/output"
	"github.com/pdiddy/ledger-migrate/internal/prompt"
	"github.com/pdiddy/ledger-migrate/internal/schema"
	"github.com/pdiddy/ledger-migrate/internal/secrets"
	"github.com/pdiddy/ledger-migrate/internal/transform"
	"github.com/pdiddy/ledger-migrate/pkg/types"
)

const defaultUserAgent = "ledger-migrate/0.1"

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate a v2 ledger's schema and data to v3 JSON-LD",
	Long: `Migrate reads every user-defined predicate of the source ledger,
canonicalizes the schema, extracts every entity of every class, and
emits the vocabulary document followed by size-bounded data documents.

With no --output directory and no --target-url the documents print to
stdout. --output writes 0_vocab.jsonld and numbered N_data.jsonld files;
--target-url transacts them into a v3 ledger.`,
	RunE: runMigrate,
}

func init() {
	addSourceFlags(migrateCmd)
	addContextFlags(migrateCmd)

	migrateCmd.Flags().String("output", "", "directory for numbered .jsonld output files")
	migrateCmd.Flags().String("target-url", "", "v3 ledger endpoint to transact into")
	migrateCmd.Flags().String("target-authorization", "", "bearer credential for the target ledger")
	migrateCmd.Flags().Bool("create-ledger", false, "create the target ledger with the first submission")
	migrateCmd.Flags().Int("page-size", 0, "entity query page size (default 2000)")
	migrateCmd.Flags().Int("spill-threshold", 0, "buffered record count that forces a spill flush (default 12500)")
	migrateCmd.Flags().Int("concurrency", 0, "classes extracted in parallel (default 10)")
	migrateCmd.Flags().String("spill-dir", "spill", "temporary directory for spill files")
	migrateCmd.Flags().Int("flush-threshold", 0, "serialized bytes per output document (default 2500000)")
	migrateCmd.Flags().String("journal-dir", "journal", "directory for the run journal (empty disables it)")
	migrateCmd.Flags().Bool("yes", false, "never prompt; fail after bounded retries")

	rootCmd.AddCommand(migrateCmd)
}

// addSourceFlags registers the flags shared by migrate and vocab that
// identify the source ledger.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("url", "", "source ledger endpoint, e.g. http://localhost:8090/fdb/network/db")
	cmd.Flags().String("authorization", "", "bearer credential for the source ledger")
}

// addContextFlags registers the flags shared by migrate and vocab that
// shape the emitted JSON-LD.
func addContextFlags(cmd *cobra.Command) {
	cmd.Flags().String("base", "", "@base IRI override (default {url}/ids/)")
	cmd.Flags().String("vocab", "", "@vocab IRI override (default {url}/terms/)")
	cmd.Flags().StringSlice("context", nil, "extra prefix=IRI context entries (repeatable)")
	cmd.Flags().String("namespace", "", "prefix for generated class and property names (requires --context)")
	cmd.Flags().Bool("shacl", false, "emit SHACL node shapes in the vocabulary")
	cmd.Flags().Bool("closed-shapes", false, "mark emitted node shapes sh:closed")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := migrateConfigFromFlags(cmd)
	if err != nil {
		return err
	}
	return runMigration(cmd.Context(), cfg, os.Stderr, os.Stdout)
}

// migrateConfigFromFlags assembles the run configuration: flags win,
// then the viper config file, then built-in defaults.
func migrateConfigFromFlags(cmd *cobra.Command) (types.MigrateConfig, error) {
	var cfg types.MigrateConfig

	cfg.Source.URL = stringOpt(cmd, "url", "source.url")
	cfg.Source.Authorization = secretDefault(secrets.SourceAPIKey, stringOpt(cmd, "authorization", "source.authorization"))
	cfg.Source.UserAgent = defaultUserAgent

	cfg.Target.URL = stringOpt(cmd, "target-url", "target.url")
	cfg.Target.Authorization = secretDefault(secrets.TargetAPIKey, stringOpt(cmd, "target-authorization", "target.authorization"))
	cfg.Target.UserAgent = defaultUserAgent
	cfg.Target.CreateLedger, _ = cmd.Flags().GetBool("create-ledger")

	ctxCfg, err := contextConfigFromFlags(cmd)
	if err != nil {
		return cfg, err
	}
	cfg.Context = ctxCfg

	cfg.Extract.PageSize, _ = cmd.Flags().GetInt("page-size")
	cfg.Extract.SpillThreshold, _ = cmd.Flags().GetInt("spill-threshold")
	cfg.Extract.Concurrency, _ = cmd.Flags().GetInt("concurrency")
	cfg.Extract.SpillDir, _ = cmd.Flags().GetString("spill-dir")

	cfg.Output.Dir, _ = cmd.Flags().GetString("output")
	cfg.Output.FlushThreshold, _ = cmd.Flags().GetInt("flush-threshold")
	cfg.Output.Print = cfg.Output.Dir == "" && cfg.Target.URL == ""

	cfg.Journal.Dir, _ = cmd.Flags().GetString("journal-dir")
	cfg.Unattended, _ = cmd.Flags().GetBool("yes")

	if cfg.Output.Dir != "" && cfg.Target.URL != "" {
		return cfg, fmt.Errorf("--output and --target-url are mutually exclusive")
	}
	return cfg, nil
}

// contextConfigFromFlags assembles the JSON-LD context settings shared
// by migrate and vocab.
func contextConfigFromFlags(cmd *cobra.Command) (types.ContextConfig, error) {
	var cfg types.ContextConfig
	cfg.Base = stringOpt(cmd, "base", "context.base")
	cfg.Vocab = stringOpt(cmd, "vocab", "context.vocab")
	cfg.Namespace, _ = cmd.Flags().GetString("namespace")
	cfg.SHACL, _ = cmd.Flags().GetBool("shacl")
	cfg.ClosedShapes, _ = cmd.Flags().GetBool("closed-shapes")

	entries, _ := cmd.Flags().GetStringSlice("context")
	if len(entries) > 0 {
		cfg.Extra = make(map[string]string, len(entries))
		for _, entry := range entries {
			prefix, iri, ok := strings.Cut(entry, "=")
			if !ok || prefix == "" || iri == "" {
				return cfg, fmt.Errorf("invalid --context entry %q: expected prefix=IRI", entry)
			}
			cfg.Extra[prefix] = iri
		}
	}

	if cfg.Namespace != "" && len(cfg.Extra) == 0 {
		return cfg, fmt.Errorf("--namespace requires at least one --context entry defining the prefix")
	}
	return cfg, nil
}

// stringOpt resolves a string option: the flag when set, otherwise the
// config file value.
func stringOpt(cmd *cobra.Command, flag, key string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return viper.GetString(key)
}

// runMigration executes one full migration: schema, vocabulary,
// extraction, transformation, and the final flush.
func runMigration(ctx context.Context, cfg types.MigrateConfig, errw, outw io.Writer) error {
	prompter := interactivePrompter(cfg.Unattended, errw)

	source, registry, err := canonicalizeSource(ctx, &cfg, prompter, errw)
	if err != nil {
		return err
	}

	ledgerID, err := fluree.LedgerID(source.URL)
	if err != nil {
		return err
	}

	store, runID := openJournal(ctx, cfg.Journal, source.URL, ledgerID, errw)
	if store != nil {
		defer store.Close()
	}

	var target *fluree.Instance
	if cfg.Target.URL != "" {
		target = fluree.New(cfg.Target.URL, cfg.Target.Authorization, cfg.Target.HTTPConfig)
		target.Warnings = errw
		target.LedgerCreated = !cfg.Target.CreateLedger
	}

	sink, err := output.New(output.Config{
		Print:          cfg.Output.Print,
		Dir:            cfg.Output.Dir,
		Target:         target,
		Prompter:       prompter,
		LedgerID:       ledgerID,
		Context:        schema.Context(cfg.Context, source.URL, false),
		FlushThreshold: cfg.Output.FlushThreshold,
		Out:            errw,
		Stdout:         outw,
	})
	if err != nil {
		return err
	}

	createMode := target != nil && cfg.Target.CreateLedger
	vocabCtx := schema.Context(cfg.Context, source.URL, true)
	if err := sink.WriteVocab(ctx, registry.VocabDocument(ledgerID, vocabCtx, cfg.Context.SHACL, createMode)); err != nil {
		return err
	}

	reportConflicts(registry, errw)
	if store != nil {
		if err := store.RecordConflicts(ctx, runID, registry.Conflicts()); err != nil {
			fmt.Fprintf(errw, "warning: journal conflict write failed: %v\n", err)
		}
	}

	extractor := &extract.Extractor{
		Source:         source,
		SpillDir:       cfg.Extract.SpillDir,
		PageSize:       cfg.Extract.PageSize,
		SpillThreshold: cfg.Extract.SpillThreshold,
		Concurrency:    cfg.Extract.Concurrency,
		Out:            errw,
	}
	classes := registry.RawClassNames()
	if err := extractor.Run(ctx, classes); err != nil {
		finishJournal(ctx, store, runID, "failed", nil, errw)
		return err
	}
	stats := sortedStats(extractor.Stats())

	if store != nil {
		if err := store.RecordClasses(ctx, runID, stats); err != nil {
			fmt.Fprintf(errw, "warning: journal class write failed: %v\n", err)
		}
	}

	transformer := &transform.Transformer{Registry: registry, SpillDir: cfg.Extract.SpillDir, Out: errw}
	if err := transformer.Run(ctx, sink); err != nil {
		finishJournal(ctx, store, runID, "failed", stats, errw)
		return err
	}

	if err := sink.Close(ctx); err != nil {
		finishJournal(ctx, store, runID, "failed", stats, errw)
		return err
	}

	finishJournal(ctx, store, runID, "completed", stats, errw)

	records := 0
	for _, st := range stats {
		records += st.Records
	}
	fmt.Fprintf(errw, "%12s %d classes, %d records\n", "Finished", len(classes), records)
	return nil
}

// canonicalizeSource resolves the source URL (prompting when allowed),
// fetches the predicate schema through the connection state machine,
// and canonicalizes it. The returned instance carries any corrected
// URL or credential.
func canonicalizeSource(ctx context.Context, cfg *types.MigrateConfig, prompter prompt.Prompter, errw io.Writer) (*fluree.Instance, *schema.Registry, error) {
	if cfg.Source.URL == "" {
		if prompter == nil {
			return nil, nil, fmt.Errorf("no source URL: provide --url when running with --yes")
		}
		u, err := prompter.URL(prompt.DefaultURL)
		if err != nil {
			return nil, nil, err
		}
		cfg.Source.URL = u
	}

	source := fluree.New(cfg.Source.URL, cfg.Source.Authorization, cfg.Source.HTTPConfig)
	source.Warnings = errw

	session := &fluree.Session{Instance: source, Prompter: prompter, Out: errw}
	resp, err := session.Do(ctx, source.SchemaQuery)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	result, err := fluree.ParseSchemaResult(resp.Body)
	if err != nil {
		return nil, nil, err
	}

	prefix := ""
	if cfg.Context.Namespace != "" {
		prefix = cfg.Context.Namespace + ":"
	}
	registry := schema.NewRegistry(prefix, cfg.Context.ClosedShapes)
	if err := registry.Canonicalize(result.UserPredicates()); err != nil {
		return nil, nil, err
	}
	return source, registry, nil
}

// interactivePrompter returns a terminal prompter, or nil for
// unattended runs so every blocking state becomes fatal.
func interactivePrompter(unattended bool, errw io.Writer) prompt.Prompter {
	if unattended {
		return nil
	}
	return &prompt.Terminal{In: os.Stdin, Out: errw}
}

// reportConflicts echoes each datatype conflict on the status stream.
func reportConflicts(registry *schema.Registry, errw io.Writer) {
	for _, c := range registry.Conflicts() {
		fmt.Fprintf(errw, "warning: %s\n", c)
	}
}

// openJournal opens the run journal and begins a run. Journal failures
// warn and disable journaling rather than aborting the migration.
func openJournal(ctx context.Context, cfg types.JournalConfig, sourceURL, ledgerID string, errw io.Writer) (*journal.Store, string) {
	if cfg.Dir == "" {
		return nil, ""
	}
	store, err := journal.NewStore(cfg.Dir)
	if err != nil {
		fmt.Fprintf(errw, "warning: journal disabled: %v\n", err)
		return nil, ""
	}
	runID, err := store.BeginRun(ctx, sourceURL, ledgerID)
	if err != nil {
		fmt.Fprintf(errw, "warning: journal disabled: %v\n", err)
		store.Close()
		return nil, ""
	}
	return store, runID
}

// finishJournal closes out the journaled run and writes report.yaml.
func finishJournal(ctx context.Context, store *journal.Store, runID, status string, stats []extract.ClassStats, errw io.Writer) {
	if store == nil {
		return
	}
	records := 0
	for _, st := range stats {
		records += st.Records
	}
	if err := store.FinishRun(ctx, runID, status, len(stats), records); err != nil {
		fmt.Fprintf(errw, "warning: journal finish failed: %v\n", err)
		return
	}
	if err := store.ExportYAML(ctx, runID); err != nil {
		fmt.Fprintf(errw, "warning: journal report failed: %v\n", err)
	}
}

// sortedStats orders per-class stats by class name for stable output.
func sortedStats(byClass map[string]extract.ClassStats) []extract.ClassStats {
	out := make([]extract.ClassStats, 0, len(byClass))
	for _, st := range byClass {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Class < out[j].Class })
	return out
}
