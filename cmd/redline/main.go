// Package main is the entry point for the redline patch engine CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dshills/redline/internal/asset"
	"github.com/dshills/redline/internal/config"
	"github.com/dshills/redline/internal/event"
	"github.com/dshills/redline/internal/revision"
	"github.com/dshills/redline/internal/rewrite"
	"github.com/dshills/redline/internal/rewrite/anthropic"
	"github.com/dshills/redline/internal/rewrite/gemini"
	"github.com/dshills/redline/internal/rewrite/mock"
	"github.com/dshills/redline/internal/rewrite/openai"
	"github.com/dshills/redline/internal/session"
	"github.com/dshills/redline/internal/store/postgres"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	ConfigPath  string
	DocID       string
	PatchesPath string
	LogLevel    string
	Accept      bool
	Suggest     bool
}

// patchDef is one entry in the -patches JSON file. Span replacements carry
// start/end/instruction; asset inserts carry offset/description.
type patchDef struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Instruction string `json:"instruction"`
	Offset      int    `json:"offset"`
	Description string `json:"description"`
}

func (p patchDef) isAsset() bool {
	return p.Description != ""
}

func main() {
	os.Exit(run())
}

func run() int {
	opts, docPath := parseFlags()

	// Load API keys and overrides from .env when present.
	_ = godotenv.Load()

	logger, err := newLogger(opts.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	cfg := config.Default()
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := newStore(cfg.Storage)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open store: %v\n", err)
		return 1
	}
	defer closeStore()

	rewriter, err := newRewriter(ctx, cfg.Provider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create provider: %v\n", err)
		return 1
	}

	content, err := os.ReadFile(docPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	docID := opts.DocID
	if docID == "" {
		docID = filepath.Base(docPath)
	}

	sessOpts := []session.Option{
		session.WithLogger(logger),
		session.WithConfig(sessionConfig(cfg.Engine)),
	}
	if gen, assets, err := newAssets(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to set up assets: %v\n", err)
		return 1
	} else if gen != nil {
		sessOpts = append(sessOpts, session.WithAssets(gen, assets))
	}

	bus := event.NewBus()
	sess, err := openSession(ctx, docID, string(content), store, rewriter, bus, sessOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer sess.Close()

	if opts.Suggest {
		return runSuggest(ctx, sess)
	}

	if opts.PatchesPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -patches is required unless -suggest is set")
		return 1
	}
	return runBatch(ctx, sess, opts, docPath, logger)
}

// openSession resumes the document when the store already has revisions for
// it, seeding revision 1 otherwise.
func openSession(ctx context.Context, docID, content string, store revision.Store, rw rewrite.Rewriter, bus *event.Bus, opts ...session.Option) (*session.Session, error) {
	sess, err := session.Open(ctx, docID, store, rw, bus, opts...)
	if errors.Is(err, revision.ErrNotFound) {
		return session.Create(ctx, docID, content, store, rw, bus, opts...)
	}
	if err != nil {
		return nil, err
	}
	// The stored head wins over the file; report divergence instead of
	// silently clobbering either side.
	if sess.Text() != content {
		fmt.Fprintf(os.Stderr, "Warning: %s differs from stored revision %d; using stored text\n", docID, sess.Head().Seq)
	}
	return sess, nil
}

func runBatch(ctx context.Context, sess *session.Session, opts options, docPath string, logger *slog.Logger) int {
	defs, err := loadPatches(opts.PatchesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if len(defs) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no patches defined")
		return 1
	}

	for _, def := range defs {
		if def.isAsset() {
			_, err = sess.MarkAsset(def.Offset, def.Description)
		} else {
			_, err = sess.Mark(def.Start, def.End, def.Instruction)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: rejected patch: %v\n", err)
			return 1
		}
	}

	tx, stale, err := sess.Propose(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	for _, s := range stale {
		fmt.Fprintf(os.Stderr, "Warning: dropped stale request %s:\n%s\n", s.RequestID, s.Diff)
	}

	if err := tx.Run(ctx); err != nil {
		if discardErr := tx.Discard(context.Background()); discardErr != nil {
			logger.Warn("discard after failed run", "error", discardErr)
		}
		fmt.Fprintf(os.Stderr, "Error: batch aborted: %v\n", err)
		return 1
	}

	candidate, ok := tx.Candidate()
	if !ok {
		fmt.Fprintln(os.Stderr, "Error: batch produced no candidate")
		return 1
	}

	if !opts.Accept {
		fmt.Print(candidate)
		if err := tx.Discard(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	rev, err := tx.Accept(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if err := os.WriteFile(docPath, []byte(candidate), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: accepted as revision %d but writing %s failed: %v\n", rev.Seq, docPath, err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "Accepted revision %d (%d words, %d chars)\n", rev.Seq, rev.Meta.WordCount, rev.Meta.CharCount)
	return 0
}

func runSuggest(ctx context.Context, sess *session.Session) int {
	suggestions, err := sess.Suggest(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	for i, s := range suggestions {
		fmt.Printf("%d. %q\n   %s\n", i+1, s.Excerpt, s.Critique)
	}
	return 0
}

func loadPatches(path string) ([]patchDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading patches: %w", err)
	}
	var defs []patchDef
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return defs, nil
}

func sessionConfig(eng config.Engine) session.Config {
	cfg := session.Config{
		CheckpointDebounce: eng.CheckpointDebounce.Std(),
		ProximityThreshold: eng.ProximityThreshold,
	}
	cfg.Reconcile.ContextRadius = eng.ContextRadius
	cfg.Reconcile.FragmentTimeout = eng.FragmentTimeout.Std()
	return cfg
}

func newStore(cfg config.Storage) (revision.Store, func(), error) {
	switch cfg.Driver {
	case "postgres":
		store, err := postgres.New(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return revision.NewMemoryStore(), func() {}, nil
	}
}

func newRewriter(ctx context.Context, cfg config.Provider) (rewrite.Rewriter, error) {
	switch cfg.Name {
	case "anthropic":
		return anthropic.New(anthropic.Options{APIKeyEnv: cfg.APIKeyEnv, Model: cfg.Model})
	case "openai":
		return openai.New(openai.Options{APIKeyEnv: cfg.APIKeyEnv, Model: cfg.Model, ImageModel: cfg.ImageModel})
	case "gemini":
		return gemini.New(ctx, gemini.Options{APIKeyEnv: cfg.APIKeyEnv, Model: cfg.Model})
	default:
		return mock.NewRewriter(), nil
	}
}

// newAssets wires asset generation when the provider supports it. Only the
// openai client generates images; other providers run without asset support.
func newAssets(cfg config.Config) (rewrite.AssetGenerator, rewrite.AssetStore, error) {
	if cfg.Provider.Name == "mock" {
		return &mock.AssetGenerator{}, &mock.AssetStore{}, nil
	}
	if cfg.Provider.Name != "openai" {
		return nil, nil, nil
	}
	gen, err := openai.New(openai.Options{APIKeyEnv: cfg.Provider.APIKeyEnv, ImageModel: cfg.Provider.ImageModel})
	if err != nil {
		return nil, nil, err
	}
	store, err := asset.NewDirStore(cfg.Storage.AssetDir)
	if err != nil {
		return nil, nil, err
	}
	return gen, store, nil
}

func newLogger(level string) (*slog.Logger, error) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})), nil
}

func parseFlags() (options, string) {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.DocID, "doc", "", "Document ID (defaults to the file name)")
	flag.StringVar(&opts.PatchesPath, "patches", "", "Path to JSON patch definitions")
	flag.StringVar(&opts.PatchesPath, "p", "", "Path to JSON patch definitions (shorthand)")
	flag.StringVar(&opts.LogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	flag.BoolVar(&opts.Accept, "accept", false, "Accept the candidate and write it back to the file")
	flag.BoolVar(&opts.Suggest, "suggest", false, "Print rewrite suggestions instead of running patches")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Redline - offset-addressed document patch engine\n\n")
		fmt.Fprintf(os.Stderr, "Usage: redline [options] <document>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  redline -p patches.json draft.md            Preview the rewritten candidate\n")
		fmt.Fprintf(os.Stderr, "  redline -p patches.json -accept draft.md    Apply and store a new revision\n")
		fmt.Fprintf(os.Stderr, "  redline -suggest draft.md                   Ask the provider for rewrite suggestions\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Redline %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	return opts, flag.Arg(0)
}
