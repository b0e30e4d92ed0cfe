// Package main provides the semknow binary: a semantic knowledge cache
// with vocabulary browsing and template-based inference over SPARQL
// endpoints.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/semknow/cache"
	"github.com/c360studio/semknow/config"
	"github.com/c360studio/semknow/endpoint"
	"github.com/c360studio/semknow/ingest"
	"github.com/c360studio/semknow/normalize"
	"github.com/c360studio/semknow/reason"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semknow"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &cliFlags{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Semantic knowledge cache and template reasoner",
		Long: `Semknow caches RDF vocabularies as canonical indexed documents and
applies inference templates against them.

It provides:
- Vocabulary ingestion (fetch, parse, normalize, cache)
- Endpoint resolution with builtin, override, and discovered entries
- In-memory browsing of cached vocabularies
- Template-based inference with per-endpoint vocabulary mappings`,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		ingestCmd(flags),
		resolveCmd(flags),
		entityCmd(flags),
		searchCmd(flags),
		subclassesCmd(flags),
		superclassesCmd(flags),
		graphCmd(flags),
		applyCmd(flags),
		templatesCmd(),
		annotateCmd(flags),
		statusCmd(flags),
		versionCmd(),
	)

	return cmd
}

// startApp loads configuration, configures logging, and starts the wired
// application. Callers must Shutdown the returned app.
func startApp(ctx context.Context, flags *cliFlags) (*App, error) {
	level := slog.LevelInfo
	switch strings.ToLower(flags.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	var cfg *config.Config
	var err error
	if flags.configPath != "" {
		cfg, err = config.LoadFromFile(flags.configPath)
		if err == nil {
			err = cfg.Validate()
		}
	} else {
		cfg, err = config.NewLoader(logger).Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	app := NewApp(cfg, logger)
	if err := app.Start(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// cacheName resolves the ingest cache name from the --name and --endpoint
// flags. --endpoint stores the document where the reasoner's discovery
// guardrail looks for it.
func cacheName(name, endpointName string) string {
	if endpointName != "" {
		return endpoint.VocabularyCacheName(endpointName)
	}
	return name
}

func ingestCmd(flags *cliFlags) *cobra.Command {
	var name string
	var endpointName string
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "ingest <url>",
		Short: "Fetch a vocabulary and cache it as a canonical document",
		Long: `Fetch an RDF document, normalize it, and cache the canonical form.

By default the cache name derives from the URL. Pass --endpoint <name> to
cache the document as that endpoint's vocabulary, which is where the apply
command's discovery guardrail expects to find it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && endpointName != "" {
				return fmt.Errorf("--name and --endpoint are mutually exclusive")
			}
			ctx := cmd.Context()
			app, err := startApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Shutdown(ctx)

			result := app.Ingester.Ingest(ctx, args[0], cacheName(name, endpointName), ttl)
			app.Metrics.RecordIngest(string(result.Code), result.Bytes)
			if err := printJSON(result); err != nil {
				return err
			}
			if result.Code != ingest.CodeOK {
				return fmt.Errorf("ingest failed: %s", result.Code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Cache name (default: derived from URL)")
	cmd.Flags().StringVar(&endpointName, "endpoint", "", "Cache as this endpoint's vocabulary (enables apply)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Entry TTL (default: config cache.default_ttl)")
	return cmd
}

func resolveCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <endpoint>",
		Short: "Resolve an endpoint name to its descriptor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := startApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Shutdown(ctx)

			desc, err := app.Registry.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(desc)
		},
	}
}

func entityCmd(flags *cliFlags) *cobra.Command {
	var endpointName string

	cmd := &cobra.Command{
		Use:   "entity <identifier>",
		Short: "Expand an identifier to a full entity IRI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := startApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Shutdown(ctx)

			name := endpointName
			if name == "" {
				name = endpoint.InferEndpoint(args[0])
				if name == "" {
					return fmt.Errorf("cannot infer endpoint for %q: pass --endpoint", args[0])
				}
			}

			iri, err := app.Registry.EntityURI(ctx, args[0], name)
			if err != nil {
				return err
			}
			fmt.Println(iri)
			return nil
		},
	}

	cmd.Flags().StringVar(&endpointName, "endpoint", "", "Endpoint name (default: inferred from identifier shape)")
	return cmd
}

func searchCmd(flags *cliFlags) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search cached vocabularies for classes and properties",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := startApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Shutdown(ctx)

			var termKind normalize.TermKind
			switch kind {
			case "":
			case "class":
				termKind = normalize.KindClass
			case "property":
				termKind = normalize.KindProperty
			default:
				return fmt.Errorf("invalid --kind %q: use class or property", kind)
			}

			hits, err := app.Navigator.Search(ctx, args[0], termKind)
			if err != nil {
				return err
			}
			return printJSON(hits)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Restrict matches to class or property")
	return cmd
}

func subclassesCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "subclasses <key> <class-iri>",
		Short: "List direct subclasses of a class in a cached document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := startApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Shutdown(ctx)

			classes, err := app.Navigator.SubclassesOf(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(classes)
		},
	}
}

func superclassesCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "superclasses <key> <class-iri>",
		Short: "List direct superclasses of a class in a cached document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := startApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Shutdown(ctx)

			classes, err := app.Navigator.SuperclassesOf(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printJSON(classes)
		},
	}
}

func graphCmd(flags *cliFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "graph <key>",
		Short: "Load the full canonical document cached under a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := startApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Shutdown(ctx)

			doc, err := app.Navigator.LoadGraph(ctx, args[0], force)
			if err != nil {
				return err
			}
			return printJSON(doc)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Load even when the document is marked unsafe")
	return cmd
}

func applyCmd(flags *cliFlags) *cobra.Command {
	var (
		focus    string
		limit    int
		persist  bool
		cacheKey string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "apply <template> <endpoint>",
		Short: "Apply an inference template against an endpoint's vocabulary",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := startApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Shutdown(ctx)

			start := time.Now()
			result := app.Reasoner.Apply(ctx, reason.Request{
				TemplateID: args[0],
				Endpoint:   args[1],
				Focus:      focus,
				Limit:      limit,
				Persist:    persist,
				CacheKey:   cacheKey,
				TTL:        ttl,
			})
			app.Metrics.RecordApplication(args[0], string(result.State), result.Count, time.Since(start))

			if err := printJSON(result); err != nil {
				return err
			}
			if result.State == reason.StateFailed {
				return fmt.Errorf("template application failed: %s", result.Failure.Code)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&focus, "focus", "", "Restrict the derivation to one IRI")
	cmd.Flags().IntVar(&limit, "limit", 0, "Cap the number of derived triples")
	cmd.Flags().BoolVar(&persist, "persist", false, "Write the derivation back into the cache")
	cmd.Flags().StringVar(&cacheKey, "key", "", "Persistence cache key (default: generated)")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "TTL for the persisted derivation")
	return cmd
}

func templatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List the inference template library",
		Run: func(cmd *cobra.Command, args []string) {
			for _, t := range reason.Templates() {
				fmt.Printf("%-28s confidence=%.1f  %s\n", t.ID, t.Confidence, t.Description)
			}
		},
	}
}

func annotateCmd(flags *cliFlags) *cobra.Command {
	var (
		semanticType string
		purpose      string
		domains      []string
		usage        string
	)

	cmd := &cobra.Command{
		Use:   "annotate <key>",
		Short: "Patch the semantic metadata of a cache entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := startApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Shutdown(ctx)

			patch := cache.MetadataPatch{Domains: domains}
			if semanticType != "" {
				st := cache.SemanticType(semanticType)
				if !st.IsValid() {
					return fmt.Errorf("invalid --type %q", semanticType)
				}
				patch.SemanticType = &st
			}
			if purpose != "" {
				patch.Purpose = &purpose
			}
			if usage != "" {
				patch.UsagePatterns = []string{usage}
			}

			updated, err := app.Store.UpdateMetadata(ctx, args[0], patch)
			if err != nil {
				return err
			}
			if !updated {
				return fmt.Errorf("no entry under %s", args[0])
			}
			fmt.Println("updated")
			return nil
		},
	}

	cmd.Flags().StringVar(&semanticType, "type", "", "Semantic type (vocabulary, serviceDescription, schema, unclassified)")
	cmd.Flags().StringVar(&purpose, "purpose", "", "Free-form purpose note")
	cmd.Flags().StringSliceVar(&domains, "domain", nil, "Knowledge domains (repeatable)")
	cmd.Flags().StringVar(&usage, "usage", "", "Usage pattern to append")
	return cmd
}

func statusCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize cached entries and resolvable endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := startApp(ctx, flags)
			if err != nil {
				return err
			}
			defer app.Shutdown(ctx)

			keys, err := app.Store.ListKeys(ctx, "**")
			if err != nil {
				return err
			}

			fmt.Printf("Cached entries: %d\n", len(keys))
			for _, st := range []cache.SemanticType{
				cache.TypeVocabulary, cache.TypeServiceDescription,
				cache.TypeSchema, cache.TypeUnclassified,
			} {
				entries, err := app.Store.ListBySemanticType(ctx, st)
				if err != nil {
					return err
				}
				if len(entries) > 0 {
					fmt.Printf("  %-20s %d\n", st, len(entries))
				}
			}
			fmt.Printf("Endpoints: %s\n", strings.Join(app.Registry.Names(), ", "))
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}
