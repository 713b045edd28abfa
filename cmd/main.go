// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"archivist/internal/batch"
	"archivist/internal/catalog"
	"archivist/internal/config"
	"archivist/internal/extraction"
	"archivist/internal/formatters"
	_ "archivist/internal/formatters/csv"
	_ "archivist/internal/formatters/json"
	_ "archivist/internal/formatters/table"
	_ "archivist/internal/formatters/text"
	_ "archivist/internal/formatters/xlsx"
	_ "archivist/internal/formatters/yaml"
	"archivist/internal/help"
	"archivist/internal/logging"
	"archivist/internal/observability"
	"archivist/internal/parallel"
	"archivist/internal/rules"
	"archivist/internal/textsource"
	"archivist/internal/version"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// Exit codes.
const (
	exitOK        = 0
	exitError     = 1
	exitNoArchive = 2
)

// options holds the resolved settings: built-in defaults, then the config
// file, then the profile, then explicit flags.
type options struct {
	metadataFile string
	textFile     string
	dir          string
	resultsDir   string
	outputFile   string
	format       string
	template     string
	policyFile   string
	workers      int
	maxDepth     int
	timeout      time.Duration
	watch        bool
	verbose      bool
	debug        bool
	noColor      bool
	quiet        bool
	metricsFile  string
	catalog      catalog.Config
	listRuns     bool
	exportRun    string
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// run parses args and executes one mode, returning the process exit code.
func run(args []string) int {
	fs := flag.NewFlagSet("archivist", flag.ContinueOnError)
	metadataFile := fs.String("metadata", "", "Path to the extractor response for one record")
	textFile := fs.String("text", "", "Path to the recognized text of that record (.txt, .md or .pdf)")
	dir := fs.String("dir", "", "Folder of archive folders to process in batch")
	resultsDir := fs.String("results-dir", "", "Folder for per-archive result files and the batch summary")
	outputFile := fs.String("output", "", "Path to export file (if not specified, output to stdout)")
	configFile := fs.String("config", "", "Path to configuration file (YAML)")
	profileName := fs.String("profile", "", "Profile name to use from config file")
	listProfiles := fs.Bool("list-profiles", false, "List available profiles in config file")
	listTemplates := fs.Bool("list-templates", false, "List header templates")
	outputFormat := fs.String("format", "", "Export format: "+strings.Join(formatters.List(), ", ")+" (default: text)")
	templateName := fs.String("template", "", "Header template naming the exported fields")
	policyFile := fs.String("policy", "", "YAML file overriding keyword and code tables")
	workers := fs.Int("workers", 0, "Parallel archives in batch mode (default: CPU count, at most 8)")
	maxDepth := fs.Int("max-depth", 0, "How deep to look for archive folders (default: 2)")
	watch := fs.Bool("watch", false, "Keep running and reprocess archives whose files change")
	verbose := fs.Bool("verbose", false, "Include every rule decision in the output")
	debug := fs.Bool("debug", false, "Trace pipeline stages and timings on stderr")
	noColor := fs.Bool("no-color", false, "Disable colored output")
	quiet := fs.Bool("quiet", false, "Suppress progress output")
	metricsFile := fs.String("metrics-file", "", "Write batch metrics in Prometheus text format")
	catalogDSN := fs.String("catalog-dsn", "", "Store batch results in this SQLite file or PostgreSQL database")
	catalogDriver := fs.String("catalog-driver", "", "Catalog driver: sqlite3 or postgres")
	listRuns := fs.Bool("runs", false, "List batch runs stored in the catalog")
	exportRun := fs.String("export-run", "", "Export the records of a stored run")
	showVersion := fs.Bool("version", false, "Show version information")
	showHelp := fs.Bool("help", false, "Show help information")
	fs.Usage = func() {
		help.NewSystem(os.Stderr, nil, !isTerminal(os.Stderr)).ShowGeneralHelp()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	if *showVersion {
		fmt.Println(version.Info())
		return exitOK
	}

	if !isTerminal(os.Stdout) || *noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	cfg, err := loadConfiguration(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	if *listProfiles {
		printProfiles(cfg)
		return exitOK
	}
	if *listTemplates {
		printTemplates(cfg.Templates())
		return exitOK
	}

	if *profileName != "" {
		if err := cfg.ApplyProfile(*profileName); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitError
		}
	}

	set := explicitFlags(fs)
	opts := options{
		metadataFile: *metadataFile,
		textFile:     *textFile,
		dir:          *dir,
		resultsDir:   *resultsDir,
		outputFile:   *outputFile,
		format:       pick(set["format"], *outputFormat, cfg.Defaults.Format),
		template:     pick(set["template"], *templateName, cfg.Defaults.Template),
		policyFile:   pick(set["policy"], *policyFile, cfg.Rules.PolicyFile),
		workers:      pick(set["workers"], *workers, cfg.Defaults.Workers),
		maxDepth:     pick(set["max-depth"], *maxDepth, cfg.Defaults.MaxDepth),
		timeout:      cfg.Defaults.Timeout,
		watch:        *watch,
		verbose:      pick(set["verbose"], *verbose, cfg.Defaults.Verbose),
		debug:        pick(set["debug"], *debug, cfg.Defaults.Debug),
		noColor:      color.NoColor || cfg.Defaults.NoColor,
		quiet:        pick(set["quiet"], *quiet, cfg.Defaults.Quiet),
		metricsFile:  pick(set["metrics-file"], *metricsFile, cfg.Metrics.File),
		catalog: catalog.Config{
			Driver: pick(set["catalog-driver"], *catalogDriver, cfg.Catalog.Driver),
			DSN:    pick(set["catalog-dsn"], *catalogDSN, cfg.Catalog.DSN),
		},
		listRuns:  *listRuns,
		exportRun: *exportRun,
	}
	if opts.noColor {
		color.NoColor = true
	}
	cfg.Rules.PolicyFile = opts.policyFile

	tables, err := cfg.PolicyTables()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	if *showHelp {
		h := help.NewSystem(os.Stdout, tables, opts.noColor)
		switch topic := fs.Arg(0); {
		case topic == "":
			h.ShowGeneralHelp()
		case topic == "rules":
			h.ShowRulesHelp()
		default:
			if !h.ShowRuleHelp(topic) {
				return exitError
			}
		}
		return exitOK
	}

	if _, ok := formatters.Get(opts.format); !ok {
		fmt.Fprintf(os.Stderr, "Error: unsupported format '%s'. Available formats: %s\n", opts.format, strings.Join(formatters.List(), ", "))
		return exitError
	}
	if formatters.GetFormatInfo(opts.format).Binary && opts.outputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: %s output needs -output\n", opts.format)
		return exitError
	}
	fields, err := cfg.Templates().Headers(opts.template)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}

	logCfg := cfg.Logging
	if opts.debug {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	defer func() { _ = logger.Sync() }()

	var observer *observability.StandardObserver
	if opts.debug {
		debugObs := observability.NewDebugObserver(os.Stderr)
		debugObs.LogDetail("main", fmt.Sprintf("Command line arguments: %v", os.Args))
		debugObs.LogDetail("main", fmt.Sprintf("Format %s, template %s (%d fields)", opts.format, opts.template, len(fields)))
		observer = debugObs.StandardObserver
	}

	engine := rules.New(tables, rules.WithLogger(logger), rules.WithObserver(observer))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exportOpts := formatters.FormatterOptions{
		Fields:  fields,
		Verbose: opts.verbose,
		NoColor: opts.noColor,
	}

	switch {
	case opts.listRuns || opts.exportRun != "":
		err = runCatalog(ctx, logger, opts, exportOpts)
	case opts.metadataFile != "":
		err = runSingle(engine, opts, exportOpts)
	case opts.dir != "":
		var code int
		code, err = runBatch(ctx, engine, logger, observer, cfg, opts, exportOpts)
		if err == nil && code != exitOK {
			return code
		}
	default:
		fs.Usage()
		return exitError
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "Interrupted.")
			return exitError
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

// runSingle corrects one record read from disk.
func runSingle(engine *rules.Engine, opts options, exportOpts formatters.FormatterOptions) error {
	data, err := os.ReadFile(filepath.Clean(opts.metadataFile))
	if err != nil {
		return fmt.Errorf("error reading metadata file: %w", err)
	}
	rec, method, err := extraction.Parse(string(data))
	if err != nil {
		return fmt.Errorf("error parsing metadata file %s: %w", opts.metadataFile, err)
	}
	if method != extraction.MethodStrict && !opts.quiet {
		fmt.Fprintf(os.Stderr, "Note: metadata was not valid JSON, recovered with %s parsing\n", method)
	}

	text := ""
	if opts.textFile != "" {
		doc, err := textsource.Read(opts.textFile)
		if err != nil {
			return fmt.Errorf("error reading text file: %w", err)
		}
		text = doc.Text
	}

	corrected, report := engine.Apply(rec, text)
	item := formatters.Item{
		Name:   filepath.Base(opts.metadataFile),
		Status: string(batch.StatusSuccess),
		Record: corrected,
		Report: report,
	}
	return export(opts, exportOpts, []formatters.Item{item})
}

// runBatch processes a folder of archives once, or keeps watching it.
func runBatch(ctx context.Context, engine *rules.Engine, logger logging.Logger, observer *observability.StandardObserver,
	cfg *config.Config, opts options, exportOpts formatters.FormatterOptions) (int, error) {
	metrics := batch.NewMetrics()
	procOpts := []batch.Option{
		batch.WithLogger(logger),
		batch.WithObserver(observer),
		batch.WithMetrics(metrics),
		batch.WithWorkers(opts.workers),
		batch.WithTimeout(opts.timeout),
	}

	if opts.catalog.Enabled() {
		store, err := catalog.Open(ctx, opts.catalog, catalog.WithLogger(logger))
		if err != nil {
			return exitError, err
		}
		defer func() { _ = store.Close() }()
		procOpts = append(procOpts, batch.WithSink(store))
	}
	processor := batch.NewProcessor(engine, procOpts...)

	report := func(summary *batch.Summary) {
		if !opts.quiet {
			printSummary(summary)
		}
		if opts.metricsFile != "" {
			if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
				logger.Warn("failed to write metrics", logging.Error(err))
			}
		}
		if err := export(opts, exportOpts, items(summary)); err != nil {
			logger.Error("export failed", logging.Error(err))
		}
	}

	if opts.watch {
		if !opts.quiet {
			fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", opts.dir)
		}
		err := processor.Watch(ctx, opts.dir, batch.WatchOptions{
			MaxDepth:  opts.maxDepth,
			OutputDir: opts.resultsDir,
			Debounce:  cfg.Watch.Debounce,
			OnRun:     report,
		})
		return exitOK, err
	}

	archives, err := batch.Scan(opts.dir, opts.maxDepth)
	if err != nil {
		return exitError, err
	}
	if len(archives) == 0 {
		if !opts.quiet {
			fmt.Fprintf(os.Stderr, "No archive folders found under %s\n", opts.dir)
		}
		return exitNoArchive, nil
	}
	if !opts.quiet {
		workers := opts.workers
		if workers <= 0 {
			workers = parallel.DefaultWorkers()
		}
		fmt.Fprintf(os.Stderr, "Processing %d archives with %d workers\n", len(archives), workers)
	}

	summary, runErr := processor.Run(ctx, archives, opts.resultsDir)
	if summary == nil {
		return exitError, runErr
	}
	report(summary)
	if summary.FailCount > 0 {
		return exitError, runErr
	}
	return exitOK, runErr
}

// runCatalog lists stored runs or exports one of them.
func runCatalog(ctx context.Context, logger logging.Logger, opts options, exportOpts formatters.FormatterOptions) error {
	if !opts.catalog.Enabled() {
		return errors.New("no catalog configured; set -catalog-dsn or catalog.dsn")
	}
	store, err := catalog.Open(ctx, opts.catalog, catalog.WithLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if opts.listRuns {
		runs, err := store.Runs(ctx)
		if err != nil {
			return err
		}
		printRuns(runs)
		return nil
	}

	entries, err := store.Entries(ctx, opts.exportRun)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("run %s not found in catalog", opts.exportRun)
	}
	out := make([]formatters.Item, 0, len(entries))
	for _, e := range entries {
		item := formatters.Item{Name: e.ArchiveName, Status: e.Status, Error: e.Error}
		if rec, err := e.Record(); err == nil && len(rec) > 0 {
			item.Record = rec
		}
		out = append(out, item)
	}
	return export(opts, exportOpts, out)
}

// items converts a batch summary for export.
func items(summary *batch.Summary) []formatters.Item {
	out := make([]formatters.Item, 0, len(summary.Results))
	for _, r := range summary.Results {
		item := formatters.Item{
			Name:   r.Name,
			Status: string(r.Status),
			Error:  r.Error,
			Report: r.Report,
		}
		if r.OK() {
			item.Record = r.Metadata
		}
		out = append(out, item)
	}
	return out
}

// export renders items and writes them to the output file or stdout.
func export(opts options, exportOpts formatters.FormatterOptions, list []formatters.Item) error {
	data, err := formatters.Export(opts.format, list, exportOpts)
	if err != nil {
		return err
	}
	if opts.outputFile == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(opts.outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(opts.outputFile, data, 0600); err != nil {
		return fmt.Errorf("error writing output file: %w", err)
	}
	if !opts.quiet {
		fmt.Fprintf(os.Stderr, "Exported %d records to %s\n", len(formatters.Exportable(list)), opts.outputFile)
	}
	return nil
}

func loadConfiguration(configFile string) (*config.Config, error) {
	configPath := configFile
	if configPath == "" {
		configPath = config.FindConfigFile()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if configFile != "" {
			return nil, err
		}
		fmt.Fprintf(os.Stderr, "Warning: ignoring %s: %v\n", configPath, err)
		return config.Default(), nil
	}
	return cfg, nil
}

// explicitFlags returns the names of flags given on the command line.
func explicitFlags(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

// pick returns the flag value when the flag was given, else the configured one.
func pick[T any](explicit bool, flagValue, configured T) T {
	if explicit {
		return flagValue
	}
	return configured
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
