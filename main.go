package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lexandro/fileorganizer-mcp/config"
	"github.com/lexandro/fileorganizer-mcp/display"
	"github.com/lexandro/fileorganizer-mcp/logging"
	"github.com/lexandro/fileorganizer-mcp/organizer"
	"github.com/lexandro/fileorganizer-mcp/register"
	"github.com/lexandro/fileorganizer-mcp/results"
	"github.com/lexandro/fileorganizer-mcp/server"
	"github.com/lexandro/fileorganizer-mcp/tools"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// globalFlags are shared by all commands.
type globalFlags struct {
	configFile string
	logLevel   string
	logFile    string
	noColor    bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "fileorganizer-mcp",
		Short: "Sort files into categories by extension",
		Long: `fileorganizer-mcp scans a directory tree and classifies every file into a
user-defined category by its extension. It runs as an MCP server on stdio by
default, or as a one-shot CLI with the scan and categories commands.`,
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "Config file (default: fileorganizer.yaml in . or $HOME/.config/fileorganizer)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "Log file path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "Disable colored output")

	serveCmd := newServeCmd(flags)
	rootCmd.AddCommand(serveCmd, newScanCmd(flags), newCategoriesCmd(flags), newRegisterCmd())
	// Without a subcommand the MCP server runs, as MCP clients launch the bare binary.
	rootCmd.RunE = serveCmd.RunE
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	return rootCmd
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configFile)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logFile != "" {
		cfg.Log.File = flags.logFile
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type serveFlags struct {
	root           string
	watch          bool
	syncInterval   time.Duration
	categoriesFile string
}

func newServeCmd(global *globalFlags) *cobra.Command {
	flags := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio (default)",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().StringVar(&flags.root, "root", "", "Directory to scan at startup")
	cmd.Flags().BoolVar(&flags.watch, "watch", true, "Follow filesystem changes below the latest scan root")
	cmd.Flags().DurationVar(&flags.syncInterval, "sync-interval", 0, "Re-check the latest scan root at this interval (0 disables)")
	cmd.Flags().StringVar(&flags.categoriesFile, "categories-file", "", "Load categories from and save changes to this YAML file")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context(), global, flags)
	}
	return cmd
}

func runServe(parent context.Context, global *globalFlags, flags *serveFlags) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}

	// Never log to stdout: it carries MCP stdio.
	logger, sink := logging.New(cfg.LogOptions())
	logger.WithFields(logrus.Fields{
		"config": cfg.File,
		"root":   flags.root,
		"watch":  flags.watch,
	}).Info("starting fileorganizer-mcp")

	startTime := time.Now()
	e, err := newEngine(cfg, logger, flags.categoriesFile)
	if err != nil {
		logger.WithError(err).Error("startup failed")
		return err
	}
	defer e.close()

	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go e.organizer.Run(ctx)

	onStarted := func(rootDir string) {
		if flags.watch {
			e.watch(ctx, rootDir)
		}
	}

	if flags.root != "" {
		summary, err := e.organizer.Scan(ctx, flags.root, organizer.ScanRequest{})
		if err != nil {
			logger.WithError(err).Warn("initial scan failed, continuing without results")
		} else {
			onStarted(summary.Root)
		}
	}

	if flags.syncInterval > 0 {
		go runPeriodicSync(ctx, flags.syncInterval, e.organizer, e.scanOptions(), e.ignoreFor,
			logging.Component(logger, "sync"))
	}

	toolLogger := logging.Component(logger, "tools")
	mcpServer := server.Setup(server.Handlers{
		Categories: &tools.CategoriesHandler{Organizer: e.organizer, SavePath: flags.categoriesFile, Logger: toolLogger},
		Scan:       &tools.ScanHandler{Organizer: e.organizer, OnStarted: onStarted, Logger: toolLogger},
		Query:      &tools.QueryHandler{Organizer: e.organizer, Columns: cfg.Columns, Logger: toolLogger},
		Search:     &tools.SearchHandler{Organizer: e.organizer, Columns: cfg.Columns, Logger: toolLogger},
		Status:     &tools.StatusHandler{Organizer: e.organizer, StartTime: startTime, Watching: e.watching, Logger: toolLogger},
		Export:     &tools.ExportHandler{Organizer: e.organizer, Logger: toolLogger},
		Logs:       &tools.LogsHandler{Sink: sink},
	})

	logger.Info("MCP server starting on stdio")
	if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		logger.WithError(err).Error("MCP server error")
		return err
	}
	return nil
}

type scanFlags struct {
	csv       bool
	category  string
	extension string
	glob      string
	columns   []string
}

func newScanCmd(global *globalFlags) *cobra.Command {
	flags := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "scan ROOT",
		Short: "Scan a directory and print the classified files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd.Context(), global, flags, args[0], cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&flags.csv, "csv", false, "Write CSV instead of a table")
	cmd.Flags().StringVar(&flags.category, "category", "", "Only files in this category")
	cmd.Flags().StringVar(&flags.extension, "extension", "", "Only files with this extension ('(none)' for none)")
	cmd.Flags().StringVar(&flags.glob, "glob", "", "Only files whose relative path matches this glob")
	cmd.Flags().StringSliceVar(&flags.columns, "columns", nil, "Table columns (default from config)")
	return cmd
}

func runScan(parent context.Context, global *globalFlags, flags *scanFlags, root string, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(global)
	if err != nil {
		return err
	}
	columns := cfg.Columns
	if len(flags.columns) > 0 {
		columns = flags.columns
	}
	for _, column := range columns {
		if !results.KnownColumn(column) {
			return fmt.Errorf("unknown column: %q", column)
		}
	}

	logger, sink := logging.New(cfg.LogOptions())
	if cfg.Log.File == "" {
		// The terminal gets the sink's warnings below instead of raw log lines.
		logger.SetOutput(io.Discard)
	}

	printer := display.NewPrinter(stdout, global.noColor)
	errPrinter := display.NewPrinter(stderr, global.noColor)
	records, unsubscribe := sink.Subscribe(256)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for record := range records {
			if level, err := logrus.ParseLevel(record.Level); err == nil && level <= logrus.WarnLevel {
				errPrinter.LogRecord(record)
			}
		}
	}()

	e, err := newEngine(cfg, logger, "")
	if err != nil {
		unsubscribe()
		<-printed
		return err
	}
	defer e.close()

	ctx, stop := signal.NotifyContext(contextOrBackground(parent), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := e.organizer.Scan(ctx, root, organizer.ScanRequest{})
	unsubscribe()
	<-printed
	if err != nil {
		return err
	}

	matched, err := e.organizer.Query(results.Filter{
		Category:  flags.category,
		Extension: flags.extension,
		Glob:      flags.glob,
	})
	if err != nil {
		return err
	}

	if flags.csv {
		return results.WriteCSV(stdout, matched)
	}

	printer.PrintTable(matched, columns)
	state := "scanned"
	if summary.Cancelled {
		state = "scan cancelled after"
	}
	printer.Println(fmt.Sprintf("%s %s files (%s) in %s, %d skipped",
		printer.Emphasis(state),
		humanize.Comma(summary.Files),
		humanize.IBytes(uint64(e.store.TotalSizeBytes())),
		summary.Duration.Round(time.Millisecond),
		summary.Warnings,
	))
	return nil
}

func newCategoriesCmd(global *globalFlags) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the configured categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(global)
			if err != nil {
				return err
			}
			e, err := newEngine(cfg, logging.Discard(), "")
			if err != nil {
				return err
			}
			defer e.close()

			cats := e.registry.List()
			if asYAML {
				return config.WriteCategories(cmd.OutOrStdout(), cats)
			}
			out := tools.FormatCategories(cats)
			_, err = io.WriteString(cmd.OutOrStdout(), strings.TrimRight(out, "\n")+"\n")
			return err
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print as a YAML config document")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "register project|user [DIR] [-- SERVER_ARGS...]",
		Short: "Add this server to an MCP client config",
		Long: `register writes an mcpServers entry for this binary. The project scope
writes DIR/.mcp.json (DIR defaults to the current directory), the user scope
writes ~/.claude.json. Arguments after -- are passed to the server.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, serverArgs := splitAtDash(cmd, args)
			if len(positional) == 0 || len(positional) > 2 {
				return fmt.Errorf("expected a scope and an optional directory before --")
			}
			options := register.Options{Scope: positional[0], ServerName: name, ServerArgs: serverArgs}
			if len(positional) > 1 {
				if options.Scope != register.ScopeProject {
					return fmt.Errorf("a directory is only accepted for the project scope")
				}
				options.Directory = positional[1]
			}

			path, err := register.Register(options)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered MCP server in %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Server name (default: derived from the binary name)")
	return cmd
}

// splitAtDash separates positional arguments from those given after "--".
func splitAtDash(cmd *cobra.Command, args []string) ([]string, []string) {
	dash := cmd.ArgsLenAtDash()
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}

func contextOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
