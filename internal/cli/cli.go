// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gitlab.com/tozd/go/errors"

	"github.com/mcdonaldj/epubtidy/internal/adapters/osfs"
	"github.com/mcdonaldj/epubtidy/internal/adapters/ziparchiver"
	"github.com/mcdonaldj/epubtidy/internal/config"
	"github.com/mcdonaldj/epubtidy/internal/cssrule"
	"github.com/mcdonaldj/epubtidy/internal/discovery"
	"github.com/mcdonaldj/epubtidy/internal/inspect"
	"github.com/mcdonaldj/epubtidy/internal/journal"
	"github.com/mcdonaldj/epubtidy/internal/logging"
	"github.com/mcdonaldj/epubtidy/internal/tidy"
)

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
	ConfigPath() (string, error)
	DefaultConfig() (*config.Config, error)
}

// TidyService provides book operations for the CLI.
type TidyService interface {
	ListBooks(cfg *config.Config, dir string) ([]discovery.Book, error)
	Clean(cfg *config.Config, books []string, dryRun bool) ([]tidy.Result, error)
	Inspect(book string) (inspect.Report, error)
	History(cfg *config.Config) (*journal.Journal, error)
}

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// UI launches the interactive interface; nil disables the ui command.
	UI func() error

	// Injectable dependencies (nil means use defaults)
	ConfigSvc ConfigService
	TidySvc   TidyService

	// Flags
	configFile string
	logLevel   string
	dryRun     bool

	log zerolog.Logger

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		log:     zerolog.Nop(),
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		gray:    color.New(color.FgHiBlack).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	return &CLI{
		Out:     out,
		Err:     errOut,
		Version: "test",
		Args:    args,
		Exit:    func(code int) {},
		log:     zerolog.Nop(),
		green:   noColor,
		yellow:  noColor,
		cyan:    noColor,
		gray:    noColor,
		red:     noColor,
	}
}

// defaultConfigService wraps the config package functions. A non-empty path
// replaces the default config location.
type defaultConfigService struct {
	path string
}

func (d *defaultConfigService) Load() (*config.Config, error) {
	if d.path != "" {
		return config.LoadFrom(d.path)
	}
	return config.Load()
}

func (d *defaultConfigService) Save(cfg *config.Config) error {
	if d.path != "" {
		return cfg.SaveTo(d.path)
	}
	return cfg.Save()
}

func (d *defaultConfigService) ConfigPath() (string, error) {
	if d.path != "" {
		return d.path, nil
	}
	return config.ConfigPath()
}

func (d *defaultConfigService) DefaultConfig() (*config.Config, error) { return config.DefaultConfig() }

// defaultTidyService wires the production adapters.
type defaultTidyService struct {
	log zerolog.Logger
}

func (d *defaultTidyService) ListBooks(cfg *config.Config, dir string) ([]discovery.Book, error) {
	return discovery.ListBooks(osfs.New(), dir, discovery.Options{
		Exclude: cfg.Exclude,
		Skip:    []string{discovery.SelfName()},
	})
}

func (d *defaultTidyService) Clean(cfg *config.Config, books []string, dryRun bool) ([]tidy.Result, error) {
	svc, err := tidy.NewDefaultService(cfg,
		tidy.WithLogger(d.log),
		tidy.WithDryRun(dryRun),
		tidy.WithCapture(dryRun),
	)
	if err != nil {
		return nil, err
	}
	return svc.Run(books), nil
}

func (d *defaultTidyService) Inspect(book string) (inspect.Report, error) {
	return inspect.Inspect(ziparchiver.New(), book)
}

func (d *defaultTidyService) History(cfg *config.Config) (*journal.Journal, error) {
	path := cfg.Journal.Path
	if path == "" {
		path = tidy.DefaultJournalPath
	}
	path, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	return journal.Load(path)
}

// Helper methods to get the service or default
func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return &defaultConfigService{path: c.configFile}
}

func (c *CLI) tidySvc() TidyService {
	if c.TidySvc != nil {
		return c.TidySvc
	}
	return &defaultTidyService{log: c.log}
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run() {
	root := c.rootCommand()
	if len(c.Args) > 1 {
		root.SetArgs(c.Args[1:])
	} else {
		root.SetArgs([]string{})
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
	}
}

func (c *CLI) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "epubtidy",
		Short: "Strip unwanted CSS from EPUB books in place",
		Long: `epubtidy rewrites the stylesheets inside EPUB books and replaces each
book atomically. A book is only ever replaced by a single rename of a fully
written copy; on any failure the original is left untouched.

Config: ~/.epubtidy/config.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.UI == nil {
				return cmd.Help()
			}
			return c.UI()
		},
	}
	root.Version = c.Version
	root.SetVersionTemplate("epubtidy v{{.Version}}\n")
	root.SetOut(c.Out)
	root.SetErr(c.Err)

	c.addGlobalFlags(root.PersistentFlags())

	run := &cobra.Command{
		Use:   "run [dir]",
		Short: "Clean every book in a directory (default book_dir)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return c.RunDir(dir)
		},
	}
	c.addDryRunFlag(run.Flags())

	clean := &cobra.Command{
		Use:   "clean <book>...",
		Short: "Clean the given books",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.CleanBooks(args)
		},
	}
	c.addDryRunFlag(clean.Flags())

	root.AddCommand(
		run,
		clean,
		&cobra.Command{
			Use:   "diff <book>",
			Short: "Show what cleaning a book would change",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return c.ShowDiff(args[0]) },
		},
		&cobra.Command{
			Use:   "verify <book>",
			Short: "Check a book's container layout",
			Args:  cobra.ExactArgs(1),
			RunE:  func(cmd *cobra.Command, args []string) error { return c.RunVerify(args[0]) },
		},
		&cobra.Command{
			Use:   "history [book]",
			Short: "List processed books from the journal",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				book := ""
				if len(args) == 1 {
					book = args[0]
				}
				return c.ShowHistory(book)
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create default config file",
			Args:  cobra.NoArgs,
			RunE:  func(cmd *cobra.Command, args []string) error { return c.InitConfig() },
		},
		&cobra.Command{
			Use:   "ui",
			Short: "Launch interactive TUI",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				if c.UI == nil {
					return errors.New("interactive UI not available")
				}
				return c.UI()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(c.Out, "epubtidy v%s\n", c.Version)
			},
		},
	)
	return root
}

func (c *CLI) addGlobalFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&c.configFile, "config", "c", "", "config file path (default ~/.epubtidy/config.yaml)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")
}

func (c *CLI) addDryRunFlag(fs *pflag.FlagSet) {
	fs.BoolVarP(&c.dryRun, "dry-run", "n", false, "report what would change without replacing books")
}

// loadConfig loads the config and builds the logger from it.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := c.configSvc().Load()
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}

	level := cfg.LogLevel
	if c.logLevel != "" {
		level = c.logLevel
	}
	log, err := logging.New(c.Err, level)
	if err != nil {
		return nil, err
	}
	c.log = log
	return cfg, nil
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig() error {
	svc := c.configSvc()
	cfg, err := svc.DefaultConfig()
	if err != nil {
		return err
	}
	if err := svc.Save(cfg); err != nil {
		return errors.Errorf("saving config: %w", err)
	}
	path, err := svc.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Created config at %s\n", path)
	return nil
}

// RunDir cleans every book in dir, or in the configured book_dir when dir
// is empty.
func (c *CLI) RunDir(dir string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if dir == "" {
		dir = cfg.BookDir
	}
	// Absolute paths keep journal keys identical to the ones clean records.
	dir, err = absPath(dir)
	if err != nil {
		return err
	}

	svc := c.tidySvc()
	books, err := svc.ListBooks(cfg, dir)
	if err != nil {
		return err
	}
	if len(books) == 0 {
		fmt.Fprintf(c.Out, "No books found in %s\n", dir)
		return nil
	}

	fmt.Fprintf(c.Out, "%s Processing %d books in %s...\n", c.cyan("=>"), len(books), dir)
	c.printRule(cfg)
	results, err := svc.Clean(cfg, discovery.Paths(books), c.dryRun)
	if err != nil {
		return err
	}
	return c.report(results)
}

// CleanBooks cleans the named books.
func (c *CLI) CleanBooks(books []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}

	paths := make([]string, len(books))
	for i, b := range books {
		if paths[i], err = absPath(b); err != nil {
			return err
		}
	}

	fmt.Fprintf(c.Out, "%s Processing %d books...\n", c.cyan("=>"), len(paths))
	c.printRule(cfg)
	results, err := c.tidySvc().Clean(cfg, paths, c.dryRun)
	if err != nil {
		return err
	}
	return c.report(results)
}

// printRule lists the declarations being removed. An invalid rule prints
// nothing; building the service reports it.
func (c *CLI) printRule(cfg *config.Config) {
	rule, err := cssrule.New(cfg.Properties, cfg.Declarations)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Out, "   removing: %s\n", c.gray(rule.Describe()))
}

// report prints one line per book and the batch summary. It returns an
// error when any book failed so the process exits non-zero.
func (c *CLI) report(results []tidy.Result) error {
	fmt.Fprintln(c.Out)
	for _, r := range results {
		name := filepath.Base(r.Book)
		switch {
		case r.Err != nil:
			fmt.Fprintf(c.Out, "  %s %s: %v\n", c.red("x"), name, r.Err)
		case len(r.Rewritten) > 0:
			verb := "rewritten"
			if r.DryRun {
				verb = "would be rewritten"
			}
			fmt.Fprintf(c.Out, "  %s %s %s\n", c.green("*"), name,
				c.yellow(fmt.Sprintf("%d %s %s", len(r.Rewritten), plural(len(r.Rewritten), "entry", "entries"), verb)))
		default:
			fmt.Fprintf(c.Out, "  %s %s %s\n", c.gray("-"), c.gray(name), c.gray("("+r.Outcome.String()+")"))
		}
		for _, f := range r.Failures {
			fmt.Fprintf(c.Out, "      %s %s\n", c.yellow("!"), f.Error())
		}
		for _, w := range r.Warnings {
			fmt.Fprintf(c.Out, "      %s %s\n", c.yellow("!"), w)
		}
	}

	sum := tidy.Summarize(results)
	fmt.Fprintln(c.Out)
	fmt.Fprintf(c.Out, "Done: %s attempted, %s succeeded (%s changed)",
		fmt.Sprintf("%d", sum.Attempted),
		c.green(fmt.Sprintf("%d", sum.Succeeded)),
		c.yellow(fmt.Sprintf("%d", sum.Changed)))
	if sum.Failed > 0 {
		fmt.Fprintf(c.Out, ", %s failed", c.red(fmt.Sprintf("%d", sum.Failed)))
	}
	fmt.Fprintln(c.Out)

	if sum.Failed > 0 {
		return errors.Errorf("%d of %d books failed", sum.Failed, sum.Attempted)
	}
	return nil
}

// ShowDiff prints the changes cleaning book would make, without replacing it.
func (c *CLI) ShowDiff(book string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	path, err := absPath(book)
	if err != nil {
		return err
	}

	results, err := c.tidySvc().Clean(cfg, []string{path}, true)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return errors.Errorf("no result for %s", book)
	}
	r := results[0]
	if r.Err != nil {
		return r.Err
	}
	if len(r.Changes) == 0 {
		fmt.Fprintf(c.Out, "No changes for %s (%s)\n", filepath.Base(path), r.Outcome)
		return nil
	}

	printDiff(c, r.Changes)
	fmt.Fprintf(c.Out, "%d %s would change\n", len(r.Changes), plural(len(r.Changes), "entry", "entries"))
	return nil
}

// RunVerify checks a book's container layout.
func (c *CLI) RunVerify(book string) error {
	report, err := c.tidySvc().Inspect(book)
	if err != nil {
		return errors.Errorf("verification failed: %w", err)
	}

	fmt.Fprintf(c.Out, "%s\n", c.cyan(filepath.Base(book)))
	fmt.Fprintf(c.Out, "  Entries:  %d (%d files)\n", len(report.Entries), report.Files())
	fmt.Fprintf(c.Out, "  Mimetype: %s\n", c.yesNo(report.MimetypeFirst && report.MimetypeStored, "first, stored", "misplaced"))
	if report.OPFPath != "" {
		fmt.Fprintf(c.Out, "  Package:  %s\n", report.OPFPath)
	}

	if !report.OK() {
		for _, p := range report.Problems {
			fmt.Fprintf(c.Out, "  %s %s\n", c.red("x"), p)
		}
		return errors.Errorf("%d %s found", len(report.Problems), plural(len(report.Problems), "problem", "problems"))
	}
	fmt.Fprintf(c.Out, "%s Container verified\n", c.green("*"))
	return nil
}

// ShowHistory lists journal entries, newest last. An empty book lists all.
func (c *CLI) ShowHistory(book string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if book != "" {
		if book, err = absPath(book); err != nil {
			return err
		}
	}

	j, err := c.tidySvc().History(cfg)
	if err != nil {
		return err
	}
	entries := j.ForBook(book)
	if len(entries) == 0 {
		fmt.Fprintln(c.Out, "No history found")
		return nil
	}

	fmt.Fprintf(c.Out, "  %-19s %-10s %9s  %s\n", "TIME", "OUTCOME", "REWRITTEN", "BOOK")
	fmt.Fprintf(c.Out, "  %-19s %-10s %9s  %s\n", "----", "-------", "---------", "----")
	for _, e := range entries {
		outcome := fmt.Sprintf("%-10s", e.Outcome)
		switch e.Outcome {
		case "failed":
			outcome = c.red(outcome)
		case "changed":
			outcome = c.green(outcome)
		default:
			outcome = c.gray(outcome)
		}
		fmt.Fprintf(c.Out, "  %-19s %s %9d  %s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			outcome,
			len(e.Rewritten),
			filepath.Base(e.Book))
		if e.Error != "" {
			fmt.Fprintf(c.Out, "      %s\n", c.gray(e.Error))
		}
	}
	return nil
}

func (c *CLI) yesNo(ok bool, yes, no string) string {
	if ok {
		return c.green(yes)
	}
	return c.red(no)
}

func absPath(path string) (string, error) {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", errors.Errorf("resolving %s: %w", path, err)
	}
	return abs, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	return prefix + strings.ReplaceAll(s, "\n", "\n"+prefix)
}
