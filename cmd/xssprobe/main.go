package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/PentesterFlow/xssprobe/internal/catalog"
	"github.com/PentesterFlow/xssprobe/internal/output"
	"github.com/PentesterFlow/xssprobe/internal/progress"
	"github.com/PentesterFlow/xssprobe/internal/shutdown"
	"github.com/PentesterFlow/xssprobe/internal/state"
	"github.com/PentesterFlow/xssprobe/pkg/scanner"
)

var (
	// Global flags
	configFile string
	dbPath     string
	verbose    bool
	debug      bool

	// Scan flags
	cookies          []string
	maxPages         int
	maxDepth         int
	timeout          time.Duration
	delay            time.Duration
	mode             string
	sink             string
	dynamic          bool
	headful          bool
	workers          int
	rateLimit        float64
	retries          int
	breakerThreshold int
	outputFile       string
	noProgress       bool

	// History flags
	historyLimit int

	// Payloads flags
	payloadFormat string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xssprobe",
		Short: "xssprobe - XSS crawler and tester",
		Long: `xssprobe - crawls a web application and tests every query parameter and
form field it finds for cross-site scripting.

The static engine inspects raw responses for reflected payloads and stored
script. The dynamic engine renders pages in headless Chrome and confirms
that injected script actually runs.`,
		Version:       scanner.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	scanCmd := &cobra.Command{
		Use:   "scan [target]",
		Short: "Crawl and test a target",
		Args:  cobra.ExactArgs(1),
		RunE:  runScan,
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List past scans",
		RunE:  runHistory,
	}

	showCmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a stored scan report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runShow,
	}

	payloadsCmd := &cobra.Command{
		Use:   "payloads",
		Short: "Print the payload catalog",
		RunE:  runPayloads,
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(scanner.Version)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Configuration file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Scan history database (bbolt)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Debug mode")

	// Scan flags
	defaults := scanner.DefaultConfig()
	scanCmd.Flags().StringArrayVar(&cookies, "cookie", nil, "Cookie as name=value (repeatable)")
	scanCmd.Flags().IntVar(&maxPages, "max-pages", defaults.MaxPages, "Maximum pages to crawl")
	scanCmd.Flags().IntVarP(&maxDepth, "max-depth", "d", defaults.MaxDepth, "Maximum crawl depth")
	scanCmd.Flags().DurationVarP(&timeout, "timeout", "t", defaults.Timeout, "Request timeout")
	scanCmd.Flags().DurationVar(&delay, "delay", defaults.Delay, "Delay between crawl requests")
	scanCmd.Flags().StringVar(&mode, "mode", string(defaults.Mode), "Payload set (quick, full)")
	scanCmd.Flags().StringVar(&sink, "sink", string(defaults.Sink), "Execution sink for dynamic payloads (console, dialog)")
	scanCmd.Flags().BoolVar(&dynamic, "dynamic", false, "Use headless Chrome to confirm execution")
	scanCmd.Flags().BoolVar(&headful, "headful", false, "Show the browser window")
	scanCmd.Flags().IntVarP(&workers, "workers", "w", defaults.Workers, "Concurrent injection workers (static engine)")
	scanCmd.Flags().Float64VarP(&rateLimit, "rate-limit", "r", 0, "Injection requests per second (0 = unlimited)")
	scanCmd.Flags().IntVar(&retries, "retries", 0, "Retries for transient network errors")
	scanCmd.Flags().IntVar(&breakerThreshold, "breaker-threshold", 0, "Consecutive failures before a host is skipped (0 = off)")
	scanCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the JSON report to a file")
	scanCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")

	// History flags
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of scans to list (0 = all)")

	// Payloads flags
	payloadsCmd.Flags().StringVar(&mode, "mode", string(defaults.Mode), "Payload set (quick, full)")
	payloadsCmd.Flags().StringVar(&sink, "sink", string(defaults.Sink), "Execution sink (console, dialog)")
	payloadsCmd.Flags().BoolVar(&dynamic, "dynamic", false, "Show the dynamic engine catalog")
	payloadsCmd.Flags().StringVarP(&payloadFormat, "format", "f", "text", "Output format (text, json, yaml)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(payloadsCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	config := scanner.DefaultConfig()
	if configFile != "" {
		fileConfig, err := scanner.LoadFromFile(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}
		config = fileConfig
	}
	config.Target = args[0]

	// Command-line flags take precedence over the file
	flags := cmd.Flags()
	if flags.Changed("cookie") {
		parsed, err := parseCookies(cookies)
		if err != nil {
			return err
		}
		if config.Cookies == nil {
			config.Cookies = make(map[string]string)
		}
		for k, v := range parsed {
			config.Cookies[k] = v
		}
	}
	if flags.Changed("max-pages") {
		config.MaxPages = maxPages
	}
	if flags.Changed("max-depth") {
		config.MaxDepth = maxDepth
	}
	if flags.Changed("timeout") {
		config.Timeout = timeout
	}
	if flags.Changed("delay") {
		config.Delay = delay
	}
	if flags.Changed("mode") {
		config.Mode = catalog.Mode(mode)
	}
	if flags.Changed("sink") {
		config.Sink = catalog.Sink(sink)
	}
	if dynamic {
		config.Engine = scanner.EngineDynamic
	}
	if headful {
		config.Browser.Headless = false
	}
	if flags.Changed("workers") {
		config.Workers = workers
	}
	if flags.Changed("rate-limit") {
		config.RateLimit = rateLimit
	}
	if flags.Changed("retries") {
		config.Retries = retries
	}
	if flags.Changed("breaker-threshold") {
		config.BreakerThreshold = breakerThreshold
	}
	config.Verbose = config.Verbose || verbose
	config.Debug = config.Debug || debug

	// Progress bars and log lines share stderr; keep one of them
	enableProgress := !noProgress && !config.Verbose && !config.Debug

	display := progress.New(os.Stderr)
	var bars *progress.Display
	if enableProgress {
		bars = display
	}
	con := newConsole(os.Stderr, bars)

	s, err := scanner.New(
		scanner.WithConfig(config),
		scanner.WithNotifier(con.notify),
	)
	if err != nil {
		return fmt.Errorf("failed to create scanner: %w", err)
	}
	defer s.Close()
	config = s.Config()

	handler := shutdown.New(shutdown.Config{
		Timeout: 10 * time.Second,
		OnShutdownStart: func() {
			fmt.Fprintf(os.Stderr, "\n%s interrupt received, stopping (press Ctrl+C again to force)\n", yellow("[-]"))
		},
	})
	defer handler.Stop()
	handler.RegisterFunc("scanner", s.Stop)

	printBanner(config)
	display.Start(config.Target)

	report, runErr := s.Run(handler.Context())
	display.Stop()

	if outputFile != "" {
		if err := writeReport(outputFile, report); err != nil {
			fmt.Fprintf(os.Stderr, "%s failed to write report: %v\n", red("[!]"), err)
		} else {
			fmt.Fprintf(os.Stderr, "%s report written to %s\n", green("[+]"), outputFile)
		}
	}

	if dbPath != "" {
		if id, err := saveHistory(dbPath, report); err != nil {
			fmt.Fprintf(os.Stderr, "%s failed to save history: %v\n", red("[!]"), err)
		} else {
			fmt.Fprintf(os.Stderr, "%s scan saved as %s\n", green("[+]"), id)
		}
	}

	printSummary(display, report)

	if runErr != nil {
		return fmt.Errorf("scan failed: %w", runErr)
	}
	return nil
}

func parseCookies(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, c := range raw {
		name, value, ok := strings.Cut(c, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid cookie %q (want name=value)", c)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}

func writeReport(path string, report *output.Report) error {
	w, err := output.Create(output.Config{Format: "json", Pretty: true, FilePath: path})
	if err != nil {
		return err
	}
	if err := w.WriteReport(report); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func saveHistory(path string, report *output.Report) (string, error) {
	store, err := state.NewBoltStore(path)
	if err != nil {
		return "", err
	}
	defer store.Close()

	rec := &state.Record{
		Target:      report.Target,
		Engine:      report.Engine,
		Mode:        report.Mode,
		StartedAt:   report.StartedAt,
		CompletedAt: report.CompletedAt,
		Stopped:     report.Stopped,
		Pages:       report.Pages,
		Stored:      report.Stored,
		Findings:    report.Findings,
	}
	if err := store.Save(rec); err != nil {
		return "", err
	}
	return rec.ID, nil
}

func openHistory() (*state.BoltStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("--db is required")
	}
	store, err := state.NewBoltStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.List(historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list history: %w", err)
	}
	if len(summaries) == 0 {
		fmt.Println("No scans recorded")
		return nil
	}

	fmt.Printf("%-28s %-8s %-6s %6s %6s %6s %6s  %s\n", "ID", "ENGINE", "MODE", "PAGES", "STORED", "REFL", "VULN", "TARGET")
	for _, s := range summaries {
		fmt.Printf("%-28s %-8s %-6s %6d %6d %6d %6d  %s\n",
			s.ID, s.Engine, s.Mode, s.Pages, s.Stored, s.Reflected, s.Vulnerable, s.Target)
	}
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(args[0])
	if err != nil {
		return fmt.Errorf("failed to load scan %s: %w", args[0], err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func runPayloads(cmd *cobra.Command, args []string) error {
	m, err := catalog.ParseMode(mode)
	if err != nil {
		return err
	}
	k, err := catalog.ParseSink(sink)
	if err != nil {
		return err
	}

	set := catalog.Static()
	if dynamic {
		set = catalog.Dynamic(k)
	}
	if err := set.Validate(); err != nil {
		return fmt.Errorf("payload catalog is broken: %w", err)
	}
	payloads := set.Payloads(m)

	switch strings.ToLower(payloadFormat) {
	case "json":
		data, err := json.MarshalIndent(payloads, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(payloads)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
	case "text":
		for i, p := range payloads {
			fmt.Printf("%3d  %s\n", i+1, p)
		}
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", payloadFormat)
	}
	return nil
}

func printBanner(config *scanner.Config) {
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "╔══════════════════════════════════════════════════════════════╗")
	fmt.Fprintf(os.Stderr, "║                       xssprobe %-8s                      ║\n", scanner.Version)
	fmt.Fprintln(os.Stderr, "╚══════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintf(os.Stderr, "Target:     %s\n", config.Target)
	fmt.Fprintf(os.Stderr, "Engine:     %s\n", config.Engine)
	fmt.Fprintf(os.Stderr, "Mode:       %s\n", config.Mode)
	if config.Engine == scanner.EngineDynamic {
		fmt.Fprintf(os.Stderr, "Sink:       %s\n", config.Sink)
	} else {
		fmt.Fprintf(os.Stderr, "Workers:    %d\n", config.Workers)
	}
	fmt.Fprintf(os.Stderr, "Max Pages:  %d\n", config.MaxPages)
	fmt.Fprintf(os.Stderr, "Max Depth:  %d\n", config.MaxDepth)
	fmt.Fprintln(os.Stderr)
}

func printSummary(display *progress.Display, report *output.Report) {
	errCount := 0
	if report.Metrics != nil {
		errCount = int(report.Metrics.ErrorsTotal)
	}
	display.PrintSummary(progress.Summary{
		Pages:      report.Stats.PagesCrawled,
		Stored:     report.Stats.StoredFindings,
		Tasks:      report.Stats.PayloadsTested,
		Reflected:  report.Stats.Reflected,
		Vulnerable: report.Stats.Vulnerable,
		Executed:   report.Stats.Executed,
		Errors:     errCount,
		Stopped:    report.Stopped,
	})

	if len(report.Stored) > 0 {
		fmt.Fprintln(os.Stderr, "Stored XSS:")
		for i, st := range report.Stored {
			if i == 10 {
				fmt.Fprintf(os.Stderr, "  ... and %d more\n", len(report.Stored)-10)
				break
			}
			fmt.Fprintf(os.Stderr, "  [%s] %s %s\n", st.Severity, st.PatternName, st.URL)
		}
		fmt.Fprintln(os.Stderr)
	}

	var hits []string
	for _, f := range report.Interesting() {
		if !f.Vulnerable {
			continue
		}
		hits = append(hits, fmt.Sprintf("  [%s] %s %s", f.Severity, f.Parameter, f.URL))
	}
	if len(hits) > 0 {
		fmt.Fprintln(os.Stderr, "Vulnerable Parameters:")
		for i, h := range hits {
			if i == 10 {
				fmt.Fprintf(os.Stderr, "  ... and %d more\n", len(hits)-10)
				break
			}
			fmt.Fprintln(os.Stderr, h)
		}
		fmt.Fprintln(os.Stderr)
	}
}
