package main

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/v0xg/funnelqa/internal/browser"
	"github.com/v0xg/funnelqa/internal/capture"
	"github.com/v0xg/funnelqa/internal/config"
	"github.com/v0xg/funnelqa/internal/funnel"
	"github.com/v0xg/funnelqa/internal/report"
	"github.com/v0xg/funnelqa/internal/summary"
)

var (
	cfgFile         string
	outputDir       string
	reportFile      string
	archiveFile     string
	pdfFile         string
	deviceNames     []string
	headful         bool
	noFullPage      bool
	noHighlight     bool
	navTimeoutSec   int
	loadWaitSec     int
	pauseSec        int
	summaryProvider string
	summaryModel    string
	verbose         bool
)

func main() {
	// Load .env file if present (silently ignore if not found)
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "funnelqa [urls...]",
		Short: "Automated purchase-funnel QA for retail storefronts",
		Long: `funnelqa drives a real browser through a storefront's purchase funnel
(configure options, add to cart, reach checkout) on desktop and mobile
profiles, screenshots every step, and compiles a severity-classified
issue report.

URLs come from the arguments or from a urls.txt file (one per line,
# comments allowed).

Example:
  funnelqa https://store.example.com/products/seat-covers`,
		Args: cobra.ArbitraryArgs,
		RunE: run,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "TOML config file")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Screenshot directory (default qa-screenshots)")
	rootCmd.Flags().StringVar(&reportFile, "report", "", "JSON report path (default qa-report.json)")
	rootCmd.Flags().StringVar(&archiveFile, "zip", "", "Bundle screenshots into a ZIP at this path")
	rootCmd.Flags().StringVar(&pdfFile, "pdf", "", "Render the report document as a PDF at this path")
	rootCmd.Flags().StringSliceVar(&deviceNames, "device", nil, "Device profiles to test (desktop, mobile)")
	rootCmd.Flags().BoolVar(&headful, "headful", false, "Run the browser with a visible window")
	rootCmd.Flags().BoolVar(&noFullPage, "no-full-page", false, "Capture viewport-only screenshots")
	rootCmd.Flags().BoolVar(&noHighlight, "no-highlight", false, "Disable element highlighting in audit screenshots")
	rootCmd.Flags().IntVar(&navTimeoutSec, "nav-timeout", 0, "Navigation timeout in seconds")
	rootCmd.Flags().IntVar(&loadWaitSec, "load-wait", 0, "Post-navigation hold in seconds")
	rootCmd.Flags().IntVar(&pauseSec, "pause", 0, "Pause between sessions in seconds")
	rootCmd.Flags().StringVar(&summaryProvider, "summary", "", "AI summary provider: claude, openai")
	rootCmd.Flags().StringVar(&summaryModel, "model", "", "Specific summary model override")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed progress")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	urls, err := loadURLs(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, &cfg)

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	devs, err := browser.ParseDevices(cfg.Devices)
	if err != nil {
		return err
	}

	runID := strings.Split(uuid.NewString(), "-")[0]
	started := time.Now()
	counter := capture.NewCounter()

	fmt.Printf("→ Testing %d URL(s) on %d device profile(s), run %s\n", len(urls), len(devs), runID)

	var allIssues []report.Issue
	var allShots []string
	for _, target := range urls {
		for _, dev := range devs {
			fmt.Printf("→ %s [%s]... ", target, dev)
			sess := runSession(target, dev, cfg, counter, log)
			allIssues = append(allIssues, sess.Issues...)
			allShots = append(allShots, sess.Screenshots...)
			if sess.Failed {
				fmt.Printf("failed (%d issues)\n", len(sess.Issues))
			} else {
				fmt.Printf("done (%d issues)\n", len(sess.Issues))
			}

			time.Sleep(time.Duration(cfg.PauseSec) * time.Second)
		}
	}

	if err := report.WriteJSON(allIssues, cfg.ReportFile); err != nil {
		return err
	}
	fmt.Printf("→ Report saved to %s\n", cfg.ReportFile)

	if cfg.ArchiveFile != "" {
		if err := report.WriteArchive(allShots, cfg.ArchiveFile); err != nil {
			return err
		}
		fmt.Printf("→ Screenshots bundled into %s\n", cfg.ArchiveFile)
	}

	if cfg.PDFFile != "" {
		info := report.PDFInfo{RunID: runID, StoreURL: storeURL(urls), Started: started}
		if err := report.WritePDF(allIssues, info, cfg.PDFFile); err != nil {
			return err
		}
		fmt.Printf("→ Report document saved to %s\n", cfg.PDFFile)
	}

	printSummary(counter, allIssues)

	if cfg.Summary.Provider != "" {
		digest(cfg, allIssues)
	}
	return nil
}

func runSession(target string, dev browser.Device, cfg config.Config, counter *capture.Counter, log *logrus.Logger) *funnel.Session {
	slog := log.WithFields(logrus.Fields{"url": target, "device": string(dev)})

	sess, err := browser.Open(dev, browser.Options{
		Headless:       cfg.Headless,
		NavTimeout:     time.Duration(cfg.NavTimeoutSec) * time.Second,
		MobileTimezone: cfg.MobileTimezone,
	}, log)
	if err != nil {
		slog.WithError(err).Error("browser launch failed")
		return &funnel.Session{
			URL:    target,
			Device: string(dev),
			Failed: true,
			Issues: []report.Issue{{
				URL:         target,
				Device:      string(dev),
				Severity:    report.SeverityCritical,
				Category:    "Test Failure",
				Description: fmt.Sprintf("Browser launch failed: %v", err),
				Timestamp:   time.Now(),
			}},
		}
	}
	defer sess.Close()

	cam, err := capture.NewCamera(cfg.OutputDir, string(dev), cfg.FullPage, counter, slog)
	if err != nil {
		slog.WithError(err).Error("screenshot directory unavailable")
		return &funnel.Session{
			URL:    target,
			Device: string(dev),
			Failed: true,
			Issues: []report.Issue{{
				URL:         target,
				Device:      string(dev),
				Severity:    report.SeverityCritical,
				Category:    "Test Failure",
				Description: fmt.Sprintf("Screenshot directory unavailable: %v", err),
				Timestamp:   time.Now(),
			}},
		}
	}

	settle := time.Duration(cfg.SettleMs) * time.Millisecond
	machine := funnel.New(sess.Handle(), cam, report.NewCollector(slog), funnel.DefaultStages(), funnel.Config{
		LookupTimeout: time.Duration(cfg.LookupTimeoutSec) * time.Second,
		SettleShort:   settle,
		SettleLong:    2 * settle,
		LoadWait:      time.Duration(cfg.LoadWaitSec) * time.Second,
		Highlight:     cfg.Highlight,
	}, target, string(dev), log)

	return machine.Run()
}

func loadURLs(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	f, err := os.Open("urls.txt")
	if err != nil {
		return nil, fmt.Errorf("no URLs given and urls.txt not found")
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read urls.txt: %w", err)
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("urls.txt contains no URLs")
	}
	return urls, nil
}

func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("output") {
		cfg.OutputDir = outputDir
	}
	if cmd.Flags().Changed("report") {
		cfg.ReportFile = reportFile
	}
	if cmd.Flags().Changed("zip") {
		cfg.ArchiveFile = archiveFile
	}
	if cmd.Flags().Changed("pdf") {
		cfg.PDFFile = pdfFile
	}
	if cmd.Flags().Changed("device") {
		cfg.Devices = deviceNames
	}
	if cmd.Flags().Changed("headful") {
		cfg.Headless = !headful
	}
	if cmd.Flags().Changed("no-full-page") {
		cfg.FullPage = !noFullPage
	}
	if cmd.Flags().Changed("no-highlight") {
		cfg.Highlight = !noHighlight
	}
	if cmd.Flags().Changed("nav-timeout") {
		cfg.NavTimeoutSec = navTimeoutSec
	}
	if cmd.Flags().Changed("load-wait") {
		cfg.LoadWaitSec = loadWaitSec
	}
	if cmd.Flags().Changed("pause") {
		cfg.PauseSec = pauseSec
	}
	if cmd.Flags().Changed("summary") {
		cfg.Summary.Provider = summaryProvider
	}
	if cmd.Flags().Changed("model") {
		cfg.Summary.Model = summaryModel
	}
}

func printSummary(counter *capture.Counter, issues []report.Issue) {
	fmt.Println("\n→ Testing complete")
	fmt.Printf("  Total screenshots: %d\n", counter.Total())
	fmt.Printf("  Total issues found: %d\n", len(issues))

	counts := report.CountBySeverity(issues)
	for _, s := range []report.Severity{report.SeverityCritical, report.SeverityHigh, report.SeverityMedium, report.SeverityLow} {
		if counts[s] > 0 {
			fmt.Printf("    %s: %d\n", s, counts[s])
		}
	}
}

func digest(cfg config.Config, issues []report.Issue) {
	provider, err := summary.NewProvider(cfg.Summary.Provider, cfg.Summary.Model)
	if err != nil {
		fmt.Printf("→ Summary unavailable: %v\n", err)
		return
	}
	fmt.Printf("→ Generating summary via %s... ", cfg.Summary.Provider)
	text, err := provider.Summarize(issues)
	if err != nil {
		fmt.Printf("failed (%v)\n", err)
		return
	}
	fmt.Println("done")
	fmt.Println("\n" + text)
}

// storeURL derives the storefront origin from the first URL for the report
// header.
func storeURL(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	u, err := url.Parse(urls[0])
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
