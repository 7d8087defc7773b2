// cotlens — CFTC Commitments of Traders dashboard
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cotlens/cotlens/api"
	"github.com/cotlens/cotlens/internal/catalog"
	"github.com/cotlens/cotlens/internal/config"
	"github.com/cotlens/cotlens/internal/cot"
	"github.com/cotlens/cotlens/internal/schedule"
	"github.com/cotlens/cotlens/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cotlens",
	Short: "cotlens — CFTC Commitments of Traders dashboard",
	Long: `cotlens fetches the CFTC's weekly Commitments of Traders reports,
computes positioning analytics (net positions, percentile ranks,
seasonality, momentum), and serves an interactive dashboard.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(instrumentsCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cotlens %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API server + dashboard) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := api.NewServer(cfg)
		if err != nil {
			return err
		}
		srv.SetVersion(version)
		if noUI, _ := cmd.Flags().GetBool("no-ui"); noUI {
			srv.SetServeUI(false)
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().Bool("no-ui", false, "serve the JSON API only, without the embedded dashboard")
}

// --- Fetch Command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch [contract-code-or-name]",
	Short: "Fetch COT reports for one instrument and print them",
	Long: `Fetch Commitments of Traders reports for an instrument, by CFTC
contract code or catalog name, and print the net positions.

Examples:
  cotlens fetch 088691
  cotlens fetch Gold --start 2024-01-01 --json
  cotlens fetch "Crude Oil WTI" --type combined`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load()
		if err != nil {
			return err
		}
		code := args[0]
		if inst, ok := cat.ByName(code); ok {
			code = inst.ContractCode
		}

		q := cot.Query{ContractCode: code}
		if s, _ := cmd.Flags().GetString("start"); s != "" {
			if q.Start, err = time.Parse("2006-01-02", s); err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
		}
		if e, _ := cmd.Flags().GetString("end"); e != "" {
			if q.End, err = time.Parse("2006-01-02", e); err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
		}
		if t, _ := cmd.Flags().GetString("type"); t != "" {
			q.Type = models.ReportType(t)
		}

		client := cot.NewClient(cot.Options{
			BaseURL:  cfg.CFTC.BaseURL,
			AppToken: cfg.CFTC.AppToken,
			Timeout:  time.Duration(cfg.CFTC.TimeoutSec) * time.Second,
			RowLimit: cfg.CFTC.RowLimit,
		})

		reports, err := client.Fetch(cmd.Context(), q)
		if err != nil {
			return err
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(reports)
		}
		if asCSV, _ := cmd.Flags().GetBool("csv"); asCSV {
			return writeCSV(os.Stdout, reports)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tOPEN INT\tLARGE SPEC\tCOMMERCIAL\tSMALL SPEC")
		for _, r := range reports {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n",
				r.Date.Format("2006-01-02"), r.OpenInterest,
				r.NonCommNet(), r.CommNet(), r.NonReptNet())
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d reports\n", len(reports))
		return nil
	},
}

func init() {
	fetchCmd.Flags().String("start", "", "start date (YYYY-MM-DD)")
	fetchCmd.Flags().String("end", "", "end date (YYYY-MM-DD)")
	fetchCmd.Flags().String("type", "", "report type: futures_only (default) or combined")
	fetchCmd.Flags().Bool("json", false, "print raw JSON instead of a table")
	fetchCmd.Flags().Bool("csv", false, "print CSV instead of a table")
}

// writeCSV emits the full report rows, nullable columns blank when absent.
func writeCSV(out io.Writer, reports []models.Report) error {
	w := csv.NewWriter(out)
	header := []string{
		"report_date", "contract_code", "market_name", "open_interest",
		"noncomm_long", "noncomm_short", "noncomm_spread",
		"comm_long", "comm_short", "nonrept_long", "nonrept_short", "traders",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	opt := func(v *int64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatInt(*v, 10)
	}
	for _, r := range reports {
		rec := []string{
			r.Date.Format("2006-01-02"), r.ContractCode, r.MarketName,
			strconv.FormatInt(r.OpenInterest, 10),
			strconv.FormatInt(r.NonCommLong, 10),
			strconv.FormatInt(r.NonCommShort, 10),
			opt(r.NonCommSpread),
			strconv.FormatInt(r.CommLong, 10),
			strconv.FormatInt(r.CommShort, 10),
			strconv.FormatInt(r.NonReptLong, 10),
			strconv.FormatInt(r.NonReptShort, 10),
			opt(r.TraderCount),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// --- Instruments Command ---

var instrumentsCmd = &cobra.Command{
	Use:   "instruments [search]",
	Short: "List or search the instrument catalog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := catalog.Load()
		if err != nil {
			return err
		}

		instruments := cat.All()
		if len(args) == 1 {
			instruments = cat.Search(args[0])
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tNAME\tEXCHANGE\tASSET CLASS")
		for _, inst := range instruments {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				inst.ContractCode, inst.Name, inst.Exchange, inst.AssetClass)
		}
		return w.Flush()
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and upstream connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  cotlens — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:     %s (%s)\n", version, commit)
		fmt.Printf("  CFTC API:    %s\n", cfg.CFTC.BaseURL)
		fmt.Printf("  API Server:  %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("  Cache TTL:   %ds\n", cfg.Cache.TTLSec)
		fmt.Printf("  Seasonal:    %d-year lookback\n", cfg.Analysis.SeasonalYears)
		fmt.Printf("  Momentum:    %d-week window\n", cfg.Analysis.MomentumWeeks)
		fmt.Println()

		tok := config.CheckToken(cfg)
		if tok.IsSet {
			fmt.Printf("  App Token:   set (%s: %s)\n", tok.Source, tok.Masked)
		} else {
			fmt.Println("  App Token:   not set (unauthenticated; stricter rate limits)")
		}

		client := cot.NewClient(cot.Options{
			BaseURL:  cfg.CFTC.BaseURL,
			AppToken: cfg.CFTC.AppToken,
			Timeout:  time.Duration(cfg.CFTC.TimeoutSec) * time.Second,
		})
		if err := client.Ping(cmd.Context()); err != nil {
			fmt.Printf("  Upstream:    unreachable (%v)\n", err)
		} else {
			fmt.Println("  Upstream:    ok")
		}

		if next, ok := schedule.New().Next(cmd.Context()); ok {
			fmt.Printf("  Next report: %s (released %s)\n",
				next.ReportDate.Format("2006-01-02"), next.ReleaseDate.Format("2006-01-02"))
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
