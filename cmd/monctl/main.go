package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/jmerrifield20/omnisec-monitor/pkg/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

const defaultServer = "http://localhost:8000"

var (
	serverURL string
	cfgFile   string
	orgID     string
	format    string
	timeout   time.Duration
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "monctl",
	Short: "OmniSec monitoring CLI",
	Long: `monctl is the command-line interface for the OmniSec monitoring service.

It queries threat analytics, model security scores, tiered security reports
and live system metrics, and can trigger a deep model analysis.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(home + "/.monctl")
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("monctl")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		if serverURL == "" {
			serverURL = viper.GetString("server")
		}
		if serverURL == "" {
			serverURL = defaultServer
		}
		if orgID == "" {
			orgID = viper.GetString("organization")
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.monctl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "monitoring service URL (default "+defaultServer+")")
	rootCmd.PersistentFlags().StringVar(&orgID, "org", "", "organization id")
	rootCmd.PersistentFlags().StringVar(&format, "format", "text", "output format: text or json")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	rootCmd.AddCommand(threatsCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(systemCmd)
	rootCmd.AddCommand(securityCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(versionCmd)
}

func newClient() (*client.Client, context.Context, context.CancelFunc, error) {
	c, err := client.New(serverURL)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return c, ctx, cancel, nil
}

func requireOrg() error {
	if orgID == "" {
		return errors.New("--org is required (or set organization in the config file)")
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── threats ──────────────────────────────────────────────────────────────────

var (
	threatDays     int
	threatSeverity string
)

var threatsCmd = &cobra.Command{
	Use:   "threats",
	Short: "Show threat analytics for an organization",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireOrg(); err != nil {
			return err
		}
		c, ctx, cancel, err := newClient()
		if err != nil {
			return err
		}
		defer cancel()

		ta, err := c.Threats(ctx, orgID, threatDays, threatSeverity)
		if err != nil {
			return err
		}
		if format == "json" {
			return printJSON(ta)
		}

		s := ta.Summary
		fmt.Printf("Organization:        %s (last %d days)\n", orgID, threatDays)
		fmt.Printf("Total threats:       %d\n", s.TotalThreats)
		fmt.Printf("Threat types:        %d\n", s.UniqueThreatTypes)
		fmt.Printf("Avg severity score:  %.2f\n", s.AvgSeverityScore)
		fmt.Printf("Detection rate:      %.1f%%\n", s.DetectionRate*100)
		fmt.Printf("False positive rate: %.1f%%\n", s.FalsePositiveRate*100)

		if len(ta.ThreatDistribution) > 0 {
			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tCOUNT")
			for _, k := range sortedKeys(ta.ThreatDistribution) {
				fmt.Fprintf(w, "%s\t%d\n", k, ta.ThreatDistribution[k])
			}
			if err := w.Flush(); err != nil {
				return err
			}
		}
		printList("Recommendations", ta.Recommendations)
		return nil
	},
}

func init() {
	threatsCmd.Flags().IntVar(&threatDays, "days", 7, "window length in days")
	threatsCmd.Flags().StringVar(&threatSeverity, "severity", "", "only count threats of this severity (low, medium, high, critical)")
}

// ── models ───────────────────────────────────────────────────────────────────

var modelID string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show per-model security scores",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireOrg(); err != nil {
			return err
		}
		c, ctx, cancel, err := newClient()
		if err != nil {
			return err
		}
		defer cancel()

		out, err := c.Models(ctx, orgID, modelID)
		if err != nil {
			return err
		}
		if format == "json" {
			return printJSON(out)
		}

		ids := make([]string, 0, len(out))
		for id := range out {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "MODEL\tNAME\tTYPE\tSCORE\tTHREATS\tCRITICAL")
		for _, id := range ids {
			r := out[id]
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n", id,
				r.ModelInfo.Name, r.ModelInfo.Type, r.SecurityScore,
				r.ThreatExposure.Total, r.VulnerabilityAssessment.CriticalCount)
		}
		return w.Flush()
	},
}

func init() {
	modelsCmd.Flags().StringVar(&modelID, "model", "", "only score this model")
}

// ── report ───────────────────────────────────────────────────────────────────

var (
	reportTier string
	reportDays int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a security report (summary, detailed or executive)",
	Long: `Report generates a tiered security report and prints it as JSON.

  monctl report --org acme --type executive --days 90`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireOrg(); err != nil {
			return err
		}
		c, ctx, cancel, err := newClient()
		if err != nil {
			return err
		}
		defer cancel()

		raw, err := c.SecurityReport(ctx, orgID, reportTier, reportDays)
		if err != nil {
			return err
		}
		return printJSON(raw)
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportTier, "type", "summary", "report tier: summary, detailed or executive")
	reportCmd.Flags().IntVar(&reportDays, "days", 30, "window length in days")
}

// ── system ───────────────────────────────────────────────────────────────────

var systemCmd = &cobra.Command{
	Use:   "system",
	Short: "Show host metrics of the monitoring service",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, cancel, err := newClient()
		if err != nil {
			return err
		}
		defer cancel()

		m, err := c.SystemMetrics(ctx)
		if err != nil {
			return err
		}
		if format == "json" {
			return printJSON(m)
		}
		fmt.Printf("CPU:     %.1f%% of %d cores, load %v\n", m.CPU.UsagePercent, m.CPU.Count, m.CPU.LoadAverage)
		fmt.Printf("Memory:  %.1f%% used, %.2f GB available of %.2f GB\n", m.Memory.UsedPercent, m.Memory.AvailableGB, m.Memory.TotalGB)
		fmt.Printf("Disk:    %.1f%% used, %.2f GB free of %.2f GB\n", m.Disk.UsedPercent, m.Disk.FreeGB, m.Disk.TotalGB)
		fmt.Printf("Network: %d bytes sent, %d bytes received\n", m.Network.BytesSent, m.Network.BytesRecv)
		return nil
	},
}

// ── security ─────────────────────────────────────────────────────────────────

var securityCmd = &cobra.Command{
	Use:   "security [org...]",
	Short: "Show security metrics for one or more organizations",
	Long: `Security collects live security metrics. Organizations given as
arguments are queried concurrently; with no arguments --org is used.

  monctl security acme globex initech`,
	RunE: func(cmd *cobra.Command, args []string) error {
		orgs := args
		if len(orgs) == 0 {
			if err := requireOrg(); err != nil {
				return err
			}
			orgs = []string{orgID}
		}
		c, ctx, cancel, err := newClient()
		if err != nil {
			return err
		}
		defer cancel()

		type row struct {
			org string
			m   *client.SecurityMetrics
			err error
		}
		// One slot per goroutine.
		results := make([]row, len(orgs))
		var wg sync.WaitGroup
		for i, org := range orgs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				m, err := c.SecurityMetrics(ctx, org)
				results[i] = row{org: org, m: m, err: err}
			}()
		}
		wg.Wait()

		if format == "json" {
			out := make(map[string]any, len(results))
			for _, r := range results {
				if r.err != nil {
					out[r.org] = map[string]string{"error": r.err.Error()}
				} else {
					out[r.org] = r.m
				}
			}
			return printJSON(out)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ORG\tTHREATS\tACTIVE\tDETECTIONS\tMODELS\tEVENTS\tAUDIT\tERROR")
		for _, r := range results {
			if r.err != nil {
				fmt.Fprintf(w, "%s\t\t\t\t\t\t\t%s\n", r.org, r.err.Error())
				continue
			}
			m := r.m
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d/%d\t%d\t%d\t\n", r.org,
				m.Threats.Total, m.Threats.Active, m.Threats.Detections24h,
				m.Models.Active, m.Models.Total,
				m.Activity.SecurityEvents24h, m.Activity.AuditLogs24h)
		}
		return w.Flush()
	},
}

// ── analyze ──────────────────────────────────────────────────────────────────

var analysisType string

var analyzeCmd = &cobra.Command{
	Use:   "analyze <model-id>",
	Short: "Run a deep security analysis of a model",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireOrg(); err != nil {
			return err
		}
		c, ctx, cancel, err := newClient()
		if err != nil {
			return err
		}
		defer cancel()

		res, err := c.AnalyzeModel(ctx, client.AnalyzeModelRequest{
			OrganizationID: orgID,
			ModelID:        args[0],
			AnalysisType:   analysisType,
		})
		if err != nil {
			return err
		}
		if format == "json" {
			return printJSON(res)
		}

		a := res.SecurityAssessment
		fmt.Printf("Analysis:  %s (%s)\n", res.ID, res.AnalysisType)
		fmt.Printf("Score:     %d\n", a.OverallScore)
		fmt.Printf("Issues:    %d critical, %d high, %d medium, %d low\n",
			a.CriticalIssues, a.HighIssues, a.MediumIssues, a.LowIssues)
		for _, f := range res.DetailedFindings {
			fmt.Printf("  [%s] %s: %s\n", f.Severity, f.Type, f.Recommendation)
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analysisType, "type", "", "analysis type (default full)")
}

// ── health ───────────────────────────────────────────────────────────────────

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the monitoring service and its dependencies",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, ctx, cancel, err := newClient()
		if err != nil {
			return err
		}
		defer cancel()

		h, err := c.Health(ctx)
		if h == nil {
			return err
		}
		if format == "json" {
			if perr := printJSON(h); perr != nil {
				return perr
			}
			return err
		}
		fmt.Printf("Status:  %s\n", h.Status)
		fmt.Printf("Version: %s\n", h.Version)
		for _, dep := range sortedKeys(h.Dependencies) {
			fmt.Printf("  %-10s %s\n", dep, h.Dependencies[dep])
		}
		return err
	},
}

// ── version ──────────────────────────────────────────────────────────────────

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the monctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("monctl %s (OmniSec monitoring)\n", version)
	},
}

// ── helpers ──────────────────────────────────────────────────────────────────

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func printList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", title)
	for _, it := range items {
		fmt.Printf("  - %s\n", it)
	}
}
