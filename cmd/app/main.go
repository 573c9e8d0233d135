package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"TurtleDesk/internal/di"
	"TurtleDesk/internal/domain/models"
	domsvc "TurtleDesk/internal/domain/service"
	"TurtleDesk/internal/service/analysisclient"
	"TurtleDesk/pkg/config"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "turtledesk",
		Short:         "Turtle Trading stock analysis service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	root.AddCommand(
		newServeCmd(&configPath),
		newAnalyzeCmd(&configPath),
		newMigrateCmd(&configPath),
	)
	return root
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			app, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			return app.Run()
		},
	}
}

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			cfg.Database.AutoMigrate = false
			app, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			return app.RunOnce(cmd.Context(), app.Migrate)
		},
	}
}

func newAnalyzeCmd(configPath *string) *cobra.Command {
	var (
		remote  string
		period  string
		entry   int
		exit    int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "analyze SYMBOL...",
		Short: "Analyze one or more symbols and print the signals",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			build := func(s string) models.AnalysisRequest {
				return models.AnalysisRequest{Symbol: s, Period: period, EntryPeriod: entry, ExitPeriod: exit}
			}

			if remote != "" {
				results := analyzeAll(ctx, analysisclient.New(remote, timeout), args, build)
				fmt.Fprintln(cmd.OutOrStdout(), renderResults(results))
				return nil
			}

			cfg, err := config.LoadWithEnv(*configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}
			app, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			return app.RunOnce(ctx, func(ctx context.Context) error {
				results := analyzeAll(ctx, app.Analyzer(), args, build)
				fmt.Fprintln(cmd.OutOrStdout(), renderResults(results))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "analyze endpoint URL, e.g. http://localhost:8000/analyze")
	cmd.Flags().StringVar(&period, "period", models.DefaultPeriod, "history period")
	cmd.Flags().IntVar(&entry, "entry-period", models.DefaultEntryPeriod, "breakout window in bars")
	cmd.Flags().IntVar(&exit, "exit-period", models.DefaultExitPeriod, "exit window in bars")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall timeout")
	return cmd
}

type outcome struct {
	symbol string
	res    *models.AnalysisResult
	err    error
}

func analyzeAll(ctx context.Context, a domsvc.Analyzer, symbols []string, build func(string) models.AnalysisRequest) []outcome {
	out := make([]outcome, 0, len(symbols))
	for _, s := range symbols {
		res, err := a.Analyze(ctx, build(s))
		out = append(out, outcome{symbol: s, res: res, err: err})
	}
	return out
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	signalStyle = map[models.Signal]lipgloss.Style{
		models.SignalBuy:  cellStyle.Foreground(lipgloss.Color("42")),
		models.SignalSell: cellStyle.Foreground(lipgloss.Color("196")),
		models.SignalHold: cellStyle.Foreground(lipgloss.Color("244")),
	}
	errorStyle = cellStyle.Foreground(lipgloss.Color("203"))
)

func renderResults(results []outcome) string {
	rows := make([][]string, 0, len(results))
	for _, o := range results {
		if o.err != nil {
			rows = append(rows, []string{o.symbol, "ERROR", "", "", "", o.err.Error()})
			continue
		}
		r := o.res
		rows = append(rows, []string{
			r.Symbol,
			string(r.Signal),
			fmt.Sprintf("$%.2f", r.CurrentPrice),
			fmt.Sprintf("$%.2f", r.EntryPrice),
			fmt.Sprintf("$%.2f", r.ExitPrice),
			r.Recommendation,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Symbol", "Signal", "Current Price", "Entry Price", "Exit Price", "Recommendation").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 1 && row >= 0 && row < len(rows) {
				if rows[row][1] == "ERROR" {
					return errorStyle
				}
				return signalStyle[models.Signal(rows[row][1])]
			}
			return cellStyle
		})
	return t.String()
}
