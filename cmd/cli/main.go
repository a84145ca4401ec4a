package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gobayes/adapters/excel"
	"gobayes/internal"
	"gobayes/internal/config"
	"gobayes/internal/studies"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	catalog  string
	workbook string
	logLevel string
	asJSON   bool
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(cfg *config.Config) *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:           "gobayes",
		Short:         "Bayesian aggregation of likelihood-ratio evidence",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return internal.SetupLogging(cmd.ErrOrStderr(), g.logLevel, cfg.Log.Format)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.catalog, "catalog", cfg.Data.Catalog, "Study catalog YAML (default: embedded catalog)")
	pf.StringVar(&g.workbook, "workbook", cfg.Data.Workbook, "Workbook whose sheets override study measurements")
	pf.StringVar(&g.logLevel, "log-level", cfg.Log.Level, "Log level: ERROR|WARN|INFO|DEBUG|TRACE|OFF")
	pf.BoolVar(&g.asJSON, "json", false, "Print JSON instead of text")

	rootCmd.AddCommand(
		newListCmd(g),
		newRunCmd(g, cfg),
		newCombineCmd(g),
		newPosteriorCmd(g),
		newSweepCmd(g),
		newBootstrapCmd(g, cfg),
		newRatesCmd(g),
	)
	return rootCmd
}

// loadStudies reads the catalog and applies workbook overrides
func (g *globalFlags) loadStudies() (*studies.Catalog, error) {
	catalog, err := studies.Default()
	if g.catalog != "" {
		catalog, err = studies.Load(g.catalog)
	}
	if err != nil {
		return nil, err
	}

	if g.workbook != "" {
		xcfg := excel.DefaultConfig()
		xcfg.FilePath = g.workbook
		list, _, err := excel.Apply(xcfg, catalog.Studies)
		if err != nil {
			return nil, err
		}
		catalog.Studies = list
	}
	return catalog, nil
}
