package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abelzeko/dengue-watch/internal/config"
	"github.com/abelzeko/dengue-watch/internal/logging"
)

var (
	// Global flags
	port  int
	debug bool

	cfg    *config.Config
	logger *zap.SugaredLogger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Dengue Watch - dengue outbreak awareness dashboard for Lahore",
	Long: `Dengue Watch serves a web dashboard with the dengue risk heatmap,
fumigation progress, reported cases, environmental risk prediction,
stagnant water detection and prevention guidelines.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if cmd.Flags().Changed("port") {
			cfg.Port = port
		}
		if cmd.Flags().Changed("debug") {
			cfg.Debug = debug
		}

		var err error
		logger, err = logging.New(cfg.Debug)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().IntVarP(&port, "port", "p", 8080, "HTTP port (or set PORT env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging (or set DEBUG env)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(refreshCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
