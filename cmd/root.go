package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/Alijeyrad/hairai_backend/cmd/http"
	systemcmd "github.com/Alijeyrad/hairai_backend/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "hairai",
	Short: "HairAI clinic backend for scalp image analysis.",
	Long: `HairAI is a multi-tenant backend for hair and scalp clinics.
It takes uploaded scalp images, queues them for the analysis worker and
aggregates the worker's results into per-session reports.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
}
