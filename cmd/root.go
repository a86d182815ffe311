package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/yahgwai/aep-fee-tracker-sub001/internal/config"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
)

var rootCmd = &cobra.Command{
	Use:   "fee-tracker",
	Short: "Track Arbitrum fee distributors and the funds flowing through them",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(config.Debug, false, `"true" or "false"`)
	rootCmd.PersistentFlags().StringP("chain", "c", "arbitrum-one", `The chain to track (arbitrum-one, arbitrum-nova, local)`)
	rootCmd.PersistentFlags().String(config.DataDir, "data", `Directory the tracker documents are written to`)

	rootCmd.PersistentFlags().String(config.EthereumRpcUrl, "", `e.g. "http://<hostname>:8547"`)

	rootCmd.PersistentFlags().Bool(config.DataDogStatsdEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().String(config.DataDogStatsdUrl, "", `e.g. "localhost:8125"`)

	rootCmd.PersistentFlags().Bool(config.PrometheusEnabled, false, `e.g. "true" or "false"`)
	rootCmd.PersistentFlags().Int(config.PrometheusPort, 2112, `The port to run the prometheus server on`)

	// setup sub commands
	rootCmd.AddCommand(detectDistributorsCmd)
	rootCmd.AddCommand(findBlockNumbersCmd)
	rootCmd.AddCommand(fetchBalancesCmd)
	rootCmd.AddCommand(fetchOutflowsCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runVersionCmd)

	// bind any subcommand flags
	detectDistributorsCmd.PersistentFlags().String(config.EndDate, "", "Last UTC date to cover, YYYY-MM-DD (default: yesterday)")
	findBlockNumbersCmd.PersistentFlags().String(config.EndDate, "", "Last UTC date to cover, YYYY-MM-DD (default: yesterday)")
	findBlockNumbersCmd.PersistentFlags().String(config.StartDate, "", "First date to index on a fresh run, YYYY-MM-DD (default: chain genesis)")
	fetchBalancesCmd.PersistentFlags().String(config.EndDate, "", "Last UTC date to cover, YYYY-MM-DD (default: yesterday)")
	fetchOutflowsCmd.PersistentFlags().String(config.EndDate, "", "Last UTC date to cover, YYYY-MM-DD (default: yesterday)")
	reportCmd.PersistentFlags().String(config.ReportOutFile, "", "File to write the CSV report to (default: stdout)")

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		viper.BindEnv(key)      //nolint:errcheck
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(config.ENV_PREFIX)

	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.AutomaticEnv()
}

// resolveEndDate parses an end-date flag value. Empty means the most
// recent complete UTC day.
func resolveEndDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC().AddDate(0, 0, -1).Truncate(24 * time.Hour), nil
	}
	endDate, err := time.Parse(types.DateFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid end date '%s': expected YYYY-MM-DD", value)
	}
	return endDate, nil
}
