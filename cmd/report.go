package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yahgwai/aep-fee-tracker-sub001/internal/config"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/logger"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/fileStore"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/reports"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the distributor registry as a CSV report",
	RunE: func(cmd *cobra.Command, args []string) error {
		initReportCmd(cmd)
		cfg := config.NewConfig()

		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		store := fileStore.NewFileStore(cfg.DataDir, l)

		registry, err := store.ReadDistributors()
		if err != nil {
			return err
		}
		if registry == nil {
			return errors.New("Distributors data not found")
		}

		rows := reports.BuildDistributorRows(registry)

		var out io.Writer = os.Stdout
		outFile := viper.GetString(config.KebabToSnakeCase(config.ReportOutFile))
		if outFile != "" {
			f, err := os.Create(outFile)
			if err != nil {
				return fmt.Errorf("failed to create report file: %w", err)
			}
			defer f.Close()
			out = f
		}

		if err := reports.WriteCSV(rows, out); err != nil {
			return err
		}

		if outFile != "" {
			l.Sugar().Infow("Report written",
				zap.String("file", outFile),
				zap.Int("rows", len(rows)),
			)
		}
		return nil
	},
}

func initReportCmd(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(config.KebabToSnakeCase(f.Name), f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(f.Name); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}
