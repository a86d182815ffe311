package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yahgwai/aep-fee-tracker-sub001/internal/config"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/logger"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/metrics"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/metrics/prometheus"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/version"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/clients/ethereum"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/fileStore"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/outflowFetcher"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
)

var fetchOutflowsCmd = &cobra.Command{
	Use:   "fetch-outflows",
	Short: "Record daily payout totals for each reward distributor",
	Long:  "Scan each reward distributor for payout events through the end date's closing block and record daily recipient-level outflows with exact wei totals.",
	RunE: func(cmd *cobra.Command, args []string) error {
		initFetchOutflowsCmd(cmd)
		cfg := config.NewConfig()
		ctx := context.Background()

		l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		l.Sugar().Infow("fee tracker",
			zap.String("version", version.GetVersion()),
			zap.String("commit", version.GetCommit()),
			zap.String("chain", cfg.Chain.String()),
		)

		if cfg.EthereumRpcConfig.BaseUrl == "" {
			return fmt.Errorf("an ethereum rpc url is required (--%s)", config.EthereumRpcUrl)
		}

		endDate, err := resolveEndDate(viper.GetString(config.KebabToSnakeCase(config.EndDate)))
		if err != nil {
			return err
		}

		metricsClients, err := metrics.InitMetricsSinksFromConfig(cfg, l)
		if err != nil {
			return fmt.Errorf("failed to setup metrics clients: %w", err)
		}
		sink, err := metrics.NewMetricsSink(&metrics.MetricsSinkConfig{}, metricsClients)
		if err != nil {
			return fmt.Errorf("failed to setup metrics sink: %w", err)
		}

		promChan := make(chan bool)
		if cfg.PrometheusConfig.Enabled {
			pServer := prometheus.NewPrometheusServer(&prometheus.PrometheusServerConfig{
				Port: cfg.PrometheusConfig.Port,
			}, l)
			if err := pServer.Start(promChan); err != nil {
				return fmt.Errorf("failed to start prometheus server: %w", err)
			}
		}

		client := ethereum.NewClient(&ethereum.EthereumClientConfig{BaseUrl: cfg.EthereumRpcConfig.BaseUrl}, l)
		store := fileStore.NewFileStore(cfg.DataDir, l)

		of := outflowFetcher.NewOutflowFetcher(cfg, store, nil, sink, l)

		updated, err := of.FetchOutflows(ctx, client, endDate)
		if err != nil {
			return fmt.Errorf("failed to fetch outflows: %w", err)
		}

		l.Sugar().Infow("Outflow fetch complete",
			zap.String("endDate", endDate.Format(types.DateFormat)),
			zap.Int("updated", updated),
		)
		return nil
	},
}

func initFetchOutflowsCmd(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(config.KebabToSnakeCase(f.Name), f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(f.Name); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}
