package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yahgwai/aep-fee-tracker-sub001/internal/config"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/logger"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/metrics"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/metrics/prometheus"
	"github.com/yahgwai/aep-fee-tracker-sub001/internal/version"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/balanceFetcher"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/clients/ethereum"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/fileStore"
	"github.com/yahgwai/aep-fee-tracker-sub001/pkg/types"
)

var fetchBalancesCmd = &cobra.Command{
	Use:   "fetch-balances",
	Short: "Record distributor balances at each indexed date's closing block",
	Long:  "Fetch the balance of every registered distributor at each indexed date's closing block, from its discovery date through the end date. Balances already recorded are never refetched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		initFetchBalancesCmd(cmd)
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
		date := endDate.Format(types.DateFormat)

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

		index, err := store.ReadBlockNumbers()
		if err != nil {
			return err
		}
		if index == nil {
			return errors.New("Block numbers data not found")
		}
		registry, err := store.ReadDistributors()
		if err != nil {
			return err
		}
		if registry == nil {
			return errors.New("Distributors data not found")
		}

		bf := balanceFetcher.NewBalanceFetcher(cfg, store, nil, sink, l)

		bar := progressbar.Default(int64(registry.Distributors.Len()), "fetching balances")
		updated := 0
		for pair := registry.Distributors.Oldest(); pair != nil; pair = pair.Next() {
			changed, err := bf.FetchBalancesForDistributor(ctx, client, index, registry.Metadata.ChainId, pair.Value, date)
			if err != nil {
				fmt.Println()
				return fmt.Errorf("failed to fetch balances for %s: %w", pair.Key, err)
			}
			if changed {
				updated++
			}
			bar.Add(1) //nolint:errcheck
		}
		fmt.Println()

		l.Sugar().Infow("Balance fetch complete",
			zap.String("endDate", date),
			zap.Int("distributors", registry.Distributors.Len()),
			zap.Int("updated", updated),
		)
		return nil
	},
}

func initFetchBalancesCmd(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if err := viper.BindPFlag(config.KebabToSnakeCase(f.Name), f); err != nil {
			fmt.Printf("Failed to bind flag '%s' - %+v\n", f.Name, err)
		}
		if err := viper.BindEnv(f.Name); err != nil {
			fmt.Printf("Failed to bind env '%s' - %+v\n", f.Name, err)
		}
	})
}
