package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"yapp-query/internal/api"
	"yapp-query/internal/config"
	"yapp-query/internal/database"
	"yapp-query/internal/emitters"
	"yapp-query/internal/events"
	"yapp-query/internal/health"
	"yapp-query/internal/indexer"
	"yapp-query/internal/logger"
	"yapp-query/internal/models"
	"yapp-query/internal/service"

	"github.com/spf13/cobra"
)

const probeInterval = 30 * time.Second

func newRootCmd() *cobra.Command {
	var a *app

	root := &cobra.Command{
		Use:           "yapp-query",
		Short:         "Multi-chain account query service",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger.InitWithWriter(cfg.LogLevel, cmd.ErrOrStderr())

			a, err = newApp(cfg)
			return err
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a != nil {
				a.Close()
			}
		},
	}

	get := func() *app { return a }
	root.AddCommand(
		newServeCmd(get),
		newResolveCmd(get),
		newBalancesCmd(get),
		newCounterCmd(get),
		newIndexerURLCmd(get),
		newPaymentsCmd(get),
	)
	return root
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newServeCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := get()
			log := logger.GetLogger()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			tracker := health.NewTracker(a.registry, logger.Component("health"))
			sinks := events.FanoutEmitter{tracker}
			var store *database.Store

			if a.cfg.Kafka.Enabled {
				kafka := emitters.NewKafkaEmitter(a.cfg.Kafka.BrokerAddress, a.cfg.Kafka.Topic,
					a.cfg.Kafka.BatchSize, a.cfg.Kafka.BatchTimeout, logger.Component("kafka"))
				defer kafka.Close()
				sinks = append(sinks, kafka)
			}

			if a.cfg.Database.Enabled {
				var err error
				store, err = database.Open(a.cfg.Database, logger.Component("database"))
				if err != nil {
					return err
				}
				defer store.Close()
				if err := store.RunMigrations(); err != nil {
					return err
				}
				sinks = append(sinks, store)
				tracker.AddCheck("database", store.Ping)
			}

			emitter := &events.PrintEmitter{
				WrappedEmitter: sinks,
				Registry:       a.registry,
				Logger:         logger.Component("events"),
			}
			svc := a.service(emitter, nil)

			tracker.Watch(ctx, a.pool, probeInterval)
			tracker.SetReady(true)

			log.Info().Int("chains", a.registry.Len()).Msg("Starting account query service")
			server := api.NewServer(svc, a.indexer, tracker, a.metrics, logger.Component("api"))
			if store != nil {
				server.WithHistory(store)
			}
			return server.ListenAndServe(ctx, a.cfg.HTTP.ListenAddr)
		},
	}
}

func newResolveCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <name>",
		Short: "Resolve an ENS name to an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := get().resolver.Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr.Hex())
			return nil
		},
	}
}

func newBalancesCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "balances <address|name>",
		Short: "Fetch balances on every configured chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := get().service(nil, nil)
			target, err := balanceTarget(cmd.Context(), svc, args[0])
			if err != nil {
				return err
			}

			report, err := svc.FetchBalances(cmd.Context(), target)
			if err != nil {
				return err
			}
			for _, f := range report.Failures {
				logger.GetLogger().Warn().Uint64("chainId", f.ChainID).Str("kind", f.KindName()).Err(f.Err).Msg("Chain skipped")
			}
			return printJSON(cmd, map[string]interface{}{
				"address":  report.Address.Hex(),
				"entries":  report.Entries,
				"failures": report.FailureInfo(),
			})
		},
	}
}

// balanceTarget resolves input as a name unless it is written as a hex
// address, in which case it must be a valid one.
func balanceTarget(ctx context.Context, svc *service.Service, input string) (string, error) {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(strings.ToLower(input), "0x") {
		addr, err := models.ParseAddress(input)
		if err != nil {
			return "", err
		}
		return addr.Hex(), nil
	}
	addr, err := svc.Resolve(ctx, input)
	if err != nil {
		return "", err
	}
	return addr.Hex(), nil
}

func newCounterCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "counter <chainId>",
		Short: "Read the counter contract on a chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chainID, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid chain id %q", args[0])
			}
			value, err := get().counter.Read(cmd.Context(), chainID)
			if err != nil {
				return err
			}
			return printJSON(cmd, value)
		},
	}
}

func bindIndexerFlags(cmd *cobra.Command, p *indexer.Params) {
	cmd.Flags().StringVar(&p.Sender, "sender", "", "sender ENS name or address")
	cmd.Flags().StringVar(&p.Receiver, "receiver", "", "receiver ENS name or address")
	cmd.Flags().StringSliceVar(&p.TokenOutSymbols, "tokens", nil, "token symbols, e.g. ETH,USDC")
	cmd.Flags().StringSliceVar(&p.SourceChainIDs, "chains", nil, `source chain ids, or "all"`)
}

func newIndexerURLCmd(get func() *app) *cobra.Command {
	var params indexer.Params
	cmd := &cobra.Command{
		Use:   "indexer-url",
		Short: "Print the payments query URL for the given filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params.SourceChainIDs = indexer.SelectMulti(nil, params.SourceChainIDs)
			fmt.Fprintln(cmd.OutOrStdout(), get().indexer.PaymentsURL(params))
			return nil
		},
	}
	bindIndexerFlags(cmd, &params)
	return cmd
}

func newPaymentsCmd(get func() *app) *cobra.Command {
	var params indexer.Params
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Fetch payment history from the indexer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params.SourceChainIDs = indexer.SelectMulti(nil, params.SourceChainIDs)

			ctx, cancel := context.WithTimeout(cmd.Context(), get().cfg.HTTP.Timeout)
			defer cancel()
			resp, err := get().indexer.FetchPayments(ctx, params)
			if err != nil {
				return err
			}
			if !resp.OK() {
				logger.GetLogger().Warn().Int("status", resp.Status).Msg("Indexer returned an error status")
			}
			_, err = cmd.OutOrStdout().Write(append(resp.Body, '\n'))
			return err
		},
	}
	bindIndexerFlags(cmd, &params)
	return cmd
}
