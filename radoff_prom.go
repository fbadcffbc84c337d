package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alepar/radoff/radoff/config"
	"github.com/alepar/radoff/radoff/entity"
	"github.com/alepar/radoff/radoff/publish"
	"github.com/alepar/radoff/radoff/snapshot"
)

const appName = "radoff_exporter"

// CLI args
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "radoff",
	Short: "Radoff air-quality sensors as Home Assistant entities and Prometheus metrics",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		log.SetLevel(level)
		return nil
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve entities from a device snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "radoff.yaml", "path to the config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd, classifyCmd, rulesCmd, versionCmd)

	//logging
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(formatter)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Infof("starting %s %s", appName, version.Info())

	table := cfg.Table()
	coordinator, err := snapshot.NewCoordinator(cfg.SnapshotPath, cfg.RefreshInterval, cfg.GenerateIndex)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewBuildInfoCollector(), collectors.NewGoCollector())

	prom, err := publish.NewPrometheus(reg)
	if err != nil {
		return errors.Wrap(err, "failed to register metrics")
	}
	publishers := []entity.Publisher{prom}

	if cfg.MQTT.Enabled() {
		client, err := publish.DialMQTT(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.Timeout)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		publishers = append(publishers, publish.NewMQTT(client, publish.MQTTOptions{
			DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
			StatePrefix:     cfg.MQTT.StatePrefix,
			QoS:             cfg.MQTT.QoS,
			Timeout:         cfg.MQTT.Timeout,
		}))
		log.Infof("publishing to mqtt broker %s", cfg.MQTT.Broker)
	}

	if cfg.Kafka.Enabled() {
		writer := publish.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer writer.Close()
		publishers = append(publishers, publish.NewKafka(writer))
		log.Infof("publishing to kafka topic %s", cfg.Kafka.Topic)
	}

	platform := entity.NewPlatform(coordinator, table, publishers...)
	if err := platform.Start(ctx); err != nil {
		return err
	}
	defer platform.Stop()

	srv := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: handlers.LoggingHandler(log.StandardLogger().Writer(), newRouter(platform, table, reg)),
	}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	go func() {
		if err := coordinator.Run(ctx); err != nil {
			log.Errorf("coordinator stopped: %s", err)
		}
	}()

	log.Infof("listening on %s", cfg.ListenAddress)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

func metricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		// Opt into OpenMetrics to support exemplars.
		EnableOpenMetrics: true,
	})
}
