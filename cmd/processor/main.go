package main

import (
	"context"
	"flag"
	"os"

	log "github.com/golang/glog"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/joincivil/civil-debate-processor/pkg/helpers"
	"github.com/joincivil/civil-debate-processor/pkg/metrics"
	"github.com/joincivil/civil-debate-processor/pkg/processormain"
	"github.com/joincivil/civil-debate-processor/pkg/utils"
)

func main() {
	// A missing .env file is fine, the environment is used as is
	_ = godotenv.Load() // nolint: gosec

	config := &utils.ProcessorConfig{}
	flag.Usage = func() {
		config.OutputUsage()
		os.Exit(0)
	}
	flag.Parse()

	err := config.PopulateFromEnv()
	if err != nil {
		config.OutputUsage()
		log.Errorf("Invalid processor config: err: %v\n", err)
		os.Exit(2)
	}

	ctx := context.Background()
	persisters, err := processormain.InitPersisters(ctx, config)
	if err != nil {
		log.Errorf("Error initializing persister: err: %v", err)
		os.Exit(2)
	}
	defer helpers.CloseStateStore(persisters.Store)

	var m *metrics.Metrics
	if config.MetricsAddr != "" {
		registry := prometheus.NewRegistry()
		m = metrics.NewMetrics(registry)
		go func() {
			err := metrics.Serve(config.MetricsAddr, registry)
			if err != nil {
				log.Errorf("Error serving metrics: err: %v", err)
			}
		}()
	}

	ps, err := processormain.InitPubSub(ctx, config)
	if err != nil {
		log.Errorf("Error initializing pubsub: err: %v", err)
		os.Exit(2)
	}
	if ps != nil {
		defer ps.Close() // nolint: errcheck
	}

	publisher, err := processormain.InitModerationEventPublisher(ctx, config, ps)
	if err != nil {
		log.Errorf("Error initializing moderation event publisher: err: %v", err)
		os.Exit(2)
	}

	services, err := processormain.InitServices(config, publisher, m)
	if err != nil {
		log.Errorf("Error initializing services: err: %v", err)
		os.Exit(2)
	}

	switch {
	case config.PubSubTriggerSubName != "":
		err = processormain.ProcessorPubSubMain(config, persisters, services, ps)
	case config.CronConfig != "":
		err = processormain.ProcessorCronMain(config, persisters, services)
	default:
		err = processormain.RunProcessor(ctx, config, persisters, services)
	}
	if err != nil {
		log.Errorf("Error running processor: err: %v", err)
		log.Flush()
		os.Exit(1)
	}
	log.Flush()
}
