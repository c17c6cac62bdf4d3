package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danthegoodman1/icetable/crdb"
	"github.com/danthegoodman1/icetable/gologger"
	"github.com/danthegoodman1/icetable/http_server"
	"github.com/danthegoodman1/icetable/kvstore"
	"github.com/danthegoodman1/icetable/migrations"
	"github.com/danthegoodman1/icetable/normalizer"
	"github.com/danthegoodman1/icetable/utils"
)

var logger = gologger.NewLogger()

func main() {
	logger.Debug().Msg("starting icetable api")

	normalizer.RegisterFunctions()

	if utils.KV_BACKEND == "crdb" {
		if err := crdb.ConnectToDB(); err != nil {
			logger.Error().Err(err).Msg("error connecting to CRDB")
			os.Exit(1)
		}

		if utils.CRDB_RUN_MIGRATIONS {
			n, err := migrations.RunMigrations(utils.CRDB_DSN)
			if err != nil {
				logger.Error().Err(err).Msg("Error running migrations")
				os.Exit(1)
			}
			logger.Info().Int("applied", n).Msg("ran migrations")
		} else if err := migrations.CheckMigrations(utils.CRDB_DSN); err != nil {
			logger.Error().Err(err).Msg("Error checking migrations")
			os.Exit(1)
		}
	}

	bootCtx, bootCancel := context.WithTimeout(context.Background(), time.Second*30)
	kv, err := kvstore.NewFromEnv(bootCtx)
	bootCancel()
	if err != nil {
		logger.Error().Err(err).Msg("error building kv store")
		os.Exit(1)
	}

	httpServer := http_server.StartHTTPServer(kv)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Warn().Msg("received shutdown signal!")

	// For AWS ALB needing some time to de-register pod
	sleepTime := utils.SHUTDOWN_SLEEP_SEC
	logger.Info().Msg(fmt.Sprintf("sleeping for %ds before exiting", sleepTime))

	time.Sleep(time.Second * time.Duration(sleepTime))
	logger.Info().Msg(fmt.Sprintf("slept for %ds, exiting", sleepTime))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown HTTP server")
	} else {
		logger.Info().Msg("successfully shutdown HTTP server")
	}

	if err := kv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown kv store")
	} else {
		logger.Info().Msg("successfully shutdown kv store")
	}
}
