package crdb

import (
	"context"
	"errors"
	"time"

	"github.com/danthegoodman1/icetable/gologger"
	"github.com/danthegoodman1/icetable/utils"
	"github.com/jackc/pgx/v4/pgxpool"
)

var (
	PGPool                 *pgxpool.Pool
	StandardContextTimeout = 10 * time.Second

	ErrMissingDSN = errors.New("CRDB_DSN is not set")

	logger = gologger.NewLogger()
)

func ConnectToDB() error {
	logger.Debug().Msg("connecting to CRDB...")
	if utils.CRDB_DSN == "" {
		return ErrMissingDSN
	}
	var err error
	config, err := pgxpool.ParseConfig(utils.CRDB_DSN)
	if err != nil {
		return err
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.HealthCheckPeriod = time.Second * 5
	config.MaxConnLifetime = time.Minute * 30
	config.MaxConnIdleTime = time.Minute * 30

	ctx, cancel := context.WithTimeout(context.Background(), StandardContextTimeout)
	defer cancel()
	PGPool, err = pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return err
	}
	logger.Debug().Msg("connected to CRDB")
	return nil
}
