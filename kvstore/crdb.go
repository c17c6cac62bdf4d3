package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgx"
	"github.com/danthegoodman1/icetable/crdb"
	"github.com/danthegoodman1/icetable/utils"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

type (
	// CRDBKVStore keeps values in the table_state_kv table created by the migrations package.
	CRDBKVStore struct {
		pool *pgxpool.Pool
	}
)

// NewCRDBKVStore uses the pool opened by crdb.ConnectToDB.
func NewCRDBKVStore() (*CRDBKVStore, error) {
	if crdb.PGPool == nil {
		if err := crdb.ConnectToDB(); err != nil {
			return nil, fmt.Errorf("error in crdb.ConnectToDB: %w", err)
		}
	}
	return &CRDBKVStore{pool: crdb.PGPool}, nil
}

func (cks *CRDBKVStore) Get(ctx context.Context, key string) (string, error) {
	var value pgtype.Text
	err := utils.ReliableExec(ctx, cks.pool, crdb.StandardContextTimeout, func(ctx context.Context, conn *pgxpool.Conn) error {
		err := conn.QueryRow(ctx, `SELECT value FROM table_state_kv WHERE key = $1`, key).Scan(&value)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("error in ReliableExec: %w", err)
	}
	if value.Status != pgtype.Present {
		return "", ErrNotFound
	}
	return value.String, nil
}

func (cks *CRDBKVStore) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, crdb.StandardContextTimeout)
	defer cancel()

	err := crdbpgx.ExecuteTx(ctx, cks.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPSERT INTO table_state_kv (key, value, updated_at) VALUES ($1, $2, $3)`, key, value, time.Now())
		return err
	})
	if err != nil {
		return fmt.Errorf("error in crdbpgx.ExecuteTx: %w", err)
	}
	return nil
}

func (cks *CRDBKVStore) Shutdown(_ context.Context) error {
	cks.pool.Close()
	return nil
}
