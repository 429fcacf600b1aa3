package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amhaddad/okxbot/position"
	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createClosedTradeTableSQL = "CREATE TABLE IF NOT EXISTS closedtrade (id TEXT PRIMARY KEY, symbol TEXT, entryprice REAL, exitprice REAL, amount REAL, profit REAL, closedat INTEGER)"
	createMetadataTableSQL    = "CREATE TABLE IF NOT EXISTS metadata (id TEXT PRIMARY KEY, total INTEGER, wins INTEGER, winprofit REAL, losses INTEGER, lossprofit REAL, createdon INTEGER)"
	persistClosedTradeSQL     = "INSERT INTO closedtrade(id, symbol, entryprice, exitprice, amount, profit, closedat) VALUES(?,?,?,?,?,?,?)"
	findMetadataSQL           = "SELECT * FROM metadata WHERE id = ?"
	updateMetadataSQL         = "UPDATE metadata SET total = total + 1, wins = wins + ?, winprofit = winprofit + ?, losses = losses + ?, lossprofit = lossprofit + ? WHERE id = ?"
	persistMetadataSQL        = "INSERT INTO metadata(id, total, wins, winprofit, losses, lossprofit, createdon) VALUES(?,?,?,?,?,?,?)"
)

// TradeArchiver defines the requirements for archiving closed trades.
type TradeArchiver interface {
	// ArchiveClosedTrade stores the provided closed trade to the database.
	ArchiveClosedTrade(ctx context.Context, trade *position.ClosedTrade) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the trade archive database connection. The flat file
// ledger stays authoritative, the archive only serves reporting.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the TradeArchiver interface.
var _ TradeArchiver = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createClosedTradeTableSQL},
		{SQL: createMetadataTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// generateMetadataID generates deterministic ids for metadata using the
// current month, week and symbol.
func generateMetadataID(currentTime time.Time, symbol string) string {
	month := currentTime.Month().String()
	week := currentTime.Day() / 7

	id := fmt.Sprintf("%s-Week-%d-%s", month, week, symbol)
	return id
}

// ArchiveClosedTrade stores the provided closed trade to the database and
// rolls it up into the win/loss metadata for its symbol.
func (db *Database) ArchiveClosedTrade(ctx context.Context, trade *position.ClosedTrade) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL: persistClosedTradeSQL,
			PositionalParams: []any{uuid.New().String(), trade.Symbol, trade.EntryPrice,
				trade.ExitPrice, trade.Amount, trade.Profit, trade.ClosedAt.Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	var win, loss int
	var winProfit, lossProfit float64

	switch {
	case trade.Profit > 0:
		win++
		winProfit = trade.Profit
	case trade.Profit < 0:
		loss++
		lossProfit = trade.Profit
	default:
		db.cfg.Logger.Info().Msgf("break even trade excluded from win/loss metadata: %s",
			spew.Sdump(trade))
	}

	id := generateMetadataID(trade.ClosedAt, trade.Symbol)
	resp, err := db.client.QuerySingle(ctx, findMetadataSQL, id)
	if err != nil {
		return err
	}

	exists := len(resp.GetQueryResultsAssoc()) > 0
	switch {
	case exists:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              updateMetadataSQL,
				PositionalParams: []any{win, winProfit, loss, lossProfit, id},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("updating metadata %s: %d -> %s", id, idx, errStr)
		}
	default:
		resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
			{
				SQL:              persistMetadataSQL,
				PositionalParams: []any{id, 1, win, winProfit, loss, lossProfit, trade.ClosedAt.Unix()},
			},
		}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
		if err != nil {
			return err
		}
		has, idx, errStr := resp.HasError()
		if has {
			return fmt.Errorf("persisting metadata %s: %d -> %s", id, idx, errStr)
		}
	}

	return nil
}

// MetadataID derives the metadata rollup id a trade contributes to, exposed
// for reporting queries.
func MetadataID(trade *position.ClosedTrade) string {
	return generateMetadataID(trade.ClosedAt, trade.Symbol)
}
