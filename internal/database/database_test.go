package database

import (
	"context"
	"math/big"
	"os"
	"strconv"
	"testing"
	"time"

	"yapp-query/internal/config"
	"yapp-query/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestConnString(t *testing.T) {
	cfg := config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "account_query", SSLMode: "disable"}
	require.Equal(t, "host=db port=5433 user=u password=p dbname=account_query sslmode=disable", ConnString(cfg))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestBigString(t *testing.T) {
	require.Equal(t, "0", bigString(nil))
	n, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.Equal(t, "123456789012345678901234567890", bigString(n))
}

// TestStore_EmitEvent runs against a real Postgres when TEST_DB_HOST is set.
func TestStore_EmitEvent(t *testing.T) {
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("TEST_DB_PORT"))
	if port == 0 {
		port = 5432
	}
	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     os.Getenv("TEST_DB_USER"),
		Password: os.Getenv("TEST_DB_PASSWORD"),
		DBName:   os.Getenv("TEST_DB_NAME"),
		SSLMode:  "disable",
	}
	logger := zerolog.New(nil)
	store, err := Open(cfg, &logger)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.RunMigrations())
	require.NoError(t, store.Ping(context.Background()))

	ctx := context.Background()
	addr := common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
	at := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, store.EmitEvent(ctx, models.QueryEvent{Kind: models.EventNameResolved, Name: "vitalik.eth", Address: &addr, At: at}))
	require.NoError(t, store.EmitEvent(ctx, models.QueryEvent{
		Kind:    models.EventBalances,
		Address: &addr,
		At:      at,
		Balances: []models.BalanceEntry{
			{ChainID: 1, Symbol: "ETH", RawAmount: big.NewInt(1500), Decimals: 3, FormattedAmount: "1.5"},
			{ChainID: 8453, Symbol: "ETH", RawAmount: big.NewInt(2), Decimals: 0, FormattedAmount: "2"},
		},
	}))
	require.NoError(t, store.EmitEvent(ctx, models.QueryEvent{Kind: models.EventStateReset}))

	resolutions, err := store.GetResolutions(ctx, "vitalik.eth", 1)
	require.NoError(t, err)
	require.Len(t, resolutions, 1)
	require.Equal(t, addr.Hex(), resolutions[0].Address)

	balances, err := store.GetLatestBalances(ctx, addr.Hex())
	require.NoError(t, err)
	require.Len(t, balances, 2)
	require.Equal(t, "1500", balances[0].RawAmount)
}
