package repository

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"farmstand/internal/database"
	"farmstand/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "farmstand"
		dbPwd  = "password"
		dbUser = "user"
	)

	ctx := context.Background()
	dbContainer, err := postgres.Run(
		ctx,
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	connStr, err := dbContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return dbContainer.Terminate, err
	}

	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	if err := database.RunMigrations(testDB, zap.NewNop()); err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Printf("postgres container unavailable, skipping postgres tests: %v", err)
		testDB = nil
	}

	code := m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Printf("could not teardown postgres container: %v", err)
		}
	}
	os.Exit(code)
}

func requireTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres container not available")
	}
	return testDB
}

func TestPostgresCartBackend_RoundTrip(t *testing.T) {
	db := requireTestDB(t)
	ctx := context.Background()
	backend := NewPostgresCartBackend(db)
	repo := backend.ForCart("pg-roundtrip")

	lines, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)

	want := domain.CartLines{{ProductID: "8", Quantity: 1}, {ProductID: "2", Quantity: 4}, {ProductID: "5", Quantity: 2}}
	require.NoError(t, repo.Save(ctx, want))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got, "lines should come back in saved order")

	require.NoError(t, repo.Save(ctx, domain.CartLines{{ProductID: "5", Quantity: 7}}))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CartLines{{ProductID: "5", Quantity: 7}}, got)

	require.NoError(t, repo.Save(ctx, domain.CartLines{}))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPostgresCartBackend_RejectsNonPositiveQuantity(t *testing.T) {
	db := requireTestDB(t)
	ctx := context.Background()
	repo := NewPostgresCartBackend(db).ForCart("pg-check")

	require.NoError(t, repo.Save(ctx, domain.CartLines{{ProductID: "1", Quantity: 1}}))

	err := repo.Save(ctx, domain.CartLines{{ProductID: "1", Quantity: 0}})
	assert.Error(t, err)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CartLines{{ProductID: "1", Quantity: 1}}, got, "failed save must roll back")
}

func TestPostgresCartBackend_PurgeProduct(t *testing.T) {
	db := requireTestDB(t)
	ctx := context.Background()
	backend := NewPostgresCartBackend(db)

	require.NoError(t, backend.ForCart("pg-a").Save(ctx, domain.CartLines{{ProductID: "1", Quantity: 1}, {ProductID: "7", Quantity: 3}}))
	require.NoError(t, backend.ForCart("pg-b").Save(ctx, domain.CartLines{{ProductID: "7", Quantity: 1}}))

	require.NoError(t, backend.PurgeProduct(ctx, "7"))

	a, err := backend.ForCart("pg-a").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CartLines{{ProductID: "1", Quantity: 1}}, a)

	b, err := backend.ForCart("pg-b").Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestPostgresCartBackend_ConcurrentUpdates(t *testing.T) {
	db := requireTestDB(t)
	ctx := context.Background()
	backend := NewPostgresCartBackend(db)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 20; i++ {
		repo := backend.ForCart("pg-concurrent")
		g.Go(func() error {
			return repo.Update(gctx, func(lines domain.CartLines) domain.CartLines {
				return lines.Add("3", 1)
			})
		})
	}
	require.NoError(t, g.Wait())

	got, err := backend.ForCart("pg-concurrent").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CartLines{{ProductID: "3", Quantity: 20}}, got)
}
