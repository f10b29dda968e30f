package main_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fwojciec/autotrack"
	main "github.com/fwojciec/autotrack/cmd/autotrack"
	"github.com/fwojciec/autotrack/reconcile"
	"github.com/fwojciec/autotrack/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain_Run_HelpShowsKongOutput(t *testing.T) {
	t.Parallel()

	m := main.NewMain()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := m.Run(context.Background(), []string{"--help"}, stdout, stderr)
	require.NoError(t, err)

	helpOutput := stdout.String()
	expectedCommands := []string{"serve", "crawl", "list", "show", "history", "stats", "search", "probe"}
	for _, cmd := range expectedCommands {
		assert.Contains(t, helpOutput, cmd, "Help should mention %s command", cmd)
	}
	assert.Contains(t, helpOutput, "Usage:")
	assert.Contains(t, helpOutput, "--db")
}

func TestMain_Run_NoArgs(t *testing.T) {
	t.Parallel()

	m := main.NewMain()
	var stdout, stderr bytes.Buffer

	err := m.Run(context.Background(), []string{}, &stdout, &stderr)

	assert.Error(t, err)
}

func TestMain_Run_RejectsUnknownFetcher(t *testing.T) {
	t.Parallel()

	m := main.NewMain()
	var stdout, stderr bytes.Buffer
	dbPath := filepath.Join(t.TempDir(), "test.db")

	err := m.Run(context.Background(), []string{"--db", dbPath, "--fetcher", "curl", "crawl"}, &stdout, &stderr)

	assert.Error(t, err)
}

// Story: vehicles reconciled into the catalog are visible through the CLI.
func TestMain_Run_ReadCommands(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "nested", "autotrack.db")
	seedCatalog(t, dbPath)

	t.Run("list shows active vehicles", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		err := main.NewMain().Run(context.Background(), []string{"--db", dbPath, "list"}, &stdout, &stderr)
		require.NoError(t, err)

		assert.Contains(t, stdout.String(), "55123456")
		assert.Contains(t, stdout.String(), "Honda Civic EXL")
		assert.Contains(t, stdout.String(), "R$ 80.000")
	})

	t.Run("history shows the added entry", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		err := main.NewMain().Run(context.Background(), []string{"--db", dbPath, "history", "1"}, &stdout, &stderr)
		require.NoError(t, err)

		assert.Contains(t, stdout.String(), "added")
		assert.Contains(t, stdout.String(), "price: R$ 80.000")
	})

	t.Run("show reports missing vehicle", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		err := main.NewMain().Run(context.Background(), []string{"--db", dbPath, "show", "42"}, &stdout, &stderr)

		assert.Equal(t, autotrack.ENOTFOUND, autotrack.ErrorCode(err))
		assert.Contains(t, stderr.String(), "error:")
	})
}

func TestMain_Run_ListEmptyDatabase(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	var stdout, stderr bytes.Buffer

	err := main.NewMain().Run(context.Background(), []string{"--db", dbPath, "list"}, &stdout, &stderr)
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "No vehicles found")
}

// seedCatalog reconciles one listing into a SQLite catalog at path.
func seedCatalog(t *testing.T, path string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	db := sqlite.NewDB(path)
	require.NoError(t, db.Open())
	defer db.Close()

	engine := reconcile.NewEngine(sqlite.NewCatalog(db), nil)
	engine.Now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	price := "R$ 80.000"
	_, err := engine.Reconcile(context.Background(), []*autotrack.Listing{{
		ExternalID: "55123456",
		Title:      "Honda Civic EXL",
		URL:        "https://www.webmotors.com.br/comprar/honda/civic/55123456",
		Price:      &price,
	}})
	require.NoError(t, err)
}
