package main_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/fwojciec/autotrack"
	main "github.com/fwojciec/autotrack/cmd/autotrack"
	"github.com/fwojciec/autotrack/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCmd_Run(t *testing.T) {
	t.Parallel()

	t.Run("stops serving when the context is canceled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		stdout := &bytes.Buffer{}
		deps := &main.Dependencies{
			Ctx:      ctx,
			Stdout:   stdout,
			Stderr:   &bytes.Buffer{},
			Vehicles: &mock.VehicleService{},
			History:  &mock.HistoryService{},
			Crawls: &mock.CrawlService{
				StartFn:  func(context.Context) error { return nil },
				StatusFn: func() autotrack.RunStatus { return autotrack.RunStatus{} },
			},
		}

		err := (&main.ServeCmd{Addr: "127.0.0.1:0", Interval: time.Hour}).Run(deps)
		require.NoError(t, err)

		assert.Contains(t, stdout.String(), "Listening on http://127.0.0.1:")
	})

	t.Run("fails on unusable address", func(t *testing.T) {
		t.Parallel()

		deps := &main.Dependencies{
			Ctx:    context.Background(),
			Stdout: &bytes.Buffer{},
			Stderr: &bytes.Buffer{},
		}

		err := (&main.ServeCmd{Addr: "256.0.0.1:http-alt-invalid"}).Run(deps)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to start server")
	})
}
