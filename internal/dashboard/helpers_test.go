package dashboard_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pulsedash/pulsedash/internal/localtime"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mustConverter(t *testing.T) *localtime.Converter {
	t.Helper()
	conv, err := localtime.NewConverter("America/New_York")
	require.NoError(t, err)
	return conv
}
