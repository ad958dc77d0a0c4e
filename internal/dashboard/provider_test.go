package dashboard_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsedash/pulsedash/internal/dashboard"
	"github.com/pulsedash/pulsedash/internal/freshness"
)

func TestSnapshotProviderRefreshWithoutExportBackend(t *testing.T) {
	guard := freshness.NewGuard("letmein", "")
	provider := dashboard.NewSnapshotProvider(filepath.Join(t.TempDir(), "result.csv"), mustConverter(t), guard, nil)

	// A wrong credential is still rejected first.
	err := provider.Refresh(context.Background(), "wrong")
	assert.ErrorIs(t, err, freshness.ErrBadCredential)

	// A correct credential must not claim success when nothing can export.
	err = provider.Refresh(context.Background(), "letmein")
	assert.ErrorIs(t, err, dashboard.ErrRefreshUnsupported)
}

func TestSnapshotProviderRefreshRequestsExport(t *testing.T) {
	guard := freshness.NewGuard("letmein", "")
	requested := 0
	provider := dashboard.NewSnapshotProvider(filepath.Join(t.TempDir(), "result.csv"), mustConverter(t), guard, func(ctx context.Context) error {
		requested++
		return nil
	})

	require.NoError(t, provider.Refresh(context.Background(), "letmein"))
	assert.Equal(t, 1, requested)
}
