package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"github.com/and161185/myflix/migrations"
)

func TestUp_RejectsNilDB(t *testing.T) {
	t.Parallel()
	require.Error(t, up(context.Background(), nil, migrations.FS))
}

func TestUp_RejectsEmptyFS(t *testing.T) {
	t.Parallel()
	require.Error(t, up(context.Background(), nil, fstest.MapFS{}))
}
