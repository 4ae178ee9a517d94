package instance

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetIDPrefersWorkerID(t *testing.T) {
	t.Setenv("WORKER_ID", "cron-1")
	t.Setenv("DYNO", "web.1")
	require.Equal(t, "cron-1", GetID())
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv("WORKER_ID", "")
	t.Setenv("DYNO", "")
	t.Setenv("HOSTNAME", "")
	require.Equal(t, "local", GetID())

	t.Setenv("DYNO", "worker.2")
	require.Equal(t, "worker.2", GetID())
}
