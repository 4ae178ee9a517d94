package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clubpataamiga/pataamiga-backend/pkg/config"
	"github.com/clubpataamiga/pataamiga-backend/pkg/logger"
)

func newRuntime(buf *bytes.Buffer) *Runtime {
	return &Runtime{
		Service: "test",
		Config:  &config.Config{},
		Logger:  logger.New(logger.Options{ServiceName: "test", Output: buf}),
	}
}

func TestCloseRunsInReverseAndJoinsErrors(t *testing.T) {
	rt := newRuntime(&bytes.Buffer{})
	var order []string
	rt.OnClose("database", func() error { order = append(order, "database"); return errors.New("db busy") })
	rt.OnClose("redis", func() error { order = append(order, "redis"); return nil })
	rt.OnClose("pubsub", func() error { order = append(order, "pubsub"); return errors.New("stream open") })

	err := rt.Close()
	require.Error(t, err)
	assert.Equal(t, []string{"pubsub", "redis", "database"}, order)
	assert.Contains(t, err.Error(), "close database: db busy")
	assert.Contains(t, err.Error(), "close pubsub: stream open")

	assert.NoError(t, rt.Close())
	assert.Len(t, order, 3)
}

func TestRunExitCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "clean", want: 0},
		{name: "canceled", err: context.Canceled, want: 0},
		{name: "failure", err: errors.New("listener closed"), want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			rt := newRuntime(&buf)
			closed := false
			code := rt.run(func(ctx context.Context, rt *Runtime) error {
				rt.OnClose("probe", func() error { closed = true; return nil })
				return tc.err
			})
			assert.Equal(t, tc.want, code)
			assert.True(t, closed)
			assert.Contains(t, buf.String(), `"serviceKind":"test"`)
		})
	}
}
