package main

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestSetup_BuildFailureLeavesNoMetricsListener(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("EULERGEN_DATABASE_DSN", "")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	// postgres without a DSN passes validation but cannot be opened
	require.NoError(t, os.WriteFile(cfgPath, []byte("database:\n  enabled: true\n  driver: postgres\n"), 0644))

	addr := freeAddr(t)
	g := &Globals{
		Config:      cfgPath,
		Destination: filepath.Join(dir, "out"),
		MetricsAddr: addr,
	}

	rt, cleanup, err := g.setup(context.Background())
	require.Error(t, err)
	assert.Nil(t, rt)
	assert.Nil(t, cleanup)

	conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
	if err == nil {
		_ = conn.Close()
	}
	assert.Error(t, err)
}

func TestSetup_ServesMetricsAfterBuild(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")

	dir := t.TempDir()
	addr := freeAddr(t)
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("generator:\n  workers: 2\n"), 0644))
	g := &Globals{
		Config:      cfgPath,
		Destination: filepath.Join(dir, "out"),
		MetricsAddr: addr,
	}

	rt, cleanup, err := g.setup(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rt)
	defer cleanup()

	assert.Eventually(t, func() bool {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 2*time.Second, 20*time.Millisecond)
}
