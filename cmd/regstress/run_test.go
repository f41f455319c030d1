package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/saylorsolutions/intercept/bus"
	"github.com/saylorsolutions/intercept/events"
	"github.com/saylorsolutions/intercept/internal/logx"
	"github.com/saylorsolutions/intercept/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(policy events.DispatchPolicy, churn bool) Config {
	cfg := DefaultConfig()
	cfg.Buses = 3
	cfg.Handlers = 4
	cfg.Dispatches = 500
	cfg.Workers = 3
	cfg.Policy = policy.String()
	cfg.Churn = churn
	return cfg
}

func TestRun(t *testing.T) {
	for _, policy := range []events.DispatchPolicy{events.SnapshotDispatch, events.HoldLockDispatch} {
		for _, churn := range []bool{false, true} {
			name := policy.String()
			if churn {
				name += "_churn"
			}
			t.Run(name, func(t *testing.T) {
				cfg := testConfig(policy, churn)
				hub := bus.NewHub(logx.Discard(), events.WithDispatchPolicy(policy))
				defer func() {
					assert.NoError(t, hub.Close())
				}()

				report, err := Run(context.Background(), cfg, hub, logx.Discard())
				require.NoError(t, err)
				assert.Equal(t, int64(cfg.Buses*cfg.Dispatches), report.Dispatched)
				assert.Zero(t, report.Mismatched)
				assert.Equal(t, policy, report.Policy)
				assert.Empty(t, hub.Buses(), "Run should close its buses")
				if !churn {
					assert.Zero(t, report.Churned)
				}
			})
		}
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	hub := bus.NewHub(logx.Discard())
	_, err := Run(ctx, testConfig(events.SnapshotDispatch, true), hub, logx.Discard())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_ClosedHub(t *testing.T) {
	hub := bus.NewHub(logx.Discard())
	require.NoError(t, hub.Close())
	_, err := Run(context.Background(), testConfig(events.SnapshotDispatch, false), hub, logx.Discard())
	assert.ErrorIs(t, err, bus.ErrClosed)
}

func TestReport_Print(t *testing.T) {
	var buf bytes.Buffer
	Report{Policy: events.HoldLockDispatch, Buses: 1, Handlers: 2, Dispatched: 10, Elapsed: time.Second}.Print(&buf)
	assert.Contains(t, buf.String(), "hold")
	assert.Contains(t, buf.String(), "10/s")
	assert.Contains(t, buf.String(), "verified")

	buf.Reset()
	Report{Mismatched: 3}.Print(&buf)
	assert.Contains(t, buf.String(), "MISMATCHED:  3")
	assert.Zero(t, Report{}.Rate())
}

func TestServeMetrics(t *testing.T) {
	var (
		col     = metrics.NewCollector("regstress")
		promReg = prometheus.NewRegistry()
		hub     = bus.NewHub(logx.Discard(), events.WithObserver(col))
	)
	promReg.MustRegister(col)
	_, err := Run(context.Background(), testConfig(events.SnapshotDispatch, false), hub, logx.Discard())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		served <- serveMetrics(ctx, ln, promReg)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `regstress_dispatches_total{kind="main.workload",result="ok"} 1500`)

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Server didn't shut down")
	}
}

func TestMainRun(t *testing.T) {
	var (
		stdout  bytes.Buffer
		logFile = filepath.Join(t.TempDir(), "regstress.log")
	)
	err := run(context.Background(), []string{"--buses", "2", "--dispatches", "20", "--log-format", "text", "--log-file", logFile}, &stdout, io.Discard)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "dispatched:  40")

	logs, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(logs), `"msg":"Starting run"`)
}
