package prometheus

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/session"
	"github.com/MrEthical07/goSession/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	snapshot goSession.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goSession.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                       { return f.dropped }

func TestCollectorDisabledMetricsOnlyReportsDrops(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters:   map[goSession.MetricID]uint64{},
			Histograms: map[goSession.MetricID][]uint64{},
		},
	})
	assert.Equal(t, 1, testutil.CollectAndCount(c))
}

func TestCollectorCountersAndHistogram(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricSignInSuccess: 7,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricValidateLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)

	byName := map[string]float64{}
	var histCount uint64
	var firstBucket uint64
	for _, mf := range families {
		m := mf.GetMetric()[0]
		switch {
		case m.GetCounter() != nil:
			byName[mf.GetName()] = m.GetCounter().GetValue()
		case m.GetHistogram() != nil:
			histCount = m.GetHistogram().GetSampleCount()
			firstBucket = m.GetHistogram().GetBucket()[0].GetCumulativeCount()
		}
	}

	assert.Equal(t, 7.0, byName["gosession_sign_in_success_total"])
	assert.Equal(t, 0.0, byName["gosession_sign_out_total"])
	assert.Equal(t, 2.0, byName["gosession_audit_dropped_total"])
	assert.Equal(t, uint64(36), histCount)
	assert.Equal(t, uint64(1), firstBucket)
}

func TestHandlerServesManagerMetrics(t *testing.T) {
	cfg := goSession.DefaultConfig()
	cfg.Secrets = token.Secrets{Key32: "0123456789abcdef0123456789abcdef", Key16: "0123456789abcdef"}
	cfg.Metrics.Enabled = true

	store, err := session.NewFileStore(t.TempDir())
	require.NoError(t, err)
	m, err := goSession.New().
		WithConfig(cfg).
		WithUserProvider(goSession.UserProviderFunc(func(_ context.Context, id string) (*goSession.User, error) {
			return &goSession.User{ID: id}, nil
		})).
		WithStore(store).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	_, err = m.SignInUser(context.Background(), "alice")
	require.NoError(t, err)

	h, err := Handler(NewCollector(m))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "gosession_sign_in_success_total 1"), rec.Body.String())
}

func BenchmarkCollect(b *testing.B) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goSession.MetricsSnapshot{
			Counters: map[goSession.MetricID]uint64{
				goSession.MetricSignInSuccess:   1000,
				goSession.MetricValidateSuccess: 40000,
				goSession.MetricSessionRenewed:  800,
			},
			Histograms: map[goSession.MetricID][]uint64{
				goSession.MetricValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})
	reg := prometheus.NewRegistry()
	if err := reg.Register(c); err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := reg.Gather(); err != nil {
			b.Fatal(err)
		}
	}
}
