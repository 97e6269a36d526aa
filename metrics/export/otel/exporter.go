package otel

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

// seriesDef maps one Manager counter onto an attribute value of an instrument.
// An empty key means the instrument has a single unlabelled series.
type seriesDef struct {
	id    goSession.MetricID
	key   string
	value string
}

type counterDef struct {
	name   string
	unit   string
	help   string
	series []seriesDef
}

// counterDefs groups the Manager's counters by session operation. Every counter ID
// appears exactly once.
var counterDefs = []counterDef{
	{
		name: "gosession.sign_in", unit: "{attempt}", help: "Sign-in attempts by outcome.",
		series: []seriesDef{
			{goSession.MetricSignInSuccess, "outcome", "success"},
			{goSession.MetricSignInRejected, "outcome", "rejected"},
			{goSession.MetricSignInFailure, "outcome", "failure"},
		},
	},
	{
		name: "gosession.validate", unit: "{token}", help: "Token validations by outcome.",
		series: []seriesDef{
			{goSession.MetricValidateSuccess, "outcome", "success"},
			{goSession.MetricValidateRejected, "outcome", "rejected"},
			{goSession.MetricValidateFailure, "outcome", "failure"},
		},
	},
	{
		name: "gosession.session.renewals", unit: "{session}", help: "Auto-renewals by outcome.",
		series: []seriesDef{
			{goSession.MetricSessionRenewed, "outcome", "renewed"},
			{goSession.MetricRenewConflict, "outcome", "conflict"},
		},
	},
	{
		name: "gosession.session.removals", unit: "{session}", help: "Removed sessions by cause.",
		series: []seriesDef{
			{goSession.MetricSignOut, "cause", "sign_out"},
			{goSession.MetricForcedRevocation, "cause", "forced"},
			{goSession.MetricSweepRemoved, "cause", "sweep"},
		},
	},
	{
		name: "gosession.sweep.failures", unit: "{session}", help: "Sessions a sweep failed to inspect or remove.",
		series: []seriesDef{{id: goSession.MetricSweepFailed}},
	},
	{
		name: "gosession.access.decisions", unit: "{decision}", help: "Access checks by decision.",
		series: []seriesDef{
			{goSession.MetricAccessGranted, "decision", "granted"},
			{goSession.MetricAccessDenied, "decision", "denied"},
		},
	},
	{
		name: "gosession.callback.timeouts", unit: "{call}", help: "Host callbacks that exceeded their timeout.",
		series: []seriesDef{{id: goSession.MetricCallbackTimeout}},
	},
}

type latencyDef struct {
	id   goSession.MetricID
	name string
}

var latencyDefs = []latencyDef{
	{id: goSession.MetricValidateLatency, name: "gosession.validate.duration"},
}

type observedSeries struct {
	id   goSession.MetricID
	opts []metric.ObserveOption
}

type observedCounter struct {
	instrument metric.Int64ObservableCounter
	series     []observedSeries
}

// observedLatency reports the cumulative buckets of one histogram as a gauge with an
// "le" attribute, plus a total count gauge.
type observedLatency struct {
	id      goSession.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
	le      [8]metric.ObserveOption
}

// OTelExporter observes a Manager's counters through an OTel meter on every
// collection.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []observedCounter
	latencies    []observedLatency
	auditDropped metric.Int64ObservableCounter
}

func NewOTelExporter(meter metric.Meter, m *goSession.Manager) (*OTelExporter, error) {
	if m == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, m)
}

func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	var observables []metric.Observable

	for _, def := range counterDefs {
		ins, err := meter.Int64ObservableCounter(def.name, metric.WithUnit(def.unit), metric.WithDescription(def.help))
		if err != nil {
			return nil, fmt.Errorf("create counter %s: %w", def.name, err)
		}
		c := observedCounter{instrument: ins}
		for _, s := range def.series {
			obs := observedSeries{id: s.id}
			if s.key != "" {
				obs.opts = []metric.ObserveOption{
					metric.WithAttributeSet(attribute.NewSet(attribute.String(s.key, s.value))),
				}
			}
			c.series = append(c.series, obs)
		}
		e.counters = append(e.counters, c)
		observables = append(observables, ins)
	}

	for _, def := range latencyDefs {
		l := observedLatency{id: def.id}
		var err error
		l.buckets, err = meter.Int64ObservableGauge(def.name+".bucket",
			metric.WithUnit("{request}"),
			metric.WithDescription("Cumulative latency bucket counts; le is the upper bound in seconds."))
		if err != nil {
			return nil, fmt.Errorf("create latency buckets %s: %w", def.name, err)
		}
		l.count, err = meter.Int64ObservableGauge(def.name+".count",
			metric.WithUnit("{request}"),
			metric.WithDescription("Latency samples recorded."))
		if err != nil {
			return nil, fmt.Errorf("create latency count %s: %w", def.name, err)
		}
		for i := range l.le {
			l.le[i] = metric.WithAttributeSet(attribute.NewSet(attribute.String("le", upperBound(i))))
		}
		e.latencies = append(e.latencies, l)
		observables = append(observables, l.buckets, l.count)
	}

	auditDropped, err := meter.Int64ObservableCounter("gosession.audit.dropped",
		metric.WithUnit("{event}"),
		metric.WithDescription(internaldefs.AuditDroppedHelp))
	if err != nil {
		return nil, fmt.Errorf("create audit dropped counter: %w", err)
	}
	e.auditDropped = auditDropped
	observables = append(observables, auditDropped)

	e.registration, err = meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	return e, nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		for _, s := range c.series {
			o.ObserveInt64(c.instrument, int64(snap.Counters[s.id]), s.opts...)
		}
	}
	for _, l := range e.latencies {
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[l.id]))
		for i, n := range cumulative {
			o.ObserveInt64(l.buckets, int64(n), l.le[i])
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// upperBound renders bucket i's bound in seconds; the last bucket is "+Inf".
func upperBound(i int) string {
	if i >= len(internaldefs.HistogramUpperBounds) {
		return "+Inf"
	}
	return strconv.FormatFloat(internaldefs.HistogramUpperBounds[i], 'g', -1, 64)
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
