package internaldefs

import (
	goSession "github.com/MrEthical07/goSession"
)

// CounterDef names one Manager counter for exporters.
type CounterDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// HistogramDef names one Manager histogram for exporters.
type HistogramDef struct {
	ID   goSession.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter name for audit events lost to a full buffer.
const (
	AuditDroppedName = "gosession_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

var CounterDefs = []CounterDef{
	{ID: goSession.MetricSignInSuccess, Name: "gosession_sign_in_success_total", Help: "Sessions created by sign-in."},
	{ID: goSession.MetricSignInRejected, Name: "gosession_sign_in_rejected_total", Help: "Sign-ins with rejected credentials."},
	{ID: goSession.MetricSignInFailure, Name: "gosession_sign_in_failure_total", Help: "Sign-ins that failed with an error."},
	{ID: goSession.MetricValidateSuccess, Name: "gosession_validate_success_total", Help: "Tokens resolved to a live session."},
	{ID: goSession.MetricValidateRejected, Name: "gosession_validate_rejected_total", Help: "Tokens that did not match a live session."},
	{ID: goSession.MetricValidateFailure, Name: "gosession_validate_failure_total", Help: "Validations that failed with an error."},
	{ID: goSession.MetricSessionRenewed, Name: "gosession_session_renewed_total", Help: "Sessions renewed with a new key."},
	{ID: goSession.MetricRenewConflict, Name: "gosession_renew_conflict_total", Help: "Renewals lost to a concurrent request."},
	{ID: goSession.MetricSignOut, Name: "gosession_sign_out_total", Help: "Sessions removed by sign-out."},
	{ID: goSession.MetricForcedRevocation, Name: "gosession_forced_revocation_total", Help: "Sessions removed by ForceSessionRemove."},
	{ID: goSession.MetricSweepRemoved, Name: "gosession_sweep_removed_total", Help: "Expired or corrupt sessions removed by sweeps."},
	{ID: goSession.MetricSweepFailed, Name: "gosession_sweep_failed_total", Help: "Sessions a sweep failed to inspect or remove."},
	{ID: goSession.MetricAccessGranted, Name: "gosession_access_granted_total", Help: "Granted access decisions."},
	{ID: goSession.MetricAccessDenied, Name: "gosession_access_denied_total", Help: "Denied access decisions."},
	{ID: goSession.MetricCallbackTimeout, Name: "gosession_callback_timeout_total", Help: "Host callbacks that exceeded their timeout."},
}

var HistogramDefs = []HistogramDef{
	{ID: goSession.MetricValidateLatency, Name: "gosession_validate_latency_seconds", Help: "Validate latency histogram."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The eighth bucket is
// the overflow.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
