package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollectorsAccumulate(t *testing.T) {
	Init()

	before := testutil.ToFloat64(submissionsTotal.WithLabelValues("success"))
	ObserveSubmission("success", 120*time.Millisecond)
	ObserveSubmission("success", 80*time.Millisecond)
	require.Equal(t, before+2, testutil.ToFloat64(submissionsTotal.WithLabelValues("success")))

	beforeRetries := testutil.ToFloat64(submissionRetriesTotal)
	IncRetry()
	require.Equal(t, beforeRetries+1, testutil.ToFloat64(submissionRetriesTotal))

	beforeDiscovered := testutil.ToFloat64(urlsDiscoveredTotal)
	AddDiscovered(42)
	require.Equal(t, beforeDiscovered+42, testutil.ToFloat64(urlsDiscoveredTotal))

	beforeRuns := testutil.ToFloat64(runsTotal.WithLabelValues("ok"))
	IncRun("ok")
	require.Equal(t, beforeRuns+1, testutil.ToFloat64(runsTotal.WithLabelValues("ok")))
}
