package ddcci

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryStatsDefaultCaps(t *testing.T) {
	r := NewRetryStats()
	for c := OpClass(0); c < numOpClasses; c++ {
		assert.Equal(t, DefaultCap, r.GetCap(c))
	}
}

func TestRetryStatsSetCapBounds(t *testing.T) {
	r := NewRetryStats()
	require.NoError(t, r.SetCap(ClassWriteRead, MaxCap))
	assert.Equal(t, MaxCap, r.GetCap(ClassWriteRead))

	require.Error(t, r.SetCap(ClassWriteRead, 0))
	require.Error(t, r.SetCap(ClassWriteRead, MaxCap+1))
}

func TestRetryStatsRecordHistogram(t *testing.T) {
	r := NewRetryStats()
	r.Record(ClassWriteOnly, KindNone, 1)
	r.Record(ClassWriteOnly, KindNone, 2)
	r.Record(ClassWriteOnly, KindChecksum, 2)

	report := r.Report(1)
	assert.Contains(t, report, "write-only")
	assert.Contains(t, report, "Checksum: 1")
}

func TestRetryStatsResetRestoresDefaults(t *testing.T) {
	r := NewRetryStats()
	require.NoError(t, r.SetCap(ClassWriteRead, 7))
	r.Record(ClassWriteRead, KindChecksum, 3)

	r.Reset()
	assert.Equal(t, DefaultCap, r.GetCap(ClassWriteRead))
	assert.NotContains(t, r.Report(1), "Checksum")
}

func TestRetryBudgetLaw(t *testing.T) {
	// After exactly cap retryable failures, Record is called once with the
	// aggregated Retries status at the cap'th attempt.
	r := NewRetryStats()
	capN := r.GetCap(ClassWriteRead)
	r.Record(ClassWriteRead, KindRetries, capN)
	assert.Contains(t, r.Report(0), "succeeded/terminated on attempt")
}

func TestRetryStatsConcurrentAccess(t *testing.T) {
	r := NewRetryStats()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Record(ClassWriteOnly, KindNone, 1)
		}()
	}
	wg.Wait()
	assert.Contains(t, r.Report(0), "write-only")
}
