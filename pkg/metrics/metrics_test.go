package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDecision(t *testing.T) {
	t.Run("should count decisions per label set", func(t *testing.T) {
		before := testutil.ToFloat64(DecisionsTotal.WithLabelValues("test-pass", "union", "auto_accept"))
		RecordDecision("test-pass", "union", "auto_accept")
		RecordDecision("test-pass", "union", "auto_accept")
		RecordDecision("test-pass", "union", "reject")

		assert.Equal(t, before+2, testutil.ToFloat64(DecisionsTotal.WithLabelValues("test-pass", "union", "auto_accept")))
	})
}

func TestRecordPass(t *testing.T) {
	t.Run("should track the reference set size", func(t *testing.T) {
		RecordPass("size-pass", "success", 1.5, 42)
		assert.Equal(t, float64(42), testutil.ToFloat64(ReferenceSetSize.WithLabelValues("size-pass")))
	})
}
