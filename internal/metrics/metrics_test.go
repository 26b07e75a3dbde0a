package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveStage(t *testing.T) {
	okBefore := testutil.ToFloat64(StageRuns.WithLabelValues("test_stage", OutcomeSuccess))
	failBefore := testutil.ToFloat64(StageRuns.WithLabelValues("test_stage", OutcomeFailure))

	ObserveStage("test_stage", time.Now(), nil)
	ObserveStage("test_stage", time.Now(), errors.New("boom"))
	ObserveStage("test_stage", time.Now(), errors.New("boom"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(StageRuns.WithLabelValues("test_stage", OutcomeSuccess)))
	assert.Equal(t, failBefore+2, testutil.ToFloat64(StageRuns.WithLabelValues("test_stage", OutcomeFailure)))
}
