package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRun(t *testing.T) {
	okBefore := testutil.ToFloat64(Runs.WithLabelValues("ok"))
	errBefore := testutil.ToFloat64(Runs.WithLabelValues("error"))

	ObserveRun(nil)
	ObserveRun(errors.New("boom"))
	ObserveRun(nil)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(Runs.WithLabelValues("ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(Runs.WithLabelValues("error")))
}

func TestObserveStep(t *testing.T) {
	ObserveStep("manifest", 250*time.Millisecond, nil)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(StepDuration), 1)
}
