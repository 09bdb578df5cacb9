package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveStatement(t *testing.T) {
	okBefore := testutil.ToFloat64(StatementsTotal.WithLabelValues("exec", StatusOK))
	errBefore := testutil.ToFloat64(StatementsTotal.WithLabelValues("exec", StatusError))

	ObserveStatement("exec", time.Now(), nil)
	ObserveStatement("exec", time.Now(), errors.New("boom"))
	ObserveStatement("exec", time.Now(), nil)

	assert.Equal(t, okBefore+2, testutil.ToFloat64(StatementsTotal.WithLabelValues("exec", StatusOK)))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(StatementsTotal.WithLabelValues("exec", StatusError)))
}
