package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	Observe("stake_test", 100, 0.01, nil)
	Observe("stake_test", 50, 0.02, nil)
	Observe("stake_test", 70, 0.01, errors.New("saldo insuficiente"))

	assert.Equal(t, 2.0, testutil.ToFloat64(operations.WithLabelValues("stake_test", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(operations.WithLabelValues("stake_test", "error")))
	assert.Equal(t, 150.0, testutil.ToFloat64(tokensMoved.WithLabelValues("stake_test")))
}
