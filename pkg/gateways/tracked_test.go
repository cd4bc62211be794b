package gateways

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kgateway-dev/gwsuite/pkg/apim"
)

func TestTrackedServicesAreOrderedByID(t *testing.T) {
	m := &mesh{services: map[string]apim.Service{}}
	for _, id := range []int64{math.MaxInt64, 7, -1, math.MinInt64} {
		m.track(apim.Service{ID: id})
	}

	var ids []int64
	for _, svc := range m.tracked() {
		ids = append(ids, svc.ID)
	}
	require.Equal(t, []int64{math.MinInt64, -1, 7, math.MaxInt64}, ids)
}
