package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	ok := func(context.Context) error { return nil }
	svc := NewHealthService(Deps{DBCheck: ok, PoolCount: func() int { return 3 }})
	res := svc.Check(context.Background())
	require.Equal(t, "ok", res.Status)
	require.Equal(t, "ok", res.Components["store"])
	require.NotContains(t, res.Components, "cache")
	require.Equal(t, 3, res.TenantPools)

	svc = NewHealthService(Deps{DBCheck: ok, CacheCheck: func(context.Context) error { return errors.New("redis down") }})
	res = svc.Check(context.Background())
	require.Equal(t, "degraded", res.Status)
	require.Equal(t, "down", res.Components["cache"])
}
