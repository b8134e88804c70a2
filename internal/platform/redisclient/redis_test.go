package redisclient

import (
	"testing"

	"github.com/stretchr/testify/require"

	cfgpkg "github.com/tcmtongue/server/pkg/config"
)

func TestNew_UsesConfig(t *testing.T) {
	c := New(&cfgpkg.Config{Redis: cfgpkg.RedisConfig{Addr: " cache:6380 ", Password: "pw", DB: 2}})
	defer c.Close()

	opts := c.Options()
	require.Equal(t, "cache:6380", opts.Addr)
	require.Equal(t, "pw", opts.Password)
	require.Equal(t, 2, opts.DB)
}
