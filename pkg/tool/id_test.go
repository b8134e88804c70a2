package tool

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestGenerateUUIDV7(t *testing.T) {
	id := GenerateUUIDV7()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(7), parsed.Version())
	require.True(t, IsUUID(id))
}

func TestIsUUID(t *testing.T) {
	require.False(t, IsUUID(""))
	require.False(t, IsUUID("abc"))
	require.False(t, IsUUID("user-1-scan-01"))
	require.True(t, IsUUID("0190f5b2-6a1e-7c3d-9f00-123456789abc"))
}
