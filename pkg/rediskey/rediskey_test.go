package rediskey

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildSequenceKey(t *testing.T) {
	require.Equal(t, "seq:RWD:261015", BuildSequenceKey("RWD", "261015"))
}
