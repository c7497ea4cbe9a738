package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetVersion(t *testing.T) {
	SetVersionInfo("1.2.3", "abc1234", "2026-08-28", "goreleaser")

	require.Equal(t, "1.2.3 (commit: abc1234, date: 2026-08-28)", GetVersion())
}
