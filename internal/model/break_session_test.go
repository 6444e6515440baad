package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompliancePercent(t *testing.T) {
	cases := []struct {
		completed, expected, want int
	}{
		{0, 4, 0},
		{1, 4, 25},
		{3, 4, 75},
		{4, 4, 100},
		{5, 4, 125},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 12}, // 12.5 rounds to even
		{3, 8, 38}, // 37.5 rounds to even
		{3, 0, 0},
		{1, -2, 0},
	}
	for _, c := range cases {
		require.Equal(t, c.want, CompliancePercent(c.completed, c.expected), "%d/%d", c.completed, c.expected)
	}
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	in := time.Date(2026, 4, 6, 22, 30, 0, 0, loc)
	require.Equal(t, time.Date(2026, 4, 7, 0, 0, 0, 0, time.UTC), Day(in))
}

func TestTokenStates(t *testing.T) {
	now := time.Date(2026, 4, 6, 12, 0, 0, 0, time.UTC)
	rt := RefreshToken{ExpiresAt: now.Add(time.Hour)}
	require.True(t, rt.Active(now))
	require.False(t, rt.Active(now.Add(time.Hour)))
	rt.RevokedAt = &now
	require.False(t, rt.Active(now))

	pt := PasswordResetToken{ExpiresAt: now.Add(time.Minute)}
	require.True(t, pt.Redeemable(now))
	pt.UsedAt = &now
	require.False(t, pt.Redeemable(now))
}
