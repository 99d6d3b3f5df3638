package domain_test

import (
	"testing"

	"github.com/PriyalGandhi19/taskmanager/internal/core/domain"
	"github.com/stretchr/testify/require"
)

func TestCapabilities(t *testing.T) {
	full := domain.CapabilitySet{
		CanView:        true,
		CanEditStatus:  true,
		CanEditContent: true,
		CanDelete:      true,
	}

	t.Run("admin has every capability on any task", func(t *testing.T) {
		require.Equal(t, full, domain.Capabilities(domain.RoleAdmin, 1, 99))
	})

	t.Run("owner has every capability on own task", func(t *testing.T) {
		require.Equal(t, full, domain.Capabilities(domain.RoleA, 7, 7))
		require.Equal(t, full, domain.Capabilities(domain.RoleB, 7, 7))
	})

	t.Run("non-owner has no capability", func(t *testing.T) {
		require.Equal(t, domain.CapabilitySet{}, domain.Capabilities(domain.RoleA, 7, 8))
		require.Equal(t, domain.CapabilitySet{}, domain.Capabilities(domain.RoleB, 7, 8))
	})
}

func TestValidStatus(t *testing.T) {
	require.True(t, domain.ValidStatus(domain.StatusPending))
	require.True(t, domain.ValidStatus(domain.StatusInProgress))
	require.True(t, domain.ValidStatus(domain.StatusCompleted))
	require.False(t, domain.ValidStatus("DONE"))
	require.False(t, domain.ValidStatus("pending"))
	require.False(t, domain.ValidStatus(""))
}

func TestValidPriority(t *testing.T) {
	require.True(t, domain.ValidPriority(domain.PriorityLow))
	require.True(t, domain.ValidPriority(domain.PriorityMedium))
	require.True(t, domain.ValidPriority(domain.PriorityHigh))
	require.False(t, domain.ValidPriority("URGENT"))
	require.False(t, domain.ValidPriority(""))
}

func TestValidCreateRole(t *testing.T) {
	require.True(t, domain.ValidCreateRole(domain.RoleA))
	require.True(t, domain.ValidCreateRole(domain.RoleB))
	require.False(t, domain.ValidCreateRole(domain.RoleAdmin))
	require.False(t, domain.ValidCreateRole("C"))
	require.False(t, domain.ValidCreateRole(""))
}
