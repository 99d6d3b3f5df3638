package domain

// Roles
const (
	RoleAdmin = "ADMIN"
	RoleA     = "A"
	RoleB     = "B"
)

// Task statuses
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
)

// Task priorities
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"
)

// Notification types
const (
	NotifyAssigned = "ASSIGNED"
	NotifyStatus   = "STATUS"
	NotifyComment  = "COMMENT"
)

// Auth activity events
const (
	EventLogin       = "LOGIN"
	EventFailedLogin = "FAILED_LOGIN"
	EventLogout      = "LOGOUT"
)

// ValidStatus reports whether s is a known task status
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// ValidPriority reports whether p is a known task priority
func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ValidCreateRole reports whether r may be assigned to an admin-created account.
// Admin accounts come from the seeder, never from the API.
func ValidCreateRole(r string) bool {
	return r == RoleA || r == RoleB
}

// CapabilitySet holds the per-task, per-actor derived permissions.
// The list endpoint exposes these flags and the repository enforces the same
// function inside its mutation transactions; the two must never disagree.
type CapabilitySet struct {
	CanView        bool `json:"can_view"`
	CanEditStatus  bool `json:"can_edit_status"`
	CanEditContent bool `json:"can_edit_content"`
	CanDelete      bool `json:"can_delete"`
}

// Capabilities computes the capability set for an actor on a task.
// ADMIN has every capability on every task. A non-admin has every capability
// on tasks they own and none on tasks they do not.
func Capabilities(actorRole string, actorID, ownerID uint) CapabilitySet {
	if actorRole == RoleAdmin || actorID == ownerID {
		return CapabilitySet{
			CanView:        true,
			CanEditStatus:  true,
			CanEditContent: true,
			CanDelete:      true,
		}
	}
	return CapabilitySet{}
}
