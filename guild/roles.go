package guild

// Role is a member's role within the guild hierarchy.
type Role string

const (
	RoleLeader  Role = "leader"
	RoleOfficer Role = "officer"
	RoleElite   Role = "elite"
	RoleMember  Role = "member"
)

// Rank maps a role to its position in the hierarchy. Higher outranks lower.
func Rank(r Role) int {
	switch r {
	case RoleLeader:
		return 3
	case RoleOfficer:
		return 2
	case RoleElite:
		return 1
	default:
		return 0
	}
}

// ValidRole reports whether r is one of the four known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleLeader, RoleOfficer, RoleElite, RoleMember:
		return true
	}
	return false
}

// CanManageMembers reports whether the actor may process applications,
// kick members, and change roles below their own.
func CanManageMembers(actor Role) bool {
	return Rank(actor) >= 2
}

// CanInvite reports whether the actor may send guild invitations.
func CanInvite(actor Role) bool {
	return Rank(actor) >= 1
}

// CanKick reports whether the actor may remove the target from the guild.
// The leader can kick anyone below them; officers can only kick elites
// and regular members, never another officer or the leader.
func CanKick(actor, target Role) bool {
	if target == RoleLeader {
		return false
	}
	if actor == RoleLeader {
		return true
	}
	return Rank(actor) >= 2 && Rank(target) <= 1
}

// CanAssignRole reports whether the actor may set a member's role to
// newRole. Only the leader may appoint a new leader; officers may assign
// roles up to elite.
func CanAssignRole(actor, newRole Role) bool {
	if newRole == RoleLeader {
		return actor == RoleLeader
	}
	if actor == RoleLeader {
		return true
	}
	return Rank(actor) >= 2 && Rank(newRole) <= 1
}
