package model

// Role is a user's role within one space membership.
type Role string

const (
	RoleOwner     Role = "owner"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RoleMember    Role = "member"
	RoleGuest     Role = "guest"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleModerator, RoleMember, RoleGuest:
		return true
	}
	return false
}

// Rank orders roles for comparisons. Higher rank means a superset of
// permissions, except the owner-only permissions which no other role holds.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 5
	case RoleAdmin:
		return 4
	case RoleModerator:
		return 3
	case RoleMember:
		return 2
	case RoleGuest:
		return 1
	default:
		return 0
	}
}

// Permission names a single gated operation on a space.
type Permission string

const (
	PermEditSpace     Permission = "edit-space"
	PermDeleteSpace   Permission = "delete-space"
	PermSetSpaceOwner Permission = "set-space-owner"

	PermEditSpaceMember   Permission = "edit-space-member"
	PermDeleteSpaceMember Permission = "delete-space-member"

	PermAddSpaceInvite    Permission = "add-space-invite"
	PermEditSpaceInvite   Permission = "edit-space-invite"
	PermDeleteSpaceInvite Permission = "delete-space-invite"

	PermAddBoard    Permission = "add-board"
	PermEditBoard   Permission = "edit-board"
	PermDeleteBoard Permission = "delete-board"

	PermAddNote    Permission = "add-note"
	PermEditNote   Permission = "edit-note"
	PermDeleteNote Permission = "delete-note"
)

var memberPerms = []Permission{
	PermAddBoard, PermEditBoard, PermDeleteBoard,
	PermAddNote, PermEditNote, PermDeleteNote,
}

var moderatorPerms = append(append([]Permission{}, memberPerms...),
	PermAddSpaceInvite, PermEditSpaceInvite, PermDeleteSpaceInvite,
)

var adminPerms = append(append([]Permission{}, moderatorPerms...),
	PermEditSpace, PermEditSpaceMember, PermDeleteSpaceMember,
)

var ownerPerms = append(append([]Permission{}, adminPerms...),
	PermDeleteSpace, PermSetSpaceOwner,
)

// rolePermissions is the static role → permission matrix. Guests can read
// everything in a space but mutate nothing.
var rolePermissions = map[Role][]Permission{
	RoleGuest:     {},
	RoleMember:    memberPerms,
	RoleModerator: moderatorPerms,
	RoleAdmin:     adminPerms,
	RoleOwner:     ownerPerms,
}

// Can reports whether the role holds the given permission.
func (r Role) Can(p Permission) bool {
	for _, held := range rolePermissions[r] {
		if held == p {
			return true
		}
	}
	return false
}
