package auth

import "strings"

type Role string

const (
	RoleOrganizer Role = "organizer"
	RoleAttendee  Role = "attendee"
)

func NormalizeRole(role string) Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case string(RoleOrganizer):
		return RoleOrganizer
	default:
		return RoleAttendee
	}
}

func IsOrganizer(role string) bool {
	return NormalizeRole(role) == RoleOrganizer
}
