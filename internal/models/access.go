package models

// AccessLevel is a caller's effective access to a task. Levels are ordered, so
// a higher level satisfies every requirement of a lower one.
type AccessLevel int

const (
	AccessNone AccessLevel = iota
	AccessRead
	AccessWrite
	AccessOwner
)

func (a AccessLevel) Allows(required AccessLevel) bool {
	return a >= required
}

func (a AccessLevel) String() string {
	switch a {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	case AccessOwner:
		return "owner"
	default:
		return "none"
	}
}

func (a AccessLevel) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// AccessFromPermission maps a grant's permission to its access tier.
func AccessFromPermission(p SharePermission) AccessLevel {
	switch p {
	case PermissionWrite:
		return AccessWrite
	case PermissionRead:
		return AccessRead
	default:
		return AccessNone
	}
}
