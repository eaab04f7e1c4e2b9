package kdf

// State is the lifecycle position of an Engine.
type State int

const (
	StateNoSalt State = iota
	StateSaltSet
	StatePRKSet
)

func (s State) String() string {
	switch s {
	case StateNoSalt:
		return "NO_SALT"
	case StateSaltSet:
		return "SALT_SET"
	case StatePRKSet:
		return "PRK_SET"
	default:
		return "UNKNOWN"
	}
}
