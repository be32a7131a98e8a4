package godeco

// Lifetime controls how long an instance built by the container lives.
type Lifetime int

const (
	// Singleton is the default lifetime. The instance is built once, against the
	// root container, and shared by every scope.
	Singleton Lifetime = iota

	// Scoped instances are built once per [Scope]. They cannot be resolved from the
	// root [Container].
	Scoped

	// Transient instances are built on every resolution.
	Transient
)

// String returns the human-readable name of the lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

func (l Lifetime) valid() bool {
	return l >= Singleton && l <= Transient
}
