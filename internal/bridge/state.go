package bridge

// ActivationState is the combination of the requested and applied
// activation flags.
type ActivationState int

const (
	Inactive ActivationState = iota
	ActivationRequested
	Active
	DeactivationRequested
)

func (s ActivationState) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case ActivationRequested:
		return "activation-requested"
	case Active:
		return "active"
	case DeactivationRequested:
		return "deactivation-requested"
	default:
		return "unknown"
	}
}
