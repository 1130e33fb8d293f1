package purchase

// State is the installation state of a Manager.
type State uint8

const (
	StateUninstalled State = iota
	StateConnecting
	StateInstalled
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninstalled:
		return "UNINSTALLED"
	case StateConnecting:
		return "CONNECTING"
	case StateInstalled:
		return "INSTALLED"
	case StateDisposed:
		return "DISPOSED"
	default:
		return "UNKNOWN"
	}
}

var transitions = map[State][]State{
	StateUninstalled: {StateConnecting, StateDisposed},
	StateConnecting:  {StateInstalled, StateUninstalled, StateDisposed},
	StateInstalled:   {StateUninstalled, StateDisposed},
	StateDisposed:    {StateUninstalled},
}

func (s State) canTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
