package supervisor

// State is a supervisor loop state.
//
//	Idle → Starting → Running → (Restarting → Starting) | Stopped
type State int32

const (
	Idle State = iota
	Starting
	Running
	Restarting
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Restarting:
		return "restarting"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
