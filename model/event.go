package model

// NavigatorAction describes what a navigator did.
type NavigatorAction int

const (
	// NavigatorMoved is emitted while the navigator is changing.
	NavigatorMoved NavigatorAction = iota
	// NavigatorStopped is emitted once movement has settled.
	NavigatorStopped
)

func (a NavigatorAction) String() string {
	switch a {
	case NavigatorMoved:
		return "moved"
	case NavigatorStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SnapshotSource produces the current camera snapshot for an event.
type SnapshotSource interface {
	CameraState() (CameraState, error)
}

// NavigatorEvent is pushed by a navigator to its listeners.
type NavigatorEvent struct {
	Action     NavigatorAction
	TimeMillis int64

	// UserInput is true when an input device event caused the change, as
	// opposed to the navigator settling or being moved programmatically.
	UserInput bool

	Source SnapshotSource
}
