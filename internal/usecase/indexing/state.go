package indexing

// State is the lifecycle state of the ANN index build.
type State int32

const (
	// NotScheduled means no build is pending; EnsureIndexes will schedule one.
	NotScheduled State = iota
	// Scheduled means a build was claimed but has not started.
	Scheduled
	// Building means the build loop is running.
	Building
	// Built means every index exists. Terminal for the process.
	Built
	// Failed is transient: the manager resets it to NotScheduled.
	Failed
)

func (s State) String() string {
	switch s {
	case NotScheduled:
		return "not_scheduled"
	case Scheduled:
		return "scheduled"
	case Building:
		return "building"
	case Built:
		return "built"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}
