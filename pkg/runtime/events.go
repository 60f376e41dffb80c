package runtime

// Lifecycle topics posted by the service around startup and shutdown.
const (
	TopicBeforeStart = "before-start"
	TopicAfterStart  = "after-start"
	TopicBeforeStop  = "before-stop"
	TopicAfterStop   = "after-stop"
)

// BeforeStart is posted, and awaited, before any resource is prepared.
// A listener may return a string to replace the working log directory;
// the service takes the first listener's returned value. Multiple
// listeners returning paths is a configuration mistake — register at
// most one rewriting listener on this topic.
type BeforeStart struct {
	LogDir string
}

func (BeforeStart) Topic() string { return TopicBeforeStart }

// AfterStart is posted detached once startup finished; startup does not
// wait for its listeners.
type AfterStart struct{}

func (AfterStart) Topic() string { return TopicAfterStart }

// BeforeStop is posted, and awaited, before the transport is closed.
type BeforeStop struct{}

func (BeforeStop) Topic() string { return TopicBeforeStop }

// AfterStop is posted detached after shutdown.
type AfterStop struct{}

func (AfterStop) Topic() string { return TopicAfterStop }
