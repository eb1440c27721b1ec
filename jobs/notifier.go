package jobs

// Notifier receives a snapshot after every stored job change.
// Implementations must not block.
type Notifier interface {
	Notify(job Job)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(job Job)

// Notify calls f.
func (f NotifierFunc) Notify(job Job) { f(job) }

type nopNotifier struct{}

func (nopNotifier) Notify(Job) {}
