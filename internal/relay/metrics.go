package relay

// Metrics is the collector surface the engine drives at every relevant
// state transition (§6 "Metrics surface"). internal/metrics implements
// this with prometheus/client_golang collectors; tests can pass nil or a
// no-op stub.
type Metrics interface {
	ConnAccepted()
	ConnOpened()
	ConnClosed()
	ConnBlocked()
	MessageRouted(queued bool)
	QueueDepth(entries int, bytes uint64)
	QueueDropped()
	ThreadStatus(status string, delta int)
}

type noopMetrics struct{}

func (noopMetrics) ConnAccepted()               {}
func (noopMetrics) ConnOpened()                 {}
func (noopMetrics) ConnClosed()                 {}
func (noopMetrics) ConnBlocked()                {}
func (noopMetrics) MessageRouted(queued bool)   {}
func (noopMetrics) QueueDepth(int, uint64)      {}
func (noopMetrics) QueueDropped()               {}
func (noopMetrics) ThreadStatus(string, int)    {}
