package telemetry

// MsgTaskLog carries a chunk of output for a specific task span.
type MsgTaskLog struct {
	SpanID string
	Data   []byte
}

// MsgInitTasks announces the tasks of an invocation before any of them starts.
type MsgInitTasks struct {
	Tasks []string
}

// msgSync is acknowledged by the delivery loop once everything queued before it
// has reached the renderer.
type msgSync struct {
	done chan struct{}
}
