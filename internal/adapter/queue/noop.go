package queue

// NoopQueue discards all messages. Used when no broker is configured.
type NoopQueue struct{}

func NewNoopQueue() MessageQueue {
	return NoopQueue{}
}

func (NoopQueue) Publish(subject string, data []byte) error { return nil }

func (NoopQueue) Subscribe(subject string, handler func(data []byte) error) error {
	return nil
}

func (NoopQueue) Close() error { return nil }
