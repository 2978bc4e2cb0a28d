package mqtt

import "sync"

// FakePublisher records publications for test assertions.
type FakePublisher struct {
	mu sync.Mutex

	// Messages contains every successful publication, in order.
	Messages []Message

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool

	subs map[string]MessageHandler
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true, subs: make(map[string]MessageHandler)}
}

func (f *FakePublisher) Publish(topic string, payload []byte, retained bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.Messages = append(f.Messages, Message{Topic: topic, Payload: payload, Retained: retained})
	return nil
}

func (f *FakePublisher) Subscribe(topic string, handler MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[topic] = handler
	return nil
}

// Deliver simulates an inbound message on an exact topic. It reports
// whether a handler was subscribed.
func (f *FakePublisher) Deliver(topic string, payload []byte) bool {
	f.mu.Lock()
	h, ok := f.subs[topic]
	f.mu.Unlock()
	if ok {
		h(topic, payload)
	}
	return ok
}

// Published returns a copy of the recorded messages.
func (f *FakePublisher) Published() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Message, len(f.Messages))
	copy(out, f.Messages)
	return out
}

// OnTopic returns the recorded messages for one topic.
func (f *FakePublisher) OnTopic(topic string) []Message {
	var out []Message
	for _, m := range f.Published() {
		if m.Topic == topic {
			out = append(out, m)
		}
	}
	return out
}

func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}
