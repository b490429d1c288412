package memory

import (
	"context"
	"sync"

	"quizlive/internal/pubsub"
)

// Broker is an in-process implementation of pubsub.Broker. Each subscriber
// drains its own queue on a dedicated goroutine, so publishers never block
// and every subscriber observes events in publish order.
type Broker struct {
	mu     sync.Mutex
	topics map[string]map[*subscriber]struct{}
}

func NewBroker() *Broker {
	return &Broker{topics: make(map[string]map[*subscriber]struct{})}
}

type subscriber struct {
	handler pubsub.Handler

	mu     sync.Mutex
	queue  []pubsub.Event
	wake   chan struct{}
	closed bool
}

func (b *Broker) Publish(_ context.Context, topic string, event pubsub.Event) error {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.topics[topic]))
	for s := range b.topics[topic] {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.enqueue(event)
	}
	return nil
}

func (b *Broker) Subscribe(_ context.Context, topic string, handler pubsub.Handler) (func(), error) {
	s := &subscriber{
		handler: handler,
		wake:    make(chan struct{}, 1),
	}
	b.mu.Lock()
	if b.topics[topic] == nil {
		b.topics[topic] = make(map[*subscriber]struct{})
	}
	b.topics[topic][s] = struct{}{}
	b.mu.Unlock()

	go s.run()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.topics[topic], s)
			if len(b.topics[topic]) == 0 {
				delete(b.topics, topic)
			}
			b.mu.Unlock()
			s.stop()
		})
	}
	return cancel, nil
}

func (s *subscriber) enqueue(event pubsub.Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, event)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) stop() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run() {
	for range s.wake {
		for {
			s.mu.Lock()
			if s.closed {
				s.mu.Unlock()
				return
			}
			if len(s.queue) == 0 {
				s.mu.Unlock()
				break
			}
			event := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()

			s.handler(event)
		}
	}
}
