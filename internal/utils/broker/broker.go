package broker

import (
	"sync"
)

// TopicAnalysis carries every persisted background analysis result.
const TopicAnalysis = "analysis"

// Broker is an in-process pub/sub fan-out. Publish never blocks: a
// subscriber whose buffer is full misses the message.
type Broker struct {
	subscribers map[string][]chan interface{}
	bufferSize  int
	mu          sync.RWMutex
}

func NewBroker(bufferSize int) *Broker {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Broker{
		subscribers: make(map[string][]chan interface{}),
		bufferSize:  bufferSize,
	}
}

func (b *Broker) Subscribe(topic string) <-chan interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan interface{}, b.bufferSize)
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	return ch
}

func (b *Broker) Unsubscribe(topic string, ch <-chan interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if chans, ok := b.subscribers[topic]; ok {
		for i, c := range chans {
			if c == ch {
				b.subscribers[topic] = append(chans[:i], chans[i+1:]...)
				close(c)
				break
			}
		}
	}
}

// Publish delivers msg to every subscriber of topic and reports how many
// subscribers were skipped because their buffer was full.
func (b *Broker) Publish(topic string, msg interface{}) (dropped int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers[topic] {
		select {
		case ch <- msg:
		default:
			dropped++
		}
	}
	return dropped
}

func (b *Broker) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[topic])
}
