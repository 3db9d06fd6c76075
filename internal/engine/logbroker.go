package engine

import "sync"

// subscriberBufferSize bounds how far a live subscriber may fall behind
// before lines are dropped for it. Persisted history is unaffected.
const subscriberBufferSize = 256

// LogBroker fans engine output out to live subscribers, one topic per job.
// It is safe for concurrent use.
//
// A finished job's topic stays behind as a closed marker, so subscribing
// after the compile ended yields a closed channel rather than a wait.
type LogBroker struct {
	mu     sync.Mutex
	topics map[string]*logTopic
}

type logTopic struct {
	subs   map[int]chan string
	nextID int
	closed bool
}

func NewLogBroker() *LogBroker {
	return &LogBroker{topics: map[string]*logTopic{}}
}

// topic returns the topic for jobID, creating it. Callers hold b.mu.
func (b *LogBroker) topic(jobID string) *logTopic {
	t := b.topics[jobID]
	if t == nil {
		t = &logTopic{subs: map[int]chan string{}}
		b.topics[jobID] = t
	}
	return t
}

// Subscribe registers for jobID's output. The returned cancel function is
// idempotent and must be called once the caller stops reading.
func (b *LogBroker) Subscribe(jobID string) (lines <-chan string, cancel func()) {
	ch := make(chan string, subscriberBufferSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.topic(jobID)
	if t.closed {
		close(ch)
		return ch, func() {}
	}
	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		delete(t.subs, id)
		b.mu.Unlock()
	}
}

// Publish hands line to every current subscriber of jobID. It never
// blocks the engine; a full subscriber loses the line.
func (b *LogBroker) Publish(jobID, line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.topics[jobID]
	if t == nil || t.closed {
		return
	}
	for _, ch := range t.subs {
		select {
		case ch <- line:
		default:
			logLinesDropped.Inc()
		}
	}
}

// Close marks jobID finished and closes all of its subscriber channels.
func (b *LogBroker) Close(jobID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := b.topic(jobID)
	t.closed = true
	for id, ch := range t.subs {
		delete(t.subs, id)
		close(ch)
	}
}
