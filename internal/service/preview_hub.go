package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// PreviewEvent 通知预览窗格重新拉取内容。
type PreviewEvent struct {
	PageSlug   string `json:"page_slug"`
	SectionKey string `json:"section_key,omitempty"`
	Reason     string `json:"reason"`
	At         int64  `json:"at"`
}

// PreviewHub manages SSE subscribers per workspace topic and debounces refreshes.
type PreviewHub struct {
	mu       sync.RWMutex
	clients  map[string]map[string]chan PreviewEvent
	delay    time.Duration
	timersMu sync.Mutex
	timers   map[string]*time.Timer
	pending  map[string]PreviewEvent
}

// NewPreviewHub creates a hub whose Schedule calls collapse within delay.
func NewPreviewHub(delay time.Duration) *PreviewHub {
	if delay <= 0 {
		delay = 300 * time.Millisecond
	}
	return &PreviewHub{
		clients: make(map[string]map[string]chan PreviewEvent),
		delay:   delay,
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]PreviewEvent),
	}
}

// PreviewTopic identifies one editor session's page workspace.
func PreviewTopic(session, slug string) string {
	return session + ":" + slug
}

// Subscribe registers a client and returns its id and event channel.
func (h *PreviewHub) Subscribe(topic string) (string, <-chan PreviewEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan PreviewEvent, 16)
	if h.clients[topic] == nil {
		h.clients[topic] = make(map[string]chan PreviewEvent)
	}
	h.clients[topic][id] = ch
	return id, ch
}

// Unsubscribe removes a client and closes its channel.
func (h *PreviewHub) Unsubscribe(topic, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subscribers, ok := h.clients[topic]
	if !ok {
		return
	}
	if ch, ok := subscribers[id]; ok {
		close(ch)
		delete(subscribers, id)
	}
	if len(subscribers) == 0 {
		delete(h.clients, topic)
	}
}

// Publish sends an event to every subscriber of topic right away.
// Slow clients drop events instead of blocking.
func (h *PreviewHub) Publish(topic string, event PreviewEvent) {
	if event.At == 0 {
		event.At = time.Now().UnixMilli()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.clients[topic] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Schedule publishes event after the debounce delay; calls for the same topic
// within the delay restart the timer and only the last event is sent.
func (h *PreviewHub) Schedule(topic string, event PreviewEvent) {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()

	h.pending[topic] = event
	if timer, ok := h.timers[topic]; ok {
		timer.Stop()
	}
	h.timers[topic] = time.AfterFunc(h.delay, func() {
		h.timersMu.Lock()
		latest, ok := h.pending[topic]
		delete(h.pending, topic)
		delete(h.timers, topic)
		h.timersMu.Unlock()
		if ok {
			h.Publish(topic, latest)
		}
	})
}

// ClientCount returns the number of subscribers of topic.
func (h *PreviewHub) ClientCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[topic])
}

// TotalClients counts subscribers across every topic.
func (h *PreviewHub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

// Close stops pending timers.
func (h *PreviewHub) Close() {
	h.timersMu.Lock()
	defer h.timersMu.Unlock()
	for topic, timer := range h.timers {
		timer.Stop()
		delete(h.timers, topic)
		delete(h.pending, topic)
	}
}
