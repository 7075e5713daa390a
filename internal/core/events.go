package core

// Batch event types.
const (
	EventBatchReplaced = "batch.replaced"
	EventBatchCleared  = "batch.cleared"
)

// BatchEvent tells the display layer that the current Batch changed.
type BatchEvent struct {
	Type    string `json:"type"`
	BatchID string `json:"batch_id,omitempty"`
	Source  Source `json:"source,omitempty"`
	Records int    `json:"records"`
}

// listenerBuffer is the per-subscriber channel capacity.
const listenerBuffer = 16

// Subscribe registers for batch events. The returned func unsubscribes and
// closes the channel.
func (s *Service) Subscribe() (<-chan BatchEvent, func()) {
	ch := make(chan BatchEvent, listenerBuffer)

	s.listenerMu.Lock()
	s.listeners[ch] = struct{}{}
	s.listenerMu.Unlock()

	return ch, func() {
		s.listenerMu.Lock()
		defer s.listenerMu.Unlock()
		if _, ok := s.listeners[ch]; ok {
			delete(s.listeners, ch)
			close(ch)
		}
	}
}

// notify delivers ev to every subscriber without blocking; a subscriber
// with a full buffer misses the event.
func (s *Service) notify(ev BatchEvent) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	for ch := range s.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (s *Service) SubscriberCount() int {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()
	return len(s.listeners)
}
