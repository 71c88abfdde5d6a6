package engine

import "time"

// handleResponse applies cache updates from an inbound response and fans
// it out to every listener registered at the moment fan-out begins (spec
// §4.3, §5 "Listener fan-out is in registration order ... but a listener
// added during fan-out does not receive the current message").
func (e *Engine) handleResponse(msg *messageWithSource, now time.Time) {
	for _, a := range msg.Message.Answers {
		a := a
		if a.IsExpired(now) || a.IsGoodbye() {
			e.cache.Remove(a)
		} else {
			e.cache.Add(a)
		}
	}

	e.listenersMu.RLock()
	listeners := make([]ResponseListener, len(e.listeners))
	copy(listeners, e.listeners)
	e.listenersMu.RUnlock()

	for _, l := range listeners {
		l(msg.Message, now)
	}
}
