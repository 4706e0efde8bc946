package watch

// BroadcastMatchEvent implements bot.Broadcaster using the WebSocket hub.
func (h *Hub) BroadcastMatchEvent(matchID string, eventType string, data any) {
	h.Publish(Event{
		Type:    eventType,
		MatchID: matchID,
		Data:    data,
	})
}
