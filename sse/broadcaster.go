package sse

// Broadcaster delivers frames to the clients of a topic. Topic patterns
// use glob matching (e.g., "view:*").
type Broadcaster interface {
	Broadcast(pattern string, msg Message) int
}
