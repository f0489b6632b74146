package models

// ChatRequest is the body of POST /api/chat. Message is a pointer so a
// missing field can be told apart from an empty one.
type ChatRequest struct {
	Message *string `json:"message"`
}

// ChatResponse is the relay's reply body. Reply is always serialized. Message
// and Error are only ever produced by other servers; the widget reads them
// from non-OK responses.
type ChatResponse struct {
	Reply   string `json:"reply"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}
