package llmprovider

import "context"

// Provider defines the interface for chat-completion backends
type Provider interface {
	// GenerateContent sends a generation request and returns a response
	GenerateContent(ctx context.Context, req *Request) (*Response, error)

	// Name returns the provider name (e.g., "openai", "ark")
	Name() string

	// Model returns the model being used
	Model() string
}

// Role values understood by every provider
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Request represents a normalized generation request. Messages are replayed
// to the backend verbatim and in order.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Message represents a conversation message
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// Response represents a normalized generation response
type Response struct {
	Content      Message
	ProviderName string
	ModelName    string
	Usage        *Usage
}

// Text returns the generated text, or "" for an empty response
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return r.Content.Content
}

// Usage tracks token consumption
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}
