package vision

// Role values for conversation turns passed to a provider.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one prior conversation exchange, oldest first.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Image is an inline image payload attached to a request.
type Image struct {
	MediaType string
	Data      []byte
}

// Request contains the parameters for one model invocation.
type Request struct {
	Model        string
	SystemPrompt string
	Prompt       string
	Image        *Image
	History      []Turn
	Temperature  float64
	MaxTokens    int
}

// Response contains the free-form text reply from a model.
type Response struct {
	Content string
	Usage   *TokenUsage
}

// TokenUsage tracks token consumption for one invocation.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Credentials selects and authenticates a provider.
type Credentials struct {
	Provider string `json:"provider"` // "anthropic", "openai"
	APIKey   string `json:"api_key"`
}
