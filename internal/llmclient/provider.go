package llmclient

// Provider selects which upstream chat/embedding API shape an HTTPClient
// speaks. All three are OpenAI-compatible at the wire level except for
// small header/path differences handled in httpclient.go — this mirrors
// the teacher's single llama.cpp-shaped backend generalized to the three
// backends SPEC_FULL.md §6 names.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderLocal     Provider = "local"
)

// Config configures an HTTPClient.
type Config struct {
	Provider         Provider
	Model            string
	EmbeddingModel   string
	APIBaseURL       string
	APIKey           string
	Temperature      float64
	EmbeddingBaseURL string // defaults to APIBaseURL when empty
}
