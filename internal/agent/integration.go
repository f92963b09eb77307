package agent

import (
	"context"
	"fmt"
)

// NoopIntegration is an IntegrationExecutor that validates that a name was
// supplied and returns immediately without touching any real booking or
// messaging backend. It is not wired by default: with
// Dependencies.Integration left nil, dispatchIntegration only records the
// action in the diary. Wiring a real backend means implementing
// IntegrationExecutor and passing it via Dependencies.Integration.
type NoopIntegration struct{}

// Execute implements IntegrationExecutor.
func (NoopIntegration) Execute(ctx context.Context, name string, params map[string]string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("agent: integration action requires a name")
	}
	return fmt.Sprintf("acknowledged %s (%d params), no backend wired", name, len(params)), nil
}
