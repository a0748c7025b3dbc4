package executor

import "github.com/rovesti/fabrica/internal/domain"

// DefaultRegistry builds the registry used by the runner and CLI: one
// gateway executor per generation step type, all sharing one gateway
// config.
func DefaultRegistry(cfg GatewayConfig) *Registry {
	r := NewRegistry()
	for _, stepType := range domain.GenerationStepTypes() {
		r.Register(NewGateway(stepType, cfg))
	}
	return r
}
