package providers

import (
	"github.com/samber/do/v2"

	"github.com/pbaille/divino/internal/config"
	"github.com/pbaille/divino/internal/logger"
	"github.com/pbaille/divino/internal/sommelier"
)

// ProvideSommelier provides the Gemini-backed model gateway.
// It fails when no API key is configured.
func ProvideSommelier(i do.Injector) (*sommelier.Sommelier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}
	return sommelier.NewFromConfig(cfg.Gemini, log.Logger)
}
