package pinning

import (
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"newschain/internal/config"
)

// FromConfig builds the configured pinning provider. It returns a nil Pinner
// and no error when the provider has no credentials, so the server can start
// and reject uploads per request.
func FromConfig(cfg config.Config, httpClient *http.Client, logger *zap.Logger) (Pinner, error) {
	switch cfg.PinningProvider {
	case "pinata":
		p, err := NewPinataClient(cfg.PinataUploadURL, cfg.PinataJWT, httpClient, logger)
		if errors.Is(err, ErrMissingJWT) {
			return nil, nil
		}
		return p, err
	case "kubo":
		if cfg.KuboAPIURL == "" {
			return nil, nil
		}
		return NewKuboClient(cfg.KuboAPIURL, logger), nil
	default:
		return nil, fmt.Errorf("unknown pinning provider %q", cfg.PinningProvider)
	}
}
