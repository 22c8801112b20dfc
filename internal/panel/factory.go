package panel

import (
	"fmt"
	"time"

	"radpanel/internal/config"
	"radpanel/internal/pkg/httpclient"
)

// PanelFactory creates a PanelClient from the gateway configuration.
func PanelFactory(cfg config.PanelConfig) (PanelClient, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("panel url is not configured")
	}

	client := httpclient.New().WithTimeout(30 * time.Second)
	if cfg.HTTPSProxy != "" {
		client.WithProxy(cfg.HTTPSProxy)
	} else if cfg.HTTPProxy != "" {
		client.WithProxy(cfg.HTTPProxy)
	}
	if cfg.Insecure {
		client.WithInsecureSkipVerify()
	}

	switch cfg.Type {
	case "", "marzban":
		return NewMarzbanClient(cfg.URL, cfg.Username, cfg.Password, cfg.Proxies, client), nil
	default:
		return nil, fmt.Errorf("unsupported panel type: %s", cfg.Type)
	}
}
