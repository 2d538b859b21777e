// Package ngrok exposes the local dashboard through an ngrok tunnel so
// a run on the gaming machine can be watched from anywhere.
package ngrok

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"time"

	"golang.ngrok.com/ngrok"
	ngrokcfg "golang.ngrok.com/ngrok/config"

	"github.com/salieri-auto/menunav/internal/config"
)

type Tunnel struct {
	forwarder ngrok.Forwarder
}

// Start forwards the dashboard port through ngrok. The auth token can
// come from the config or the NGROK_AUTHTOKEN environment variable.
func Start(ctx context.Context, cfg config.Ngrok, dashboardPort int) (*Tunnel, error) {
	backend, err := url.Parse(fmt.Sprintf("http://localhost:%d", dashboardPort))
	if err != nil {
		return nil, err
	}

	httpOpts := make([]ngrokcfg.HTTPEndpointOption, 0, 2)
	if cfg.Domain != "" {
		httpOpts = append(httpOpts, ngrokcfg.WithDomain(cfg.Domain))
	}
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPass != "" {
		httpOpts = append(httpOpts, ngrokcfg.WithBasicAuth(cfg.BasicAuthUser, cfg.BasicAuthPass))
	}

	connectOpts := make([]ngrok.ConnectOption, 0, 1)
	if cfg.Authtoken != "" {
		connectOpts = append(connectOpts, ngrok.WithAuthtoken(cfg.Authtoken))
	} else if os.Getenv("NGROK_AUTHTOKEN") != "" {
		connectOpts = append(connectOpts, ngrok.WithAuthtokenFromEnv())
	}

	fwd, err := ngrok.ListenAndForward(ctx, backend, ngrokcfg.HTTPEndpoint(httpOpts...), connectOpts...)
	if err != nil {
		return nil, err
	}

	return &Tunnel{forwarder: fwd}, nil
}

func (t *Tunnel) URL() string {
	if t == nil || t.forwarder == nil {
		return ""
	}
	return t.forwarder.URL()
}

func (t *Tunnel) Close() error {
	if t == nil || t.forwarder == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return t.forwarder.CloseWithContext(ctx)
}
