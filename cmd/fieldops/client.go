package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tedtam/fieldops/internal/client"
	"github.com/tedtam/fieldops/internal/config"
)

// newAPIClient builds a client for the configured endpoint. Swapped
// out in tests.
var newAPIClient = func() (*client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return client.New(cfg.Endpoint(), cfg.APIToken), nil
}

func serverVersion(ctx context.Context, c *client.Client) (string, error) {
	var body struct {
		Version string `json:"version"`
	}
	if err := c.GetJSON(ctx, "/api/version", &body); err != nil {
		return "", err
	}
	return body.Version, nil
}

// healthCheck reports whether a server already answers on addr.
func healthCheck(addr string) bool {
	hc := &http.Client{Timeout: healthTimeout}
	resp, err := hc.Get("http://" + addr + "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
