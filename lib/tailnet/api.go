// Copyright 2026 The Nixfleet Authors
// SPDX-License-Identifier: Apache-2.0

package tailnet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	tsclient "github.com/tailscale/tailscale-client-go/v2"
)

// onlineWindow is how recently the admin API must have seen a device
// for it to count as online. The API exposes last-seen timestamps,
// not the live reachability the local daemon knows.
const onlineWindow = 5 * time.Minute

// Credentials configure the Tailscale admin API connection. They come
// from the environment only; API keys do not belong in config files.
type Credentials struct {
	APIKey  string `env:"NIXFLEET_API_KEY"`
	Tailnet string `env:"NIXFLEET_TAILNET"`
}

// LoadCredentials reads and validates the admin API credentials from
// the environment.
func LoadCredentials() (Credentials, error) {
	var creds Credentials
	if err := env.Parse(&creds); err != nil {
		return Credentials{}, fmt.Errorf("read API credentials: %w", err)
	}
	if err := creds.Validate(); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// Validate reports every missing credential at once.
func (c Credentials) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("NIXFLEET_API_KEY not set"))
	}
	if c.Tailnet == "" {
		errs = append(errs, errors.New("NIXFLEET_TAILNET not set"))
	}
	return errors.Join(errs...)
}

// APISource lists tailnet machines through the Tailscale admin API.
type APISource struct {
	client *tsclient.Client
	now    func() time.Time
}

// NewAPISource returns a source talking to the Tailscale admin API
// with the given credentials.
func NewAPISource(creds Credentials) *APISource {
	return &APISource{
		client: &tsclient.Client{
			APIKey:  creds.APIKey,
			Tailnet: creds.Tailnet,
		},
		now: time.Now,
	}
}

// List returns every device in the tailnet. A device counts as online
// when the API saw it within the online window.
func (s *APISource) List(ctx context.Context) ([]Host, error) {
	devices, err := s.client.Devices().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tailnet devices: %w", err)
	}
	cutoff := s.now().Add(-onlineWindow)
	hosts := make([]Host, 0, len(devices))
	for _, device := range devices {
		hosts = append(hosts, Host{
			Hostname: device.Hostname,
			Addrs:    device.Addresses,
			Online:   device.LastSeen.After(cutoff),
			OS:       device.OS,
		})
	}
	return hosts, nil
}
