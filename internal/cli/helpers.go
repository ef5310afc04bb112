// Copyright (c) 2025 Kage no Koe Project
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"github.com/kagenokoe/kage-tui/internal/api"
	"github.com/kagenokoe/kage-tui/internal/config"
)

// newClient builds an API client from the loaded configuration.
func newClient(cfg *config.Config) *api.Client {
	return api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:           cfg.Backend.URL,
		Timeout:           cfg.BackendTimeout(),
		CompletionTimeout: cfg.CompletionTimeout(),
	})
}
