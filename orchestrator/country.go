// country.go - geolocation country provider
// Copyright (C) 2024  Nexus Prover Authors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package orchestrator

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/nexusprover/pipeline/constants"
)

// DefaultCountryProvider tries a CDN trace endpoint, falls back to a
// public IP-info service, and finally falls back to
// constants.DefaultCountry. The resolved value is cached for the
// lifetime of this provider. It has no way to seed the value; tests
// inject a deterministic code through the CountryProvider interface
// instead (see StaticCountryProvider).
type DefaultCountryProvider struct {
	client *http.Client

	once    sync.Once
	country string
}

// NewDefaultCountryProvider returns a provider backed by a client with
// the standard HTTP timeout.
func NewDefaultCountryProvider() *DefaultCountryProvider {
	return &DefaultCountryProvider{client: &http.Client{Timeout: constants.HTTPTimeout}}
}

// Country implements CountryProvider. The underlying lookup happens at
// most once per process; later calls return the cached result.
func (p *DefaultCountryProvider) Country(ctx context.Context) (string, error) {
	p.once.Do(func() {
		p.country = p.resolve(ctx)
	})
	return p.country, nil
}

func (p *DefaultCountryProvider) resolve(ctx context.Context) string {
	if cc, ok := p.fetchCDNTrace(ctx); ok {
		return cc
	}
	if cc, ok := p.fetchIPInfo(ctx); ok {
		return cc
	}
	return constants.DefaultCountry
}

func (p *DefaultCountryProvider) fetchCDNTrace(ctx context.Context) (string, bool) {
	body, ok := p.get(ctx, "https://www.cloudflare.com/cdn-cgi/trace")
	if !ok {
		return "", false
	}
	for _, line := range strings.Split(body, "\n") {
		if cc, found := strings.CutPrefix(line, "loc="); found {
			cc = strings.TrimSpace(cc)
			if len(cc) == 2 {
				return strings.ToUpper(cc), true
			}
		}
	}
	return "", false
}

func (p *DefaultCountryProvider) fetchIPInfo(ctx context.Context) (string, bool) {
	body, ok := p.get(ctx, "https://ipinfo.io/country")
	if !ok {
		return "", false
	}
	cc := strings.ToUpper(strings.TrimSpace(body))
	if len(cc) != 2 {
		return "", false
	}
	return cc, true
}

func (p *DefaultCountryProvider) get(ctx context.Context, url string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", false
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false
	}
	return string(body), true
}

// StaticCountryProvider always reports the same code, so tests and
// embeddings that skip geolocation get a deterministic value.
type StaticCountryProvider struct {
	Code string
}

// Country implements CountryProvider.
func (p StaticCountryProvider) Country(context.Context) (string, error) {
	return p.Code, nil
}
