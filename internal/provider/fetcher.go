// Package provider downloads and parses published CDN/WAF IP range lists.
// Formats vary per provider; parsing is isolated here so one provider's
// breakage never aborts a refresh of the others.
package provider

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/m333rl1n/cdnx/internal/config"
	"github.com/m333rl1n/cdnx/internal/errors"
	"github.com/m333rl1n/cdnx/internal/log"
	"github.com/m333rl1n/cdnx/internal/ranges"
	"github.com/m333rl1n/cdnx/internal/utils"
)

// maxBodySize caps a provider response. The largest real list (oracle's
// public_ip_ranges.json) is well under 4 MiB.
const maxBodySize = 16 << 20

// Fetcher downloads provider range lists with a bounded timeout.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher whose HTTP requests time out after timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads one provider's list and parses it according to the
// provider's declared format. Any failure (transport, HTTP status, empty or
// unparsable body) is returned as a FETCH_ERROR for the caller to recover
// from; it never aborts other providers.
func (f *Fetcher) Fetch(source *config.ProviderSource) ([]ranges.CIDRBlock, error) {
	log.Debugf("Fetching provider %q from %s", source.Name, source.URL)

	resp, err := f.client.Get(source.URL)
	if err != nil {
		return nil, errors.NewFetchError(fmt.Sprintf("provider %q request failed", source.Name), err)
	}
	defer utils.CloseOrWarn(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewFetchError(
			fmt.Sprintf("provider %q returned %s", source.Name, resp.Status), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.NewFetchError(fmt.Sprintf("provider %q body read failed", source.Name), err)
	}

	blocks := Parse(source.Format, body)
	if len(blocks) == 0 {
		return nil, errors.NewFetchError(
			fmt.Sprintf("provider %q yielded no usable ranges (%d bytes, format %s)",
				source.Name, len(body), source.Format), nil)
	}

	log.Debugf("Provider %q yielded %d block(s)", source.Name, len(blocks))
	return blocks, nil
}
