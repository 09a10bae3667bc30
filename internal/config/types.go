package config

import (
	"path/filepath"
	"time"

	"github.com/m333rl1n/cdnx/internal/utils"
)

// RangeFormat selects the parse strategy for a provider's published IP list.
type RangeFormat string

const (
	// FormatPlainText is one CIDR or bare IP per line.
	FormatPlainText RangeFormat = "plain-text"
	// FormatJSONArray is a top-level JSON array of CIDR strings.
	FormatJSONArray RangeFormat = "json-array"
	// FormatJSONNested is a JSON document with CIDR strings nested in
	// objects/arrays (e.g. fastly, cloudfront, oracle).
	FormatJSONNested RangeFormat = "json-nested"
	// FormatEmbeddedText extracts CIDRs by regex from an arbitrary body
	// (HTML knowledge-base pages and the like).
	FormatEmbeddedText RangeFormat = "embedded-text"
)

const (
	DefaultIntervalSeconds  = 172800 // 2 days
	DefaultThreads          = 100
	DefaultFetchTimeoutSec  = 10
	DefaultFetchParallel    = 8
	DefaultLookupTimeoutSec = 3
	DefaultCacheFile        = "cidr.json"
	DefaultHostTemplate     = "{{host}}"
	DefaultPortTemplate     = "{{host}}:{{port}}"
)

type Config struct {
	// General holds general configuration.
	General *GeneralConfig `toml:"general"`
	// Providers enumerates the CDN/WAF range sources. Each needs a name,
	// a URL and a format.
	Providers []*ProviderSource `toml:"provider,omitempty"`

	_absConfigFilePath string
}

type GeneralConfig struct {
	// IntervalSeconds is the staleness interval for cached ranges. A cache
	// younger than this is reused without any network activity (default: 172800 = 2 days).
	IntervalSeconds int `toml:"interval_seconds" json:"interval_seconds" validate:"gte=0"`
	// Threads is the resolver worker pool size (default: 100).
	Threads int `toml:"threads" json:"threads" validate:"gte=0"`
	// CachePath is the range cache file, relative to the config directory
	// unless absolute (default: cidr.json).
	CachePath string `toml:"cache_path" json:"cache_path"`
	// DNSServers overrides the system resolvers. Entries are "ip" or
	// "ip:port" (default: empty = use /etc/resolv.conf).
	DNSServers []string `toml:"dns_servers,omitempty" json:"dns_servers,omitempty" validate:"dive,dns_server"`
	// FetchTimeoutSeconds is the per-provider HTTP timeout (default: 10).
	FetchTimeoutSeconds int `toml:"fetch_timeout_seconds" json:"fetch_timeout_seconds" validate:"gte=0"`
	// FetchConcurrency bounds parallel provider fetches during a refresh (default: 8).
	FetchConcurrency int `toml:"fetch_concurrency" json:"fetch_concurrency" validate:"gte=0"`
	// LookupTimeoutSeconds is the per-domain DNS lookup timeout (default: 3).
	LookupTimeoutSeconds int `toml:"lookup_timeout_seconds" json:"lookup_timeout_seconds" validate:"gte=0"`
	// HostTemplate renders a bare hostname output line (default: {{host}}).
	HostTemplate string `toml:"host_template" json:"host_template"`
	// PortTemplate renders a hostname:port output line (default: {{host}}:{{port}}).
	PortTemplate string `toml:"port_template" json:"port_template"`
}

type ProviderSource struct {
	// Name identifies the provider in logs and cache diagnostics.
	Name string `toml:"name" json:"name" validate:"required,provider_name"`
	// URL is the provider's published IP list.
	URL string `toml:"url" json:"url" validate:"required,url"`
	// Format selects the parse strategy for the response body.
	Format RangeFormat `toml:"format" json:"format" validate:"required,range_format"`
}

// Default returns the built-in configuration written on first run. The
// provider list mirrors the ranges the tool has always shipped with.
func Default() *Config {
	return &Config{
		General: &GeneralConfig{
			IntervalSeconds: DefaultIntervalSeconds,
			Threads:         DefaultThreads,
			CachePath:       DefaultCacheFile,
		},
		Providers: []*ProviderSource{
			{Name: "fastly", URL: "https://api.fastly.com/public-ip-list", Format: FormatJSONNested},
			{Name: "cloudflare", URL: "https://www.cloudflare.com/ips-v4", Format: FormatPlainText},
			{Name: "cloudfront", URL: "https://d7uri8nf7uskq.cloudfront.net/tools/list-cloudfront-ips", Format: FormatJSONNested},
			{Name: "maxcdn", URL: "https://support.maxcdn.com/hc/en-us/article_attachments/360051920551/maxcdn_ips.txt", Format: FormatPlainText},
			{Name: "cachefly", URL: "https://cachefly.cachefly.net/ips/rproxy.txt", Format: FormatPlainText},
			{Name: "imperva", URL: "https://docs-be.imperva.com/api/bundle/z-kb-articles-km/page/c85245b7.html", Format: FormatEmbeddedText},
			{Name: "sotoon", URL: "http://edge.sotoon.ir/ip-list.json", Format: FormatJSONArray},
			{Name: "oracle", URL: "https://docs.oracle.com/en-us/iaas/tools/public_ip_ranges.json", Format: FormatJSONNested},
			{Name: "cdnx_static", URL: "https://raw.githubusercontent.com/m333rl1n/cdnx/main/static-CIDRs.txt", Format: FormatPlainText},
			{Name: "incapsula", URL: "https://my.incapsula.com/api/integration/v1/ips", Format: FormatEmbeddedText},
		},
	}
}

// ApplyDefaults fills in zero-valued general settings.
func (c *Config) ApplyDefaults() {
	if c.General == nil {
		c.General = &GeneralConfig{}
	}
	g := c.General
	if g.IntervalSeconds == 0 {
		g.IntervalSeconds = DefaultIntervalSeconds
	}
	if g.Threads == 0 {
		g.Threads = DefaultThreads
	}
	if g.CachePath == "" {
		g.CachePath = DefaultCacheFile
	}
	if g.FetchTimeoutSeconds == 0 {
		g.FetchTimeoutSeconds = DefaultFetchTimeoutSec
	}
	if g.FetchConcurrency == 0 {
		g.FetchConcurrency = DefaultFetchParallel
	}
	if g.LookupTimeoutSeconds == 0 {
		g.LookupTimeoutSeconds = DefaultLookupTimeoutSec
	}
	if g.HostTemplate == "" {
		g.HostTemplate = DefaultHostTemplate
	}
	if g.PortTemplate == "" {
		g.PortTemplate = DefaultPortTemplate
	}
}

func (c *Config) GetConfigDir() string {
	return filepath.Dir(c._absConfigFilePath)
}

// GetAbsCachePath resolves the cache file location against the config directory.
func (c *Config) GetAbsCachePath() string {
	return utils.GetAbsolutePath(c.General.CachePath, c.GetConfigDir())
}

// Interval returns the staleness interval as a duration.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.General.IntervalSeconds) * time.Second
}

// FetchTimeout returns the per-provider HTTP timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.General.FetchTimeoutSeconds) * time.Second
}

// LookupTimeout returns the per-domain DNS timeout as a duration.
func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.General.LookupTimeoutSeconds) * time.Second
}
