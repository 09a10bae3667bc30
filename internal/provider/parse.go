package provider

import (
	"bufio"
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/m333rl1n/cdnx/internal/config"
	"github.com/m333rl1n/cdnx/internal/ranges"
)

// ipv4CIDRRegexp matches IPv4 CIDR notation embedded in arbitrary text
// (HTML pages, API responses with surrounding markup).
var ipv4CIDRRegexp = regexp.MustCompile(
	`(?:(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\.){3}(?:25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])/(?:3[0-2]|[1-2][0-9]|[0-9])`)

// Parse extracts CIDR blocks from a provider response body according to the
// declared format. Malformed individual entries are skipped, never fatal; an
// unparsable body simply yields no blocks.
func Parse(format config.RangeFormat, body []byte) []ranges.CIDRBlock {
	switch format {
	case config.FormatPlainText:
		return parsePlainText(body)
	case config.FormatJSONArray:
		return parseJSONArray(body)
	case config.FormatJSONNested:
		return parseJSONNested(body)
	case config.FormatEmbeddedText:
		return parseEmbeddedText(body)
	}
	return nil
}

// parsePlainText handles one CIDR or bare IP per line. Blank lines and
// comments are ignored.
func parsePlainText(body []byte) []ranges.CIDRBlock {
	var blocks []ranges.CIDRBlock

	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if block, err := ranges.ParseBlock(line); err == nil {
			blocks = append(blocks, block)
		}
	}

	return blocks
}

// parseJSONArray handles a top-level JSON array of CIDR strings.
func parseJSONArray(body []byte) []ranges.CIDRBlock {
	var entries []string
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil
	}

	var blocks []ranges.CIDRBlock
	for _, entry := range entries {
		if block, err := ranges.ParseBlock(entry); err == nil {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// parseJSONNested handles JSON documents with CIDR strings buried in nested
// objects and arrays (fastly's public-ip-list, cloudfront's ip list, oracle's
// per-region documents). The decoded tree is walked and every string leaf
// that parses as an IPv4 CIDR or address is collected.
func parseJSONNested(body []byte) []ranges.CIDRBlock {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil
	}

	var blocks []ranges.CIDRBlock
	collectBlocks(doc, &blocks)
	return blocks
}

func collectBlocks(node interface{}, blocks *[]ranges.CIDRBlock) {
	switch v := node.(type) {
	case string:
		if block, err := ranges.ParseBlock(v); err == nil {
			*blocks = append(*blocks, block)
		}
	case []interface{}:
		for _, item := range v {
			collectBlocks(item, blocks)
		}
	case map[string]interface{}:
		for _, item := range v {
			collectBlocks(item, blocks)
		}
	}
}

// parseEmbeddedText extracts CIDRs by regex from an arbitrary body. This is
// the fallback for providers that publish ranges inside HTML articles.
func parseEmbeddedText(body []byte) []ranges.CIDRBlock {
	var blocks []ranges.CIDRBlock
	for _, match := range ipv4CIDRRegexp.FindAllString(string(body), -1) {
		if block, err := ranges.ParseBlock(match); err == nil {
			blocks = append(blocks, block)
		}
	}
	return blocks
}
