// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package eapi

import (
	"context"
	"crypto/sha256"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// defaultSectionCacheLimit bounds how many parsed section trees the client
// memoizes. A client typically holds trees for at most two configs, so the
// bound exists to keep pathological usage from growing without limit.
const defaultSectionCacheLimit = 32

// bannerTerminator closes a banner block, alone on its line
const bannerTerminator = "EOF"

// Sections is a parsed configuration tree: an ordered mapping from section
// header lines to the section's full text (header line included).
//
// Keys are the header lines rstripped of trailing whitespace but keeping
// their leading indentation, so nested sub-sections lifted to the top of
// the mapping coexist with top-level sections under distinct keys:
//
//	"mac security"  -> "mac security\n  profile PR\n    cipher aes256-gcm\n"
//	"  profile PR"  -> "  profile PR\n    cipher aes256-gcm\n"
//
// A Sections value is an immutable snapshot of the text it was parsed
// from; do not retain it across configuration changes.
type Sections struct {
	keys []string
	body map[string]string
}

func newSections() *Sections {
	return &Sections{body: make(map[string]string)}
}

// Keys returns the section header lines in document order
func (s *Sections) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Get returns the full text of the section with the given header line
func (s *Sections) Get(key string) (string, bool) {
	text, ok := s.body[key]
	return text, ok
}

// Len returns the number of sections
func (s *Sections) Len() int {
	return len(s.keys)
}

// set inserts or overwrites an entry; an existing key keeps its position.
func (s *Sections) set(key, text string) {
	if _, ok := s.body[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.body[key] = text
}

// appendText extends an existing entry's text.
func (s *Sections) appendText(key, text string) {
	if _, ok := s.body[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.body[key] += text
}

// update merges other's entries into s with other's values winning on
// collision; colliding keys keep their position in s, new keys append in
// other's order.
func (s *Sections) update(other *Sections) {
	for _, key := range other.keys {
		s.set(key, other.body[key])
	}
}

// ParseSections parses flat indented configuration text into a section
// tree.
//
// A section begins at a line with zero indentation; its body is every
// following line indented deeper. When a section closes and its body holds
// lines nested deeper than the body's own first line, the body is parsed
// recursively and the resulting sub-sections are lifted into the tree
// alongside the top-level keys (top-level entries win on key collision).
//
// Banner blocks ("banner ..." through a literal EOF line) are captured
// verbatim and never indentation-parsed, so banner content that happens to
// look like section headers cannot subdivide the block.
//
// Empty text yields an empty tree. The parse is pure; Client.Section
// layers memoization on top.
func ParseSections(config string) *Sections {
	return chunkify(config, 0)
}

// chunkify is the recursive worker behind ParseSections. With indent > 0
// the text is a previously parsed section whose first line is its own
// header, already keyed by the caller, so it is skipped. Banner handling
// applies only at the top level.
func chunkify(config string, indent int) *Sections {
	sections := newSections()
	key := ""
	haveKey := false
	banner := ""
	inBanner := false

	lines := splitKeepEnds(config)
	if indent > 0 && len(lines) > 0 {
		lines = lines[1:]
	}

	for _, line := range lines {
		lineRS := strings.TrimRight(line, " \t\r\n")

		if indent == 0 {
			if inBanner {
				sections.appendText(banner, line)
				if lineRS == bannerTerminator {
					inBanner = false
				}
				continue
			}
			if strings.HasPrefix(line, "banner ") {
				banner = lineRS
				inBanner = true
				sections.set(banner, line)
				continue
			}
		}

		if lineIndent(lineRS) > indent {
			// Body line of the current section
			if !haveKey {
				// Malformed input: body line before any header
				continue
			}
			sections.appendText(key, line)
			continue
		}

		// This line opens a new section; the one just closed may hold
		// nested sub-sections worth lifting
		if haveKey {
			sections = liftSubsections(sections, key)
		}
		key = lineRS
		haveKey = true
		sections.set(key, line)
	}

	return sections
}

// liftSubsections inspects the closed section's body and, when it nests
// deeper than the body's own first line, parses the section recursively
// and merges the sub-tree under the existing top-level entries.
func liftSubsections(sections *Sections, key string) *Sections {
	text, ok := sections.Get(key)
	if !ok {
		return sections
	}

	body := splitKeepEnds(text)
	if len(body) < 2 {
		return sections
	}
	body = body[1:]

	subIndent := lineIndent(strings.TrimRight(body[0], "\r\n"))
	present := false
	for _, line := range body {
		line = strings.TrimRight(line, "\r\n")
		if len(line) > subIndent && line[subIndent] == ' ' {
			present = true
			break
		}
	}
	if !present {
		return sections
	}

	parsed := chunkify(text, subIndent)
	parsed.update(sections)
	return parsed
}

// splitKeepEnds splits text into lines, each keeping its trailing newline
// (the final line may lack one).
func splitKeepEnds(text string) []string {
	if text == "" {
		return nil
	}
	var lines []string
	for len(text) > 0 {
		i := strings.IndexByte(text, '\n')
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i+1])
		text = text[i+1:]
	}
	return lines
}

// lineIndent returns the width of the line's leading whitespace.
func lineIndent(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}

// sectionCache memoizes parsed section trees keyed by content hash, with
// a hard entry bound instead of unbounded growth over the process
// lifetime. Invalidation is a wholesale clear, triggered whenever the
// underlying configuration is known to have changed.
type sectionCache struct {
	mu      sync.Mutex
	limit   int
	entries map[[sha256.Size]byte]*Sections
}

func newSectionCache(limit int) *sectionCache {
	return &sectionCache{
		limit:   limit,
		entries: make(map[[sha256.Size]byte]*Sections),
	}
}

func sectionCacheKey(config string, indent int) [sha256.Size]byte {
	return sha256.Sum256([]byte(strconv.Itoa(indent) + "\x00" + config))
}

func (c *sectionCache) get(key [sha256.Size]byte) (*Sections, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tree, ok := c.entries[key]
	return tree, ok
}

func (c *sectionCache) put(key [sha256.Size]byte, tree *Sections) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.limit {
		// Rare in practice; trees are cheap to recompute
		c.entries = make(map[[sha256.Size]byte]*Sections)
	}
	c.entries[key] = tree
}

func (c *sectionCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[[sha256.Size]byte]*Sections)
}

// parseCached parses config text through the client's memo cache:
// repeated parses of identical text return the cached tree.
func (c *Client) parseCached(config string) *Sections {
	key := sectionCacheKey(config, 0)
	if tree, ok := c.sections.get(key); ok {
		return tree
	}
	tree := chunkify(config, 0)
	c.sections.put(key, tree)
	return tree
}

// ConfigSections returns the parsed section tree of a named config
// (RunningConfigName or StartupConfigName), fetching the config through
// the cached accessors and memoizing the parse.
func (c *Client) ConfigSections(ctx context.Context, config string) (*Sections, error) {
	text, err := c.namedConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	return c.parseCached(text), nil
}

// Section returns the text of the first config section, in document
// order, whose header line matches the regular expression
//
// The match is unanchored, like a search. Zero matching headers is an
// error wrapping ErrSectionNotFound, distinguishable from an
// empty-but-present section.
//
// Example:
//
//	bgp, err := client.Section(ctx, `^router bgp`, eapi.RunningConfigName)
//	if errors.Is(err, eapi.ErrSectionNotFound) {
//	    fmt.Println("BGP not configured")
//	}
func (c *Client) Section(ctx context.Context, regex string, config string) (string, error) {
	re, err := regexp.Compile(regex)
	if err != nil {
		return "", fmt.Errorf("section: invalid regex %q: %w", regex, err)
	}

	tree, err := c.ConfigSections(ctx, config)
	if err != nil {
		return "", err
	}

	for _, key := range tree.Keys() {
		if re.MatchString(key) {
			text, _ := tree.Get(key)
			return text, nil
		}
	}
	return "", fmt.Errorf("section: no header matching %q in %s: %w", regex, config, ErrSectionNotFound)
}

// namedConfig resolves a config name to its (cached) text.
func (c *Client) namedConfig(ctx context.Context, config string) (string, error) {
	switch config {
	case RunningConfigName:
		return c.RunningConfig(ctx)
	case StartupConfigName:
		return c.StartupConfig(ctx)
	default:
		return "", fmt.Errorf("invalid config name %q (must be %q or %q)",
			config, RunningConfigName, StartupConfigName)
	}
}
