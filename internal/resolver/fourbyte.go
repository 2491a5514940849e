package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultFourByteBaseURL is the public Ethereum Signature Database used
// when a caller doesn't configure a resolver endpoint of their own.
const DefaultFourByteBaseURL = "https://www.4byte.directory"

// FourByteDirectory is a Source backed by an HTTP signature directory
// such as the Ethereum Signature Database: one GET per selector,
// returning every text signature on record for it.
type FourByteDirectory struct {
	BaseURL string
	Client  *http.Client
	Timeout time.Duration
}

// NewFourByteDirectory builds a directory client against baseURL (no
// trailing slash) using a private *http.Client so resolver lookups
// never share connection pooling or timeouts with unrelated callers.
func NewFourByteDirectory(baseURL string) *FourByteDirectory {
	return &FourByteDirectory{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{},
		Timeout: 10 * time.Second,
	}
}

type fourByteResponse struct {
	Results []struct {
		TextSignature string `json:"text_signature"`
	} `json:"results"`
}

// Lookup fetches the candidate signatures for selector and parses each
// into a Candidate. Malformed entries are skipped rather than failing
// the whole lookup, since a directory returning one bad row alongside
// nine good ones should not cost the caller all ten.
func (d *FourByteDirectory) Lookup(ctx context.Context, selector [4]byte) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/v1/signatures/?hex_signature=0x%x", d.BaseURL, selector[:])
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("resolver: building request: %w", err)
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolver: fetching signatures for 0x%x: %w", selector[:], err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("resolver: directory returned status %s", resp.Status)
	}

	var parsed fourByteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("resolver: decoding response: %w", err)
	}

	candidates := make([]Candidate, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		c, ok := parseTextSignature(r.TextSignature)
		if ok {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

// parseTextSignature splits "name(type,type,...)" into a Candidate.
// Nested parentheses (tuple arguments) are kept intact as a single
// input slot rather than further decomposed.
func parseTextSignature(sig string) (Candidate, bool) {
	open := strings.IndexByte(sig, '(')
	if open < 0 || !strings.HasSuffix(sig, ")") {
		return Candidate{}, false
	}
	name := sig[:open]
	body := sig[open+1 : len(sig)-1]
	if body == "" {
		return Candidate{Name: name}, true
	}
	return Candidate{Name: name, Inputs: splitTopLevel(body)}, true
}

func splitTopLevel(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}
