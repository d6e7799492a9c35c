package taxon

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/dwcheck/internal/core"
)

// DefaultBaseURL is the WoRMS REST endpoint.
const DefaultBaseURL = "https://www.marinespecies.org/rest"

// matchNamesPath is the batch name-matching operation.
const matchNamesPath = "/AphiaRecordsByMatchNames"

// statusAccepted is the authority status of a currently valid name.
const statusAccepted = "accepted"

// AphiaRecord is one candidate match returned by WoRMS.
// Only the fields the classifier reads are decoded.
type AphiaRecord struct {
	AphiaID        int    `json:"AphiaID"`
	ScientificName string `json:"scientificname"`
	Status         string `json:"status"`
	ValidName      string `json:"valid_name"`
	ValidAphiaID   int    `json:"valid_AphiaID"`
	URL            string `json:"url"`
	MatchType      string `json:"match_type"`
}

// matchNamesURL builds the request URL for one batch. Names keep their
// submitted order; the response is aligned with it.
func matchNamesURL(base string, names []string, marineOnly bool) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + matchNamesPath)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	q := url.Values{}
	for _, n := range names {
		q.Add("scientificnames[]", n)
	}
	q.Set("marine_only", strconv.FormatBool(marineOnly))
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// fetch issues one request for a batch. A 200 response must decode to one
// candidate list per submitted name.
func (c *Client) fetch(ctx context.Context, names []string) ([][]AphiaRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	target, err := matchNamesURL(c.cfg.BaseURL, names, c.cfg.MarineOnly)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.requests.Add(1)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	// 204 means the service matched none of the names; it is treated like
	// any other non-200 answer.
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var lists [][]AphiaRecord
	if err := json.NewDecoder(resp.Body).Decode(&lists); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if len(lists) != len(names) {
		return nil, fmt.Errorf("%w: %d result lists for %d names", ErrMalformedResponse, len(lists), len(names))
	}

	return lists, nil
}

// classify turns the candidate list for name into a result.
// The first candidate is the authority's best match.
func classify(name string, candidates []AphiaRecord) core.TaxonResult {
	if len(candidates) == 0 {
		return core.TaxonResult{Name: name, Status: core.TaxonNotFound}
	}

	best := candidates[0]
	res := core.TaxonResult{
		Name:       name,
		AuthStatus: best.Status,
		ValidName:  best.ValidName,
		URL:        best.URL,
		Candidates: len(candidates),
	}
	if best.Status == statusAccepted {
		res.Status = core.TaxonAccepted
	} else {
		res.Status = core.TaxonNotAccepted
	}
	return res
}
