package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"evidence-intel-be/internal/entity"
)

type regulatoryCollector struct {
	httpClient
}

// NewRegulatoryCollector builds the regulatory surveillance client (recalls,
// adverse events, clearances).
func NewRegulatoryCollector(baseURL, apiKey string, rps float64) RegulatoryCollector {
	return &regulatoryCollector{newHTTPClient(baseURL, apiKey, rps)}
}

func (c *regulatoryCollector) Source() entity.SourceType {
	return entity.SourceRegulatory
}

func (c *regulatoryCollector) Execute(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error) {
	return c.search(ctx, map[string]string{
		"device":     product.Name,
		"indication": product.Indication,
	})
}

// History pulls regulatory events for the product restricted to phases earlier
// than the current study phase. Serves the phase-aware discovery sub-task.
func (c *regulatoryCollector) History(ctx context.Context, product entity.ProductDescriptor, studyPhase string) (*entity.SourcePayload, error) {
	return c.search(ctx, map[string]string{
		"device":       product.Name,
		"indication":   product.Indication,
		"before_phase": studyPhase,
	})
}

// CompetitorHistory pulls regulatory events for competing devices in the same
// indication, excluding the product itself.
func (c *regulatoryCollector) CompetitorHistory(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error) {
	return c.search(ctx, map[string]string{
		"indication": product.Indication,
		"exclude":    product.Name,
	})
}

func (c *regulatoryCollector) search(ctx context.Context, filters map[string]string) (*entity.SourcePayload, error) {
	keyParts := make([]string, 0, len(filters))
	for k, v := range filters {
		keyParts = append(keyParts, k+"="+v)
	}
	cacheKey := "reg:" + strings.Join(keyParts, "&")
	if payload, ok := c.cached(cacheKey); ok {
		return payload, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	for k, v := range filters {
		params.Add(k, v)
	}
	params.Add("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/surveillance/events?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("regulatory search failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("regulatory search: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Events []struct {
			Id         string  `json:"id"`
			Summary    string  `json:"summary"`
			EventType  string  `json:"event_type"` // recall | adverse_event | clearance | warning_letter
			Year       int     `json:"year"`
			Severity   string  `json:"severity"`
			MatchScore float64 `json:"match_score"`
		} `json:"events"`
		PartialSources []string `json:"partial_sources"` // upstream registries that failed this query
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	items := make([]entity.EvidenceItem, 0, len(result.Events))
	for _, e := range result.Events {
		items = append(items, entity.EvidenceItem{
			Id:          e.Id,
			Title:       e.Summary,
			Kind:        e.EventType,
			Year:        e.Year,
			Relevance:   e.MatchScore,
			HighQuality: e.Severity == "class_i" || e.EventType == "clearance",
		})
	}

	payload := &entity.SourcePayload{Items: items, Partial: len(result.PartialSources) > 0}
	for _, s := range result.PartialSources {
		payload.Notes = append(payload.Notes, fmt.Sprintf("upstream source %s unavailable", s))
	}
	c.remember(cacheKey, payload)
	return payload, nil
}
