package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"evidence-intel-be/internal/entity"
)

type competitiveCollector struct {
	httpClient
}

// NewCompetitiveCollector builds the competitive intelligence client.
func NewCompetitiveCollector(baseURL, apiKey string, rps float64) CompetitiveCollector {
	return &competitiveCollector{newHTTPClient(baseURL, apiKey, rps)}
}

func (c *competitiveCollector) Source() entity.SourceType {
	return entity.SourceCompetitive
}

func (c *competitiveCollector) Execute(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error) {
	cacheKey := fmt.Sprintf("comp:%s:%s", product.Name, product.Indication)
	if payload, ok := c.cached(cacheKey); ok {
		return payload, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("product", product.Name)
	params.Add("market", product.Indication)
	params.Add("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/landscape?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("competitive search failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("competitive search: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Competitors []struct {
			Id           string  `json:"id"`
			Name         string  `json:"name"`
			Segment      string  `json:"segment"`
			LaunchYear   int     `json:"launch_year"`
			Overlap      float64 `json:"overlap"`
			HasBenchmark bool    `json:"has_benchmark"`
		} `json:"competitors"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	items := make([]entity.EvidenceItem, 0, len(result.Competitors))
	for _, comp := range result.Competitors {
		items = append(items, entity.EvidenceItem{
			Id:          comp.Id,
			Title:       comp.Name,
			Kind:        comp.Segment,
			Year:        comp.LaunchYear,
			Relevance:   comp.Overlap,
			HighQuality: comp.HasBenchmark,
		})
	}

	payload := &entity.SourcePayload{Items: items}
	c.remember(cacheKey, payload)
	return payload, nil
}
