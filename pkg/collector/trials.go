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

type trialsCollector struct {
	httpClient
}

// NewTrialsCollector builds the clinical-trial registry client.
func NewTrialsCollector(baseURL, apiKey string, rps float64) TrialsCollector {
	return &trialsCollector{newHTTPClient(baseURL, apiKey, rps)}
}

func (c *trialsCollector) Source() entity.SourceType {
	return entity.SourceTrials
}

func (c *trialsCollector) Execute(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error) {
	params := url.Values{}
	params.Add("intervention", product.Name)
	params.Add("condition", product.Indication)
	if product.ProtocolId != "" {
		params.Add("protocol", product.ProtocolId)
	}
	return c.search(ctx, "trials:own:"+product.Name, params)
}

// Competitors searches trials for the same condition run by other sponsors.
func (c *trialsCollector) Competitors(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error) {
	params := url.Values{}
	params.Add("condition", product.Indication)
	params.Add("exclude_intervention", product.Name)
	return c.search(ctx, "trials:competitors:"+product.Indication, params)
}

func (c *trialsCollector) search(ctx context.Context, cacheKey string, params url.Values) (*entity.SourcePayload, error) {
	if payload, ok := c.cached(cacheKey); ok {
		return payload, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params.Add("apiKey", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/studies/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trial search failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trial search: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Studies []struct {
			NctId      string  `json:"nct_id"`
			Title      string  `json:"title"`
			StudyKind  string  `json:"study_kind"` // interventional | observational | expanded_access
			StartYear  int     `json:"start_year"`
			Similarity float64 `json:"similarity"`
			HasResults bool    `json:"has_results"`
			URL        string  `json:"url"`
		} `json:"studies"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	items := make([]entity.EvidenceItem, 0, len(result.Studies))
	for _, s := range result.Studies {
		items = append(items, entity.EvidenceItem{
			Id:          s.NctId,
			Title:       s.Title,
			Kind:        s.StudyKind,
			Year:        s.StartYear,
			Relevance:   s.Similarity,
			HighQuality: s.HasResults,
			URL:         s.URL,
		})
	}

	payload := &entity.SourcePayload{Items: items}
	c.remember(cacheKey, payload)
	return payload, nil
}
