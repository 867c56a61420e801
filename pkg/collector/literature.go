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

// highQualityStudyTypes are the publication kinds treated as high-quality
// evidence by the quality heuristic.
var highQualityStudyTypes = map[string]bool{
	"meta_analysis":     true,
	"systematic_review": true,
	"rct":               true,
}

type literatureCollector struct {
	httpClient
}

// NewLiteratureCollector builds the published-literature search client.
func NewLiteratureCollector(baseURL, apiKey string, rps float64) LiteratureCollector {
	return &literatureCollector{newHTTPClient(baseURL, apiKey, rps)}
}

func (c *literatureCollector) Source() entity.SourceType {
	return entity.SourceLiterature
}

func (c *literatureCollector) Execute(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error) {
	cacheKey := fmt.Sprintf("lit:%s:%s", product.Name, product.Indication)
	if payload, ok := c.cached(cacheKey); ok {
		return payload, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Add("term", product.Name)
	params.Add("indication", product.Indication)
	if len(product.Technologies) > 0 {
		params.Add("keywords", strings.Join(product.Technologies, ","))
	}
	params.Add("limit", "200")
	params.Add("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/publications/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("literature search failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("literature search: status %d, body: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Publications []struct {
			Id        string  `json:"id"`
			Title     string  `json:"title"`
			StudyType string  `json:"study_type"`
			Year      int     `json:"year"`
			MatchRate float64 `json:"match_rate"`
			URL       string  `json:"url"`
		} `json:"publications"`
		Truncated bool `json:"truncated"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	items := make([]entity.EvidenceItem, 0, len(result.Publications))
	for _, p := range result.Publications {
		items = append(items, entity.EvidenceItem{
			Id:          p.Id,
			Title:       p.Title,
			Kind:        p.StudyType,
			Year:        p.Year,
			Relevance:   p.MatchRate,
			HighQuality: highQualityStudyTypes[p.StudyType],
			URL:         p.URL,
		})
	}

	payload := &entity.SourcePayload{Items: items, Partial: result.Truncated}
	if result.Truncated {
		payload.Notes = append(payload.Notes, "publication result set truncated by upstream limit")
	}
	c.remember(cacheKey, payload)
	return payload, nil
}
