package synthesis

import (
	"context"
	"fmt"
	"strings"

	"evidence-intel-be/internal/constant"
	"evidence-intel-be/internal/entity"
	"evidence-intel-be/pkg/llm"
)

// Generator is the generative-synthesis collaborator used by the research
// pipeline stages. Errors returned here are stage-local: the stage runner
// records them on the stage and the pipeline continues.
type Generator interface {
	CompetitiveAnalysis(ctx context.Context, session *entity.Session, digest string) (string, error)
	StateOfArt(ctx context.Context, session *entity.Session, digest string) (string, error)
	RegulatoryAnalysis(ctx context.Context, session *entity.Session, digest string) (string, error)
	IntelligenceBrief(ctx context.Context, session *entity.Session, sections map[string]string) (string, error)
}

type llmGenerator struct {
	provider llm.LLMProvider
}

// NewGenerator wraps an LLM provider as the synthesis collaborator.
func NewGenerator(provider llm.LLMProvider) Generator {
	return &llmGenerator{provider: provider}
}

func (g *llmGenerator) CompetitiveAnalysis(ctx context.Context, session *entity.Session, digest string) (string, error) {
	return g.section(ctx, session, constant.CompetitiveAnalysisPrompt, digest)
}

func (g *llmGenerator) StateOfArt(ctx context.Context, session *entity.Session, digest string) (string, error) {
	return g.section(ctx, session, constant.StateOfArtPrompt, digest)
}

func (g *llmGenerator) RegulatoryAnalysis(ctx context.Context, session *entity.Session, digest string) (string, error) {
	return g.section(ctx, session, constant.RegulatoryAnalysisPrompt, digest)
}

func (g *llmGenerator) IntelligenceBrief(ctx context.Context, session *entity.Session, sections map[string]string) (string, error) {
	var drafts strings.Builder
	for _, name := range entity.StageOrder {
		if text, ok := sections[name]; ok && text != "" {
			drafts.WriteString(fmt.Sprintf("## %s\n%s\n\n", name, text))
		}
	}
	return g.section(ctx, session, constant.ReportGenerationPrompt, drafts.String())
}

func (g *llmGenerator) section(ctx context.Context, session *entity.Session, template, body string) (string, error) {
	prompt := fmt.Sprintf(template, session.Product.Name, session.Product.Indication, body)
	text, err := g.provider.Chat(ctx, []llm.Message{
		{Role: "system", Content: constant.SynthesisSystemPrompt},
		{Role: "user", Content: prompt},
	}, llm.WithTemperature(0.3))
	if err != nil {
		return "", fmt.Errorf("synthesis call failed: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("synthesis returned empty section")
	}
	return text, nil
}

// Digest flattens discovery results into the plain-text evidence digest the
// prompts consume. Pure helper, exported for the ingestion stage.
func Digest(discovery *entity.DiscoveryResult) string {
	if discovery == nil {
		return "no discovery data available"
	}
	var b strings.Builder
	for _, src := range discovery.Sources {
		fmt.Fprintf(&b, "# %s (%s, %d items)\n", src.Source, src.Status, src.ItemsFound)
		limit := len(src.Items)
		if limit > 25 {
			limit = 25
		}
		for _, item := range src.Items[:limit] {
			fmt.Fprintf(&b, "- [%s] %s (%s, %d, relevance %.2f)\n", item.Id, item.Title, item.Kind, item.Year, item.Relevance)
		}
	}
	if len(discovery.Errors) > 0 {
		b.WriteString("# discovery gaps\n")
		for _, e := range discovery.Errors {
			b.WriteString("- " + e + "\n")
		}
	}
	return b.String()
}
