package constant

// Prompt templates for the research pipeline stages. Each template receives
// the corpus digest produced by the ingestion stage plus the product context.

const SynthesisSystemPrompt = `You are a clinical evidence analyst producing sections of a data-product intelligence report.
Work only from the evidence digest provided. Cite item ids inline like [id].
If the digest is thin for a topic, say so explicitly instead of inventing findings.`

const CompetitiveAnalysisPrompt = `Product: %s (%s)
Evidence digest:
%s

Write the COMPETITIVE ANALYSIS section: positioning of the product against the competitors in the digest,
differentiating technologies, and evidence gaps relative to the competition. Plain prose, no preamble.`

const StateOfArtPrompt = `Product: %s (%s)
Evidence digest:
%s

Write the STATE OF THE ART section: synthesize the literature and trial evidence into the current
standard of care, outcome benchmarks, and where this product sits. Plain prose, no preamble.`

const RegulatoryAnalysisPrompt = `Product: %s (%s)
Evidence digest:
%s

Write the REGULATORY ANALYSIS section: recalls, adverse-event signals, clearance history and what they
imply for the evidence strategy. Plain prose, no preamble.`

const ReportGenerationPrompt = `Product: %s (%s)
Section drafts:
%s

Write the INTELLIGENCE BRIEF: an executive summary (max 400 words) that pulls the section drafts together
with a clear evidence-readiness verdict. Plain prose, no preamble.`
