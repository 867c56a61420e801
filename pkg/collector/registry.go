package collector

import (
	"context"
	"strings"

	"evidence-intel-be/internal/entity"
)

// RegistryRef describes one implant registry from the static reference set.
type RegistryRef struct {
	Id           string
	Name         string
	Region       string
	Indications  []string // lowercase keywords the registry covers
	HasBenchmark bool     // registry publishes structured benchmark data
	Since        int      // first annual report year
}

// registryReference is the static local data set. Registry discovery is a
// modeling shortcut: it is served in-process and never fails. If this ever
// becomes a remote call the discovery failure model must be revisited.
var registryReference = []RegistryRef{
	{Id: "aoanjrr", Name: "Australian Orthopaedic Association National Joint Replacement Registry", Region: "AU", Indications: []string{"hip", "knee", "shoulder"}, HasBenchmark: true, Since: 1999},
	{Id: "njr", Name: "National Joint Registry for England, Wales and Northern Ireland", Region: "UK", Indications: []string{"hip", "knee", "ankle", "elbow", "shoulder"}, HasBenchmark: true, Since: 2003},
	{Id: "ajrr", Name: "American Joint Replacement Registry", Region: "US", Indications: []string{"hip", "knee"}, HasBenchmark: true, Since: 2012},
	{Id: "lroi", Name: "Dutch Arthroplasty Register", Region: "NL", Indications: []string{"hip", "knee", "shoulder"}, HasBenchmark: true, Since: 2007},
	{Id: "sar", Name: "Swedish Arthroplasty Register", Region: "SE", Indications: []string{"hip", "knee"}, HasBenchmark: true, Since: 1979},
	{Id: "ear", Name: "German Arthroplasty Registry", Region: "DE", Indications: []string{"hip", "knee"}, HasBenchmark: false, Since: 2012},
	{Id: "cjrr", Name: "Canadian Joint Replacement Registry", Region: "CA", Indications: []string{"hip", "knee"}, HasBenchmark: false, Since: 2001},
}

type registryCollector struct {
	reference []RegistryRef
}

// NewRegistryCollector serves the static implant-registry reference data.
func NewRegistryCollector() RegistryCollector {
	return &registryCollector{reference: registryReference}
}

func (c *registryCollector) Source() entity.SourceType {
	return entity.SourceRegistry
}

// Execute maps every covering registry to an evidence item. No I/O, no error
// path: the registry category always counts as completed.
func (c *registryCollector) Execute(ctx context.Context, product entity.ProductDescriptor) (*entity.SourcePayload, error) {
	items := make([]entity.EvidenceItem, 0, len(c.reference))
	for _, ref := range c.reference {
		relevance := 0.5
		if ref.covers(product.Indication) {
			relevance = 0.95
		}
		items = append(items, entity.EvidenceItem{
			Id:          ref.Id,
			Title:       ref.Name,
			Kind:        ref.Region,
			Year:        ref.Since,
			Relevance:   relevance,
			HighQuality: ref.HasBenchmark,
		})
	}
	return &entity.SourcePayload{Items: items}, nil
}

// Registries returns the raw reference rows for recommendation seeding.
func (c *registryCollector) Registries(product entity.ProductDescriptor) []RegistryRef {
	out := make([]RegistryRef, len(c.reference))
	copy(out, c.reference)
	return out
}

// ExclusionReason returns why a registry should seed as rejected, or "" when
// it is a viable source for the product.
func (r RegistryRef) ExclusionReason(product entity.ProductDescriptor) string {
	if r.covers(product.Indication) {
		return ""
	}
	return "registry does not cover indication: " + product.Indication
}

func (r RegistryRef) covers(indication string) bool {
	needle := strings.ToLower(indication)
	for _, keyword := range r.Indications {
		if strings.Contains(needle, keyword) {
			return true
		}
	}
	return false
}
