package collector

import (
	"context"
	"testing"

	"evidence-intel-be/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCollectorNeverFails(t *testing.T) {
	c := NewRegistryCollector()

	payload, err := c.Execute(context.Background(), entity.ProductDescriptor{
		Name:       "Apex Hip System",
		Indication: "total hip arthroplasty",
	})
	require.NoError(t, err)
	require.NotEmpty(t, payload.Items)

	// Every reference registry is returned; coverage only changes relevance.
	assert.Len(t, payload.Items, len(registryReference))
	for _, item := range payload.Items {
		assert.Equal(t, 0.95, item.Relevance, "hip registries should score as covering")
	}
}

func TestRegistryCollectorRelevanceDropsWhenNotCovering(t *testing.T) {
	c := NewRegistryCollector()

	payload, err := c.Execute(context.Background(), entity.ProductDescriptor{
		Name:       "Spinal Fusion Cage",
		Indication: "lumbar interbody fusion",
	})
	require.NoError(t, err)

	for _, item := range payload.Items {
		assert.Equal(t, 0.5, item.Relevance)
	}
}

func TestRegistryExclusionReason(t *testing.T) {
	hip := entity.ProductDescriptor{Indication: "total hip arthroplasty"}
	spine := entity.ProductDescriptor{Indication: "lumbar interbody fusion"}

	for _, ref := range registryReference {
		assert.Empty(t, ref.ExclusionReason(hip), ref.Id)
		assert.NotEmpty(t, ref.ExclusionReason(spine), ref.Id)
	}
}

func TestRegistriesReturnsCopy(t *testing.T) {
	c := NewRegistryCollector().(*registryCollector)

	rows := c.Registries(entity.ProductDescriptor{Indication: "knee"})
	require.Len(t, rows, len(registryReference))

	rows[0].Id = "mutated"
	assert.NotEqual(t, "mutated", c.reference[0].Id)
}
