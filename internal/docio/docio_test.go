package docio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaea/overlap-checker/internal/boxkernel"
	"github.com/ukaea/overlap-checker/internal/shape"
)

func TestMemoryLoadReturnsWhatWasSaved(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	solid := shape.Wrap(boxkernel.NewSolid([3]float64{0, 0, 0}, [3]float64{1, 1, 1}))
	doc := shape.NewDocument([]shape.Solid{solid})

	require.NoError(t, m.Save(ctx, "assembly.brep", doc))

	got, err := m.Load(ctx, "assembly.brep")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestMemoryLoadUnknownPathIsAnError(t *testing.T) {
	m := NewMemory()
	_, err := m.Load(context.Background(), "missing.brep")
	assert.Error(t, err)
}

func TestMemorySeedLetsLoadSkipSave(t *testing.T) {
	m := NewMemory()
	doc := shape.NewDocument(nil)
	m.Seed("seeded.brep", doc)

	got, err := m.Load(context.Background(), "seeded.brep")
	require.NoError(t, err)
	assert.Same(t, doc, got)
}
