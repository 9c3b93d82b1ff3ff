package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaea/overlap-checker/internal/boxkernel"
	"github.com/ukaea/overlap-checker/internal/shape"
)

func cube(lo [3]float64, side float64) *boxkernel.Shape {
	hi := [3]float64{lo[0] + side, lo[1] + side, lo[2] + side}
	return boxkernel.NewSolid(lo, hi)
}

func TestMergeThreeAbuttingCubesCollapsesSharedFaces(t *testing.T) {
	// Three unit cubes in a row, each exactly touching the next: (0,0,0),
	// (1,0,0), (2,0,0). Raw faces = 3*6 = 18; each of the two touching
	// pairs shares one face pair, so face groups drop by exactly two.
	a := cube([3]float64{0, 0, 0}, 1)
	b := cube([3]float64{1, 0, 0}, 1)
	c := cube([3]float64{2, 0, 0}, 1)
	doc := shape.NewDocument([]shape.Solid{shape.Wrap(a), shape.Wrap(b), shape.Wrap(c)})

	m := New(boxkernel.New(), 1e-6)
	summary, err := m.Merge(doc)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Leaves)
	assert.Equal(t, 18, summary.RawFaces)
	assert.Equal(t, 2, summary.FaceGroups, "exactly two face pairs glued (a-b, b-c)")
	assert.Equal(t, 3, doc.Len(), "merge never changes Document length (P3)")
}

func TestMergeDisjointCubesFindsNoGroups(t *testing.T) {
	a := cube([3]float64{0, 0, 0}, 1)
	b := cube([3]float64{100, 100, 100}, 1)
	doc := shape.NewDocument([]shape.Solid{shape.Wrap(a), shape.Wrap(b)})

	m := New(boxkernel.New(), 1e-6)
	summary, err := m.Merge(doc)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.EdgeGroups)
	assert.Equal(t, 0, summary.FaceGroups)
}

func TestMergePreservesTotalVolume(t *testing.T) {
	a := cube([3]float64{0, 0, 0}, 1)
	b := cube([3]float64{1, 0, 0}, 1)
	doc := shape.NewDocument([]shape.Solid{shape.Wrap(a), shape.Wrap(b)})

	before, err := doc.TotalVolume()
	require.NoError(t, err)

	m := New(boxkernel.New(), 1e-6)
	_, err = m.Merge(doc)
	require.NoError(t, err)

	after, err := doc.TotalVolume()
	require.NoError(t, err)
	assert.InDelta(t, before, after, 1e-9)
}

func TestMergeEmptyDocumentIsNotAnError(t *testing.T) {
	doc := shape.NewDocument(nil)
	m := New(boxkernel.New(), 1e-6)
	summary, err := m.Merge(doc)
	require.NoError(t, err)
	assert.Equal(t, Summary{}, summary)
}

func TestClusterVerticesSharesCornersBetweenTouchingCubes(t *testing.T) {
	a := cube([3]float64{0, 0, 0}, 1)
	b := cube([3]float64{1, 0, 0}, 1)
	verts := append(a.Vertices(), b.Vertices()...)
	origin, numClusters, err := clusterVertices(boxkernel.New(), verts, 1e-6)
	require.NoError(t, err)
	require.NotNil(t, origin)
	// 8 corners each, 4 shared on the touching face => 12 distinct points.
	assert.Equal(t, 12, numClusters)
}
