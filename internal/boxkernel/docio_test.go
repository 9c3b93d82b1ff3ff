package boxkernel

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukaea/overlap-checker/internal/shape"
)

func TestFileCodecSaveThenLoadRoundTrips(t *testing.T) {
	a := NewSolid([3]float64{0, 0, 0}, [3]float64{1, 2, 3})
	b := NewSolid([3]float64{5, 5, 5}, [3]float64{6, 6, 6})
	doc := shape.NewDocument([]shape.Solid{shape.Wrap(a), shape.Wrap(b)})

	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "assembly.box")
	ctx := context.Background()

	codec := FileCodec{}
	require.NoError(t, codec.Save(ctx, path, doc))

	got, err := codec.Load(ctx, path)
	require.NoError(t, err)
	require.Equal(t, 2, got.Len())

	gotBox := got.At(0).Unwrap().(*Shape)
	assert.Equal(t, a.lo, gotBox.lo)
	assert.Equal(t, a.hi, gotBox.hi)
}

func TestFileCodecLoadSkipsBlankAndCommentLines(t *testing.T) {
	content := "# a box\n0 0 0 1 1 1\n\n  \n1 1 1 2 2 2\n"
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "assembly.box")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := FileCodec{}.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())
}

func TestFileCodecLoadRejectsMalformedLine(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := filepath.Join(dir, "assembly.box")
	require.NoError(t, os.WriteFile(path, []byte("0 0 0 1 1\n"), 0o644))

	_, err := FileCodec{}.Load(context.Background(), path)
	assert.Error(t, err)
}

func TestFileCodecSaveRejectsNonSolidTopLevelEntry(t *testing.T) {
	compound := NewCompound(NewSolid([3]float64{0, 0, 0}, [3]float64{1, 1, 1}))
	doc := shape.NewDocument([]shape.Solid{shape.Wrap(compound)})

	var buf bytes.Buffer
	err := encodeDocument(&buf, doc)
	assert.Error(t, err)
}
