package pairio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenReadRoundTrips(t *testing.T) {
	var buf strings.Builder
	w := NewWriter(&buf)
	require.NoError(t, w.Write(Row{I: 0, J: 1, Status: StatusTouch}))
	require.NoError(t, w.Write(Row{I: 2, J: 5, Status: StatusOverlap, VolCommon: 1.5, VolI: 10, VolJ: 20, HasVolumes: true}))
	require.NoError(t, w.Write(Row{I: 3, J: 4, Status: StatusBadOverlap, VolCommon: 99, VolI: 1, VolJ: 2, HasVolumes: true}))
	require.NoError(t, w.Flush())

	rows, err := ReadAll(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, StatusTouch, rows[0].Status)
	assert.False(t, rows[0].HasVolumes)
	assert.Equal(t, StatusOverlap, rows[1].Status)
	assert.InDelta(t, 1.5, rows[1].VolCommon, 1e-9)
	assert.Equal(t, StatusBadOverlap, rows[2].Status)
}

func TestReadRejectsUnknownStatus(t *testing.T) {
	_, err := ReadAll(strings.NewReader("0,1,mystery\n"))
	assert.Error(t, err)
}

func TestReadRejectsTouchRowWithVolumes(t *testing.T) {
	_, err := ReadAll(strings.NewReader("0,1,touch,1,2,3\n"))
	assert.Error(t, err)
}

func TestReadRejectsOverlapRowMissingVolumes(t *testing.T) {
	_, err := ReadAll(strings.NewReader("0,1,overlap\n"))
	assert.Error(t, err)
}

func TestForImprintFiltersTouchRows(t *testing.T) {
	rows := []Row{
		{I: 0, J: 1, Status: StatusTouch},
		{I: 1, J: 2, Status: StatusOverlap, HasVolumes: true},
		{I: 2, J: 3, Status: StatusBadOverlap, HasVolumes: true},
	}
	filtered := ForImprint(rows)
	require.Len(t, filtered, 2)
	assert.Equal(t, StatusOverlap, filtered[0].Status)
	assert.Equal(t, StatusBadOverlap, filtered[1].Status)
}
