package geompb

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairMarshalUnmarshalRoundTrips(t *testing.T) {
	cases := []Pair{
		{I: 0, J: 1, Status: Status_TOUCH},
		{I: 3, J: 9, Status: Status_OVERLAP, VolCommon: 1.5, VolI: 2.0, VolJ: 3.0},
		{I: 1000000, J: 1, Status: Status_BAD_OVERLAP, VolCommon: -0.5, VolI: 10, VolJ: 20},
	}
	for _, want := range cases {
		buf, err := want.Marshal()
		require.NoError(t, err)
		assert.Equal(t, want.Size(), len(buf))

		var got Pair
		require.NoError(t, got.Unmarshal(buf))
		assert.Equal(t, want, got)
	}
}

func TestPairUnmarshalRejectsUnknownField(t *testing.T) {
	buf := appendVarint(nil, tag(99, wireVarint))
	buf = appendVarint(buf, 1)
	var p Pair
	assert.Error(t, p.Unmarshal(buf))
}

func TestWriteReadDelimitedRoundTripsAStream(t *testing.T) {
	pairs := []*Pair{
		{I: 0, J: 1, Status: Status_TOUCH},
		{I: 2, J: 5, Status: Status_OVERLAP, VolCommon: 4, VolI: 8, VolJ: 12},
	}

	var buf bytes.Buffer
	for _, p := range pairs {
		require.NoError(t, WriteDelimited(&buf, p))
	}

	for _, want := range pairs {
		got, err := ReadDelimited(&buf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ReadDelimited(&buf)
	assert.Equal(t, io.EOF, err)
}

func TestStatusStringUnknownValue(t *testing.T) {
	assert.Equal(t, "Status(7)", Status(7).String())
}
