package player

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockRecorder records each Write as one block and whether Close was
// called.
type blockRecorder struct {
	blocks [][]byte
	closed bool
}

func (r *blockRecorder) Write(p []byte) (int, error) {
	b := make([]byte, len(p))
	copy(b, p)
	r.blocks = append(r.blocks, b)
	return len(p), nil
}

func (r *blockRecorder) Close() error {
	r.closed = true
	return nil
}

func TestProduceBlockSizes(t *testing.T) {
	cases := []struct {
		name       string
		total      int
		blockSize  int
		wantBlocks []int
	}{
		{"exact multiple", 30, 10, []int{10, 10, 10}},
		{"remainder", 25, 10, []int{10, 10, 5}},
		{"smaller than block", 7, 10, []int{7}},
		{"single byte blocks", 3, 1, []int{1, 1, 1}},
		{"empty source", 0, 10, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src := bytes.NewReader(bytes.Repeat([]byte{0xAB}, tc.total))
			dst := &blockRecorder{}

			blocks, total, err := produce(src, dst, tc.blockSize)
			require.NoError(t, err)

			assert.Equal(t, len(tc.wantBlocks), blocks)
			assert.Equal(t, int64(tc.total), total)
			assert.True(t, dst.closed, "destination must be closed at end of stream")

			var sizes []int
			for _, b := range dst.blocks {
				sizes = append(sizes, len(b))
			}
			assert.Equal(t, tc.wantBlocks, sizes)
		})
	}
}

func TestProducePreservesBytes(t *testing.T) {
	payload := []byte("abcdefghijklmnopqrstuvwxyz")
	dst := &blockRecorder{}

	_, _, err := produce(bytes.NewReader(payload), dst, 8)
	require.NoError(t, err)

	assert.Equal(t, payload, bytes.Join(dst.blocks, nil))
}

type failingWriter struct{ closed bool }

func (w *failingWriter) Write(p []byte) (int, error) { return 0, errors.New("pipe broke") }
func (w *failingWriter) Close() error                { w.closed = true; return nil }

func TestProduceWriteError(t *testing.T) {
	src := bytes.NewReader(bytes.Repeat([]byte{1}, 20))
	dst := &failingWriter{}

	blocks, total, err := produce(src, dst, 10)
	require.Error(t, err)
	assert.Equal(t, 0, blocks)
	assert.Equal(t, int64(0), total)
	assert.True(t, dst.closed, "destination must be closed on error too")
}

type failingReader struct{}

func (failingReader) Read(p []byte) (int, error) { return 0, errors.New("socket reset") }

func TestProduceReadError(t *testing.T) {
	dst := &blockRecorder{}

	_, _, err := produce(failingReader{}, dst, 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
	assert.True(t, dst.closed)
}
