package ipc

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFrameLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte(`"Play"`)))

	assert.Equal(t, append([]byte{6}, []byte(`"Play"`)...), buf.Bytes())
}

func TestWriteFrameMaxPayload(t *testing.T) {
	var buf bytes.Buffer
	payload := bytes.Repeat([]byte{'x'}, MaxPayload)
	require.NoError(t, WriteFrame(&buf, payload))
	assert.Equal(t, byte(255), buf.Bytes()[0])
	assert.Len(t, buf.Bytes(), MaxPayload+1)

	buf.Reset()
	err := WriteFrame(&buf, append(payload, 'x'))
	require.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Zero(t, buf.Len(), "при ошибке ничего не должно записываться")
}

func TestReadFrame(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("first")))
	require.NoError(t, WriteFrame(&buf, nil))
	require.NoError(t, WriteFrame(&buf, []byte("second")))

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	got, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	_, err = ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameTruncated(t *testing.T) {
	r := bytes.NewReader([]byte{10, 'a', 'b', 'c'})
	_, err := ReadFrame(r)
	assert.ErrorIs(t, err, ErrProtocol)
}

// chunkReader отдает данные по одному байту, как медленное соединение
type chunkReader struct {
	data []byte
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	p[0] = c.data[0]
	c.data = c.data[1:]
	return 1, nil
}

func TestReadFrameBlocksUntilComplete(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte(strings.Repeat("музыка", 10))))

	got, err := ReadFrame(&chunkReader{data: buf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("музыка", 10), string(got))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestWriteFrameWriterError(t *testing.T) {
	err := WriteFrame(failingWriter{}, []byte("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}
