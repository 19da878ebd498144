package video

import (
	"bytes"
	"context"
	"errors"
	"image"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProbe(t *testing.T) {
	info, err := parseProbe([]byte(`{
		"streams": [
			{"codec_type": "audio", "sample_rate": "48000"},
			{"codec_type": "video", "width": 1920, "height": 1080,
			 "avg_frame_rate": "30000/1001", "r_frame_rate": "30/1", "nb_frames": "240"}
		],
		"format": {"format_name": "mov,mp4"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, Info{Width: 1920, Height: 1080, FrameRate: "30000/1001", Frames: 240}, info)
	assert.Equal(t, 1920*1080*4, info.FrameSize())
}

func TestParseProbeFallbacks(t *testing.T) {
	info, err := parseProbe([]byte(`{"streams": [{"codec_type": "video", "width": 4, "height": 2,
		"avg_frame_rate": "0/0", "r_frame_rate": "25/1"}]}`))
	require.NoError(t, err)
	assert.Equal(t, "25/1", info.FrameRate)
	assert.Zero(t, info.Frames)

	_, err = parseProbe([]byte(`{"streams": [{"codec_type": "audio"}]}`))
	assert.ErrorIs(t, err, ErrNoVideoStream)
	_, err = parseProbe([]byte(`{"streams": [{"codec_type": "video"}]}`))
	assert.ErrorIs(t, err, ErrNoVideoStream)
	_, err = parseProbe([]byte(`not json`))
	assert.Error(t, err)
}

func invert(_ context.Context, _ int, frame *image.RGBA) (*image.RGBA, error) {
	out := image.NewRGBA(frame.Bounds())
	for i := range frame.Pix {
		out.Pix[i] = 255 - frame.Pix[i]
	}
	return out, nil
}

func TestProcessFrames(t *testing.T) {
	in := make([]byte, 3*2*2*4)
	for i := range in {
		in[i] = byte(i)
	}
	var out bytes.Buffer
	var seen []int
	n, err := processFrames(context.Background(), bytes.NewReader(in), &out, 2, 2, func(ctx context.Context, i int, f *image.RGBA) (*image.RGBA, error) {
		seen = append(seen, i)
		return invert(ctx, i, f)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{0, 1, 2}, seen)
	require.Len(t, out.Bytes(), len(in))
	for i, b := range out.Bytes() {
		assert.Equal(t, 255-in[i], b)
	}
}

func TestProcessFramesWritesSubImageRows(t *testing.T) {
	in := make([]byte, 2*2*4)
	for i := range in {
		in[i] = byte(i)
	}
	var out bytes.Buffer
	n, err := processFrames(context.Background(), bytes.NewReader(in), &out, 2, 2, func(_ context.Context, _ int, f *image.RGBA) (*image.RGBA, error) {
		canvas := image.NewRGBA(image.Rect(0, 0, 5, 3))
		for y := range 2 {
			copy(canvas.Pix[y*canvas.Stride:], f.Pix[y*f.Stride:y*f.Stride+8])
		}
		return canvas.SubImage(image.Rect(0, 0, 2, 2)).(*image.RGBA), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, in, out.Bytes())
}

func TestProcessFramesErrors(t *testing.T) {
	var out bytes.Buffer
	_, err := processFrames(context.Background(), bytes.NewReader(make([]byte, 20)), &out, 2, 2, invert)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	boom := errors.New("boom")
	n, err := processFrames(context.Background(), bytes.NewReader(make([]byte, 32)), &out, 2, 1,
		func(_ context.Context, i int, f *image.RGBA) (*image.RGBA, error) {
			if i == 1 {
				return nil, boom
			}
			return f, nil
		})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)

	_, err = processFrames(context.Background(), bytes.NewReader(make([]byte, 16)), &out, 2, 2,
		func(context.Context, int, *image.RGBA) (*image.RGBA, error) {
			return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
		})
	assert.ErrorIs(t, err, ErrFrameSize)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = processFrames(ctx, bytes.NewReader(make([]byte, 16)), &out, 2, 2, invert)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = processFrames(context.Background(), bytes.NewReader(nil), &out, 0, 2, invert)
	assert.ErrorIs(t, err, ErrFrameSize)
}
