// Package video runs clips through the effect pipeline frame by frame. ffmpeg decodes the input to raw RGBA frames
// on a pipe, each frame is handed to a FrameFunc, and the results are piped into a second ffmpeg process that
// encodes the output clip.
package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/common"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var (
	// ErrNoVideoStream is returned when a probed file has no video stream.
	ErrNoVideoStream = errors.New("no video stream")
	// ErrFrameSize is returned when a FrameFunc returns a frame whose size differs from the input frame.
	ErrFrameSize = errors.New("frame size mismatch")
)

// Info describes the first video stream of a clip.
type Info struct {
	Width  int
	Height int
	// FrameRate is the rate as ffprobe reports it, e.g. "30000/1001".
	FrameRate string
	// Frames is the stream's frame count, or 0 when the container does not record it.
	Frames int
}

// FrameSize returns the byte length of one RGBA frame.
func (i Info) FrameSize() int {
	return i.Width * i.Height * 4
}

// FrameFunc transforms one decoded frame. The returned image must have the same size as frame.
type FrameFunc func(ctx context.Context, index int, frame *image.RGBA) (*image.RGBA, error)

type processor struct {
	ffmpegPath  string
	codec       string
	pixelFormat string
	quiet       bool
}

// Processor probes and processes clips with ffmpeg.
type Processor interface {
	// Probe reads the size, frame rate and frame count of the first video stream in path.
	//
	// Parameters:
	//   - path: the clip to probe
	//
	// Returns:
	//   - Info: the stream description
	//   - error: an error if ffprobe fails, or ErrNoVideoStream
	Probe(path string) (Info, error)

	// Process decodes in, passes every frame through fn and encodes the results to out. The output is overwritten.
	// Frames are processed in order; the first error stops both ffmpeg processes.
	//
	// Parameters:
	//   - ctx: cancels processing between frames
	//   - in: the input clip
	//   - out: the output clip, its container chosen by ffmpeg from the extension
	//   - fn: the per-frame transform
	//
	// Returns:
	//   - int: the number of frames written
	//   - error: the first error from fn, the pipes or either ffmpeg process
	Process(ctx context.Context, in, out string, fn FrameFunc) (int, error)
}

var _ Processor = &processor{}

// NewProcessor creates a Processor. ffprobe is looked up on PATH, and so is ffmpeg unless WithFFmpegPath is given.
func NewProcessor(options ...ProcessorBuilderOption) Processor {
	p := &processor{
		codec:       "libx264",
		pixelFormat: "yuv420p",
		quiet:       true,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *processor) Probe(path string) (Info, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	info, err := parseProbe([]byte(out))
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", path, err)
	}
	return info, nil
}

func (p *processor) Process(ctx context.Context, in, out string, fn FrameFunc) (int, error) {
	info, err := p.Probe(in)
	if err != nil {
		return 0, err
	}
	log := common.Logger().With("in", in, "out", out)
	log.Info("processing clip", "width", info.Width, "height", info.Height, "rate", info.FrameRate, "frames", info.Frames)

	decodeReader, decodeWriter := io.Pipe()
	encodeReader, encodeWriter := io.Pipe()

	decode := ffmpeg.Input(in).
		Output("pipe:", ffmpeg.KwArgs{"format": "rawvideo", "pix_fmt": "rgba"}).
		WithOutput(decodeWriter)
	encode := ffmpeg.Input("pipe:", p.encodeInputArgs(info)).
		Output(out, ffmpeg.KwArgs{"c:v": p.codec, "pix_fmt": p.pixelFormat}).
		OverWriteOutput().
		WithInput(encodeReader)
	if p.ffmpegPath != "" {
		decode = decode.SetFfmpegPath(p.ffmpegPath)
		encode = encode.SetFfmpegPath(p.ffmpegPath)
	}
	if !p.quiet {
		decode = decode.ErrorToStdOut()
		encode = encode.ErrorToStdOut()
	}

	decodeDone := make(chan error, 1)
	go func() {
		err := decode.Run()
		decodeWriter.CloseWithError(err)
		decodeDone <- err
	}()
	encodeDone := make(chan error, 1)
	go func() {
		err := encode.Run()
		encodeReader.CloseWithError(err)
		encodeDone <- err
	}()

	n, frameErr := processFrames(ctx, decodeReader, encodeWriter, info.Width, info.Height, fn)
	if frameErr != nil {
		decodeReader.CloseWithError(frameErr)
	}
	encodeWriter.Close()

	decodeErr := <-decodeDone
	encodeErr := <-encodeDone
	switch {
	case frameErr != nil:
		return n, frameErr
	case decodeErr != nil:
		return n, fmt.Errorf("ffmpeg decode: %w", decodeErr)
	case encodeErr != nil:
		return n, fmt.Errorf("ffmpeg encode: %w", encodeErr)
	}
	log.Info("clip processed", "frames", n)
	return n, nil
}

func (p *processor) encodeInputArgs(info Info) ffmpeg.KwArgs {
	args := ffmpeg.KwArgs{
		"format":  "rawvideo",
		"pix_fmt": "rgba",
		"s":       fmt.Sprintf("%dx%d", info.Width, info.Height),
	}
	if info.FrameRate != "" && info.FrameRate != "0/0" {
		args["r"] = info.FrameRate
	}
	return args
}

// processFrames reads whole RGBA frames from r until EOF, transforms them and writes them to w.
func processFrames(ctx context.Context, r io.Reader, w io.Writer, width, height int, fn FrameFunc) (int, error) {
	if width <= 0 || height <= 0 {
		return 0, fmt.Errorf("%w: %dx%d", ErrFrameSize, width, height)
	}
	bounds := image.Rect(0, 0, width, height)
	frame := image.NewRGBA(bounds)
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		if _, err := io.ReadFull(r, frame.Pix); err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return n, fmt.Errorf("frame %d truncated: %w", n, err)
			}
			return n, err
		}

		result, err := fn(ctx, n, frame)
		if err != nil {
			return n, fmt.Errorf("frame %d: %w", n, err)
		}
		result = common.ToRGBA(result)
		if result.Bounds().Size() != bounds.Size() {
			return n, fmt.Errorf("%w: frame %d is %v, want %v", ErrFrameSize, n, result.Bounds().Size(), bounds.Size())
		}
		if _, err := w.Write(result.Pix[:len(frame.Pix)]); err != nil {
			return n, fmt.Errorf("frame %d: %w", n, err)
		}
		n++
	}
}

type probeOutput struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		AvgFrameRate string `json:"avg_frame_rate"`
		RFrameRate   string `json:"r_frame_rate"`
		NbFrames     string `json:"nb_frames"`
	} `json:"streams"`
}

// parseProbe extracts Info from ffprobe's JSON output.
func parseProbe(data []byte) (Info, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return Info{}, fmt.Errorf("failed to parse probe output: %w", err)
	}
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		info := Info{
			Width:     s.Width,
			Height:    s.Height,
			FrameRate: common.Coalesce(strings.TrimSpace(s.AvgFrameRate), strings.TrimSpace(s.RFrameRate)),
		}
		if info.FrameRate == "0/0" {
			info.FrameRate = strings.TrimSpace(s.RFrameRate)
		}
		if frames, err := strconv.Atoi(s.NbFrames); err == nil {
			info.Frames = frames
		}
		if info.Width <= 0 || info.Height <= 0 {
			return Info{}, fmt.Errorf("%w: video stream is %dx%d", ErrNoVideoStream, info.Width, info.Height)
		}
		return info, nil
	}
	return Info{}, ErrNoVideoStream
}
