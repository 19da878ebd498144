package video

// ProcessorBuilderOption is a functional option applied to a processor during construction via NewProcessor.
type ProcessorBuilderOption func(*processor)

// WithFFmpegPath runs the ffmpeg binary at path instead of the one on PATH.
func WithFFmpegPath(path string) ProcessorBuilderOption {
	return func(p *processor) {
		p.ffmpegPath = path
	}
}

// WithCodec sets the output video codec, libx264 by default.
func WithCodec(codec string) ProcessorBuilderOption {
	return func(p *processor) {
		p.codec = codec
	}
}

// WithPixelFormat sets the output pixel format, yuv420p by default.
func WithPixelFormat(format string) ProcessorBuilderOption {
	return func(p *processor) {
		p.pixelFormat = format
	}
}

// WithFFmpegLog forwards ffmpeg's own log output to stdout.
func WithFFmpegLog(enabled bool) ProcessorBuilderOption {
	return func(p *processor) {
		p.quiet = !enabled
	}
}
