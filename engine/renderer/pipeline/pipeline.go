package pipeline

import (
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
// It pairs an effect layout with the shaders and fixed-function state the GPU render pipeline is created from.
type pipeline struct {
	layout Layout

	// vertexShader and fragmentShader are required before the GPU pipeline is created.
	vertexShader, fragmentShader shader.Shader

	renderPipeline *wgpu.RenderPipeline

	targetFormat wgpu.TextureFormat
}

// Pipeline defines the interface for one effect's GPU render pipeline: the binding layout it was verified
// against, its fullscreen vertex and effect fragment shaders, and the format of the target it writes. Effect
// pipelines draw one fullscreen triangle that replaces every target texel, so they carry no blend or cull state.
type Pipeline interface {
	// Kind returns the effect pipeline kind.
	//
	// Returns:
	//   - Kind: the pipeline kind
	Kind() Kind

	// Layout returns the binding layout the fragment shader was verified against.
	//
	// Returns:
	//   - Layout: the texture slot and uniform bindings
	Layout() Layout

	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader for a stage, or nil if not set.
	//
	// Parameters:
	//   - shaderType: the stage to retrieve
	//
	// Returns:
	//   - shader.Shader: the shader for the stage
	Shader(shaderType shader.ShaderType) shader.Shader

	// RenderPipeline returns the GPU pipeline object, or nil before the backend has created it.
	//
	// Returns:
	//   - *wgpu.RenderPipeline: the render pipeline
	RenderPipeline() *wgpu.RenderPipeline

	// TargetFormat returns the color format of the render target.
	//
	// Returns:
	//   - wgpu.TextureFormat: the target format
	TargetFormat() wgpu.TextureFormat

	// SetRenderPipeline stores the GPU pipeline object created by the backend.
	//
	// Parameters:
	//   - p: the WebGPU render pipeline
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// Release frees the GPU pipeline object if one was created.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a Pipeline for a layout. The fullscreen vertex shader is used unless
// WithVertexShader overrides it; the fragment shader must be supplied with WithFragmentShader.
//
// Parameters:
//   - layout: the binding layout of the effect
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance
func NewPipeline(layout Layout, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		layout:       layout,
		vertexShader: shader.FullscreenVertex(),
		targetFormat: wgpu.TextureFormatRGBA8Unorm,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Kind() Kind {
	return p.layout.Kind
}

func (p *pipeline) Layout() Layout {
	return p.layout
}

func (p *pipeline) PipelineKey() string {
	return p.layout.Kind.Key()
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) TargetFormat() wgpu.TextureFormat {
	return p.targetFormat
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}
