package renderer

import (
	"context"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/pipeline"
)

// RendererBackendType identifies the implementation that executes tile passes.
type RendererBackendType int

const (
	// BackendTypeWGPU renders tiles on the GPU through WebGPU with an offscreen target and buffer readback.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeSoftware renders tiles on the CPU with reference kernels that read the same uniform slots as
	// the shaders.
	BackendTypeSoftware
)

func (t RendererBackendType) String() string {
	switch t {
	case BackendTypeWGPU:
		return "wgpu"
	case BackendTypeSoftware:
		return "software"
	default:
		return fmt.Sprintf("RendererBackendType(%d)", int(t))
	}
}

// ParseBackendType is the inverse of RendererBackendType.String. Matching ignores case.
func ParseBackendType(s string) (RendererBackendType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "wgpu", "gpu":
		return BackendTypeWGPU, nil
	case "software", "cpu":
		return BackendTypeSoftware, nil
	default:
		return 0, fmt.Errorf("unknown renderer backend %q", s)
	}
}

// PresentMode controls how frames are presented to a window surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	PresentModeUncapped
)

// BoundSet reports what a tile pass has bound so far.
type BoundSet struct {
	// TextureSlot is the binding the input texture was bound at. Only meaningful when HasTexture is true.
	TextureSlot pipeline.TextureSlot
	HasTexture  bool
	// Uniforms is the number of uniform slots written.
	Uniforms int
}

// TilePass holds the scoped resources for rendering one tile with one pipeline. A pass is single-use: bind,
// execute once, release.
type TilePass interface {
	// BindTexture uploads the source tile and binds it at a texture slot.
	//
	// Parameters:
	//   - slot: the texture binding declared by the pipeline layout
	//   - src: the source pixels
	//
	// Returns:
	//   - error: an error if the slot is not declared by the pipeline or the upload fails
	BindTexture(slot pipeline.TextureSlot, src common.Tile) error

	// BindUniforms writes the uniform block. values[i] is uniform slot i.
	//
	// Parameters:
	//   - values: the uniform values in slot order
	//
	// Returns:
	//   - error: an error if the buffer cannot be created or written
	BindUniforms(values []float32) error

	// Bound reports the resources bound so far.
	//
	// Returns:
	//   - BoundSet: the bound texture slot and uniform count
	Bound() BoundSet

	// Execute draws the pipeline into an offscreen target of the pass size and reads it back.
	//
	// Parameters:
	//   - ctx: cancels the wait for the result
	//
	// Returns:
	//   - common.Tile: the rendered pixels
	//   - error: an error if submission or readback fails
	Execute(ctx context.Context) (common.Tile, error)

	// Release frees every resource owned by the pass. It is safe to call more than once.
	Release()
}

// RendererBackend executes tile passes for registered pipelines.
type RendererBackend interface {
	// Type returns the backend implementation.
	//
	// Returns:
	//   - RendererBackendType: the backend type
	Type() RendererBackendType

	// RegisterPipeline prepares a pipeline for tile passes. For the GPU backend this creates the shader modules,
	// bind group layouts and render pipeline object.
	//
	// Parameters:
	//   - p: the pipeline to register
	//
	// Returns:
	//   - error: an error if the pipeline cannot be created
	RegisterPipeline(p pipeline.Pipeline) error

	// BeginTilePass allocates a pass for one tile.
	//
	// Parameters:
	//   - p: a registered pipeline
	//   - width: the tile width in pixels
	//   - height: the tile height in pixels
	//
	// Returns:
	//   - TilePass: the pass
	//   - error: an error if p is not registered or resources cannot be allocated
	BeginTilePass(p pipeline.Pipeline, width, height uint32) (TilePass, error)

	// Release frees the backend's device resources.
	Release()
}
