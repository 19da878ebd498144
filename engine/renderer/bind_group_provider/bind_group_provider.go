package bind_group_provider

import (
	"maps"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string
	// group is the @group index the provider's bind group is set at.
	group int

	// The following fields are GPU allocated resources and must be released when no longer needed. They are
	// populated by the renderer backend during a tile pass, not by user-creation.

	bindGroup    *wgpu.BindGroup
	buffers      map[int]*wgpu.Buffer
	textures     map[int]*wgpu.Texture
	textureViews map[int]*wgpu.TextureView
	samplers     map[int]*wgpu.Sampler

	// writes are uploads queued against buffers and drained by the backend before the pass executes.
	writes []BufferWrite
}

// BindGroupProvider holds the GPU resources of one bind group for the lifetime of a tile pass. The backend
// fills it binding by binding, creates the bind group once every declared binding is present, and releases
// everything when the pass ends.
//
// Usage pattern:
//  1. The backend creates one provider per bind group declared by the pipeline's fragment shader
//  2. Texture views, samplers and buffers are stored at their binding index as they are bound
//  3. Missing reports the declared bindings that are still empty; the bind group is only created when it is empty
//  4. Release frees every resource the provider holds
type BindGroupProvider interface {
	// Release releases every GPU resource held by this provider. It is safe to call more than once.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Group returns the @group index this provider is bound at.
	//
	// Returns:
	//   - int: the group index
	Group() int

	// BindGroup returns the created bind group, or nil before it has been created.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// Buffer returns the buffer at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// TextureView returns the texture view at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.TextureView: the texture view or nil
	TextureView(binding int) *wgpu.TextureView

	// Sampler returns the sampler at a binding, or nil if not set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - *wgpu.Sampler: the sampler or nil
	Sampler(binding int) *wgpu.Sampler

	// Bound returns the binding indices that currently hold a resource in ascending order.
	//
	// Returns:
	//   - []int: the occupied binding indices
	Bound() []int

	// Missing returns the entries of descriptor that hold no resource yet in ascending binding order.
	//
	// Parameters:
	//   - descriptor: the layout the bind group will be created from
	//
	// Returns:
	//   - []uint32: the unbound binding indices
	Missing(descriptor wgpu.BindGroupLayoutDescriptor) []uint32

	SetBindGroup(bg *wgpu.BindGroup)
	SetBuffer(binding int, buf *wgpu.Buffer)

	// QueueWrite records an upload of data into the buffer at binding. Nothing reaches the GPU until the backend
	// drains the queue with TakeWrites.
	//
	// Parameters:
	//   - binding: the binding index of the target buffer
	//   - offset: the byte offset into the buffer
	//   - data: the bytes to upload, which must not be modified afterwards
	QueueWrite(binding int, offset uint64, data []byte)

	// TakeWrites returns the queued uploads in the order they were queued and empties the queue.
	TakeWrites() []BufferWrite

	// SetTexture stores a texture and its view at a binding. The provider owns both and releases them.
	//
	// Parameters:
	//   - binding: the binding index
	//   - tex: the texture, may be nil when the view is owned elsewhere
	//   - view: the view bound to the shader
	SetTexture(binding int, tex *wgpu.Texture, view *wgpu.TextureView)

	SetSampler(binding int, s *wgpu.Sampler)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates an empty provider for a bind group.
//
// Parameters:
//   - label: a debug label for GPU object names
//   - group: the @group index the bind group is set at
//
// Returns:
//   - BindGroupProvider: the provider
func NewBindGroupProvider(label string, group int) BindGroupProvider {
	return &bindGroupProvider{
		label:        label,
		group:        group,
		buffers:      make(map[int]*wgpu.Buffer),
		textures:     make(map[int]*wgpu.Texture),
		textureViews: make(map[int]*wgpu.TextureView),
		samplers:     make(map[int]*wgpu.Sampler),
	}
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Group() int {
	return p.group
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView {
	return p.textureViews[binding]
}

func (p *bindGroupProvider) Sampler(binding int) *wgpu.Sampler {
	return p.samplers[binding]
}

func (p *bindGroupProvider) Bound() []int {
	bound := make(map[int]struct{})
	for b := range p.buffers {
		bound[b] = struct{}{}
	}
	for b := range p.textureViews {
		bound[b] = struct{}{}
	}
	for b := range p.samplers {
		bound[b] = struct{}{}
	}
	return slices.Sorted(maps.Keys(bound))
}

func (p *bindGroupProvider) Missing(descriptor wgpu.BindGroupLayoutDescriptor) []uint32 {
	var missing []uint32
	for _, entry := range descriptor.Entries {
		b := int(entry.Binding)
		switch {
		case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			if p.textureViews[b] == nil {
				missing = append(missing, entry.Binding)
			}
		case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			if p.samplers[b] == nil {
				missing = append(missing, entry.Binding)
			}
		default:
			if p.buffers[b] == nil {
				missing = append(missing, entry.Binding)
			}
		}
	}
	slices.Sort(missing)
	return missing
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

func (p *bindGroupProvider) SetTexture(binding int, tex *wgpu.Texture, view *wgpu.TextureView) {
	if tex != nil {
		p.textures[binding] = tex
	}
	p.textureViews[binding] = view
}

func (p *bindGroupProvider) SetSampler(binding int, s *wgpu.Sampler) {
	p.samplers[binding] = s
}

func (p *bindGroupProvider) QueueWrite(binding int, offset uint64, data []byte) {
	p.writes = append(p.writes, BufferWrite{Binding: binding, Offset: offset, Data: data})
}

func (p *bindGroupProvider) TakeWrites() []BufferWrite {
	w := p.writes
	p.writes = nil
	return w
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	p.writes = nil
	for k, buf := range p.buffers {
		if buf != nil {
			buf.Release()
		}
		delete(p.buffers, k)
	}
	for k, view := range p.textureViews {
		if view != nil {
			view.Release()
		}
		delete(p.textureViews, k)
	}
	for k, tex := range p.textures {
		tex.Release()
		delete(p.textures, k)
	}
	for k, s := range p.samplers {
		if s != nil {
			s.Release()
		}
		delete(p.samplers, k)
	}
}
