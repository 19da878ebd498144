package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuPipelineObjects are the device objects shared by every tile pass of one pipeline.
type wgpuPipelineObjects struct {
	vs, fs           *wgpu.ShaderModule
	descriptors      map[int]wgpu.BindGroupLayoutDescriptor
	bindGroupLayouts []*wgpu.BindGroupLayout
	pipelineLayout   *wgpu.PipelineLayout
}

func (o *wgpuPipelineObjects) release() {
	for _, l := range o.bindGroupLayouts {
		if l != nil {
			l.Release()
		}
	}
	if o.pipelineLayout != nil {
		o.pipelineLayout.Release()
	}
	if o.vs != nil {
		o.vs.Release()
	}
	if o.fs != nil {
		o.fs.Release()
	}
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter

	// surface is only set when the backend was created for a window.
	surface        *wgpu.Surface
	surfaceFormat  wgpu.TextureFormat
	surfaceWidth   uint32
	surfaceHeight  uint32
	presentMode    wgpu.PresentMode
	surfaceTexture *wgpu.Texture

	pipelines map[string]*wgpuPipelineObjects
}

type wgpuRendererBackend interface {
	RendererBackend
	Presenter

	Device() *wgpu.Device
	Queue() *wgpu.Queue
	Adapter() *wgpu.Adapter

	// HasSurface reports whether the backend was created with a window surface.
	//
	// Returns:
	//   - bool: true if Present can be used
	HasSurface() bool
}

var _ wgpuRendererBackend = &wgpuRendererBackendImpl{}

// newWGPURendererBackend requests an adapter and device. With a nil surface descriptor the device is headless
// and only renders offscreen; otherwise the adapter is chosen to be compatible with the window surface.
func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (wgpuRendererBackend, error) {
	if surfaceDescriptor != nil {
		runtime.LockOSThread()
	}
	b := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		pipelines:   make(map[string]*wgpuPipelineObjects),
	}

	opts := &wgpu.RequestAdapterOptions{ForceFallbackAdapter: forceFallbackAdapter}
	if surfaceDescriptor != nil {
		b.surface = b.instance.CreateSurface(surfaceDescriptor)
		opts.CompatibleSurface = b.surface
	}

	a, err := b.instance.RequestAdapter(opts)
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request adapter: %w", err)
	}
	b.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{Label: "oxy-fx Device"})
	if err != nil {
		b.Release()
		return nil, fmt.Errorf("request device: %w", err)
	}
	b.device = d
	b.queue = d.GetQueue()

	common.Logger().Info("wgpu device ready",
		"force_fallback_adapter", forceFallbackAdapter,
		"surface", surfaceDescriptor != nil)
	return b, nil
}

func (b *wgpuRendererBackendImpl) Type() RendererBackendType {
	return BackendTypeWGPU
}

func (b *wgpuRendererBackendImpl) Device() *wgpu.Device {
	return b.device
}

func (b *wgpuRendererBackendImpl) Queue() *wgpu.Queue {
	return b.queue
}

func (b *wgpuRendererBackendImpl) Adapter() *wgpu.Adapter {
	return b.adapter
}

func (b *wgpuRendererBackendImpl) HasSurface() bool {
	return b.surface != nil
}

func (b *wgpuRendererBackendImpl) RegisterPipeline(p pipeline.Pipeline) error {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	fragmentShader := p.Shader(shader.ShaderTypeFragment)
	if vertexShader == nil || fragmentShader == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.pipelines[p.PipelineKey()]; exists {
		return nil
	}

	objects := &wgpuPipelineObjects{}
	ok := false
	defer func() {
		if !ok {
			objects.release()
		}
	}()

	var err error
	if objects.vs, err = b.device.CreateShaderModule(vertexShader.Module()); err != nil {
		return fmt.Errorf("%s: vertex module: %w", p.PipelineKey(), err)
	}
	if objects.fs, err = b.device.CreateShaderModule(fragmentShader.Module()); err != nil {
		return fmt.Errorf("%s: fragment module: %w", p.PipelineKey(), err)
	}

	objects.descriptors = mergeBindGroupLayouts(vertexShader.BindGroupLayoutDescriptors(), fragmentShader.BindGroupLayoutDescriptors())
	maxGroup := -1
	for g := range objects.descriptors {
		maxGroup = max(maxGroup, g)
	}
	objects.bindGroupLayouts = make([]*wgpu.BindGroupLayout, maxGroup+1)
	for g := 0; g <= maxGroup; g++ {
		desc, declared := objects.descriptors[g]
		if !declared {
			// Holes in the group range still need a layout object.
			desc = wgpu.BindGroupLayoutDescriptor{Label: fmt.Sprintf("%s empty group %d", p.PipelineKey(), g)}
		}
		layout, layoutErr := b.device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			return fmt.Errorf("failed to create bind group layout for group %d: %w", g, layoutErr)
		}
		objects.bindGroupLayouts[g] = layout
	}

	objects.pipelineLayout, err = b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: objects.bindGroupLayouts,
	})
	if err != nil {
		return err
	}

	target := wgpu.ColorTargetState{
		Format:    p.TargetFormat(),
		WriteMask: wgpu.ColorWriteMaskAll,
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: objects.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     objects.vs,
			EntryPoint: vertexShader.EntryPoint(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     objects.fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	p.SetRenderPipeline(created)
	b.pipelines[p.PipelineKey()] = objects
	ok = true

	common.Logger().Debug("pipeline registered", "kind", p.Kind(), "groups", len(objects.bindGroupLayouts))
	return nil
}

func (b *wgpuRendererBackendImpl) BeginTilePass(p pipeline.Pipeline, width, height uint32) (TilePass, error) {
	b.mu.Lock()
	objects, ok := b.pipelines[p.PipelineKey()]
	b.mu.Unlock()
	if !ok || p.RenderPipeline() == nil {
		return nil, fmt.Errorf("render pipeline %q not registered", p.PipelineKey())
	}
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("tile pass %q: zero size %dx%d", p.PipelineKey(), width, height)
	}
	if p.TargetFormat() != wgpu.TextureFormatRGBA8Unorm {
		return nil, fmt.Errorf("tile pass %q: readback requires an RGBA8Unorm target, have %v", p.PipelineKey(), p.TargetFormat())
	}
	pass := newWGPUTilePass(b, p, objects, width, height)
	if err := pass.bindSampler(); err != nil {
		pass.Release()
		return nil, err
	}
	return pass, nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, objects := range b.pipelines {
		objects.release()
		delete(b.pipelines, key)
	}
	if b.surfaceTexture != nil {
		b.surfaceTexture.Release()
		b.surfaceTexture = nil
	}
	if b.queue != nil {
		b.queue.Release()
		b.queue = nil
	}
	if b.device != nil {
		b.device.Release()
		b.device = nil
	}
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.surface != nil {
		b.surface.Release()
		b.surface = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
}

// mergeBindGroupLayouts merges the bind group layout descriptors from a vertex and fragment shader
// into a unified set of descriptors suitable for a render pipeline layout.
//
// For each group index present in either shader:
//   - Entries with the same binding number have their Visibility flags ORed together
//   - Entries unique to one shader are included with their original visibility
//
// Parameters:
//   - vertexLayouts: bind group layout descriptors from the vertex shader
//   - fragmentLayouts: bind group layout descriptors from the fragment shader
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: the merged descriptors keyed by group index
func mergeBindGroupLayouts(vertexLayouts, fragmentLayouts map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]wgpu.BindGroupLayoutDescriptor, len(vertexLayouts)+len(fragmentLayouts))
	for g, desc := range vertexLayouts {
		merged[g] = desc
	}
	for g, fDesc := range fragmentLayouts {
		vDesc, shared := merged[g]
		if !shared {
			merged[g] = fDesc
			continue
		}

		entryMap := make(map[uint32]wgpu.BindGroupLayoutEntry, len(vDesc.Entries)+len(fDesc.Entries))
		for _, e := range vDesc.Entries {
			entryMap[e.Binding] = e
		}
		for _, e := range fDesc.Entries {
			if existing, ok := entryMap[e.Binding]; ok {
				existing.Visibility |= e.Visibility
				entryMap[e.Binding] = existing
			} else {
				entryMap[e.Binding] = e
			}
		}

		entries := make([]wgpu.BindGroupLayoutEntry, 0, len(entryMap))
		for _, e := range entryMap {
			entries = append(entries, e)
		}
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].Binding < entries[j].Binding
		})
		merged[g] = wgpu.BindGroupLayoutDescriptor{Label: vDesc.Label, Entries: entries}
	}
	return merged
}
