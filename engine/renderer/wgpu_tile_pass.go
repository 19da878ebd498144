package renderer

import (
	"context"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-fx/common"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// copyRowAlignment is the byte multiple WebGPU requires for BytesPerRow in texture to buffer copies.
const copyRowAlignment = 256

type wgpuTilePass struct {
	backend *wgpuRendererBackendImpl
	p       pipeline.Pipeline
	objects *wgpuPipelineObjects

	width, height uint32
	providers     map[int]bind_group_provider.BindGroupProvider
	bound         BoundSet

	target     *wgpu.Texture
	targetView *wgpu.TextureView
	readback   *wgpu.Buffer
	released   bool
}

var _ TilePass = &wgpuTilePass{}

func newWGPUTilePass(b *wgpuRendererBackendImpl, p pipeline.Pipeline, objects *wgpuPipelineObjects, width, height uint32) *wgpuTilePass {
	providers := make(map[int]bind_group_provider.BindGroupProvider, len(objects.descriptors))
	for g := range objects.descriptors {
		providers[g] = bind_group_provider.NewBindGroupProvider(fmt.Sprintf("%s group %d", p.PipelineKey(), g), g)
	}
	return &wgpuTilePass{
		backend:   b,
		p:         p,
		objects:   objects,
		width:     width,
		height:    height,
		providers: providers,
	}
}

func (t *wgpuTilePass) declares(group int, binding uint32) bool {
	for _, e := range t.objects.descriptors[group].Entries {
		if e.Binding == binding {
			return true
		}
	}
	return false
}

// bindSampler creates the clamp-to-edge sampler the fragment shader reads the input texture with.
func (t *wgpuTilePass) bindSampler() error {
	if !t.declares(shader.SamplerGroup, 0) {
		return nil
	}
	data := common.TileSamplerData
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	samp, err := t.backend.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         t.p.PipelineKey() + " Sampler",
		AddressModeU:  data.AddressModeU,
		AddressModeV:  data.AddressModeV,
		AddressModeW:  data.AddressModeW,
		MagFilter:     data.MagFilter,
		MinFilter:     data.MinFilter,
		MipmapFilter:  data.MipmapFilter,
		LodMinClamp:   data.LodMinClamp,
		LodMaxClamp:   data.LodMaxClamp,
		MaxAnisotropy: common.Coalesce(data.MaxAnisotropy, 1),
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	t.providers[shader.SamplerGroup].SetSampler(0, samp)
	return nil
}

func (t *wgpuTilePass) BindTexture(slot pipeline.TextureSlot, src common.Tile) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if src.Width != t.width || src.Height != t.height {
		return fmt.Errorf("source %dx%d does not match pass %dx%d", src.Width, src.Height, t.width, t.height)
	}
	if !t.declares(shader.TextureGroup, uint32(slot)) {
		return fmt.Errorf("pipeline %q declares no texture at slot %d", t.p.PipelineKey(), slot)
	}

	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	size := wgpu.Extent3D{Width: src.Width, Height: src.Height, DepthOrArrayLayers: 1}
	tex, err := t.backend.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         t.p.PipelineKey() + " Source Texture",
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return fmt.Errorf("create source texture: %w", err)
	}

	t.backend.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  tex,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		src.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  src.Width * common.BytesPerPixel,
			RowsPerImage: src.Height,
		},
		&size,
	)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("create source view: %w", err)
	}
	t.providers[shader.TextureGroup].SetTexture(int(slot), tex, view)
	t.bound.TextureSlot = slot
	t.bound.HasTexture = true
	return nil
}

func (t *wgpuTilePass) BindUniforms(values []float32) error {
	provider, declared := t.providers[shader.UniformGroup]
	if !declared {
		if len(values) > 0 {
			return fmt.Errorf("pipeline %q declares no uniform block", t.p.PipelineKey())
		}
		return nil
	}

	data := pipeline.PackUniforms(values)
	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()

	buf, err := t.backend.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: provider.Label() + " Uniform Buffer",
		Size:  uint64(len(data)),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	provider.SetBuffer(0, buf)
	provider.QueueWrite(0, 0, data)
	t.bound.Uniforms = len(values)
	return nil
}

func (t *wgpuTilePass) Bound() BoundSet {
	return t.bound
}

func (t *wgpuTilePass) Execute(ctx context.Context) (common.Tile, error) {
	groups := make([]int, 0, len(t.providers))
	for g := range t.providers {
		groups = append(groups, g)
	}
	slices.Sort(groups)

	for _, g := range groups {
		if missing := t.providers[g].Missing(t.objects.descriptors[g]); len(missing) > 0 {
			return common.Tile{}, fmt.Errorf("group %d has unbound bindings %v", g, missing)
		}
	}

	b := t.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, g := range groups {
		b.flushWrites(t.providers[g])
		if err := t.createBindGroup(g); err != nil {
			return common.Tile{}, err
		}
	}

	size := wgpu.Extent3D{Width: t.width, Height: t.height, DepthOrArrayLayers: 1}
	var err error
	t.target, err = b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         t.p.PipelineKey() + " Target",
		Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc,
		Dimension:     wgpu.TextureDimension2D,
		Size:          size,
		Format:        t.p.TargetFormat(),
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return common.Tile{}, fmt.Errorf("create target: %w", err)
	}
	if t.targetView, err = t.target.CreateView(nil); err != nil {
		return common.Tile{}, fmt.Errorf("create target view: %w", err)
	}

	paddedRow := (t.width*common.BytesPerPixel + copyRowAlignment - 1) / copyRowAlignment * copyRowAlignment
	readbackSize := uint64(paddedRow) * uint64(t.height)
	t.readback, err = b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: t.p.PipelineKey() + " Readback",
		Size:  readbackSize,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return common.Tile{}, fmt.Errorf("create readback buffer: %w", err)
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return common.Tile{}, fmt.Errorf("create command encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       t.targetView,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
	})
	pass.SetPipeline(t.p.RenderPipeline())
	for _, g := range groups {
		pass.SetBindGroup(uint32(g), t.providers[g].BindGroup(), nil)
	}
	pass.Draw(3, 1, 0, 0)
	pass.End()

	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: t.target, MipLevel: 0, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyBuffer{
			Buffer: t.readback,
			Layout: wgpu.TextureDataLayout{BytesPerRow: paddedRow, RowsPerImage: t.height},
		},
		&size,
	)

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return common.Tile{}, fmt.Errorf("finish command buffer: %w", err)
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	b.device.Poll(true, nil)

	if err := ctx.Err(); err != nil {
		return common.Tile{}, err
	}

	done := make(chan error, 1)
	t.readback.MapAsync(wgpu.MapModeRead, 0, readbackSize, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			done <- fmt.Errorf("map readback buffer: status %v", status)
			return
		}
		done <- nil
	})
	b.device.Poll(true, nil)

	select {
	case err := <-done:
		if err != nil {
			return common.Tile{}, err
		}
	case <-ctx.Done():
		return common.Tile{}, ctx.Err()
	}

	out := common.NewTile(t.width, t.height)
	mapped := t.readback.GetMappedRange(0, uint(readbackSize))
	rowBytes := int(t.width) * common.BytesPerPixel
	for y := 0; y < int(t.height); y++ {
		copy(out.Pixels[y*rowBytes:(y+1)*rowBytes], mapped[y*int(paddedRow):])
	}
	t.readback.Unmap()
	return out, nil
}

func (t *wgpuTilePass) createBindGroup(g int) error {
	provider := t.providers[g]
	desc := t.objects.descriptors[g]
	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, entry := range desc.Entries {
		binding := int(entry.Binding)
		switch {
		case entry.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, TextureView: provider.TextureView(binding)}
		case entry.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, Sampler: provider.Sampler(binding)}
		default:
			entries[i] = wgpu.BindGroupEntry{Binding: entry.Binding, Buffer: provider.Buffer(binding), Size: wgpu.WholeSize}
		}
	}

	bindGroup, err := t.backend.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   provider.Label() + " Bind Group",
		Layout:  t.objects.bindGroupLayouts[g],
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group %d: %w", g, err)
	}
	provider.SetBindGroup(bindGroup)
	return nil
}

func (t *wgpuTilePass) Release() {
	if t.released {
		return
	}
	t.released = true

	t.backend.mu.Lock()
	defer t.backend.mu.Unlock()
	for _, p := range t.providers {
		p.Release()
	}
	if t.readback != nil {
		t.readback.Release()
	}
	if t.targetView != nil {
		t.targetView.Release()
	}
	if t.target != nil {
		t.target.Release()
	}
}

// flushWrites uploads the writes queued on provider. The caller holds mu.
func (b *wgpuRendererBackendImpl) flushWrites(provider bind_group_provider.BindGroupProvider) {
	for _, w := range provider.TakeWrites() {
		buf := provider.Buffer(w.Binding)
		if buf == nil {
			continue
		}
		b.queue.WriteBuffer(buf, w.Offset, w.Data)
	}
}
