package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
)

func tileLayout() wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 3, Texture: wgpu.TextureBindingLayout{SampleType: wgpu.TextureSampleTypeFloat}},
			{Binding: 0, Sampler: wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}},
			{Binding: 1, Buffer: wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform}},
		},
	}
}

func TestMissingTracksDeclaredBindings(t *testing.T) {
	p := NewBindGroupProvider("tile", 0)
	assert.Equal(t, "tile", p.Label())
	assert.Equal(t, 0, p.Group())
	assert.Equal(t, []uint32{0, 1, 3}, p.Missing(tileLayout()))
	assert.Empty(t, p.Bound())

	p.SetSampler(0, &wgpu.Sampler{})
	assert.Equal(t, []uint32{1, 3}, p.Missing(tileLayout()))

	p.SetBuffer(1, &wgpu.Buffer{})
	p.SetTexture(3, nil, &wgpu.TextureView{})
	assert.Empty(t, p.Missing(tileLayout()))
	assert.Equal(t, []int{0, 1, 3}, p.Bound())
	assert.NotNil(t, p.TextureView(3))
	assert.Nil(t, p.TextureView(4))
}

func TestNilViewIsStillMissing(t *testing.T) {
	p := NewBindGroupProvider("tile", 0)
	p.SetTexture(3, nil, nil)
	assert.Contains(t, p.Missing(tileLayout()), uint32(3))
}

func TestReleaseEmptyProvider(t *testing.T) {
	p := NewBindGroupProvider("uniforms", 1)
	p.SetBuffer(0, nil)
	p.QueueWrite(0, 0, []byte{1, 2, 3, 4})
	assert.NotPanics(t, p.Release)
	assert.NotPanics(t, p.Release)
	assert.Empty(t, p.Bound())
	assert.Nil(t, p.BindGroup())
	assert.Empty(t, p.TakeWrites(), "release drops queued writes")
}

func TestTakeWritesDrainsInOrder(t *testing.T) {
	p := NewBindGroupProvider("uniforms", 1)
	p.QueueWrite(0, 0, []byte{1, 2})
	p.QueueWrite(0, 16, []byte{3})

	assert.Equal(t, []BufferWrite{
		{Binding: 0, Offset: 0, Data: []byte{1, 2}},
		{Binding: 0, Offset: 16, Data: []byte{3}},
	}, p.TakeWrites())
	assert.Empty(t, p.TakeWrites())
}
