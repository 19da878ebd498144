package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinShadersMatchDefaultLayouts(t *testing.T) {
	for _, l := range DefaultLayouts() {
		if l.Kind == KindNone {
			continue
		}
		s, err := shader.Builtin(l.Kind.ShaderName())
		require.NoError(t, err, l.Kind.String())
		assert.NoError(t, VerifyShader(l, s), l.Kind.String())
	}
}

const swappedUniforms = `//@fx:pipeline box_blur
//@fx:include vertex_output
//@fx:texture 5 source_texture
//@fx:sampler tile_sampler

struct P {
    //@fx:uniform 0 texel_size_x
    texel_x: f32,
    //@fx:uniform 1 box_radius
    radius: f32,
    //@fx:uniform 2 texel_size_y
    texel_y: f32,
};
//@fx:uniforms params P

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSampleLevel(source_texture, tile_sampler, in.uv, 0.0);
}
`

func TestVerifyShaderMismatches(t *testing.T) {
	layouts := DefaultResolver()
	box, _ := layouts.Layout(KindBoxBlur)
	gauss, _ := layouts.Layout(KindGaussianBlur)

	t.Run("swapped uniform order", func(t *testing.T) {
		s, err := shader.NewShader("swapped", shader.ShaderTypeFragment, swappedUniforms)
		require.NoError(t, err)
		err = VerifyShader(box, s)
		assert.ErrorIs(t, err, ErrShaderMismatch)
		assert.Contains(t, err.Error(), "uniform slot 0")
	})
	t.Run("wrong pipeline", func(t *testing.T) {
		s, err := shader.Builtin("box_blur")
		require.NoError(t, err)
		err = VerifyShader(gauss, s)
		assert.ErrorIs(t, err, ErrShaderMismatch)
		assert.Contains(t, err.Error(), "declares pipeline")
	})
	t.Run("wrong texture slot", func(t *testing.T) {
		s, err := shader.Builtin("box_blur")
		require.NoError(t, err)
		moved := box
		moved.TextureSlot = TextureSlotGaussianBlur
		assert.ErrorIs(t, VerifyShader(moved, s), ErrShaderMismatch)
	})
	t.Run("vertex shader", func(t *testing.T) {
		assert.ErrorIs(t, VerifyShader(box, shader.FullscreenVertex()), ErrShaderMismatch)
	})
	t.Run("nil shader", func(t *testing.T) {
		assert.ErrorIs(t, VerifyShader(box, nil), ErrShaderMismatch)
	})
}

func TestNewPipelineDefaults(t *testing.T) {
	l, _ := DefaultResolver().Layout(KindNegative)
	frag, err := shader.Builtin("negative")
	require.NoError(t, err)

	p := NewPipeline(l, WithFragmentShader(frag), WithTargetFormat(wgpu.TextureFormatBGRA8Unorm))
	assert.Equal(t, KindNegative, p.Kind())
	assert.Equal(t, "fx_negative", p.PipelineKey())
	assert.Equal(t, shader.FullscreenVertexKey, p.Shader(shader.ShaderTypeVertex).Key())
	assert.Equal(t, frag, p.Shader(shader.ShaderTypeFragment))
	assert.Equal(t, wgpu.TextureFormatBGRA8Unorm, p.TargetFormat())
	assert.Nil(t, p.RenderPipeline())
	p.Release()
}
