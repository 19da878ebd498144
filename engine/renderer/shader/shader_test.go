package shader

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFragment = `//@fx:pipeline test_effect
//@fx:include vertex_output

//@fx:texture 7 source_texture
//@fx:sampler tile_sampler

struct TestParams {
    //@fx:uniform 0 radius
    radius: f32,
    //@fx:uniform 1 texel_size_x
    texel_x: f32,
    offset: vec2<f32>,
};
//@fx:uniforms params TestParams

@fragment
fn fs_main(in: VertexOutput) -> @location(0) vec4<f32> {
    return textureSampleLevel(source_texture, tile_sampler, in.uv, 0.0);
}
`

func TestPreProcessorGeneratesDeclarations(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process(testFragment)
	require.NoError(t, err)

	assert.Contains(t, out, "@group(0) @binding(7) var source_texture: texture_2d<f32>;")
	assert.Contains(t, out, "@group(2) @binding(0) var tile_sampler: sampler;")
	assert.Contains(t, out, "@group(1) @binding(0) var<uniform> params: TestParams;")
	assert.Contains(t, out, "struct VertexOutput")
	assert.NotContains(t, out, "@fx:")

	decls := pp.Declarations()
	var types []AnnotationType
	for _, d := range decls {
		types = append(types, d.Type)
	}
	assert.Equal(t, []AnnotationType{
		AnnotationTypePipeline,
		AnnotationTypeTexture,
		AnnotationTypeSampler,
		AnnotationTypeUniform,
		AnnotationTypeUniform,
		AnnotationTypeUniforms,
	}, types)

	assert.Equal(t, AnnotationArg("test_effect"), decls[0].Args[0])
	require.NotNil(t, decls[1].Binding)
	assert.Equal(t, 7, *decls[1].Binding)
	require.NotNil(t, decls[4].Slot)
	assert.Equal(t, 1, *decls[4].Slot)
	assert.Equal(t, AnnotationArg("texel_size_x"), decls[4].Args[0])
}

func TestPreProcessorResetsDeclarations(t *testing.T) {
	pp := NewPreProcessor()
	_, err := pp.Process(testFragment)
	require.NoError(t, err)
	_, err = pp.Process("//@fx:pipeline other\n")
	require.NoError(t, err)
	assert.Len(t, pp.Declarations(), 1)
}

func TestPreProcessorErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"unknown type", "//@fx:frobnicate 1", "unknown @fx annotation type"},
		{"empty", "//@fx:", "empty @fx annotation"},
		{"unknown include", "//@fx:include camera", "unknown struct type"},
		{"texture args", "//@fx:texture 1", "requires a slot and a variable name"},
		{"negative slot", "//@fx:texture -1 tex", "invalid texture slot"},
		{"bad uniform slot", "//@fx:uniform x radius", "invalid uniform slot"},
		{"bad identifier", "//@fx:pipeline gauss-blur", "invalid argument"},
		{"duplicate texture", "//@fx:texture 1 a\n//@fx:texture 2 b", "duplicate @fx texture annotation"},
		{"duplicate pipeline", "//@fx:pipeline a\n//@fx:pipeline b", "duplicate @fx pipeline annotation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPreProcessor().Process(tt.source)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAnnotationOutsideCommentIgnored(t *testing.T) {
	a, err := parseAnnotation(`let s = "@fx:texture";`, 1)
	assert.NoError(t, err)
	assert.Nil(t, a)
}

func TestNewShaderParsesLayout(t *testing.T) {
	s, err := NewShader("test", ShaderTypeFragment, testFragment)
	require.NoError(t, err)

	assert.Equal(t, "fs_main", s.EntryPoint())
	assert.Equal(t, ShaderTypeFragment, s.ShaderType())
	assert.Equal(t, "test", s.Module().Label)
	assert.Equal(t, s.Source(), s.Module().WGSLDescriptor.Code)

	tex := s.BindGroupLayoutDescriptor(TextureGroup)
	require.Len(t, tex.Entries, 1)
	assert.Equal(t, uint32(7), tex.Entries[0].Binding)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, tex.Entries[0].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimension2D, tex.Entries[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.ShaderStageFragment, tex.Entries[0].Visibility)

	uni := s.BindGroupLayoutDescriptor(UniformGroup)
	require.Len(t, uni.Entries, 1)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, uni.Entries[0].Buffer.Type)
	assert.Equal(t, uint64(16), uni.Entries[0].Buffer.MinBindingSize)

	smp := s.BindGroupLayoutDescriptor(SamplerGroup)
	require.Len(t, smp.Entries, 1)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, smp.Entries[0].Sampler.Type)

	name, ok := s.BindingName(TextureGroup, 7)
	assert.True(t, ok)
	assert.Equal(t, "source_texture", name)
	name, ok = s.BindingName(SamplerGroup, 0)
	assert.True(t, ok)
	assert.Equal(t, "tile_sampler", name)
	_, ok = s.BindingName(SamplerGroup, 1)
	assert.False(t, ok)

	assert.Equal(t, []UniformField{
		{Name: "radius", Type: "f32", Offset: 0, Size: 4},
		{Name: "texel_x", Type: "f32", Offset: 4, Size: 4},
		{Name: "offset", Type: "vec2<f32>", Offset: 8, Size: 8},
	}, s.UniformFields())
}

func TestNewShaderErrors(t *testing.T) {
	_, err := NewShader("empty", ShaderTypeFragment, "")
	assert.Error(t, err)

	_, err = NewShader("no entry", ShaderTypeFragment, "//@fx:pipeline x\nfn helper() {}\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no @fragment entry point")

	assert.Panics(t, func() { MustShader("bad", ShaderTypeVertex, "//@fx:nope") })
}

func TestBuiltinLibrary(t *testing.T) {
	assert.Equal(t, []string{
		"box_blur",
		"brightness",
		"gaussian_blur",
		"kawase_blur",
		"negative",
		"oil_painting",
	}, BuiltinNames())

	for _, name := range BuiltinNames() {
		s, err := Builtin(name)
		require.NoError(t, err, name)
		assert.Equal(t, "fs_main", s.EntryPoint(), name)
		require.NotEmpty(t, s.Declarations(), name)
		assert.Equal(t, AnnotationTypePipeline, s.Declarations()[0].Type, name)
		assert.Equal(t, AnnotationArg(name), s.Declarations()[0].Args[0], name)
		assert.NotEmpty(t, s.UniformFields(), name)
		assert.Len(t, s.BindGroupLayoutDescriptors(), 3, name)
	}

	_, err := Builtin("sepia")
	assert.ErrorIs(t, err, ErrUnknownShader)

	v := FullscreenVertex()
	assert.Equal(t, "vs_main", v.EntryPoint())
	assert.Empty(t, v.BindGroupLayoutDescriptors())
}

func TestValidateBuiltins(t *testing.T) {
	shaders := []Shader{FullscreenVertex()}
	for _, name := range BuiltinNames() {
		s, err := Builtin(name)
		require.NoError(t, err)
		shaders = append(shaders, s)
	}

	for _, s := range shaders {
		t.Run(s.Key(), func(t *testing.T) {
			size, err := Validate(s)
			if err != nil {
				msg := err.Error()
				if strings.Contains(msg, "not yet implemented") || strings.Contains(msg, "not supported") ||
					strings.Contains(msg, "unsupported") || strings.Contains(msg, "lowering error") {
					t.Skipf("naga feature not yet implemented: %v", err)
				}
				t.Fatalf("validate %s: %v", s.Key(), err)
			}
			assert.Positive(t, size)
		})
	}
}

func TestValidateRejectsBrokenSource(t *testing.T) {
	s, err := NewShader("broken", ShaderTypeFragment, "@fragment\nfn fs_main() -> @location(0) vec4<f32> { return undefined_value; }\n")
	require.NoError(t, err)
	_, err = Validate(s)
	assert.ErrorIs(t, err, ErrInvalidShader)
}

func TestStripComments(t *testing.T) {
	src := "a // line /* not a block\nb /* outer /* inner */ still\ncomment */ c\nd"
	assert.Equal(t, "a \nb \n c\nd", stripComments(src))
}

func TestScanModule(t *testing.T) {
	m := scanModule(`
struct Inner { a: f32, };
struct Params {
    // @builtin(position) is ignored in comments
    @align(16) weights: array<f32, 3>,
    inner: Inner,
    tail: vec3f,
};
@group(1) @binding(0) var<uniform> params: Params;
/* @fragment fn decoy() {} */
@fragment
fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(0.0); }
@fragment
fn fs_other() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
`)
	assert.Equal(t, "fs_main", m.entryPoints[ShaderTypeFragment])
	assert.Empty(t, m.entryPoints[ShaderTypeVertex])
	assert.Equal(t, []structMember{
		{name: "weights", typeName: "array<f32,3>"},
		{name: "inner", typeName: "Inner"},
		{name: "tail", typeName: "vec3f"},
	}, m.structs["Params"])

	assert.Equal(t, []UniformField{
		{Name: "weights", Type: "array<f32,3>", Offset: 0, Size: 48},
		{Name: "inner", Type: "Inner", Offset: 48, Size: 16},
		{Name: "tail", Type: "vec3f", Offset: 64, Size: 12},
	}, m.uniformFields(UniformGroup, 0))
	assert.Nil(t, m.uniformFields(UniformGroup, 1))

	layouts, names, err := m.bindGroupLayouts(wgpu.ShaderStageFragment)
	require.NoError(t, err)
	assert.Equal(t, uint64(80), layouts[UniformGroup].Entries[0].Buffer.MinBindingSize)
	assert.Equal(t, "params", names[UniformGroup][0])
}

func TestBindGroupLayoutsRejectsResources(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"storage buffer", "@group(1) @binding(0) var<storage, read> data: array<f32>;"},
		{"3d texture", "@group(0) @binding(0) var volume: texture_3d<f32>;"},
		{"integer texture", "@group(0) @binding(0) var ids: texture_2d<u32>;"},
		{"comparison sampler", "@group(2) @binding(0) var shadow: sampler_comparison;"},
		{"unresolvable uniform", "@group(1) @binding(0) var<uniform> params: Missing;"},
		{"recursive uniform", "struct A { a: A, };\n@group(1) @binding(0) var<uniform> params: A;"},
		{"duplicate binding", "@group(2) @binding(0) var s: sampler;\n@group(2) @binding(0) var t: sampler;"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := scanModule(tt.source).bindGroupLayouts(wgpu.ShaderStageFragment)
			assert.ErrorIs(t, err, ErrUnsupportedResource)
		})
	}
}

func TestNewShaderRejectsUnsupportedResource(t *testing.T) {
	src := "@group(0) @binding(0) var volume: texture_3d<f32>;\n@fragment\nfn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(0.0); }\n"
	_, err := NewShader("volume", ShaderTypeFragment, src)
	assert.ErrorIs(t, err, ErrUnsupportedResource)
}
