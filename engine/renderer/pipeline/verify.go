package pipeline

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-fx/engine/renderer/shader"
)

// ErrShaderMismatch is returned when a fragment shader's declarations disagree with the layout it is registered
// for.
var ErrShaderMismatch = errors.New("shader does not match layout")

// VerifyShader checks a fragment shader against a layout before a GPU pipeline is built from it. The shader must
// name the layout's kind with @fx:pipeline, bind its input texture at the layout's slot, declare the tile
// sampler and a uniform block, and annotate every uniform slot with the layout's source. Every uniform block
// member must be a single f32 in slot order.
//
// Parameters:
//   - layout: the binding contract the shader must satisfy
//   - s: the fragment shader to check
//
// Returns:
//   - error: ErrShaderMismatch describing the first disagreement, or nil
func VerifyShader(layout Layout, s shader.Shader) error {
	if s == nil {
		return fmt.Errorf("%w: %s: nil shader", ErrShaderMismatch, layout.Kind)
	}
	if s.ShaderType() != shader.ShaderTypeFragment {
		return fmt.Errorf("%w: %s: %s is a %s shader", ErrShaderMismatch, layout.Kind, s.Key(), s.ShaderType())
	}

	var (
		pipelineName string
		texture      *int
		uniforms     = make(map[int]string)
	)
	for _, d := range s.Declarations() {
		switch d.Type {
		case shader.AnnotationTypePipeline:
			pipelineName = string(d.Args[0])
		case shader.AnnotationTypeTexture:
			texture = d.Binding
		case shader.AnnotationTypeUniform:
			if _, dup := uniforms[*d.Slot]; dup {
				return fmt.Errorf("%w: %s: uniform slot %d annotated twice", ErrShaderMismatch, s.Key(), *d.Slot)
			}
			uniforms[*d.Slot] = string(d.Args[0])
		}
	}

	if want := layout.Kind.ShaderName(); pipelineName != want {
		return fmt.Errorf("%w: %s: declares pipeline %q, want %q", ErrShaderMismatch, s.Key(), pipelineName, want)
	}
	if texture == nil {
		return fmt.Errorf("%w: %s: no input texture declared", ErrShaderMismatch, s.Key())
	}
	if uint32(*texture) != uint32(layout.TextureSlot) {
		return fmt.Errorf("%w: %s: texture at slot %d, want %d", ErrShaderMismatch, s.Key(), *texture, layout.TextureSlot)
	}
	if _, ok := s.BindingName(shader.SamplerGroup, 0); !ok {
		return fmt.Errorf("%w: %s: no sampler declared", ErrShaderMismatch, s.Key())
	}
	if _, ok := s.BindingName(shader.UniformGroup, 0); !ok && len(layout.Uniforms) > 0 {
		return fmt.Errorf("%w: %s: no uniform block declared", ErrShaderMismatch, s.Key())
	}

	if len(uniforms) != len(layout.Uniforms) {
		return fmt.Errorf("%w: %s: %d uniform annotations, want %d", ErrShaderMismatch, s.Key(), len(uniforms), len(layout.Uniforms))
	}
	for _, u := range layout.Uniforms {
		got, ok := uniforms[u.Slot]
		if !ok {
			return fmt.Errorf("%w: %s: uniform slot %d not annotated", ErrShaderMismatch, s.Key(), u.Slot)
		}
		if got != u.Source.String() {
			return fmt.Errorf("%w: %s: uniform slot %d reads %q, want %q", ErrShaderMismatch, s.Key(), u.Slot, got, u.Source)
		}
	}

	fields := s.UniformFields()
	if len(fields) != len(layout.Uniforms) {
		return fmt.Errorf("%w: %s: uniform block has %d members, want %d", ErrShaderMismatch, s.Key(), len(fields), len(layout.Uniforms))
	}
	for i, f := range fields {
		if f.Type != "f32" || f.Offset != uint64(i*4) {
			return fmt.Errorf("%w: %s: uniform member %s is %s at offset %d, want f32 at %d",
				ErrShaderMismatch, s.Key(), f.Name, f.Type, f.Offset, i*4)
		}
	}
	return nil
}
