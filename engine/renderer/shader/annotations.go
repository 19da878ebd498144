// annotations.go defines the annotation types and parser for the effect WGSL pre-processor. Annotations are
// single-line WGSL comments prefixed with @fx: that generate the fixed bind group declarations every effect
// shader shares and record the texture slot and uniform slot order the shader was authored against. The
// recorded declarations are what pipeline registration checks a shader against.
package shader

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// annotationPrefix is the marker that identifies an annotation within a WGSL comment line.
const annotationPrefix = "@fx:"

// Bind group indices shared by every effect fragment shader.
const (
	// TextureGroup holds the single input texture at the pipeline's texture slot.
	TextureGroup = 0
	// UniformGroup holds the uniform parameter block at binding 0.
	UniformGroup = 1
	// SamplerGroup holds the tile sampler at binding 0.
	SamplerGroup = 2
)

// AnnotationType identifies the kind of annotation parsed from a WGSL comment line.
type AnnotationType string

const (
	// annotationTypeInclude injects a registered WGSL struct at the annotation site. It produces no declaration.
	//
	// Syntax: //@fx:include <struct_type>
	//
	// Example: //@fx:include vertex_output
	annotationTypeInclude AnnotationType = "include"

	// AnnotationTypePipeline names the pipeline kind the shader implements. It produces no WGSL output.
	//
	// Syntax: //@fx:pipeline <pipeline_name>
	//
	// Example: //@fx:pipeline gaussian_blur
	AnnotationTypePipeline AnnotationType = "pipeline"

	// AnnotationTypeTexture generates the input texture declaration in TextureGroup at the given slot.
	//
	// Syntax: //@fx:texture <slot> <var_name>
	//
	// Example: //@fx:texture 3 source_texture
	AnnotationTypeTexture AnnotationType = "texture"

	// AnnotationTypeSampler generates the sampler declaration at binding 0 of SamplerGroup.
	//
	// Syntax: //@fx:sampler <var_name>
	//
	// Example: //@fx:sampler tile_sampler
	AnnotationTypeSampler AnnotationType = "sampler"

	// AnnotationTypeUniforms generates the uniform block declaration at binding 0 of UniformGroup. The struct
	// type is hand-written in the shader.
	//
	// Syntax: //@fx:uniforms <var_name> <struct_type_name>
	//
	// Example: //@fx:uniforms params BlurParams
	AnnotationTypeUniforms AnnotationType = "uniforms"

	// AnnotationTypeUniform records which value feeds a uniform slot. It is placed directly above the struct
	// member it describes and produces no WGSL output.
	//
	// Syntax: //@fx:uniform <slot> <source>
	//
	// Example: //@fx:uniform 0 gaussian_radius
	AnnotationTypeUniform AnnotationType = "uniform"
)

// Annotation represents a single parsed @fx: annotation from a WGSL shader source line.
type Annotation struct {
	// Type identifies which annotation was parsed.
	Type AnnotationType

	// Args holds the annotation's arguments. The contents depend on Type:
	//   - include:  [0] = struct type key
	//   - pipeline: [0] = pipeline name
	//   - texture:  [0] = var name
	//   - sampler:  [0] = var name
	//   - uniforms: [0] = var name, [1] = struct type name
	//   - uniform:  [0] = uniform source name
	Args []AnnotationArg

	// Line is the 1-based line number in the original WGSL source.
	Line int

	// Group is the @group index for texture, sampler and uniforms annotations.
	Group *int

	// Binding is the @binding index for texture, sampler and uniforms annotations.
	Binding *int

	// Slot is the uniform slot index for uniform annotations.
	Slot *int
}

// AnnotationArg is a typed string used as an argument in annotations.
type AnnotationArg string

const (
	// AnnotationArgVertexOutput identifies the VertexOutput struct shared by the fullscreen vertex shader and
	// every effect fragment shader.
	// Source: engine/renderer/shader/assets/vertex_output.wgsl
	AnnotationArgVertexOutput AnnotationArg = "vertex_output"
)

// validStructTypes lists the struct type arguments accepted by @fx:include.
var validStructTypes = []AnnotationArg{
	AnnotationArgVertexOutput,
}

// identifierRegex matches the snake_case names accepted for pipeline names, uniform sources and variable names.
var identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// parseAnnotation attempts to parse a single line of WGSL source as an @fx: annotation. Returns nil with no
// error for lines that do not contain the annotation prefix.
//
// Parameters:
//   - line: the raw WGSL source line to parse
//   - lineNum: the 1-based line number for error reporting
//
// Returns:
//   - *Annotation: the parsed annotation, or nil if the line is not an annotation
//   - error: a descriptive error if the annotation is malformed
func parseAnnotation(line string, lineNum int) (*Annotation, error) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return nil, nil
	}
	_, after, ok := strings.Cut(trimmed, annotationPrefix)
	if !ok {
		return nil, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return nil, fmt.Errorf("line %d: empty @fx annotation", lineNum)
	}

	for _, arg := range args[1:] {
		if _, err := strconv.Atoi(arg); err == nil {
			continue
		}
		if !identifierRegex.MatchString(arg) {
			return nil, fmt.Errorf("line %d: invalid argument %q in @fx %s annotation", lineNum, arg, args[0])
		}
	}

	switch AnnotationType(args[0]) {
	case annotationTypeInclude:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @fx include annotation requires exactly one argument", lineNum)
		}
		if !slices.Contains(validStructTypes, AnnotationArg(args[1])) {
			return nil, fmt.Errorf("line %d: unknown struct type %q in @fx include annotation", lineNum, args[1])
		}
		return &Annotation{Type: annotationTypeInclude, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil
	case AnnotationTypePipeline:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @fx pipeline annotation requires exactly one argument", lineNum)
		}
		return &Annotation{Type: AnnotationTypePipeline, Args: []AnnotationArg{AnnotationArg(args[1])}, Line: lineNum}, nil
	case AnnotationTypeTexture:
		if len(args) != 3 {
			return nil, fmt.Errorf("line %d: @fx texture annotation requires a slot and a variable name", lineNum)
		}
		slot, err := parseIndex(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid texture slot %q: %w", lineNum, args[1], err)
		}
		return &Annotation{
			Type:    AnnotationTypeTexture,
			Args:    []AnnotationArg{AnnotationArg(args[2])},
			Line:    lineNum,
			Group:   intPtr(TextureGroup),
			Binding: &slot,
		}, nil
	case AnnotationTypeSampler:
		if len(args) != 2 {
			return nil, fmt.Errorf("line %d: @fx sampler annotation requires a variable name", lineNum)
		}
		return &Annotation{
			Type:    AnnotationTypeSampler,
			Args:    []AnnotationArg{AnnotationArg(args[1])},
			Line:    lineNum,
			Group:   intPtr(SamplerGroup),
			Binding: intPtr(0),
		}, nil
	case AnnotationTypeUniforms:
		if len(args) != 3 {
			return nil, fmt.Errorf("line %d: @fx uniforms annotation requires a variable name and a struct type", lineNum)
		}
		return &Annotation{
			Type:    AnnotationTypeUniforms,
			Args:    []AnnotationArg{AnnotationArg(args[1]), AnnotationArg(args[2])},
			Line:    lineNum,
			Group:   intPtr(UniformGroup),
			Binding: intPtr(0),
		}, nil
	case AnnotationTypeUniform:
		if len(args) != 3 {
			return nil, fmt.Errorf("line %d: @fx uniform annotation requires a slot and a source", lineNum)
		}
		slot, err := parseIndex(args[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid uniform slot %q: %w", lineNum, args[1], err)
		}
		return &Annotation{
			Type: AnnotationTypeUniform,
			Args: []AnnotationArg{AnnotationArg(args[2])},
			Line: lineNum,
			Slot: &slot,
		}, nil
	default:
		return nil, fmt.Errorf("line %d: unknown @fx annotation type %q", lineNum, args[0])
	}
}

func parseIndex(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, fmt.Errorf("negative index %d", v)
	}
	return v, nil
}

func intPtr(v int) *int {
	return &v
}
