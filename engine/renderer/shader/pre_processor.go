// pre_processor.go implements the effect WGSL pre-processor. It scans shader source for @fx: annotations,
// replaces them with generated bind group declarations or injected struct source, and collects the declarations
// list that pipeline registration checks against the pipeline's binding layout.
package shader

import (
	_ "embed"
	"fmt"
	"strings"
)

//go:embed assets/vertex_output.wgsl
var vertexOutputSource string

// registryEntry pairs an embedded WGSL struct source with its WGSL type name.
type registryEntry struct {
	Source string
	Type   string
}

type preProcessor struct {
	// structRegistry maps include arguments to their embedded WGSL source.
	structRegistry map[AnnotationArg]registryEntry

	// declarations accumulates every annotation except include during a Process call.
	declarations []Annotation
}

// PreProcessor processes raw WGSL shader source containing @fx: annotations, replacing them with generated
// declarations or injected struct sources while collecting a declarations list.
type PreProcessor interface {
	// Process replaces @fx: annotations with their WGSL output. @fx:include is replaced with embedded struct
	// source. @fx:texture, @fx:sampler and @fx:uniforms are replaced with @group/@binding declarations.
	// @fx:pipeline and @fx:uniform produce no WGSL output but are recorded in the declarations list.
	//
	// The declarations list is reset at the start of each call.
	//
	// Parameters:
	//   - source: the raw WGSL shader source
	//
	// Returns:
	//   - string: the processed WGSL source
	//   - error: an error if any annotation is malformed, or if a pipeline, texture, sampler or uniforms
	//     annotation appears more than once
	Process(source string) (string, error)

	// Declarations returns the annotations collected during the most recent call to Process, in source order.
	//
	// Returns:
	//   - []Annotation: the declarations collected during the last Process call
	Declarations() []Annotation
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor with the shared struct registry populated.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{
		structRegistry: map[AnnotationArg]registryEntry{
			AnnotationArgVertexOutput: {Source: vertexOutputSource, Type: "VertexOutput"},
		},
	}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.declarations = p.declarations[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	seen := make(map[AnnotationType]int)

	for i, line := range lines {
		a, err := parseAnnotation(line, i+1)
		if err != nil {
			return "", err
		}
		if a == nil {
			out = append(out, line)
			continue
		}

		switch a.Type {
		case AnnotationTypePipeline, AnnotationTypeTexture, AnnotationTypeSampler, AnnotationTypeUniforms:
			if prev, dup := seen[a.Type]; dup {
				return "", fmt.Errorf("line %d: duplicate @fx %s annotation, first declared on line %d", a.Line, a.Type, prev)
			}
			seen[a.Type] = a.Line
		}

		switch a.Type {
		case annotationTypeInclude:
			entry, ok := p.structRegistry[a.Args[0]]
			if !ok {
				return "", fmt.Errorf("line %d: unknown @fx:include argument %q", a.Line, a.Args[0])
			}
			out = append(out, entry.Source)
			continue
		case AnnotationTypeTexture:
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) var %s: texture_2d<f32>;", *a.Group, *a.Binding, a.Args[0]))
		case AnnotationTypeSampler:
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) var %s: sampler;", *a.Group, *a.Binding, a.Args[0]))
		case AnnotationTypeUniforms:
			out = append(out, fmt.Sprintf("@group(%d) @binding(%d) var<uniform> %s: %s;", *a.Group, *a.Binding, a.Args[0], a.Args[1]))
		case AnnotationTypePipeline, AnnotationTypeUniform:
		default:
			return "", fmt.Errorf("line %d: unknown annotation type %q", a.Line, a.Type)
		}
		p.declarations = append(p.declarations, *a)
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Declarations() []Annotation {
	return p.declarations
}
