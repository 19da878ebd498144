package shader

import (
	"cmp"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrUnsupportedResource is returned when a shader declares a resource an effect pipeline cannot bind.
var ErrUnsupportedResource = errors.New("unsupported shader resource")

var (
	entryPointRegex = regexp.MustCompile(`@(vertex|fragment)\s*(?:@\w+(?:\([^)]*\))?\s*)*fn\s+(\w+)`)
	structRegex     = regexp.MustCompile(`\bstruct\s+(\w+)\s*\{([^}]*)\}`)
	resourceRegex   = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
	attributeRegex  = regexp.MustCompile(`@\w+(?:\([^)]*\))?`)
)

type structMember struct {
	name     string
	typeName string
}

// resourceDecl is one module-scope @group/@binding variable. space is empty for textures and samplers.
type resourceDecl struct {
	group    int
	binding  int
	space    string
	name     string
	typeName string
}

// wgslModule is what pipeline creation needs from processed WGSL: the entry point of each stage, the module-scope
// resources and the struct definitions a uniform block can reference.
type wgslModule struct {
	entryPoints map[ShaderType]string
	resources   []resourceDecl
	structs     map[string][]structMember
}

// scanModule reads the declarations out of processed WGSL. Only the first entry point of each stage is kept.
func scanModule(source string) wgslModule {
	src := stripComments(source)
	m := wgslModule{
		entryPoints: make(map[ShaderType]string),
		structs:     make(map[string][]structMember),
	}

	for _, match := range entryPointRegex.FindAllStringSubmatch(src, -1) {
		stage := ShaderTypeVertex
		if match[1] == "fragment" {
			stage = ShaderTypeFragment
		}
		if _, ok := m.entryPoints[stage]; !ok {
			m.entryPoints[stage] = match[2]
		}
	}
	for _, match := range structRegex.FindAllStringSubmatch(src, -1) {
		m.structs[match[1]] = structMembers(match[2])
	}
	for _, match := range resourceRegex.FindAllStringSubmatch(src, -1) {
		group, _ := strconv.Atoi(match[1])
		binding, _ := strconv.Atoi(match[2])
		m.resources = append(m.resources, resourceDecl{
			group:    group,
			binding:  binding,
			space:    compactType(match[3]),
			name:     match[4],
			typeName: compactType(match[5]),
		})
	}
	return m
}

// bindGroupLayouts builds the layout descriptors for the module's resources, visible to one stage. Effect shaders
// sample 2D float textures through filtering samplers and read uniform blocks; storage buffers, other texture
// kinds and comparison samplers are rejected.
//
// Parameters:
//   - visibility: the stage flag set on every entry
//
// Returns:
//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group, entries sorted by binding
//   - map[int]map[int]string: variable names keyed by group and binding
//   - error: ErrUnsupportedResource for a resource that cannot be bound or a binding declared twice
func (m wgslModule) bindGroupLayouts(visibility wgpu.ShaderStage) (map[int]wgpu.BindGroupLayoutDescriptor, map[int]map[int]string, error) {
	resolver := newLayoutResolver(m.structs)
	descriptors := make(map[int]wgpu.BindGroupLayoutDescriptor)
	names := make(map[int]map[int]string)

	for _, r := range m.resources {
		if _, dup := names[r.group][r.binding]; dup {
			return nil, nil, fmt.Errorf("%w: @group(%d) @binding(%d) declared twice", ErrUnsupportedResource, r.group, r.binding)
		}
		entry, err := r.layoutEntry(visibility, resolver)
		if err != nil {
			return nil, nil, err
		}

		d := descriptors[r.group]
		d.Entries = append(d.Entries, entry)
		descriptors[r.group] = d
		if names[r.group] == nil {
			names[r.group] = make(map[int]string)
		}
		names[r.group][r.binding] = r.name
	}

	for _, d := range descriptors {
		slices.SortFunc(d.Entries, func(a, b wgpu.BindGroupLayoutEntry) int {
			return cmp.Compare(a.Binding, b.Binding)
		})
	}
	return descriptors, names, nil
}

func (r resourceDecl) layoutEntry(visibility wgpu.ShaderStage, resolver *layoutResolver) (wgpu.BindGroupLayoutEntry, error) {
	entry := wgpu.BindGroupLayoutEntry{Binding: uint32(r.binding), Visibility: visibility}
	switch {
	case r.space == "uniform":
		l, ok := resolver.layout(r.typeName)
		if !ok {
			return entry, fmt.Errorf("%w: uniform %s has no fixed layout for type %s", ErrUnsupportedResource, r.name, r.typeName)
		}
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
		entry.Buffer.MinBindingSize = l.size
	case r.space != "":
		return entry, fmt.Errorf("%w: %s in address space %q", ErrUnsupportedResource, r.name, r.space)
	case r.typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case r.typeName == "texture_2d<f32>":
		entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
	default:
		return entry, fmt.Errorf("%w: %s of type %s", ErrUnsupportedResource, r.name, r.typeName)
	}
	return entry, nil
}

// uniformFields lays out the struct bound as var<uniform> at group and binding. It returns nil when there is no
// such block or its type is not a struct with a fixed layout.
func (m wgslModule) uniformFields(group, binding int) []UniformField {
	for _, r := range m.resources {
		if r.group != group || r.binding != binding || r.space != "uniform" {
			continue
		}
		members, ok := m.structs[r.typeName]
		if !ok {
			return nil
		}
		fields, _, ok := newLayoutResolver(m.structs).place(members)
		if !ok {
			return nil
		}
		return fields
	}
	return nil
}

// structMembers splits a struct body into members. Attributes are dropped and commas nested in template lists
// such as array<f32, 4> do not split.
func structMembers(body string) []structMember {
	body = attributeRegex.ReplaceAllString(body, "")
	var members []structMember
	start, depth := 0, 0
	flush := func(end int) {
		if name, typ, ok := strings.Cut(body[start:end], ":"); ok {
			members = append(members, structMember{name: strings.TrimSpace(name), typeName: compactType(typ)})
		}
	}
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(body))
	return members
}

// compactType removes whitespace so "array<f32, 4>" and "array<f32,4>" compare equal.
func compactType(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// stripComments removes line comments and nested block comments. Newlines inside block comments are kept.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		rest := source[i:]
		switch {
		case strings.HasPrefix(rest, "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(rest, "*/"):
			depth--
			i++
		case depth > 0:
			if source[i] == '\n' {
				sb.WriteByte('\n')
			}
		case strings.HasPrefix(rest, "//"):
			end := strings.IndexByte(rest, '\n')
			if end < 0 {
				return sb.String()
			}
			i += end - 1
		default:
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
