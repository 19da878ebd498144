package shader

import (
	"strconv"
	"strings"
)

// UniformField is one member of a shader's uniform block with its byte placement.
type UniformField struct {
	Name   string
	Type   string
	Offset uint64
	Size   uint64
}

// typeLayout is the size and alignment of a WGSL type in the uniform address space.
type typeLayout struct {
	size  uint64
	align uint64
}

// uniformScalars holds the host-shareable types a parameter block may use. The renderer packs 32-bit lanes only,
// so f16 is left out.
var uniformScalars = map[string]typeLayout{
	"f32": {4, 4},
	"i32": {4, 4},
	"u32": {4, 4},

	"vec2<f32>": {8, 8}, "vec2f": {8, 8},
	"vec2<i32>": {8, 8}, "vec2i": {8, 8},
	"vec2<u32>": {8, 8}, "vec2u": {8, 8},
	"vec3<f32>": {12, 16}, "vec3f": {12, 16},
	"vec3<i32>": {12, 16}, "vec3i": {12, 16},
	"vec3<u32>": {12, 16}, "vec3u": {12, 16},
	"vec4<f32>": {16, 16}, "vec4f": {16, 16},
	"vec4<i32>": {16, 16}, "vec4i": {16, 16},
	"vec4<u32>": {16, 16}, "vec4u": {16, 16},
}

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

// layoutResolver lays out the structs of one module under the uniform address space rules: array strides and
// nested struct members are 16-byte aligned.
type layoutResolver struct {
	structs  map[string][]structMember
	done     map[string]typeLayout
	visiting map[string]bool
}

func newLayoutResolver(structs map[string][]structMember) *layoutResolver {
	return &layoutResolver{
		structs:  structs,
		done:     make(map[string]typeLayout),
		visiting: make(map[string]bool),
	}
}

// layout resolves typeName to its uniform layout. It reports false for unknown types, runtime-sized or empty
// arrays and self-referencing structs.
func (r *layoutResolver) layout(typeName string) (typeLayout, bool) {
	if l, ok := uniformScalars[typeName]; ok {
		return l, true
	}
	if elem, n, ok := arrayType(typeName); ok {
		el, ok := r.layout(elem)
		if !ok || n == 0 {
			return typeLayout{}, false
		}
		stride := alignUp(alignUp(el.size, el.align), 16)
		return typeLayout{size: stride * n, align: max(el.align, 16)}, true
	}
	if l, ok := r.done[typeName]; ok {
		return l, true
	}
	members, ok := r.structs[typeName]
	if !ok || r.visiting[typeName] {
		return typeLayout{}, false
	}

	r.visiting[typeName] = true
	_, l, ok := r.place(members)
	delete(r.visiting, typeName)
	if !ok {
		return typeLayout{}, false
	}
	r.done[typeName] = l
	return l, true
}

// place assigns offsets to members in declaration order.
//
// Parameters:
//   - members: the struct members to lay out
//
// Returns:
//   - []UniformField: the members with their offsets and sizes
//   - typeLayout: the enclosing struct's size and alignment
//   - bool: false if any member type cannot be resolved
func (r *layoutResolver) place(members []structMember) ([]UniformField, typeLayout, bool) {
	fields := make([]UniformField, 0, len(members))
	offset, align := uint64(0), uint64(1)
	for _, m := range members {
		l, ok := r.layout(m.typeName)
		if !ok {
			return nil, typeLayout{}, false
		}
		if _, nested := r.structs[m.typeName]; nested {
			l = typeLayout{size: alignUp(l.size, 16), align: max(l.align, 16)}
		}
		offset = alignUp(offset, l.align)
		fields = append(fields, UniformField{Name: m.name, Type: m.typeName, Offset: offset, Size: l.size})
		offset += l.size
		align = max(align, l.align)
	}
	return fields, typeLayout{size: alignUp(offset, align), align: align}, true
}

// arrayType splits a fixed-size "array<T,N>" into its element type and count.
func arrayType(typeName string) (string, uint64, bool) {
	inner, ok := strings.CutPrefix(typeName, "array<")
	if !ok || !strings.HasSuffix(inner, ">") {
		return "", 0, false
	}
	inner = strings.TrimSuffix(inner, ">")
	i := strings.LastIndexByte(inner, ',')
	if i < 0 {
		return "", 0, false
	}
	n, err := strconv.ParseUint(inner[i+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return inner[:i], n, true
}
