package shader

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"
)

//go:embed assets/*.wgsl
var assets embed.FS

// FullscreenVertexKey is the key of the shared fullscreen-triangle vertex shader.
const FullscreenVertexKey = "fullscreen"

// ErrUnknownShader is returned when no built-in fragment shader exists for a name.
var ErrUnknownShader = errors.New("unknown shader")

// nonFragmentAssets are the asset files that are not effect fragment shaders.
var nonFragmentAssets = []string{FullscreenVertexKey, string(AnnotationArgVertexOutput)}

var fullscreenVertex = sync.OnceValue(func() Shader {
	src, err := assets.ReadFile("assets/" + FullscreenVertexKey + ".wgsl")
	if err != nil {
		panic(fmt.Sprintf("shader: missing built-in vertex shader: %v", err))
	}
	return MustShader(FullscreenVertexKey, ShaderTypeVertex, string(src))
})

var builtinFragments = sync.OnceValue(func() map[string]Shader {
	entries, err := fs.Glob(assets, "assets/*.wgsl")
	if err != nil {
		panic(err)
	}
	out := make(map[string]Shader, len(entries))
	for _, file := range entries {
		name := strings.TrimSuffix(path.Base(file), ".wgsl")
		if slices.Contains(nonFragmentAssets, name) {
			continue
		}
		src, err := assets.ReadFile(file)
		if err != nil {
			panic(err)
		}
		out[name] = MustShader(name, ShaderTypeFragment, string(src))
	}
	return out
})

// FullscreenVertex returns the shared vertex shader that covers the render target with one triangle and emits
// texture coordinates with the origin at the top-left.
func FullscreenVertex() Shader {
	return fullscreenVertex()
}

// Builtin returns the built-in fragment shader for a pipeline name such as "gaussian_blur".
//
// Parameters:
//   - name: the pipeline name the shader declares with @fx:pipeline
//
// Returns:
//   - Shader: the parsed fragment shader
//   - error: ErrUnknownShader if no built-in shader has the name
func Builtin(name string) (Shader, error) {
	s, ok := builtinFragments()[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShader, name)
	}
	return s, nil
}

// BuiltinNames returns the names of every built-in fragment shader in sorted order.
func BuiltinNames() []string {
	names := make([]string, 0, len(builtinFragments()))
	for name := range builtinFragments() {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
