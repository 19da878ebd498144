package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
)

// ErrInvalidShader is returned when WGSL source fails to compile.
var ErrInvalidShader = errors.New("invalid shader")

// Validate compiles the processed source of s to SPIR-V with naga so malformed WGSL is reported before any
// device is created.
//
// Parameters:
//   - s: the shader to validate
//
// Returns:
//   - int: the size of the compiled SPIR-V module in bytes
//   - error: ErrInvalidShader wrapping the compiler error
func Validate(s Shader) (int, error) {
	spirv, err := naga.Compile(s.Source())
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidShader, s.Key(), err)
	}
	if len(spirv) == 0 {
		return 0, fmt.Errorf("%w: %s: empty SPIR-V output", ErrInvalidShader, s.Key())
	}
	return len(spirv), nil
}
