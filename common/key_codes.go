package common

// Key codes delivered by the preview window's key callback.
// These values match GLFW key codes which use ASCII values for printable keys.
// Reference: https://pkg.go.dev/github.com/go-gl/glfw/v3.3/glfw#Key
const (
	KeyH   = 72  // H key (ASCII)
	KeyN   = 78  // N key (ASCII)
	KeyR   = 82  // R key (ASCII)
	KeyTab = 258 // Tab key (GLFW)
	KeyEsc = 256 // Escape key (GLFW)

	Key0 = 48 // 0 key (ASCII)
	Key9 = 57 // 9 key (ASCII)
)
