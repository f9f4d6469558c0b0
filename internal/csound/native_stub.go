//go:build !csound

package csound

// New always fails when built without the csound tag.
func New() (Engine, error) {
	return nil, ErrUnavailable
}

// SetDefaultMessageCallback is a no-op without libcsound.
func SetDefaultMessageCallback(fn MessageFunc) {}

// Version returns 0 without libcsound.
func Version() int { return 0 }

// APIVersion returns 0 without libcsound.
func APIVersion() int { return 0 }

// SetGlobalEnv reports an error without libcsound.
func SetGlobalEnv(name, value string) int { return StatusError }
