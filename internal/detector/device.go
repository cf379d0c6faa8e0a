package detector

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// Device is the compute backend a session is bound to.
type Device string

const (
	// DeviceAuto probes for an accelerator and falls back to CPU.
	DeviceAuto Device = "auto"
	// DeviceCUDA forces the CUDA execution provider; load fails if unavailable.
	DeviceCUDA Device = "cuda"
	// DeviceCPU forces general-purpose compute.
	DeviceCPU Device = "cpu"
)

// ParseDevice validates a device name from config/flags.
func ParseDevice(s string) (Device, error) {
	switch Device(strings.ToLower(strings.TrimSpace(s))) {
	case "", DeviceAuto:
		return DeviceAuto, nil
	case DeviceCUDA:
		return DeviceCUDA, nil
	case DeviceCPU:
		return DeviceCPU, nil
	default:
		return "", fmt.Errorf("unknown device %q (want auto, cuda or cpu)", s)
	}
}

// sessionOptions resolves the requested device into session options and
// the device actually bound. A nil options value means plain CPU.
// Auto mode treats an unavailable CUDA provider as a CPU fallback;
// explicit cuda treats it as a fatal startup error.
func sessionOptions(requested Device) (*ort.SessionOptions, Device, error) {
	if requested == DeviceCPU {
		return nil, DeviceCPU, nil
	}

	cudaOpts, err := ort.NewCUDAProviderOptions()
	if err != nil {
		if requested == DeviceCUDA {
			return nil, "", fmt.Errorf("cuda requested but unavailable: %w", err)
		}
		return nil, DeviceCPU, nil
	}
	defer cudaOpts.Destroy()

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, "", fmt.Errorf("create session options: %w", err)
	}
	if err := opts.AppendExecutionProviderCUDA(cudaOpts); err != nil {
		opts.Destroy()
		if requested == DeviceCUDA {
			return nil, "", fmt.Errorf("enable cuda provider: %w", err)
		}
		return nil, DeviceCPU, nil
	}
	return opts, DeviceCUDA, nil
}

// resolveSharedLibrary locates the onnxruntime shared library. An explicit
// path wins, then ONNXRUNTIME_SHARED_LIBRARY_PATH, then common install
// locations. Returns "" when nothing is found.
func resolveSharedLibrary(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"onnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}
	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
