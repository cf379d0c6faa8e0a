// Package bundle locates and validates the on-disk model artifacts.
package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	modelFile = "model.onnx"
	vocabFile = "vocab.txt"
)

// Bundle points at a validated model directory.
type Bundle struct {
	Dir       string
	ModelPath string
	VocabPath string
}

// Resolve expands a leading '~', absolutizes the path, and verifies the
// required artifacts exist. Missing artifacts are startup-fatal for the
// caller, so every problem is reported as an error here rather than
// deferred to first use.
func Resolve(dir string) (Bundle, error) {
	if strings.TrimSpace(dir) == "" {
		return Bundle{}, fmt.Errorf("bundle dir is empty")
	}
	base, err := expandHome(dir)
	if err != nil {
		return Bundle{}, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return Bundle{}, fmt.Errorf("abs path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Bundle{}, fmt.Errorf("bundle dir: %w", err)
	}
	if !info.IsDir() {
		return Bundle{}, fmt.Errorf("bundle path %s is not a directory", abs)
	}

	modelPath := filepath.Join(abs, modelFile)
	if _, err := os.Stat(modelPath); err != nil {
		return Bundle{}, fmt.Errorf("model file missing at %s: %w", modelPath, err)
	}
	// External weight data is optional, but if present it must be readable.
	if _, err := os.Stat(modelPath + ".data"); err != nil && !os.IsNotExist(err) {
		return Bundle{}, fmt.Errorf("model external data unreadable at %s.data: %w", modelPath, err)
	}

	vocabPath, err := findVocab(abs)
	if err != nil {
		return Bundle{}, err
	}

	return Bundle{Dir: abs, ModelPath: modelPath, VocabPath: vocabPath}, nil
}

// findVocab accepts both flat and tokenizer/ subdirectory layouts.
func findVocab(dir string) (string, error) {
	candidates := []string{
		filepath.Join(dir, vocabFile),
		filepath.Join(dir, "tokenizer", vocabFile),
	}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("tokenizer vocabulary not found under %s (want %s or tokenizer/%s)", dir, vocabFile, vocabFile)
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
