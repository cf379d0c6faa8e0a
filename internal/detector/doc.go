// Package detector loads the vulnerability classifier once at startup and
// scores code snippets against it. It is structured into small files by
// concern:
//
//   - detector.go: Detector type, Load, Analyze, label constants, softmax.
//   - tokenizer.go: WordPiece tokenizer built from vocab.txt.
//   - runner.go: forward-pass abstraction; the real implementation wraps
//     an onnxruntime session with preallocated tensors behind a mutex.
//   - device.go: accelerator probing (cuda/cpu) and shared library lookup.
//   - errors.go: error types and helpers (IsNotReady, IsInvalidInput).
//   - stats.go: static service/model descriptors for /, /health, /stats.
//
// Load either returns a fully constructed Detector or an error; there is
// no partial state. Analyze is read-only with respect to model weights
// and tokenizer state, so concurrent requests are safe once Load has
// returned; they serialize only on the runner's reused tensors.
package detector
