package detector

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"

	ort "github.com/yalue/onnxruntime_go"
)

// Class indices are an external contract of the trained model artifact.
// They must not change independently of retraining.
const (
	ClassSafe       = 0
	ClassVulnerable = 1
	NumClasses      = 2
)

// Labels for the two classes, in class-index order.
const (
	LabelSafe       = "SAFE"
	LabelVulnerable = "VULNERABLE"
)

// DefaultSeqLen is the token budget used when the model was fine-tuned.
const DefaultSeqLen = 512

// Config holds everything Load needs to construct a Detector.
type Config struct {
	// Path to the exported classifier (model.onnx).
	ModelPath string
	// Path to the tokenizer vocabulary (vocab.txt).
	VocabPath string
	// Fixed token sequence length; 0 means DefaultSeqLen.
	SeqLen int
	// Requested compute device; empty means DeviceAuto.
	Device Device
	// Optional override for the onnxruntime shared library location.
	LibraryPath string
}

// Result is one classification verdict.
type Result struct {
	Label      string
	Vulnerable bool
	Confidence float64
}

// Detector pairs the tokenizer and classifier session bound to a device.
// It is constructed once at startup and read-only afterwards; Analyze
// mutates nothing beyond the runner's reused tensors.
type Detector struct {
	run       runner
	tokenizer *WordPieceTokenizer
	device    Device
	seqLen    int
}

// Load builds a Detector or fails without side effects. Callers must
// treat an error as fatal at startup: no partially initialized Detector
// is ever returned, so a serving process either has the full resource
// or never accepted traffic.
func Load(cfg Config) (*Detector, error) {
	seqLen := cfg.SeqLen
	if seqLen <= 0 {
		seqLen = DefaultSeqLen
	}
	requested := cfg.Device
	if requested == "" {
		requested = DeviceAuto
	}

	lib := resolveSharedLibrary(cfg.LibraryPath)
	if lib == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(lib)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", cfg.ModelPath, err)
	}

	tokenizer, err := LoadWordPieceTokenizer(cfg.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}

	opts, bound, err := sessionOptions(requested)
	if err != nil {
		return nil, err
	}
	if opts != nil {
		defer opts.Destroy()
	}

	run, err := newORTRunner(cfg.ModelPath, seqLen, NumClasses, opts)
	if err != nil {
		return nil, err
	}

	return &Detector{
		run:       run,
		tokenizer: tokenizer,
		device:    bound,
		seqLen:    seqLen,
	}, nil
}

// Ready reports whether both tokenizer and model are resident.
func (d *Detector) Ready() bool {
	return d != nil && d.run != nil && d.tokenizer != nil
}

// BoundDevice returns the device the session was bound to at load time.
func (d *Detector) BoundDevice() Device {
	if d == nil {
		return ""
	}
	return d.device
}

// Analyze scores one code snippet. Deterministic for identical input and
// weights: no randomness, no gradient state, no per-request mutation.
// Inputs beyond the token budget are truncated, never rejected.
func (d *Detector) Analyze(ctx context.Context, code string) (Result, error) {
	if !d.Ready() {
		return Result{}, ErrNotReady()
	}
	if strings.TrimSpace(code) == "" {
		return Result{}, ErrInvalidInput("code is required")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	inputIDs, attnMask := d.tokenizer.Encode(code, d.seqLen)
	logits, err := d.run.Run(inputIDs, attnMask)
	if err != nil {
		return Result{}, fmt.Errorf("forward pass: %w", err)
	}
	if len(logits) != NumClasses {
		return Result{}, fmt.Errorf("unexpected logit count %d, want %d", len(logits), NumClasses)
	}

	probs := softmax(logits)
	idx := ClassSafe
	if probs[ClassVulnerable] > probs[ClassSafe] {
		idx = ClassVulnerable
	}
	return Result{
		Label:      classLabel(idx),
		Vulnerable: idx == ClassVulnerable,
		Confidence: round4(probs[idx]),
	}, nil
}

// Close releases the session and tensors. The process normally never
// calls this before exit; it exists for tests and the one-shot CLI.
func (d *Detector) Close() error {
	if d == nil || d.run == nil {
		return nil
	}
	err := d.run.Close()
	d.run = nil
	return err
}

func classLabel(idx int) string {
	if idx == ClassVulnerable {
		return LabelVulnerable
	}
	return LabelSafe
}

// softmax normalizes logits into a probability distribution, shifted by
// the max logit for numerical stability.
func softmax(logits []float32) []float64 {
	max := float64(logits[0])
	for _, l := range logits[1:] {
		if float64(l) > max {
			max = float64(l)
		}
	}
	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(float64(l) - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
