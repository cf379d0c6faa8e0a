package detector

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// runner abstracts the forward pass so tests can substitute a fake
// without the onnxruntime shared library present.
type runner interface {
	// Run scores one encoded sequence and returns the raw class logits.
	Run(inputIDs, attentionMask []int64) ([]float32, error)
	Close() error
}

// ortRunner wraps an ONNX session with preallocated input/output tensors.
// The tensors are reused across calls, so Run is single-flight under mu;
// the HTTP layer's concurrent requests serialize here.
type ortRunner struct {
	mu       sync.Mutex
	session  *ort.AdvancedSession
	inputIDs *ort.Tensor[int64]
	attnMask *ort.Tensor[int64]
	logits   *ort.Tensor[float32]
}

func newORTRunner(modelPath string, seqLen, numClasses int, opts *ort.SessionOptions) (*ortRunner, error) {
	inputShape := ort.NewShape(1, int64(seqLen))
	inputIDs, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate input_ids tensor: %w", err)
	}
	attnMask, err := ort.NewEmptyTensor[int64](inputShape)
	if err != nil {
		return nil, fmt.Errorf("allocate attention_mask tensor: %w", err)
	}
	logits, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(numClasses)))
	if err != nil {
		return nil, fmt.Errorf("allocate logits tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		[]ort.Value{inputIDs, attnMask},
		[]ort.Value{logits},
		opts,
	)
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ortRunner{
		session:  session,
		inputIDs: inputIDs,
		attnMask: attnMask,
		logits:   logits,
	}, nil
}

func (r *ortRunner) Run(inputIDs, attentionMask []int64) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	copy(r.inputIDs.GetData(), inputIDs)
	copy(r.attnMask.GetData(), attentionMask)

	if err := r.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	// Copy out so callers never alias the reused output tensor.
	out := make([]float32, len(r.logits.GetData()))
	copy(out, r.logits.GetData())
	return out, nil
}

func (r *ortRunner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	err := r.session.Destroy()
	r.session = nil
	_ = r.inputIDs.Destroy()
	_ = r.attnMask.Destroy()
	_ = r.logits.Destroy()
	return err
}
