package detector

import "vulnd/pkg/types"

// Static descriptors for the served model artifact. These describe the
// frozen weights and their offline evaluation; they never change within
// a process lifetime.
const (
	ServiceName  = "Java Vulnerability Detector"
	Version      = "1.0.0"
	ModelName    = "GraphCodeBERT"
	Architecture = "microsoft/graphcodebert-base"
	Task         = "Binary Classification (Safe/Vulnerable)"

	reportedAccuracy  = "83.93%"
	reportedPrecision = "84.00%"
	reportedRecall    = "83.44%"
	reportedF1        = "83.72%"

	trainingDataset      = "mcanoglu/defect-detection (Java only) + augmentation"
	trainingExamples     = 3591
	trainingAugmentation = "Variable renaming, comments, whitespace"
)

var capabilities = []string{
	"SQL Injection detection",
	"Cross-Site Scripting (XSS)",
	"Path Traversal",
	"Command Injection",
	"Insecure Deserialization",
	"XXE (XML External Entity)",
	"Hardcoded secrets",
	"And more security vulnerabilities",
}

// Info returns the static service descriptor for GET /.
func (d *Detector) Info() types.ServiceInfo {
	return types.ServiceInfo{
		Service:  ServiceName,
		Status:   "running",
		Model:    ModelName,
		Accuracy: reportedAccuracy,
		Version:  Version,
		Endpoints: map[string]string{
			"analyze": "POST /analyze",
			"health":  "GET /health",
			"stats":   "GET /stats",
			"docs":    "GET /docs",
		},
	}
}

// Health reports load state and the bound device for GET /health.
func (d *Detector) Health() types.HealthResponse {
	ready := d.Ready()
	return types.HealthResponse{
		Status:          "healthy",
		ModelLoaded:     ready,
		TokenizerLoaded: ready,
		Device:          string(d.BoundDevice()),
		Ready:           ready,
	}
}

// Stats returns the static model/dataset/metric descriptor for GET /stats.
func (d *Detector) Stats() types.StatsResponse {
	return types.StatsResponse{
		ModelName:    ModelName,
		Architecture: Architecture,
		Task:         Task,
		TrainingData: types.TrainingData{
			Dataset:      trainingDataset,
			Examples:     trainingExamples,
			Augmentation: trainingAugmentation,
		},
		Performance: types.Performance{
			TestAccuracy: reportedAccuracy,
			Precision:    reportedPrecision,
			Recall:       reportedRecall,
			F1Score:      reportedF1,
		},
		Capabilities: append([]string(nil), capabilities...),
	}
}
