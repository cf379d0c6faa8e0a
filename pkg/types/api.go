package types

// DefaultFilename is echoed back when the request omits a filename.
const DefaultFilename = "unknown.java"

// AnalyzeRequest is the payload accepted by POST /analyze.
type AnalyzeRequest struct {
	// Required source code snippet to score.
	// example: String query = "SELECT * FROM users WHERE id = " + userId;
	Code string `json:"code" example:"String query = \"SELECT * FROM users WHERE id = \" + userId;"`
	// Optional file name; echoed back unchanged in the response.
	// example: UserDAO.java
	Filename string `json:"filename,omitempty" example:"UserDAO.java"`
}

// AnalyzeResponse is the verdict returned by POST /analyze.
type AnalyzeResponse struct {
	// True when the model predicts the vulnerable class.
	// example: true
	IsVulnerable bool `json:"is_vulnerable" example:"true"`
	// Probability of the predicted class, rounded to 4 decimals.
	// example: 0.9234
	Confidence float64 `json:"confidence" example:"0.9234"`
	// Predicted label, either "VULNERABLE" or "SAFE".
	// example: VULNERABLE
	Prediction string `json:"prediction" example:"VULNERABLE"`
	// File name from the request (or the default placeholder).
	// example: UserDAO.java
	Filename string `json:"filename" example:"UserDAO.java"`
}

// ServiceInfo is the static descriptor returned by GET /.
type ServiceInfo struct {
	// Human-readable service name.
	// example: Java Vulnerability Detector
	Service string `json:"service" example:"Java Vulnerability Detector"`
	// Coarse service status.
	// example: running
	Status string `json:"status" example:"running"`
	// Name of the served model.
	// example: GraphCodeBERT
	Model string `json:"model" example:"GraphCodeBERT"`
	// Advertised offline evaluation accuracy.
	// example: 83.93%
	Accuracy string `json:"accuracy" example:"83.93%"`
	// Service version.
	// example: 1.0.0
	Version string `json:"version" example:"1.0.0"`
	// Route descriptions keyed by endpoint name.
	Endpoints map[string]string `json:"endpoints"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// Coarse health status.
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// True once the classifier weights are resident.
	// example: true
	ModelLoaded bool `json:"model_loaded" example:"true"`
	// True once the tokenizer vocabulary is resident.
	// example: true
	TokenizerLoaded bool `json:"tokenizer_loaded" example:"true"`
	// Compute device bound at startup (cuda or cpu).
	// example: cuda
	Device string `json:"device" example:"cuda"`
	// True when both model and tokenizer are loaded.
	// example: true
	Ready bool `json:"ready" example:"true"`
}

// TrainingData describes the dataset the model was fine-tuned on.
type TrainingData struct {
	// Source dataset identifier.
	// example: mcanoglu/defect-detection (Java only) + augmentation
	Dataset string `json:"dataset" example:"mcanoglu/defect-detection (Java only) + augmentation"`
	// Number of training examples.
	// example: 3591
	Examples int `json:"examples" example:"3591"`
	// Augmentation strategies applied during training.
	// example: Variable renaming, comments, whitespace
	Augmentation string `json:"augmentation" example:"Variable renaming, comments, whitespace"`
}

// Performance holds the previously measured offline evaluation metrics.
// These are fixed constants of the model artifact, not computed at request time.
type Performance struct {
	// example: 83.93%
	TestAccuracy string `json:"test_accuracy" example:"83.93%"`
	// example: 84.00%
	Precision string `json:"precision" example:"84.00%"`
	// example: 83.44%
	Recall string `json:"recall" example:"83.44%"`
	// example: 83.72%
	F1Score string `json:"f1_score" example:"83.72%"`
}

// StatsResponse is the static model descriptor returned by GET /stats.
type StatsResponse struct {
	// example: GraphCodeBERT
	ModelName string `json:"model_name" example:"GraphCodeBERT"`
	// example: microsoft/graphcodebert-base
	Architecture string `json:"architecture" example:"microsoft/graphcodebert-base"`
	// example: Binary Classification (Safe/Vulnerable)
	Task string `json:"task" example:"Binary Classification (Safe/Vulnerable)"`
	// Dataset description.
	TrainingData TrainingData `json:"training_data"`
	// Offline evaluation metrics.
	Performance Performance `json:"performance"`
	// Vulnerability categories the model was trained to recognize.
	Capabilities []string `json:"capabilities"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
