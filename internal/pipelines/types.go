// Package pipelines runs the Python summarization pipelines as subprocesses:
// a one-shot doctor probe and a long-lived worker that keeps the model loaded.
package pipelines

import "time"

// Capabilities represents what the installed Python pipelines can do,
// as reported by the `doctor --json` command.
type Capabilities struct {
	PackageVersion string             `json:"package_version"`
	Python         PythonInfo         `json:"python"`
	Dependencies   map[string]DepInfo `json:"dependencies"`
	GPU            GPUInfo            `json:"gpu"`
	Summary        SummaryInfo        `json:"summary"`
	DefaultModel   string             `json:"default_model,omitempty"`

	HasSummarize bool      `json:"-"`
	ProbedAt     time.Time `json:"-"`
}

// PythonInfo holds Python runtime information.
type PythonInfo struct {
	Version    string `json:"version"`
	Executable string `json:"executable"`
}

// DepInfo represents the availability status of a single dependency.
type DepInfo struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// GPUInfo holds GPU availability information.
type GPUInfo struct {
	CUDAAvailable bool   `json:"cuda_available"`
	DeviceCount   int    `json:"device_count,omitempty"`
	Error         string `json:"error,omitempty"`
}

// SummaryInfo summarises overall dependency status.
type SummaryInfo struct {
	Available int  `json:"available"`
	Total     int  `json:"total"`
	AllOK     bool `json:"all_ok"`
}

// RunResult is the structured outcome of executing a pipeline subprocess.
type RunResult struct {
	ExitCode   int           `json:"exit_code"`
	OutputPath string        `json:"output_path,omitempty"`
	StderrTail string        `json:"stderr_tail,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// IsSuccess returns true when the subprocess exited cleanly.
func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// PipelineOutput carries the version metadata every pipeline reports.
// The worker sends it in its ready line.
type PipelineOutput struct {
	SchemaVersion   string `json:"schema_version"`
	PipelineVersion string `json:"pipeline_version"`
	ModelVersion    string `json:"model_version"`
}

// RequiredFieldsPresent checks the hard invariants the agent enforces.
func (p PipelineOutput) RequiredFieldsPresent() bool {
	return p.SchemaVersion != "" && p.PipelineVersion != "" && p.ModelVersion != ""
}

// MissingFields lists the required metadata fields that are empty.
func (p PipelineOutput) MissingFields() []string {
	var missing []string
	if p.SchemaVersion == "" {
		missing = append(missing, "schema_version")
	}
	if p.PipelineVersion == "" {
		missing = append(missing, "pipeline_version")
	}
	if p.ModelVersion == "" {
		missing = append(missing, "model_version")
	}
	return missing
}

// workerReady is the first line a worker prints once its model is loaded.
type workerReady struct {
	PipelineOutput
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

// summarizeRequest is one line written to the worker's stdin.
type summarizeRequest struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	MinLength int    `json:"min_length"`
	MaxLength int    `json:"max_length"`
	DoSample  bool   `json:"do_sample"`
}

// summarizeResponse is one line read from the worker's stdout.
type summarizeResponse struct {
	ID          int64  `json:"id"`
	SummaryText string `json:"summary_text"`
	Error       string `json:"error,omitempty"`
}
