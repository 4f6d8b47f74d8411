package export

import "time"

const (
	FormatMarkdown = "md"
	FormatText     = "txt"
	FormatDocx     = "docx"
)

// ExportRequest is the body of POST /summaries/{id}/export. OutputDir and
// FileName are optional.
type ExportRequest struct {
	Format    string `json:"format"`
	OutputDir string `json:"output_dir,omitempty"`
	FileName  string `json:"file_name,omitempty"`
}

// Document is the exportable view of a stored summary.
type Document struct {
	Title      string
	VideoID    string
	YouTubeURL string
	Summary    string
	Backend    string
	Model      string
	ChunkCount int
	CreatedAt  time.Time
}

type ExportResponse struct {
	Status     string `json:"status"`
	Format     string `json:"format"`
	SummaryID  string `json:"summary_id"`
	OutputPath string `json:"output_path"`
	Bytes      int64  `json:"bytes"`
}
