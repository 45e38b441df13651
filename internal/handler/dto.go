package handler

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Path    string `json:"path,omitempty"`
}

type NewsletterResponse struct {
	Source            string  `json:"source"`
	Subject           string  `json:"subject"`
	Date              string  `json:"date"`
	Filename          string  `json:"filename"`
	ProcessedFilename *string `json:"processedFilename"`
	Excerpt           string  `json:"excerpt"`
}

type NewslettersResponse struct {
	Success     bool                 `json:"success"`
	Message     string               `json:"message"`
	Error       string               `json:"error,omitempty"`
	Newsletters []NewsletterResponse `json:"newsletters"`
}

type NewsletterContentResponse struct {
	Success     bool   `json:"success"`
	IsProcessed bool   `json:"isProcessed"`
	Content     string `json:"content"`
	Format      string `json:"format,omitempty"`
}

type ProcessResultResponse struct {
	Filename          string `json:"filename"`
	ProcessedFilename string `json:"processedFilename"`
	Status            string `json:"status"`
	Error             string `json:"error,omitempty"`
	Fallback          bool   `json:"fallback,omitempty"`
}

type PullResponse struct {
	Success        bool                    `json:"success"`
	Message        string                  `json:"message"`
	Error          string                  `json:"error,omitempty"`
	Output         string                  `json:"output"`
	BatchID        string                  `json:"batchId,omitempty"`
	ProcessResults []ProcessResultResponse `json:"processResults"`
}

type ProcessRequest struct {
	HTML      string `json:"html"`
	ModelName string `json:"modelName"`
}

type ProcessResponse struct {
	Success  bool   `json:"success"`
	Content  string `json:"content"`
	Model    string `json:"model,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
}

type AnalyzeResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Output     string `json:"output,omitempty"`
	ReportFile string `json:"reportFile,omitempty"`
	BatchID    string `json:"batchId,omitempty"`
}

type InsightsResponse struct {
	Success  bool   `json:"success"`
	Content  string `json:"content"`
	Filename string `json:"filename"`
	Format   string `json:"format,omitempty"`
}

type BatchEntryResponse struct {
	Filename          string `json:"filename"`
	ProcessedFilename string `json:"processedFilename"`
	Status            string `json:"status"`
	Error             string `json:"error,omitempty"`
	Fallback          bool   `json:"fallback"`
}

type BatchResponse struct {
	ID         string               `json:"id"`
	Kind       string               `json:"kind"`
	Status     string               `json:"status"`
	Message    string               `json:"message"`
	ReportFile string               `json:"reportFile,omitempty"`
	StartedAt  string               `json:"startedAt"`
	FinishedAt string               `json:"finishedAt"`
	Entries    []BatchEntryResponse `json:"entries,omitempty"`
}

type BatchesResponse struct {
	Success bool            `json:"success"`
	Batches []BatchResponse `json:"batches"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

type SingleBatchResponse struct {
	Success bool          `json:"success"`
	Batch   BatchResponse `json:"batch"`
}
