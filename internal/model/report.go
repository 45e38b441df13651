package model

const (
	ReportPrefix = "trends_analysis_"

	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

type Report struct {
	Filename string
	Content  string
	Format   string
}
