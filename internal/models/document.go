package models

// PageRecord holds the extracted text of a single PDF page
type PageRecord struct {
	Text       string
	PageNumber int
	SourcePath string
}

// Chunk represents a split chunk with metadata
type Chunk struct {
	Content    string
	SourcePath string
	PageNumber int
	ChunkID    int
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a session's conversation history
type Message struct {
	Role    Role
	Content string
}

// SourcePreview is a truncated view of a retrieved chunk
type SourcePreview struct {
	Content    string `json:"content"`
	SourcePath string `json:"source"`
	PageNumber int    `json:"page"`
	ChunkID    int    `json:"chunk"`
}

// AnalysisResult is the answer to one query plus the chunks it was grounded on
type AnalysisResult struct {
	Answer  string          `json:"answer"`
	Sources []SourcePreview `json:"sources"`
}

// ClauseFinding pairs a clause label with the quoted contract text.
// The JSON keys match what the result page expects.
type ClauseFinding struct {
	Klausa string `json:"Klausa"`
	Isi    string `json:"Isi"`
}

// ContractReport is the full upload-and-analyze response body
type ContractReport struct {
	Clauses []ClauseFinding   `json:"clauses"`
	Risks   map[string]string `json:"risks"`
}
