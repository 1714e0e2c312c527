package core

const (
	AppName          = "DocQA"
	AppUserAgent     = "DocQA-Harvester/0.1"
	AppRepositoryURL = "https://github.com/sandevgo/docqa"
	AppVersion       = "0.1.0"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a conversation as the language model sees it.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ScoredCandidate is a passage returned by the similarity index.
// Score polarity depends on the index, see Direction.
type ScoredCandidate struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
}

// Source returns the "source" metadata entry, or "" when absent.
func (c ScoredCandidate) Source() string {
	return c.Metadata["source"]
}

// IndexEntry is a chunk of a document ready to be stored in an index.
type IndexEntry struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Vector   []float32         `json:"-"`
}

// DownloadRecord describes one harvested PDF link.
type DownloadRecord struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Path  string `json:"path,omitempty"`
}

// Model is an entry of a provider's model catalogue.
type Model struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContextLength int    `json:"context_length,omitempty"`
}
