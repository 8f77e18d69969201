package store

// Passage is a retrieved document chunk as the RAG pipeline sees it.
// It only lives for the duration of one request.
type Passage struct {
	ID         string                 `json:"id"`
	Content    string                 `json:"content"`
	Similarity float64                `json:"similarity"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Contents returns the passage texts in order.
func Contents(passages []Passage) []string {
	out := make([]string, len(passages))
	for i, p := range passages {
		out[i] = p.Content
	}
	return out
}
