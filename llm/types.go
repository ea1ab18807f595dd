package llm

// GroundingChunk is one web source consulted during a grounded
// generation: the (possibly redirecting) URI and the page title.
type GroundingChunk struct {
	URI   string
	Title string
}

// GroundingSupport ties a span of generated text to the chunks that
// support it. Start and End are byte offsets into SearchResult.Text;
// ChunkIndices index into SearchResult.Chunks.
type GroundingSupport struct {
	Start        int
	End          int
	ChunkIndices []int
}

// SearchResult is the outcome of one grounded generation: the
// generated text plus the grounding metadata needed for citation
// resolution. Supports with incomplete segment offsets are omitted at
// conversion time.
type SearchResult struct {
	Text     string
	Chunks   []GroundingChunk
	Supports []GroundingSupport
}
