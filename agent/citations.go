package agent

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/researchgraph/llm"
)

// shortURLPrefix is the base of the compact source identifiers spliced
// into intermediate research summaries. Full form:
// <prefix><batchID>-<index>.
const shortURLPrefix = "https://vertexaisearch.cloud.google.com/id/"

// ResolveURLs maps each distinct source URL to a short identifier.
//
// The index is the position of the URL's first occurrence in the chunk
// list, so the mapping is injective within a batch: distinct URLs can
// never collide on <batchID>-<index>. Later occurrences of the same URL
// reuse the first mapping. Chunks without a URL are skipped.
func ResolveURLs(chunks []llm.GroundingChunk, batchID int) map[string]string {
	resolved := make(map[string]string, len(chunks))
	for i, chunk := range chunks {
		if chunk.URI == "" {
			continue
		}
		if _, seen := resolved[chunk.URI]; !seen {
			resolved[chunk.URI] = fmt.Sprintf("%s%d-%d", shortURLPrefix, batchID, i)
		}
	}
	return resolved
}

// ExtractCitations converts grounding supports into Citation segments.
//
// Validation drops rather than fails:
//   - supports without a usable end offset, or with offsets outside
//     the text, are skipped
//   - chunk indices out of range are skipped
//   - chunks whose URL has no entry in urlMap are skipped
//   - segments left with zero sources are dropped entirely
func ExtractCitations(result llm.SearchResult, urlMap map[string]string) []Citation {
	var citations []Citation

	for _, support := range result.Supports {
		if support.End <= 0 || support.End > len(result.Text) {
			continue
		}
		if support.Start < 0 || support.Start > support.End {
			continue
		}

		var sources []Source
		for _, idx := range support.ChunkIndices {
			if idx < 0 || idx >= len(result.Chunks) {
				continue
			}
			chunk := result.Chunks[idx]
			short, ok := urlMap[chunk.URI]
			if !ok {
				continue
			}
			sources = append(sources, Source{
				Label:    citationLabel(chunk.Title),
				ShortURL: short,
				Value:    chunk.URI,
			})
		}
		if len(sources) == 0 {
			continue
		}

		citations = append(citations, Citation{
			Start:   support.Start,
			End:     support.End,
			Sources: sources,
		})
	}

	return citations
}

// citationLabel derives a display label from a source title by
// stripping the trailing domain suffix ("nasa.gov" -> "nasa"). Titles
// without a dot pass through unchanged.
func citationLabel(title string) string {
	if i := strings.LastIndex(title, "."); i > 0 {
		return title[:i]
	}
	return title
}

// InsertCitationMarkers splices " [label](shortURL)" marker groups
// into text at each citation's end offset.
//
// Citations are processed in strictly descending end-offset order
// (ties broken by descending start) so earlier splices never shift the
// offsets of later ones; the input order therefore does not matter.
// Citations whose end offset falls outside the text are skipped.
func InsertCitationMarkers(text string, citations []Citation) string {
	ordered := make([]Citation, len(citations))
	copy(ordered, citations)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].End != ordered[j].End {
			return ordered[i].End > ordered[j].End
		}
		return ordered[i].Start > ordered[j].Start
	})

	for _, citation := range ordered {
		if citation.End < 0 || citation.End > len(text) {
			continue
		}
		var markers strings.Builder
		for _, src := range citation.Sources {
			markers.WriteString(" [")
			markers.WriteString(src.Label)
			markers.WriteString("](")
			markers.WriteString(src.ShortURL)
			markers.WriteString(")")
		}
		text = text[:citation.End] + markers.String() + text[citation.End:]
	}

	return text
}

// RestoreSources rewrites a final answer by replacing every short
// identifier that appears in it with the source's original URL, and
// returns the sources actually cited, deduplicated to one entry per
// distinct original URL in first-seen order.
//
// Replacement runs longest-identifier-first: "<batch>-1" is a prefix
// of "<batch>-10", so replacing the shorter one first would corrupt
// the longer. Ordering by descending length removes the over-matching
// hazard without changing the identifier format.
func RestoreSources(answer string, gathered []Source) (string, []Source) {
	order := make([]int, len(gathered))
	for i := range gathered {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(gathered[order[a]].ShortURL) > len(gathered[order[b]].ShortURL)
	})

	cited := make([]bool, len(gathered))
	for _, i := range order {
		src := gathered[i]
		if src.ShortURL == "" || !strings.Contains(answer, src.ShortURL) {
			continue
		}
		answer = strings.ReplaceAll(answer, src.ShortURL, src.Value)
		cited[i] = true
	}

	seen := make(map[string]bool)
	var unique []Source
	for i, src := range gathered {
		if !cited[i] || seen[src.Value] {
			continue
		}
		seen[src.Value] = true
		unique = append(unique, src)
	}

	return answer, unique
}

// DedupSources reduces a source list to one entry per distinct
// original URL, keeping first-seen order.
func DedupSources(sources []Source) []Source {
	seen := make(map[string]bool, len(sources))
	var unique []Source
	for _, src := range sources {
		if seen[src.Value] {
			continue
		}
		seen[src.Value] = true
		unique = append(unique, src)
	}
	return unique
}

// CitedSources returns the deduplicated sources whose original URL
// appears in the answer text, in first-seen order. Used by the HTTP
// layer to derive the final source list from a completed run.
func CitedSources(answer string, gathered []Source) []Source {
	var cited []Source
	for _, src := range DedupSources(gathered) {
		if src.Value != "" && strings.Contains(answer, src.Value) {
			cited = append(cited, src)
		}
	}
	return cited
}
