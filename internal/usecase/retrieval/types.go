package retrieval

import (
	"nutriagent/internal/domain"

	"github.com/google/uuid"
)

// Candidate couples a retrieved chunk with its fan-out provenance: which
// query variant found it and at which rank within that variant's results.
type Candidate struct {
	Result domain.SearchResult
	// Rank is the 0-based position within the variant's result list.
	Rank int
	// Variant is the index into the expanded query list.
	Variant int
}

// CandidateSet is the deduplicated union of per-variant retrieval results,
// ordered first-seen in (variant, rank) order. Because per-variant result
// slices are collected by index before merging, the order is deterministic
// regardless of which search completes first.
type CandidateSet struct {
	items []Candidate
	seen  map[uuid.UUID]struct{}
}

// NewCandidateSet creates an empty candidate set.
func NewCandidateSet() *CandidateSet {
	return &CandidateSet{seen: make(map[uuid.UUID]struct{})}
}

// Add inserts a candidate unless its chunk was already seen. First-seen
// wins: retrieval scores from different query variants are not comparable,
// so there is no meaningful "best score" to keep.
func (s *CandidateSet) Add(c Candidate) bool {
	if _, ok := s.seen[c.Result.Chunk.ID]; ok {
		return false
	}
	s.seen[c.Result.Chunk.ID] = struct{}{}
	s.items = append(s.items, c)
	return true
}

// Items returns the candidates in first-seen order. The returned slice is
// a copy so later pipeline stages cannot mutate the set.
func (s *CandidateSet) Items() []Candidate {
	out := make([]Candidate, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of distinct candidates.
func (s *CandidateSet) Len() int { return len(s.items) }

// RankedChunk is one entry of the reranked context handed to the answer
// synthesizer.
type RankedChunk struct {
	Chunk domain.Chunk
	Score float32
	// Rank is the candidate's original retrieval rank, kept for the
	// deterministic tie-break.
	Rank int
}
