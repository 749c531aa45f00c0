package types

// MediaKind classifies a library item by how its pixels are sampled.
type MediaKind string

const (
	KindVideo    MediaKind = "video"
	KindImage    MediaKind = "image"
	KindAnimated MediaKind = "animated"
)

// MediaRecord holds the per-item metadata the library keeps for one file.
// The fingerprint is the perceptual hash as lowercase hex; the content hash
// is the strong byte-exact hash used by the exact-duplicate path.
type MediaRecord struct {
	ID          int64     `json:"id"`
	Path        string    `json:"path"`
	Kind        MediaKind `json:"kind"`
	Size        int64     `json:"size"`
	Duration    float64   `json:"duration"` // seconds, 0 when unknown
	ContentHash string    `json:"content_hash"`
	Fingerprint string    `json:"fingerprint"`
	Excluded    bool      `json:"excluded"`
	AddedAt     string    `json:"added_at"`
	ModifiedAt  string    `json:"modified_at"`
}

// PixelGrid is a small fixed-resolution grayscale sample of an item's
// visual content, one byte per pixel in row-major order.
type PixelGrid struct {
	Width  int
	Height int
	Pixels []byte
}

// MatchSource tells callers which mechanism produced a match.
type MatchSource string

const (
	MatchByFingerprint MatchSource = "fingerprint"
	MatchByTags        MatchSource = "tags"
)

// Match is one similarity result, always derived and never persisted.
// Distance is the Hamming bit count for fingerprint matches and -1 for
// tag-overlap matches, which have no fingerprint distance.
type Match struct {
	TargetID    int64       `json:"target_id"`
	CandidateID int64       `json:"candidate_id"`
	Distance    int         `json:"distance"`
	Similarity  int         `json:"similarity"`
	Tier        string      `json:"tier"`
	Source      MatchSource `json:"source"`
}

// DuplicateGroup is a set of items linked by the perceptual clustering pass.
type DuplicateGroup struct {
	IDs               []int64 `json:"ids"`
	AverageSimilarity int     `json:"average_similarity"`
}

// ExactDuplicateGroup is a set of byte-identical items sharing one strong
// content hash. Kept distinct from DuplicateGroup so callers know whether a
// duplicate claim is exact or visual-approximate.
type ExactDuplicateGroup struct {
	ContentHash string        `json:"content_hash"`
	Items       []MediaRecord `json:"items"`
}

// DuplicateStats summarizes the exact-duplicate situation of the library.
type DuplicateStats struct {
	Groups           int   `json:"groups"`
	Items            int   `json:"items"`
	ReclaimableBytes int64 `json:"reclaimable_bytes"`
}
