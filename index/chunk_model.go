package index

// SourceKind tells which extraction branch produced a chunk.
type SourceKind string

const (
	SourceTranscript   SourceKind = "transcript"
	SourceFrameSummary SourceKind = "frame_summary"
)

// Chunk is a bounded span of transcript or frame-summary text with timestamps
// and an embedding. Immutable once indexed.
type Chunk struct {
	ChunkID    string     `json:"chunkId"`
	VideoID    string     `json:"videoId"`
	Source     SourceKind `json:"source"`
	Text       string     `json:"text"`
	StartTS    float64    `json:"startTs"` // seconds from video start
	EndTS      float64    `json:"endTs"`
	Embedding  []float32  `json:"-"`
	TokenCount int        `json:"tokenCount"`
	Seq        int        `json:"seq"` // ingestion order within the video
}

// TranscriptSegment is one timed span of ASR output, as returned by the
// transcribe tool.
type TranscriptSegment struct {
	Text    string  `json:"text"`
	StartTS float64 `json:"startTs"`
	EndTS   float64 `json:"endTs"`
}

// FrameSummary is the vision-model description of one grouped span of frames.
type FrameSummary struct {
	Summary string  `json:"summary"`
	StartTS float64 `json:"startTs"`
	EndTS   float64 `json:"endTs"`
}
