package index

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2s"
)

const (
	defaultMaxTokens = 300
	defaultOverlap   = 50
)

// Chunker splits transcript segments and frame summaries into token-bounded
// chunks. Consecutive transcript segments are merged until the token budget is
// reached; an oversized single segment is split into overlapping token windows.
type Chunker struct {
	// To load encoder only once across all chunking operations.
	tok       *tiktoken.Tiktoken
	maxTokens int
	overlap   int
}

func ProvideChunker(maxTokens, overlap int) *Chunker {
	tok, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Error("Failed to get token encoder", zap.Error(err))
		return nil
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	// The window step is maxTokens-overlap; overlap must stay below the
	// budget even when the default itself does not fit.
	if overlap < 0 || overlap >= maxTokens {
		overlap = min(defaultOverlap, maxTokens/2)
	}
	return &Chunker{tok: tok, maxTokens: maxTokens, overlap: overlap}
}

// ChunkTranscript merges timed transcript segments into chunks of at most
// maxTokens tokens. Chunk timestamps span the first and last merged segment so
// answers can cite the original position in the video.
func (c *Chunker) ChunkTranscript(videoID string, segments []TranscriptSegment) []Chunk {
	var out []Chunk

	var curText []string
	var curTokens int
	var curStart, curEnd float64

	flush := func() {
		if len(curText) == 0 {
			return
		}
		text := strings.Join(curText, " ")
		out = append(out, Chunk{
			ChunkID:    chunkID(videoID, string(SourceTranscript), len(out), text),
			VideoID:    videoID,
			Source:     SourceTranscript,
			Text:       text,
			StartTS:    curStart,
			EndTS:      curEnd,
			TokenCount: curTokens,
		})
		curText = nil
		curTokens = 0
	}

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		tokens := c.tok.Encode(text, nil, nil)

		if len(tokens) > c.maxTokens {
			// A single oversized segment: flush what we have and window it.
			flush()
			for _, w := range c.windowTokens(tokens) {
				out = append(out, Chunk{
					ChunkID:    chunkID(videoID, string(SourceTranscript), len(out), w.text),
					VideoID:    videoID,
					Source:     SourceTranscript,
					Text:       w.text,
					StartTS:    seg.StartTS,
					EndTS:      seg.EndTS,
					TokenCount: w.tokens,
				})
			}
			continue
		}

		if curTokens+len(tokens) > c.maxTokens {
			flush()
		}
		if len(curText) == 0 {
			curStart = seg.StartTS
		}
		curText = append(curText, text)
		curTokens += len(tokens)
		curEnd = seg.EndTS
	}
	flush()

	for i := range out {
		out[i].Seq = i
	}
	return out
}

// ChunkFrameSummaries turns each frame-group summary into a chunk. Summaries
// are short; anything above the token budget is windowed like transcripts.
func (c *Chunker) ChunkFrameSummaries(videoID string, frames []FrameSummary) []Chunk {
	var out []Chunk

	for _, f := range frames {
		text := strings.TrimSpace(f.Summary)
		if text == "" {
			continue
		}
		tokens := c.tok.Encode(text, nil, nil)

		if len(tokens) <= c.maxTokens {
			out = append(out, Chunk{
				ChunkID:    chunkID(videoID, string(SourceFrameSummary), len(out), text),
				VideoID:    videoID,
				Source:     SourceFrameSummary,
				Text:       text,
				StartTS:    f.StartTS,
				EndTS:      f.EndTS,
				TokenCount: len(tokens),
			})
			continue
		}

		for _, w := range c.windowTokens(tokens) {
			out = append(out, Chunk{
				ChunkID:    chunkID(videoID, string(SourceFrameSummary), len(out), w.text),
				VideoID:    videoID,
				Source:     SourceFrameSummary,
				Text:       w.text,
				StartTS:    f.StartTS,
				EndTS:      f.EndTS,
				TokenCount: w.tokens,
			})
		}
	}

	for i := range out {
		out[i].Seq = i
	}
	return out
}

type tokenWindow struct {
	text   string
	tokens int
}

func (c *Chunker) windowTokens(tokens []int) []tokenWindow {
	var out []tokenWindow
	for i := 0; i < len(tokens); i += c.maxTokens - c.overlap {
		end := min(i+c.maxTokens, len(tokens))
		sub := tokens[i:end]
		out = append(out, tokenWindow{text: c.tok.Decode(sub), tokens: len(sub)})
		if end == len(tokens) {
			break
		}
	}
	return out
}

func chunkID(videoID, source string, ordinal int, text string) string {
	h, _ := blake2s.New256(nil)
	h.Write([]byte(fmt.Sprintf("%s:%s:%d:%s", videoID, source, ordinal, text)))
	return hex.EncodeToString(h.Sum(nil))[:16]
}
