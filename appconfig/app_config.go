package appconfig

import (
	"github.com/SaiNageswarS/go-api-boot/config"
)

type AppConfig struct {
	config.BootConfig `ini:",extends"`

	MongoURI string `env:"MONGO-URI" ini:"mongo_uri"`
	Tenant   string `env:"TENANT" ini:"tenant"`

	// External extraction services.
	AudioExtractEndpoint string `env:"AUDIO-EXTRACT-ENDPOINT" ini:"audio_extract_endpoint"`
	FrameExtractEndpoint string `env:"FRAME-EXTRACT-ENDPOINT" ini:"frame_extract_endpoint"`
	TranscribeEndpoint   string `env:"TRANSCRIBE-ENDPOINT" ini:"transcribe_endpoint"`
	ToolTimeoutSeconds   int    `env:"TOOL-TIMEOUT-SECONDS" ini:"tool_timeout_seconds"`
	ToolMaxAttempts      int    `env:"TOOL-MAX-ATTEMPTS" ini:"tool_max_attempts"`

	// Models.
	ChatModel      string `env:"CHAT-MODEL" ini:"chat_model"`
	VisionModel    string `env:"VISION-MODEL" ini:"vision_model"`
	EmbeddingModel string `env:"EMBEDDING-MODEL" ini:"embedding_model"`
	OpenAIBaseURL  string `env:"OPENAI-BASE-URL" ini:"openai_base_url"`

	// Chunking and retrieval.
	ChunkMaxTokens int `env:"CHUNK-MAX-TOKENS" ini:"chunk_max_tokens"`
	ChunkOverlap   int `env:"CHUNK-OVERLAP" ini:"chunk_overlap"`
	RetrievalTopK  int `env:"RETRIEVAL-TOP-K" ini:"retrieval_top_k"`
}
