package config

import "time"

const dataDir = "/usr/local/var/bookflow/data"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = 10 * time.Minute
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = dataDir + "/db/documents.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = dataDir + "/indices/bleve"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = dataDir + "/indices/vectors.idx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = dataDir + "/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Search.TextResults == 0 {
		cfg.Search.TextResults = 5
	}
	if cfg.Search.VoiceResults == 0 {
		cfg.Search.VoiceResults = 3
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 50
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = "llama3-8b-8192"
	}
	if cfg.LLM.MaxAttempts == 0 {
		cfg.LLM.MaxAttempts = 3
	}
	if cfg.LLM.Cooldown == 0 {
		cfg.LLM.Cooldown = 20 * time.Second
	}
	if cfg.LLM.Burst == 0 {
		cfg.LLM.Burst = 1
	}
	if cfg.Scraper.TargetURL == "" {
		cfg.Scraper.TargetURL = "https://en.wikisource.org/wiki/The_Gates_of_Morning/Book_1/Chapter_1"
	}
	if cfg.Scraper.ContentClass == "" {
		cfg.Scraper.ContentClass = "mw-parser-output"
	}
	if cfg.Scraper.MinWords == 0 {
		cfg.Scraper.MinWords = 100
	}
	if cfg.Scraper.HTTPTimeout == 0 {
		cfg.Scraper.HTTPTimeout = 60 * time.Second
	}
	if cfg.Scraper.WorkerTimeout == 0 {
		cfg.Scraper.WorkerTimeout = 90 * time.Second
	}
	if cfg.Scraper.SnapshotDir == "" {
		cfg.Scraper.SnapshotDir = dataDir + "/snapshots"
	}
	if cfg.Transcription.Model == "" {
		cfg.Transcription.Model = "whisper-large-v3"
	}
	if cfg.Transcription.BaseURL == "" {
		cfg.Transcription.BaseURL = cfg.LLM.BaseURL
	}
	if cfg.Pipeline.IDPrefix == "" {
		cfg.Pipeline.IDPrefix = "chapter_1"
	}
	if cfg.Pipeline.PreviewLength == 0 {
		cfg.Pipeline.PreviewLength = 150
	}
	if cfg.Pipeline.EditorID == "" {
		cfg.Pipeline.EditorID = "human_01"
	}
	if cfg.Pipeline.LineageMaxDepth == 0 {
		cfg.Pipeline.LineageMaxDepth = 1000
	}
}
