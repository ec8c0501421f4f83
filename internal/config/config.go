// Package config loads cogmem's YAML configuration: vector index tuning,
// BM25 parameters, materialization defaults, and session limits.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete cogmem configuration.
type Config struct {
	Version       int                 `yaml:"version"`
	Paths         PathsConfig         `yaml:"paths"`
	VectorIndex   VectorIndexConfig   `yaml:"vector_index"`
	BM25          BM25Config          `yaml:"bm25"`
	Ranking       RankingConfig       `yaml:"ranking"`
	Materialize   MaterializeConfig   `yaml:"materialize"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Episodic      EpisodicConfig      `yaml:"episodic"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// PathsConfig configures which workspace paths the ingestion walk accepts.
type PathsConfig struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// VectorIndexConfig configures the HNSW vector index (C2).
type VectorIndexConfig struct {
	Dimensions     int `yaml:"dimensions"`
	M              int `yaml:"m"`
	EfConstruction int `yaml:"ef_construction"`
	EfSearch       int `yaml:"ef_search"`
	// LinearScanThreshold below which a fallback linear scan is acceptable.
	LinearScanThreshold int `yaml:"linear_scan_threshold"`
}

// BM25Config configures the Ranker's stage-1 BM25 strategy (C9), distinct
// from the Pattern Index's bleve-backed keyword search (C8).
type BM25Config struct {
	K1             float64  `yaml:"k1"`
	B              float64  `yaml:"b"`
	MinTokenLength int      `yaml:"min_token_length"`
	StopWords      []string `yaml:"stop_words"`
}

// RankingConfig configures the Ranker's weighted/MMR/personalization stages.
type RankingConfig struct {
	SemanticWeight   float64 `yaml:"semantic_weight"`
	KeywordWeight    float64 `yaml:"keyword_weight"`
	RecencyWeight    float64 `yaml:"recency_weight"`
	PopularityWeight float64 `yaml:"popularity_weight"`
	MMRLambda        float64 `yaml:"mmr_lambda"`
	HistoryBoost     float64 `yaml:"history_boost"`
	HistoryCap       int     `yaml:"history_cap"`
}

// MaterializeConfig configures default flush options for C5.
type MaterializeConfig struct {
	Atomic              bool `yaml:"atomic"`
	CreateBackup         bool `yaml:"create_backup"`
	Parallel             bool `yaml:"parallel"`
	PreservePermissions  bool `yaml:"preserve_permissions"`
	MaxParallelWriters   int  `yaml:"max_parallel_writers"`
}

// SessionsConfig limits Session Controller usage (C10).
type SessionsConfig struct {
	MaxOpenSessions int `yaml:"max_open_sessions"`
}

// EpisodicConfig configures Episodic Memory consolidation (C7).
type EpisodicConfig struct {
	RetentionDays       int     `yaml:"retention_days"`
	AccessCountFloor    int     `yaml:"access_count_floor"`
	PatternValueFloor   float64 `yaml:"pattern_value_floor"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	JaccardThreshold    float64 `yaml:"jaccard_threshold"`
}

// LoggingConfig configures the ambient logging stack.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	FilePath  string `yaml:"file_path"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// Default returns the built-in default configuration, matching the
// literal constants named throughout spec.md.
func Default() Config {
	return Config{
		Version: 1,
		Paths: PathsConfig{
			Include: []string{"**/*"},
			Exclude: []string{".git/**", "node_modules/**", "vendor/**"},
		},
		VectorIndex: VectorIndexConfig{
			Dimensions:          768,
			M:                   16,
			EfConstruction:      200,
			EfSearch:            64,
			LinearScanThreshold: 1024,
		},
		BM25: BM25Config{
			K1:             1.2,
			B:              0.75,
			MinTokenLength: 2,
			StopWords:      DefaultStopWords,
		},
		Ranking: RankingConfig{
			SemanticWeight:   0.5,
			KeywordWeight:    0.2,
			RecencyWeight:    0.15,
			PopularityWeight: 0.15,
			MMRLambda:        0.7,
			HistoryBoost:     1.20,
			HistoryCap:       100,
		},
		Materialize: MaterializeConfig{
			Atomic:              true,
			CreateBackup:        true,
			Parallel:            true,
			PreservePermissions: true,
			MaxParallelWriters:  8,
		},
		Sessions: SessionsConfig{
			MaxOpenSessions: 20,
		},
		Episodic: EpisodicConfig{
			RetentionDays:       30,
			AccessCountFloor:    10,
			PatternValueFloor:   0.80,
			SimilarityThreshold: 0.30,
			JaccardThreshold:    0.30,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DefaultStopWords is the default value of the stop_words setting. The
// keyword pipeline does not read it: internal/patternindex tokenizes with
// its own patternindex.DefaultStopWords list.
var DefaultStopWords = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "is", "are", "was", "were", "be", "been", "being",
	"this", "that", "these", "those", "it", "its", "as", "from",
}

// Load reads a YAML config file at path and overlays it onto Default().
// A missing file is not an error: Default() is returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
