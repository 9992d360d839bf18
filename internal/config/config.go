package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Address   string `yaml:"address"`   // listen address, e.g. ":8080"
	UploadDir string `yaml:"uploadDir"` // directory where uploaded files are written before ingestion
}

// MilvusConfig holds the Milvus connection and collection settings.
type MilvusConfig struct {
	Address string `yaml:"address"`
	// Collection is the single collection holding both summary and chunk
	// records. SummaryCollection/ChunkCollection are only used by the legacy
	// dual-collection retrieval scope.
	Collection        string `yaml:"collection"`
	SummaryCollection string `yaml:"summaryCollection,omitempty"`
	ChunkCollection   string `yaml:"chunkCollection,omitempty"`
	Dim               int    `yaml:"dim"` // embedding vector dimension
}

// KafkaConfig holds the ingestion job queue settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	GroupID string   `yaml:"groupID"`
}

// MongoConfig holds the task record store settings.
type MongoConfig struct {
	Address        string `yaml:"address"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	Database       string `yaml:"database"`
	TaskCollection string `yaml:"taskCollection"`
}

// MySQLConfig holds the document registry database settings.
type MySQLConfig struct {
	Address         string `yaml:"address"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	Database        string `yaml:"database"`
	MaxOpenConns    int    `yaml:"maxOpenConns"`
	MaxIdleConns    int    `yaml:"maxIdleConns"`
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // seconds
}

// RedisConfig holds the ingestion lock store settings.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MinIOConfig holds the raw upload archive settings. An empty endpoint
// disables archiving.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Secure    bool   `yaml:"secure"`
}

// DatabasesConfig groups all external store connections.
type DatabasesConfig struct {
	Milvus MilvusConfig `yaml:"milvus"`
	Kafka  KafkaConfig  `yaml:"kafka"`
	Mongo  MongoConfig  `yaml:"mongo"`
	MySQL  MySQLConfig  `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`
	MinIO  MinIOConfig  `yaml:"minio"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // "ollama", "openai" or "google"
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"baseURL,omitempty"` // ollama only
	APIKey   string `yaml:"apiKey,omitempty"`
}

// IngestionConfig holds the pipeline parameters.
type IngestionConfig struct {
	MaxFileSizeMB int `yaml:"maxFileSizeMB"`
	ChunkSize     int `yaml:"chunkSize"`
	ChunkOverlap  int `yaml:"chunkOverlap"`
	LockTTL       int `yaml:"lockTTL"` // per-source ingestion lock TTL, seconds
}

// RetrievalConfig holds the hierarchical search parameters.
type RetrievalConfig struct {
	Scope         string `yaml:"scope"` // "metadata" (default) or "dual"
	NDocs         int    `yaml:"nDocs"`
	NChunksPerDoc int    `yaml:"nChunksPerDoc"`
}

// AppConfig is the root configuration, loaded once at startup and passed to
// constructors. No component reads process environment directly.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Databases DatabasesConfig `yaml:"databases"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
}

// Defaults applied when the YAML omits a value.
const (
	DefaultChunkSize     = 500
	DefaultChunkOverlap  = 50
	DefaultMaxFileSizeMB = 50
	DefaultNDocs         = 3
	DefaultNChunksPerDoc = 5
	DefaultLockTTL       = 300
)

// LoadConfig reads and parses the YAML configuration file.
func LoadConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Ingestion.ChunkSize <= 0 {
		c.Ingestion.ChunkSize = DefaultChunkSize
	}
	if c.Ingestion.ChunkOverlap <= 0 {
		c.Ingestion.ChunkOverlap = DefaultChunkOverlap
	}
	if c.Ingestion.MaxFileSizeMB <= 0 {
		c.Ingestion.MaxFileSizeMB = DefaultMaxFileSizeMB
	}
	if c.Ingestion.LockTTL <= 0 {
		c.Ingestion.LockTTL = DefaultLockTTL
	}
	if c.Retrieval.NDocs <= 0 {
		c.Retrieval.NDocs = DefaultNDocs
	}
	if c.Retrieval.NChunksPerDoc <= 0 {
		c.Retrieval.NChunksPerDoc = DefaultNChunksPerDoc
	}
	if c.Retrieval.Scope == "" {
		c.Retrieval.Scope = "metadata"
	}
}
