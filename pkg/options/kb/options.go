// Package kb provides knowledge base configuration options.
package kb

import (
	"fmt"

	"github.com/kart-io/minerva/pkg/options"
	"github.com/spf13/pflag"
)

var _ options.IOptions = (*Options)(nil)

// Options contains knowledge base specific configuration.
type Options struct {
	// ChunkSize is the maximum size of content chunks in characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// TopK is the number of results to return from similarity search.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// Collection is the name of the Milvus collection.
	Collection string `json:"collection" mapstructure:"collection"`

	// EmbeddingDim is the dimension of embedding vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// ExportDir is the directory for exported documents.
	ExportDir string `json:"export-dir" mapstructure:"export-dir"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:    500,
		TopK:         5,
		Collection:   "knowledge_base",
		EmbeddingDim: 768, // nomic-embed-text dimension
		ExportDir:    "_output/export",
	}
}

// AddFlags adds flags for knowledge base options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.IntVar(&o.ChunkSize, options.Join(prefixes...)+"kb.chunk-size", o.ChunkSize, "Maximum size of content chunks in characters.")
	fs.IntVar(&o.TopK, options.Join(prefixes...)+"kb.top-k", o.TopK, "Number of results from similarity search.")
	fs.StringVar(&o.Collection, options.Join(prefixes...)+"kb.collection", o.Collection, "Milvus collection name.")
	fs.IntVar(&o.EmbeddingDim, options.Join(prefixes...)+"kb.embedding-dim", o.EmbeddingDim, "Embedding vector dimension.")
	fs.StringVar(&o.ExportDir, options.Join(prefixes...)+"kb.export-dir", o.ExportDir, "Directory for exported documents.")
}

// Validate validates the knowledge base options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk-size must be positive"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top-k must be positive"))
	}
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("collection is required"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("embedding-dim must be positive"))
	}
	return errs
}

// Complete completes the knowledge base options with defaults.
func (o *Options) Complete() error {
	if o.ExportDir == "" {
		o.ExportDir = "_output/export"
	}
	return nil
}
