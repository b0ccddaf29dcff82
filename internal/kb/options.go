// Package app provides the Minerva knowledge base service application.
package app

import (
	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	cacheopts "github.com/kart-io/minerva/pkg/options/cache"
	httpopts "github.com/kart-io/minerva/pkg/options/http"
	kbopts "github.com/kart-io/minerva/pkg/options/kb"
	llmopts "github.com/kart-io/minerva/pkg/options/llm"
	logopts "github.com/kart-io/minerva/pkg/options/logger"
	milvusopts "github.com/kart-io/minerva/pkg/options/milvus"
	mgopts "github.com/kart-io/minerva/pkg/options/mongodb"
)

// Options contains all knowledge base service options.
type Options struct {
	// HTTP contains HTTP server configuration.
	HTTP *httpopts.Options `json:"http" mapstructure:"http"`

	// Log contains logger configuration.
	Log *logopts.Options `json:"log" mapstructure:"log"`

	// MongoDB contains structured store configuration.
	MongoDB *mgopts.Options `json:"mongodb" mapstructure:"mongodb"`

	// Milvus contains vector store configuration.
	Milvus *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// Embedding contains embedding provider configuration.
	Embedding *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// KB contains knowledge base specific configuration.
	KB *kbopts.Options `json:"kb" mapstructure:"kb"`

	// Cache contains search result cache configuration.
	Cache *cacheopts.Options `json:"cache" mapstructure:"cache"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	httpOpts := httpopts.NewOptions()
	httpOpts.Addr = ":8083"

	return &Options{
		HTTP:      httpOpts,
		Log:       logopts.NewOptions(),
		MongoDB:   mgopts.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
		Embedding: llmopts.NewEmbeddingOptions(),
		KB:        kbopts.NewOptions(),
		Cache:     cacheopts.NewOptions(),
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.HTTP.AddFlags(fs)
	o.Log.AddFlags(fs)
	o.MongoDB.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Embedding.AddFlags(fs)
	o.KB.AddFlags(fs)
	o.Cache.AddFlags(fs)
}

// Complete completes the options.
func (o *Options) Complete() error {
	if err := o.Log.Complete(); err != nil {
		return err
	}
	if err := o.MongoDB.Complete(); err != nil {
		return err
	}
	if err := o.Embedding.Complete(); err != nil {
		return err
	}
	if err := o.KB.Complete(); err != nil {
		return err
	}
	return o.Cache.Complete()
}

// Validate validates the options.
func (o *Options) Validate() error {
	var errs []error

	if err := o.HTTP.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := o.Log.Validate(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, o.MongoDB.Validate()...)
	errs = append(errs, o.Milvus.Validate()...)
	errs = append(errs, o.Embedding.Validate()...)
	errs = append(errs, o.KB.Validate()...)
	errs = append(errs, o.Cache.Validate()...)

	return utilerrors.NewAggregate(errs)
}
