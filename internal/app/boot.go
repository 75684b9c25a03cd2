package app

import (
	"context"
	"flag"
	"fmt"

	"shopseed/internal/blobstore"
	"shopseed/internal/config"
	"shopseed/internal/export"
	"shopseed/internal/stream"
)

// Common holds the flags every binary accepts.
type Common struct {
	EnvFile     string
	MetricsFile string
	MetricsAddr string
}

// BindCommon registers the common flags on the default flag set.
func BindCommon(c *Common) {
	flag.StringVar(&c.EnvFile, "env-file", ".env", "optional dotenv file")
	flag.StringVar(&c.MetricsFile, "metrics-file", "", "write prometheus metrics to this textfile on exit")
	flag.StringVar(&c.MetricsAddr, "metrics-addr", "", "serve /metrics on this address while running")
}

// Boot loads configuration and opens the environment for the binary name.
func Boot(ctx context.Context, c Common, name string) (*Env, error) {
	cfg, err := config.Load(c.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	env, err := Open(ctx, cfg, name)
	if err != nil {
		return nil, err
	}
	env.ServeMetrics(c.MetricsAddr)
	return env, nil
}

// OpenBucket opens the configured bucket.
func (e *Env) OpenBucket(ctx context.Context) (*blobstore.Bucket, error) {
	return blobstore.Open(ctx, e.Cfg.BucketURL)
}

// Exporter builds an exporter over b with the configured manifest sink and,
// when a stream topic is set, a transactional row stream. The returned func
// releases the stream producer.
func (e *Env) Exporter(ctx context.Context, b export.Bucket) (*export.Exporter, func(), error) {
	ex := &export.Exporter{
		Store:    e.Store,
		Bucket:   b,
		Log:      e.Log,
		Metrics:  e.Metrics,
		Manifest: ManifestPublisher(e.Cfg),
	}
	release := func() {}
	if e.Cfg.StreamTopic != "" {
		tp, err := stream.NewTxPublisher(ctx, e.Cfg.KafkaBootstrap, "shopseed-export-"+e.Cfg.Env)
		if err != nil {
			return nil, nil, fmt.Errorf("init stream: %w", err)
		}
		ex.Stream = tp
		ex.Topic = e.Cfg.StreamTopic
		release = tp.Close
	}
	return ex, release, nil
}
