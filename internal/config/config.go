package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const EnvPrefix = "SHOPSEED"

type StoreConfig struct {
	Backend     string // memory | pebble | badger | mongo
	Dir         string
	MongoURI    string
	MongoDB     string
	TablePrefix string
}

type JournalConfig struct {
	Sink  string // none | file | kafka | both
	Dir   string
	Topic string
}

type ManifestConfig struct {
	Sink  string // none | file | kafka | both
	Topic string
}

type Config struct {
	Env        string
	Tenants    []string
	Seed       int64
	IDStrategy string

	Store     StoreConfig
	BucketURL string
	ExportDir string
	MirrorDir string

	LogDir   string
	LogLevel string

	KafkaBootstrap string
	Journal        JournalConfig
	Manifest       ManifestConfig
	StreamTopic    string // empty disables the transactional export stream
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")
	v.SetDefault("tenants", "plazavea,uwu,wong")
	v.SetDefault("seed", 0)
	v.SetDefault("id_strategy", "uuid")
	v.SetDefault("store.backend", "pebble")
	v.SetDefault("store.dir", "./data/shopseed")
	v.SetDefault("store.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo_db", "shopseed")
	v.SetDefault("store.table_prefix", "pf_")
	v.SetDefault("bucket_url", "")
	v.SetDefault("export_dir", "./exported_data")
	v.SetDefault("mirror_dir", ".")
	v.SetDefault("log.dir", "./logs")
	v.SetDefault("log.level", "info")
	v.SetDefault("kafka.bootstrap", "localhost:9092")
	v.SetDefault("journal.sink", "none")
	v.SetDefault("journal.dir", "./data/journal")
	v.SetDefault("journal.topic", "shopseed.journal")
	v.SetDefault("manifest.sink", "file")
	v.SetDefault("manifest.topic", "shopseed.manifest")
	v.SetDefault("stream.topic", "")
}

// Load reads an optional .env file, then SHOPSEED_* environment variables.
// Nested keys use underscores, e.g. SHOPSEED_STORE_BACKEND.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Env:        strings.ToLower(v.GetString("env")),
		Tenants:    splitList(v.GetString("tenants")),
		Seed:       v.GetInt64("seed"),
		IDStrategy: v.GetString("id_strategy"),
		Store: StoreConfig{
			Backend:     v.GetString("store.backend"),
			Dir:         v.GetString("store.dir"),
			MongoURI:    v.GetString("store.mongo_uri"),
			MongoDB:     v.GetString("store.mongo_db"),
			TablePrefix: v.GetString("store.table_prefix"),
		},
		BucketURL:      v.GetString("bucket_url"),
		ExportDir:      v.GetString("export_dir"),
		MirrorDir:      v.GetString("mirror_dir"),
		LogDir:         v.GetString("log.dir"),
		LogLevel:       v.GetString("log.level"),
		KafkaBootstrap: v.GetString("kafka.bootstrap"),
		Journal: JournalConfig{
			Sink:  v.GetString("journal.sink"),
			Dir:   v.GetString("journal.dir"),
			Topic: v.GetString("journal.topic"),
		},
		Manifest: ManifestConfig{
			Sink:  v.GetString("manifest.sink"),
			Topic: v.GetString("manifest.topic"),
		},
		StreamTopic: v.GetString("stream.topic"),
	}
	if cfg.BucketURL == "" {
		cfg.BucketURL = DefaultBucketURL(cfg.Env)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultBucketURL maps an environment to its fixed bucket.
func DefaultBucketURL(env string) string {
	return "s3://aproyecto-" + env
}

func (c *Config) Validate() error {
	switch c.Env {
	case "dev", "prod":
	default:
		return fmt.Errorf("env %q: want dev or prod", c.Env)
	}
	if len(c.Tenants) == 0 {
		return errors.New("tenants: at least one tenant is required")
	}
	switch c.Store.Backend {
	case "memory", "pebble", "badger", "mongo":
	default:
		return fmt.Errorf("store backend %q: want memory, pebble, badger or mongo", c.Store.Backend)
	}
	for name, sink := range map[string]string{"journal": c.Journal.Sink, "manifest": c.Manifest.Sink} {
		switch sink {
		case "none", "file", "kafka", "both":
		default:
			return fmt.Errorf("%s sink %q: want none, file, kafka or both", name, sink)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
