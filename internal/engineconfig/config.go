// Package engineconfig loads the engine's recognized options (spec.md §6.3)
// via koanf, the same way the teacher repo's pkg/config.Loader does: a
// pluggable provider (file, Consul, etcd) feeding one typed struct.
package engineconfig

import (
	"fmt"
	"log"
	"strings"
	"time"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/consul/v2"
	"github.com/knadh/koanf/providers/etcd/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/jidoka-ai/memengine/pkg/convbuffer"
	"github.com/jidoka-ai/memengine/pkg/ltm"
	"github.com/jidoka-ai/memengine/pkg/pending"
	"github.com/jidoka-ai/memengine/pkg/promotion"
	"github.com/jidoka-ai/memengine/pkg/stm"
	"github.com/jidoka-ai/memengine/pkg/tokenbudget"
	"github.com/jidoka-ai/memengine/pkg/workctx"
)

// SourceType names where configuration is loaded from.
type SourceType string

const (
	SourceFile   SourceType = "file"
	SourceConsul SourceType = "consul"
	SourceEtcd   SourceType = "etcd"
)

// LoaderOptions selects and parameterizes a configuration source.
type LoaderOptions struct {
	Type SourceType
	// Path is a filesystem path for SourceFile, or a key/prefix for
	// SourceConsul/SourceEtcd.
	Path string
	// Endpoints addresses the Consul agent or etcd cluster. Ignored for
	// SourceFile.
	Endpoints []string
	// Watch starts a background reactive watch on the source (file change,
	// Consul/etcd key update) that re-loads and re-expands configuration,
	// invoking OnChange with the result. Mirrors the teacher's
	// pkg/config.Loader Watch/OnChange pair.
	Watch bool
	// OnChange is invoked with each successfully reloaded EngineOptions when
	// Watch is true. Reload errors are logged and otherwise ignored, same as
	// the teacher's loader.
	OnChange func(EngineOptions) error
}

// PromotionOptions mirrors spec.md §6.3's promotion.* keys.
type PromotionOptions struct {
	MinImportance float64 `koanf:"min_importance"`
	MaxAgeSeconds float64 `koanf:"max_age_seconds"`
	MinConfidence float64 `koanf:"min_confidence"`
	InferTypes    bool    `koanf:"infer_types"`
	BatchSize     int     `koanf:"batch_size"`
}

// EngineOptions is the engine's recognized configuration (spec.md §6.3).
type EngineOptions struct {
	MaxMessages     int              `koanf:"max_messages"`
	MaxTokens       uint             `koanf:"max_tokens"`
	MaxContextItems int              `koanf:"max_context_items"`
	MaxPending      int              `koanf:"max_pending"`
	StandardGraphs  []string         `koanf:"standard_graphs"`
	Promotion       PromotionOptions `koanf:"promotion"`
}

// Defaults returns EngineOptions populated with spec.md §6.3's defaults.
func Defaults() EngineOptions {
	crit := promotion.DefaultCriteria()
	graphs := make([]string, len(ltm.StandardGraphs))
	for i, g := range ltm.StandardGraphs {
		graphs[i] = string(g)
	}
	return EngineOptions{
		MaxMessages:     convbuffer.DefaultMaxMessages,
		MaxTokens:       tokenbudget.DefaultMaxTokens,
		MaxContextItems: workctx.DefaultMaxItems,
		MaxPending:      pending.DefaultMaxSize,
		StandardGraphs:  graphs,
		Promotion: PromotionOptions{
			MinImportance: crit.MinImportance,
			MaxAgeSeconds: crit.MaxAgeSeconds,
			MinConfidence: crit.MinConfidence,
			InferTypes:    crit.InferTypes,
			BatchSize:     crit.BatchSize,
		},
	}
}

// Load reads configuration per opts, overlaying it onto Defaults(), then
// expanding any `${VAR}`/`$VAR` references against the process environment.
// Unset keys keep their default value. If opts.Watch is set, Load also
// starts a background watch on the source and invokes opts.OnChange on every
// subsequent reload, matching the teacher's pkg/config.Loader.
func Load(opts LoaderOptions) (EngineOptions, error) {
	k := koanf.New(".")

	defaults := Defaults()
	defaultsMap, err := structToMap(defaults)
	if err != nil {
		return EngineOptions{}, fmt.Errorf("engineconfig: defaults: %w", err)
	}
	if err := k.Load(confmap.Provider(defaultsMap, "."), nil); err != nil {
		return EngineOptions{}, fmt.Errorf("engineconfig: load defaults: %w", err)
	}

	provider, parser, err := buildProvider(opts)
	if err != nil {
		return EngineOptions{}, err
	}
	if err := k.Load(provider, parser); err != nil {
		return EngineOptions{}, fmt.Errorf("engineconfig: load %s: %w", opts.Type, err)
	}
	if err := expandEnvVarsInKoanf(k); err != nil {
		return EngineOptions{}, fmt.Errorf("engineconfig: expand env vars: %w", err)
	}

	out, err := unmarshal(k)
	if err != nil {
		return EngineOptions{}, err
	}

	if opts.Watch {
		go watch(k, provider, parser, opts)
	}

	return out, nil
}

func unmarshal(k *koanf.Koanf) (EngineOptions, error) {
	var out EngineOptions
	if err := k.UnmarshalWithConf("", &out, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return EngineOptions{}, fmt.Errorf("engineconfig: unmarshal: %w", err)
	}
	return out, nil
}

// expandEnvVarsInKoanf rebuilds k's contents with environment variable
// references in every string value resolved, grounded on the teacher's
// pkg/config.Loader.expandEnvVarsInKoanf.
func expandEnvVarsInKoanf(k *koanf.Koanf) error {
	expanded, ok := expandEnvVarsInData(k.Raw()).(map[string]interface{})
	if !ok {
		return fmt.Errorf("engineconfig: unexpected type after env var expansion")
	}
	*k = *koanf.New(".")
	return k.Load(confmap.Provider(expanded, "."), nil)
}

// watcher is satisfied by koanf's file/consul/etcd providers, each of which
// offers a reactive watch. Duck-typed the same way the teacher's
// pkg/config.Watcher interface is.
type watcher interface {
	Watch(cb func(event interface{}, err error)) error
}

// watch re-loads and re-expands opts's source on every change event,
// invoking opts.OnChange with the result. Mirrors the teacher's
// pkg/config.Loader.watch.
func watch(k *koanf.Koanf, provider koanf.Provider, parser koanf.Parser, opts LoaderOptions) {
	w, ok := provider.(watcher)
	if !ok {
		log.Printf("engineconfig: source %s does not support watching", opts.Type)
		return
	}

	err := w.Watch(func(event interface{}, err error) {
		if err != nil {
			log.Printf("engineconfig: watch error: %v", err)
			return
		}
		if err := k.Load(provider, parser); err != nil {
			log.Printf("engineconfig: reload failed: %v", err)
			return
		}
		if err := expandEnvVarsInKoanf(k); err != nil {
			log.Printf("engineconfig: reload expand failed: %v", err)
			return
		}
		out, err := unmarshal(k)
		if err != nil {
			log.Printf("engineconfig: reload unmarshal failed: %v", err)
			return
		}
		if opts.OnChange != nil {
			if err := opts.OnChange(out); err != nil {
				log.Printf("engineconfig: OnChange failed: %v", err)
			}
		}
	})
	if err != nil {
		log.Printf("engineconfig: watch stopped: %v", err)
	}
}

func buildProvider(opts LoaderOptions) (koanf.Provider, koanf.Parser, error) {
	switch opts.Type {
	case SourceFile, "":
		if opts.Path == "" {
			return nil, nil, fmt.Errorf("engineconfig: file source requires a path")
		}
		return file.Provider(opts.Path), yaml.Parser(), nil

	case SourceConsul:
		cfg := consulapi.DefaultConfig()
		if len(opts.Endpoints) > 0 {
			cfg.Address = opts.Endpoints[0]
		}
		return consul.Provider(consul.Config{Cfg: cfg, Key: opts.Path}), nil, nil

	case SourceEtcd:
		endpoints := opts.Endpoints
		if len(endpoints) == 0 {
			endpoints = []string{"localhost:2379"}
		}
		return etcd.Provider(etcd.Config{
			Client: clientv3.Config{
				Endpoints:   endpoints,
				DialTimeout: 5 * time.Second,
			},
			Key: opts.Path,
		}), nil, nil

	default:
		return nil, nil, fmt.Errorf("engineconfig: unsupported source type %q", opts.Type)
	}
}

// structToMap flattens a EngineOptions into the nested map confmap.Provider
// expects, keyed the same way koanf tags name them.
func structToMap(o EngineOptions) (map[string]interface{}, error) {
	graphs := make([]interface{}, len(o.StandardGraphs))
	for i, g := range o.StandardGraphs {
		graphs[i] = g
	}
	return map[string]interface{}{
		"max_messages":      o.MaxMessages,
		"max_tokens":        o.MaxTokens,
		"max_context_items": o.MaxContextItems,
		"max_pending":       o.MaxPending,
		"standard_graphs":   graphs,
		"promotion": map[string]interface{}{
			"min_importance":  o.Promotion.MinImportance,
			"max_age_seconds": o.Promotion.MaxAgeSeconds,
			"min_confidence":  o.Promotion.MinConfidence,
			"infer_types":     o.Promotion.InferTypes,
			"batch_size":      o.Promotion.BatchSize,
		},
	}, nil
}

// STMConfig converts o into the per-session capacities pkg/stm.Config holds.
func (o EngineOptions) STMConfig() stm.Config {
	return stm.Config{
		MaxMessages:     o.MaxMessages,
		MaxTokens:       o.MaxTokens,
		MaxContextItems: o.MaxContextItems,
		MaxPending:      o.MaxPending,
	}
}

// Criteria converts o.Promotion into a promotion.Criteria.
func (o EngineOptions) Criteria() promotion.Criteria {
	return promotion.Criteria{
		MinImportance: o.Promotion.MinImportance,
		MaxAgeSeconds: o.Promotion.MaxAgeSeconds,
		MinConfidence: o.Promotion.MinConfidence,
		InferTypes:    o.Promotion.InferTypes,
		BatchSize:     o.Promotion.BatchSize,
	}
}

// Graphs converts o.StandardGraphs into NamedGraph values.
func (o EngineOptions) Graphs() []ltm.NamedGraph {
	graphs := make([]ltm.NamedGraph, len(o.StandardGraphs))
	for i, g := range o.StandardGraphs {
		graphs[i] = ltm.NamedGraph(g)
	}
	return graphs
}

// ParseSourceType validates and normalizes a source type string, mirroring
// the teacher's own ParseConfigType.
func ParseSourceType(s string) (SourceType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "file", "":
		return SourceFile, nil
	case "consul":
		return SourceConsul, nil
	case "etcd":
		return SourceEtcd, nil
	default:
		return "", fmt.Errorf("engineconfig: invalid source type %q (valid: file, consul, etcd)", s)
	}
}
