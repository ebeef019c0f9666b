package engine

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/grafana/dskit/flagext"
	"gopkg.in/yaml.v3"

	"github.com/JacekPliszka/polars/pkg/engine/planner/logical"
	"github.com/JacekPliszka/polars/pkg/engine/types"
)

// Config configures query execution.
type Config struct {
	// BatchSize is the number of rows scans read at a time.
	BatchSize int `yaml:"batch_size"`

	// ChunkSize is the number of rows or groups one worker processes at a
	// time.
	ChunkSize int `yaml:"chunk_size"`

	// Workers bounds the number of goroutines a query runs chunks on.
	Workers int `yaml:"workers"`

	// SumNullPolicy is the result of summing a group without non-null
	// values: zero or null.
	SumNullPolicy string `yaml:"sum_null_policy"`

	MaxCrossJoinRows int  `yaml:"max_cross_join_rows"`
	PrefetchInputs   bool `yaml:"prefetch_inputs"`

	// PlanCacheSize is the number of optimized plans kept for reuse. Zero
	// disables the cache.
	PlanCacheSize int `yaml:"plan_cache_size"`

	Optimizer OptimizerConfig `yaml:"optimizer"`
}

// RegisterFlags registers the flags of cfg with f.
func (cfg *Config) RegisterFlags(f *flag.FlagSet) {
	cfg.RegisterFlagsWithPrefix("engine.", f)
}

// RegisterFlagsWithPrefix registers the flags of cfg with f, each name
// prefixed with prefix.
func (cfg *Config) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.IntVar(&cfg.BatchSize, prefix+"batch-size", logical.DefaultBatchSize, "Number of rows scans read at a time.")
	f.IntVar(&cfg.ChunkSize, prefix+"chunk-size", 4096, "Number of rows or groups a worker processes at a time.")
	f.IntVar(&cfg.Workers, prefix+"workers", runtime.GOMAXPROCS(0), "Maximum number of goroutines a query runs on.")
	f.StringVar(&cfg.SumNullPolicy, prefix+"sum-null-policy", types.SumNullAsZero.String(), "Result of summing a group without non-null values. One of zero, null.")
	f.IntVar(&cfg.MaxCrossJoinRows, prefix+"max-cross-join-rows", 0, "Maximum number of rows a cross join may produce. 0 means no limit.")
	f.BoolVar(&cfg.PrefetchInputs, prefix+"prefetch-inputs", false, "Read the inputs of unions concurrently.")
	f.IntVar(&cfg.PlanCacheSize, prefix+"plan-cache-size", 128, "Number of optimized query plans to cache. 0 disables the cache.")
	cfg.Optimizer.RegisterFlagsWithPrefix(prefix+"optimizer.", f)
}

// Validate returns an error if cfg holds invalid values.
func (cfg *Config) Validate() error {
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("invalid batch size %d, must be greater than 0", cfg.BatchSize)
	}
	if cfg.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size %d, must be greater than 0", cfg.ChunkSize)
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("invalid number of workers %d, must be greater than 0", cfg.Workers)
	}
	if cfg.MaxCrossJoinRows < 0 {
		return fmt.Errorf("invalid max cross join rows %d, must not be negative", cfg.MaxCrossJoinRows)
	}
	if cfg.PlanCacheSize < 0 {
		return fmt.Errorf("invalid plan cache size %d, must not be negative", cfg.PlanCacheSize)
	}
	if _, err := types.ParseSumNullPolicy(cfg.SumNullPolicy); err != nil {
		return err
	}
	return nil
}

func (cfg *Config) sumNullPolicy() types.SumNullPolicy {
	p, _ := types.ParseSumNullPolicy(cfg.SumNullPolicy)
	return p
}

// OptimizerConfig toggles the optimizer passes.
type OptimizerConfig struct {
	PredicatePushdown  bool `yaml:"predicate_pushdown"`
	ProjectionPushdown bool `yaml:"projection_pushdown"`
	SlicePushdown      bool `yaml:"slice_pushdown"`
	CSE                bool `yaml:"common_subexpression_elimination"`
}

func (cfg *OptimizerConfig) RegisterFlagsWithPrefix(prefix string, f *flag.FlagSet) {
	f.BoolVar(&cfg.PredicatePushdown, prefix+"predicate-pushdown", true, "Move filters towards the scans.")
	f.BoolVar(&cfg.ProjectionPushdown, prefix+"projection-pushdown", true, "Read only the columns a query uses.")
	f.BoolVar(&cfg.SlicePushdown, prefix+"slice-pushdown", true, "Move limits towards the scans.")
	f.BoolVar(&cfg.CSE, prefix+"common-subexpression-elimination", true, "Compute repeated subexpressions once.")
}

func (cfg OptimizerConfig) options() logical.OptimizerOptions {
	return logical.OptimizerOptions{
		PredicatePushdown:  cfg.PredicatePushdown,
		ProjectionPushdown: cfg.ProjectionPushdown,
		SlicePushdown:      cfg.SlicePushdown,
		CSE:                cfg.CSE,
	}
}

// DefaultConfig returns a Config holding the flag defaults.
func DefaultConfig() Config {
	var cfg Config
	flagext.DefaultValues(&cfg)
	return cfg
}

// LoadConfig reads a YAML config file. Options missing from the file keep
// their default values; unknown options are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	buf, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(buf))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}
