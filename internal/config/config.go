// Package config loads the flags and optional YAML overlay that configure
// a raceloom run, per spec §6's recognized configuration options plus the
// ambient paths a runnable CLI needs (model/property/engine/oracle
// locations) that the core analysis contract itself has no opinion about.
package config

import (
	"flag"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"raceloom/internal/raceerr"
)

const (
	StrategyDFS  = "dfs"
	StrategyBFS  = "bfs"
	StrategyPBFS = "pbfs"
)

var validStrategies = map[string]bool{StrategyDFS: true, StrategyBFS: true, StrategyPBFS: true}

// Options is the spec §6 configuration surface: depth bound, worker-thread
// count, enumeration strategy, and a verbosity flag.
type Options struct {
	Depth    int    `mapstructure:"depth" yaml:"depth"`
	Threads  int    `mapstructure:"threads" yaml:"threads"`
	Strategy string `mapstructure:"strategy" yaml:"strategy"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose"`
}

// Config is the full set of values a cmd/raceloom run needs: the spec's
// Options plus the ambient file locations the CLI wires into the engine,
// oracle, and model loaders.
type Config struct {
	Options `mapstructure:",squash" yaml:",inline"`

	// yaml tags are lowercase because viper lowercases every key it reads,
	// and overlayYaml decodes viper's settings with yaml.v3.
	ModelPath      string `mapstructure:"modelPath" yaml:"modelpath"`
	PropertiesPath string `mapstructure:"propertiesPath" yaml:"propertiespath"`
	OutputDir      string `mapstructure:"outputDir" yaml:"outputdir"`
	EngineDriver   string `mapstructure:"engineDriver" yaml:"enginedriver"`
	EngineModule   string `mapstructure:"engineModule" yaml:"enginemodule"`
	OracleTool     string `mapstructure:"oracleTool" yaml:"oracletool"`
	LiveStatsAddr  string `mapstructure:"liveStatsAddr" yaml:"livestatsaddr"`
}

// Validate checks the spec's invariants on the configuration options
// (depth >= 0, threads >= 1, strategy recognized).
func (c *Config) Validate() error {
	if c.Depth < 0 {
		return raceerr.NewCLIError("depth must be >= 0, got %d", c.Depth)
	}
	if c.Threads < 1 {
		return raceerr.NewCLIError("threads must be >= 1, got %d", c.Threads)
	}
	if !validStrategies[c.Strategy] {
		return raceerr.NewCLIError("strategy must be one of dfs/bfs/pbfs, got %q", c.Strategy)
	}
	if c.ModelPath == "" {
		return raceerr.NewCLIError("model path is required")
	}
	return nil
}

// flagValues holds the parsed flags before they're copied into a Config;
// Load always builds a fresh flag.FlagSet so repeated calls (e.g. in tests)
// never collide with flag.CommandLine or each other.
type flagValues struct {
	depth          *int
	threads        *int
	strategy       *string
	verbose        *bool
	modelPath      *string
	propertiesPath *string
	outputDir      *string
	engineDriver   *string
	engineModule   *string
	oracleTool     *string
	liveStatsAddr  *string
	yamlPath       *string
}

func registerFlags(fs *flag.FlagSet) *flagValues {
	return &flagValues{
		depth:          fs.Int("depth", 3, "maximum trace depth to enumerate"),
		threads:        fs.Int("threads", 1, "worker shard count for the pbfs strategy"),
		strategy:       fs.String("strategy", StrategyDFS, "enumeration strategy: dfs, bfs, or pbfs"),
		verbose:        fs.Bool("verbose", false, "enable verbose logging"),
		modelPath:      fs.String("model", "", "path to the JSON network model"),
		propertiesPath: fs.String("properties", "", "path to the JSON safety-property set"),
		outputDir:      fs.String("out", ".", "directory to write race files and the stats report into"),
		engineDriver:   fs.String("engine-driver", "", "path to the Maude driver subprocess"),
		engineModule:   fs.String("engine-module", "", "path to the model's compiled Maude module"),
		oracleTool:     fs.String("oracle-tool", "", "path to the KATch oracle binary"),
		liveStatsAddr:  fs.String("live", "", "address to serve live stats over websocket, empty disables it"),
		yamlPath:       fs.String("config", "", "optional YAML file overlaying these flags"),
	}
}

// Load parses args against a fresh FlagSet (so repeated calls, e.g. in
// tests, don't collide with flag.CommandLine) and layers an optional YAML
// file on top, matching the teacher's FromYaml two-stage viper/yaml.v3
// unmarshal: viper reads the raw document, yaml.v3 re-marshals/unmarshals
// it into Config so only the keys the file actually sets override the
// flag defaults.
func Load(name string, args []string) (*Config, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fv := registerFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, raceerr.NewCLIError("parsing flags: %v", err)
	}

	cfg := &Config{
		Options: Options{
			Depth:    *fv.depth,
			Threads:  *fv.threads,
			Strategy: *fv.strategy,
			Verbose:  *fv.verbose,
		},
		ModelPath:      *fv.modelPath,
		PropertiesPath: *fv.propertiesPath,
		OutputDir:      *fv.outputDir,
		EngineDriver:   *fv.engineDriver,
		EngineModule:   *fv.engineModule,
		OracleTool:     *fv.oracleTool,
		LiveStatsAddr:  *fv.liveStatsAddr,
	}

	if *fv.yamlPath != "" {
		if err := overlayYaml(cfg, *fv.yamlPath); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func overlayYaml(cfg *Config, path string) error {
	vp := viper.New()
	vp.SetConfigFile(filepath.Base(path))
	vp.SetConfigType("yaml")
	vp.AddConfigPath(filepath.Dir(path))
	if err := vp.ReadInConfig(); err != nil {
		return raceerr.NewCLIError("reading config %q: %v", path, err)
	}

	var raw map[string]interface{}
	if err := vp.Unmarshal(&raw); err != nil {
		return raceerr.NewCLIError("unmarshalling config %q: %v", path, err)
	}

	spec, err := yaml.Marshal(raw)
	if err != nil {
		return raceerr.NewCLIError("re-marshalling config %q: %v", path, err)
	}
	if err := yaml.Unmarshal(spec, cfg); err != nil {
		return raceerr.NewCLIError("decoding config %q: %v", path, err)
	}
	return nil
}
