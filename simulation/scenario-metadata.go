package simulation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// MechanismConfig names a mechanism and its numeric parameters. Composite
// mechanisms (ActiveOnly, Any, All) take their parts from Children.
type MechanismConfig struct {
	Type        string             `yaml:"type" validate:"required"`
	Orientation string             `yaml:"orientation,omitempty" validate:"omitempty,oneof=IN OUT UND MUTUAL in out und mutual UNDIRECTED undirected"`
	Params      map[string]float64 `yaml:"params,omitempty"`
	Children    []MechanismConfig  `yaml:"children,omitempty" validate:"dive"`
}

func (c MechanismConfig) Float(name string, def float64) float64 {
	if v, ok := c.Params[name]; ok {
		return v
	}
	return def
}

func (c MechanismConfig) Int(name string, def int) int {
	if v, ok := c.Params[name]; ok {
		return int(v)
	}
	return def
}

type ProtocolConfig struct {
	Selection   MechanismConfig `yaml:"selection"`
	Propagation MechanismConfig `yaml:"propagation"`
	Update      MechanismConfig `yaml:"update"`
	Expiration  MechanismConfig `yaml:"expiration"`
	Stop        MechanismConfig `yaml:"stop"`
}

type NetworkConfig struct {
	Type              string  `yaml:"type" validate:"oneof=Random SmallWorld File"`
	NodeCount         int     `yaml:"node_count" validate:"required_unless=Type File,gte=0"`
	NodeFollowCount   int     `yaml:"node_follow_count" validate:"gte=0"`
	RewireProbability float64 `yaml:"rewire_probability" validate:"gte=0,lte=1"`
	DatasetPath       string  `yaml:"dataset_path,omitempty" validate:"required_if=Type File"`
}

type ScenarioMetadata struct {
	UniqueName string `yaml:"unique_name" validate:"required"`

	Seed            int64  `yaml:"seed"`
	Workers         int    `yaml:"workers" validate:"gte=0"`
	InvariantChecks bool   `yaml:"invariant_checks"`
	LogLevel        string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	MaxSimulationStep int `yaml:"max_simulation_step" validate:"gte=1"`
	// seconds between two snapshots, 0 only dumps at the end
	SaveInterval     int `yaml:"save_interval" validate:"gte=0"`
	MaxSnapshotCount int `yaml:"max_snapshot_count" validate:"gte=0"`

	Network       NetworkConfig  `yaml:"network"`
	PiecesPerUser int            `yaml:"pieces_per_user" validate:"gte=0"`
	Protocol      ProtocolConfig `yaml:"protocol"`
}

func DefaultScenarioMetadata() *ScenarioMetadata {
	return &ScenarioMetadata{
		UniqueName:        "default",
		Seed:              42,
		LogLevel:          "info",
		MaxSimulationStep: 1000,
		SaveInterval:      300,
		MaxSnapshotCount:  3,
		Network: NetworkConfig{
			Type:            "Random",
			NodeCount:       500,
			NodeFollowCount: 15,
		},
		PiecesPerUser: 1,
		Protocol:      DefaultProtocolConfig(),
	}
}

func DefaultProtocolConfig() ProtocolConfig {
	return ProtocolConfig{
		Selection:   MechanismConfig{Type: "Count", Params: map[string]float64{"own": -1, "received": 1, "repropagated": 0}},
		Propagation: MechanismConfig{Type: "Neighborhood", Orientation: "OUT"},
		Update:      MechanismConfig{Type: "Newest"},
		Expiration:  MechanismConfig{Type: "Infinite"},
		Stop: MechanismConfig{Type: "Any", Children: []MechanismConfig{
			{Type: "NoMoreNew"},
			{Type: "NumIter", Params: map[string]float64{"limit": 100}},
		}},
	}
}

// fillDefaults puts the default mechanism in every slot the file left empty
func (p *ProtocolConfig) fillDefaults() {
	def := DefaultProtocolConfig()
	for _, slot := range []struct{ dst, src *MechanismConfig }{
		{&p.Selection, &def.Selection},
		{&p.Propagation, &def.Propagation},
		{&p.Update, &def.Update},
		{&p.Expiration, &def.Expiration},
		{&p.Stop, &def.Stop},
	} {
		if slot.dst.Type == "" {
			*slot.dst = *slot.src
		}
	}
}

// LoadScenarioMetadata reads a YAML or JSON file on top of the defaults.
// JSON keys are the Go field names. Mechanisms are taken as a whole: a slot
// given in the file does not inherit default parameters.
func LoadScenarioMetadata(path string) (*ScenarioMetadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	metadata := DefaultScenarioMetadata()
	metadata.Protocol = ProtocolConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, metadata)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, metadata)
	default:
		return nil, fmt.Errorf("unsupported metadata format: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata file: %w", err)
	}
	metadata.Protocol.fillDefaults()
	return metadata, nil
}

const (
	EnvSeed     = "DIFFSIM_SEED"
	EnvWorkers  = "DIFFSIM_WORKERS"
	EnvLogLevel = "DIFFSIM_LOG_LEVEL"
)

// ApplyEnv overrides seed, workers and log level from the environment
func (m *ScenarioMetadata) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvSeed); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvSeed, err)
		}
		m.Seed = seed
	}
	if v, ok := os.LookupEnv(EnvWorkers); ok {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", EnvWorkers, err)
		}
		m.Workers = workers
	}
	if v, ok := os.LookupEnv(EnvLogLevel); ok {
		m.LogLevel = v
	}
	return nil
}

var validate = validator.New()

// Validate checks struct tags and mechanism names and reports every problem
func (m *ScenarioMetadata) Validate() error {
	var problems *multierror.Error

	if err := validate.Struct(m); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, e := range fieldErrors {
				problems = multierror.Append(problems, fmt.Errorf("%s failed on %q", e.Namespace(), e.Tag()))
			}
		} else {
			problems = multierror.Append(problems, err)
		}
	}

	p := m.Protocol
	problems = checkNames(problems, "selection", p.Selection, SELECTION_FACTORY)
	problems = checkNames(problems, "propagation", p.Propagation, PROPAGATION_FACTORY)
	problems = checkNames(problems, "update", p.Update, UPDATE_FACTORY)
	problems = checkNames(problems, "expiration", p.Expiration, EXPIRATION_FACTORY)
	problems = checkNames(problems, "stop", p.Stop, STOP_FACTORY)

	return problems.ErrorOrNil()
}

func checkNames[F any](problems *multierror.Error, kind string, cfg MechanismConfig, factory map[string]F) *multierror.Error {
	if _, ok := factory[cfg.Type]; !ok {
		problems = multierror.Append(problems, fmt.Errorf("unknown %s mechanism %q", kind, cfg.Type))
	}
	for _, child := range cfg.Children {
		problems = checkNames(problems, kind, child, factory)
	}
	return problems
}
