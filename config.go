package wmedium

//
// Configuration loading
//

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrLinkSourceConflict indicates that more than one link-quality
// source appears in the configuration.
var ErrLinkSourceConflict = errors.New("wmedium: specify one of links/error_probs/path_loss")

// IfacesConfig describes the simulated radios and, optionally, the
// explicit link qualities between them.
type IfacesConfig struct {
	// IDs lists the station MAC addresses; it defines N and the
	// station index order.
	IDs []string `yaml:"ids"`

	// Links optionally lists (i, j, snr_dB) triples; assignment is
	// symmetric.
	Links [][]int `yaml:"links"`

	// ErrorProbs is optionally the full N x N error-probability
	// matrix; the diagonal is ignored and the upper triangle is
	// authoritative.
	ErrorProbs [][]float64 `yaml:"error_probs"`
}

// PathLossConfig derives link SNR from station geometry.
type PathLossConfig struct {
	// Positions lists one (x, y) pair in meters per station.
	Positions [][]float64 `yaml:"positions"`

	// TXPowers lists one transmit power in dBm per station.
	TXPowers []float64 `yaml:"tx_powers"`

	// ModelParams names the path loss model and its parameters,
	// e.g. ["log_distance", 3.5, 0.0].
	ModelParams []any `yaml:"model_params"`
}

// ModelConfig tunes the medium model.
type ModelConfig struct {
	// FadingCoefficient bounds the random per-transmission fading
	// penalty in dB; zero disables fading.
	FadingCoefficient int `yaml:"fading_coefficient"`
}

// InterferenceConfig tunes interference bookkeeping.
type InterferenceConfig struct {
	// Enabled turns interference modeling on.
	Enabled bool `yaml:"enabled"`

	// DeafenReceivers preserves the historical behavior where
	// recording interference for a frame suppresses its reception;
	// set it to false for the intuitive semantics. Unset means true.
	DeafenReceivers *bool `yaml:"deafen_receivers"`
}

// Config is the parsed configuration file.
type Config struct {
	// Ifaces describes the radios.
	Ifaces IfacesConfig `yaml:"ifaces"`

	// PathLoss optionally derives SNR from geometry.
	PathLoss *PathLossConfig `yaml:"path_loss"`

	// Model tunes the medium model.
	Model ModelConfig `yaml:"model"`

	// Interference tunes interference bookkeeping.
	Interference InterferenceConfig `yaml:"interference"`

	// Filters lists frame-drop rules in [ParseFilter] syntax.
	Filters []string `yaml:"filters"`
}

// LoadConfig reads and validates a configuration file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("wmedium: %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks the structural rules the engine depends on.
func (cfg *Config) validate() error {
	count := len(cfg.Ifaces.IDs)
	if count == 0 {
		return ErrNoStations
	}

	sources := 0
	if len(cfg.Ifaces.Links) > 0 {
		sources++
	}
	if len(cfg.Ifaces.ErrorProbs) > 0 {
		sources++
	}
	if cfg.PathLoss != nil {
		sources++
	}
	if sources > 1 {
		return ErrLinkSourceConflict
	}

	for _, link := range cfg.Ifaces.Links {
		if len(link) != 3 {
			return fmt.Errorf("wmedium: invalid link %v: expected (int,int,int)", link)
		}
		if link[0] < 0 || link[0] >= count || link[1] < 0 || link[1] >= count {
			return fmt.Errorf("wmedium: invalid link %v: index out of range", link)
		}
	}

	if len(cfg.Ifaces.ErrorProbs) > 0 {
		if len(cfg.Ifaces.ErrorProbs) != count {
			return fmt.Errorf("wmedium: specify %d error probability rows", count)
		}
		for _, row := range cfg.Ifaces.ErrorProbs {
			if len(row) != count {
				return fmt.Errorf("wmedium: specify %d error probabilities per row", count)
			}
		}
	}

	if cfg.PathLoss != nil {
		if len(cfg.PathLoss.Positions) != count {
			return fmt.Errorf("wmedium: specify %d positions", count)
		}
		for _, position := range cfg.PathLoss.Positions {
			if len(position) != 2 {
				return fmt.Errorf("wmedium: invalid position: expected (double,double)")
			}
		}
		if len(cfg.PathLoss.TXPowers) != count {
			return fmt.Errorf("wmedium: specify %d tx_powers", count)
		}
		if _, err := cfg.PathLoss.model(); err != nil {
			return err
		}
	}

	return nil
}

// model parses the path loss model parameters.
func (plc *PathLossConfig) model() (*logDistanceModel, error) {
	if len(plc.ModelParams) == 0 {
		return nil, fmt.Errorf("wmedium: no model_params found in path_loss")
	}
	name, ok := plc.ModelParams[0].(string)
	if !ok || name != "log_distance" {
		return nil, fmt.Errorf("wmedium: no path loss model found")
	}
	if len(plc.ModelParams) < 3 {
		return nil, fmt.Errorf("wmedium: log distance path loss model requires two parameters")
	}
	exponent, ok := asFloat(plc.ModelParams[1])
	if !ok {
		return nil, fmt.Errorf("wmedium: invalid path loss exponent")
	}
	xg, ok := asFloat(plc.ModelParams[2])
	if !ok {
		return nil, fmt.Errorf("wmedium: invalid path loss Xg")
	}
	return &logDistanceModel{exponent: exponent, xg: xg}, nil
}

// asFloat widens the numeric types the YAML decoder may produce.
func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

// applyLinkSource configures the link matrices from whichever source
// the configuration chose. With no source every link keeps the
// default SNR.
func applyLinkSource(cfg *Config, reg *Registry, m *linkMatrices) error {
	if len(cfg.Ifaces.ErrorProbs) > 0 {
		m.enableErrProb()
		for start := 0; start < m.numStations; start++ {
			for end := start + 1; end < m.numStations; end++ {
				m.setErrProb(start, end, cfg.Ifaces.ErrorProbs[start][end])
			}
		}
		return nil
	}

	for _, link := range cfg.Ifaces.Links {
		m.setLinkSNR(link[0], link[1], link[2])
	}

	if cfg.PathLoss != nil {
		model, err := cfg.PathLoss.model()
		if err != nil {
			return err
		}
		reg.ForEach(func(sta *Station) {
			sta.X = cfg.PathLoss.Positions[sta.Index][0]
			sta.Y = cfg.PathLoss.Positions[sta.Index][1]
			sta.TXPower = int(cfg.PathLoss.TXPowers[sta.Index])
		})
		applyPathLoss(model, reg, m)
	}

	return nil
}
