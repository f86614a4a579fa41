// Configuration for the ntfsmon tool. All settings have defaults so
// the config file is optional; command line flags override it. The
// yaml decoder takes its field names from the json tags.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Velocidex/yaml/v2"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"www.velocidex.com/golang/ntfsmon/parser"
)

var validate = validator.New()

type Config struct {
	Logging LoggingConfig `json:"logging"`
	USN     USNConfig     `json:"usn"`
	MFT     MFTConfig     `json:"mft"`
	Metrics MetricsConfig `json:"metrics"`
}

type LoggingConfig struct {
	Level  string `json:"level" validate:"required,oneof=off error warn info debug trace Off Error Warn Info Debug Trace"`
	Format string `json:"format" validate:"required,oneof=text json"`
}

type USNConfig struct {
	// Device path of the volume, e.g. \\.\C:
	Volume string `json:"volume"`

	Historical     bool `json:"historical"`
	Resume         bool `json:"resume"`
	EnumeratePaths bool `json:"enumerate_paths"`

	// Reason names separated by | or ,. Empty means all reasons.
	ReasonMask string `json:"reason_mask"`

	PathCacheSize     int           `json:"path_cache_size" validate:"gt=0"`
	MaxDirectoryDepth int           `json:"max_directory_depth" validate:"gt=0"`
	PollInterval      time.Duration `json:"poll_interval" validate:"gt=0"`
	OutputBuffer      int           `json:"output_buffer" validate:"gte=0"`

	// Directory of the checkpoint store. Empty disables
	// checkpoints.
	CheckpointPath string `json:"checkpoint_path"`
}

type MFTConfig struct {
	Pretty bool `json:"pretty"`
}

type MetricsConfig struct {
	// host:port to serve /metrics on. Empty disables metrics.
	BindAddress string `json:"bind_address" validate:"omitempty,hostname_port"`
}

func GetDefaultConfig() *Config {
	options := parser.GetDefaultOptions()

	return &Config{
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
		USN: USNConfig{
			PathCacheSize:     options.PathCacheSize,
			MaxDirectoryDepth: options.MaxDirectoryDepth,
			PollInterval:      100 * time.Millisecond,
			OutputBuffer:      100,
		},
	}
}

// LoadConfig reads the config file over the defaults. An empty
// filename returns the defaults.
func LoadConfig(filename string) (*Config, error) {
	result := GetDefaultConfig()
	if filename == "" {
		return result, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "LoadConfig")
	}

	err = yaml.UnmarshalStrict(data, result)
	if err != nil {
		return nil, errors.Wrap(err, "LoadConfig "+filename)
	}

	return result, Validate(result)
}

func Validate(config *Config) error {
	err := validate.Struct(config)
	if err != nil {
		return formatValidationError(err)
	}

	_, err = config.USN.ReasonMaskValue()
	return err
}

func formatValidationError(err error) error {
	validation_errors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	messages := []string{}
	for _, e := range validation_errors {
		messages = append(messages, fmt.Sprintf("%v: failed %v=%v (got %v)",
			e.Namespace(), e.Tag(), e.Param(), e.Value()))
	}
	return fmt.Errorf("Invalid config: %v", strings.Join(messages, ", "))
}

// ReasonMaskValue parses the reason mask names.
func (self USNConfig) ReasonMaskValue() (uint32, error) {
	if self.ReasonMask == "" {
		return parser.DEFAULT_REASON_MASK, nil
	}

	mask, ok := parser.ParseReasonMask(self.ReasonMask)
	if !ok {
		return 0, fmt.Errorf("Invalid config: unknown reason in %q", self.ReasonMask)
	}
	return mask, nil
}

func (self USNConfig) ParserOptions() parser.Options {
	options := parser.GetDefaultOptions()
	options.PathCacheSize = self.PathCacheSize
	options.MaxDirectoryDepth = self.MaxDirectoryDepth
	return options
}
