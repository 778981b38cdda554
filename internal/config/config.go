// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/pihamlab/morselink/internal/gpio"
	"github.com/pihamlab/morselink/internal/morse"
)

const (
	AppName       = "morselink"
	ConfigType    = "yaml"
	DefaultConfig = `# Morselink Configuration

# Hardware
simulation: false       # Run without GPIO hardware (line reads low, writes are recorded)
transmit_pin: 17        # BCM number of the output pin
receive_pin: 18         # BCM number of the input pin

# Morse timing (milliseconds). Both endpoints must agree on these.
dot_ms: 200             # Dot pulse length
dash_ms: 600            # Dash pulse length
intra_char_gap_ms: 200  # Gap between elements of one character
inter_char_gap_ms: 600  # Gap between characters; completes a pending character on receive
inter_word_gap_ms: 1400 # Gap between words; completes a pending word on receive
threshold_ratio: 0.7    # Pulse shorter than dash*ratio classifies as a dot
debounce_ms: 50         # Input edges closer than this collapse into one
poll_interval_ms: 10    # Input line sampling interval

# Web API
host: "0.0.0.0"         # Listen address
port: 5000              # Listen port

# Sidetone feedback
sidetone_enabled: true  # Audible tone while the output line is high
tone_frequency: 600     # Sidetone frequency in Hz
sample_rate: 48000      # Sidetone sample rate in Hz

# Message history
history_path: "morselink.db"  # SQLite file; empty disables history
history_limit: 100            # Default number of messages served by the API

# Output
debug: false            # Enable debug output
`
)

// Settings holds all application configuration
type Settings struct {
	// Hardware
	Simulation  bool  `mapstructure:"simulation"`
	TransmitPin uint8 `mapstructure:"transmit_pin"`
	ReceivePin  uint8 `mapstructure:"receive_pin"`

	// Morse timing
	DotMs          int     `mapstructure:"dot_ms"`
	DashMs         int     `mapstructure:"dash_ms"`
	IntraCharGapMs int     `mapstructure:"intra_char_gap_ms"`
	InterCharGapMs int     `mapstructure:"inter_char_gap_ms"`
	InterWordGapMs int     `mapstructure:"inter_word_gap_ms"`
	ThresholdRatio float64 `mapstructure:"threshold_ratio"`
	DebounceMs     int     `mapstructure:"debounce_ms"`
	PollIntervalMs int     `mapstructure:"poll_interval_ms"`

	// Web API
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	// Sidetone feedback
	SidetoneEnabled bool    `mapstructure:"sidetone_enabled"`
	ToneFrequency   float64 `mapstructure:"tone_frequency"`
	SampleRate      uint32  `mapstructure:"sample_rate"`

	// Message history
	HistoryPath  string `mapstructure:"history_path"`
	HistoryLimit int    `mapstructure:"history_limit"`

	// Output
	Debug bool `mapstructure:"debug"`
}

// Init initializes Viper with defaults and config file.
// Config file search order: current directory, then ~/.config/morselink/
func Init() error {
	// Set defaults
	viper.SetDefault("simulation", false)
	viper.SetDefault("transmit_pin", 17)
	viper.SetDefault("receive_pin", 18)
	viper.SetDefault("dot_ms", 200)
	viper.SetDefault("dash_ms", 600)
	viper.SetDefault("intra_char_gap_ms", 200)
	viper.SetDefault("inter_char_gap_ms", 600)
	viper.SetDefault("inter_word_gap_ms", 1400)
	viper.SetDefault("threshold_ratio", morse.DefaultThresholdRatio)
	viper.SetDefault("debounce_ms", 50)
	viper.SetDefault("poll_interval_ms", 10)
	viper.SetDefault("host", "0.0.0.0")
	viper.SetDefault("port", 5000)
	viper.SetDefault("sidetone_enabled", true)
	viper.SetDefault("tone_frequency", 600)
	viper.SetDefault("sample_rate", 48000)
	viper.SetDefault("history_path", "morselink.db")
	viper.SetDefault("history_limit", 100)
	viper.SetDefault("debug", false)

	// Support both config.yaml and .config.yaml
	viper.SetConfigType(ConfigType)

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		// Try config.yaml as fallback
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	// Read config file - if not found, create default in XDG config dir
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// No config found - create default in ~/.config/morselink/
			xdgConfigPath := filepath.Join(configDir, AppName)
			if err = ensureConfigExists(xdgConfigPath); err != nil {
				return err
			}
			// Read the newly created config
			if err = viper.ReadInConfig(); err != nil {
				return fmt.Errorf("read config: %w", err)
			}
		} else {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	if s.TransmitPin == s.ReceivePin {
		errs = append(errs, fmt.Errorf("transmit_pin and receive_pin must differ, both are %d", s.TransmitPin))
	}

	// Timing invariants live on the profile
	if err := s.Profile().Validate(); err != nil {
		errs = append(errs, err)
	}

	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", s.Port))
	}
	if s.ToneFrequency < 100 || s.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("tone_frequency must be between 100 and 3000 Hz, got %v", s.ToneFrequency))
	}
	if s.SampleRate < 8000 || s.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("sample_rate must be between 8000 and 192000 Hz, got %d", s.SampleRate))
	}
	if s.HistoryLimit < 1 || s.HistoryLimit > 10000 {
		errs = append(errs, fmt.Errorf("history_limit must be between 1 and 10000, got %d", s.HistoryLimit))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Profile returns the Morse timing profile described by the settings.
func (s *Settings) Profile() morse.Profile {
	return morse.Profile{
		Dot:            time.Duration(s.DotMs) * time.Millisecond,
		Dash:           time.Duration(s.DashMs) * time.Millisecond,
		IntraCharGap:   time.Duration(s.IntraCharGapMs) * time.Millisecond,
		InterCharGap:   time.Duration(s.InterCharGapMs) * time.Millisecond,
		InterWordGap:   time.Duration(s.InterWordGapMs) * time.Millisecond,
		ThresholdRatio: s.ThresholdRatio,
		Debounce:       time.Duration(s.DebounceMs) * time.Millisecond,
		PollInterval:   time.Duration(s.PollIntervalMs) * time.Millisecond,
	}
}

// Pins returns the GPIO pin assignment described by the settings.
func (s *Settings) Pins() gpio.Pins {
	return gpio.Pins{Transmit: s.TransmitPin, Receive: s.ReceivePin}
}
