// Package profile loads harness profiles: optional files holding defaults for the
// run settings, so a test directory can carry its own conventions.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"
)

// Profile holds run defaults. Zero values mean "not set", except LogMarker where an
// explicit empty string disables log line detection.
type Profile struct {
	Convention   string   `yaml:"convention" toml:"convention"`
	Timeout      string   `yaml:"timeout" toml:"timeout"`
	Args         []string `yaml:"args" toml:"args"`
	LogMarker    *string  `yaml:"log_marker" toml:"log_marker"`
	SinkDir      string   `yaml:"sink_dir" toml:"sink_dir"`
	EmptyPolicy  string   `yaml:"empty_policy" toml:"empty_policy"`
	FragmentMode string   `yaml:"fragment_mode" toml:"fragment_mode"`
	RunInterval  string   `yaml:"run_interval" toml:"run_interval"`
	LogDir       string   `yaml:"logdir" toml:"logdir"`

	timeout     time.Duration
	runInterval time.Duration
}

// TimeoutDuration returns the parsed timeout, zero if unset.
func (p *Profile) TimeoutDuration() time.Duration {
	return p.timeout
}

// RunIntervalDuration returns the parsed run interval, zero if unset.
func (p *Profile) RunIntervalDuration() time.Duration {
	return p.runInterval
}

// Load reads a profile, picking the format from the file extension
// (.yaml/.yml or .toml). Relative sink_dir and logdir are resolved against
// the profile's directory.
func Load(path string) (*Profile, error) {
	log.Debug("Reading profile", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	var p Profile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing profile: %w", err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &p)
		if err != nil {
			return nil, fmt.Errorf("parsing profile: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("parsing profile: unknown keys %v", undecoded)
		}
	default:
		return nil, fmt.Errorf("unsupported profile format %q, expected .yaml, .yml or .toml", ext)
	}

	if err := p.resolve(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) resolve(baseDir string) error {
	var err error
	if p.Timeout != "" {
		if p.timeout, err = time.ParseDuration(p.Timeout); err != nil {
			return fmt.Errorf("invalid profile timeout %q: %w", p.Timeout, err)
		}
		if p.timeout <= 0 {
			return fmt.Errorf("invalid profile timeout %q: must be positive", p.Timeout)
		}
	}
	if p.RunInterval != "" {
		if p.runInterval, err = time.ParseDuration(p.RunInterval); err != nil {
			return fmt.Errorf("invalid profile run_interval %q: %w", p.RunInterval, err)
		}
	}
	if p.SinkDir != "" && !filepath.IsAbs(p.SinkDir) {
		p.SinkDir = filepath.Join(baseDir, p.SinkDir)
	}
	if p.LogDir != "" && !filepath.IsAbs(p.LogDir) {
		p.LogDir = filepath.Join(baseDir, p.LogDir)
	}
	return nil
}
