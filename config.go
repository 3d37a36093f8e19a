package mapcompare

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Environment variables read by Settings.ApplyEnvOverrides.
const (
	EnvLensRate  = "MAPCOMPARE_LENS_RATE"
	EnvRefreshMS = "MAPCOMPARE_REFRESH_MS"
	EnvBlend     = "MAPCOMPARE_BLEND"
)

// Default artifact names. Hosts that persist projects recognize the compare
// artifacts by these names.
const (
	DefaultGroupName        = "QMapCompare_Group"
	DefaultMaskLayerName    = "QMapCompareMask"
	DefaultBackgroundName   = "QMapCompareBackground"
	DefaultGeographicSuffix = "_geographic"
	DefaultMirrorTitle      = "QMapCompare Mirror"
	DefaultMirrorTheme      = "QMapCompare Mirror"
	DefaultLensRefreshMS    = 200
)

const maxLensRefreshMS = 60_000

// Settings tune the coordinator. The zero value is not usable; start from
// DefaultSettings.
type Settings struct {
	GroupName           string  `toml:"group_name" yaml:"group_name" json:"group_name"`
	MaskLayerName       string  `toml:"mask_layer_name" yaml:"mask_layer_name" json:"mask_layer_name"`
	BackgroundLayerName string  `toml:"background_layer_name" yaml:"background_layer_name" json:"background_layer_name"`
	GeographicSuffix    string  `toml:"geographic_suffix" yaml:"geographic_suffix" json:"geographic_suffix"`
	LensSizeRate        float64 `toml:"lens_size_rate" yaml:"lens_size_rate" json:"lens_size_rate"`
	LensRefreshMS       int     `toml:"lens_refresh_ms" yaml:"lens_refresh_ms" json:"lens_refresh_ms"`
	BlendConvention     string  `toml:"blend_convention" yaml:"blend_convention" json:"blend_convention"`
	MirrorTitle         string  `toml:"mirror_title" yaml:"mirror_title" json:"mirror_title"`
	MirrorTheme         string  `toml:"mirror_theme" yaml:"mirror_theme" json:"mirror_theme"`
	LogLevel            string  `toml:"log_level" yaml:"log_level" json:"log_level"`
}

// DefaultSettings returns the stock configuration.
func DefaultSettings() Settings {
	return Settings{
		GroupName:           DefaultGroupName,
		MaskLayerName:       DefaultMaskLayerName,
		BackgroundLayerName: DefaultBackgroundName,
		GeographicSuffix:    DefaultGeographicSuffix,
		LensSizeRate:        DefaultLensSizeRate,
		LensRefreshMS:       DefaultLensRefreshMS,
		BlendConvention:     ConventionDestinationIn.String(),
		MirrorTitle:         DefaultMirrorTitle,
		MirrorTheme:         DefaultMirrorTheme,
		LogLevel:            "info",
	}
}

// LensRefreshInterval returns the lens auto-refresh period.
func (s Settings) LensRefreshInterval() time.Duration {
	return time.Duration(s.LensRefreshMS) * time.Millisecond
}

// Convention returns the parsed blend convention, falling back to
// destination-in for unparseable values. Validate reports those.
func (s Settings) Convention() BlendConvention {
	c, _ := ParseBlendConvention(s.BlendConvention)
	return c
}

// Names returns the artifact names for the group manager.
func (s Settings) Names() ArtifactNames {
	return ArtifactNames{
		Group:            s.GroupName,
		Mask:             s.MaskLayerName,
		Background:       s.BackgroundLayerName,
		GeographicSuffix: s.GeographicSuffix,
	}
}

// Validate checks the settings for consistency. Every failure wraps
// ErrInvalidSettings.
func (s Settings) Validate() error {
	var errs []error
	for field, v := range map[string]string{
		"group_name":            s.GroupName,
		"mask_layer_name":       s.MaskLayerName,
		"background_layer_name": s.BackgroundLayerName,
		"geographic_suffix":     s.GeographicSuffix,
		"mirror_title":          s.MirrorTitle,
		"mirror_theme":          s.MirrorTheme,
	} {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s must not be empty", field))
		}
	}
	if s.MaskLayerName != "" && s.MaskLayerName == s.BackgroundLayerName {
		errs = append(errs, errors.New("mask_layer_name and background_layer_name must differ"))
	}
	if s.LensSizeRate <= 0 || s.LensSizeRate > 1 {
		errs = append(errs, fmt.Errorf("lens_size_rate %v out of range (0, 1]", s.LensSizeRate))
	}
	if s.LensRefreshMS <= 0 || s.LensRefreshMS > maxLensRefreshMS {
		errs = append(errs, fmt.Errorf("lens_refresh_ms %d out of range (0, %d]", s.LensRefreshMS, maxLensRefreshMS))
	}
	if _, err := ParseBlendConvention(s.BlendConvention); err != nil {
		errs = append(errs, err)
	}
	if s.LogLevel != "" {
		if _, _, ok := ParseLogLevel(s.LogLevel); !ok {
			errs = append(errs, fmt.Errorf("unknown log_level %q", s.LogLevel))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
}

// ApplyEnvOverrides replaces settings with values from MAPCOMPARE_*
// environment variables. Malformed values are ignored.
func (s *Settings) ApplyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv(EnvLensRate)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.LensSizeRate = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvRefreshMS)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.LensRefreshMS = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBlend)); v != "" {
		s.BlendConvention = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		s.LogLevel = v
	}
}

// LoadSettings reads settings from path, applies environment overrides and
// validates the result. The format follows the extension: .toml, .yaml/.yml
// or .json; anything else is auto-detected. A missing file yields the
// defaults.
func LoadSettings(path string) (Settings, error) {
	s, err := loadSettingsFile(path)
	if err != nil {
		return Settings{}, err
	}
	s.ApplyEnvOverrides()
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func loadSettingsFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultSettings(), nil
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}
	return decodeSettings(data, filepath.Ext(path))
}

// decodeSettings decodes data over the defaults, so omitted keys keep their
// default values.
func decodeSettings(data []byte, ext string) (Settings, error) {
	s := DefaultSettings()
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), &s); err != nil {
			return Settings{}, fmt.Errorf("decode TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("decode YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &s); err != nil {
			return Settings{}, fmt.Errorf("decode JSON: %w", err)
		}
	default:
		return autoDetectSettings(data)
	}
	return s, nil
}

// autoDetectSettings tries TOML, then JSON, then YAML.
func autoDetectSettings(data []byte) (Settings, error) {
	s := DefaultSettings()
	if _, err := toml.Decode(string(data), &s); err == nil {
		return s, nil
	}
	s = DefaultSettings()
	if err := json.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	s = DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err == nil {
		return s, nil
	}
	return Settings{}, errors.New("parse settings: unrecognized format")
}

// EncodeTOML writes s as TOML, e.g. to seed a settings file.
func (s Settings) EncodeTOML() ([]byte, error) {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(s); err != nil {
		return nil, fmt.Errorf("encode TOML: %w", err)
	}
	return []byte(b.String()), nil
}
