package tenant

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Feature flags understood by the dreamscape app.
const (
	FeatureGallery = "gallery"
	FeatureSharing = "sharing"
)

// DefaultAppIDValue is registered when no apps config file exists.
const DefaultAppIDValue = "dreamscape"

type AppConfig struct {
	AppID      string            `json:"app_id" yaml:"app_id"`
	AppName    string            `json:"app_name" yaml:"app_name"`
	Default    bool              `json:"default" yaml:"default"`
	AIProvider string            `json:"ai_provider" yaml:"ai_provider"`
	AIConfig   map[string]string `json:"ai_config" yaml:"ai_config"`
	Features   map[string]bool   `json:"features" yaml:"features"`
	Styles     []string          `json:"styles" yaml:"styles"`
}

// TextModel returns the configured text model, or fallback.
func (a *AppConfig) TextModel(fallback string) string {
	if m := a.AIConfig["text_model"]; m != "" {
		return m
	}
	return fallback
}

// ImageModel returns the configured image model, or fallback.
func (a *AppConfig) ImageModel(fallback string) string {
	if m := a.AIConfig["image_model"]; m != "" {
		return m
	}
	return fallback
}

type AppsFile struct {
	Apps []AppConfig `json:"apps" yaml:"apps"`
}

type Registry struct {
	mu        sync.RWMutex
	apps      map[string]*AppConfig
	defaultID string
}

func NewRegistry() *Registry {
	return &Registry{
		apps: make(map[string]*AppConfig),
	}
}

// DefaultApp is the single-tenant configuration used without an apps file.
func DefaultApp() *AppConfig {
	return &AppConfig{
		AppID:      DefaultAppIDValue,
		AppName:    "Dreamscape",
		Default:    true,
		AIProvider: "gemini",
		AIConfig:   map[string]string{},
		Features: map[string]bool{
			FeatureGallery: true,
			FeatureSharing: true,
		},
	}
}

// LoadFromFile reads the apps registry, as YAML for .yaml/.yml paths and
// JSON otherwise. A missing file yields a registry holding only DefaultApp.
func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		registry := NewRegistry()
		registry.Register(DefaultApp())
		return registry, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read apps config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

func Parse(data []byte) (*Registry, error) {
	var file AppsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse apps config: %w", err)
	}
	return fromFile(file)
}

func ParseYAML(data []byte) (*Registry, error) {
	var file AppsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse apps config: %w", err)
	}
	return fromFile(file)
}

func fromFile(file AppsFile) (*Registry, error) {
	if len(file.Apps) == 0 {
		return nil, errors.New("apps config lists no apps")
	}

	registry := NewRegistry()
	for i := range file.Apps {
		if file.Apps[i].AppID == "" {
			return nil, fmt.Errorf("apps config entry %d has no app_id", i)
		}
		registry.Register(&file.Apps[i])
	}
	return registry, nil
}

func (r *Registry) Register(cfg *AppConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[cfg.AppID] = cfg
	if cfg.Default || r.defaultID == "" {
		r.defaultID = cfg.AppID
	}
}

func (r *Registry) Get(appID string) *AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.apps[appID]
}

func (r *Registry) Exists(appID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.apps[appID]
	return ok
}

// DefaultAppID is the app flagged default, else the first registered.
func (r *Registry) DefaultAppID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultID
}

func (r *Registry) HasFeature(appID, feature string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.apps[appID]
	if !ok {
		return false
	}
	return cfg.Features[feature]
}

func (r *Registry) All() []*AppConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*AppConfig, 0, len(r.apps))
	for _, cfg := range r.apps {
		result = append(result, cfg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AppID < result[j].AppID })
	return result
}
