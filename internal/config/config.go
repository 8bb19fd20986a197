// Package config provides the configuration structure for the promo pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/book-expert/promo-pipeline/internal/artifact"
	"github.com/book-expert/promo-pipeline/internal/core"
)

// Catalog backends.
const (
	BackendPAAPI = "paapi"
	BackendHTML  = "html"
	BackendFile  = "file"
)

// Speech engines.
const (
	EngineCommand = "command"
	EngineHTTP    = "http"
)

// Assembly modes.
const (
	AssemblyAgreed  = "agreed"
	AssemblyCommand = "command"
)

// Environment variables that override secrets from the configuration source.
const (
	EnvOpenAIAPIKey        = "OPENAI_API_KEY"
	EnvPAAPIAccessKey      = "PAAPI_ACCESS_KEY"
	EnvPAAPISecretKey      = "PAAPI_SECRET_KEY"
	EnvPAAPIPartnerTag     = "PAAPI_PARTNER_TAG"
	EnvYouTubeClientID     = "YOUTUBE_CLIENT_ID"
	EnvYouTubeClientSecret = "YOUTUBE_CLIENT_SECRET"
	EnvYouTubeRefreshToken = "YOUTUBE_REFRESH_TOKEN"
)

// LogFileName is the fixed name of the run log inside Paths.BaseLogsDir.
const LogFileName = "promo-pipeline.log"

const (
	defaultTimeoutSeconds   = 60
	defaultUploadTimeout    = 1800
	defaultPAAPIEndpoint    = "https://webservices.amazon.com"
	defaultPAAPIRegion      = "us-east-1"
	defaultPAAPIMarketplace = "www.amazon.com"
	defaultPAAPIItemCount   = 10
	defaultScriptModel      = "gpt-4o-mini"
	defaultScriptMaxTokens  = 500
	defaultVoiceBinary      = "espeak-ng"
	defaultVoiceServiceURL  = "http://127.0.0.1:8000"
	defaultVoiceLanguage    = "en"
	defaultVoiceTemperature = 0.75
	defaultAudioFileName    = "voiceover.wav"
	defaultVideoFileName    = "video.mp4"
	defaultYouTubeCategory  = "28"
	defaultArtifactBucket   = "PROMO_ARTIFACTS"
	defaultWorkDir          = "work"
	defaultLogsDir          = "logs"
)

var (
	// ErrUnknownBackend indicates an unsupported catalog backend.
	ErrUnknownBackend = errors.New("unknown catalog backend")
	// ErrUnknownEngine indicates an unsupported speech engine.
	ErrUnknownEngine = errors.New("unknown speech engine")
	// ErrUnknownAssembly indicates an unsupported assembly mode.
	ErrUnknownAssembly = errors.New("unknown assembly mode")
	// ErrBackendIncomplete indicates that the selected catalog backend lacks a required setting.
	ErrBackendIncomplete = errors.New("catalog backend is incomplete")
	// ErrMissingCredential indicates that a required secret is empty.
	ErrMissingCredential = errors.New("missing credential")
	// ErrInvalidPriceRange indicates that max_price is below min_price.
	ErrInvalidPriceRange = errors.New("max_price must be zero or >= min_price")
	// ErrInvalidAudioFile indicates that the voiceover file name has no audio extension.
	ErrInvalidAudioFile = errors.New("audio file name must have an audio extension")
	// ErrAssemblyCommandEmpty indicates command assembly without a command.
	ErrAssemblyCommandEmpty = errors.New("assembly command cannot be empty")
)

// PAAPIConfig holds the Product Advertising API settings.
type PAAPIConfig struct {
	Endpoint    string `toml:"endpoint"`
	Region      string `toml:"region"`
	Marketplace string `toml:"marketplace"`
	SearchIndex string `toml:"search_index"`
	AccessKey   string `toml:"access_key"`
	SecretKey   string `toml:"secret_key"`
	PartnerTag  string `toml:"partner_tag"`
	ItemCount   int    `toml:"item_count"`
}

// HTMLConfig holds the storefront page and its CSS selectors.
type HTMLConfig struct {
	URL              string `toml:"url"`
	ItemSelector     string `toml:"item_selector"`
	NameSelector     string `toml:"name_selector"`
	CategorySelector string `toml:"category_selector"`
	PriceSelector    string `toml:"price_selector"`
	RatingSelector   string `toml:"rating_selector"`
	LinkSelector     string `toml:"link_selector"`
}

// CatalogConfig holds the catalog query filter and backend.
type CatalogConfig struct {
	Backend        string      `toml:"backend"`
	Category       string      `toml:"category"`
	Keywords       string      `toml:"keywords"`
	MinPrice       float64     `toml:"min_price"`
	MaxPrice       float64     `toml:"max_price"`
	MinRating      float64     `toml:"min_rating"`
	FixturePath    string      `toml:"fixture_path"`
	TimeoutSeconds int         `toml:"timeout_seconds"`
	PAAPI          PAAPIConfig `toml:"paapi"`
	HTML           HTMLConfig  `toml:"html"`
}

// ScriptConfig holds the text-generation settings.
type ScriptConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	MaxTokens      int    `toml:"max_tokens"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// VoiceConfig holds the speech-synthesis settings.
type VoiceConfig struct {
	Engine         string   `toml:"engine"`
	BinaryPath     string   `toml:"binary_path"`
	Args           []string `toml:"args"`
	ServiceURL     string   `toml:"service_url"`
	Language       string   `toml:"language"`
	Temperature    float64  `toml:"temperature"`
	FileName       string   `toml:"file_name"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// AssemblyConfig describes the external video-assembly step.
type AssemblyConfig struct {
	Mode     string   `toml:"mode"`
	Command  string   `toml:"command"`
	Args     []string `toml:"args"`
	FileName string   `toml:"file_name"`
}

// PublishConfig holds the publishing platform credentials and defaults.
type PublishConfig struct {
	ClientID       string `toml:"client_id"`
	ClientSecret   string `toml:"client_secret"`
	RefreshToken   string `toml:"refresh_token"`
	Visibility     string `toml:"visibility"`
	CategoryID     string `toml:"category_id"`
	// TimeoutSeconds bounds each request to the platform, including the whole
	// video upload, so it must cover the largest video at the slowest link.
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// NATSConfig holds the configuration for NATS. An empty URL disables it.
type NATSConfig struct {
	URL            string `toml:"url"`
	ArtifactBucket string `toml:"artifact_bucket"`
	OutcomeSubject string `toml:"outcome_subject"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	WorkDir     string `toml:"work_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Catalog  CatalogConfig  `toml:"catalog"`
	Script   ScriptConfig   `toml:"script"`
	Voice    VoiceConfig    `toml:"voice"`
	Assembly AssemblyConfig `toml:"assembly"`
	Publish  PublishConfig  `toml:"publish"`
	NATS     NATSConfig     `toml:"nats"`
	Paths    PathsConfig    `toml:"paths"`
}

// Load loads the configuration for the promo pipeline, applies environment
// overrides and defaults, and validates the result.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyEnvOverrides(os.LookupEnv)
	cfg.ApplyDefaults()

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &cfg, nil
}

// ApplyEnvOverrides replaces secrets with values found through lookup.
func (c *Config) ApplyEnvOverrides(lookup func(string) (string, bool)) {
	overrides := []struct {
		env    string
		target *string
	}{
		{EnvOpenAIAPIKey, &c.Script.APIKey},
		{EnvPAAPIAccessKey, &c.Catalog.PAAPI.AccessKey},
		{EnvPAAPISecretKey, &c.Catalog.PAAPI.SecretKey},
		{EnvPAAPIPartnerTag, &c.Catalog.PAAPI.PartnerTag},
		{EnvYouTubeClientID, &c.Publish.ClientID},
		{EnvYouTubeClientSecret, &c.Publish.ClientSecret},
		{EnvYouTubeRefreshToken, &c.Publish.RefreshToken},
	}

	for _, override := range overrides {
		value, ok := lookup(override.env)
		if ok && value != "" {
			*override.target = value
		}
	}
}

// ApplyDefaults fills every empty optional field.
func (c *Config) ApplyDefaults() {
	setString(&c.Catalog.Backend, BackendPAAPI)
	setInt(&c.Catalog.TimeoutSeconds, defaultTimeoutSeconds)
	setString(&c.Catalog.PAAPI.Endpoint, defaultPAAPIEndpoint)
	setString(&c.Catalog.PAAPI.Region, defaultPAAPIRegion)
	setString(&c.Catalog.PAAPI.Marketplace, defaultPAAPIMarketplace)
	setInt(&c.Catalog.PAAPI.ItemCount, defaultPAAPIItemCount)

	setString(&c.Script.Model, defaultScriptModel)
	setInt(&c.Script.MaxTokens, defaultScriptMaxTokens)
	setInt(&c.Script.TimeoutSeconds, defaultTimeoutSeconds)

	setString(&c.Voice.Engine, EngineCommand)
	setString(&c.Voice.BinaryPath, defaultVoiceBinary)
	setString(&c.Voice.ServiceURL, defaultVoiceServiceURL)
	setString(&c.Voice.Language, defaultVoiceLanguage)
	setString(&c.Voice.FileName, defaultAudioFileName)
	setInt(&c.Voice.TimeoutSeconds, defaultTimeoutSeconds)

	if c.Voice.Temperature == 0 {
		c.Voice.Temperature = defaultVoiceTemperature
	}

	if len(c.Voice.Args) == 0 && c.Voice.BinaryPath == defaultVoiceBinary {
		c.Voice.Args = []string{"--stdin", "-w", "{output}"}
	}

	setString(&c.Assembly.Mode, AssemblyAgreed)
	setString(&c.Assembly.FileName, defaultVideoFileName)

	setString(&c.Publish.Visibility, core.VisibilityPublic)
	setString(&c.Publish.CategoryID, defaultYouTubeCategory)
	setInt(&c.Publish.TimeoutSeconds, defaultUploadTimeout)

	setString(&c.NATS.ArtifactBucket, defaultArtifactBucket)

	setString(&c.Paths.BaseLogsDir, defaultLogsDir)
	setString(&c.Paths.WorkDir, filepath.Join(os.TempDir(), "promo-pipeline", defaultWorkDir))
}

// Validate checks the backend choices and the credentials they require.
func (c *Config) Validate() error {
	catalogErr := c.validateCatalog()
	if catalogErr != nil {
		return catalogErr
	}

	if c.Script.APIKey == "" {
		return fmt.Errorf("%w: script.api_key (%s)", ErrMissingCredential, EnvOpenAIAPIKey)
	}

	switch c.Voice.Engine {
	case EngineCommand, EngineHTTP:
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownEngine, c.Voice.Engine)
	}

	if !artifact.IsValidAudioFile(c.Voice.FileName) {
		return fmt.Errorf("%w: '%s'", ErrInvalidAudioFile, c.Voice.FileName)
	}

	switch c.Assembly.Mode {
	case AssemblyAgreed:
	case AssemblyCommand:
		if c.Assembly.Command == "" {
			return ErrAssemblyCommandEmpty
		}
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownAssembly, c.Assembly.Mode)
	}

	if c.Publish.ClientID == "" || c.Publish.ClientSecret == "" || c.Publish.RefreshToken == "" {
		return fmt.Errorf("%w: publish client_id, client_secret and refresh_token", ErrMissingCredential)
	}

	return nil
}

// Filter returns the catalog filter described by the configuration.
func (c *CatalogConfig) Filter() core.Filter {
	return core.Filter{
		Category:  c.Category,
		MinPrice:  c.MinPrice,
		MaxPrice:  c.MaxPrice,
		MinRating: c.MinRating,
	}
}

func (c *Config) validateCatalog() error {
	if c.Catalog.MaxPrice != 0 && c.Catalog.MaxPrice < c.Catalog.MinPrice {
		return fmt.Errorf("%w: got %.2f < %.2f", ErrInvalidPriceRange, c.Catalog.MaxPrice, c.Catalog.MinPrice)
	}

	switch c.Catalog.Backend {
	case BackendPAAPI:
		paapi := c.Catalog.PAAPI
		if paapi.AccessKey == "" || paapi.SecretKey == "" || paapi.PartnerTag == "" {
			return fmt.Errorf("%w: catalog.paapi access_key, secret_key and partner_tag", ErrMissingCredential)
		}
	case BackendHTML:
		if c.Catalog.HTML.URL == "" || c.Catalog.HTML.ItemSelector == "" {
			return fmt.Errorf("%w: catalog.html url and item_selector are required", ErrBackendIncomplete)
		}
	case BackendFile:
		if c.Catalog.FixturePath == "" {
			return fmt.Errorf("%w: catalog.fixture_path is required", ErrBackendIncomplete)
		}
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownBackend, c.Catalog.Backend)
	}

	return nil
}

func setString(target *string, value string) {
	if *target == "" {
		*target = value
	}
}

func setInt(target *int, value int) {
	if *target == 0 {
		*target = value
	}
}
