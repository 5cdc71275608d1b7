package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "ascent_autopilot.cfg.json"

// KRPCConfig holds the simulator connection settings
type KRPCConfig struct {
	Host       string `json:"host" mapstructure:"host"`
	ClientName string `json:"clientName" mapstructure:"clientName"`
}

// FlightConfig holds control-loop settings
type FlightConfig struct {
	TickInterval time.Duration `json:"tickInterval" mapstructure:"tickInterval"`
	VesselName   string        `json:"vesselName" mapstructure:"vesselName"`
}

// ProfileConfig describes the piecewise-linear pitch program.
type ProfileConfig struct {
	StartAltitude float64 `json:"startAltitude" mapstructure:"startAltitude"`
	EndAltitude   float64 `json:"endAltitude" mapstructure:"endAltitude"`
	StartPitch    float64 `json:"startPitch" mapstructure:"startPitch"`
	EndPitch      float64 `json:"endPitch" mapstructure:"endPitch"`
}

// GuidanceConfig holds the ascent phase thresholds
type GuidanceConfig struct {
	TurnStartSpeed    float64       `json:"turnStartSpeed" mapstructure:"turnStartSpeed"`
	PitchHoldAltitude float64       `json:"pitchHoldAltitude" mapstructure:"pitchHoldAltitude"`
	PitchHoldSpeed    float64       `json:"pitchHoldSpeed" mapstructure:"pitchHoldSpeed"`
	PitchHoldTarget   float64       `json:"pitchHoldTarget" mapstructure:"pitchHoldTarget"`
	Profile           ProfileConfig `json:"profile" mapstructure:"profile"`
}

// StagingConfig holds booster-separation settings
type StagingConfig struct {
	SolidFuelThreshold float64       `json:"solidFuelThreshold" mapstructure:"solidFuelThreshold"`
	SettleDelay        time.Duration `json:"settleDelay" mapstructure:"settleDelay"`
	SASInitDelay       time.Duration `json:"sasInitDelay" mapstructure:"sasInitDelay"`
}

// ManeuverConfig holds circularization timing
type ManeuverConfig struct {
	LeadTime     time.Duration `json:"leadTime" mapstructure:"leadTime"`
	PollInterval time.Duration `json:"pollInterval" mapstructure:"pollInterval"`
	Margin       time.Duration `json:"margin" mapstructure:"margin"`
	SASSettle    time.Duration `json:"sasSettle" mapstructure:"sasSettle"`
	BurnTicks    int           `json:"burnTicks" mapstructure:"burnTicks"`
	BurnTick     time.Duration `json:"burnTick" mapstructure:"burnTick"`
	ReportEvery  int           `json:"reportEvery" mapstructure:"reportEvery"`
}

// RecorderConfig holds flight log sampling settings
type RecorderConfig struct {
	Interval      time.Duration `json:"interval" mapstructure:"interval"`
	AnnounceEvery time.Duration `json:"announceEvery" mapstructure:"announceEvery"`
}

// ConsoleConfig holds the status line throttle
type ConsoleConfig struct {
	Interval time.Duration `json:"interval" mapstructure:"interval"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// StorageConfig selects and configures the storage backend
type StorageConfig struct {
	Type     string         `json:"type" mapstructure:"type"`
	Memory   MemoryConfig   `json:"memory" mapstructure:"memory"`
	SQLite   SQLiteConfig   `json:"sqlite" mapstructure:"sqlite"`
	Postgres PostgresConfig `json:"postgres" mapstructure:"postgres"`
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// URL returns the server URL.
func (c InfluxConfig) URL() string {
	return fmt.Sprintf("%s://%s:%s", c.Protocol, c.Host, c.Port)
}

// GraylogConfig holds GELF output settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
	Path    string `json:"path" mapstructure:"path"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// SetDefaults registers default values for every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("krpc.host", "127.0.0.1")
	viper.SetDefault("krpc.clientName", "ascent-autopilot")

	viper.SetDefault("flight.tickInterval", "50ms")
	viper.SetDefault("flight.vesselName", "")

	viper.SetDefault("guidance.turnStartSpeed", 100.0)
	viper.SetDefault("guidance.pitchHoldAltitude", 71000.0)
	viper.SetDefault("guidance.pitchHoldSpeed", 1500.0)
	viper.SetDefault("guidance.pitchHoldTarget", 1.0)
	viper.SetDefault("guidance.profile.startAltitude", 1000.0)
	viper.SetDefault("guidance.profile.endAltitude", 70000.0)
	viper.SetDefault("guidance.profile.startPitch", 90.0)
	viper.SetDefault("guidance.profile.endPitch", 5.0)

	viper.SetDefault("staging.solidFuelThreshold", 0.01)
	viper.SetDefault("staging.settleDelay", "1s")
	viper.SetDefault("staging.sasInitDelay", "200ms")

	viper.SetDefault("maneuver.leadTime", "30s")
	viper.SetDefault("maneuver.pollInterval", "5s")
	viper.SetDefault("maneuver.margin", "5s")
	viper.SetDefault("maneuver.sasSettle", "1s")
	viper.SetDefault("maneuver.burnTicks", 30)
	viper.SetDefault("maneuver.burnTick", "1s")
	viper.SetDefault("maneuver.reportEvery", 5)

	viper.SetDefault("recorder.interval", "1s")
	viper.SetDefault("recorder.announceEvery", "10s")

	viper.SetDefault("console.interval", "500ms")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./flights")
	viper.SetDefault("storage.memory.compressOutput", false)
	viper.SetDefault("storage.sqlite.path", "./flights/flights.db")
	viper.SetDefault("storage.postgres.host", "localhost")
	viper.SetDefault("storage.postgres.port", "5432")
	viper.SetDefault("storage.postgres.username", "postgres")
	viper.SetDefault("storage.postgres.password", "postgres")
	viper.SetDefault("storage.postgres.database", "ascent")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "ascent")
	viper.SetDefault("influx.bucket", "flight_telemetry")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.address", "0.0.0.0:9464")
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "ascent-autopilot")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetKRPCConfig returns the simulator connection settings.
func GetKRPCConfig() KRPCConfig {
	return KRPCConfig{
		Host:       viper.GetString("krpc.host"),
		ClientName: viper.GetString("krpc.clientName"),
	}
}

// GetFlightConfig returns control-loop settings.
func GetFlightConfig() FlightConfig {
	return FlightConfig{
		TickInterval: viper.GetDuration("flight.tickInterval"),
		VesselName:   viper.GetString("flight.vesselName"),
	}
}

// GetGuidanceConfig returns the ascent thresholds and pitch program.
func GetGuidanceConfig() GuidanceConfig {
	return GuidanceConfig{
		TurnStartSpeed:    viper.GetFloat64("guidance.turnStartSpeed"),
		PitchHoldAltitude: viper.GetFloat64("guidance.pitchHoldAltitude"),
		PitchHoldSpeed:    viper.GetFloat64("guidance.pitchHoldSpeed"),
		PitchHoldTarget:   viper.GetFloat64("guidance.pitchHoldTarget"),
		Profile: ProfileConfig{
			StartAltitude: viper.GetFloat64("guidance.profile.startAltitude"),
			EndAltitude:   viper.GetFloat64("guidance.profile.endAltitude"),
			StartPitch:    viper.GetFloat64("guidance.profile.startPitch"),
			EndPitch:      viper.GetFloat64("guidance.profile.endPitch"),
		},
	}
}

// GetStagingConfig returns booster-separation settings.
func GetStagingConfig() StagingConfig {
	return StagingConfig{
		SolidFuelThreshold: viper.GetFloat64("staging.solidFuelThreshold"),
		SettleDelay:        viper.GetDuration("staging.settleDelay"),
		SASInitDelay:       viper.GetDuration("staging.sasInitDelay"),
	}
}

// GetManeuverConfig returns circularization timing.
func GetManeuverConfig() ManeuverConfig {
	return ManeuverConfig{
		LeadTime:     viper.GetDuration("maneuver.leadTime"),
		PollInterval: viper.GetDuration("maneuver.pollInterval"),
		Margin:       viper.GetDuration("maneuver.margin"),
		SASSettle:    viper.GetDuration("maneuver.sasSettle"),
		BurnTicks:    viper.GetInt("maneuver.burnTicks"),
		BurnTick:     viper.GetDuration("maneuver.burnTick"),
		ReportEvery:  viper.GetInt("maneuver.reportEvery"),
	}
}

// GetRecorderConfig returns flight log sampling settings.
func GetRecorderConfig() RecorderConfig {
	return RecorderConfig{
		Interval:      viper.GetDuration("recorder.interval"),
		AnnounceEvery: viper.GetDuration("recorder.announceEvery"),
	}
}

// GetConsoleConfig returns the status line throttle.
func GetConsoleConfig() ConsoleConfig {
	return ConsoleConfig{Interval: viper.GetDuration("console.interval")}
}

// GetStorageConfig returns the storage backend selection.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("storage.sqlite.path"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("storage.postgres.host"),
			Port:     viper.GetString("storage.postgres.port"),
			Username: viper.GetString("storage.postgres.username"),
			Password: viper.GetString("storage.postgres.password"),
			Database: viper.GetString("storage.postgres.database"),
		},
	}
}

// GetInfluxConfig returns InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns GELF output settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetMetricsConfig returns the Prometheus endpoint settings.
func GetMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled: viper.GetBool("metrics.enabled"),
		Address: viper.GetString("metrics.address"),
		Path:    viper.GetString("metrics.path"),
	}
}

// GetOTelConfig returns OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
