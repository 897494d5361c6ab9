package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/OCAP2/droneview/pkg/core"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "droneview.cfg.json"

// CameraConfig holds the drone camera settings.
type CameraConfig struct {
	CenterX     float64 `json:"centerX" mapstructure:"centerX"`
	CenterY     float64 `json:"centerY" mapstructure:"centerY"`
	VelocityX   float64 `json:"velocityX" mapstructure:"velocityX"`
	VelocityY   float64 `json:"velocityY" mapstructure:"velocityY"`
	Scale       float64 `json:"scale" mapstructure:"scale" validate:"gt=0"`
	ImageWidth  int     `json:"imageWidth" mapstructure:"imageWidth" validate:"gt=0"`
	ImageHeight int     `json:"imageHeight" mapstructure:"imageHeight" validate:"gt=0"`
	Unbounded   bool    `json:"unbounded" mapstructure:"unbounded"`
}

// SimulatorConfig selects and configures the simulator source.
type SimulatorConfig struct {
	Type        string        `json:"type" mapstructure:"type" validate:"oneof=traci replay"`
	SumoBinary  string        `json:"sumoBinary" mapstructure:"sumoBinary"`
	SumoConfig  string        `json:"sumoConfig" mapstructure:"sumoConfig" validate:"required_if=Type traci"`
	Host        string        `json:"host" mapstructure:"host"`
	Port        int           `json:"port" mapstructure:"port" validate:"gte=0,lte=65535"`
	StepLength  float64       `json:"stepLength" mapstructure:"stepLength" validate:"gt=0"`
	MaxSteps    int           `json:"maxSteps" mapstructure:"maxSteps" validate:"gte=0"`
	DialTimeout time.Duration `json:"dialTimeout" mapstructure:"dialTimeout"`
	ReplayFile  string        `json:"replayFile" mapstructure:"replayFile" validate:"required_if=Type replay"`
}

// AggregationConfig holds interval aggregation settings.
type AggregationConfig struct {
	BinWidth int `json:"binWidth" mapstructure:"binWidth" validate:"gt=0"`
	Workers  int `json:"workers" mapstructure:"workers" validate:"gte=0"`
}

// OutputConfig names the files a recording produces.
type OutputConfig struct {
	Dir              string `json:"dir" mapstructure:"dir" validate:"required"`
	FramesDir        string `json:"framesDir" mapstructure:"framesDir"`
	RenderFrames     bool   `json:"renderFrames" mapstructure:"renderFrames"`
	TrajectoriesFile string `json:"trajectoriesFile" mapstructure:"trajectoriesFile" validate:"required"`
	MetricsFile      string `json:"metricsFile" mapstructure:"metricsFile" validate:"required"`
	ChartFile        string `json:"chartFile" mapstructure:"chartFile"`
	DashboardFile    string `json:"dashboardFile" mapstructure:"dashboardFile"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds SQLite storage backend settings
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	Path         string        `json:"path" mapstructure:"path"`
}

// WebSocketConfig holds websocket storage backend settings
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects the storage backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type" validate:"oneof=memory sqlite postgres websocket"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// GeoConfig describes the simulator's projected coordinate system.
type GeoConfig struct {
	EPSG    int     `json:"epsg" mapstructure:"epsg" validate:"gte=0"`
	OffsetX float64 `json:"offsetX" mapstructure:"offsetX"`
	OffsetY float64 `json:"offsetY" mapstructure:"offsetY"`
}

// Config is the validated view of all sections.
type Config struct {
	Camera      CameraConfig
	Simulator   SimulatorConfig
	Aggregation AggregationConfig
	Output      OutputConfig
	Storage     StorageConfig
	Geo         GeoConfig
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./droneview_logs")

	viper.SetDefault("camera.centerX", 288.84)
	viper.SetDefault("camera.centerY", 187.33)
	viper.SetDefault("camera.velocityX", 0.0)
	viper.SetDefault("camera.velocityY", 0.0)
	viper.SetDefault("camera.scale", 5.0)
	viper.SetDefault("camera.imageWidth", 1920)
	viper.SetDefault("camera.imageHeight", 1080)
	viper.SetDefault("camera.unbounded", false)

	viper.SetDefault("simulator.type", "traci")
	viper.SetDefault("simulator.sumoBinary", "sumo")
	viper.SetDefault("simulator.sumoConfig", "")
	viper.SetDefault("simulator.host", "localhost")
	viper.SetDefault("simulator.port", 8813)
	viper.SetDefault("simulator.stepLength", 1.0)
	viper.SetDefault("simulator.maxSteps", 0)
	viper.SetDefault("simulator.dialTimeout", "30s")
	viper.SetDefault("simulator.replayFile", "")

	viper.SetDefault("aggregation.binWidth", 60)
	viper.SetDefault("aggregation.workers", 0)

	viper.SetDefault("output.dir", "drone_output")
	viper.SetDefault("output.framesDir", "frames")
	viper.SetDefault("output.renderFrames", false)
	viper.SetDefault("output.trajectoriesFile", "drone_trajectories.csv")
	viper.SetDefault("output.metricsFile", "traffic_metrics.csv")
	viper.SetDefault("output.chartFile", "traffic_metrics.png")
	viper.SetDefault("output.dashboardFile", "traffic_metrics.html")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "droneview")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "droneview")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./recordings")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.path", "droneview.db")
	viper.SetDefault("storage.websocket.url", "")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "droneview")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("geo.epsg", 0)
	viper.SetDefault("geo.offsetX", 0.0)
	viper.SetDefault("geo.offsetY", 0.0)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// LoadDefaults applies only the defaults, for runs without a config file.
func LoadDefaults() {
	setDefaults()
}

// BindFlags binds command line flags to their config keys. Keys are
// given as flag name -> config key; flags absent from fs are skipped.
func BindFlags(fs *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetCameraConfig returns the camera section.
func GetCameraConfig() CameraConfig {
	return CameraConfig{
		CenterX:     viper.GetFloat64("camera.centerX"),
		CenterY:     viper.GetFloat64("camera.centerY"),
		VelocityX:   viper.GetFloat64("camera.velocityX"),
		VelocityY:   viper.GetFloat64("camera.velocityY"),
		Scale:       viper.GetFloat64("camera.scale"),
		ImageWidth:  viper.GetInt("camera.imageWidth"),
		ImageHeight: viper.GetInt("camera.imageHeight"),
		Unbounded:   viper.GetBool("camera.unbounded"),
	}
}

// GetSimulatorConfig returns the simulator section.
func GetSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Type:        viper.GetString("simulator.type"),
		SumoBinary:  viper.GetString("simulator.sumoBinary"),
		SumoConfig:  viper.GetString("simulator.sumoConfig"),
		Host:        viper.GetString("simulator.host"),
		Port:        viper.GetInt("simulator.port"),
		StepLength:  viper.GetFloat64("simulator.stepLength"),
		MaxSteps:    viper.GetInt("simulator.maxSteps"),
		DialTimeout: viper.GetDuration("simulator.dialTimeout"),
		ReplayFile:  viper.GetString("simulator.replayFile"),
	}
}

// GetAggregationConfig returns the aggregation section.
func GetAggregationConfig() AggregationConfig {
	return AggregationConfig{
		BinWidth: viper.GetInt("aggregation.binWidth"),
		Workers:  viper.GetInt("aggregation.workers"),
	}
}

// GetOutputConfig returns the output section.
func GetOutputConfig() OutputConfig {
	return OutputConfig{
		Dir:              viper.GetString("output.dir"),
		FramesDir:        viper.GetString("output.framesDir"),
		RenderFrames:     viper.GetBool("output.renderFrames"),
		TrajectoriesFile: viper.GetString("output.trajectoriesFile"),
		MetricsFile:      viper.GetString("output.metricsFile"),
		ChartFile:        viper.GetString("output.chartFile"),
		DashboardFile:    viper.GetString("output.dashboardFile"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			Path:         viper.GetString("storage.sqlite.path"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetOTelConfig returns the OpenTelemetry configuration.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetGeoConfig returns the coordinate reference settings.
func GetGeoConfig() GeoConfig {
	return GeoConfig{
		EPSG:    viper.GetInt("geo.epsg"),
		OffsetX: viper.GetFloat64("geo.offsetX"),
		OffsetY: viper.GetFloat64("geo.offsetY"),
	}
}

// Get collects every section.
func Get() Config {
	return Config{
		Camera:      GetCameraConfig(),
		Simulator:   GetSimulatorConfig(),
		Aggregation: GetAggregationConfig(),
		Output:      GetOutputConfig(),
		Storage:     GetStorageConfig(),
		Geo:         GetGeoConfig(),
	}
}

var validate = validator.New()

// Validate checks c and reports the first violation as a *core.ConfigError
// keyed by its config path, e.g. "camera.scale".
func Validate(c Config) error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate config: %w", err)
	}
	fe := verrs[0]
	return &core.ConfigError{
		Field:  configPath(fe.Namespace()),
		Reason: reason(fe),
	}
}

// configPath turns "Config.Camera.ImageWidth" into "camera.imageWidth".
func configPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p == "" {
			continue
		}
		if p == "SQLite" || p == "EPSG" {
			parts[i] = strings.ToLower(p)
			continue
		}
		parts[i] = strings.ToLower(p[:1]) + p[1:]
	}
	return strings.Join(parts, ".")
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "required", "required_if":
		return "is required"
	default:
		return "failed " + fe.Tag()
	}
}
