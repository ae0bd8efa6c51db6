package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"deliverysim/internal/logging"
	"deliverysim/internal/model"
	"deliverysim/internal/util"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/paulmach/orb"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultExtent is the simulation area in Web Mercator meters (xmin,ymin,xmax,ymax)
const DefaultExtent = "-13053376.10252461,3851361.7018923508,-13029715.044618936,3863009.455819231"

type Config struct {
	AppEnv string `mapstructure:"APP_ENV"`
	Port   string `mapstructure:"PORT"`

	// Simulator
	Company           model.Company `mapstructure:"COMPANY"`
	SimTargetAddr     string        `mapstructure:"SIM_TARGET_ADDR"`
	MaxActiveRoutes   int           `mapstructure:"MAX_ACTIVE_ROUTES"`
	SpeedMultiplier   float64       `mapstructure:"SPEED_MULTIPLIER"`
	BaseTickInterval  time.Duration `mapstructure:"BASE_TICK_INTERVAL"`
	ReplenishInterval time.Duration `mapstructure:"REPLENISH_INTERVAL"`
	SkipProbability   float64       `mapstructure:"SKIP_PROBABILITY"`
	SpeedVarianceMin  float64       `mapstructure:"SPEED_VARIANCE_MIN"`
	SpeedVarianceMax  float64       `mapstructure:"SPEED_VARIANCE_MAX"`
	RandomSeed        uint64        `mapstructure:"RANDOM_SEED"` // 0 picks a random seed
	Extent            orb.Bound     `mapstructure:"EXTENT"`      // Web Mercator

	// Route solving
	Solver          string `mapstructure:"SOLVER"`
	OrsAPIKey       string `mapstructure:"ORS_API_KEY"`
	OrsBaseURL      string `mapstructure:"ORS_BASE_URL"`
	SolverCacheSize int    `mapstructure:"SOLVER_CACHE_SIZE"`

	// Start points
	StartPoints     string `mapstructure:"START_POINTS"`
	StartPointsFile string `mapstructure:"START_POINTS_FILE"`
	OsmTag          string `mapstructure:"OSM_TAG"`

	// Dashboard
	ListenAddr     string        `mapstructure:"LISTEN_ADDR"`
	MirrorInterval time.Duration `mapstructure:"MIRROR_INTERVAL"`
	MirrorTTL      time.Duration `mapstructure:"MIRROR_TTL"`
	EventBuffer    int           `mapstructure:"EVENT_BUFFER"`

	DBUrl    string `mapstructure:"DB_URL"`
	RedisUrl string `mapstructure:"REDIS_URL"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	LogFile  string `mapstructure:"LOG_FILE"`
}

// Validate checks values that would otherwise fail deep inside a component
func (c Config) Validate() error {
	var errs []error
	if !c.Company.Valid() {
		errs = append(errs, fmt.Errorf("COMPANY: unknown company %v", c.Company))
	}
	if c.MaxActiveRoutes <= 0 {
		errs = append(errs, errors.New("MAX_ACTIVE_ROUTES must be positive"))
	}
	if c.SpeedMultiplier < 1 {
		errs = append(errs, errors.New("SPEED_MULTIPLIER must be at least 1"))
	}
	if c.SkipProbability < 0 || c.SkipProbability >= 1 {
		errs = append(errs, errors.New("SKIP_PROBABILITY must be in [0, 1)"))
	}
	if c.SpeedVarianceMin <= 0 || c.SpeedVarianceMax < c.SpeedVarianceMin {
		errs = append(errs, errors.New("SPEED_VARIANCE_MIN must be positive and not above SPEED_VARIANCE_MAX"))
	}
	if c.Extent.Min.X() >= c.Extent.Max.X() || c.Extent.Min.Y() >= c.Extent.Max.Y() {
		errs = append(errs, errors.New("EXTENT must have a non-zero area"))
	}
	switch c.Solver {
	case "direct":
	case "ors":
		if c.OrsAPIKey == "" {
			errs = append(errs, errors.New("ORS_API_KEY is required when SOLVER=ors"))
		}
	default:
		errs = append(errs, fmt.Errorf("SOLVER: unknown solver %q", c.Solver))
	}
	switch c.StartPoints {
	case "pg", "geojson", "osm":
	default:
		errs = append(errs, fmt.Errorf("START_POINTS: unknown source %q", c.StartPoints))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

// ValidateDashboard checks the values the dashboard reads
func (c Config) ValidateDashboard() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("LISTEN_ADDR is required"))
	}
	if c.EventBuffer <= 0 {
		errs = append(errs, errors.New("EVENT_BUFFER must be positive"))
	}
	if c.MirrorInterval <= 0 {
		errs = append(errs, errors.New("MIRROR_INTERVAL must be positive"))
	}
	if c.MirrorTTL < 0 {
		errs = append(errs, errors.New("MIRROR_TTL must not be negative"))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", ":8080")
	v.SetDefault("COMPANY", "Black")
	v.SetDefault("SIM_TARGET_ADDR", "127.0.0.1:8080")
	v.SetDefault("MAX_ACTIVE_ROUTES", 10)
	v.SetDefault("SPEED_MULTIPLIER", 2)
	v.SetDefault("BASE_TICK_INTERVAL", DefaultBaseTickInterval)
	v.SetDefault("REPLENISH_INTERVAL", DefaultReplenishInterval)
	v.SetDefault("SKIP_PROBABILITY", 0.3)
	v.SetDefault("SPEED_VARIANCE_MIN", 0.75)
	v.SetDefault("SPEED_VARIANCE_MAX", 1.5)
	v.SetDefault("RANDOM_SEED", 0)
	v.SetDefault("EXTENT", DefaultExtent)
	v.SetDefault("SOLVER", "direct")
	v.SetDefault("ORS_API_KEY", "")
	v.SetDefault("ORS_BASE_URL", "https://api.openrouteservice.org")
	v.SetDefault("SOLVER_CACHE_SIZE", 256)
	v.SetDefault("START_POINTS", "geojson")
	v.SetDefault("START_POINTS_FILE", "data/start_points.geojson")
	v.SetDefault("OSM_TAG", "amenity=post_office")
	v.SetDefault("LISTEN_ADDR", "0.0.0.0:8080")
	v.SetDefault("MIRROR_INTERVAL", DefaultMirrorInterval)
	v.SetDefault("MIRROR_TTL", DefaultMirrorTTL)
	v.SetDefault("EVENT_BUFFER", 256)
	v.SetDefault("DB_URL", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FILE", "")
}

// Flags returns the command line flags every binary accepts. Flag names are
// the lower-case, dash-separated form of the config keys.
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("port", "", "HTTP listen address, e.g. :3000")
	fs.String("company", "", "fleet name or number")
	fs.String("sim-target-addr", "", "UDP peer the simulator sends to")
	fs.String("listen-addr", "", "UDP address the dashboard binds")
	fs.Float64("speed-multiplier", 0, "simulation speed multiplier (>= 1)")
	fs.Uint64("random-seed", 0, "seed for reproducible runs (0 = random)")
	fs.String("solver", "", "route solver: direct or ors")
	fs.String("start-points", "", "start point source: pg, geojson or osm")
	fs.String("start-points-file", "", "GeoJSON or OSM PBF file for start points")
	fs.String("log-level", "", "debug, info, warn or error")
	return fs
}

// LoadConfig reads .env.<APP_ENV> from the working directory, then the
// environment, then any flags that were set explicitly.
func LoadConfig(defaultPort string, flags *pflag.FlagSet) (Config, *viper.Viper, error) {
	v := viper.New()
	v.SetFs(afero.NewOsFs())
	c, err := loadConfig(v, os.Getenv("APP_ENV"), defaultPort, flags)
	return c, v, err
}

func loadConfig(v *viper.Viper, env, defaultPort string, flags *pflag.FlagSet) (c Config, err error) {
	if env == "" {
		env = "development"
	}

	setDefaults(v)
	if defaultPort != "" {
		v.SetDefault("PORT", defaultPort)
	}
	v.Set("APP_ENV", env)

	v.SetConfigName(fmt.Sprintf(".env.%s", env))
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// Environment variables take precedence over config file
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(flagKey(f.Name), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return c, fmt.Errorf("bind flags: %w", bindErr)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// Continue even if file is not found
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return c, fmt.Errorf("read config: %w", err)
		}
	}

	err = v.Unmarshal(&c, viper.DecodeHook(decodeHook()))
	if err != nil {
		return c, fmt.Errorf("decode config: %w", err)
	}
	return c, nil
}

// WatchSpeedMultiplier calls fn whenever the config file changes the multiplier
func WatchSpeedMultiplier(v *viper.Viper, fn func(multiplier float64)) {
	last := v.GetFloat64("SPEED_MULTIPLIER")
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		if m := v.GetFloat64("SPEED_MULTIPLIER"); m != last {
			last = m
			fn(m)
		}
	})
	v.WatchConfig()
}

func flagKey(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		companyHook,
		boundHook,
	)
}

func companyHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(model.Company(0)) {
		return data, nil
	}
	return model.ParseCompany(data)
}

// boundHook parses "xmin,ymin,xmax,ymax"
func boundHook(from, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(orb.Bound{}) || from.Kind() != reflect.String {
		return data, nil
	}
	return util.ParseBound(data.(string))
}
