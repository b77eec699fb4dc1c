package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/eleven-am/vlm-docking/internal/action"
	"github.com/eleven-am/vlm-docking/internal/camera"
	"github.com/eleven-am/vlm-docking/internal/motion"
	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v2"
)

type Config struct {
	ServerAddr string
	GRPCAddr   string

	HMACKey []byte

	InferenceURL     string
	InferenceTimeout time.Duration
	PNGCompression   string
	SampleTTL        time.Duration

	ControlPeriod   time.Duration
	RearmDelay      time.Duration
	CycleStaleAfter time.Duration
	RenderTimeout   time.Duration
	RenderWidth     int
	RenderHeight    int

	DatabaseDSN       string
	SQLitePath        string
	DecisionRetention time.Duration
	PruneInterval     time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel string
	LogFile  string

	RigConfig string

	Views  []camera.View
	Motion action.Config
}

// RigFile is the optional YAML description of the camera rig and motion
// magnitudes. Zero values keep the defaults.
type RigFile struct {
	Render struct {
		Width  int `yaml:"width"`
		Height int `yaml:"height"`
	} `yaml:"render"`
	Cameras []RigCamera `yaml:"cameras"`
	Motion  struct {
		Step      float64 `yaml:"step"`
		YawStep   float64 `yaml:"yawStep"`
		PitchStep float64 `yaml:"pitchStep"`
		TurnRate  float64 `yaml:"turnRate"`
	} `yaml:"motion"`
}

type RigCamera struct {
	ID          string     `yaml:"id"`
	Offset      [3]float64 `yaml:"offset"`
	Orientation [3]float64 `yaml:"orientation"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		GRPCAddr:   getEnv("GRPC_ADDR", ":50051"),

		HMACKey: []byte(getEnv("HMAC_KEY", "change-me-in-production")),

		InferenceURL:     getEnv("INFERENCE_URL", "http://127.0.0.1:5001"),
		InferenceTimeout: getEnvDuration("INFERENCE_TIMEOUT", 10*time.Second),
		PNGCompression:   getEnv("PNG_COMPRESSION", "default"),
		SampleTTL:        getEnvDuration("SAMPLE_TTL", 10*time.Minute),

		ControlPeriod:   getEnvDuration("CONTROL_PERIOD", time.Second),
		RearmDelay:      getEnvDuration("REARM_DELAY", time.Second),
		CycleStaleAfter: getEnvDuration("CYCLE_STALE_AFTER", 0),
		RenderTimeout:   getEnvDuration("RENDER_TIMEOUT", 2*time.Second),
		RenderWidth:     getEnvInt("RENDER_WIDTH", 256),
		RenderHeight:    getEnvInt("RENDER_HEIGHT", 256),

		DatabaseDSN:       getEnv("DATABASE_DSN", ""),
		SQLitePath:        getEnv("SQLITE_PATH", "docking.db"),
		DecisionRetention: getEnvDuration("DECISION_RETENTION", 7*24*time.Hour),
		PruneInterval:     getEnvDuration("DECISION_PRUNE_INTERVAL", time.Hour),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		RigConfig: getEnv("RIG_CONFIG", ""),

		Motion: action.DefaultConfig(),
	}

	if cfg.RigConfig != "" {
		rig, err := loadRigFile(cfg.RigConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load rig config from %s: %w", cfg.RigConfig, err)
		}
		if err := cfg.applyRig(rig); err != nil {
			return nil, err
		}
	}

	if cfg.Views == nil {
		cfg.Views = camera.DefaultRig(cfg.RenderWidth, cfg.RenderHeight)
	}

	return cfg, nil
}

func loadRigFile(path string) (*RigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var rig RigFile
	if err := yaml.Unmarshal(data, &rig); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &rig, nil
}

func (c *Config) applyRig(rig *RigFile) error {
	if rig.Render.Width > 0 {
		c.RenderWidth = rig.Render.Width
	}
	if rig.Render.Height > 0 {
		c.RenderHeight = rig.Render.Height
	}

	if rig.Motion.Step > 0 {
		c.Motion.Step = rig.Motion.Step
	}
	if rig.Motion.YawStep > 0 {
		c.Motion.YawStep = rig.Motion.YawStep
	}
	if rig.Motion.PitchStep > 0 {
		c.Motion.PitchStep = rig.Motion.PitchStep
	}
	if rig.Motion.TurnRate > 0 {
		c.Motion.TurnRate = rig.Motion.TurnRate
	}

	if len(rig.Cameras) == 0 {
		return nil
	}

	seen := make(map[camera.ID]bool, len(rig.Cameras))
	views := make([]camera.View, 0, len(rig.Cameras))
	for _, rc := range rig.Cameras {
		id, err := camera.ParseID(rc.ID)
		if err != nil {
			return fmt.Errorf("rig camera: %w", err)
		}
		if seen[id] {
			return fmt.Errorf("rig camera %q listed twice", id)
		}
		seen[id] = true

		views = append(views, camera.View{
			ID:          id,
			Offset:      r3.Vector{X: rc.Offset[0], Y: rc.Offset[1], Z: rc.Offset[2]},
			Orientation: motion.Rotator{Pitch: rc.Orientation[0], Yaw: rc.Orientation[1], Roll: rc.Orientation[2]},
			Width:       c.RenderWidth,
			Height:      c.RenderHeight,
		})
	}
	c.Views = views
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
