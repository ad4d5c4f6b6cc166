package bootstrap

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultMainLineMarker  = "手数"
	DefaultVariationMarker = "変化"
	DefaultMoveNumberFrom  = 1
	DefaultMoveNumberTo    = 4
)

type Config struct {
	ServerPort       string        `mapstructure:"SERVER_PORT"`
	RedisUrl         string        `mapstructure:"REDIS_URL"`
	MongoUri         string        `mapstructure:"MONGO_URI"`
	MongoDatabase    string        `mapstructure:"MONGO_DATABASE"`
	RecordCacheTTL   time.Duration `mapstructure:"RECORD_CACHE_TTL"`
	MaxUploadBytes   int64         `mapstructure:"MAX_UPLOAD_BYTES"`
	PageLimitRecords int           `mapstructure:"PAGE_LIMIT_RECORDS"`
	SourceEncoding   string        `mapstructure:"SOURCE_ENCODING"`
	MainLineMarker   string        `mapstructure:"MAIN_LINE_MARKER"`
	VariationMarker  string        `mapstructure:"VARIATION_MARKER"`
	MoveNumberFrom   int           `mapstructure:"MOVE_NUMBER_FROM"`
	MoveNumberTo     int           `mapstructure:"MOVE_NUMBER_TO"`
}

// Setup reads cfgPath (.env, yaml, json...) on top of the defaults. Environment
// variables with the same names win over both. An empty path means defaults and
// environment only.
func Setup(cfgPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config

	err := v.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "kifu")
	v.SetDefault("RECORD_CACHE_TTL", "30m")
	v.SetDefault("MAX_UPLOAD_BYTES", 4<<20)
	v.SetDefault("PAGE_LIMIT_RECORDS", 20)
	v.SetDefault("SOURCE_ENCODING", "auto")
	v.SetDefault("MAIN_LINE_MARKER", DefaultMainLineMarker)
	v.SetDefault("VARIATION_MARKER", DefaultVariationMarker)
	v.SetDefault("MOVE_NUMBER_FROM", DefaultMoveNumberFrom)
	v.SetDefault("MOVE_NUMBER_TO", DefaultMoveNumberTo)
}
