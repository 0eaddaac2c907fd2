package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Guild    GuildConfig    `mapstructure:"guild"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
	// ServerID identifies the game-server shard this instance coordinates
	// guilds for. Maintenance sweeps only touch guilds on this shard.
	ServerID string `mapstructure:"server_id"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | sqlite_memory | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
}

type CacheConfig struct {
	RedisAddr       string        `mapstructure:"redis_addr"`
	RedisPassword   string        `mapstructure:"redis_password"`
	RedisDB         int           `mapstructure:"redis_db"`
	LocalGCInterval time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf  int           `mapstructure:"local_pubsub_buf"`
}

type GuildConfig struct {
	CreationCost        int64         `mapstructure:"creation_cost"`
	MinCreateLevel      int           `mapstructure:"min_create_level"`
	BaseMaxMembers      int           `mapstructure:"base_max_members"`
	InviteTTL           time.Duration `mapstructure:"invite_ttl"`
	InactivityDays      int           `mapstructure:"inactivity_days"`
	RaidMinGuildLevel   int           `mapstructure:"raid_min_guild_level"`
	RaidDuration        time.Duration `mapstructure:"raid_duration"`
	DailySweepInterval  time.Duration `mapstructure:"daily_sweep_interval"`
	WeeklySweepInterval time.Duration `mapstructure:"weekly_sweep_interval"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTLH        time.Duration `mapstructure:"jwt_ttl_h"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.server_id", "s1")
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/guilds.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("guild.creation_cost", 10000)
	v.SetDefault("guild.min_create_level", 10)
	v.SetDefault("guild.base_max_members", 30)
	v.SetDefault("guild.invite_ttl", "168h")
	v.SetDefault("guild.inactivity_days", 14)
	v.SetDefault("guild.raid_min_guild_level", 5)
	v.SetDefault("guild.raid_duration", "48h")
	v.SetDefault("guild.daily_sweep_interval", "1h")
	v.SetDefault("guild.weekly_sweep_interval", "6h")
	v.SetDefault("security.jwt_ttl_h", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
