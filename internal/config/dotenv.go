package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const maxPlayersCeiling = 50

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Bind              string
	Port              int
	DatabaseURL       string
	LogLevel          string
	MaxPlayers        int
	RoomTTL           time.Duration
	SweepInterval     time.Duration
	CodeLength        int
	CodeAttempts      int
	RoundTime         time.Duration
	TimedRounds       bool
	RevealDelay       time.Duration
	ResultsDelay      time.Duration
	QuestionsPerGame  int
	PointsBase        int
	BonusMax          int
	TargetPoints      int
	AutoCreateRooms   bool
	AllowLateJoin     bool
	HeartbeatInterval time.Duration
	MessagesPerSecond float64
	MessageBurst      int
	AllowedOrigins    []string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
}

func Default() Config {
	return Config{
		Bind:              "0.0.0.0",
		Port:              8080,
		LogLevel:          "info",
		MaxPlayers:        8,
		RoomTTL:           24 * time.Hour,
		SweepInterval:     time.Minute,
		CodeLength:        6,
		CodeAttempts:      5,
		RoundTime:         30 * time.Second,
		TimedRounds:       true,
		RevealDelay:       1500 * time.Millisecond,
		ResultsDelay:      5 * time.Second,
		QuestionsPerGame:  10,
		PointsBase:        500,
		BonusMax:          500,
		TargetPoints:      1000,
		HeartbeatInterval: 30 * time.Second,
		MessagesPerSecond: 10,
		MessageBurst:      20,
		AllowedOrigins:    []string{"*"},
		DBMaxOpenConns:    10,
		DBMaxIdleConns:    10,
		DBConnMaxLifetime: 5 * time.Minute,
	}
}

// BindFlags registers every setting on fs and binds it to v, so lookups
// resolve flag > environment > default.
func BindFlags(fs *pflag.FlagSet, v *viper.Viper) {
	def := Default()

	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringP("bind", "b", def.Bind, "address to bind to (env: BIND)")
	fs.IntP("port", "p", def.Port, "port to listen on (env: PORT)")
	fs.String("database-url", "", "postgres dsn for the question bank and users (env: DATABASE_URL)")
	fs.String("log-level", def.LogLevel, "debug, info, warn or error (env: LOG_LEVEL)")
	fs.Int("max-players", def.MaxPlayers, "default player limit per room (env: MAX_PLAYERS)")
	fs.Duration("room-ttl", def.RoomTTL, "lifetime of a room before it is force-closed (env: ROOM_TTL)")
	fs.Duration("sweep-interval", def.SweepInterval, "how often expired rooms are swept (env: SWEEP_INTERVAL)")
	fs.Int("code-length", def.CodeLength, "number of digits in a room code (env: CODE_LENGTH)")
	fs.Int("code-attempts", def.CodeAttempts, "random code draws before a linear scan (env: CODE_ATTEMPTS)")
	fs.Duration("round-time", def.RoundTime, "time limit for a question (env: ROUND_TIME)")
	fs.Bool("timed-rounds", def.TimedRounds, "close questions when the round time elapses (env: TIMED_ROUNDS)")
	fs.Duration("reveal-delay", def.RevealDelay, "pause before results are shown (env: REVEAL_DELAY)")
	fs.Duration("results-delay", def.ResultsDelay, "time results stay up before the next question (env: RESULTS_DELAY)")
	fs.Int("questions-per-game", def.QuestionsPerGame, "questions drawn per game (env: QUESTIONS_PER_GAME)")
	fs.Int("points-base", def.PointsBase, "points for a correct answer (env: POINTS_BASE)")
	fs.Int("target-points", def.TargetPoints, "default score target announced to players (env: TARGET_POINTS)")
	fs.Int("bonus-max", def.BonusMax, "maximum speed bonus for a correct answer (env: BONUS_MAX)")
	fs.Bool("auto-create-rooms", def.AutoCreateRooms, "create rooms on join to an unknown code (env: AUTO_CREATE_ROOMS)")
	fs.Bool("allow-late-join", def.AllowLateJoin, "allow joining a game in progress (env: ALLOW_LATE_JOIN)")
	fs.Duration("heartbeat-interval", def.HeartbeatInterval, "websocket ping interval (env: HEARTBEAT_INTERVAL)")
	fs.Float64("messages-per-second", def.MessagesPerSecond, "per-connection message rate (env: MESSAGES_PER_SECOND)")
	fs.Int("message-burst", def.MessageBurst, "per-connection message burst (env: MESSAGE_BURST)")
	fs.StringSlice("allowed-origins", def.AllowedOrigins, "allowed CORS origins (env: ALLOWED_ORIGINS)")

	fs.Int("db-max-open-conns", def.DBMaxOpenConns, "postgres pool size (env: DB_MAX_OPEN_CONNS)")
	fs.Int("db-max-idle-conns", def.DBMaxIdleConns, "idle postgres connections kept (env: DB_MAX_IDLE_CONNS)")
	fs.Duration("db-conn-max-lifetime", def.DBConnMaxLifetime, "postgres connection lifetime (env: DB_CONN_MAX_LIFETIME)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
	})
}

// FromViper reads a Config out of v. Keys missing from v keep their defaults.
func FromViper(v *viper.Viper) Config {
	cfg := Default()
	if v.IsSet("bind") {
		cfg.Bind = v.GetString("bind")
	}
	if v.IsSet("port") {
		cfg.Port = v.GetInt("port")
	}
	if v.IsSet("database-url") {
		cfg.DatabaseURL = v.GetString("database-url")
	}
	if v.IsSet("log-level") {
		cfg.LogLevel = v.GetString("log-level")
	}
	if v.IsSet("max-players") {
		cfg.MaxPlayers = v.GetInt("max-players")
	}
	if v.IsSet("room-ttl") {
		cfg.RoomTTL = v.GetDuration("room-ttl")
	}
	if v.IsSet("sweep-interval") {
		cfg.SweepInterval = v.GetDuration("sweep-interval")
	}
	if v.IsSet("code-length") {
		cfg.CodeLength = v.GetInt("code-length")
	}
	if v.IsSet("code-attempts") {
		cfg.CodeAttempts = v.GetInt("code-attempts")
	}
	if v.IsSet("round-time") {
		cfg.RoundTime = v.GetDuration("round-time")
	}
	if v.IsSet("timed-rounds") {
		cfg.TimedRounds = v.GetBool("timed-rounds")
	}
	if v.IsSet("reveal-delay") {
		cfg.RevealDelay = v.GetDuration("reveal-delay")
	}
	if v.IsSet("results-delay") {
		cfg.ResultsDelay = v.GetDuration("results-delay")
	}
	if v.IsSet("questions-per-game") {
		cfg.QuestionsPerGame = v.GetInt("questions-per-game")
	}
	if v.IsSet("points-base") {
		cfg.PointsBase = v.GetInt("points-base")
	}
	if v.IsSet("bonus-max") {
		cfg.BonusMax = v.GetInt("bonus-max")
	}
	if v.IsSet("auto-create-rooms") {
		cfg.AutoCreateRooms = v.GetBool("auto-create-rooms")
	}
	if v.IsSet("allow-late-join") {
		cfg.AllowLateJoin = v.GetBool("allow-late-join")
	}
	if v.IsSet("heartbeat-interval") {
		cfg.HeartbeatInterval = v.GetDuration("heartbeat-interval")
	}
	if v.IsSet("messages-per-second") {
		cfg.MessagesPerSecond = v.GetFloat64("messages-per-second")
	}
	if v.IsSet("message-burst") {
		cfg.MessageBurst = v.GetInt("message-burst")
	}
	if v.IsSet("allowed-origins") {
		if origins := v.GetStringSlice("allowed-origins"); len(origins) > 0 {
			cfg.AllowedOrigins = origins
		}
	}
	if v.IsSet("db-max-open-conns") {
		cfg.DBMaxOpenConns = v.GetInt("db-max-open-conns")
	}
	if v.IsSet("db-max-idle-conns") {
		cfg.DBMaxIdleConns = v.GetInt("db-max-idle-conns")
	}
	if v.IsSet("target-points") {
		cfg.TargetPoints = v.GetInt("target-points")
	}
	if v.IsSet("db-conn-max-lifetime") {
		cfg.DBConnMaxLifetime = v.GetDuration("db-conn-max-lifetime")
	}
	return cfg
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.MaxPlayers < 1 || c.MaxPlayers > maxPlayersCeiling {
		return fmt.Errorf("max players must be between 1 and %d: %d", maxPlayersCeiling, c.MaxPlayers)
	}
	if c.CodeLength < 1 || c.CodeLength > 9 {
		return fmt.Errorf("code length must be between 1 and 9: %d", c.CodeLength)
	}
	if c.CodeAttempts < 0 {
		return errors.New("code attempts must not be negative")
	}
	if c.RoomTTL <= 0 || c.SweepInterval <= 0 || c.RoundTime <= 0 || c.HeartbeatInterval <= 0 {
		return errors.New("room ttl, sweep interval, round time and heartbeat interval must be positive")
	}
	if c.RevealDelay < 0 || c.ResultsDelay < 0 {
		return errors.New("reveal and results delays must not be negative")
	}
	if c.QuestionsPerGame < 1 {
		return fmt.Errorf("questions per game must be positive: %d", c.QuestionsPerGame)
	}
	if c.PointsBase < 0 || c.BonusMax < 0 {
		return errors.New("scoring constants must not be negative")
	}
	if c.TargetPoints < 1 {
		return fmt.Errorf("target points must be positive: %d", c.TargetPoints)
	}
	if c.MessagesPerSecond <= 0 || c.MessageBurst < 1 {
		return errors.New("message rate and burst must be positive")
	}
	return nil
}

// MaxPlayersCeiling is the largest per-room limit a create request may ask for.
func MaxPlayersCeiling() int {
	return maxPlayersCeiling
}
