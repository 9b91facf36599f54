package config

// APIConfig holds runtime configuration for the session API service.
type APIConfig struct {
	Environment        string
	Addr               string
	DatabaseURL        string
	MigrationsDir      string
	Courts             int
	PlayersPerTeam     int
	PlayersPerTeamMin  int
	PlayersPerTeamMax  int
	RateLimitRedisAddr string
	RateLimitRedisPass string
	RateLimitRedisDB   int
}

// LoadAPIConfig constructs an APIConfig from environment variables. An
// empty DATABASE_URL runs the service without a durable match archive.
func LoadAPIConfig() APIConfig {
	return APIConfig{
		Environment:        GetString("APP_ENV", "development"),
		Addr:               GetString("API_ADDR", ":4000"),
		DatabaseURL:        GetString("DATABASE_URL", ""),
		MigrationsDir:      GetString("DB_MIGRATIONS_DIR", "db/migrations"),
		Courts:             GetInt("GYM_COURTS", 2),
		PlayersPerTeam:     GetInt("GYM_PLAYERS_PER_TEAM", 6),
		PlayersPerTeamMin:  GetInt("GYM_PLAYERS_PER_TEAM_MIN", 6),
		PlayersPerTeamMax:  GetInt("GYM_PLAYERS_PER_TEAM_MAX", 8),
		RateLimitRedisAddr: GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass: GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:   GetInt("RATE_LIMIT_REDIS_DB", 0),
	}
}
