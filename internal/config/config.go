package config

type Config interface {
	EnvConfig
	SessionConfig
	RedisConfig
	AuthorityConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Session
	Redis
	Authority
}

func New() Config {
	return mainConfig{}
}
