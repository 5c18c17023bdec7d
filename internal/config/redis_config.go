package config

// RedisConfig locates the Redis instance backing the remote session records.
// An empty address means the in-memory store is used instead.
type RedisConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
}

type Redis struct{}

var _ RedisConfig = Redis{}

func (Redis) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func (Redis) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}
