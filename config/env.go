package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Environment keys that override file values. The process environment wins
// over .env.
const (
	EnvHTTPAddr      = "HOTSERVE_HTTP_ADDR"
	EnvGRPCAddr      = "HOTSERVE_GRPC_ADDR"
	EnvAppEnv        = "APP_ENV"
	EnvDBDriver      = "DB_DRIVER"
	EnvDatabaseDSN   = "DATABASE_DSN"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvLogLevel      = "LOG_LEVEL"
	EnvLogMongoURI   = "LOG_MONGO_URI"
)

type envSource map[string]string

// loadEnv reads a .env file. A missing file yields an empty source.
func loadEnv(path string) (envSource, error) {
	out := envSource{}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, fmt.Errorf("config: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		idx := strings.IndexByte(line, '=')
		if idx <= 0 {
			continue
		}

		key := strings.ToUpper(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}
		out[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return out, nil
}

func (e envSource) get(key string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(e[key])
}

func (e envSource) apply(r *rawFile) {
	setString(&r.Server.HTTPAddr, e.get(EnvHTTPAddr))
	setString(&r.Server.GRPCAddr, e.get(EnvGRPCAddr))
	setString(&r.App.Env, e.get(EnvAppEnv))
	setString(&r.Database.Driver, e.get(EnvDBDriver))
	setString(&r.Database.DSN, e.get(EnvDatabaseDSN))
	setString(&r.Redis.Addr, e.get(EnvRedisAddr))
	setString(&r.Redis.Password, e.get(EnvRedisPassword))
	setString(&r.Log.Level, e.get(EnvLogLevel))
	setString(&r.Log.MongoURI, e.get(EnvLogMongoURI))
}
