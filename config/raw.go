package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// rawFile mirrors the on-disk layout. Durations stay strings until resolve
// so that YAML and JSON accept the same "1500ms" form.
type rawFile struct {
	App struct {
		Name string `yaml:"name" json:"name"`
		Env  string `yaml:"env" json:"env"`
	} `yaml:"app" json:"app"`

	Server struct {
		HTTPAddr        string `yaml:"http_addr" json:"http_addr"`
		GRPCAddr        string `yaml:"grpc_addr" json:"grpc_addr"`
		ShutdownTimeout string `yaml:"shutdown_timeout" json:"shutdown_timeout"`
		BindRetry       string `yaml:"bind_retry" json:"bind_retry"`
	} `yaml:"server" json:"server"`

	Watch struct {
		Debounce string   `yaml:"debounce" json:"debounce"`
		Paths    []string `yaml:"paths" json:"paths"`
	} `yaml:"watch" json:"watch"`

	Routes []rawRoute `yaml:"routes" json:"routes"`

	GraphQL struct {
		Enabled *bool             `yaml:"enabled" json:"enabled"`
		Path    string            `yaml:"path" json:"path"`
		Fields  map[string]string `yaml:"fields" json:"fields"`
	} `yaml:"graphql" json:"graphql"`

	Database struct {
		Driver string `yaml:"driver" json:"driver"`
		DSN    string `yaml:"dsn" json:"dsn"`
	} `yaml:"database" json:"database"`

	Redis struct {
		Addr     string `yaml:"addr" json:"addr"`
		Password string `yaml:"password" json:"password"`
		DB       *int   `yaml:"db" json:"db"`
	} `yaml:"redis" json:"redis"`

	Log struct {
		Level           string `yaml:"level" json:"level"`
		MongoURI        string `yaml:"mongo_uri" json:"mongo_uri"`
		MongoDatabase   string `yaml:"mongo_database" json:"mongo_database"`
		MongoCollection string `yaml:"mongo_collection" json:"mongo_collection"`
	} `yaml:"log" json:"log"`
}

type rawRoute struct {
	Name        string `yaml:"name" json:"name"`
	Method      string `yaml:"method" json:"method"`
	Path        string `yaml:"path" json:"path"`
	Status      int    `yaml:"status" json:"status"`
	ContentType string `yaml:"content_type" json:"content_type"`
	Body        string `yaml:"body" json:"body"`
}

func (r *rawFile) merge(o rawFile) {
	setString(&r.App.Name, o.App.Name)
	setString(&r.App.Env, o.App.Env)

	setString(&r.Server.HTTPAddr, o.Server.HTTPAddr)
	setString(&r.Server.GRPCAddr, o.Server.GRPCAddr)
	setString(&r.Server.ShutdownTimeout, o.Server.ShutdownTimeout)
	setString(&r.Server.BindRetry, o.Server.BindRetry)

	setString(&r.Watch.Debounce, o.Watch.Debounce)
	r.Watch.Paths = append(r.Watch.Paths, o.Watch.Paths...)

	r.Routes = append(r.Routes, o.Routes...)

	if o.GraphQL.Enabled != nil {
		r.GraphQL.Enabled = o.GraphQL.Enabled
	}
	setString(&r.GraphQL.Path, o.GraphQL.Path)
	if len(o.GraphQL.Fields) > 0 && r.GraphQL.Fields == nil {
		r.GraphQL.Fields = make(map[string]string, len(o.GraphQL.Fields))
	}
	for k, v := range o.GraphQL.Fields {
		r.GraphQL.Fields[k] = v
	}

	setString(&r.Database.Driver, o.Database.Driver)
	setString(&r.Database.DSN, o.Database.DSN)

	setString(&r.Redis.Addr, o.Redis.Addr)
	setString(&r.Redis.Password, o.Redis.Password)
	if o.Redis.DB != nil {
		r.Redis.DB = o.Redis.DB
	}

	setString(&r.Log.Level, o.Log.Level)
	setString(&r.Log.MongoURI, o.Log.MongoURI)
	setString(&r.Log.MongoDatabase, o.Log.MongoDatabase)
	setString(&r.Log.MongoCollection, o.Log.MongoCollection)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

var validMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

// resolve applies defaults and validates.
func (r *rawFile) resolve() (*Snapshot, error) {
	s := &Snapshot{
		App: App{
			Name: or(r.App.Name, defaultAppName),
			Env:  or(r.App.Env, defaultAppEnv),
		},
		Server: Server{
			HTTPAddr: or(r.Server.HTTPAddr, defaultHTTPAddr),
			GRPCAddr: r.Server.GRPCAddr,
		},
		Log: Log{
			Level:           strings.ToLower(or(r.Log.Level, defaultLogLevel)),
			MongoURI:        r.Log.MongoURI,
			MongoDatabase:   or(r.Log.MongoDatabase, defaultMongoDatabase),
			MongoCollection: or(r.Log.MongoCollection, defaultMongoCollection),
		},
		Redis: Redis{
			Addr:     r.Redis.Addr,
			Password: r.Redis.Password,
		},
	}
	if r.Redis.DB != nil {
		s.Redis.DB = *r.Redis.DB
	}

	var err error
	if s.Server.ShutdownTimeout, err = duration("server.shutdown_timeout", r.Server.ShutdownTimeout, defaultShutdownTimeout); err != nil {
		return nil, err
	}
	if s.Server.BindRetry, err = duration("server.bind_retry", r.Server.BindRetry, defaultBindRetry); err != nil {
		return nil, err
	}
	if s.Watch.Debounce, err = duration("watch.debounce", r.Watch.Debounce, defaultDebounce); err != nil {
		return nil, err
	}
	if s.Watch.Debounce <= 0 {
		return nil, fmt.Errorf("config: watch.debounce must be positive, got %s", s.Watch.Debounce)
	}
	s.Watch.Paths = append([]string(nil), r.Watch.Paths...)

	driver := strings.ToLower(r.Database.Driver)
	switch driver {
	case "", "sqlite", "postgres", "mysql", "sqlserver":
	default:
		return nil, fmt.Errorf("config: database.driver: unknown driver %q", r.Database.Driver)
	}
	s.Database = Database{Driver: driver, DSN: or(r.Database.DSN, DefaultDSN(driver))}

	if s.Routes, err = resolveRoutes(r.Routes); err != nil {
		return nil, err
	}

	s.GraphQL = GraphQL{
		Enabled: r.GraphQL.Enabled != nil && *r.GraphQL.Enabled,
		Path:    or(r.GraphQL.Path, defaultGraphQLPath),
		Fields:  make(map[string]string, len(r.GraphQL.Fields)),
	}
	for k, v := range r.GraphQL.Fields {
		s.GraphQL.Fields[k] = v
	}
	if s.GraphQL.Enabled && !strings.HasPrefix(s.GraphQL.Path, "/") {
		return nil, fmt.Errorf("config: graphql.path must start with /, got %q", s.GraphQL.Path)
	}

	return s, nil
}

func resolveRoutes(raw []rawRoute) ([]Route, error) {
	routes := make([]Route, 0, len(raw))
	names := make(map[string]bool, len(raw))
	seen := make(map[string]bool, len(raw))

	for i, rr := range raw {
		rt := Route{
			Name:        strings.TrimSpace(rr.Name),
			Method:      strings.ToUpper(or(rr.Method, http.MethodGet)),
			Path:        strings.TrimSpace(rr.Path),
			Status:      rr.Status,
			ContentType: or(rr.ContentType, "application/json"),
			Body:        rr.Body,
		}
		if rt.Status == 0 {
			rt.Status = http.StatusOK
		}

		if !validMethods[rt.Method] {
			return nil, fmt.Errorf("config: routes[%d]: unsupported method %q", i, rr.Method)
		}
		if !strings.HasPrefix(rt.Path, "/") {
			return nil, fmt.Errorf("config: routes[%d]: path must start with /, got %q", i, rr.Path)
		}
		if rt.Status < 100 || rt.Status > 599 {
			return nil, fmt.Errorf("config: routes[%d]: invalid status %d", i, rt.Status)
		}
		if rt.Name != "" {
			if names[rt.Name] {
				return nil, fmt.Errorf("config: routes[%d]: duplicate route name %q", i, rt.Name)
			}
			names[rt.Name] = true
		}
		key := rt.Method + " " + rt.Path
		if seen[key] {
			return nil, fmt.Errorf("config: routes[%d]: duplicate route %s", i, key)
		}
		seen[key] = true

		routes = append(routes, rt)
	}
	return routes, nil
}

func duration(key, v string, fallback time.Duration) (time.Duration, error) {
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func or(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
