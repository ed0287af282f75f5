package config

import (
	"fmt"
	"time"
)

// configFile mirrors Config with durations as strings and every scalar as a
// pointer, so only keys present in the file are applied.
type configFile struct {
	Server *struct {
		Host         *string `json:"host"`
		Port         *int    `json:"port"`
		ReadBuffer   *int    `json:"read_buffer"`
		MaxFrame     *int    `json:"max_frame"`
		WriteTimeout *string `json:"write_timeout"`
		Tick         *string `json:"tick"`
	} `json:"server"`
	Session *struct {
		HeartbeatTTL *string `json:"heartbeat_ttl"`
		Mirror       *bool   `json:"mirror"`
	} `json:"session"`
	Call *struct {
		Timeout *string `json:"timeout"`
	} `json:"call"`
	Auth *struct {
		PasswordPolicy *string `json:"password_policy"`
		LoginAttempts  *int    `json:"login_attempts"`
		LoginWindow    *string `json:"login_window"`
	} `json:"auth"`
	Database *struct {
		Driver          *string `json:"driver"`
		Path            *string `json:"path"`
		Host            *string `json:"host"`
		Port            *int    `json:"port"`
		Name            *string `json:"name"`
		User            *string `json:"user"`
		Password        *string `json:"password"`
		SSLMode         *string `json:"sslmode"`
		MaxConnections  *int    `json:"max_connections"`
		Timeout         *string `json:"timeout"`
		WriteRetryDelay *string `json:"write_retry_delay"`
		Seed            *bool   `json:"seed"`
	} `json:"database"`
	Cache *struct {
		Backend   *string `json:"backend"`
		TTL       *string `json:"ttl"`
		RedisAddr *string `json:"redis_addr"`
		Prefix    *string `json:"prefix"`
	} `json:"cache"`
	Gateway *struct {
		Enabled      *bool   `json:"enabled"`
		Host         *string `json:"host"`
		Port         *int    `json:"port"`
		ReadTimeout  *string `json:"read_timeout"`
		WriteTimeout *string `json:"write_timeout"`
	} `json:"gateway"`
	Discovery *struct {
		Enabled  *bool   `json:"enabled"`
		Instance *string `json:"instance"`
		Service  *string `json:"service"`
	} `json:"discovery"`
	Game *struct {
		ImageDir *string `json:"image_dir"`
	} `json:"game"`
	Log *struct {
		Level  *string `json:"level"`
		Format *string `json:"format"`
	} `json:"log"`
}

func (f *configFile) apply(c *Config) error {
	var err error
	dur := func(src *string, dst *time.Duration, key string) {
		if err != nil || src == nil {
			return
		}
		d, perr := time.ParseDuration(*src)
		if perr != nil {
			err = fmt.Errorf("%s: %w", key, perr)
			return
		}
		*dst = d
	}

	if s := f.Server; s != nil {
		set(s.Host, &c.Server.Host)
		set(s.Port, &c.Server.Port)
		set(s.ReadBuffer, &c.Server.ReadBuffer)
		set(s.MaxFrame, &c.Server.MaxFrame)
		dur(s.WriteTimeout, &c.Server.WriteTimeout, "server.write_timeout")
		dur(s.Tick, &c.Server.Tick, "server.tick")
	}
	if s := f.Session; s != nil {
		dur(s.HeartbeatTTL, &c.Session.HeartbeatTTL, "session.heartbeat_ttl")
		set(s.Mirror, &c.Session.Mirror)
	}
	if s := f.Call; s != nil {
		dur(s.Timeout, &c.Call.Timeout, "call.timeout")
	}
	if s := f.Auth; s != nil {
		set(s.PasswordPolicy, &c.Auth.PasswordPolicy)
		set(s.LoginAttempts, &c.Auth.LoginAttempts)
		dur(s.LoginWindow, &c.Auth.LoginWindow, "auth.login_window")
	}
	if s := f.Database; s != nil {
		set(s.Driver, &c.Database.Driver)
		set(s.Path, &c.Database.Path)
		set(s.Host, &c.Database.Host)
		set(s.Port, &c.Database.Port)
		set(s.Name, &c.Database.Name)
		set(s.User, &c.Database.User)
		set(s.Password, &c.Database.Password)
		set(s.SSLMode, &c.Database.SSLMode)
		set(s.MaxConnections, &c.Database.MaxConnections)
		dur(s.Timeout, &c.Database.Timeout, "database.timeout")
		dur(s.WriteRetryDelay, &c.Database.WriteRetryDelay, "database.write_retry_delay")
		set(s.Seed, &c.Database.Seed)
	}
	if s := f.Cache; s != nil {
		set(s.Backend, &c.Cache.Backend)
		dur(s.TTL, &c.Cache.TTL, "cache.ttl")
		set(s.RedisAddr, &c.Cache.RedisAddr)
		set(s.Prefix, &c.Cache.Prefix)
	}
	if s := f.Gateway; s != nil {
		set(s.Enabled, &c.Gateway.Enabled)
		set(s.Host, &c.Gateway.Host)
		set(s.Port, &c.Gateway.Port)
		dur(s.ReadTimeout, &c.Gateway.ReadTimeout, "gateway.read_timeout")
		dur(s.WriteTimeout, &c.Gateway.WriteTimeout, "gateway.write_timeout")
	}
	if s := f.Discovery; s != nil {
		set(s.Enabled, &c.Discovery.Enabled)
		set(s.Instance, &c.Discovery.Instance)
		set(s.Service, &c.Discovery.Service)
	}
	if s := f.Game; s != nil {
		set(s.ImageDir, &c.Game.ImageDir)
	}
	if s := f.Log; s != nil {
		set(s.Level, &c.Log.Level)
		set(s.Format, &c.Log.Format)
	}
	return err
}

func set[T any](src *T, dst *T) {
	if src != nil {
		*dst = *src
	}
}
