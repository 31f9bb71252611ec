package config

import (
	"errors"
	"fmt"
	"net/url"
)

// AppConfig is everything the session server reads from the environment.
type AppConfig struct {
	Server ServerConfig
	Log    LogConfig
}

func LoadApp() (AppConfig, error) {
	var app AppConfig
	var err error
	if app.Log, err = LoadLog(); err != nil {
		return AppConfig{}, fmt.Errorf("log config: %w", err)
	}
	if app.Server, err = LoadServer(); err != nil {
		return AppConfig{}, fmt.Errorf("server config: %w", err)
	}
	if err := app.Server.Validate(); err != nil {
		return AppConfig{}, err
	}
	return app, nil
}

// Validate rejects combinations the session authority cannot run with.
func (c ServerConfig) Validate() error {
	var errs []error
	if c.RequiredParticipants < 1 {
		errs = append(errs, errors.New("REQUIRED_PARTICIPANTS must be at least 1"))
	}
	if c.MaxParticipants < c.RequiredParticipants {
		errs = append(errs, errors.New("MAX_PARTICIPANTS must not be below REQUIRED_PARTICIPANTS"))
	}
	if c.IdleKickSeconds <= 0 {
		errs = append(errs, errors.New("IDLE_KICK_SECONDS must be positive"))
	}
	if c.SettlementURL != "" {
		if u, err := url.Parse(c.SettlementURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("SETTLEMENT_URL %q is not an absolute URL", c.SettlementURL))
		}
	}
	return errors.Join(errs...)
}
