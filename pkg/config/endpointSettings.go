package config

import "time"

// EndpointSettings holds the remote collection endpoint contract side.
type EndpointSettings struct {
	URL     string        `mapstructure:"url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout"`
}
