package config

// ServerSettings configures the ingress HTTP server.
type ServerSettings struct {
	Port int          `mapstructure:"port" validate:"required,min=1,max=65535"`
	CORS CORSSettings `mapstructure:"cors"`
}

// CORSSettings controls cross-origin access for browser form callers.
// An empty origin list allows every origin.
type CORSSettings struct {
	Enabled      bool     `mapstructure:"enabled"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}
