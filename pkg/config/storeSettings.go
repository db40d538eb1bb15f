package config

// StoreSettings selects and configures the durable submission store.
type StoreSettings struct {
	Type   string `mapstructure:"type" validate:"required,oneof=sqlite postgres spanner mongo memory"`
	Path   string `mapstructure:"path"`    // sqlite file path
	DSN    string `mapstructure:"dsn"`     // postgres
	URI    string `mapstructure:"uri"`     // spanner database or mongo connection string
	DBName string `mapstructure:"db_name"` // mongo database name
}
