package config

// EnvPrefix scopes every environment variable consumed by the service.
const EnvPrefix = "tripdesk"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "TRIPDESK_DB_DSN"
	EnvDBHost = "TRIPDESK_DB_HOST"
	EnvDBUser = "TRIPDESK_DB_USER"
	EnvDBName = "TRIPDESK_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
