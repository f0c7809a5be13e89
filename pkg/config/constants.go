package config

// EnvPrefix is the envconfig prefix shared by every binary.
const EnvPrefix = "bearmarket"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "BEARMARKET_DB_DSN"
	EnvDBHost = "BEARMARKET_DB_HOST"
	EnvDBUser = "BEARMARKET_DB_USER"
	EnvDBName = "BEARMARKET_DB_NAME"

	EnvChainRPCEndpoints = "BEARMARKET_CHAIN_RPC_ENDPOINTS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
