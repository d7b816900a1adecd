package constants

const (
	AppName      = "hairai"
	DisplayName  = "HairAI"
	ConfigName   = "config"
	ConfigFormat = "yaml"

	// EnvPrefix is prepended to every environment override, e.g. HAIRAI_DATABASE_HOST.
	EnvPrefix = "HAIRAI"
)
