package config

// ConfigBackend is where visitlog settings persist between runs: UserDefaults
// (domain com.visitlog.app) on macOS, a JSON file under XDG_CONFIG_HOME
// elsewhere. Secrets never go through a backend.
type ConfigBackend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	GetBool(key string) (val bool, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	SetBool(key string, val bool) error
	Delete(key string) error
}
