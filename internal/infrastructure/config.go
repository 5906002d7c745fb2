package infra

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pot-code/learning-path/internal/infrastructure/validate"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix env prefix for viper
const EnvPrefix = "LEARNPATH"

// runtime environments
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// AppConfig App option object
type AppConfig struct {
	AppID          string        `mapstructure:"app_id" json:"app_id" yaml:"app_id" validate:"required"`            // Application ID
	Host           string        `mapstructure:"host" json:"host" yaml:"host"`                                      // bind host address
	Port           int           `mapstructure:"port" json:"port" yaml:"port" validate:"min=1,max=65535"`           // bind listen port
	Env            string        `mapstructure:"env" json:"env" yaml:"env" validate:"oneof=development production"` // runtime environment
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout" yaml:"request_timeout"`     // abort request after
	Logging        struct {
		FilePath string `mapstructure:"file_path" json:"file_path" yaml:"file_path"`                            // log file path
		Level    string `mapstructure:"level" json:"level" yaml:"level" validate:"oneof=debug info warn error"` // global logging level
	} `mapstructure:"logging" json:"logging" yaml:"logging"`
	Security struct {
		IDLength   int    `mapstructure:"id_length" json:"id_length" yaml:"id_length" validate:"min=8"` // length of generated ID for entities
		IDAlphabet string `mapstructure:"id_alphabet" json:"id_alphabet" yaml:"id_alphabet"`           // alphabet of generated ID
	} `mapstructure:"security" json:"security" yaml:"security"`
	KVStore struct {
		Driver   string `mapstructure:"driver" json:"driver" yaml:"driver" validate:"oneof=memory redis postgres mysql"`
		Key      string `mapstructure:"key" json:"key" yaml:"key" validate:"required"`                               // key holding the learning path collection
		Host     string `mapstructure:"host" json:"host" yaml:"host"`                                                // server host
		Port     int    `mapstructure:"port" json:"port" yaml:"port"`                                                // server port
		Password string `mapstructure:"password" json:"password" yaml:"password"`                                    // server password
		DB       int    `mapstructure:"db" json:"db" yaml:"db"`                                                      // redis logical db
		User     string `mapstructure:"username" json:"username" yaml:"username"`                                    // sql username
		Schema   string `mapstructure:"schema" json:"schema" yaml:"schema"`                                          // sql schema
		Protocol string `mapstructure:"protocol" json:"protocol" yaml:"protocol" validate:"omitempty,oneof=tcp udp"` // sql connection protocol, eg.tcp
		Query    string `mapstructure:"query" json:"query" yaml:"query"`                                             // sql DSN query parameter
		MaxConn  int32  `mapstructure:"maxconn" json:"maxconn" yaml:"maxconn"`                                       // sql maximum opening connections number
	} `mapstructure:"kv" json:"kv" yaml:"kv"`
	Validation struct {
		Locale string `mapstructure:"locale" json:"locale" yaml:"locale" validate:"oneof=en zh"` // language of validation messages
	} `mapstructure:"validation" json:"validation" yaml:"validation"`
	DevOP struct {
		APM bool `mapstructure:"apm" json:"apm" yaml:"apm"`
	} `mapstructure:"devop" json:"devop" yaml:"devop"`
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("learnpathd", pflag.ContinueOnError)

	// app
	fs.String("host", "", "binding address")
	fs.String("app_id", "", "application identifier (required)")
	fs.String("env", EnvDevelopment, "runtime environment, can be 'development' or 'production'")
	fs.Int("port", 8081, "listening port")
	fs.Duration("request_timeout", 30*time.Second, "abort request after(m, s and h units are supported), eg.30s")

	// logging
	fs.String("logging.level", "info", "logging level")
	fs.String("logging.file_path", "", "log to file")

	// security
	fs.Int("security.id_length", 21, "set length of generated ID for entities")
	fs.String("security.id_alphabet", "", "alphabet of generated ID, nanoid default if empty")

	// kv storage
	fs.String("kv.driver", "memory", "persistence substrate, one of memory, redis, postgres or mysql")
	fs.String("kv.key", "learning_paths", "key holding the serialized learning path collection")
	fs.String("kv.host", "127.0.0.1", "kv host")
	fs.Int("kv.port", 6379, "kv server port")
	fs.String("kv.password", "", "kv server password")
	fs.Int("kv.db", 0, "redis logical database")
	fs.String("kv.username", "", "sql username")
	fs.String("kv.schema", "", "sql schema")
	fs.String("kv.protocol", "", "connection protocol(if mysql is used, this flag must be set), eg.tcp")
	fs.String("kv.query", "", `additional DSN query parameters('?' is auto prefixed)`)
	fs.Int32("kv.maxconn", 10, "sql max connection count")

	// validation
	fs.String("validation.locale", "en", "language of validation messages, 'en' or 'zh'")

	// DevOp
	fs.Bool("devop.apm", false, "enable apm metrics")
	return fs
}

// InitConfig init app config using viper, args are command line arguments without program name
func InitConfig(args []string) (*AppConfig, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config = new(AppConfig)
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}
	if err := validateConfig(config); err != nil {
		return nil, err
	}
	if config.Logging.Level == "debug" {
		if configJSON, err := json.MarshalIndent(config, "", "  "); err == nil {
			log.Printf("App config: %s\n", string(configJSON))
		}
	}
	return config, nil
}

func validateConfig(config *AppConfig) error {
	v10 := validator.New()
	v10.RegisterTagNameFunc(validate.JSONTagName)
	err := v10.Struct(config)
	if err == nil {
		return nil
	}
	if _, ok := err.(*validator.InvalidValidationError); ok {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	var msg []string
	for _, field := range err.(validator.ValidationErrors) {
		namespace := field.Namespace()
		fieldName := namespace[strings.IndexByte(namespace, '.')+1:] // trim top level namespace
		switch field.Tag() {
		case "required":
			msg = append(msg, fmt.Sprintf("%s is required", fieldName))
		case "oneof":
			msg = append(msg, fmt.Sprintf("%s must be one of (%s)", fieldName, field.Param()))
		default:
			msg = append(msg, fmt.Sprintf("%s failed on %s=%s", fieldName, field.Tag(), field.Param()))
		}
	}
	return fmt.Errorf("failed to validate config: \n%s", strings.Join(msg, "\n"))
}
