package config

import (
	_ "embed"
	"errors"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/josephlewis42/pipesh/core/shell"
	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

var (
	//go:embed default/config.yaml
	defaultConfigData []byte
)

const (
	ConfigurationName = "config.yaml"

	ColorAlways = "always"
	ColorAuto   = "auto"
	ColorNever  = "never"
)

// ErrEventLogDisabled is returned when opening an event log that isn't
// configured.
var ErrEventLogDisabled = errors.New("event log disabled")

type Configuration struct {
	configFs afero.Fs

	Prompt        string `json:"prompt" validate:"required"`
	Color         string `json:"color" validate:"oneof=always auto never"`
	MaxLineLength int    `json:"max_line_length" validate:"gte=1,lte=65536"`
	MaxArgs       int    `json:"max_args" validate:"gte=1,lte=4096"`
	JobCapacity   int    `json:"job_capacity" validate:"gte=1,lte=4096"`
	HistorySize   int    `json:"history_size" validate:"gte=1,lte=100000"`
	EventLog      string `json:"event_log"`
}

// Validate the configuration for basic semantic errors.
func (c *Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		return name
	})

	return validate.Struct(c)
}

// Limits returns the input bounds for the parser.
func (c *Configuration) Limits() shell.Limits {
	return shell.Limits{
		MaxLineLength: c.MaxLineLength,
		MaxArgs:       c.MaxArgs,
	}
}

func (c *Configuration) fs() afero.Fs {
	return c.configFs
}

// EventLogEnabled reports whether events should be recorded.
func (c *Configuration) EventLogEnabled() bool {
	return c.fs() != nil && c.EventLog != ""
}

// OpenEventLog opens the event log in an append only state.
func (c *Configuration) OpenEventLog() (afero.File, error) {
	if !c.EventLogEnabled() {
		return nil, ErrEventLogDisabled
	}
	return c.fs().OpenFile(c.EventLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
}

// ReadEventLog opens the event log for reading.
func (c *Configuration) ReadEventLog() (afero.File, error) {
	if !c.EventLogEnabled() {
		return nil, ErrEventLogDisabled
	}
	return c.fs().OpenFile(c.EventLog, os.O_RDONLY, 0600)
}

func defaultConfig() *Configuration {
	var out Configuration
	if err := yaml.UnmarshalStrict(defaultConfigData, &out); err != nil {
		panic(err)
	}
	return &out
}

// Default returns the built-in configuration. It has no backing directory so
// the event log is disabled.
func Default() *Configuration {
	cfg := defaultConfig()
	cfg.EventLog = ""
	return cfg
}
