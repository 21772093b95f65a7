package config

import (
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v2"
)

func TestBuiltinConfig(t *testing.T) {
	rawConfig := make(map[string]interface{})
	assert.Nil(t, yaml.Unmarshal(defaultConfigData, &rawConfig))

	knownFields := make(map[string]bool)
	rt := reflect.TypeOf(Configuration{})
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		assert.NotEmpty(t, jsonTag)
		jsonField := strings.Split(jsonTag, ",")[0]
		knownFields[jsonField] = true

		if _, ok := rawConfig[jsonField]; !ok {
			assert.False(t, true, "default config missing field: %q", jsonField)
		}
	}

	for k := range rawConfig {
		_, ok := knownFields[k]
		assert.True(t, ok, "default config contains invalid field: %q", k)
	}
}

func TestDefaultConfig(t *testing.T) {
	// Will panic() on load failure because it should never happen at runtime.
	cfg := defaultConfig()
	assert.NotNil(t, cfg)
	assert.Nil(t, cfg.Validate())
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.EventLogEnabled())

	_, err := cfg.OpenEventLog()
	assert.ErrorIs(t, err, ErrEventLogDisabled)

	limits := cfg.Limits()
	assert.Equal(t, 1024, limits.MaxLineLength)
	assert.Equal(t, 100, limits.MaxArgs)
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate  func(*Configuration)
		wantErr string
	}{
		"default": {
			mutate: func(*Configuration) {},
		},
		"blank prompt": {
			mutate:  func(c *Configuration) { c.Prompt = "" },
			wantErr: "prompt",
		},
		"bad color": {
			mutate:  func(c *Configuration) { c.Color = "rainbow" },
			wantErr: "color",
		},
		"zero args": {
			mutate:  func(c *Configuration) { c.MaxArgs = 0 },
			wantErr: "max_args",
		},
		"huge job table": {
			mutate:  func(c *Configuration) { c.JobCapacity = 1 << 20 },
			wantErr: "job_capacity",
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}
