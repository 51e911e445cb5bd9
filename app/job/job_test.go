package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
)

func TestConfig_Validate(t *testing.T) {
	tbl := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"zero value", Config{}, false},
		{"custom with limit", Config{LimitMode: enums.LimitModeCustom, MaxItems: 10}, false},
		{"custom without limit", Config{LimitMode: enums.LimitModeCustom}, true},
		{"negative", Config{MaxItems: -1}, true},
		{"all ignores limit", Config{LimitMode: enums.LimitModeAll, MaxItems: 5}, false},
	}
	for _, tt := range tbl {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConfig_EffectiveMaxAndEnv(t *testing.T) {
	assert.Equal(t, DefaultMaxItems, Config{}.EffectiveMax())
	assert.Equal(t, 10, Config{MaxItems: 10}.EffectiveMax())
	assert.Equal(t, 7, Config{LimitMode: enums.LimitModeCustom, MaxItems: 7}.EffectiveMax())
	assert.Equal(t, 0, Config{LimitMode: enums.LimitModeAll, MaxItems: 7}.EffectiveMax())

	assert.Equal(t, map[string]string{"HEADLESS_MODE": "true", "MAX_ITEMS": "10"},
		Config{MaxItems: 10, Headless: true}.Env())
	assert.Equal(t, map[string]string{"HEADLESS_MODE": "false"}, Config{LimitMode: enums.LimitModeAll}.Env())
}

func TestNewID(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "keells_vegetables_1714557600", NewID("keells", "vegetables", ts))
}
