// Package job defines crawl job configuration and identity shared by the scheduler, the classifier and the api.
package job

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
)

// DefaultMaxItems is the item limit used in default limit mode when no explicit value set
const DefaultMaxItems = 50

// ErrInvalidConfig returned for job configs rejected at submission
var ErrInvalidConfig = errors.New("invalid job config")

// Config is a per-job crawler configuration
type Config struct {
	MaxItems  int             `json:"max_items,omitempty" yaml:"max_items"`
	LimitMode enums.LimitMode `json:"limit_mode" yaml:"limit_mode"`
	Headless  bool            `json:"headless" yaml:"headless"`
}

// Spec describes a single job to submit, store and category must be known to the catalog
type Spec struct {
	Store    string `json:"store"`
	Category string `json:"category"`
	Config   Config `json:"config"`
}

// Validate checks config consistency. Zero LimitMode is treated as default.
func (c Config) Validate() error {
	if c.MaxItems < 0 {
		return fmt.Errorf("%w: negative max items %d", ErrInvalidConfig, c.MaxItems)
	}
	if c.LimitMode == enums.LimitModeCustom && c.MaxItems == 0 {
		return fmt.Errorf("%w: custom limit mode requires max items", ErrInvalidConfig)
	}
	return nil
}

// EffectiveMax returns the item limit passed to the crawler, 0 means unlimited
func (c Config) EffectiveMax() int {
	switch c.LimitMode {
	case enums.LimitModeAll:
		return 0
	case enums.LimitModeCustom:
		return c.MaxItems
	default:
		if c.MaxItems > 0 {
			return c.MaxItems
		}
		return DefaultMaxItems
	}
}

// Env returns environment variables the crawler reads its config from
func (c Config) Env() map[string]string {
	res := map[string]string{"HEADLESS_MODE": strconv.FormatBool(c.Headless)}
	if limit := c.EffectiveMax(); limit > 0 {
		res["MAX_ITEMS"] = strconv.Itoa(limit)
	}
	return res
}

// NewID makes job id in {store}_{category}_{unix timestamp} form
func NewID(store, category string, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%d", store, category, ts.Unix())
}
