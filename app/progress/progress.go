// Package progress turns free-form crawler output lines into structured progress updates.
// Classification is a pure ordered rule table, the first matching rule wins.
package progress

import (
	"regexp"
	"strconv"
	"strings"

	log "github.com/go-pkgz/lgr"

	"github.com/FouetteBytes/shopple-admin-public-sub001/app/enums"
	"github.com/FouetteBytes/shopple-admin-public-sub001/app/job"
)

const maxStepLen = 200

// Update is a structured progress signal extracted from a single output line.
// Percent and Items are -1 when the line carries no such value.
type Update struct {
	Phase      enums.Phase
	Percent    int
	Step       string
	Items      int
	ItemsDelta int
	OutputFile string
}

// State is accumulated progress of a job
type State struct {
	Phase      enums.Phase
	Percent    int
	Step       string
	Items      int
	OutputFile string
}

type rule struct {
	name  string
	re    *regexp.Regexp
	apply func(m []string, cfg job.Config) *Update
}

var rules = []rule{
	{
		name: "error",
		re:   regexp.MustCompile(`(?i)^(?:error|exception|traceback)\b|\[error\]`),
		apply: func(m []string, _ job.Config) *Update {
			return &Update{Percent: -1, Items: -1, Step: "error: " + strings.TrimSpace(m[0])}
		},
	},
	{
		name: "reached-target",
		re:   regexp.MustCompile(`(?i)reached target of (\d+) items?`),
		apply: func(m []string, _ job.Config) *Update {
			n, ok := atoi(m[1])
			if !ok {
				return nil
			}
			return &Update{Phase: enums.PhaseSaving, Percent: 95, Items: n, Step: "reached target of " + m[1] + " items"}
		},
	},
	{
		name: "saved-file",
		re:   regexp.MustCompile(`(?i)saved (\d+) (?:products?|items?) to (\S+\.json)`),
		apply: func(m []string, _ job.Config) *Update {
			n, ok := atoi(m[1])
			if !ok {
				return nil
			}
			return &Update{Phase: enums.PhaseSaving, Percent: 98, Items: n, OutputFile: m[2], Step: "saved results"}
		},
	},
	{
		name: "total-found",
		re:   regexp.MustCompile(`\[PROGRESS\] Total items found: (\d+)`),
		apply: func(m []string, cfg job.Config) *Update {
			n, ok := atoi(m[1])
			if !ok {
				return nil
			}
			return &Update{Phase: enums.PhaseScraping, Percent: itemsPercent(n, cfg.EffectiveMax()), Items: n,
				Step: "found " + m[1] + " items"}
		},
	},
	{
		name: "found-products",
		re:   regexp.MustCompile(`(?i)found (\d+) (?:new )?(?:products?|items?)`),
		apply: func(m []string, cfg job.Config) *Update {
			n, ok := atoi(m[1])
			if !ok {
				return nil
			}
			return &Update{Phase: enums.PhaseScraping, Percent: itemsPercent(n, cfg.EffectiveMax()), Items: n,
				Step: "found " + m[1] + " products"}
		},
	},
	{
		name: "new-product",
		re:   regexp.MustCompile(`(?i)\bnew product\b`),
		apply: func(_ []string, _ job.Config) *Update {
			return &Update{Phase: enums.PhaseScraping, Percent: -1, Items: -1, ItemsDelta: 1}
		},
	},
	{
		name: "page",
		re:   regexp.MustCompile(`(?i)processing page (\d+)(?: of (\d+))?`),
		apply: func(m []string, _ job.Config) *Update {
			page, ok := atoi(m[1])
			if !ok {
				return nil
			}
			res := &Update{Phase: enums.PhaseScraping, Percent: -1, Items: -1, Step: "processing page " + m[1]}
			if total, ok := atoi(m[2]); ok && total > 0 {
				res.Percent = min(20+70*page/total, 90)
			}
			return res
		},
	},
	{
		name: "completed",
		re:   regexp.MustCompile(`(?i)(?:scraping|crawling|crawl) (?:completed|finished)`),
		apply: func(_ []string, _ job.Config) *Update {
			return &Update{Phase: enums.PhaseSaving, Percent: 95, Items: -1, Step: "scraping completed"}
		},
	},
	{
		name: "initial-page",
		re:   regexp.MustCompile(`(?i)initial page loaded`),
		apply: func(_ []string, _ job.Config) *Update {
			return &Update{Phase: enums.PhaseLoading, Percent: 15, Items: -1, Step: "initial page loaded"}
		},
	},
	{
		name: "navigating",
		re:   regexp.MustCompile(`(?i)navigating to`),
		apply: func(_ []string, _ job.Config) *Update {
			return &Update{Phase: enums.PhaseLoading, Percent: 10, Items: -1, Step: "navigating"}
		},
	},
	{
		name: "browser",
		re:   regexp.MustCompile(`(?i)(?:launching|starting) (?:the )?browser`),
		apply: func(_ []string, _ job.Config) *Update {
			return &Update{Phase: enums.PhaseInitializing, Percent: 5, Items: -1, Step: "starting browser"}
		},
	},
	{
		name: "scrolling",
		re:   regexp.MustCompile(`(?i)scrolling|loading more`),
		apply: func(_ []string, _ job.Config) *Update {
			return &Update{Phase: enums.PhaseScraping, Percent: -1, Items: -1, Step: "loading more items"}
		},
	},
}

// Classify returns progress update for the line or nil if the line carries no progress signal.
// It never panics, a failing rule is logged and treated as no signal.
func Classify(line string, cfg job.Config) (res *Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WARN] progress classifier failed on %q: %v", line, r)
			res = nil
		}
	}()

	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	for _, r := range rules {
		m := r.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if upd := r.apply(m, cfg); upd != nil {
			if len(upd.Step) > maxStepLen {
				upd.Step = upd.Step[:maxStepLen]
			}
			return upd
		}
	}
	return nil
}

// Merge applies update to the state. Percent and items never go down, items are capped
// by the effective limit of the job config.
func Merge(st State, u *Update, cfg job.Config) State {
	if u == nil {
		return st
	}
	limit := cfg.EffectiveMax()

	items := st.Items
	if u.Items > items {
		items = u.Items
	}
	items += u.ItemsDelta
	if limit > 0 && items > limit {
		items = limit
	}
	st.Items = max(items, st.Items)

	pct := max(u.Percent, itemsPercent(st.Items, limit))
	if pct > st.Percent {
		st.Percent = min(pct, 100)
	}
	if u.Phase != (enums.Phase{}) {
		st.Phase = u.Phase
	}
	if u.Step != "" {
		st.Step = u.Step
	}
	if u.OutputFile != "" {
		st.OutputFile = u.OutputFile
	}
	return st
}

// itemsPercent maps items count into the scraping range 20..90, -1 for unlimited jobs
func itemsPercent(items, limit int) int {
	if limit <= 0 || items <= 0 {
		return -1
	}
	return min(20+70*items/limit, 90)
}

func atoi(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
