package config

import (
	"sort"
	"strings"
)

// Schema of recognized keys. Unknown keys are a warning, not an error,
// so a config written for a newer version still loads here.
var knownKeys = map[string]map[string]bool{
	"": {
		"settings": true, "engine": true, "repositories": true,
		"jobs": true, "notifications": true,
	},
	"settings": {
		"concurrency_limit": true, "default_timeout": true, "grace_period": true,
		"log_level": true, "history_size": true, "max_attempts": true,
		"retry_delay": true, "retry_max_delay": true, "hostname": true,
		"dry_run": true, "watch_config": true,
	},
	"engine":       {"path": true, "extra_args": true},
	"repositories": {"name": true, "url": true, "passphrase_file": true, "ssh_key_file": true},
	"jobs": {
		"name": true, "enabled": true, "sources": true, "exclude": true,
		"repositories": true, "retention": true, "schedule": true, "hooks": true,
		"timeout": true, "log_level": true, "prune": true, "check": true,
		"extra_args": true,
	},
	"jobs.retention": {"keep_daily": true, "keep_weekly": true, "keep_monthly": true, "keep_yearly": true},
	"jobs.schedule":  {"cron": true, "every": true, "jitter_minutes": true},
	"jobs.hooks":     {"pre": true, "post": true, "timeout": true},
	"notifications":  {"webhook": true},
	"notifications.webhook": {"enabled": true, "url": true, "timeout": true, "events": true},
}

// UnknownKeys walks the decoded document (viper's AllSettings) and
// returns a sorted list of keys the schema does not recognize.
func UnknownKeys(all map[string]any) []string {
	var out []string
	walkUnknown("", all, &out)
	sort.Strings(out)
	return out
}

func walkUnknown(section string, node map[string]any, out *[]string) {
	known := knownKeys[section]
	for key, value := range node {
		key = strings.ToLower(key)
		if known != nil && !known[key] {
			if section == "" {
				*out = append(*out, key)
			} else {
				*out = append(*out, section+"."+key)
			}
			continue
		}
		child := childSection(section, key)
		switch v := value.(type) {
		case map[string]any:
			if _, ok := knownKeys[child]; ok {
				walkUnknown(child, v, out)
			}
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					if _, known := knownKeys[child]; known {
						walkUnknown(child, m, out)
					}
				}
			}
		}
	}
}

func childSection(section, key string) string {
	if section == "" {
		return key
	}
	return section + "." + key
}
