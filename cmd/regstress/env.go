package main

import (
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	envTrue  = []string{"1", "yes", "true", "on"}
	envFalse = []string{"0", "no", "false", "off"}
)

// envVal looks up key case-insensitively, returning defaultVal if the variable isn't set or is blank.
func envVal(key string, defaultVal string) string {
	for _, kv := range os.Environ() {
		k, v, found := strings.Cut(kv, "=")
		if !found || !strings.EqualFold(k, key) {
			continue
		}
		if v = strings.TrimSpace(v); len(v) > 0 {
			return v
		}
		return defaultVal
	}
	return defaultVal
}

func envBool(key string, defaultVal bool) bool {
	sval := strings.ToLower(envVal(key, ""))
	switch {
	case len(sval) == 0:
		return defaultVal
	case slices.Contains(envTrue, sval):
		return true
	case slices.Contains(envFalse, sval):
		return false
	default:
		return defaultVal
	}
}

func envInt(key string, defaultVal int64) int64 {
	sval := envVal(key, "")
	if len(sval) == 0 {
		return defaultVal
	}
	ival, err := strconv.ParseInt(sval, 10, 64)
	if err != nil {
		return defaultVal
	}
	return ival
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	sval := envVal(key, "")
	if len(sval) == 0 {
		return defaultVal
	}
	dval, err := time.ParseDuration(sval)
	if err != nil {
		return defaultVal
	}
	return dval
}
