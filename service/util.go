package opservice

import (
	"strings"
)

// PrefixEnvVar adds the given prefix to the env var name, e.g. PrefixEnvVar("CLAIM_FAUCET", "LOG_LEVEL").
func PrefixEnvVar(prefix, suffix string) []string {
	return []string{prefix + "_" + suffix}
}

// FormatVersion formats a binary version string from version, commit and date info.
func FormatVersion(version string, gitCommit string, gitDate string, meta string) string {
	v := version
	if gitCommit != "" {
		if len(gitCommit) >= 8 {
			v += "-" + gitCommit[:8]
		} else {
			v += "-" + gitCommit
		}
	}
	if gitDate != "" {
		v += "-" + gitDate
	}
	if meta != "" {
		v += "-" + meta
	}
	return v
}

// UnknownEnvVars returns the env vars with the given prefix that no flag reads.
func UnknownEnvVars(prefix string, flagEnvVars []string, environ []string) []string {
	known := make(map[string]struct{}, len(flagEnvVars))
	for _, v := range flagEnvVars {
		known[v] = struct{}{}
	}
	var unknown []string
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, prefix+"_") {
			continue
		}
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}
