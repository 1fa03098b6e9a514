package preflight

import (
	"context"

	"scraibe/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results,
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Work directory space", cfg.Paths.WorkDir, MinFreeBytes),
	)
	for _, dep := range CheckSystemDeps(cfg) {
		detail := dep.Command
		if !dep.Available {
			detail = dep.Detail
		}
		results = append(results, Result{Name: dep.Name, Passed: dep.Available || dep.Optional, Detail: detail})
	}
	results = append(results, CheckSMTP(ctx, cfg.Mail))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
