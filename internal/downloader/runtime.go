package downloader

import "os/exec"

// ResolveJSRuntime picks the JavaScript runtime handed to the extraction
// layer, formatted "name:path". The configured value wins; otherwise deno
// then node are probed on PATH. An empty result is fine — the extraction
// layer simply runs without a runtime hint.
func ResolveJSRuntime(configured string) string {
	if configured != "" {
		return configured
	}

	for _, name := range []string{"deno", "node"} {
		if path, err := exec.LookPath(name); err == nil {
			return name + ":" + path
		}
	}

	return ""
}
