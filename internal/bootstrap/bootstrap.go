// Package bootstrap renders provisioning scripts into a single startup
// script passed to new instances.
package bootstrap

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const shebang = "#!/bin/bash\n"

// Render concatenates the scripts at paths, in order, into one bash script.
// Each script's own shebang line is dropped and a marker comment names its
// source file.
func Render(paths []string) (string, error) {
	var buf bytes.Buffer
	buf.WriteString(shebang)
	buf.WriteString("set -e\n")

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return "", fmt.Errorf("failed to read bootstrap script %s: %w", p, err)
		}

		body := string(data)
		if strings.HasPrefix(body, "#!") {
			if i := strings.IndexByte(body, '\n'); i >= 0 {
				body = body[i+1:]
			} else {
				body = ""
			}
		}

		fmt.Fprintf(&buf, "\n# --- %s ---\n", filepath.Base(p))
		buf.WriteString(body)
		if !strings.HasSuffix(body, "\n") {
			buf.WriteByte('\n')
		}
	}

	return buf.String(), nil
}
