package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/consultdeck/consultdeck/internal/version"
)

// TestVersionCmd_PrintsBuildInfo verifies that the version command prints
// the version, commit, and build date variables from internal/version.
func TestVersionCmd_PrintsBuildInfo(t *testing.T) {
	t.Parallel()

	cmd := NewVersionCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)

	cmd.Run(cmd, nil)

	out := buf.String()
	for _, want := range []string{version.Version, version.Commit, version.BuildDate} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
