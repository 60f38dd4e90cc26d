package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateUnifiedDiff_IdenticalContent(t *testing.T) {
	content := []byte("minlen = 8\ndcredit = -1\n")
	require.Empty(t, GenerateUnifiedDiff(content, content, "current", "desired"))
}

func TestGenerateUnifiedDiff_SingleLineChange(t *testing.T) {
	current := []byte("minlen = 6\ndcredit = -1\n")
	desired := []byte("minlen = 8\ndcredit = -1\n")

	result := GenerateUnifiedDiff(current, desired, "/etc/security/pwquality.conf", "desired")

	require.Contains(t, result, "--- /etc/security/pwquality.conf")
	require.Contains(t, result, "+++ desired")
	require.Contains(t, result, "-minlen = 6")
	require.Contains(t, result, "+minlen = 8")
	require.Contains(t, result, " dcredit = -1")
}

func TestGenerateUnifiedDiff_FromEmpty(t *testing.T) {
	result := GenerateUnifiedDiff(nil, []byte("#!/bin/bash\n"), "current", "desired")

	require.Contains(t, result, "@@ -1,0 +1,1 @@")
	require.Contains(t, result, "+#!/bin/bash")
}

func TestGenerateUnifiedDiff_Truncates(t *testing.T) {
	var b strings.Builder
	for i := 0; i < maxDiffLines+10; i++ {
		b.WriteString("x\n")
	}

	result := GenerateUnifiedDiff(nil, []byte(b.String()), "current", "desired")
	require.True(t, strings.HasSuffix(result, truncateMessage+"\n"))
}
