package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"dupmap/internal/report"
)

func sampleGroups(t *testing.T) []report.Group {
	t.Helper()
	store := newMatchStore(t)
	require.NoError(t, store.AddDuplicates(t.Context(), report.LocalFile{Dir: "/l", Name: "a,b.txt", Size: 1},
		[]string{"/n/1/a,b.txt", "/n/2/a,b.txt"}))
	require.NoError(t, store.AddDuplicates(t.Context(), report.LocalFile{Dir: "/l", Name: "<x>.txt", Size: 1},
		[]string{"/n/<x>.txt"}))
	groups, err := report.GroupByLocal(store.Duplicates(t.Context()))
	require.NoError(t, err)
	return groups
}

func TestGroupByLocal(t *testing.T) {
	groups := sampleGroups(t)
	require.Len(t, groups, 2)
	require.Equal(t, "/l/<x>.txt", groups[0].Local)
	require.Equal(t, []string{"/n/1/a,b.txt", "/n/2/a,b.txt"}, groups[1].Mapped)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.WriteCSV(&buf, sampleGroups(t)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, []string{
		"/l/<x>.txt,/n/<x>.txt",
		`"/l/a,b.txt","/n/1/a,b.txt","/n/2/a,b.txt"`,
	}, lines)
}

func TestWriteHTML(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "html")
	require.NoError(t, report.WriteHTML(dir, "Duplication Report", sampleGroups(t)))

	index, err := os.ReadFile(filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	require.Contains(t, string(index), "<h1>Duplication Report</h1>")
	require.Contains(t, string(index), "/l/&lt;x&gt;.txt")
	require.NotContains(t, string(index), "<x>")

	styles, err := os.ReadFile(filepath.Join(dir, "styles.css"))
	require.NoError(t, err)
	require.Contains(t, string(styles), "tr.instance")
}
