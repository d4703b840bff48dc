package report

import (
	"embed"
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"iter"
	"os"
	"path/filepath"
)

//go:embed assets/index.html.tmpl assets/styles.css
var assets embed.FS

var indexTemplate = template.Must(template.ParseFS(assets, "assets/index.html.tmpl"))

// Group is one local file with every catalogued copy of it.
type Group struct {
	Local  string
	Mapped []string
}

// GroupByLocal folds duplicate records, which arrive ordered by local file,
// into one group per local file.
func GroupByLocal(records iter.Seq2[Record, error]) ([]Group, error) {
	var groups []Group
	for record, err := range records {
		if err != nil {
			return nil, err
		}
		if len(groups) == 0 || groups[len(groups)-1].Local != record.LocalFile {
			groups = append(groups, Group{Local: record.LocalFile})
		}
		last := &groups[len(groups)-1]
		last.Mapped = append(last.Mapped, record.MappedFile)
	}
	return groups, nil
}

// WriteCSV writes one row per group: the local file followed by its copies.
func WriteCSV(w io.Writer, groups []Group) error {
	writer := csv.NewWriter(w)
	for _, group := range groups {
		row := make([]string, 0, len(group.Mapped)+1)
		row = append(row, group.Local)
		row = append(row, group.Mapped...)
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteHTML renders index.html and styles.css into dir, creating it if needed.
func WriteHTML(dir, title string, groups []Group) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create html report directory: %w", err)
	}

	index, err := os.Create(filepath.Join(dir, "index.html"))
	if err != nil {
		return fmt.Errorf("create index.html: %w", err)
	}
	defer index.Close()
	data := struct {
		Title  string
		Groups []Group
	}{Title: title, Groups: groups}
	if err := indexTemplate.Execute(index, data); err != nil {
		return fmt.Errorf("render index.html: %w", err)
	}
	if err := index.Close(); err != nil {
		return fmt.Errorf("close index.html: %w", err)
	}

	styles, err := assets.ReadFile("assets/styles.css")
	if err != nil {
		return fmt.Errorf("read styles: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "styles.css"), styles, 0o644); err != nil {
		return fmt.Errorf("write styles.css: %w", err)
	}
	return nil
}
