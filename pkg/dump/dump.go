// Package dump exports a loaded catalog as JSON, JSON lines and YAML files.
package dump

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"umatools/pkg/catalog"
	"umatools/pkg/database"
	"umatools/pkg/log"
	"umatools/pkg/models"
	"umatools/pkg/progress"
)

// master table formats, by directory name and file extension
var masterFormats = []struct {
	dir string
	ext string
}{
	{"min-json", ".min.json"},
	{"json", ".json"},
	{"jsonl", ".jsonl"},
	{"yaml", ".yaml"},
}

// Export writes the asset entries and every master table under dir.
// A catalog without master tables only gets the asset files.
func Export(cat *catalog.Catalog, dir string, quiet bool) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	log.Debug().Str("dir", dir).Msg("Exporting asset database")
	if err := exportAssets(cat.Entries(), dir); err != nil {
		return fmt.Errorf("failed to export asset database: %w", err)
	}

	if cat.Master == nil {
		return nil
	}

	log.Debug().Str("dir", dir).Msg("Exporting master database")
	return exportMaster(cat.Master, filepath.Join(dir, "master"), quiet)
}

func exportAssets(entries []models.Entry, dir string) error {
	if entries == nil {
		entries = []models.Entry{}
	}

	minified, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "asset.min.json"), minified, 0o644); err != nil {
		return err
	}

	indented, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "asset.json"), indented, 0o644); err != nil {
		return err
	}

	lines, err := jsonLines(len(entries), func(i int) any { return entries[i] })
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "asset.jsonl"), lines, 0o644)
}

func exportMaster(tables *database.Tables, dir string, quiet bool) error {
	for _, format := range masterFormats {
		if err := os.MkdirAll(filepath.Join(dir, format.dir), 0o750); err != nil {
			return err
		}
	}

	batch := progress.NewBatch("Exporting master database", uuid.NewString(), len(tables.Order), quiet)
	defer batch.Finish()

	for _, name := range tables.Order {
		table, ok := tables.Get(name)
		if !ok {
			continue
		}
		if err := exportTable(table, dir); err != nil {
			return fmt.Errorf("failed to export table %s: %w", name, err)
		}
		batch.Complete(name)
	}
	return nil
}

func exportTable(table *database.Table, dir string) error {
	rows := make([]orderedRow, len(table.Rows))
	for i, row := range table.Rows {
		rows[i] = orderedRow{columns: table.Columns, row: row}
	}

	minified, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	indented, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	lines, err := jsonLines(len(rows), func(i int) any { return rows[i] })
	if err != nil {
		return err
	}
	yamlData, err := tableYAML(table)
	if err != nil {
		return err
	}

	outputs := [][]byte{minified, indented, lines, yamlData}
	for i, format := range masterFormats {
		path := filepath.Join(dir, format.dir, table.Name+format.ext)
		if err := os.WriteFile(path, outputs[i], 0o644); err != nil {
			return err
		}
	}
	return nil
}

func jsonLines(n int, item func(i int) any) ([]byte, error) {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		line, err := json.Marshal(item(i))
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		if i < n-1 {
			buf.WriteByte('\n')
		}
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// orderedRow marshals a row as an object in column order.
type orderedRow struct {
	columns []string
	row     database.Row
}

func (r orderedRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, column := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(column)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(r.row[column])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// tableYAML builds the YAML document by hand so keys keep column order.
func tableYAML(table *database.Table) ([]byte, error) {
	doc := &yaml.Node{Kind: yaml.SequenceNode}
	for _, row := range table.Rows {
		mapping := &yaml.Node{Kind: yaml.MappingNode}
		for _, column := range table.Columns {
			value, err := yamlValue(row[column])
			if err != nil {
				return nil, err
			}
			mapping.Content = append(mapping.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: column},
				value)
		}
		doc.Content = append(doc.Content, mapping)
	}
	return yaml.Marshal(doc)
}

func yamlValue(value any) (*yaml.Node, error) {
	if blob, ok := value.([]byte); ok {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!binary", Value: base64.StdEncoding.EncodeToString(blob)}, nil
	}
	node := &yaml.Node{}
	if err := node.Encode(value); err != nil {
		return nil, err
	}
	return node, nil
}
