// Package references rewrites entity identifiers inside Home Assistant YAML
// configuration after a rename.
//
// Both whole scalars (entity_id: light.old) and identifiers embedded in
// templates ({{ states('light.old') }}, states.light.old.state) are
// rewritten. Mapping keys are rewritten too, which covers scene entity maps.
package references

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/fileutil"
)

// Rewriter replaces old identifiers with new ones.
type Rewriter struct {
	mapping map[string]string
	pattern *regexp.Regexp
}

// NewRewriter builds a rewriter from old to new identifiers. Entries that
// map an identifier to itself or to "" are ignored.
func NewRewriter(mapping map[string]string) *Rewriter {
	clean := make(map[string]string, len(mapping))
	olds := make([]string, 0, len(mapping))
	for oldID, newID := range mapping {
		if oldID == "" || newID == "" || oldID == newID {
			continue
		}
		clean[oldID] = newID
		olds = append(olds, oldID)
	}

	r := &Rewriter{mapping: clean}
	if len(olds) == 0 {
		return r
	}

	// Longest first so light.kitchen_2 wins over light.kitchen.
	sort.Slice(olds, func(i, j int) bool {
		if len(olds[i]) != len(olds[j]) {
			return len(olds[i]) > len(olds[j])
		}
		return olds[i] < olds[j]
	})
	quoted := make([]string, len(olds))
	for i, o := range olds {
		quoted[i] = regexp.QuoteMeta(o)
	}
	r.pattern = regexp.MustCompile(strings.Join(quoted, "|"))
	return r
}

// Len returns the number of effective replacements.
func (r *Rewriter) Len() int {
	return len(r.mapping)
}

func isIdentByte(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

// RewriteString replaces every old identifier in s that stands on its own,
// i.e. is not part of a longer identifier. It returns the new string and
// the number of replacements.
func (r *Rewriter) RewriteString(s string) (string, int) {
	if r.pattern == nil {
		return s, 0
	}
	if newID, ok := r.mapping[s]; ok {
		return newID, 1
	}

	matches := r.pattern.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return s, 0
	}

	var (
		b     strings.Builder
		last  int
		count int
	)
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > 0 && isIdentByte(s[start-1]) {
			continue
		}
		if end < len(s) && isIdentByte(s[end]) {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(r.mapping[s[start:end]])
		last = end
		count++
	}
	if count == 0 {
		return s, 0
	}
	b.WriteString(s[last:])
	return b.String(), count
}

// RewriteNode rewrites every scalar below n in place and returns the
// number of replacements.
func (r *Rewriter) RewriteNode(n *yaml.Node) int {
	if n == nil {
		return 0
	}
	count := 0
	switch n.Kind {
	case yaml.ScalarNode:
		if n.Tag != "" && n.Tag != "!!str" && n.ShortTag() != "!!str" {
			return 0
		}
		out, c := r.RewriteString(n.Value)
		if c > 0 {
			n.Value = out
			count += c
		}
	case yaml.DocumentNode, yaml.SequenceNode, yaml.MappingNode:
		for _, child := range n.Content {
			count += r.RewriteNode(child)
		}
	case yaml.AliasNode:
		// The anchor is rewritten where it is defined.
	}
	return count
}

// Rewrite rewrites a YAML stream, which may hold several documents. When
// nothing changes the input is returned unchanged.
func (r *Rewriter) Rewrite(data []byte) ([]byte, int, error) {
	if r.pattern == nil {
		return data, 0, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	var docs []*yaml.Node
	count := 0
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("parsing yaml: %w", err)
		}
		count += r.RewriteNode(&doc)
		docs = append(docs, &doc)
	}
	if count == 0 {
		return data, 0, nil
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return nil, 0, fmt.Errorf("encoding yaml: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, 0, fmt.Errorf("encoding yaml: %w", err)
	}
	return buf.Bytes(), count, nil
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path         string `json:"path"`
	Replacements int    `json:"replacements"`
	Error        string `json:"error,omitempty"`
}

// Report summarises a tree rewrite.
type Report struct {
	DryRun       bool         `json:"dry_run"`
	Files        []FileResult `json:"files"`
	Replacements int          `json:"replacements"`
}

// RewriteFile rewrites one file in place, keeping its permissions. With
// dryRun the file is only read.
func (r *Rewriter) RewriteFile(path string, dryRun bool) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator supplied path
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}

	out, count, err := r.Rewrite(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if count == 0 || dryRun {
		return count, nil
	}
	if err := fileutil.WriteAtomic(path, out, info.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("writing %s: %w", path, err)
	}
	return count, nil
}

// RewriteTree rewrites every .yaml and .yml file below root. Hidden
// directories such as .storage are skipped. A file that fails to parse is
// reported and the walk continues.
func (r *Rewriter) RewriteTree(root string, dryRun bool) (*Report, error) {
	report := &Report{DryRun: dryRun, Files: []FileResult{}}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		count, err := r.RewriteFile(path, dryRun)
		switch {
		case err != nil:
			report.Files = append(report.Files, FileResult{Path: path, Error: err.Error()})
		case count > 0:
			report.Files = append(report.Files, FileResult{Path: path, Replacements: count})
			report.Replacements += count
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("walking %s: %w", root, err)
	}
	return report, nil
}
