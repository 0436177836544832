// Package completion suggests command names for the line editor.
package completion

import (
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// Provider lists command names in a fixed order: builtins first, then cv-*
// scripts from AppsDir, then sh-* scripts from ScriptsDir.
type Provider struct {
	// Builtins are offered in table order.
	Builtins []string
	AppsDir  string
	// ScriptsDir holds sh_*.sh files.
	ScriptsDir string
	Fs         afero.Fs
}

// scriptNames lists "<cmdPrefix><name>" for every "<filePrefix><name><ext>"
// in dir. A missing directory lists nothing.
func (p *Provider) scriptNames(dir, filePrefix, ext, cmdPrefix string) []string {
	if dir == "" || p.Fs == nil {
		return nil
	}

	entries, err := afero.ReadDir(p.Fs, dir)
	if err != nil {
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var out []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		stem := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ext)
		if stem == "" {
			continue
		}
		out = append(out, cmdPrefix+stem)
	}
	return out
}

// All lists every command name the provider knows about.
func (p *Provider) All() []string {
	out := append([]string(nil), p.Builtins...)
	out = append(out, p.scriptNames(p.AppsDir, "cv_", ".py", "cv-")...)
	out = append(out, p.scriptNames(p.ScriptsDir, "sh_", ".sh", "sh-")...)
	return out
}

// Complete returns the command names starting with prefix.
func (p *Provider) Complete(prefix string) []string {
	var out []string
	for _, name := range p.All() {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

// Do implements readline.AutoCompleter. Only the command word of the stage
// under the cursor is completed; arguments are left alone.
func (p *Provider) Do(line []rune, pos int) ([][]rune, int) {
	if pos > len(line) {
		pos = len(line)
	}
	head := string(line[:pos])
	if i := strings.LastIndex(head, "|"); i >= 0 {
		head = head[i+1:]
	}
	word := strings.TrimLeft(head, " \t")
	if strings.ContainsAny(word, " \t") {
		return nil, 0
	}

	var out [][]rune
	for _, name := range p.Complete(word) {
		out = append(out, []rune(strings.TrimPrefix(name, word)+" "))
	}
	return out, len([]rune(word))
}
