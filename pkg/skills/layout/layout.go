// Package layout knows where skill files live inside a skills root: the root
// itself and its immediate subdirectories, named SKILL.md or <prefix>.SKILL.md.
package layout

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"
)

// SkillFileName is the canonical name of a skill file.
const SkillFileName = "SKILL.md"

const (
	shallowPattern = "{SKILL.md,*.SKILL.md}"
	rootPattern    = "{SKILL.md,*.SKILL.md,*/SKILL.md,*/*.SKILL.md}"
)

var skillFileGlob = glob.MustCompile(shallowPattern)

// IsSkillFile reports whether the base name of path designates a skill file.
func IsSkillFile(path string) bool {
	return skillFileGlob.Match(filepath.Base(path))
}

// FindSkillFiles returns the skill files under root, sorted. Only the root
// and its immediate subdirectories are searched; deeper files are ignored.
// A missing or unreadable root yields no files.
func FindSkillFiles(root string) []string {
	return find(root, rootPattern)
}

// ContainsSkillFile reports whether dir directly holds a skill file.
func ContainsSkillFile(dir string) bool {
	return len(find(dir, shallowPattern)) > 0
}

func find(root, pattern string) []string {
	if root == "" {
		return nil
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern)
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		path := filepath.Join(root, filepath.FromSlash(m))
		if _, dup := seen[path]; dup {
			continue
		}
		seen[path] = struct{}{}

		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files
}

// ModTimes maps every skill file found under roots to its modification time.
func ModTimes(roots ...string) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, root := range roots {
		for _, path := range FindSkillFiles(root) {
			if fi, err := os.Stat(path); err == nil {
				out[path] = fi.ModTime()
			}
		}
	}
	return out
}
