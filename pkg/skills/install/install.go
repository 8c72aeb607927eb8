// Package install writes uploaded skills (a single SKILL.md or a zip archive)
// into the user skill root.
package install

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jaguarliu/miniclaw-sub002/pkg/logger"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/layout"
	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
)

const (
	// MaxUploadSize caps the decoded upload.
	MaxUploadSize = 1 << 20
	// MaxExtractedSize caps the total uncompressed size of a zip upload.
	MaxExtractedSize = 10 << 20
)

var (
	ErrMissingFileName = errors.New("missing required field: fileName")
	ErrMissingContent  = errors.New("missing required field: content")
	ErrUnsupportedFile = errors.New("file must be .md or .zip")
	ErrInvalidBase64   = errors.New("invalid base64 content")
	ErrTooLarge        = errors.New("file too large (max 1MB)")
	ErrNoSkillFile     = errors.New("no SKILL.md found in zip archive")
	ErrInvalidSkill    = errors.New("invalid skill file")
	ErrUnsafeArchive   = errors.New("invalid zip entry")
)

// IsUserError reports whether err was caused by the upload itself rather than
// by the local filesystem.
func IsUserError(err error) bool {
	for _, target := range []error{
		ErrMissingFileName, ErrMissingContent, ErrUnsupportedFile, ErrInvalidBase64,
		ErrTooLarge, ErrNoSkillFile, ErrInvalidSkill, ErrUnsafeArchive,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Parser validates a staged skill file.
type Parser interface {
	ParseFile(path string, priority skilltypes.Priority) (*skilltypes.ParsedSkill, error)
}

// Refresher reloads the registry once a skill is written.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Result describes an installed skill.
type Result struct {
	Name string `json:"name"`
	Dir  string `json:"dir"`
}

// Installer installs skills into the user root.
type Installer struct {
	parser    Parser
	refresher Refresher
	userDir   string
	tempRoot  string
}

// Option configures an Installer.
type Option func(*Installer)

// WithTempRoot sets where uploads are staged. Defaults to os.TempDir().
func WithTempRoot(dir string) Option {
	return func(i *Installer) { i.tempRoot = dir }
}

// New creates an installer writing into userDir. refresher may be nil.
func New(parser Parser, userDir string, refresher Refresher, opts ...Option) *Installer {
	i := &Installer{
		parser:    parser,
		refresher: refresher,
		userDir:   userDir,
		tempRoot:  os.TempDir(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// InstallBase64 decodes content and installs it.
func (i *Installer) InstallBase64(ctx context.Context, fileName, content string) (*Result, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrMissingContent
	}
	data, err := base64.StdEncoding.DecodeString(content)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidBase64, err.Error())
	}
	return i.Install(ctx, fileName, data)
}

// Install validates and writes an uploaded .md or .zip file, then refreshes
// the registry.
func (i *Installer) Install(ctx context.Context, fileName string, data []byte) (*Result, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, ErrMissingFileName
	}
	if len(data) == 0 {
		return nil, ErrMissingContent
	}
	lower := strings.ToLower(fileName)
	isZip := strings.HasSuffix(lower, ".zip")
	if !isZip && !strings.HasSuffix(lower, ".md") {
		return nil, ErrUnsupportedFile
	}
	if len(data) > MaxUploadSize {
		return nil, ErrTooLarge
	}
	if i.userDir == "" {
		return nil, errors.New("user skills directory is not configured")
	}

	staging := filepath.Join(i.tempRoot, "miniclaw-skill-upload-"+uuid.NewString())
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create staging directory")
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			logger.G(ctx).WithError(err).WithField("dir", staging).Debug("failed to clean up staging directory")
		}
	}()

	var (
		result *Result
		err    error
	)
	if isZip {
		result, err = i.installZip(staging, data)
	} else {
		result, err = i.installMarkdown(staging, data)
	}
	if err != nil {
		return nil, err
	}

	if i.refresher != nil {
		i.refresher.Refresh(ctx)
	}
	logger.G(ctx).WithFields(logrus.Fields{"skill": result.Name, "file": fileName}).Info("skill uploaded")
	return result, nil
}

func (i *Installer) installMarkdown(staging string, data []byte) (*Result, error) {
	staged := filepath.Join(staging, layout.SkillFileName)
	if err := os.WriteFile(staged, data, 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to stage skill file")
	}
	name, err := i.validate(staged)
	if err != nil {
		return nil, err
	}

	target := filepath.Join(i.userDir, name)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create skill directory")
	}
	if err := os.WriteFile(filepath.Join(target, layout.SkillFileName), data, 0o644); err != nil {
		return nil, errors.Wrap(err, "failed to write skill file")
	}
	return &Result{Name: name, Dir: target}, nil
}

func (i *Installer) installZip(staging string, data []byte) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(ErrUnsafeArchive, "not a valid zip archive")
	}
	if err := checkEntries(zr.File); err != nil {
		return nil, err
	}

	extracted := filepath.Join(staging, "extracted")
	if err := extract(zr.File, extracted); err != nil {
		return nil, err
	}

	skillFile := findSkillFile(extracted)
	if skillFile == "" {
		return nil, ErrNoSkillFile
	}
	name, err := i.validate(skillFile)
	if err != nil {
		return nil, err
	}

	target := filepath.Join(i.userDir, name)
	if err := os.RemoveAll(target); err != nil {
		return nil, errors.Wrap(err, "failed to replace existing skill")
	}
	if err := copyTree(filepath.Dir(skillFile), target); err != nil {
		return nil, errors.Wrapf(err, "failed to install skill %s", name)
	}
	return &Result{Name: name, Dir: target}, nil
}

func (i *Installer) validate(file string) (string, error) {
	parsed, err := i.parser.ParseFile(file, skilltypes.PriorityUser)
	if err != nil {
		return "", errors.Wrap(ErrInvalidSkill, err.Error())
	}
	return parsed.Metadata.Name, nil
}

// entryPath returns the cleaned slash path of a zip entry, or an error when
// the entry would land outside the extraction root.
func entryPath(name string) (string, error) {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") || filepath.VolumeName(name) != "" {
		return "", errors.Wrap(ErrUnsafeArchive, name)
	}
	cleaned := path.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.Wrap(ErrUnsafeArchive, name)
	}
	return cleaned, nil
}

// checkEntries rejects the archive before anything is written, reporting
// every offending entry.
func checkEntries(files []*zip.File) error {
	var result *multierror.Error
	var total uint64
	for _, f := range files {
		if _, err := entryPath(f.Name); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if f.Mode()&os.ModeSymlink != 0 {
			result = multierror.Append(result, errors.Wrapf(ErrUnsafeArchive, "%s is a symlink", f.Name))
			continue
		}
		total += f.UncompressedSize64
	}
	if total > MaxExtractedSize {
		result = multierror.Append(result, errors.Wrap(ErrTooLarge, "archive expands beyond limit"))
	}
	return result.ErrorOrNil()
}

func extract(files []*zip.File, root string) error {
	var written int64
	for _, f := range files {
		rel, err := entryPath(f.Name)
		if err != nil {
			return err
		}
		if rel == "." {
			continue
		}
		target := filepath.Join(root, filepath.FromSlash(rel))
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return errors.Wrap(err, "failed to create directory")
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errors.Wrap(err, "failed to create directory")
		}
		n, err := extractFile(f, target, MaxExtractedSize-written)
		if err != nil {
			return err
		}
		written += n
	}
	return nil
}

func extractFile(f *zip.File, target string, remaining int64) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, errors.Wrapf(ErrUnsafeArchive, "%s: %v", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create file")
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(rc, remaining+1))
	if err != nil {
		return n, errors.Wrapf(err, "failed to extract %s", f.Name)
	}
	if n > remaining {
		return n, errors.Wrap(ErrTooLarge, "archive expands beyond limit")
	}
	return n, nil
}

// findSkillFile looks for SKILL.md at the top level, then one directory deep.
func findSkillFile(root string) string {
	direct := filepath.Join(root, layout.SkillFileName)
	if info, err := os.Stat(direct); err == nil && info.Mode().IsRegular() {
		return direct
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		candidate := filepath.Join(root, e.Name(), layout.SkillFileName)
		if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
			return candidate
		}
	}
	return ""
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
