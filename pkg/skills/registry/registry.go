// Package registry discovers skills in the project, user and builtin roots,
// resolves name collisions by provenance priority, and serves lookups and
// activations from an immutable snapshot that is swapped atomically on every
// refresh.
package registry

import (
	"context"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jaguarliu/miniclaw-sub002/pkg/logger"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/gating"
	"github.com/jaguarliu/miniclaw-sub002/pkg/skills/layout"
	"github.com/jaguarliu/miniclaw-sub002/pkg/telemetry"
	skilltypes "github.com/jaguarliu/miniclaw-sub002/pkg/types/skills"
)

// Parser turns a skill file into metadata and body.
type Parser interface {
	ParseFile(path string, priority skilltypes.Priority) (*skilltypes.ParsedSkill, error)
}

// Gate evaluates skill requirements.
type Gate interface {
	Evaluate(ctx context.Context, req *skilltypes.SkillRequires) gating.Result
}

// Roots are the three directories scanned for skills.
type Roots struct {
	Project string
	User    string
	Builtin string
}

type tier struct {
	dir      string
	priority skilltypes.Priority
}

// scanOrder lists roots from least to most specific so that later tiers can
// replace earlier ones.
func (r Roots) scanOrder() []tier {
	return []tier{
		{r.Builtin, skilltypes.PriorityBuiltin},
		{r.User, skilltypes.PriorityUser},
		{r.Project, skilltypes.PriorityProject},
	}
}

// Dirs returns the roots in scan order.
func (r Roots) Dirs() []string {
	return []string{r.Builtin, r.User, r.Project}
}

type snapshot struct {
	version int64
	entries map[string]*skilltypes.SkillEntry
	bodies  *sync.Map // name -> string
	files   map[string]time.Time
}

func emptySnapshot() *snapshot {
	return &snapshot{
		entries: map[string]*skilltypes.SkillEntry{},
		bodies:  &sync.Map{},
		files:   map[string]time.Time{},
	}
}

// Stats summarizes the current snapshot. TotalTokenCost only counts
// available skills.
type Stats struct {
	Total          int `json:"total"`
	Available      int `json:"available"`
	Unavailable    int `json:"unavailable"`
	TotalTokenCost int `json:"totalTokenCost"`
}

// Registry holds the skills known to the runtime. Readers never block and
// never observe a partially built snapshot; refreshes are serialized.
type Registry struct {
	parser Parser
	gate   Gate
	roots  Roots

	refreshMu sync.Mutex
	current   atomic.Pointer[snapshot]
}

// New returns an empty registry. Call Refresh to populate it.
func New(parser Parser, gate Gate, roots Roots) *Registry {
	r := &Registry{parser: parser, gate: gate, roots: roots}
	r.current.Store(emptySnapshot())
	return r
}

func (r *Registry) Roots() Roots { return r.roots }

// Refresh rescans every root and publishes a new snapshot. Files that fail to
// parse are logged and skipped. The snapshot version is bumped on every
// call, even when nothing changed.
func (r *Registry) Refresh(ctx context.Context) {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "skills.refresh")
	defer span.End()
	log := logger.G(ctx)

	next := emptySnapshot()
	next.version = r.current.Load().version + 1

	for _, t := range r.roots.scanOrder() {
		for _, path := range layout.FindSkillFiles(t.dir) {
			if fi, err := os.Stat(path); err == nil {
				next.files[path] = fi.ModTime()
			}
			r.load(ctx, next, path, t.priority)
		}
	}

	r.current.Store(next)

	available := 0
	for _, e := range next.entries {
		if e.Available {
			available++
		}
	}
	span.SetAttributes(
		attribute.Int64("skills.version", next.version),
		attribute.Int("skills.total", len(next.entries)),
		attribute.Int("skills.available", available),
	)
	log.WithFields(logrus.Fields{
		"version":   next.version,
		"total":     len(next.entries),
		"available": available,
	}).Infof("skill registry refreshed (v%d): %d skills loaded (%d available)", next.version, len(next.entries), available)
}

func (r *Registry) load(ctx context.Context, snap *snapshot, path string, priority skilltypes.Priority) {
	log := logger.G(ctx).WithFields(logrus.Fields{"path": path, "priority": priority.String()})

	parsed, err := r.parser.ParseFile(path, priority)
	if err != nil {
		log.WithError(err).Warn("failed to parse skill, skipping")
		return
	}

	meta := parsed.Metadata
	if existing, ok := snap.entries[meta.Name]; ok && existing.Metadata.Priority <= priority {
		log.WithField("skill", meta.Name).Debug("skill already registered with higher or equal priority, skipping")
		return
	}

	result := r.gate.Evaluate(ctx, meta.Requires)
	snap.entries[meta.Name] = &skilltypes.SkillEntry{
		Metadata:          meta,
		Available:         result.Available,
		UnavailableReason: result.FailureReason(),
		LastModified:      parsed.LastModified,
		TokenCost:         skilltypes.TokenCost(meta),
	}
	snap.bodies.Store(meta.Name, parsed.Body)

	log.WithFields(logrus.Fields{"skill": meta.Name, "available": result.Available}).Debug("loaded skill")
}

// All returns every entry, ordered by priority then name.
func (r *Registry) All() []skilltypes.SkillEntry {
	return r.filter(func(*skilltypes.SkillEntry) bool { return true })
}

// Available returns the entries that passed gating, ordered by priority then name.
func (r *Registry) Available() []skilltypes.SkillEntry {
	return r.filter(func(e *skilltypes.SkillEntry) bool { return e.Available })
}

// Unavailable returns the entries that failed gating, ordered by priority then name.
func (r *Registry) Unavailable() []skilltypes.SkillEntry {
	return r.filter(func(e *skilltypes.SkillEntry) bool { return !e.Available })
}

func (r *Registry) filter(keep func(*skilltypes.SkillEntry) bool) []skilltypes.SkillEntry {
	snap := r.current.Load()
	out := make([]skilltypes.SkillEntry, 0, len(snap.entries))
	for _, e := range snap.entries {
		if keep(e) {
			out = append(out, *e)
		}
	}
	SortEntries(out)
	return out
}

// SortEntries orders entries by ascending priority, then by name.
func SortEntries(entries []skilltypes.SkillEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Metadata.Priority != entries[j].Metadata.Priority {
			return entries[i].Metadata.Priority < entries[j].Metadata.Priority
		}
		return entries[i].Metadata.Name < entries[j].Metadata.Name
	})
}

// Get returns the entry registered under name.
func (r *Registry) Get(name string) (skilltypes.SkillEntry, bool) {
	e, ok := r.current.Load().entries[name]
	if !ok {
		return skilltypes.SkillEntry{}, false
	}
	return *e, true
}

// IsAvailable reports whether name is registered and passed gating.
func (r *Registry) IsAvailable(name string) bool {
	e, ok := r.current.Load().entries[name]
	return ok && e.Available
}

func (r *Registry) Size() int { return len(r.current.Load().entries) }

// SnapshotVersion returns the number of refreshes performed so far.
func (r *Registry) SnapshotVersion() int64 { return r.current.Load().version }

// Stats summarizes the current snapshot.
func (r *Registry) Stats() Stats {
	var s Stats
	for _, e := range r.current.Load().entries {
		s.Total++
		if e.Available {
			s.Available++
			s.TotalTokenCost += e.TokenCost
		}
	}
	s.Unavailable = s.Total - s.Available
	return s
}

// Activate loads the full skill for injection into a conversation. Unknown
// and unavailable skills both yield false.
func (r *Registry) Activate(ctx context.Context, name string) (*skilltypes.LoadedSkill, bool) {
	ctx, span := telemetry.StartSpan(ctx, "skills.activate", attribute.String("skill.name", name))
	defer span.End()
	log := logger.G(ctx).WithField("skill", name)

	snap := r.current.Load()
	entry, ok := snap.entries[name]
	if !ok {
		log.Warn("skill not found")
		return nil, false
	}
	if !entry.Available {
		log.WithField("reason", entry.UnavailableReason).Warn("skill not available")
		return nil, false
	}

	body, ok := r.body(ctx, snap, entry)
	if !ok {
		return nil, false
	}

	meta := entry.Metadata
	loaded := &skilltypes.LoadedSkill{
		Name:          meta.Name,
		Description:   meta.Description,
		Body:          body,
		BasePath:      meta.BaseDir(),
		AllowedTools:  skilltypes.ToSet(meta.AllowedTools),
		ConfirmBefore: skilltypes.ToSet(meta.ConfirmBefore),
	}
	log.WithField("base_path", loaded.BasePath).Info("activated skill")
	return loaded, true
}

func (r *Registry) body(ctx context.Context, snap *snapshot, entry *skilltypes.SkillEntry) (string, bool) {
	if v, ok := snap.bodies.Load(entry.Metadata.Name); ok {
		return v.(string), true
	}

	parsed, err := r.parser.ParseFile(entry.Metadata.SourcePath, entry.Metadata.Priority)
	if err != nil {
		logger.G(ctx).WithError(err).WithField("path", entry.Metadata.SourcePath).Warn("failed to reload skill body")
		telemetry.RecordError(ctx, err)
		return "", false
	}
	snap.bodies.Store(entry.Metadata.Name, parsed.Body)
	return parsed.Body, true
}

// HasChanges reports whether any skill file was added, removed or modified
// since the last refresh. It never refreshes by itself.
func (r *Registry) HasChanges() bool {
	known := r.current.Load().files
	current := layout.ModTimes(r.roots.Dirs()...)

	if len(current) != len(known) {
		return true
	}
	for path, mtime := range current {
		recorded, ok := known[path]
		if !ok || mtime.After(recorded) {
			return true
		}
	}
	return false
}
