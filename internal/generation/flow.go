package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	appLog "calingen/internal/log"
	"calingen/internal/plugin"
	"calingen/internal/resolution"
	"calingen/internal/session"
)

var (
	// ErrNoLayoutSelected marks the recoverable navigation condition of
	// reaching the configure or render step without a prior selection
	// (e.g. a bookmarked deep link). Callers redirect back to selection.
	ErrNoLayoutSelected = errors.New("generation: no layout selected")

	// ErrNoConfigurationForm signals that the selected layout declares no
	// configuration form and the configure step is skipped. This is
	// control flow, not a failure surfaced to the user.
	ErrNoConfigurationForm = errors.New("generation: selected layout has no configuration form")
)

var generationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "calingen_generations_total",
	Help: "Number of completed render+compile runs, by layout.",
}, []string{"layout"})

// Flow drives the three-stage generation state machine:
// select layout -> optionally configure -> render + compile.
//
// The stages communicate through the session store; the final stage
// consumes the stored state, so a second visit without re-selecting starts
// over.
type Flow struct {
	sessions    session.Store
	resolver    *resolution.Resolver
	compilerMap map[string]string

	// Layouts and Compilers default to the package-level registries; they
	// are fields so tests can substitute isolated registries.
	Layouts   *plugin.Registry[plugin.LayoutProvider]
	Compilers *plugin.Registry[plugin.CompilerProvider]
}

// NewFlow creates a Flow. compilerMap is the configured layout type to
// compiler mapping; its "default" entry is validated at startup check time.
func NewFlow(sessions session.Store, resolver *resolution.Resolver, compilerMap map[string]string) *Flow {
	return &Flow{
		sessions:    sessions,
		resolver:    resolver,
		compilerMap: compilerMap,
		Layouts:     plugin.Layouts,
		Compilers:   plugin.Compilers,
	}
}

// SelectLayout stores the user's layout choice and target year in the
// session, entering the LayoutSelected state. It returns the effective
// target year (the current year when targetYear is zero) so callers echo
// exactly what was stored.
func (f *Flow) SelectLayout(ctx context.Context, sid, layoutID string, targetYear int) (int, error) {
	if _, err := f.Layouts.Get(layoutID); err != nil {
		return 0, err
	}
	if targetYear == 0 {
		targetYear = time.Now().Year()
	}
	if err := f.sessions.Set(ctx, sid, session.KeySelectedLayout, layoutID); err != nil {
		return 0, err
	}
	if err := f.sessions.Set(ctx, sid, session.KeyTargetYear, strconv.Itoa(targetYear)); err != nil {
		return 0, err
	}
	return targetYear, nil
}

// ConfigurationForm returns the selected layout's configuration form.
// ErrNoLayoutSelected is returned without a selection; ErrNoConfigurationForm
// when the layout needs no configuration (the step is skipped).
func (f *Flow) ConfigurationForm(ctx context.Context, sid string) (*plugin.ConfigurationForm, error) {
	layout, err := f.selectedLayout(ctx, sid)
	if err != nil {
		return nil, err
	}
	form := layout.ConfigurationForm()
	if form == nil {
		return nil, ErrNoConfigurationForm
	}
	return form, nil
}

// selectedLayout resolves the session's selected layout without consuming
// the selection.
func (f *Flow) selectedLayout(ctx context.Context, sid string) (plugin.LayoutProvider, error) {
	layoutID, ok, err := f.sessions.Get(ctx, sid, session.KeySelectedLayout)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoLayoutSelected
	}
	return f.Layouts.Get(layoutID)
}

// SaveConfiguration validates the submitted values against the selected
// layout's form and stores the cleaned configuration in the session,
// entering the LayoutConfigured state.
func (f *Flow) SaveConfiguration(ctx context.Context, sid string, values map[string]string) error {
	form, err := f.ConfigurationForm(ctx, sid)
	if err != nil {
		return err
	}
	cleaned, err := form.Clean(values)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(cleaned)
	if err != nil {
		return err
	}
	return f.sessions.Set(ctx, sid, session.KeyLayoutConfiguration, string(raw))
}

// Generate runs the terminal stage: it consumes the session state, builds
// the merged entries context, renders the selected layout and dispatches
// the result to a compiler, returning the delivery artifact.
func (f *Flow) Generate(ctx context.Context, sid, user string) (*plugin.Artifact, error) {
	layoutID, ok, err := f.sessions.Pop(ctx, sid, session.KeySelectedLayout)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoLayoutSelected
	}

	targetYear := time.Now().Year()
	if raw, ok, err := f.sessions.Pop(ctx, sid, session.KeyTargetYear); err != nil {
		return nil, err
	} else if ok {
		if year, convErr := strconv.Atoi(raw); convErr == nil {
			targetYear = year
		}
	}

	var configuration map[string]any
	if raw, ok, err := f.sessions.Pop(ctx, sid, session.KeyLayoutConfiguration); err != nil {
		return nil, err
	} else if ok {
		if err := json.Unmarshal([]byte(raw), &configuration); err != nil {
			return nil, fmt.Errorf("generation: stored layout configuration is malformed: %w", err)
		}
	}

	layout, err := f.Layouts.Get(layoutID)
	if err != nil {
		return nil, err
	}

	entries, err := f.resolver.Resolve(user, targetYear)
	if err != nil {
		return nil, err
	}

	source, err := layout.Render(&plugin.RenderContext{
		TargetYear:    targetYear,
		Entries:       entries.Sorted(),
		Configuration: configuration,
	})
	if err != nil {
		return nil, err
	}

	compiler, err := f.dispatch(layout.LayoutType())
	if err != nil {
		return nil, err
	}

	artifact, err := compiler.GetResponse(source, layout.LayoutType())
	if err != nil {
		return nil, fmt.Errorf("generation: compiler %q: %w", compiler.ID(), err)
	}
	generationsTotal.WithLabelValues(layoutID).Inc()
	return artifact, nil
}

// dispatch resolves the compiler for a layout type. A missing mapping or
// an unresolvable configured compiler falls back to the "default" entry
// with a warning; the default itself is validated at startup, so a failure
// here is a deployment bug.
func (f *Flow) dispatch(layoutType string) (plugin.CompilerProvider, error) {
	if id, ok := f.compilerMap[layoutType]; ok {
		compiler, err := f.Compilers.Get(id)
		if err == nil {
			return compiler, nil
		}
		appLog.Warn("configured compiler not available, falling back to default",
			"layout_type", layoutType, "compiler", id)
	} else {
		appLog.Warn("no compiler configured for layout type, falling back to default",
			"layout_type", layoutType)
	}

	compiler, err := f.Compilers.Get(f.compilerMap[plugin.FallbackLayoutType])
	if err != nil {
		return nil, fmt.Errorf("generation: default compiler unavailable: %w", err)
	}
	return compiler, nil
}
