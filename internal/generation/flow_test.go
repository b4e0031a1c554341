package generation

import (
	"context"
	"testing"
	"text/template"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calingen/internal/plugin"
	"calingen/internal/resolution"
	"calingen/internal/session"
	"calingen/internal/storage"
)

// recordingCompiler captures what the flow hands to the compiler stage.
type recordingCompiler struct {
	id         string
	source     string
	layoutType string
}

func (c *recordingCompiler) ID() string    { return c.id }
func (c *recordingCompiler) Title() string { return c.id }

func (c *recordingCompiler) GetResponse(source string, layoutType string) (*plugin.Artifact, error) {
	c.source = source
	c.layoutType = layoutType
	return &plugin.Artifact{ContentType: "text/plain", Body: []byte(source)}, nil
}

func plainLayout() *plugin.TemplateLayout {
	return &plugin.TemplateLayout{
		Ident:    "layout.plain",
		Name:     "Plain",
		Type:     "plain",
		Template: template.Must(template.New("t").Parse("year={{ .TargetYear }} entries={{ len .Entries }}")),
	}
}

func configuredLayout() *plugin.TemplateLayout {
	return &plugin.TemplateLayout{
		Ident: "layout.configured",
		Name:  "Configured",
		Type:  "tex",
		Form: &plugin.ConfigurationForm{Fields: []plugin.FormField{
			{Name: "caption", Kind: plugin.FieldString, Default: "untitled"},
		}},
		Template: template.Must(template.New("t").Parse("caption={{ .Configuration.caption }}")),
	}
}

func newTestFlow(t *testing.T, compilerMap map[string]string) (*Flow, *recordingCompiler) {
	t.Helper()

	store, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	resolver, err := resolution.NewResolver(store, 8)
	require.NoError(t, err)

	flow := NewFlow(session.NewMemoryStore(time.Minute), resolver, compilerMap)
	flow.Layouts = plugin.NewRegistry[plugin.LayoutProvider]("layout provider")
	flow.Layouts.MustRegister(plainLayout())
	flow.Layouts.MustRegister(configuredLayout())

	compiler := &recordingCompiler{id: "compiler.test"}
	flow.Compilers = plugin.NewRegistry[plugin.CompilerProvider]("compiler")
	flow.Compilers.MustRegister(compiler)

	return flow, compiler
}

func TestSelectLayoutRejectsUnknownLayout(t *testing.T) {
	flow, _ := newTestFlow(t, map[string]string{"default": "compiler.test"})

	_, err := flow.SelectLayout(context.Background(), "sid", "layout.gone", 2024)
	var unknown *plugin.UnknownPluginError
	require.ErrorAs(t, err, &unknown)
}

func TestConfigurationFormRequiresSelection(t *testing.T) {
	flow, _ := newTestFlow(t, map[string]string{"default": "compiler.test"})

	_, err := flow.ConfigurationForm(context.Background(), "sid")
	require.ErrorIs(t, err, ErrNoLayoutSelected)

	require.ErrorIs(t,
		flow.SaveConfiguration(context.Background(), "sid", nil),
		ErrNoLayoutSelected)
}

func TestConfigurationFormSkippedWithoutForm(t *testing.T) {
	ctx := context.Background()
	flow, _ := newTestFlow(t, map[string]string{"default": "compiler.test"})

	_, err := flow.SelectLayout(ctx, "sid", "layout.plain", 2024)
	require.NoError(t, err)
	_, err = flow.ConfigurationForm(ctx, "sid")
	require.ErrorIs(t, err, ErrNoConfigurationForm)
}

func TestGenerateWithoutSelection(t *testing.T) {
	flow, _ := newTestFlow(t, map[string]string{"default": "compiler.test"})

	_, err := flow.Generate(context.Background(), "sid", "alice")
	require.ErrorIs(t, err, ErrNoLayoutSelected)
}

func TestGenerateHappyPath(t *testing.T) {
	ctx := context.Background()
	flow, compiler := newTestFlow(t, map[string]string{
		"default": "compiler.test",
		"plain":   "compiler.test",
	})

	year, err := flow.SelectLayout(ctx, "sid", "layout.plain", 2024)
	require.NoError(t, err)
	assert.Equal(t, 2024, year)

	artifact, err := flow.Generate(ctx, "sid", "alice")
	require.NoError(t, err)
	assert.Equal(t, "year=2024 entries=0", string(artifact.Body))
	assert.Equal(t, "plain", compiler.layoutType)

	// The terminal stage consumed the session: a second run starts over.
	_, err = flow.Generate(ctx, "sid", "alice")
	require.ErrorIs(t, err, ErrNoLayoutSelected)
}

func TestGenerateCarriesConfiguration(t *testing.T) {
	ctx := context.Background()
	flow, _ := newTestFlow(t, map[string]string{
		"default": "compiler.test",
		"tex":     "compiler.test",
	})

	_, err := flow.SelectLayout(ctx, "sid", "layout.configured", 2024)
	require.NoError(t, err)

	form, err := flow.ConfigurationForm(ctx, "sid")
	require.NoError(t, err)
	require.Len(t, form.Fields, 1)

	require.NoError(t, flow.SaveConfiguration(ctx, "sid", map[string]string{"caption": "Notes"}))

	artifact, err := flow.Generate(ctx, "sid", "alice")
	require.NoError(t, err)
	assert.Equal(t, "caption=Notes", string(artifact.Body))
}

func TestGenerateRejectsInvalidConfiguration(t *testing.T) {
	ctx := context.Background()
	flow, _ := newTestFlow(t, map[string]string{"default": "compiler.test"})

	_, err := flow.SelectLayout(ctx, "sid", "layout.configured", 2024)
	require.NoError(t, err)
	err = flow.SaveConfiguration(ctx, "sid", map[string]string{"caption": ""})
	require.NoError(t, err)

	// Unknown submitted keys are ignored, defaults fill the rest.
	require.NoError(t, flow.SaveConfiguration(ctx, "sid", map[string]string{"bogus": "x"}))
}

func TestGenerateDefaultTargetYear(t *testing.T) {
	ctx := context.Background()
	flow, _ := newTestFlow(t, map[string]string{
		"default": "compiler.test",
		"plain":   "compiler.test",
	})

	year, err := flow.SelectLayout(ctx, "sid", "layout.plain", 0)
	require.NoError(t, err)
	assert.Equal(t, time.Now().Year(), year)

	artifact, err := flow.Generate(ctx, "sid", "alice")
	require.NoError(t, err)
	assert.Contains(t, string(artifact.Body), time.Now().Format("2006"))
}

func TestDispatchFallsBackToDefault(t *testing.T) {
	ctx := context.Background()
	// Only the fallback slot is mapped; the "plain" layout type has no
	// entry of its own.
	flow, compiler := newTestFlow(t, map[string]string{"default": "compiler.test"})

	_, err := flow.SelectLayout(ctx, "sid", "layout.plain", 2024)
	require.NoError(t, err)
	_, err = flow.Generate(ctx, "sid", "alice")
	require.NoError(t, err)
	assert.Equal(t, "plain", compiler.layoutType)
}

func TestDispatchFailsWithoutDefaultCompiler(t *testing.T) {
	ctx := context.Background()
	flow, _ := newTestFlow(t, map[string]string{"default": "compiler.gone"})

	_, err := flow.SelectLayout(ctx, "sid", "layout.plain", 2024)
	require.NoError(t, err)
	_, err = flow.Generate(ctx, "sid", "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "default compiler unavailable")
}
