// Package lineatur provides various kinds of ruled paper. The term
// *lineatur* translates (loosely) to *ruled paper* and describes the lines
// or grids usually printed on note paper.
//
// Most of this package is configuration plumbing: the layout exposes a
// rich configuration form and turns the cleaned values into the CSS that
// actually draws the grid.
package lineatur

import (
	"embed"
	"fmt"
	"text/template"

	"calingen/internal/plugin"
)

//go:embed templates
var templates embed.FS

var layoutTemplate = template.Must(
	template.New("lineatur.html.tmpl").
		ParseFS(templates, "templates/*.tmpl"))

var colorChoices = []plugin.Choice{
	{Value: "rgb(0,0,0)", Label: "black"},
	{Value: "rgb(64,64,64)", Label: "dark grey"},
	{Value: "rgb(128,128,128)", Label: "light grey"},
	{Value: "rgb(255,0,0)", Label: "red"},
	{Value: "rgb(0,255,0)", Label: "green"},
	{Value: "rgb(0,0,255)", Label: "blue"},
}

var paperChoices = []plugin.Choice{
	{Value: "A0", Label: "A0 (841mm x 1189mm)"},
	{Value: "A1", Label: "A1 (594mm x 841mm)"},
	{Value: "A2", Label: "A2 (420mm x 594mm)"},
	{Value: "A3", Label: "A3 (297mm x 420mm)"},
	{Value: "A4", Label: "A4 (210mm x 297mm)"},
	{Value: "A5", Label: "A5 (148mm x 210mm)"},
	{Value: "A6", Label: "A6 (105mm x 148mm)"},
	{Value: "A7", Label: "A7 (74mm x 105mm)"},
	{Value: "B0", Label: "B0 (1000mm x 1414mm)"},
	{Value: "B1", Label: "B1 (707mm x 1000mm)"},
	{Value: "B2", Label: "B2 (500mm x 707mm)"},
	{Value: "B3", Label: "B3 (353mm x 500mm)"},
	{Value: "B4", Label: "B4 (250mm x 353mm)"},
	{Value: "B5", Label: "B5 (176mm x 250mm)"},
	{Value: "B6", Label: "B6 (125mm x 176mm)"},
	{Value: "B7", Label: "B7 (88mm x 125mm)"},
	{Value: "letter", Label: "Letter (8.5in x 11.0in)"},
	{Value: "legal", Label: "Government Legal (8.5in x 14.0in)"},
	{Value: "ledger", Label: "Ledger (17.0in x 11.0in)"},
}

var configurationForm = &plugin.ConfigurationForm{
	Fields: []plugin.FormField{
		{Name: "caption", Label: "Caption", Kind: plugin.FieldString, Default: ""},
		{Name: "caption_position", Label: "Position of the Caption", Kind: plugin.FieldChoice, Required: true, Default: "right", Choices: []plugin.Choice{
			{Value: "left", Label: "left"},
			{Value: "center", Label: "center"},
			{Value: "right", Label: "right"},
		}},
		{Name: "caption_size", Label: "Size of the Caption (pt)", Kind: plugin.FieldInt, Required: true, Default: "16"},
		{Name: "caption_font", Label: "Font Family of the Caption", Kind: plugin.FieldString, Default: "sans-serif"},
		{Name: "caption_color", Label: "Caption Text Color", Kind: plugin.FieldChoice, Required: true, Default: "rgb(128,128,128)", Choices: colorChoices},
		{Name: "paper_size", Label: "Paper Size", Kind: plugin.FieldChoice, Required: true, Default: "A5", Choices: paperChoices},
		{Name: "lineatur_type", Label: "Type of Grid to generate", Kind: plugin.FieldChoice, Required: true, Default: "blank", Choices: []plugin.Choice{
			{Value: "blank", Label: "blank"},
			{Value: "dotted", Label: "dotted"},
			{Value: "lined", Label: "lined"},
			{Value: "squared", Label: "squared"},
		}},
		{Name: "length_unit", Label: "Unit of lengths", Kind: plugin.FieldChoice, Required: true, Default: "cm", Choices: []plugin.Choice{
			{Value: "cm", Label: "Centimeters"},
			{Value: "mm", Label: "Millimeters"},
			{Value: "in", Label: "Inches"},
			{Value: "pt", Label: "Points (1/72th of 1in)"},
			{Value: "px", Label: "Pixels (1/96th of 1in)"},
		}},
		{Name: "lineatur_spacing_x", Label: "Grid horizontal spacing", Kind: plugin.FieldFloat, Required: true, Default: "0.5"},
		{Name: "lineatur_spacing_y", Label: "Grid vertical spacing", Kind: plugin.FieldFloat, Required: true, Default: "0.5"},
		{Name: "lineatur_color", Label: "Grid Color", Kind: plugin.FieldChoice, Required: true, Default: "rgb(128,128,128)", Choices: colorChoices},
		{Name: "lineatur_stroke_width", Label: "Width of the grid strokes (px)", Kind: plugin.FieldInt, Required: true, Default: "1"},
		{Name: "page_margin_top", Label: "Margin (top)", Kind: plugin.FieldFloat, Required: true, Default: "0"},
		{Name: "page_margin_right", Label: "Margin (right)", Kind: plugin.FieldFloat, Required: true, Default: "0"},
		{Name: "page_margin_bottom", Label: "Margin (bottom)", Kind: plugin.FieldFloat, Required: true, Default: "0"},
		{Name: "page_margin_left", Label: "Margin (left)", Kind: plugin.FieldFloat, Required: true, Default: "0"},
	},
}

func configString(cfg map[string]any, key, fallback string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// Cleaned values arrive as int or float64 directly from the form, and as
// float64 after a JSON round trip through the session store.
func configFloat(cfg map[string]any, key string, fallback float64) float64 {
	switch v := cfg[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return fallback
}

func configInt(cfg map[string]any, key string, fallback int) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

// gridBackground builds the CSS background drawing the requested grid.
func gridBackground(kind, color, unit string, spacingX, spacingY float64, stroke int) string {
	sx := fmt.Sprintf("%g%s", spacingX, unit)
	sy := fmt.Sprintf("%g%s", spacingY, unit)
	switch kind {
	case "dotted":
		return fmt.Sprintf(
			"background-image: radial-gradient(%s %dpx, transparent 0); background-size: %s %s;",
			color, stroke, sx, sy)
	case "lined":
		return fmt.Sprintf(
			"background-image: linear-gradient(to bottom, %s %dpx, transparent 0); background-size: 100%% %s;",
			color, stroke, sy)
	case "squared":
		return fmt.Sprintf(
			"background-image: linear-gradient(to right, %s %dpx, transparent 0), linear-gradient(to bottom, %s %dpx, transparent 0); background-size: %s %s;",
			color, stroke, color, stroke, sx, sy)
	default:
		return ""
	}
}

func prepareContext(ctx *plugin.RenderContext) error {
	cfg := ctx.Configuration
	unit := configString(cfg, "length_unit", "cm")

	// caption and caption_font are free text and end up in served HTML;
	// everything else is validated against a choice list or numeric.
	ctx.Prepared["caption"] = template.HTMLEscapeString(configString(cfg, "caption", ""))
	ctx.Prepared["captionPosition"] = configString(cfg, "caption_position", "right")
	ctx.Prepared["captionSize"] = configInt(cfg, "caption_size", 16)
	ctx.Prepared["captionFont"] = template.HTMLEscapeString(configString(cfg, "caption_font", "sans-serif"))
	ctx.Prepared["captionColor"] = configString(cfg, "caption_color", "rgb(128,128,128)")
	ctx.Prepared["paperSize"] = configString(cfg, "paper_size", "A5")
	ctx.Prepared["marginTop"] = fmt.Sprintf("%g%s", configFloat(cfg, "page_margin_top", 0), unit)
	ctx.Prepared["marginRight"] = fmt.Sprintf("%g%s", configFloat(cfg, "page_margin_right", 0), unit)
	ctx.Prepared["marginBottom"] = fmt.Sprintf("%g%s", configFloat(cfg, "page_margin_bottom", 0), unit)
	ctx.Prepared["marginLeft"] = fmt.Sprintf("%g%s", configFloat(cfg, "page_margin_left", 0), unit)
	ctx.Prepared["grid"] = gridBackground(
		configString(cfg, "lineatur_type", "blank"),
		configString(cfg, "lineatur_color", "rgb(128,128,128)"),
		unit,
		configFloat(cfg, "lineatur_spacing_x", 0.5),
		configFloat(cfg, "lineatur_spacing_y", 0.5),
		configInt(cfg, "lineatur_stroke_width", 1))
	return nil
}

// Layout is the registered provider.
var Layout = &plugin.TemplateLayout{
	Ident:       "layout.lineatur",
	Name:        "Lineatur",
	PaperSize:   "various",
	Orientation: "portrait",
	Type:        "html",
	Form:        configurationForm,
	Template:    layoutTemplate,
	Prepare:     prepareContext,
}

func init() {
	plugin.Layouts.MustRegister(Layout)
}
