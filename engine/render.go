package engine

import (
	"bytes"
	"embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"
)

//go:embed lua/*.lua
var scripts embed.FS

const silentPrefix = "/silent-command "

var newlines = regexp.MustCompile(`\r?\n|\r`)

// Renderer turns commands into single line console commands.
type Renderer struct {
	force string
	tmpl  *template.Template
}

func NewRenderer(force string) (*Renderer, error) {
	tmpl, err := template.New("engine").
		Funcs(template.FuncMap{"quote": strconv.Quote}).
		ParseFS(scripts, "lua/*.lua")
	if err != nil {
		return nil, fmt.Errorf("parse engine scripts: %w", err)
	}
	return &Renderer{force: force, tmpl: tmpl}, nil
}

// Render returns the console line for cmd, without a trailing newline.
func (r *Renderer) Render(cmd Command) (string, error) {
	var (
		name string
		data any
	)
	switch c := cmd.(type) {
	case Dump:
		name = "dump.lua"
		data = struct{ Force string }{r.force}
	case Unlock:
		name = "unlock.lua"
		data = struct {
			Force string
			Unlock
		}{r.force, c}
	case SetProgress:
		name = "progress.lua"
		data = struct {
			Force string
			SetProgress
		}{r.force, c}
	default:
		return "", fmt.Errorf("unknown command %T", cmd)
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", cmd.Kind(), err)
	}
	return silentPrefix + strings.TrimSpace(newlines.ReplaceAllString(buf.String(), " ")), nil
}
