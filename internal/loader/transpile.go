package loader

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// target is the language level the sandbox engine runs.
const target = api.ES2017

func (l *Loader) transpile(code string, dialect Dialect, location string) (string, error) {
	var loader api.Loader
	switch dialect {
	case DialectTypeScript:
		loader = api.LoaderTS
	case DialectTSX:
		loader = api.LoaderTSX
	case DialectJSX:
		loader = api.LoaderJSX
	default:
		return code, nil
	}

	result := api.Transform(code, api.TransformOptions{
		Loader:      loader,
		Sourcefile:  l.relative(location),
		Target:      api.ESNext,
		JSXFactory:  l.config.JSXFactory,
		JSXFragment: l.config.JSXFragment,
	})

	if len(result.Errors) > 0 {
		return "", fmt.Errorf("%w: %s", ErrTranspile, formatMessages(result.Errors))
	}

	return string(result.Code), nil
}

// CommonJS converts a loaded module into a CommonJS body, lowering
// syntax the engine does not support. Module code relying on
// top-level await cannot be converted and fails with ErrTopLevelAwait.
func (l *Loader) CommonJS(src Source) (string, error) {
	result := api.Transform(src.Code, api.TransformOptions{
		Loader:     api.LoaderJS,
		Format:     api.FormatCommonJS,
		Sourcefile: l.relative(src.Location),
		Target:     target,
	})

	if len(result.Errors) > 0 {
		if awaitsAtTopLevel(result.Errors) {
			return "", fmt.Errorf("%w: %s", ErrTopLevelAwait, formatMessages(result.Errors))
		}
		return "", fmt.Errorf("%w: %s", ErrTranspile, formatMessages(result.Errors))
	}

	return string(result.Code), nil
}

func awaitsAtTopLevel(msgs []api.Message) bool {
	for _, m := range msgs {
		if strings.Contains(m.Text, "Top-level await") {
			return true
		}
	}
	return false
}

func formatMessages(msgs []api.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			parts = append(parts, fmt.Sprintf("%s:%d:%d: %s",
				m.Location.File, m.Location.Line, m.Location.Column, m.Text))
		} else {
			parts = append(parts, m.Text)
		}
	}
	return strings.Join(parts, "; ")
}
