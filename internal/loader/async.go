package loader

import (
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"go.uber.org/zap"
)

const (
	namespaceEntry  = "scripthost-entry"
	namespaceModule = "scripthost-module"
	namespaceNative = "scripthost-native"
)

// AsyncBody links the module graph below the entry at location into a
// single script body that may await at the top level. The body has no
// imports or exports and is meant to run inside an async function.
//
// natives maps specifiers served by the host to the expression their
// module evaluates to.
func (l *Loader) AsyncBody(location string, natives map[string]string) (string, error) {
	var (
		mu       sync.Mutex
		firstErr error
	)

	fail := func(err error) error {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
		return err
	}

	plugin := api.Plugin{
		Name: "scripthost",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"},
				func(args api.OnResolveArgs) (api.OnResolveResult, error) {
					if args.Kind == api.ResolveEntryPoint {
						return api.OnResolveResult{Path: args.Path, Namespace: namespaceEntry}, nil
					}

					if _, ok := natives[args.Path]; ok {
						return api.OnResolveResult{Path: args.Path, Namespace: namespaceNative}, nil
					}

					resolved, err := l.Resolve(args.Path, args.Importer)
					if err != nil {
						return api.OnResolveResult{}, fail(err)
					}

					return api.OnResolveResult{Path: resolved, Namespace: namespaceModule}, nil
				})

			// the entry only imports the script, so the bundle exports nothing
			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: namespaceEntry},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := "import " + strconv.Quote(args.Path) + ";\n"
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: namespaceModule},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					src, err := l.Load(args.Path)
					if err != nil {
						return api.OnLoadResult{}, fail(err)
					}
					return api.OnLoadResult{
						Contents:   &src.Code,
						Loader:     api.LoaderJS,
						ResolveDir: filepath.Dir(args.Path),
					}, nil
				})

			build.OnLoad(api.OnLoadOptions{Filter: ".*", Namespace: namespaceNative},
				func(args api.OnLoadArgs) (api.OnLoadResult, error) {
					contents := "module.exports = " + natives[args.Path] + ";\n"
					return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
				})
		},
	}

	result := api.Build(api.BuildOptions{
		EntryPoints: []string{location},
		Bundle:      true,
		Write:       false,
		Format:      api.FormatESModule,
		Platform:    api.PlatformNeutral,
		Target:      target,
		Supported:   map[string]bool{"top-level-await": true},
		LogLevel:    api.LogLevelSilent,
		Plugins:     []api.Plugin{plugin},
	})

	if firstErr != nil {
		return "", firstErr
	}

	if len(result.Errors) > 0 {
		return "", fmt.Errorf("%w: %s", ErrTranspile, formatMessages(result.Errors))
	}

	if len(result.OutputFiles) != 1 {
		return "", fmt.Errorf("%w: expected a single output, got %d", ErrTranspile, len(result.OutputFiles))
	}

	l.log.Debug("linked async module graph",
		zap.String("location", l.relative(location)),
		zap.Int("bytes", len(result.OutputFiles[0].Contents)))

	return string(result.OutputFiles[0].Contents), nil
}
