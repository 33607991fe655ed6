package loader

import (
	"context"
	"strings"

	"github.com/aretw0/stepwise/pkg/adapters/file"
	"github.com/aretw0/stepwise/pkg/adapters/remote"
	"github.com/aretw0/stepwise/pkg/ports"
)

// MultiSource routes a locator to the source matching its scheme:
// http(s) URLs go to the remote source, everything else to the file source.
type MultiSource struct {
	Local  ports.DefinitionSource
	Remote ports.DefinitionSource
}

// NewMultiSource creates a MultiSource with the default file and remote sources.
func NewMultiSource() *MultiSource {
	return &MultiSource{
		Local:  file.NewSource(""),
		Remote: remote.NewSource(),
	}
}

// Fetch implements ports.DefinitionSource.
func (m *MultiSource) Fetch(ctx context.Context, locator string) ([]byte, error) {
	if IsRemote(locator) {
		return m.Remote.Fetch(ctx, locator)
	}
	return m.Local.Fetch(ctx, strings.TrimPrefix(locator, "file://"))
}

// IsRemote reports whether the locator is an http(s) URL.
func IsRemote(locator string) bool {
	l := strings.ToLower(locator)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
