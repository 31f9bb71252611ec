package match

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// DestinationConfig names where the session goes after returning to lobby.
// Resolution order: Index into Catalog, then Name, then Fallback.
type DestinationConfig struct {
	Index    int
	Name     string
	Fallback string
	Catalog  []string
}

func ResolveDestination(cfg DestinationConfig) (string, error) {
	if cfg.Index >= 0 {
		if cfg.Index < len(cfg.Catalog) {
			return cfg.Catalog[cfg.Index], nil
		}
		log.Warn().
			Int("index", cfg.Index).
			Int("catalog_size", len(cfg.Catalog)).
			Msg("lobby scene index out of range; trying name")
	}
	if name := strings.TrimSpace(cfg.Name); name != "" {
		if scene, ok := lookupScene(cfg.Catalog, name); ok {
			return scene, nil
		}
		log.Warn().Str("scene", name).Msg("lobby scene name not in catalog; using fallback")
	}
	fallback := strings.TrimSpace(cfg.Fallback)
	if fallback == "" {
		return "", fmt.Errorf("%w: no fallback configured", ErrNoDestination)
	}
	if len(cfg.Catalog) == 0 {
		return fallback, nil
	}
	if scene, ok := lookupScene(cfg.Catalog, fallback); ok {
		return scene, nil
	}
	return "", fmt.Errorf("%w: fallback %q not in catalog", ErrNoDestination, fallback)
}

func lookupScene(catalog []string, name string) (string, bool) {
	for _, scene := range catalog {
		if strings.EqualFold(strings.TrimSpace(scene), name) {
			return scene, true
		}
	}
	return "", false
}
