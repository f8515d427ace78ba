package gate

import "github.com/grewanderer/datapact/catalog"

// Sanitize returns a deep copy of the configuration with every validation
// annotation removed. The input is never modified, and sanitizing an already
// clean configuration returns an equal copy.
func Sanitize(cfg catalog.Config) catalog.Config {
	out := cfg.Clone()
	for _, entry := range out {
		delete(entry, annotationKey)
	}
	return out
}
