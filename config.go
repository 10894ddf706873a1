package novaheap

import "github.com/tuannm99/novaheap/internal"

func loadConfig(path string) (*internal.NovaHeapConfig, error) {
	if path == "" {
		return internal.Decode(internal.NewViper())
	}
	return internal.LoadConfig(path)
}
