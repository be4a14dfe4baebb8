package messages

import "slices"

var catalog = []Entry{
	Variant[Login2LauncherNextMap](),
	Variant[Login2LauncherSetPlayerLoadouts](),
	Variant[Login2LauncherRemovePlayerLoadouts](),

	Variant[Launcher2LoginServerInfo](),
	Variant[Launcher2LoginMapInfo](),
	Variant[Launcher2LoginTeamInfo](),
	Variant[Launcher2LoginScoreInfo](),
	Variant[Launcher2LoginMatchTime](),
	Variant[Launcher2LoginMatchEnd](),

	Variant[Game2LauncherTeamInfo](),
	Variant[Game2LauncherScoreInfo](),
	Variant[Game2LauncherMatchTime](),
	Variant[Game2LauncherMatchEnd](),
	Variant[Game2LauncherLoadoutRequest](),

	Variant[Launcher2GameLoadout](),
}

var defaultRegistry = MustNewRegistry(catalog...)

// DefaultRegistry returns the registry holding the complete catalog.
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Catalog returns a copy of the catalog entries in declaration order.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	for i, entry := range catalog {
		entry.Fields = slices.Clone(entry.Fields)
		out[i] = entry
	}
	return out
}
