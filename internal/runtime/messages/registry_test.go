package messages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryHoldsCatalog(t *testing.T) {
	registry := DefaultRegistry()
	assert.Equal(t, 15, registry.Len())
	assert.Equal(t, []Tag{
		0x1000, 0x1001, 0x1002,
		0x2000, 0x2001, 0x2002, 0x2003, 0x2004, 0x2005,
		0x3001, 0x3002, 0x3003, 0x3004, 0x3005,
		0x4000,
	}, registry.Tags())

	for _, entry := range Catalog() {
		got, ok := registry.Lookup(entry.Tag)
		require.True(t, ok, "missing %s", entry.Name)
		assert.Equal(t, entry.Name, got.Name)
		assert.Equal(t, entry.Fields, got.Fields)
	}
}

func TestVariantDerivesFieldsFromJSONTags(t *testing.T) {
	entry := Variant[Launcher2LoginServerInfo]()
	assert.Equal(t, TagLauncher2LoginServerInfo, entry.Tag)
	assert.Equal(t, "Launcher2LoginServerInfo", entry.Name)
	assert.Equal(t, []string{"port", "description", "motd"}, entry.Fields)
	assert.Equal(t, Launcher2Login, entry.Direction())

	empty := Variant[Game2LauncherMatchEnd]()
	assert.Empty(t, empty.Fields)
}

func TestRegistryRejectsDuplicateTag(t *testing.T) {
	_, err := NewRegistry(
		Variant[Game2LauncherMatchEnd](),
		Entry{Tag: TagGame2LauncherMatchEnd, Name: "Impostor", Decode: func([]byte) (Message, error) { return nil, nil }},
	)
	require.Error(t, err)

	var dup *DuplicateTagError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, TagGame2LauncherMatchEnd, dup.Tag)
	assert.Equal(t, "Game2LauncherMatchEnd", dup.First)
	assert.Equal(t, "Impostor", dup.Other)

	assert.Panics(t, func() {
		MustNewRegistry(Variant[Game2LauncherMatchEnd](), Variant[Game2LauncherMatchEnd]())
	})
}

func TestRegistryRejectsEntryWithoutDecoder(t *testing.T) {
	_, err := NewRegistry(Entry{Tag: 0x5000, Name: "Nothing"})
	assert.ErrorContains(t, err, "has no decoder")
}

func TestRegistryLookupMissing(t *testing.T) {
	_, ok := DefaultRegistry().Lookup(0xFFFF)
	assert.False(t, ok)
	assert.Empty(t, Tag(0xFFFF).Name())
}

func TestRegistryReturnsCopies(t *testing.T) {
	registry := DefaultRegistry()

	tags := registry.Tags()
	tags[0] = 0xFFFF
	assert.Equal(t, TagLogin2LauncherNextMap, registry.Tags()[0])

	entry, ok := registry.Lookup(TagGame2LauncherMatchTime)
	require.True(t, ok)
	entry.Fields[0] = "tampered"

	again, _ := registry.Lookup(TagGame2LauncherMatchTime)
	assert.Equal(t, []string{"seconds_remaining", "counting"}, again.Fields)

	catalogCopy := Catalog()
	catalogCopy[11].Fields[0] = "tampered"
	_, err := Decode(envelope(TagGame2LauncherMatchTime, `{"seconds_remaining":1,"counting":true}`))
	assert.NoError(t, err)
}

func TestTagDirectionAndName(t *testing.T) {
	cases := []struct {
		tag       Tag
		direction Direction
		name      string
	}{
		{TagLogin2LauncherSetPlayerLoadouts, Login2Launcher, "Login2LauncherSetPlayerLoadouts"},
		{TagLauncher2LoginMatchEnd, Launcher2Login, "Launcher2LoginMatchEnd"},
		{TagGame2LauncherLoadoutRequest, Game2Launcher, "Game2LauncherLoadoutRequest"},
		{TagLauncher2GameLoadout, Launcher2Game, "Launcher2GameLoadout"},
		{0x9000, DirectionUnknown, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.direction, tc.tag.Direction(), tc.tag.String())
		assert.Equal(t, tc.name, tc.tag.Name(), tc.tag.String())
	}

	assert.Equal(t, "0x3001", TagGame2LauncherTeamInfo.String())
	assert.Equal(t, "game.launcher", Game2Launcher.String())
	assert.Equal(t, "unknown", DirectionUnknown.String())
	assert.Len(t, Directions(), 4)
}

func TestCatalogTagsAreUnique(t *testing.T) {
	seen := make(map[Tag]string)
	for _, entry := range Catalog() {
		if other, ok := seen[entry.Tag]; ok {
			t.Fatalf("tag %s shared by %s and %s", entry.Tag, other, entry.Name)
		}
		seen[entry.Tag] = entry.Name
		assert.NotEqual(t, DirectionUnknown, entry.Direction(), entry.Name)
	}
}
