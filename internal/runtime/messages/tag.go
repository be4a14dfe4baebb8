package messages

import "fmt"

// Tag identifies a message kind on the wire. Values are only ever added,
// never changed or reused, so independently deployed processes stay compatible.
type Tag uint16

// Login server -> launcher.
const (
	TagLogin2LauncherNextMap              Tag = 0x1000
	TagLogin2LauncherSetPlayerLoadouts    Tag = 0x1001
	TagLogin2LauncherRemovePlayerLoadouts Tag = 0x1002
)

// Launcher -> login server.
const (
	TagLauncher2LoginServerInfo Tag = 0x2000
	TagLauncher2LoginMapInfo    Tag = 0x2001
	TagLauncher2LoginTeamInfo   Tag = 0x2002
	TagLauncher2LoginScoreInfo  Tag = 0x2003
	TagLauncher2LoginMatchTime  Tag = 0x2004
	TagLauncher2LoginMatchEnd   Tag = 0x2005
)

// Game server -> launcher.
const (
	TagGame2LauncherTeamInfo       Tag = 0x3001
	TagGame2LauncherScoreInfo      Tag = 0x3002
	TagGame2LauncherMatchTime      Tag = 0x3003
	TagGame2LauncherMatchEnd       Tag = 0x3004
	TagGame2LauncherLoadoutRequest Tag = 0x3005
)

// Launcher -> game server.
const (
	TagLauncher2GameLoadout Tag = 0x4000
)

func (t Tag) String() string {
	return fmt.Sprintf("0x%04X", uint16(t))
}

// Direction derives the sender/receiver pair from the high nibble of the tag.
// The grouping is a naming convention; decoding never depends on it.
func (t Tag) Direction() Direction {
	switch t >> 12 {
	case 0x1:
		return Login2Launcher
	case 0x2:
		return Launcher2Login
	case 0x3:
		return Game2Launcher
	case 0x4:
		return Launcher2Game
	default:
		return DirectionUnknown
	}
}

// Name returns the variant name registered for t in the default registry, or "".
func (t Tag) Name() string {
	return defaultRegistry.Name(t)
}

// Direction names an originating/receiving process pair.
type Direction uint8

const (
	DirectionUnknown Direction = iota
	Login2Launcher
	Launcher2Login
	Game2Launcher
	Launcher2Game
)

var directionNames = map[Direction]string{
	Login2Launcher: "login.launcher",
	Launcher2Login: "launcher.login",
	Game2Launcher:  "game.launcher",
	Launcher2Game:  "launcher.game",
}

// Directions lists every known direction in tag order.
func Directions() []Direction {
	return []Direction{Login2Launcher, Launcher2Login, Game2Launcher, Launcher2Game}
}

// String returns the dotted sender.receiver form used in topic names.
func (d Direction) String() string {
	if name, ok := directionNames[d]; ok {
		return name
	}
	return "unknown"
}
