package messages

// Message is implemented by every catalog variant. Variants are plain structs
// whose json tags name the payload keys; all declared fields are required.
type Message interface {
	Tag() Tag
}

// Validator is implemented by variants with constraints beyond field shape.
// The codec runs it before encoding and after decoding.
type Validator interface {
	Validate() error
}

// PlayerID is a player's unique id as assigned by the login server.
type PlayerID uint32

// TeamID is the team a player is on.
type TeamID uint8

const (
	TeamA         TeamID = 0
	TeamB         TeamID = 1
	TeamSpectator TeamID = 255
)

// Valid reports whether id is one of the known team ids.
func (id TeamID) Valid() bool {
	return id == TeamA || id == TeamB || id == TeamSpectator
}

// ClassID, SlotID and ItemID are owned by the game process and passed
// through untouched. The constants below exist for readability only.
type (
	ClassID uint32
	SlotID  uint32
	ItemID  uint32
)

const (
	ClassLight  ClassID = 1683
	ClassMedium ClassID = 1693
	ClassHeavy  ClassID = 1692
)

const (
	SlotPrimaryWeapon   SlotID = 1086
	SlotSecondaryWeapon SlotID = 1087
	SlotTertiaryWeapon  SlotID = 1765
	SlotPack            SlotID = 1088
	SlotBelt            SlotID = 1089
	SlotSkin            SlotID = 1093
	SlotVoice           SlotID = 1094
)

// LoadoutNumber selects one of a class's stored loadouts.
type LoadoutNumber uint8

// MaxLoadoutNumber is the highest loadout number the game server requests.
const MaxLoadoutNumber LoadoutNumber = 8

// Loadout assigns an item to each equipment slot.
type Loadout map[SlotID]ItemID

// ClassLoadouts holds the numbered loadouts of one class.
type ClassLoadouts map[LoadoutNumber]Loadout

// PlayerLoadouts holds every class's loadouts for one player.
type PlayerLoadouts map[ClassID]ClassLoadouts
