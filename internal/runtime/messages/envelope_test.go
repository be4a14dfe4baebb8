package messages

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errspkg "github.com/drblury/matchwire/internal/runtime/errors"
)

func sampleMessages() []Message {
	return []Message{
		&Login2LauncherNextMap{},
		&Login2LauncherSetPlayerLoadouts{
			UniqueID: 123,
			Loadouts: PlayerLoadouts{
				ClassLight: ClassLoadouts{
					0: Loadout{SlotPrimaryWeapon: 7401, SlotPack: 7832},
					8: Loadout{SlotBelt: 7434},
				},
				ClassHeavy: ClassLoadouts{},
			},
		},
		&Login2LauncherRemovePlayerLoadouts{UniqueID: 123},
		&Launcher2LoginServerInfo{Port: 7777, Description: "CTF \"blitz\"", Motd: "héllo <world>"},
		&Launcher2LoginMapInfo{},
		&Launcher2LoginTeamInfo{PlayerToTeamID: map[PlayerID]TeamID{1: TeamA, 2: TeamB}},
		&Launcher2LoginScoreInfo{},
		&Launcher2LoginMatchTime{},
		&Launcher2LoginMatchEnd{},
		&Game2LauncherTeamInfo{PlayerToTeamID: map[PlayerID]TeamID{123: TeamA, 234: TeamB, 321: TeamSpectator}},
		&Game2LauncherScoreInfo{BEScore: 1, DSScore: 5},
		&Game2LauncherMatchTime{SecondsRemaining: 60, Counting: true},
		&Game2LauncherMatchEnd{},
		&Game2LauncherLoadoutRequest{PlayerUniqueID: 123, ClassID: ClassLight, LoadoutNumber: 8},
		&Launcher2GameLoadout{PlayerUniqueID: 123, Loadout: Loadout{
			SlotPrimaryWeapon:   7401,
			SlotSecondaryWeapon: 7401,
			SlotTertiaryWeapon:  7401,
			SlotPack:            7832,
			SlotBelt:            7434,
			SlotSkin:            7834,
			SlotVoice:           8667,
		}},
	}
}

func envelope(tag Tag, payload string) []byte {
	buf := make([]byte, TagSize, TagSize+len(payload))
	binary.LittleEndian.PutUint16(buf, uint16(tag))
	return append(buf, payload...)
}

func TestRoundTripEveryVariant(t *testing.T) {
	samples := sampleMessages()
	require.Len(t, samples, DefaultRegistry().Len(), "every catalog variant needs a sample")

	for _, msg := range samples {
		t.Run(fmt.Sprintf("%T", msg), func(t *testing.T) {
			data, err := Encode(msg)
			require.NoError(t, err)

			decoded, err := Decode(data)
			require.NoError(t, err)
			assert.Equal(t, msg, decoded)
		})
	}
}

func TestEncodePlacesTagFirst(t *testing.T) {
	for _, msg := range sampleMessages() {
		data, err := Encode(msg)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(data), TagSize)
		assert.Equal(t, uint16(msg.Tag()), binary.LittleEndian.Uint16(data[:TagSize]))
	}

	a, err := Encode(&Game2LauncherMatchTime{SecondsRemaining: 0})
	require.NoError(t, err)
	b, err := Encode(&Game2LauncherMatchTime{SecondsRemaining: 9999, Counting: true})
	require.NoError(t, err)
	assert.Equal(t, a[:TagSize], b[:TagSize])
	assert.Equal(t, []byte{0x03, 0x30}, a[:TagSize])
}

func TestEncodeAcceptsValueVariants(t *testing.T) {
	data, err := Encode(Game2LauncherScoreInfo{BEScore: 3, DSScore: 2})
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, &Game2LauncherScoreInfo{BEScore: 3, DSScore: 2}, decoded)
}

func TestNoFieldVariantsEncodeToEmptyRecord(t *testing.T) {
	noField := []Message{
		Login2LauncherNextMap{},
		Launcher2LoginMapInfo{},
		Launcher2LoginScoreInfo{},
		Launcher2LoginMatchTime{},
		Launcher2LoginMatchEnd{},
		Game2LauncherMatchEnd{},
	}
	for _, msg := range noField {
		data, err := Encode(msg)
		require.NoError(t, err)
		assert.Equal(t, envelope(msg.Tag(), "{}"), data)

		decoded, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, msg.Tag(), decoded.Tag())
	}
}

func TestTeamInfoScenario(t *testing.T) {
	msg, err := NewGame2LauncherTeamInfo(map[PlayerID]TeamID{123: 0, 234: 1, 321: 255})
	require.NoError(t, err)

	data, err := Encode(msg)
	require.NoError(t, err)
	assert.Equal(t, envelope(0x3001, `{"player_to_team_id":{"123":0,"234":1,"321":255}}`), data)

	decoded, err := Decode(data)
	require.NoError(t, err)
	teamInfo, ok := decoded.(*Game2LauncherTeamInfo)
	require.True(t, ok, "expected *Game2LauncherTeamInfo, got %T", decoded)
	assert.Equal(t, map[PlayerID]TeamID{123: TeamA, 234: TeamB, 321: TeamSpectator}, teamInfo.PlayerToTeamID)
}

func TestMatchTimeScenario(t *testing.T) {
	data, err := Encode(&Game2LauncherMatchTime{SecondsRemaining: 60, Counting: true})
	require.NoError(t, err)
	assert.Equal(t, envelope(0x3003, `{"seconds_remaining":60,"counting":true}`), data)

	decoded, err := Decode(data)
	require.NoError(t, err)
	matchTime, ok := decoded.(*Game2LauncherMatchTime)
	require.True(t, ok)
	assert.Equal(t, 60, matchTime.SecondsRemaining)
	assert.True(t, matchTime.Counting)
}

func TestDecodeAcceptsPeerPayloads(t *testing.T) {
	decoded, err := Decode(envelope(TagGame2LauncherLoadoutRequest, `{ "player_unique_id" : 123, "class_id" : 1683, "loadout_number" : 0 }`))
	require.NoError(t, err)
	assert.Equal(t, &Game2LauncherLoadoutRequest{PlayerUniqueID: 123, ClassID: ClassLight, LoadoutNumber: 0}, decoded)

	decoded, err = Decode(envelope(TagGame2LauncherMatchEnd, "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, &Game2LauncherMatchEnd{}, decoded)
}

func TestDecodeUnknownTag(t *testing.T) {
	msg, err := Decode([]byte{0xFF, 0xFF})
	require.Error(t, err)
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, errspkg.ErrUnknownTag)
	assert.NotErrorIs(t, err, errspkg.ErrMalformedPayload)

	var unknown *UnknownTagError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, Tag(0xFFFF), unknown.Tag)
	assert.Equal(t, "matchwire: unknown tag 0xFFFF", err.Error())
	assert.Equal(t, KindUnknownTag, ErrorKind(err))

	_, err = Decode(envelope(0x3000, "{}"))
	assert.ErrorIs(t, err, errspkg.ErrUnknownTag)
}

func TestDecodeMalformedPayload(t *testing.T) {
	cases := map[string][]byte{
		"empty input":          {},
		"single byte":          {0x03},
		"empty payload":        envelope(TagGame2LauncherMatchTime, ""),
		"truncated":            envelope(TagGame2LauncherMatchTime, `{"seconds_remaining":60,"coun`),
		"not json":             envelope(TagGame2LauncherMatchTime, `seconds_remaining=60`),
		"array payload":        envelope(TagGame2LauncherMatchTime, `[60,true]`),
		"null payload":         envelope(TagGame2LauncherMatchEnd, `null`),
		"missing field":        envelope(TagGame2LauncherMatchTime, `{"seconds_remaining":60}`),
		"null field":           envelope(TagGame2LauncherMatchTime, `{"seconds_remaining":60,"counting":null}`),
		"unknown field":        envelope(TagGame2LauncherMatchTime, `{"seconds_remaining":60,"counting":true,"paused":false}`),
		"fields on no-field":   envelope(TagGame2LauncherMatchEnd, `{"winner":1}`),
		"wrong type":           envelope(TagGame2LauncherMatchTime, `{"seconds_remaining":"60","counting":true}`),
		"float for int":        envelope(TagGame2LauncherMatchTime, `{"seconds_remaining":60.5,"counting":true}`),
		"loadout out of range": envelope(TagGame2LauncherLoadoutRequest, `{"player_unique_id":1,"class_id":1683,"loadout_number":9}`),
		"overflowing uint8":    envelope(TagGame2LauncherLoadoutRequest, `{"player_unique_id":1,"class_id":1683,"loadout_number":300}`),
		"unknown team":         envelope(TagGame2LauncherTeamInfo, `{"player_to_team_id":{"1":2}}`),
		"non numeric player":   envelope(TagGame2LauncherTeamInfo, `{"player_to_team_id":{"abc":1}}`),
	}

	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			msg, err := Decode(data)
			require.Error(t, err)
			assert.Nil(t, msg)
			assert.ErrorIs(t, err, errspkg.ErrMalformedPayload)
			assert.NotErrorIs(t, err, errspkg.ErrUnknownTag)
			assert.Equal(t, KindMalformedPayload, ErrorKind(err))
		})
	}
}

func TestDecodeMissingFieldNamesField(t *testing.T) {
	_, err := Decode(envelope(TagLauncher2LoginServerInfo, `{"port":7777,"description":"x"}`))

	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "motd", fieldErr.Field)

	var malformed *MalformedPayloadError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, TagLauncher2LoginServerInfo, malformed.Tag)
}

func TestDecodeTagMismatch(t *testing.T) {
	registry := MustNewRegistry(Entry{
		Tag:  TagGame2LauncherMatchEnd,
		Name: "Game2LauncherMatchEnd",
		Decode: func([]byte) (Message, error) {
			return &Launcher2LoginMatchEnd{}, nil
		},
	})
	codec := NewCodec(registry)

	msg, err := codec.Decode(envelope(TagGame2LauncherMatchEnd, "{}"))
	require.Error(t, err)
	assert.Nil(t, msg)
	assert.ErrorIs(t, err, errspkg.ErrTagMismatch)
	assert.Equal(t, KindTagMismatch, ErrorKind(err))

	var mismatch *TagMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, TagGame2LauncherMatchEnd, mismatch.Envelope)
	assert.Equal(t, TagLauncher2LoginMatchEnd, mismatch.Decoded)
}

func TestDecodeErrorsDoNotAffectLaterCalls(t *testing.T) {
	_, err := Decode([]byte{0xFF, 0xFF})
	require.Error(t, err)
	_, err = Decode(envelope(TagGame2LauncherMatchTime, `{`))
	require.Error(t, err)

	decoded, err := Decode(envelope(TagGame2LauncherMatchTime, `{"seconds_remaining":5,"counting":false}`))
	require.NoError(t, err)
	assert.Equal(t, &Game2LauncherMatchTime{SecondsRemaining: 5}, decoded)
	assert.Equal(t, 15, DefaultRegistry().Len())
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode(nil)
	assert.ErrorIs(t, err, errspkg.ErrMessageRequired)

	var nilPtr *Game2LauncherMatchTime
	_, err = Encode(nilPtr)
	assert.ErrorIs(t, err, errspkg.ErrMessageRequired)

	_, err = Encode(&Game2LauncherLoadoutRequest{LoadoutNumber: 9})
	assert.ErrorIs(t, err, errspkg.ErrMalformedPayload)

	_, err = Encode(&Game2LauncherTeamInfo{})
	assert.ErrorIs(t, err, errspkg.ErrMalformedPayload, "nil map would encode as null")

	_, err = NewCodec(MustNewRegistry(Variant[Game2LauncherMatchEnd]())).Encode(&Game2LauncherMatchTime{})
	assert.ErrorIs(t, err, errspkg.ErrUnknownTag)
}

func TestPeekTag(t *testing.T) {
	tag, err := PeekTag(envelope(TagLauncher2GameLoadout, "{}"))
	require.NoError(t, err)
	assert.Equal(t, TagLauncher2GameLoadout, tag)

	_, err = PeekTag([]byte{0x00})
	assert.ErrorIs(t, err, errspkg.ErrMalformedPayload)
}

func TestCodecIsSafeForConcurrentUse(t *testing.T) {
	samples := sampleMessages()
	var wg sync.WaitGroup
	errs := make(chan error, 8*len(samples))

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, msg := range samples {
				data, err := Encode(msg)
				if err != nil {
					errs <- err
					continue
				}
				if _, err := Decode(data); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestMalformedPayloadUnwrapsCause(t *testing.T) {
	cause := errors.New("boom")
	err := error(&MalformedPayloadError{Tag: TagGame2LauncherMatchEnd, Err: cause})
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, errspkg.ErrMalformedPayload)
	assert.Equal(t, "matchwire: malformed payload for 0x3004: boom", err.Error())
}

func TestShortEnvelopeErrorCarriesNoTag(t *testing.T) {
	for _, data := range [][]byte{nil, {0x01}} {
		_, err := Decode(data)
		require.Error(t, err)
		assert.ErrorIs(t, err, errspkg.ErrMalformedPayload)
		assert.Equal(t, "matchwire: malformed payload: envelope shorter than the 2-byte tag", err.Error())
		assert.NotContains(t, err.Error(), "0x0000")

		var malformed *MalformedPayloadError
		require.ErrorAs(t, err, &malformed)
		assert.True(t, malformed.Untagged)
	}
}
