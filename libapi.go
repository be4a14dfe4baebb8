package matchwire

import (
	runtimepkg "github.com/drblury/matchwire/internal/runtime"
	configpkg "github.com/drblury/matchwire/internal/runtime/config"
	errspkg "github.com/drblury/matchwire/internal/runtime/errors"
	handlerpkg "github.com/drblury/matchwire/internal/runtime/handlers"
	idspkg "github.com/drblury/matchwire/internal/runtime/ids"
	loggingpkg "github.com/drblury/matchwire/internal/runtime/logging"
	messagespkg "github.com/drblury/matchwire/internal/runtime/messages"
	metadatapkg "github.com/drblury/matchwire/internal/runtime/metadata"
	transportpkg "github.com/drblury/matchwire/internal/runtime/transport"
	newtransport "github.com/drblury/matchwire/transport"
)

type (
	Config               = configpkg.Config
	Service              = runtimepkg.Service
	ServiceDependencies  = runtimepkg.ServiceDependencies
	Transport            = transportpkg.Transport
	TransportFactory     = transportpkg.Factory
	TransportFactoryFunc = transportpkg.FactoryFunc

	// Protocol
	Tag                   = messagespkg.Tag
	Direction             = messagespkg.Direction
	Message               = messagespkg.Message
	Codec                 = messagespkg.Codec
	Registry              = messagespkg.Registry
	RegistryEntry         = messagespkg.Entry
	UnknownTagError       = messagespkg.UnknownTagError
	MalformedPayloadError = messagespkg.MalformedPayloadError
	TagMismatchError      = messagespkg.TagMismatchError
	FieldError            = messagespkg.FieldError

	PlayerID       = messagespkg.PlayerID
	TeamID         = messagespkg.TeamID
	ClassID        = messagespkg.ClassID
	SlotID         = messagespkg.SlotID
	ItemID         = messagespkg.ItemID
	LoadoutNumber  = messagespkg.LoadoutNumber
	Loadout        = messagespkg.Loadout
	ClassLoadouts  = messagespkg.ClassLoadouts
	PlayerLoadouts = messagespkg.PlayerLoadouts

	Login2LauncherNextMap              = messagespkg.Login2LauncherNextMap
	Login2LauncherSetPlayerLoadouts    = messagespkg.Login2LauncherSetPlayerLoadouts
	Login2LauncherRemovePlayerLoadouts = messagespkg.Login2LauncherRemovePlayerLoadouts
	Launcher2LoginServerInfo           = messagespkg.Launcher2LoginServerInfo
	Launcher2LoginMapInfo              = messagespkg.Launcher2LoginMapInfo
	Launcher2LoginTeamInfo             = messagespkg.Launcher2LoginTeamInfo
	Launcher2LoginScoreInfo            = messagespkg.Launcher2LoginScoreInfo
	Launcher2LoginMatchTime            = messagespkg.Launcher2LoginMatchTime
	Launcher2LoginMatchEnd             = messagespkg.Launcher2LoginMatchEnd
	Game2LauncherTeamInfo              = messagespkg.Game2LauncherTeamInfo
	Game2LauncherScoreInfo             = messagespkg.Game2LauncherScoreInfo
	Game2LauncherMatchTime             = messagespkg.Game2LauncherMatchTime
	Game2LauncherMatchEnd              = messagespkg.Game2LauncherMatchEnd
	Game2LauncherLoadoutRequest        = messagespkg.Game2LauncherLoadoutRequest
	Launcher2GameLoadout               = messagespkg.Launcher2GameLoadout

	// Handlers
	Dispatcher                 = handlerpkg.Dispatcher
	HandlerFunc[T Message]     = handlerpkg.HandlerFunc[T]
	MessageContext             = handlerpkg.MessageContext
	MessageHandlerRegistration = runtimepkg.MessageHandlerRegistration
	DispatcherRegistration     = runtimepkg.DispatcherRegistration

	MiddlewareBuilder      = runtimepkg.MiddlewareBuilder
	MiddlewareRegistration = runtimepkg.MiddlewareRegistration
	RetryMiddlewareConfig  = runtimepkg.RetryMiddlewareConfig

	HandlerContext = runtimepkg.HandlerContext
	HandlerHooks   = runtimepkg.HandlerHooks

	Producer = runtimepkg.Producer
	Metadata = metadatapkg.Metadata

	LogFields                 = loggingpkg.LogFields
	ServiceLogger             = loggingpkg.ServiceLogger
	EntryLoggerAdapter[T any] = loggingpkg.EntryLoggerAdapter[T]

	UnprocessableEventError = runtimepkg.UnprocessableEventError
	ConfigValidationError   = errspkg.ConfigValidationError

	HandlerInfo             = runtimepkg.HandlerInfo
	HandlerStats            = runtimepkg.HandlerStats
	ProtocolMetrics         = runtimepkg.ProtocolMetrics
	ProtocolMetricsSnapshot = runtimepkg.ProtocolMetricsSnapshot
	ErrorClassifier         = runtimepkg.ErrorClassifier
	ErrorCategory           = runtimepkg.ErrorCategory

	TransportBuilder      = newtransport.Builder
	TransportConfig       = newtransport.Config
	TransportRegistry     = newtransport.Registry
	TransportCapabilities = newtransport.Capabilities
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	ValidateConfig = configpkg.ValidateConfig
	Topic          = runtimepkg.Topic

	NewCodec        = messagespkg.NewCodec
	DefaultCodec    = messagespkg.DefaultCodec
	NewRegistry     = messagespkg.NewRegistry
	MustNewRegistry = messagespkg.MustNewRegistry
	DefaultRegistry = messagespkg.DefaultRegistry
	Catalog         = messagespkg.Catalog
	Encode          = messagespkg.Encode
	Decode          = messagespkg.Decode
	PeekTag         = messagespkg.PeekTag
	ErrorKind       = messagespkg.ErrorKind
	Directions      = messagespkg.Directions

	NewGame2LauncherTeamInfo              = messagespkg.NewGame2LauncherTeamInfo
	NewGame2LauncherScoreInfo             = messagespkg.NewGame2LauncherScoreInfo
	NewGame2LauncherMatchTime             = messagespkg.NewGame2LauncherMatchTime
	NewGame2LauncherLoadoutRequest        = messagespkg.NewGame2LauncherLoadoutRequest
	NewLauncher2LoginServerInfo           = messagespkg.NewLauncher2LoginServerInfo
	NewLauncher2LoginTeamInfo             = messagespkg.NewLauncher2LoginTeamInfo
	NewLauncher2GameLoadout               = messagespkg.NewLauncher2GameLoadout
	NewLogin2LauncherSetPlayerLoadouts    = messagespkg.NewLogin2LauncherSetPlayerLoadouts
	NewLogin2LauncherRemovePlayerLoadouts = messagespkg.NewLogin2LauncherRemovePlayerLoadouts

	NewDispatcher          = handlerpkg.NewDispatcher
	NewEnvelopeMessage     = handlerpkg.NewEnvelopeMessage
	DecodedFromContext     = handlerpkg.DecodedFromContext
	RegisterMessageHandler = runtimepkg.RegisterMessageHandler
	RegisterDispatcher     = runtimepkg.RegisterDispatcher
	Publish                = runtimepkg.Publish

	DefaultMiddlewares         = runtimepkg.DefaultMiddlewares
	CorrelationIDMiddleware    = runtimepkg.CorrelationIDMiddleware
	LogMessagesMiddleware      = runtimepkg.LogMessagesMiddleware
	EnvelopeValidateMiddleware = runtimepkg.EnvelopeValidateMiddleware
	TracerMiddleware           = runtimepkg.TracerMiddleware
	MetricsMiddleware          = runtimepkg.MetricsMiddleware
	RetryMiddleware            = runtimepkg.RetryMiddleware
	PoisonQueueMiddleware      = runtimepkg.PoisonQueueMiddleware
	RecovererMiddleware        = runtimepkg.RecovererMiddleware
	HandlerHooksMiddleware     = runtimepkg.HandlerHooksMiddleware
	LoggingHooks               = runtimepkg.LoggingHooks
	NewProtocolMetrics         = runtimepkg.NewProtocolMetrics

	GetCapabilities          = newtransport.GetCapabilities
	DefaultTransportRegistry = newtransport.DefaultRegistry
	RegisterTransport        = newtransport.Register
	BuildTransport           = newtransport.Build

	ErrUnknownTag           = errspkg.ErrUnknownTag
	ErrMalformedPayload     = errspkg.ErrMalformedPayload
	ErrTagMismatch          = errspkg.ErrTagMismatch
	ErrMessageRequired      = errspkg.ErrMessageRequired
	ErrServiceRequired      = errspkg.ErrServiceRequired
	ErrHandlerRequired      = errspkg.ErrHandlerRequired
	ErrDispatcherRequired   = errspkg.ErrDispatcherRequired
	ErrDuplicateHandler     = errspkg.ErrDuplicateHandler
	ErrConsumeTopicRequired = errspkg.ErrConsumeTopicRequired
	ErrHandlerNameRequired  = errspkg.ErrHandlerNameRequired
	ErrPublisherRequired    = errspkg.ErrPublisherRequired
	ErrTopicRequired        = errspkg.ErrTopicRequired
	ErrConfigRequired       = errspkg.ErrConfigRequired
	ErrLoggerRequired       = errspkg.ErrLoggerRequired
	IsProtocolError         = errspkg.IsProtocolError

	NewSlogServiceLogger    = loggingpkg.NewSlogServiceLogger
	NewDiscardServiceLogger = loggingpkg.NewDiscardServiceLogger

	NewMetadata = metadatapkg.New
	CreateULID  = idspkg.CreateULID
)

// Catalog tags.
const (
	TagLogin2LauncherNextMap              = messagespkg.TagLogin2LauncherNextMap
	TagLogin2LauncherSetPlayerLoadouts    = messagespkg.TagLogin2LauncherSetPlayerLoadouts
	TagLogin2LauncherRemovePlayerLoadouts = messagespkg.TagLogin2LauncherRemovePlayerLoadouts
	TagLauncher2LoginServerInfo           = messagespkg.TagLauncher2LoginServerInfo
	TagLauncher2LoginMapInfo              = messagespkg.TagLauncher2LoginMapInfo
	TagLauncher2LoginTeamInfo             = messagespkg.TagLauncher2LoginTeamInfo
	TagLauncher2LoginScoreInfo            = messagespkg.TagLauncher2LoginScoreInfo
	TagLauncher2LoginMatchTime            = messagespkg.TagLauncher2LoginMatchTime
	TagLauncher2LoginMatchEnd             = messagespkg.TagLauncher2LoginMatchEnd
	TagGame2LauncherTeamInfo              = messagespkg.TagGame2LauncherTeamInfo
	TagGame2LauncherScoreInfo             = messagespkg.TagGame2LauncherScoreInfo
	TagGame2LauncherMatchTime             = messagespkg.TagGame2LauncherMatchTime
	TagGame2LauncherMatchEnd              = messagespkg.TagGame2LauncherMatchEnd
	TagGame2LauncherLoadoutRequest        = messagespkg.TagGame2LauncherLoadoutRequest
	TagLauncher2GameLoadout               = messagespkg.TagLauncher2GameLoadout
)

const (
	Login2Launcher = messagespkg.Login2Launcher
	Launcher2Login = messagespkg.Launcher2Login
	Game2Launcher  = messagespkg.Game2Launcher
	Launcher2Game  = messagespkg.Launcher2Game
)

const (
	TeamA         = messagespkg.TeamA
	TeamB         = messagespkg.TeamB
	TeamSpectator = messagespkg.TeamSpectator

	ClassLight  = messagespkg.ClassLight
	ClassMedium = messagespkg.ClassMedium
	ClassHeavy  = messagespkg.ClassHeavy
)

// Metadata keys set on every envelope the relay publishes.
const (
	MetadataKeyTag           = metadatapkg.KeyTag
	MetadataKeyMessage       = metadatapkg.KeyMessage
	MetadataKeyCorrelationID = metadatapkg.KeyCorrelationID
)

const (
	UnknownTagReject   = configpkg.UnknownTagReject
	UnknownTagSkip     = configpkg.UnknownTagSkip
	DefaultTopicPrefix = configpkg.DefaultTopicPrefix
)

// Error category constants for ErrorClassifier.
const (
	ErrorCategoryNone             = runtimepkg.ErrorCategoryNone
	ErrorCategoryUnknownTag       = runtimepkg.ErrorCategoryUnknownTag
	ErrorCategoryMalformedPayload = runtimepkg.ErrorCategoryMalformedPayload
	ErrorCategoryTagMismatch      = runtimepkg.ErrorCategoryTagMismatch
	ErrorCategoryDownstream       = runtimepkg.ErrorCategoryDownstream
	ErrorCategoryOther            = runtimepkg.ErrorCategoryOther
)

// On registers fn on d for the variant T.
func On[T Message](d *Dispatcher, fn HandlerFunc[T]) error {
	return handlerpkg.On(d, fn)
}

func NewEntryServiceLogger[T EntryLoggerAdapter[T]](entry T) ServiceLogger {
	return loggingpkg.NewEntryServiceLogger(entry)
}
