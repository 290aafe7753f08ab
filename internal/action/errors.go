package action

import "errors"

var (
	// ErrDuplicateAction is returned when a (role, name) pair is registered twice.
	ErrDuplicateAction = errors.New("duplicate action")
	// ErrInvalidProviders is returned when a provider restriction is empty or names an empty provider.
	ErrInvalidProviders = errors.New("invalid allowed providers")
	// ErrInvalidRole is returned for roles outside the enumeration.
	ErrInvalidRole = errors.New("invalid action role")
	// ErrInvalidDescriptor is returned when a descriptor has no name or no factory.
	ErrInvalidDescriptor = errors.New("invalid action descriptor")
	// ErrUnknownAction is returned by lookups of unregistered actions.
	ErrUnknownAction = errors.New("unknown action")
	// ErrProviderNotAllowed is returned when a restricted action is used by another provider.
	ErrProviderNotAllowed = errors.New("action not allowed for provider")
	// ErrRoleMismatch is returned when a factory builds a value not implementing its role.
	ErrRoleMismatch = errors.New("action does not implement its role")
)
