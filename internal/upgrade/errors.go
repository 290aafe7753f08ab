package upgrade

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigShape is returned when fetch, install or post-install entries are malformed.
	ErrConfigShape = errors.New("invalid release configuration")
	// ErrFetch marks failures of the fetch step.
	ErrFetch = errors.New("fetch failed")
	// ErrInstall marks failures of the install step.
	ErrInstall = errors.New("install failed")
	// ErrPostInstall marks failures of a post-install step.
	ErrPostInstall = errors.New("post-install failed")
	// ErrUnknownProvider is returned when a reference names a provider that is not configured.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrUnknownRelease is returned when a release name is not configured in its provider.
	ErrUnknownRelease = errors.New("unknown release")
	// ErrInvalidReference is returned for references not of the form provider:release.
	ErrInvalidReference = errors.New("invalid release reference")
	// ErrReleaseClosed is returned when a release is used after its actions were cleaned up.
	ErrReleaseClosed = errors.New("release already cleaned up")
)

// Step names a pipeline step.
type Step string

const (
	// StepFetch downloads artifacts or resolves the candidate version.
	StepFetch Step = "fetch"
	// StepInstall applies artifacts or resolves the installed version.
	StepInstall Step = "install"
	// StepPostInstall runs a post-installer.
	StepPostInstall Step = "post-install"
)

func (s Step) sentinel() error {
	switch s {
	case StepFetch:
		return ErrFetch
	case StepInstall:
		return ErrInstall
	default:
		return ErrPostInstall
	}
}

// StepError reports which provider, release, step and action failed.
// It matches ErrFetch, ErrInstall or ErrPostInstall with errors.Is, as well
// as the underlying error.
type StepError struct {
	// Provider is the provider name.
	Provider string
	// Release is the release name.
	Release string
	// Step is the failing pipeline step.
	Step Step
	// Action is the name of the action that failed.
	Action string
	// Err is the error returned by the action.
	Err error
}

func newStepError(r *Release, step Step, name string, err error) *StepError {
	return &StepError{
		Provider: r.provider,
		Release:  r.name,
		Step:     step,
		Action:   name,
		Err:      err,
	}
}

// Error implements error.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s:%s: %s action %q: %v", e.Provider, e.Release, e.Step, e.Action, e.Err)
}

// Unwrap exposes both the step sentinel and the cause.
func (e *StepError) Unwrap() []error {
	return []error{e.Step.sentinel(), e.Err}
}
