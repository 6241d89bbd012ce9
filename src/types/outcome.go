package types

type ErrorKind int

const (
	KindNone ErrorKind = iota
	ConfigError
	NetworkError
	ProviderError
	InvalidInput
)

func (k ErrorKind) String() string {
	switch k {
	case ConfigError:
		return "config_error"
	case NetworkError:
		return "network_error"
	case ProviderError:
		return "provider_error"
	case InvalidInput:
		return "invalid_input"
	default:
		return "none"
	}
}

// Retryable reports whether re-issuing the same search may succeed without operator action.
func (k ErrorKind) Retryable() bool {
	return k == NetworkError || k == ProviderError
}

type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeEmpty
	OutcomeSelected
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeEmpty:
		return "empty"
	case OutcomeSelected:
		return "selected"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// SearchOutcome is the tagged result of a search: Empty, Selected(Restaurant) or Failed(ErrorKind).
type SearchOutcome struct {
	Kind       OutcomeKind
	Restaurant *Restaurant
	ErrorKind  ErrorKind
}
