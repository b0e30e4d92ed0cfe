package reason

import (
	"github.com/c360studio/semknow/endpoint"
	"github.com/c360studio/semknow/rdf"
)

// State is a stage of the template application state machine.
type State string

const (
	// StateRequested is the initial state.
	StateRequested State = "Requested"
	// StateVocabularyChecked means the endpoint's vocabulary is cached.
	StateVocabularyChecked State = "VocabularyChecked"
	// StateTranslated means every role substituted into a concrete query.
	StateTranslated State = "Translated"
	// StateExecuted means the query ran and results were normalized.
	StateExecuted State = "Executed"
	// StateSucceeded is the terminal success state.
	StateSucceeded State = "Succeeded"
	// StateFailed is the terminal failure state; Result.Failure says why.
	StateFailed State = "Failed"
)

// FailureCode classifies why a template application failed. Failures are
// values on the Result, not Go errors, so an empty successful derivation
// stays distinguishable from a failed one.
type FailureCode string

const (
	// DiscoveryRequired means the endpoint's vocabulary is not cached.
	// Applying templates to unknown vocabulary produces semantically
	// meaningless output, so this is a precondition, not a warning.
	DiscoveryRequired FailureCode = "DiscoveryRequired"
	// TemplateIncompatible means a required role has no predicate on the
	// target endpoint, or the template ID is unknown.
	TemplateIncompatible FailureCode = "TemplateIncompatible"
	// EndpointNotFound means the endpoint name did not resolve.
	EndpointNotFound FailureCode = "EndpointNotFound"
	// Timeout means the endpoint did not answer within the deadline.
	Timeout FailureCode = "Timeout"
	// ExecutionFailed covers other query transport or parse failures.
	ExecutionFailed FailureCode = "ExecutionFailed"
	// StorageUnavailable means the cache store rejected a read or write.
	StorageUnavailable FailureCode = "StorageUnavailable"
)

// Failure explains a failed application.
type Failure struct {
	// Code is the machine-readable reason.
	Code FailureCode `json:"code"`

	// Role is the offending vocabulary role, when one is to blame.
	Role endpoint.Role `json:"role,omitempty"`

	// Term is the offending term or name, when one is to blame.
	Term string `json:"term,omitempty"`

	// Detail is a human-readable explanation.
	Detail string `json:"detail"`
}

// Result is the outcome of one template application.
type Result struct {
	// State is the terminal state, Succeeded or Failed.
	State State `json:"state"`

	// TemplateID echoes the applied template.
	TemplateID string `json:"template_id"`

	// Endpoint echoes the target endpoint name.
	Endpoint string `json:"endpoint"`

	// Derived holds the materialized triples, deduplicated and sorted.
	Derived []rdf.Triple `json:"derived,omitempty"`

	// Count is len(Derived).
	Count int `json:"count"`

	// Confidence is the template's declared confidence, attached to every
	// derived triple.
	Confidence float64 `json:"confidence,omitempty"`

	// Query is the translated query, empty for local evaluation.
	Query string `json:"query,omitempty"`

	// CacheKey is where the derivation was persisted, if requested.
	CacheKey string `json:"cache_key,omitempty"`

	// Failure is set when State is Failed.
	Failure *Failure `json:"failure,omitempty"`
}

func failed(templateID, endpointName string, f Failure) *Result {
	return &Result{
		State:      StateFailed,
		TemplateID: templateID,
		Endpoint:   endpointName,
		Failure:    &f,
	}
}
