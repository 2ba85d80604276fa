package schema

import (
	"fmt"
	"sort"
)

// ResultMessages are the messages picked by AffectedItemsResult depending on the outcome.
type ResultMessages struct {
	All  string // every agent succeeded
	Some string // some agents failed
	None string // every agent failed
}

// AffectedItemsResult is the uniform envelope returned by every listing operation.
type AffectedItemsResult struct {
	AffectedItems      []Row               `json:"affected_items"`
	TotalAffectedItems int                 `json:"total_affected_items"`
	FailedItems        map[string][]string `json:"failed_items"`
	TotalFailedItems   int                 `json:"total_failed_items"`
	Message            string              `json:"message"`

	messages  ResultMessages
	succeeded int
}

// NewAffectedItemsResult creates an empty envelope.
func NewAffectedItemsResult(messages ResultMessages) *AffectedItemsResult {
	return &AffectedItemsResult{
		AffectedItems: []Row{},
		FailedItems:   map[string][]string{},
		messages:      messages,
	}
}

// AddAgentItems appends the rows contributed by one agent.
func (r *AffectedItemsResult) AddAgentItems(items []Row, total int) {
	r.AffectedItems = append(r.AffectedItems, items...)
	r.TotalAffectedItems += total
	r.succeeded++
	r.Message = r.pickMessage()
}

// AddFailedItem records agentID under the description of err.
func (r *AffectedItemsResult) AddFailedItem(agentID string, err error) {
	key := err.Error()
	if coded, ok := AsError(err); ok {
		key = coded.Error()
	}
	ids := append(r.FailedItems[key], agentID)
	sort.Strings(ids)
	r.FailedItems[key] = ids
	r.TotalFailedItems++
	r.Message = r.pickMessage()
}

// FailedAgents returns every agent id that failed, sorted.
func (r *AffectedItemsResult) FailedAgents() []string {
	var ids []string
	for _, agents := range r.FailedItems {
		ids = append(ids, agents...)
	}
	sort.Strings(ids)
	return ids
}

// pickMessage selects the envelope message for the current outcome.
func (r *AffectedItemsResult) pickMessage() string {
	switch {
	case r.TotalFailedItems == 0:
		return r.messages.All
	case r.succeeded == 0:
		return r.messages.None
	default:
		return r.messages.Some
	}
}

// String summarises the envelope for logs.
func (r *AffectedItemsResult) String() string {
	return fmt.Sprintf("%d affected items (%d total), %d failed agents",
		len(r.AffectedItems), r.TotalAffectedItems, r.TotalFailedItems)
}
