package models

// NodeKind identifies the behavioral type of a flow node. It is also the
// prefix of every connection handle the node exposes.
type NodeKind string

const (
	NodeKindStart          NodeKind = "startAgentflow"
	NodeKindCondition      NodeKind = "conditionAgentflow"
	NodeKindConditionAgent NodeKind = "conditionAgentAgentflow"
	NodeKindLLM            NodeKind = "llmAgentflow"
	NodeKindAgent          NodeKind = "agentAgentflow"
	NodeKindHumanInput     NodeKind = "humanInputAgentflow"
	NodeKindLoop           NodeKind = "loopAgentflow"
	NodeKindDirectReply    NodeKind = "directReplyAgentflow"
	NodeKindCustomFunction NodeKind = "customFunctionAgentflow"
	NodeKindTool           NodeKind = "toolAgentflow"
	NodeKindRetriever      NodeKind = "retrieverAgentflow"
	NodeKindHTTP           NodeKind = "httpAgentflow"
	NodeKindIteration      NodeKind = "iterationAgentflow"
	NodeKindExecuteFlow    NodeKind = "executeFlowAgentflow"
	NodeKindStickyNote     NodeKind = "stickyNoteAgentflow"
)

// IsCondition reports whether nodes of this kind evaluate conditions and
// route to one numbered branch per condition.
func (k NodeKind) IsCondition() bool {
	return k == NodeKindCondition || k == NodeKindConditionAgent
}

// IsHumanInput reports whether nodes of this kind pause for a human decision.
func (k NodeKind) IsHumanInput() bool {
	return k == NodeKindHumanInput
}

func (k NodeKind) String() string {
	return string(k)
}
