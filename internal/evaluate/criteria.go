package evaluate

import (
	"fmt"
	"strings"

	"go-deep-research/internal/types"
)

// buildCriteria renders the criteria string evaluate() is asked to judge
// the answer against, specialized per EvaluationKind. Each criterion folds
// in the accumulated knowledge so the evaluator can check claims against
// what the agent actually gathered, not just the answer text in isolation.
func buildCriteria(kind types.EvaluationKind, question string, knowledge []types.KnowledgeItem) string {
	switch kind {
	case types.EvalDefinitive:
		return fmt.Sprintf(
			"The answer must directly and definitively answer the question %q. "+
				"Hedging, \"I don't know\", or refusing to commit to a specific "+
				"claim fails this criterion, even if the hedge is honest.",
			question,
		)
	case types.EvalFreshness:
		return fmt.Sprintf(
			"The answer must reflect information that is current as of the "+
				"question's implied timeframe. If the question concerns a "+
				"changing fact (prices, versions, office-holders, live events), "+
				"the answer must not rely on stale or outdated knowledge.\n\n%s",
			knowledgeDigest(knowledge),
		)
	case types.EvalPlurality:
		return fmt.Sprintf(
			"If the question %q asks for multiple items, examples, or "+
				"reasons, the answer must enumerate a plurality of them "+
				"rather than stopping at one. If the question asks for a "+
				"single item, this criterion is trivially satisfied.",
			question,
		)
	case types.EvalCompleteness:
		return fmt.Sprintf(
			"The answer must address every distinct aspect the question "+
				"%q raises, not just the most prominent one. Use the "+
				"gathered knowledge below to check for aspects the answer "+
				"dropped.\n\n%s",
			question, knowledgeDigest(knowledge),
		)
	case types.EvalStrict:
		return fmt.Sprintf(
			"The answer's claims must be supported by the gathered "+
				"knowledge below; unsupported or fabricated claims fail "+
				"this criterion regardless of how well the answer otherwise "+
				"reads.\n\n%s",
			knowledgeDigest(knowledge),
		)
	default:
		return fmt.Sprintf("The answer must adequately address: %q", question)
	}
}

// knowledgeDigest renders a bounded preview of gathered knowledge for
// inclusion in a criteria string, truncating to keep prompts bounded.
func knowledgeDigest(knowledge []types.KnowledgeItem) string {
	if len(knowledge) == 0 {
		return "Gathered knowledge: (none)"
	}
	var sb strings.Builder
	sb.WriteString("Gathered knowledge:\n")
	max := len(knowledge)
	if max > 20 {
		max = 20
	}
	for _, item := range knowledge[:max] {
		answer := item.Answer
		if len(answer) > 300 {
			answer = answer[:300] + "..."
		}
		sb.WriteString(fmt.Sprintf("- [%s] %s: %s\n", item.Kind, item.Question, answer))
	}
	return sb.String()
}
