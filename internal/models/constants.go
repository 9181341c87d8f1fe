package models

const (
	SystemPrompt = "You are a professional contract review assistant with legal expertise. " +
		"Use the following context to answer the question. " +
		"If you do not know the answer, say you do not know. DO NOT try to make up an answer. " +
		"If the answer is not contained in the context, say that the information is not available in the document."

	ClauseQueryTemplate = "Find and quote the section of the contract relating to '%s'"

	CompareQueryTemplate = "Compare this contract with the following standard terms and identify significant differences or deviations: %s"

	// compare_with_standard only sends the head of the standard terms file
	StandardTermsLimit = 1000
)

// ClauseLabels is the fixed battery of clauses extracted from every contract,
// in report order.
var ClauseLabels = []string{
	"Term",
	"Payment",
	"Termination",
	"Confidentiality",
	"Indemnification",
	"Force Majeure",
	"Governing Law",
	"Dispute Resolution",
	"Warranty",
	"Limitation of Liability",
}

// RiskQuestions is the fixed battery of risk probes, in report order.
var RiskQuestions = []string{
	"Are there any ambiguous or unclear clauses in this contract?",
	"Identify financial risks in this contract",
	"Are there any one-sided obligations that burden one of the parties?",
	"Find clauses that may be difficult to comply with or implement",
	"Are there any potential legal issues in this contract?",
}
