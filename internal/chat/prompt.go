package chat

import (
	"fmt"
	"strings"

	"github.com/georgiosbirmpakos/derbychat/internal/conversation"
	"github.com/georgiosbirmpakos/derbychat/internal/knowledge"
)

// systemPrompt is the Greek instruction header every generation call carries.
const systemPrompt = `Είστε ένας εξειδικευμένος βοηθός για το ελληνικό ποδόσφαιρο και το ντέρμπι Ολυμπιακός-Παναθηναϊκός.

Χρησιμοποιήστε τις παρακάτω πληροφορίες για να απαντήσετε στην ερώτηση του χρήστη.
Αν δεν γνωρίζετε την απάντηση, πείτε ότι δεν γνωρίζετε.
Απαντήστε στα ελληνικά με φιλικό και ενημερωτικό τρόπο.
Κρατήστε τις απαντήσεις συνοπτικές αλλά πλήρεις.`

// SampleQuestions are starter questions exposed over the API.
var SampleQuestions = []string{
	"Ποια είναι η ιστορία του ντέρμπι;",
	"Ποιος έχει κερδίσει περισσότερες φορές;",
	"Ποιοι είναι οι κορυφαίοι παίκτες;",
	"Ποια είναι τα πιο αξέχαστα γκολ;",
	"Που γίνεται το ντέρμπι;",
	"Ποια είναι η σημασία για τους φιλάθλους;",
	"Ποια είναι τα στατιστικά;",
	"Ποια είναι τα γήπεδα;",
	"Ποια είναι τα πιο αξέχαστα γεγονότα;",
	"Πώς ξεκίνησε η αντιπαλότητα;",
}

// buildSystemPrompt appends the retrieved context to the instruction header.
// Chunk texts are joined with blank lines, in retrieval order.
func buildSystemPrompt(results []knowledge.Result) string {
	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Chunk.Content
	}
	return fmt.Sprintf("%s\n\nΠεριεχόμενο: %s", systemPrompt, strings.Join(texts, "\n\n"))
}

// sourcesOf extracts the source URLs of the retrieved chunks, in order.
// Chunks without a source are reported as "unknown".
func sourcesOf(results []knowledge.Result) []string {
	sources := make([]string, len(results))
	for i, r := range results {
		src := r.Chunk.Metadata[knowledge.MetaSource]
		if src == "" {
			src = "unknown"
		}
		sources[i] = src
	}
	return sources
}

// historyWindow trims the conversation history to the most recent turns that
// should accompany the prompt.
func historyWindow(log *conversation.Log, n int) []conversation.Turn {
	if log == nil {
		return nil
	}
	return log.Recent(n)
}
