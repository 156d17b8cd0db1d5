package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/georgiosbirmpakos/derbychat/internal/knowledge"
	"github.com/georgiosbirmpakos/derbychat/internal/log"
)

// SeedStore is the store surface seeding needs.
type SeedStore interface {
	Upserter
	Count(ctx context.Context) (int, error)
}

// sampleContent is the built-in Greek knowledge document used when the store
// is empty, so a fresh install can answer basic derby questions before the
// first scrape cycle runs.
const sampleContent = `Το Μεγάλο Ντέρμπι του Ελληνικού Ποδοσφαίρου

Το ντέρμπι μεταξύ Ολυμπιακού και Παναθηναϊκού είναι το πιο σημαντικό ποδοσφαιρικό γεγονός στην Ελλάδα.
Αυτό το ματς, γνωστό ως "Το Μεγάλο Ντέρμπι", συγκεντρώνει εκατομμύρια θεατές και φιλάθλους.

Ιστορία του Ντέρμπι:
Το πρώτο επίσημο ματς μεταξύ των δύο ομάδων έγινε το 1925. Από τότε, έχουν αγωνιστεί
εκατοντάδες φορές, με κάθε ματς να είναι γεμάτο πάθος και συναίσθημα.

Σημαντικές Στιγμές:
- Το 2004, ο Ολυμπιακός κέρδισε 3-1 στο ΟΑΚΑ
- Το 2007, ο Παναθηναϊκός επικράτησε 2-1 στο Καραϊσκάκη
- Το 2010, ισόπαλος 1-1 με αξέχαστα γκολ

Κορυφαίοι Παίκτες:
- Γιώργος Καραγκούνης (Παναθηναϊκός)
- Γιώργος Σεϊταρίδης (Ολυμπιακός)
- Αντώνης Νικοπολίδης (Ολυμπιακός)
- Αντώνης Αντωνιάδης (Παναθηναϊκός)

Σημασία για τους Φιλάθλους:
Το ντέρμπι δεν είναι απλά ένα ποδοσφαιρικό ματς, αλλά μια σύγκρουση ταυτοτήτων,
ιστοριών και παθών. Κάθε φίλαθλος περιμένει με αγωνία αυτό το ματς όλο το χρόνο.

Γήπεδα:
- Ολυμπιακός: Γεώργιος Καραϊσκάκης (Πειραιάς)
- Παναθηναϊκός: Απόστολος Νικολαΐδης (Αθήνα)

Στατιστικά:
Ο Ολυμπιακός έχει κερδίσει περισσότερες φορές το ντέρμπι στην ιστορία.
Οι αγώνες είναι γεμάτοι ένταση και συχνά κρίνουν τίτλους.`

// SeedIfEmpty chunks the built-in sample document into the store when it
// holds no chunks yet. Returns the number of chunks written (0 when the
// store already has content).
func SeedIfEmpty(ctx context.Context, store SeedStore, splitter *Splitter, logger log.Logger) (int, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	count, err := store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	now := time.Now()
	pieces := splitter.Split(sampleContent)
	chunks := make([]knowledge.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = knowledge.Chunk{
			Content: piece,
			Metadata: map[string]string{
				knowledge.MetaSource:      "sample_content",
				knowledge.MetaContentType: "greek_derby_info",
				knowledge.MetaIngestedAt:  now.UTC().Format(time.RFC3339),
				knowledge.MetaBatch:       fmt.Sprintf("batch_%d", now.Unix()),
			},
			CreatedAt: now,
		}
	}

	if err := store.Upsert(ctx, chunks); err != nil {
		return 0, fmt.Errorf("seeding store: %w", err)
	}

	logger.Info("seeded empty knowledge store", "chunks", len(chunks))
	return len(chunks), nil
}
