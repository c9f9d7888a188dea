package metadata

import (
	"context"
	"log/slog"

	"platter/internal/disc"
	"platter/internal/logging"
)

// GenreSource yields the lossy encoder's controlled genre vocabulary. It is
// consulted once per aggregation; the implementation caches for the process
// lifetime.
type GenreSource interface {
	Genres(ctx context.Context) ([]string, error)
}

// Result is the outcome of one aggregation run.
type Result struct {
	Record *Record
	// Errors holds one entry per failed collector, in collector order.
	Errors []error
	// Partial is true when at least one collector failed but the merge still
	// ran on whatever succeeded.
	Partial bool
	// Restored is true when the persisted snapshot contributed prior data.
	Restored bool
	// Converted is true when the snapshot required a schema upgrade.
	Converted bool
}

// Aggregator merges collector outputs into one consolidated record. The
// persisted snapshot collector, when present, must be first: arrival-order
// merging keeps its values at index 0 of every candidate list, and its
// restored fields overwrite the merged result at the end.
type Aggregator struct {
	persistence *Persistence
	collectors  []Collector
	genres      GenreSource
	logger      *slog.Logger
}

// NewAggregator builds an aggregator over the persisted snapshot plus the
// catalog collectors, evaluated in the given order after the snapshot.
func NewAggregator(persistence *Persistence, catalogs []Collector, genres GenreSource, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewNop()
	}
	collectors := make([]Collector, 0, len(catalogs)+1)
	if persistence != nil {
		collectors = append(collectors, persistence)
	}
	collectors = append(collectors, catalogs...)
	return &Aggregator{
		persistence: persistence,
		collectors:  collectors,
		genres:      genres,
		logger:      logger,
	}
}

// Aggregate runs every collector in order and merges their records. Collector
// failures are recorded, not fatal; the only hard failure is an invalid TOC.
func (a *Aggregator) Aggregate(ctx context.Context, toc disc.TOC) (*Result, error) {
	if err := toc.Validate(); err != nil {
		return nil, err
	}

	merged := NewRecord(toc)
	result := &Result{Record: merged}

	for _, collector := range a.collectors {
		record, err := collector.Collect(ctx, toc)
		if err == nil {
			// A source that miscounts hidden or bonus tracks is corrupt;
			// drop its whole contribution rather than the whole merge.
			err = record.CheckShape(toc)
		}
		if err != nil {
			a.logger.Warn("metadata collection failed",
				logging.String("collector", collector.Name()),
				logging.Error(err))
			result.Errors = append(result.Errors, NewError(collector.Name(), "collection failed", err))
			continue
		}
		mergeRecord(merged, record)
	}
	result.Partial = len(result.Errors) > 0

	a.propagateCustomTags(merged)
	a.appendGenreVocabulary(ctx, merged)
	defaultTrackYears(merged)

	if a.persistence != nil && a.persistence.Restored() {
		a.applyPersisted(merged)
		result.Restored = true
		result.Converted = a.persistence.Converted()
	}

	return result, nil
}

// Start runs Aggregate in a background goroutine, delivering the result on
// the returned channel. The channel is buffered so the job never blocks on a
// slow consumer.
func (a *Aggregator) Start(ctx context.Context, toc disc.TOC) <-chan *Result {
	results := make(chan *Result, 1)
	go func() {
		defer close(results)
		result, err := a.Aggregate(ctx, toc)
		if err != nil {
			result = &Result{Errors: []error{err}, Partial: true}
		}
		results <- result
	}()
	return results
}

// mergeRecord folds src into dst: candidate lists append unseen values in
// arrival order, disc numbering takes the maximum, custom tags union-merge.
func mergeRecord(dst, src *Record) {
	dst.Album.Title = appendUnseen(dst.Album.Title, src.Album.Title)
	dst.Album.Artist = appendUnseen(dst.Album.Artist, src.Album.Artist)
	dst.Album.Label = appendUnseen(dst.Album.Label, src.Album.Label)
	dst.Album.Genre = appendUnseen(dst.Album.Genre, src.Album.Genre)
	dst.Album.Year = appendUnseen(dst.Album.Year, src.Album.Year)
	dst.Album.Cover = appendUnseenBlobs(dst.Album.Cover, src.Album.Cover)
	dst.Album.Custom.Merge(src.Album.Custom)

	// A multi-disc-aware source reporting a high disc count is more likely
	// correct than an under-reporting one.
	if src.Album.DiscNumber > dst.Album.DiscNumber {
		dst.Album.DiscNumber = src.Album.DiscNumber
	}
	if src.Album.DiscTotal > dst.Album.DiscTotal {
		dst.Album.DiscTotal = src.Album.DiscTotal
	}
	if src.Album.Compilation {
		dst.Album.Compilation = true
	}

	for i := 1; i < len(dst.Tracks); i++ {
		dstTrack := &dst.Tracks[i]
		srcTrack := &src.Tracks[i]
		dstTrack.Title = appendUnseen(dstTrack.Title, srcTrack.Title)
		dstTrack.Artist = appendUnseen(dstTrack.Artist, srcTrack.Artist)
		dstTrack.Genre = appendUnseen(dstTrack.Genre, srcTrack.Genre)
		dstTrack.Year = appendUnseen(dstTrack.Year, srcTrack.Year)
		dstTrack.Custom.Merge(srcTrack.Custom)
	}
}

// propagateCustomTags copies every album-level custom tag down to each track
// that does not define the key itself.
func (a *Aggregator) propagateCustomTags(record *Record) {
	for _, key := range record.Album.Custom.Keys() {
		values, _ := record.Album.Custom.Get(key)
		for i := 1; i < len(record.Tracks); i++ {
			if !record.Tracks[i].Custom.Has(key) {
				record.Tracks[i].Custom.Add(key, values...)
			}
		}
	}
}

// appendGenreVocabulary appends the encoder's full genre list to every genre
// candidate list so the controlled vocabulary is always available as a
// fallback choice. A vocabulary fetch failure is logged and skipped; it never
// fails the aggregation.
func (a *Aggregator) appendGenreVocabulary(ctx context.Context, record *Record) {
	if a.genres == nil {
		return
	}
	vocabulary, err := a.genres.Genres(ctx)
	if err != nil {
		a.logger.Warn("genre vocabulary unavailable", logging.Error(err))
		return
	}
	record.Album.Genre = appendUnseen(record.Album.Genre, vocabulary)
	for i := 1; i < len(record.Tracks); i++ {
		record.Tracks[i].Genre = appendUnseen(record.Tracks[i].Genre, vocabulary)
	}
}

// defaultTrackYears copies the album year candidates into every track whose
// year list is still empty; catalogs generally do not report per-track years.
func defaultTrackYears(record *Record) {
	if len(record.Album.Year) == 0 {
		return
	}
	for i := 1; i < len(record.Tracks); i++ {
		if len(record.Tracks[i].Year) == 0 {
			years := make([]string, len(record.Album.Year))
			copy(years, record.Album.Year)
			record.Tracks[i].Year = years
		}
	}
}

// applyPersisted overwrites the fields the snapshot is authoritative for:
// disc numbering, the compilation flag, per-track include flags, and any
// custom tags the snapshot defines. These are human-authored or unavailable
// from the catalogs, so they replace rather than merge.
func (a *Aggregator) applyPersisted(record *Record) {
	snapshot := a.persistence.Snapshot()
	if snapshot == nil {
		return
	}
	record.Album.DiscNumber = snapshot.Album.DiscNumber
	record.Album.DiscTotal = snapshot.Album.DiscTotal
	record.Album.Compilation = snapshot.Album.Compilation

	for _, key := range snapshot.Album.Custom.Keys() {
		values, _ := snapshot.Album.Custom.Get(key)
		record.Album.Custom.Add(key, values...)
	}

	limit := len(record.Tracks)
	if len(snapshot.Tracks) < limit {
		limit = len(snapshot.Tracks)
	}
	for i := 1; i < limit; i++ {
		record.Tracks[i].Include = snapshot.Tracks[i].Include
		for _, key := range snapshot.Tracks[i].Custom.Keys() {
			values, _ := snapshot.Tracks[i].Custom.Get(key)
			record.Tracks[i].Custom.Add(key, values...)
		}
	}
}
