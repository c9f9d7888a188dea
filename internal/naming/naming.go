package naming

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"platter/internal/config"
	"platter/internal/metadata"
)

// maxNameBytes is the common filesystem limit for one path component.
const maxNameBytes = 255

// Scheme renders library paths from one library's naming configuration.
type Scheme struct {
	naming   config.Naming
	articles []string
}

// NewScheme builds a scheme from a library naming configuration.
func NewScheme(n config.Naming) *Scheme {
	var articles []string
	for _, word := range strings.Fields(n.TrieIgnoreLeadingArticles) {
		articles = append(articles, strings.ToLower(word))
	}
	return &Scheme{naming: n, articles: articles}
}

// TrackPath returns the full output path for one track under root: trie
// bucket directories, then the album folder, then the track filename with
// the configured extension.
func (s *Scheme) TrackPath(root string, tags metadata.TrackTags) string {
	parts := []string{root}
	parts = append(parts, s.Buckets(tags)...)
	parts = append(parts, s.albumDirs(tags)...)
	parts = append(parts, s.TrackFile(tags))
	return filepath.Join(parts...)
}

// AlbumDir returns the album folder path for the tags, relative to the trie
// bucket directories.
func (s *Scheme) AlbumDir(tags metadata.TrackTags) string {
	return filepath.Join(s.albumDirs(tags)...)
}

func (s *Scheme) albumDirs(tags metadata.TrackTags) []string {
	template := s.selectTemplate(tags,
		s.naming.AlbumFolder, s.naming.NDiscAlbumFolder,
		s.naming.CompilationAlbumFolder, s.naming.NDiscCompilationAlbumFolder)
	rendered := metadata.Substitute(template, tags.Fields())
	var dirs []string
	for _, part := range strings.Split(rendered, "/") {
		dirs = append(dirs, s.component(part))
	}
	return dirs
}

// TrackFile returns the track's filename including extension.
func (s *Scheme) TrackFile(tags metadata.TrackTags) string {
	template := s.selectTemplate(tags,
		s.naming.TrackFilename, s.naming.NDiscTrackFilename,
		s.naming.CompilationTrackFilename, s.naming.NDiscCompilationTrackFilename)
	name := s.component(metadata.Substitute(template, tags.Fields()))
	ext := s.naming.TrackFileExt
	if len(name)+len(ext) > maxNameBytes {
		name = clampBytes(name, maxNameBytes-len(ext))
	}
	return name + ext
}

// Buckets returns the trie bucket directory names for the tags, outermost
// first. A trie level of zero disables bucketing.
func (s *Scheme) Buckets(tags metadata.TrackTags) []string {
	if s.naming.TrieLevel <= 0 {
		return nil
	}
	key := s.naming.TrieKey
	if tags.Compilation {
		key = s.naming.CompilationTrieKey
	}
	value := tags.Fields()[key]
	value = s.stripArticles(value)

	var term []rune
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			term = append(term, unicode.ToUpper(r))
		}
	}

	// Prefixes stop one short of the full term so a name is never bucketed
	// under itself. Terms with no alphanumeric characters, or too short to
	// yield a prefix, land in the single "_" bucket.
	levels := min(s.naming.TrieLevel, len(term)-1)
	if levels < 1 {
		return []string{"_"}
	}
	buckets := make([]string, 0, levels)
	for i := 1; i <= levels; i++ {
		buckets = append(buckets, string(term[:i]))
	}
	return buckets
}

// selectTemplate picks the template variant for the tags' disc count and
// compilation flag.
func (s *Scheme) selectTemplate(tags metadata.TrackTags, single, ndisc, compilation, ndiscCompilation string) string {
	multi := tags.DiscTotal > 1
	switch {
	case tags.Compilation && multi:
		return ndiscCompilation
	case tags.Compilation:
		return compilation
	case multi:
		return ndisc
	default:
		return single
	}
}

// stripArticles drops a single leading article word from the value.
func (s *Scheme) stripArticles(value string) string {
	trimmed := strings.TrimSpace(value)
	for _, article := range s.articles {
		if len(trimmed) > len(article) &&
			strings.EqualFold(trimmed[:len(article)], article) &&
			trimmed[len(article)] == ' ' {
			return strings.TrimSpace(trimmed[len(article):])
		}
	}
	return trimmed
}

// component renders one path component: safe-name rewriting when enabled,
// a byte-length clamp, and an underscore fallback for empty results.
func (s *Scheme) component(value string) string {
	value = strings.TrimSpace(value)
	if s.naming.UseSafeNames {
		value = SafeName(value)
	} else {
		value = strings.Map(func(r rune) rune {
			if r == '/' || r == 0 {
				return '_'
			}
			return r
		}, value)
	}
	value = clampBytes(value, maxNameBytes)
	if value == "" || value == "." || value == ".." {
		return "_"
	}
	return value
}

var decompose = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	specialRuns    = regexp.MustCompile(`[^0-9a-zA-Z\-.,_]+`)
	leadingSpecial = regexp.MustCompile(`^[^0-9a-zA-Z_]`)
	separatorRuns  = regexp.MustCompile(`([-.,_]){2,}`)
)

// SafeName rewrites a name into a cross-platform filesystem-safe form.
// Accented characters fold to their base letters, whitespace runs collapse to
// a dash, and any other disallowed run collapses to a single underscore. A
// leading special character is rewritten so names never start with one, and
// mixed separator runs left over from the earlier passes collapse to their
// final character.
func SafeName(value string) string {
	folded, _, err := transform.String(decompose, value)
	if err == nil {
		value = folded
	}
	value = whitespaceRuns.ReplaceAllString(value, "-")
	value = specialRuns.ReplaceAllString(value, "_")
	value = leadingSpecial.ReplaceAllString(value, "_")
	return separatorRuns.ReplaceAllString(value, "$1")
}

// clampBytes truncates value to at most limit bytes without splitting a rune.
func clampBytes(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	for limit > 0 && !isRuneStart(value[limit]) {
		limit--
	}
	return strings.TrimSpace(value[:limit])
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
