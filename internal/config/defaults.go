package config

const (
	defaultFLACLibraryDir  = "~/Music/flac"
	defaultMP3LibraryDir   = "~/Music/mp3"
	defaultLogDir          = "~/.local/share/platter/logs"
	defaultWorkDir         = "~/.local/share/platter/work"
	defaultJournalPath     = "~/.local/share/platter/journal.db"
	defaultHTTPTimeout     = 10
	defaultUserAgent       = "platter/dev"
	defaultGracenoteURL    = "https://c.web.cddbp.net/webapi/xml/1.0/"
	defaultMusicBrainzURL  = "https://musicbrainz.org/ws/2"
	defaultFLACBinary      = "flac"
	defaultMP3Binary       = "lame"
	defaultDiscIDBinary    = "discid"
	defaultProgressMS      = 1250
	defaultClippingRetries = 10
	defaultCollectTimeout  = 30
	defaultFingerprintSecs = 15
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

func defaultNaming(ext string) Naming {
	return Naming{
		AlbumFolder:                   "{album_artist}/{album_title}",
		NDiscAlbumFolder:              "{album_artist}/{album_title}",
		CompilationAlbumFolder:        "{album_title}",
		NDiscCompilationAlbumFolder:   "{album_title}",
		TrackFilename:                 "{track_number} {track_title}",
		NDiscTrackFilename:            "{album_discnumber}{track_number} {track_title}",
		CompilationTrackFilename:      "{track_number} {track_title} ({track_artist})",
		NDiscCompilationTrackFilename: "{album_discnumber}{track_number} {track_title} ({track_artist})",
		TrackFileExt:                  ext,
		UseSafeNames:                  true,
		TrieKey:                       "album_artist",
		CompilationTrieKey:            "album_title",
		TrieLevel:                     1,
		TrieIgnoreLeadingArticles:     "a an the",
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			FLACLibraryDir: defaultFLACLibraryDir,
			MP3LibraryDir:  defaultMP3LibraryDir,
			LogDir:         defaultLogDir,
			WorkDir:        defaultWorkDir,
			JournalPath:    defaultJournalPath,
		},
		HTTP: HTTP{
			TimeoutSeconds: defaultHTTPTimeout,
			UserAgent:      defaultUserAgent,
		},
		Gracenote: Gracenote{
			BaseURL: defaultGracenoteURL,
		},
		MusicBrainz: MusicBrainz{
			BaseURL: defaultMusicBrainzURL,
		},
		FLAC: FLAC{
			Binary:        defaultFLACBinary,
			EncodeOptions: "--force --verify",
			DecodeOptions: "--force",
			Naming:        defaultNaming(".flac"),
		},
		MP3: MP3{
			Binary:        defaultMP3Binary,
			EncodeOptions: "--clipdetect -q 2 -V2 -b 224",
			Naming:        defaultNaming(".mp3"),
		},
		DiscID: DiscID{
			Binary: defaultDiscIDBinary,
		},
		Pipeline: Pipeline{
			ProgressIntervalMS:     defaultProgressMS,
			MaxClippingRetries:     defaultClippingRetries,
			CollectTimeoutSeconds:  defaultCollectTimeout,
			FingerprintTimeoutSecs: defaultFingerprintSecs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
