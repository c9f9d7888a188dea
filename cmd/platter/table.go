package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"platter/internal/journal"
	"platter/internal/metadata"
	"platter/internal/preflight"
)

func newTableWriter(header table.Row) table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(header)
	return tw
}

// numberedTable right-aligns the first column so track numbers line up.
func numberedTable(header table.Row) table.Writer {
	tw := newTableWriter(header)
	tw.SetColumnConfigs([]table.ColumnConfig{{
		Number:      1,
		Align:       text.AlignRight,
		AlignHeader: text.AlignLeft,
	}})
	return tw
}

func sessionsTable(sessions []*journal.Session) string {
	tw := newTableWriter(table.Row{"ID", "Artist", "Album", "Status", "Created"})
	for _, session := range sessions {
		tw.AppendRow(table.Row{
			session.ID,
			session.AlbumArtist,
			session.AlbumTitle,
			string(session.Status),
			session.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return tw.Render()
}

func sessionTracksTable(entries []journal.TrackEntry) string {
	tw := numberedTable(table.Row{"#", "Title", "State", "Scale", "Error"})
	for _, entry := range entries {
		scale := ""
		if entry.Scale > 0 {
			scale = fmt.Sprintf("%.2f", entry.Scale)
		}
		tw.AppendRow(table.Row{
			fmt.Sprintf("%02d", entry.TrackNumber),
			entry.Title,
			entry.State,
			scale,
			entry.ErrorMessage,
		})
	}
	return tw.Render()
}

func albumCandidatesTable(album metadata.Album) string {
	tw := newTableWriter(table.Row{"Field", "Candidates"})
	tw.AppendRows([]table.Row{
		{"Title", strings.Join(album.Title, " | ")},
		{"Artist", strings.Join(album.Artist, " | ")},
		{"Label", strings.Join(album.Label, " | ")},
		{"Genre", strings.Join(album.Genre, " | ")},
		{"Year", strings.Join(album.Year, " | ")},
		{"Disc", fmt.Sprintf("%d of %d", album.DiscNumber, album.DiscTotal)},
		{"Compilation", fmt.Sprintf("%t", album.Compilation)},
		{"Covers", fmt.Sprintf("%d", len(album.Cover))},
	})
	return tw.Render()
}

func trackCandidatesTable(record *metadata.Record) string {
	tw := numberedTable(table.Row{"#", "Title", "Artist", "Year", "Included"})
	for number := 1; number <= record.TrackCount(); number++ {
		track := record.Tracks[number]
		included := "yes"
		if !track.Include {
			included = "no"
		}
		tw.AppendRow(table.Row{
			fmt.Sprintf("%02d", number),
			strings.Join(track.Title, " | "),
			strings.Join(track.Artist, " | "),
			firstOr(track.Year, ""),
			included,
		})
	}
	return tw.Render()
}

func preflightTable(results []preflight.Result) string {
	tw := newTableWriter(table.Row{"Check", "Status", "Detail"})
	for _, result := range results {
		mark := "ok"
		if !result.Passed {
			mark = "FAIL"
		}
		tw.AppendRow(table.Row{result.Name, mark, result.Detail})
	}
	return tw.Render()
}
