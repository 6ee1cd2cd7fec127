package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BioHazard786/Synctube/cli/internal/utils"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// SessionSummary is printed after leaving a room.
type SessionSummary struct {
	RoomID     string
	Role       string
	PartnerID  string
	State      string
	Sent       int
	Received   int
	Duration   time.Duration
	Recordings []string
	Err        error
}

func SessionSummaryView(s SessionSummary) string {
	t := table.NewWriter()
	t.SetTitle("%s Session Summary", IconMedia)
	t.AppendHeader(table.Row{"Metric", "Value"})

	status := fmt.Sprintf("%s %s", IconSuccess, s.State)
	if s.Err != nil {
		status = fmt.Sprintf("%s %v", IconError, s.Err)
	}

	t.AppendRows([]table.Row{
		{"Room", orDash(s.RoomID)},
		{"Role", orDash(s.Role)},
		{"Partner", orDash(s.PartnerID)},
		{"Status", status},
		{"Commands sent", s.Sent},
		{"Commands received", s.Received},
		{"Connected for", formatConnected(s.Duration)},
	})

	if len(s.Recordings) > 0 {
		names := make([]string, len(s.Recordings))
		for i, path := range s.Recordings {
			names[i] = filepath.Base(path)
		}
		t.AppendRow(table.Row{"Recordings", strings.Join(names, "\n")})
	}

	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.Style().Format.Header = text.FormatDefault
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Colors: text.Colors{text.Bold}},
	})

	return t.Render()
}

func RenderSessionSummary(s SessionSummary) {
	fmt.Println(SessionSummaryView(s))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatConnected(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return utils.FormatDuration(d)
}
