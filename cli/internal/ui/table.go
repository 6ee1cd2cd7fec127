package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

type RoomInfo struct {
	RoomID   string
	RoomLink string
}

func NewRoomInfo(roomID, roomLink string) *RoomInfo {
	return &RoomInfo{
		RoomID:   roomID,
		RoomLink: roomLink,
	}
}

func (r *RoomInfo) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(0, 2)

	content := fmt.Sprintf("%s Room ID:    %s\n%s Room Link:  %s",
		IconRoom, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconLink, MutedStyle.Render(r.RoomLink),
	)

	return boxStyle.Render(content)
}

// commandHelp lists what can be typed into the room prompt.
var commandHelp = [][]string{
	{"load <url|id>", "load a video for both of you"},
	{"play", "resume playback"},
	{"pause", "pause playback"},
	{"retry", "reconnect to your partner after a failed attempt"},
	{"quit", "leave the room"},
}

// CommandTableView renders the prompt commands as a titled table.
func CommandTableView() string {
	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers("Command", "Effect").
		Rows(commandHelp...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render("Room commands"), tbl.Render())
}
