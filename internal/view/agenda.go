package view

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// WriteAgenda prints the page as a plain-text agenda:
//
//	Thursday, June 20
//	  18:00-23:00  Fest        Park
//
// Today's heading is printed in red when colorize is set.
func WriteAgenda(w io.Writer, page Page, colorize bool) error {
	todayColor := color.New(color.FgRed, color.Bold)
	headColor := color.New(color.Bold)
	if colorize {
		todayColor.EnableColor()
		headColor.EnableColor()
	} else {
		todayColor.DisableColor()
		headColor.DisableColor()
	}

	timeW, nameW := 0, 0
	for _, sec := range page.Sections {
		for _, it := range sec.Items {
			timeW = max(timeW, runewidth.StringWidth(timeRange(it)))
			nameW = max(nameW, runewidth.StringWidth(it.Occurrence.EventName))
		}
	}

	bw := bufio.NewWriter(w)
	for i, sec := range page.Sections {
		if i > 0 {
			bw.WriteString("\n")
		}
		if sec.Today {
			todayColor.Fprint(bw, sec.Heading+" (today)")
		} else {
			headColor.Fprint(bw, sec.Heading)
		}
		bw.WriteString("\n")

		for _, it := range sec.Items {
			occ := it.Occurrence
			line := "  " + runewidth.FillRight(timeRange(it), timeW) +
				"  " + runewidth.FillRight(occ.EventName, nameW)
			if occ.TotalDays > 1 {
				line += "  day " + strconv.Itoa(occ.DayIndex) + "/" + strconv.Itoa(occ.TotalDays)
			}
			if occ.Location != "" {
				line += "  @ " + occ.Location
			}
			bw.WriteString(strings.TrimRight(line, " "))
			bw.WriteString("\n")
		}
	}
	return bw.Flush()
}

func timeRange(it Item) string {
	if it.Occurrence.EndTime == "" {
		return it.Occurrence.StartTime
	}
	return it.Occurrence.StartTime + "-" + it.Occurrence.EndTime
}
