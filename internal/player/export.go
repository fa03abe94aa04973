package player

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/raykov/gofpdf"

	"gochangi/internal/models"
)

type column struct {
	title string
	width float64
	align string
}

var leaderboardColumns = []column{
	{"#", 12, "C"},
	{"Player", 62, "L"},
	{"Score", 24, "R"},
	{"Time", 28, "R"},
	{"Finished", 42, "C"},
	{"Redeemed", 22, "C"},
}

// FormatElapsed renders seconds as m:ss, or h:mm:ss past the hour.
func FormatElapsed(seconds int) string {
	d := time.Duration(seconds) * time.Second
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// WritePDF renders a leaderboard as an A4 table.
func WritePDF(w io.Writer, title string, entries []models.LeaderboardEntry, generatedAt time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("gochangi", true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Generated "+generatedAt.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(123, 45, 142)
	pdf.SetTextColor(255, 255, 255)
	for _, c := range leaderboardColumns {
		pdf.CellFormat(c.width, 8, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(243, 236, 246)
	if len(entries) == 0 {
		pdf.CellFormat(0, 8, "No finished players yet.", "1", 1, "C", false, 0, "")
	}
	for i, e := range entries {
		redeemed := ""
		if e.Redeemed {
			redeemed = "yes"
		}
		cells := []string{
			strconv.Itoa(e.Rank),
			tr(e.Username),
			strconv.Itoa(e.Score),
			FormatElapsed(e.ElapsedSeconds),
			e.FinishedAt.UTC().Format("2006-01-02 15:04"),
			redeemed,
		}
		fill := i%2 == 1
		for j, c := range leaderboardColumns {
			pdf.CellFormat(c.width, 7, cells[j], "1", 0, c.align, fill, 0, "")
		}
		pdf.Ln(-1)
	}

	return pdf.Output(w)
}
