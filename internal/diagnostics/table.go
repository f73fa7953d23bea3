package diagnostics

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// WriteTable renders the report as a two column summary. Empty values are
// skipped.
func (r Report) WriteTable(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Check", "Result"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)

	add := func(check, result string) {
		if result != "" {
			table.Append([]string{check, result})
		}
	}

	add("Model path", r.AbsModelPath)
	add("Model exists", strconv.FormatBool(r.Exists))
	if r.Exists {
		add("Model size", fmt.Sprintf("%d bytes", r.Size))
	}
	add("SHA256", r.SHA256)
	add("BLAKE3", r.BLAKE3)
	add("Version marker", r.HeaderSnippet)
	if r.Header != nil {
		add("Producer", fmt.Sprintf("%s %s (ir %d)", r.Header.ProducerName, r.Header.ProducerVersion, r.Header.IRVersion))
	}
	add("Go", r.GoVersion)
	add("onnxruntime_go", r.RuntimeBinding)
	if r.ProcessRSS > 0 {
		add("Process RSS", fmt.Sprintf("%d bytes", r.ProcessRSS))
	}

	for _, img := range r.Images {
		result := fmt.Sprintf("%dx%d %s", img.Width, img.Height, img.MIME)
		if img.ErrorMsg != "" {
			result = img.ErrorMsg
		}
		add("Image "+img.Species, result)
	}

	table.Render()
}
