package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/poiesic/kgextract/core"
	"github.com/poiesic/kgextract/search"
)

// failurePrefix matches the messages the extraction executor reports.
const failurePrefix = "Chunk extraction failed for "

// Summary describes a finished extraction run.
type Summary struct {
	Documents            int
	Chunks               int
	Succeeded            int
	EntitiesCreated      int
	EntitiesUpdated      int
	RelationshipsCreated int
	RelationshipsUpdated int
	Failures             []string
	Duration             time.Duration
}

// Failure is a parsed failure message.
type Failure struct {
	Chunk  string
	Reason string
}

// ParseFailure splits an executor failure message into chunk and reason.
// Messages in any other form are returned whole as the reason.
func ParseFailure(message string) Failure {
	rest, ok := strings.CutPrefix(message, failurePrefix)
	if !ok {
		return Failure{Reason: message}
	}
	chunk, reason, ok := strings.Cut(rest, ": ")
	if !ok {
		return Failure{Reason: message}
	}
	return Failure{Chunk: chunk, Reason: reason}
}

// Renderer writes reports to a single writer.
type Renderer struct {
	w      io.Writer
	colors *ColorScheme
}

// NewRenderer creates a Renderer for w.
func NewRenderer(w io.Writer, noColor bool) *Renderer {
	return &Renderer{w: w, colors: NewColorScheme(w, noColor)}
}

// Summary prints run totals followed by a table of failed chunks.
func (r *Renderer) Summary(s *Summary) {
	failed := s.Chunks - s.Succeeded
	fmt.Fprintf(r.w, "Documents: %d  Chunks: %d  Extracted: %s  Failed: %s\n",
		s.Documents, s.Chunks,
		r.colors.Success("%d", s.Succeeded),
		r.colors.CountColor(failed)("%d", failed))
	fmt.Fprintf(r.w, "Entities: %d new, %d updated  Relationships: %d new, %d updated\n",
		s.EntitiesCreated, s.EntitiesUpdated, s.RelationshipsCreated, s.RelationshipsUpdated)
	if s.Duration > 0 {
		fmt.Fprintf(r.w, "Elapsed: %v\n", s.Duration.Round(time.Millisecond))
	}

	if len(s.Failures) == 0 {
		return
	}
	fmt.Fprintln(r.w)
	table := r.createTable()
	r.setHeader(table, "CHUNK", "ERROR")
	for _, message := range s.Failures {
		f := ParseFailure(message)
		table.Append([]string{f.Chunk, r.colors.Error("%s", f.Reason)})
	}
	table.Render()
}

// Matches prints search results, best first.
func (r *Renderer) Matches(matches []*core.EntityMatch) {
	if len(matches) == 0 {
		fmt.Fprintln(r.w, "No matching entities")
		return
	}
	table := r.createTable()
	r.setHeader(table, "SCORE", "NAME", "TYPE", "DESCRIPTION")
	for _, m := range matches {
		table.Append([]string{
			r.colors.Score("%.3f", m.Score),
			r.colors.Name("%s", m.Entity.Name),
			m.Entity.Type,
			firstDescription(m.Entity.Description),
		})
	}
	table.Render()
}

// Neighbors prints the entities related to name.
func (r *Renderer) Neighbors(name string, neighbors []*search.Neighbor) {
	if len(neighbors) == 0 {
		fmt.Fprintf(r.w, "%s has no relationships\n", name)
		return
	}
	table := r.createTable()
	r.setHeader(table, "WEIGHT", "NEIGHBOR", "TYPE", "KEYWORDS", "DESCRIPTION")
	for _, n := range neighbors {
		table.Append([]string{
			r.colors.Score("%.1f", n.Relationship.Weight),
			r.colors.Name("%s", n.Entity.Name),
			n.Entity.Type,
			strings.Join(n.Relationship.Keywords, ","),
			firstDescription(n.Relationship.Description),
		})
	}
	table.Render()
}

func (r *Renderer) setHeader(table *tablewriter.Table, headers ...string) {
	if r.colors.Disabled {
		table.SetHeader(headers)
		return
	}
	colored := make([]string, len(headers))
	for i, h := range headers {
		colored[i] = r.colors.Header("%s", h)
	}
	table.SetHeader(colored)
}

// createTable creates a table with kubectl-style configuration
func (r *Renderer) createTable() *tablewriter.Table {
	table := tablewriter.NewWriter(r.w)

	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)

	return table
}

// firstDescription returns the first fragment of a merged description.
func firstDescription(description string) string {
	first, _, _ := strings.Cut(description, core.DescriptionSeparator)
	return strings.TrimSpace(first)
}
