// Package report renders simulation results for the console.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/GoSim-25-26J-441/queue-sim/pkg/models"
)

const innerWidth = 61

// Options selects the optional report sections
type Options struct {
	Details bool // arrivals, rejections and per-server counters
	Theory  bool // closed-form values next to the simulated ones
}

type styles struct {
	rule    lipgloss.Style
	title   lipgloss.Style
	section lipgloss.Style
	label   lipgloss.Style
	warn    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		rule:    r.NewStyle().Foreground(lipgloss.Color("8")),
		title:   r.NewStyle().Bold(true).Width(innerWidth).Align(lipgloss.Center),
		section: r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		label:   r.NewStyle().Width(29),
		warn:    r.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// Title returns the Kendall notation shown in the report header
func Title(r *models.Result) string {
	switch r.Model {
	case "mm1k":
		return fmt.Sprintf("M/M/1/%d", r.Capacity)
	case "mmc":
		return fmt.Sprintf("M/M/%d", r.Servers)
	default:
		return "M/M/1"
	}
}

type page struct {
	st styles
	b  strings.Builder
}

func newPage(w io.Writer) *page {
	return &page{st: newStyles(w)}
}

func (p *page) line(label, value string) {
	fmt.Fprintf(&p.b, "-    %s= %s\n", p.st.label.Render(label), value)
}

func (p *page) rule() {
	p.b.WriteString(p.st.rule.Render("<"+strings.Repeat("-", innerWidth)+">") + "\n")
}

func (p *page) section(name string) {
	p.b.WriteString(p.st.section.Render("-  "+name+":") + "\n")
}

func (p *page) header(title string) {
	p.rule()
	p.b.WriteString("<" + p.st.title.Render(title) + ">\n")
	p.rule()
}

func (p *page) inputs(r *models.Result) {
	p.section("INPUTS")
	p.line("Total simulation time", fmt.Sprintf("%.4f sec", r.EndTime))
	p.line("Mean time between arrivals", fmt.Sprintf("%.4f sec", r.MeanInterarrival))
	p.line("Mean service time", fmt.Sprintf("%.4f sec", r.MeanService))
	switch r.Model {
	case "mmc":
		p.line("# of Servers in system", fmt.Sprintf("%d servers", r.Servers))
	case "mm1k":
		p.line("System capacity", fmt.Sprintf("%d cust", r.Capacity))
	}
	p.rule()
}

func (p *page) outputs(r *models.Result) {
	p.section("OUTPUTS")
	p.line("# of Customers served", fmt.Sprintf("%d cust", r.CustomersServed))
	p.line("Throughput rate", fmt.Sprintf("%f cust/sec", r.Throughput))
	p.line("Server utilization", fmt.Sprintf("%f %%", r.UtilizationPercent))
	p.line("Avg # of cust. in system", fmt.Sprintf("%f cust", r.MeanOccupancy))
	if r.SojournDefined {
		p.line("Mean Sojourn time", fmt.Sprintf("%f sec", r.MeanSojournTime))
	} else {
		p.line("Mean Sojourn time", p.st.warn.Render("undefined (no departures)"))
	}
	p.rule()
}

func (p *page) details(r *models.Result) {
	p.section("DETAILS")
	p.line("Simulated clock at end", fmt.Sprintf("%.4f sec", r.Elapsed))
	p.line("# of Arrivals", fmt.Sprintf("%d cust", r.Arrivals))
	if r.Model == "mm1k" {
		p.line("# of Rejected arrivals", fmt.Sprintf("%d cust (%.4f%%)", r.Rejected, 100*r.RejectionRate()))
	}
	p.line("Cust. in system at end", fmt.Sprintf("%d cust", r.FinalOccupancy))
	p.line("Max cust. in system", fmt.Sprintf("%d cust", r.MaxOccupancy))
	p.line("Events processed", fmt.Sprintf("%d", r.Events))
	for _, s := range r.ServerStats {
		p.line(fmt.Sprintf("Server %d", s.Index), fmt.Sprintf("%d served, %.2f%% busy", s.Served, 100*s.BusyFraction))
	}
	p.rule()
}

func (p *page) theory(model string, t *models.Theory) {
	p.section("THEORY")
	p.line("Offered load (rho)", fmt.Sprintf("%f", t.Rho))
	if !t.Stable {
		p.line("Steady state", p.st.warn.Render("none (rho >= 1)"))
		p.rule()
		return
	}
	p.line("Throughput rate", fmt.Sprintf("%f cust/sec", t.Throughput))
	p.line("Server utilization", fmt.Sprintf("%f %%", 100*t.Utilization))
	p.line("Avg # of cust. in system", fmt.Sprintf("%f cust", t.MeanOccupancy))
	p.line("Mean Sojourn time", fmt.Sprintf("%f sec", t.MeanSojournTime))
	if model == "mm1k" {
		p.line("Blocking probability", fmt.Sprintf("%f", t.BlockingProbability))
	} else {
		p.line("Probability of waiting", fmt.Sprintf("%f", t.WaitProbability))
	}
	p.rule()
}

func (p *page) flush(w io.Writer) error {
	_, err := io.WriteString(w, p.b.String())
	return err
}

// Render writes the report for r to w
func Render(w io.Writer, r *models.Result, opts Options) error {
	p := newPage(w)
	p.header(fmt.Sprintf("*** Results for %s simulation ***", Title(r)))
	p.inputs(r)
	p.outputs(r)
	if opts.Details {
		p.details(r)
	}
	if opts.Theory && r.Theory != nil {
		p.theory(r.Model, r.Theory)
	}
	return p.flush(w)
}

// RenderTheory writes only the inputs and closed-form values of r.
// r.Theory must be set.
func RenderTheory(w io.Writer, r *models.Result) error {
	if r.Theory == nil {
		return fmt.Errorf("no analytic values for %s", Title(r))
	}
	p := newPage(w)
	p.header(fmt.Sprintf("*** Closed-form values for %s ***", Title(r)))
	p.inputs(r)
	p.theory(r.Model, r.Theory)
	return p.flush(w)
}
