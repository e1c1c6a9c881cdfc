package monitor

import (
	"fmt"
	"strings"

	"github.com/pwalsh/cachemon/internal/backend"
	"github.com/pwalsh/cachemon/internal/errors"
)

// Encoding selects the output encoding for rendered rows.
type Encoding int

const (
	EncodingText Encoding = iota
	EncodingXML
	EncodingCSV
)

// ParseEncoding parses an output encoding name, case-insensitively.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return EncodingText, nil
	case "xml":
		return EncodingXML, nil
	case "csv":
		return EncodingCSV, nil
	default:
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("invalid output type %q", s),
			"Valid output types are text, xml, and csv.")
	}
}

func (e Encoding) String() string {
	switch e {
	case EncodingXML:
		return "xml"
	case EncodingCSV:
		return "csv"
	default:
		return "text"
	}
}

// RowValues carries one group's snapshot after scale conversion: occupancy
// in kilobytes, bandwidth in megabytes per second.
type RowValues struct {
	LLC float64
	MBL float64
	MBR float64
}

// textBlank is the fixed-width filler for a column that exists in the header
// but has no data for this group.
const textBlank = "           "

// ColumnPlan is the process-wide active-column set, derived once per run
// from the maximum observed event mask. It decides which columns the header
// and row structure reserve; whether a column is populated for a particular
// group depends on that group's own mask. Groups with heterogeneous masks
// therefore render structurally aligned rows. Column order is fixed:
// cache occupancy, local bandwidth, remote bandwidth.
type ColumnPlan struct {
	Active backend.Event
}

// Header renders the per-tick header for the encoding, or "" for XML which
// has no repeated header.
func (p ColumnPlan) Header(mode Mode, enc Encoding) string {
	switch enc {
	case EncodingText:
		var b strings.Builder
		if mode == ModePID {
			b.WriteString("PID      CORE     RMID")
		} else {
			b.WriteString("SKT     CORE     RMID")
		}
		if p.Active.Has(backend.EventLLCOccupancy) {
			b.WriteString("    LLC[KB]")
		}
		if p.Active.Has(backend.EventLocalBandwidth) {
			b.WriteString("  MBL[MB/s]")
		}
		if p.Active.Has(backend.EventRemoteBandwidth) {
			b.WriteString("  MBR[MB/s]")
		}
		return b.String()
	case EncodingCSV:
		var b strings.Builder
		if mode == ModePID {
			b.WriteString("Time,PID,Core,RMID")
		} else {
			b.WriteString("Time,Socket,Core,RMID")
		}
		if p.Active.Has(backend.EventLLCOccupancy) {
			b.WriteString(",LLC[KB]")
		}
		if p.Active.Has(backend.EventLocalBandwidth) {
			b.WriteString(",MBL[MB/s]")
		}
		if p.Active.Has(backend.EventRemoteBandwidth) {
			b.WriteString(",MBR[MB/s]")
		}
		return b.String()
	default:
		return ""
	}
}

// textColumn renders one fixed-width data column, a blank filler when the
// column exists but this group does not monitor the event, or nothing when
// the column is absent from the plan.
func textColumn(val float64, monitored, present bool) string {
	if monitored {
		return fmt.Sprintf("%11.1f", val)
	}
	if present {
		return textBlank
	}
	return ""
}

func xmlColumn(val float64, monitored, present bool, node string) string {
	if monitored {
		return fmt.Sprintf("\t<%s>%.1f</%s>\n", node, val, node)
	}
	if present {
		return fmt.Sprintf("\t<%s></%s>\n", node, node)
	}
	return ""
}

func csvColumn(val float64, monitored, present bool) string {
	if monitored {
		return fmt.Sprintf(",%.1f", val)
	}
	if present {
		return ","
	}
	return ""
}

// dataColumns renders the data portion of a row in the given encoding,
// honoring the two-level column decision.
func (p ColumnPlan) dataColumns(g *backend.Group, v RowValues, enc Encoding) string {
	var b strings.Builder
	switch enc {
	case EncodingXML:
		b.WriteString(xmlColumn(v.LLC,
			g.Events.Has(backend.EventLLCOccupancy),
			p.Active.Has(backend.EventLLCOccupancy), "l3_occupancy_kB"))
		b.WriteString(xmlColumn(v.MBL,
			g.Events.Has(backend.EventLocalBandwidth),
			p.Active.Has(backend.EventLocalBandwidth), "mbm_local_MB"))
		b.WriteString(xmlColumn(v.MBR,
			g.Events.Has(backend.EventRemoteBandwidth),
			p.Active.Has(backend.EventRemoteBandwidth), "mbm_remote_MB"))
	case EncodingCSV:
		b.WriteString(csvColumn(v.LLC,
			g.Events.Has(backend.EventLLCOccupancy),
			p.Active.Has(backend.EventLLCOccupancy)))
		b.WriteString(csvColumn(v.MBL,
			g.Events.Has(backend.EventLocalBandwidth),
			p.Active.Has(backend.EventLocalBandwidth)))
		b.WriteString(csvColumn(v.MBR,
			g.Events.Has(backend.EventRemoteBandwidth),
			p.Active.Has(backend.EventRemoteBandwidth)))
	default:
		b.WriteString(textColumn(v.LLC,
			g.Events.Has(backend.EventLLCOccupancy),
			p.Active.Has(backend.EventLLCOccupancy)))
		b.WriteString(textColumn(v.MBL,
			g.Events.Has(backend.EventLocalBandwidth),
			p.Active.Has(backend.EventLocalBandwidth)))
		b.WriteString(textColumn(v.MBR,
			g.Events.Has(backend.EventRemoteBandwidth),
			p.Active.Has(backend.EventRemoteBandwidth)))
	}
	return b.String()
}

// TextRow renders one group's row in text encoding, newline-prefixed so the
// row block follows the header on its own lines.
func (p ColumnPlan) TextRow(g *backend.Group, v RowValues, mode Mode) string {
	data := p.dataColumns(g, v, EncodingText)
	if mode == ModePID {
		return fmt.Sprintf("\n%6d %6s %8s%s", g.PID, "N/A", "N/A", data)
	}
	return fmt.Sprintf("\n%3d %8.8s %8d%s", g.Socket, g.Desc, g.RMID, data)
}

// XMLRow renders one group's row as a <record> element carrying the tick
// timestamp and mode-dependent identity fields.
func (p ColumnPlan) XMLRow(g *backend.Group, v RowValues, mode Mode, timestamp string) string {
	data := p.dataColumns(g, v, EncodingXML)
	if mode == ModePID {
		return fmt.Sprintf("<record>\n\t<time>%s</time>\n\t<pid>%d</pid>\n"+
			"\t<core>%s</core>\n\t<rmid>%s</rmid>\n%s</record>\n",
			timestamp, g.PID, "N/A", "N/A", data)
	}
	return fmt.Sprintf("<record>\n\t<time>%s</time>\n\t<socket>%d</socket>\n"+
		"\t<core>%s</core>\n\t<rmid>%d</rmid>\n%s</record>\n",
		timestamp, g.Socket, g.Desc, g.RMID, data)
}

// CSVRow renders one group's row in CSV encoding with a leading timestamp.
// A multi-core group description contains commas, so it is quoted to keep
// the field count stable.
func (p ColumnPlan) CSVRow(g *backend.Group, v RowValues, mode Mode, timestamp string) string {
	data := p.dataColumns(g, v, EncodingCSV)
	if mode == ModePID {
		return fmt.Sprintf("%s,%d,%s,%s%s\n", timestamp, g.PID, "N/A", "N/A", data)
	}
	return fmt.Sprintf("%s,%d,%s,%d%s\n", timestamp, g.Socket, csvField(g.Desc), g.RMID, data)
}

func csvField(s string) string {
	if strings.Contains(s, ",") {
		return `"` + s + `"`
	}
	return s
}
