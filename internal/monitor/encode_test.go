package monitor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwalsh/cachemon/internal/backend"
)

func TestParseEncoding(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Encoding
		wantErr bool
	}{
		{name: "text", input: "text", want: EncodingText},
		{name: "empty defaults to text", input: "", want: EncodingText},
		{name: "xml", input: "xml", want: EncodingXML},
		{name: "csv", input: "csv", want: EncodingCSV},
		{name: "case insensitive", input: "XML", want: EncodingXML},
		{name: "unknown", input: "json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEncoding(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestColumnPlanHeader(t *testing.T) {
	allEvents := backend.EventLLCOccupancy | backend.EventLocalBandwidth | backend.EventRemoteBandwidth

	tests := []struct {
		name   string
		active backend.Event
		mode   Mode
		enc    Encoding
		want   string
	}{
		{
			name:   "text core all columns",
			active: allEvents,
			mode:   ModeCore,
			enc:    EncodingText,
			want:   "SKT     CORE     RMID    LLC[KB]  MBL[MB/s]  MBR[MB/s]",
		},
		{
			name:   "text pid identity columns",
			active: backend.EventLLCOccupancy,
			mode:   ModePID,
			enc:    EncodingText,
			want:   "PID      CORE     RMID    LLC[KB]",
		},
		{
			name:   "text llc only",
			active: backend.EventLLCOccupancy,
			mode:   ModeCore,
			enc:    EncodingText,
			want:   "SKT     CORE     RMID    LLC[KB]",
		},
		{
			name:   "csv core",
			active: allEvents,
			mode:   ModeCore,
			enc:    EncodingCSV,
			want:   "Time,Socket,Core,RMID,LLC[KB],MBL[MB/s],MBR[MB/s]",
		},
		{
			name:   "csv pid bandwidth only",
			active: backend.EventLocalBandwidth | backend.EventRemoteBandwidth,
			mode:   ModePID,
			enc:    EncodingCSV,
			want:   "Time,PID,Core,RMID,MBL[MB/s],MBR[MB/s]",
		},
		{
			name:   "xml has no header",
			active: allEvents,
			mode:   ModeCore,
			enc:    EncodingXML,
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ColumnPlan{Active: tt.active}
			assert.Equal(t, tt.want, p.Header(tt.mode, tt.enc))
		})
	}
}

func TestTextRow(t *testing.T) {
	g := &backend.Group{
		Desc:   "2,3",
		Cores:  []int{2, 3},
		Events: backend.EventLLCOccupancy,
		Socket: 1,
		RMID:   5,
	}
	v := RowValues{LLC: 512.0, MBL: 10.0, MBR: 3.0}

	t.Run("column gap for unmonitored event keeps alignment", func(t *testing.T) {
		p := ColumnPlan{Active: backend.EventLLCOccupancy | backend.EventLocalBandwidth}
		row := p.TextRow(g, v, ModeCore)

		// LLC rendered, MBL blank-filled to full column width, MBR absent.
		assert.Contains(t, row, "512.0")
		assert.NotContains(t, row, "10.0")
		assert.True(t, strings.HasSuffix(row, textBlank))
	})

	t.Run("absent column takes no space", func(t *testing.T) {
		p := ColumnPlan{Active: backend.EventLLCOccupancy}
		row := p.TextRow(g, v, ModeCore)
		assert.True(t, strings.HasSuffix(row, "512.0"))
	})

	t.Run("rows with different masks align", func(t *testing.T) {
		p := ColumnPlan{Active: backend.EventLLCOccupancy | backend.EventLocalBandwidth}
		full := &backend.Group{
			Desc:   "0",
			Cores:  []int{0},
			Events: backend.EventLLCOccupancy | backend.EventLocalBandwidth,
		}
		assert.Equal(t, len(p.TextRow(full, v, ModeCore)), len(p.TextRow(g, v, ModeCore)))
	})

	t.Run("pid mode uses placeholders for core and rmid", func(t *testing.T) {
		p := ColumnPlan{Active: backend.EventLLCOccupancy}
		pg := &backend.Group{Desc: "1234", PID: 1234, Events: backend.EventLLCOccupancy}
		row := p.TextRow(pg, v, ModePID)
		assert.Contains(t, row, "1234")
		assert.Contains(t, row, "N/A")
	})
}

func TestXMLRow(t *testing.T) {
	p := ColumnPlan{Active: backend.EventLLCOccupancy | backend.EventLocalBandwidth}

	t.Run("core record", func(t *testing.T) {
		g := &backend.Group{
			Desc:   "0",
			Cores:  []int{0},
			Events: backend.EventLLCOccupancy,
			Socket: 0,
			RMID:   1,
		}
		row := p.XMLRow(g, RowValues{LLC: 128.0}, ModeCore, "2026-08-24 10:00:00")

		assert.True(t, strings.HasPrefix(row, "<record>"))
		assert.Contains(t, row, "<time>2026-08-24 10:00:00</time>")
		assert.Contains(t, row, "<core>0</core>")
		assert.Contains(t, row, "<l3_occupancy_kB>128.0</l3_occupancy_kB>")
		// Present but unmonitored column renders an empty element.
		assert.Contains(t, row, "<mbm_local_MB></mbm_local_MB>")
		assert.NotContains(t, row, "mbm_remote_MB")
		assert.True(t, strings.HasSuffix(row, "</record>\n"))
	})

	t.Run("pid record", func(t *testing.T) {
		g := &backend.Group{Desc: "1234", PID: 1234, Events: backend.EventLLCOccupancy}
		row := p.XMLRow(g, RowValues{LLC: 64.0}, ModePID, "2026-08-24 10:00:00")

		assert.Contains(t, row, "<pid>1234</pid>")
		assert.Contains(t, row, "<core>N/A</core>")
		assert.Contains(t, row, "<rmid>N/A</rmid>")
	})
}

func TestCSVRow(t *testing.T) {
	p := ColumnPlan{Active: backend.EventLLCOccupancy | backend.EventRemoteBandwidth}

	t.Run("core row", func(t *testing.T) {
		g := &backend.Group{
			Desc:   "0",
			Cores:  []int{0},
			Events: backend.EventLLCOccupancy | backend.EventRemoteBandwidth,
			Socket: 0,
			RMID:   2,
		}
		row := p.CSVRow(g, RowValues{LLC: 256.0, MBR: 12.5}, ModeCore, "2026-08-24 10:00:00")
		assert.Equal(t, "2026-08-24 10:00:00,0,0,2,256.0,12.5\n", row)
	})

	t.Run("multi-core description is quoted", func(t *testing.T) {
		g := &backend.Group{
			Desc:   "2,3",
			Cores:  []int{2, 3},
			Events: backend.EventLLCOccupancy,
			Socket: 1,
			RMID:   3,
		}
		row := p.CSVRow(g, RowValues{LLC: 256.0}, ModeCore, "2026-08-24 10:00:00")
		assert.Contains(t, row, `"2,3"`)
		// Unmonitored but present column yields an empty field.
		assert.True(t, strings.HasSuffix(row, ",256.0,\n"))
	})

	t.Run("pid row", func(t *testing.T) {
		g := &backend.Group{Desc: "1234", PID: 1234, Events: backend.EventLLCOccupancy}
		row := p.CSVRow(g, RowValues{LLC: 64.0}, ModePID, "2026-08-24 10:00:00")
		assert.Equal(t, "2026-08-24 10:00:00,1234,N/A,N/A,64.0,\n", row)
	})
}
